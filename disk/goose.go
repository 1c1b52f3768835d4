package disk

import (
	"fmt"

	goosedisk "github.com/tchajed/goose/machine/disk"
)

var _ Disk = (*gooseDisk)(nil)

// gooseDisk adapts a goose disk, which panics on failure, to Disk.
type gooseDisk struct {
	d goosedisk.Disk
}

// FromGoose wraps a goose machine disk (goosedisk.NewMemDisk in tests,
// goosedisk.NewFileDisk for the goose backend of pgstore) as a Disk. Panics raised by the goose disk are
// turned into *IOError values.
func FromGoose(d goosedisk.Disk) Disk {
	return gooseDisk{d: d}
}

func recovered(op string, a uint64, err *error) {
	if r := recover(); r != nil {
		e, ok := r.(error)
		if !ok {
			e = fmt.Errorf("%v", r)
		}
		*err = ioError(op, a, e)
	}
}

func (g gooseDisk) bounds(op string, a uint64) error {
	if a >= g.d.Size() {
		return ioError(op, a, ErrOutOfBounds)
	}
	return nil
}

func (g gooseDisk) Read(a uint64) (blk Block, err error) {
	if err := g.bounds("read", a); err != nil {
		return nil, err
	}
	defer recovered("read", a, &err)
	return g.d.Read(a), nil
}

func (g gooseDisk) ReadTo(a uint64, b Block) error {
	if uint64(len(b)) != BlockSize {
		return ioError("read", a, ErrBlockSize)
	}
	blk, err := g.Read(a)
	if err != nil {
		return err
	}
	copy(b, blk)
	return nil
}

func (g gooseDisk) Write(a uint64, v Block) (err error) {
	if uint64(len(v)) != goosedisk.BlockSize {
		return ioError("write", a, ErrBlockSize)
	}
	if err := g.bounds("write", a); err != nil {
		return err
	}
	defer recovered("write", a, &err)
	g.d.Write(a, v)
	return nil
}

func (g gooseDisk) Size() (uint64, error) {
	return g.d.Size(), nil
}

func (g gooseDisk) Barrier() (err error) {
	defer recovered("barrier", 0, &err)
	g.d.Barrier()
	return nil
}

func (g gooseDisk) Close() (err error) {
	defer recovered("close", 0, &err)
	g.d.Close()
	return nil
}
