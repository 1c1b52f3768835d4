package disk

import (
	"sync"
)

var _ Disk = (*memDisk)(nil)
var _ DiskWriteBatch = (*memDisk)(nil)

type memDisk struct {
	l      *sync.RWMutex
	blocks [][BlockSize]byte
}

// NewMemDisk returns a zeroed in-memory disk of numBlocks blocks.
//
// Writes are durable as soon as Write returns, so Barrier is a no-op.
func NewMemDisk(numBlocks uint64) Disk {
	blocks := make([][BlockSize]byte, numBlocks)
	return memDisk{l: new(sync.RWMutex), blocks: blocks}
}

func (d memDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != BlockSize {
		return ioError("read", a, ErrBlockSize)
	}
	d.l.RLock()
	defer d.l.RUnlock()
	if a >= uint64(len(d.blocks)) {
		return ioError("read", a, ErrOutOfBounds)
	}
	copy(buf, d.blocks[a][:])
	return nil
}

func (d memDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	if err := d.ReadTo(a, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d memDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != BlockSize {
		return ioError("write", a, ErrBlockSize)
	}
	d.l.Lock()
	defer d.l.Unlock()
	if a >= uint64(len(d.blocks)) {
		return ioError("write", a, ErrOutOfBounds)
	}
	copy(d.blocks[a][:], v)
	return nil
}

func (d memDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return uint64(len(d.blocks)), nil
}

func (d memDisk) Barrier() error { return nil }

func (d memDisk) Close() error { return nil }

func (d memDisk) WriteBatch(startPos uint64, blocks []Block) error {
	for i, buf := range blocks {
		if err := d.Write(startPos+uint64(i), buf); err != nil {
			return err
		}
	}
	return nil
}
