package disk

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var _ Disk = (*fileDisk)(nil)

type fileDisk struct {
	fd        int
	numBlocks uint64
}

// NewFileDisk opens (creating if needed) the file at path as a disk of
// numBlocks blocks. Regular files are grown or truncated to fit.
func NewFileDisk(path string, numBlocks uint64) (Disk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if (stat.Mode&unix.S_IFMT) == unix.S_IFREG && uint64(stat.Size) != numBlocks*BlockSize {
		err = unix.Ftruncate(fd, int64(numBlocks*BlockSize))
		if err != nil {
			unix.Close(fd)
			return nil, errors.Wrapf(err, "truncate %s", path)
		}
	}
	return fileDisk{fd, numBlocks}, nil
}

func (d fileDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != BlockSize {
		return ioError("read", a, ErrBlockSize)
	}
	if a >= d.numBlocks {
		return ioError("read", a, ErrOutOfBounds)
	}
	n, err := unix.Pread(d.fd, buf, int64(a*BlockSize))
	if err != nil {
		return ioError("read", a, err)
	}
	if uint64(n) != BlockSize {
		return ioError("read", a, errors.Errorf("short read of %d bytes", n))
	}
	return nil
}

func (d fileDisk) Read(a uint64) (Block, error) {
	buf := make([]byte, BlockSize)
	if err := d.ReadTo(a, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d fileDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != BlockSize {
		return ioError("write", a, ErrBlockSize)
	}
	if a >= d.numBlocks {
		return ioError("write", a, ErrOutOfBounds)
	}
	n, err := unix.Pwrite(d.fd, v, int64(a*BlockSize))
	if err != nil {
		return ioError("write", a, err)
	}
	if uint64(n) != BlockSize {
		return ioError("write", a, errors.Errorf("short write of %d bytes", n))
	}
	return nil
}

func (d fileDisk) Size() (uint64, error) {
	return d.numBlocks, nil
}

func (d fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	if err := unix.Fsync(d.fd); err != nil {
		return ioError("barrier", 0, err)
	}
	return nil
}

func (d fileDisk) Close() error {
	if err := unix.Close(d.fd); err != nil {
		return ioError("close", 0, err)
	}
	return nil
}
