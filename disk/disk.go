// Package disk provides the block-device capability the store is built on.
//
// A Disk is a fixed array of BlockSize-byte blocks that can be read, written
// and made durable with Barrier. Failures are reported as errors, never
// dropped; implementations wrap them in *IOError so callers can tell which
// block and operation failed.
package disk

import (
	"fmt"

	"github.com/pkg/errors"
)

// Block is a 4096-byte buffer
type Block = []byte

const BlockSize uint64 = 4096

// Disk provides access to a logical block-based disk
type Disk interface {
	// Read reads a disk block by address
	//
	// Expects a < Size().
	Read(a uint64) (Block, error)

	// ReadTo reads the disk block at a and stores the result in b
	//
	// Expects a < Size().
	ReadTo(a uint64, b Block) error

	// Write updates a disk block by address
	//
	// Expects a < Size().
	Write(a uint64, v Block) error

	// Size reports how big the disk is, in blocks
	Size() (uint64, error)

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}

// DiskWriteBatch is implemented by disks that can write a run of contiguous
// blocks in one call.
type DiskWriteBatch interface {
	WriteBatch(startPos uint64, blocks []Block) error
}

var (
	// ErrOutOfBounds is returned for an address at or past Size().
	ErrOutOfBounds = errors.New("block address out of bounds")

	// ErrBlockSize is returned when a buffer is not exactly BlockSize bytes.
	ErrBlockSize = errors.New("buffer is not block-sized")
)

// IOError records a failed device operation.
type IOError struct {
	Op   string
	Addr uint64
	Err  error
}

func (e *IOError) Error() string {
	if e.Op == "barrier" || e.Op == "size" || e.Op == "close" {
		return fmt.Sprintf("disk %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("disk %s at block %d: %v", e.Op, e.Addr, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause see through an IOError.
func (e *IOError) Cause() error { return e.Err }

func ioError(op string, a uint64, err error) error {
	return &IOError{Op: op, Addr: a, Err: err}
}

// WriteBlocks writes blocks to consecutive addresses starting at start,
// using a single WriteBatch call when d supports it.
func WriteBlocks(d Disk, start uint64, blocks []Block) error {
	if len(blocks) == 0 {
		return nil
	}
	if bd, ok := d.(DiskWriteBatch); ok {
		return bd.WriteBatch(start, blocks)
	}
	for i, blk := range blocks {
		if err := d.Write(start+uint64(i), blk); err != nil {
			return err
		}
	}
	return nil
}

// ReadBlocks reads n consecutive blocks starting at start.
func ReadBlocks(d Disk, start uint64, n uint64) ([]Block, error) {
	blks := make([]Block, 0, n)
	for i := uint64(0); i < n; i++ {
		blk, err := d.Read(start + i)
		if err != nil {
			return nil, err
		}
		blks = append(blks, blk)
	}
	return blks, nil
}
