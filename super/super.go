// Package super defines the on-device layout and the superblock in block 0.
//
//	[ super | commit log ring | allocation bitmap | data area ]
//	  0       LogStart          BitmapStart         DataStart  NBlocks
//
// The bitmap region is reserved but never written: the allocator is rebuilt
// in memory from the commit log. The superblock's CommitSequence is a hint
// for choosing the next log slot; recovery never uses it to decide what is
// visible.
package super

import (
	"github.com/pkg/errors"
	"github.com/tchajed/marshal"

	"github.com/pandagen/blockstore/common"
	"github.com/pandagen/blockstore/disk"
	"github.com/pandagen/blockstore/util"
)

const (
	// Magic identifies a formatted device ("PANDAGEN").
	Magic uint64 = 0x50414e444147454e

	// Version is the on-device format version.
	Version uint64 = 1

	// MaxLogBlocks caps the size of the commit-log ring.
	MaxLogBlocks uint64 = 256
)

const SUPERBLK = common.Bnum(0)

// Superblock describes the partitioning of the device.
type Superblock struct {
	Magic   uint64
	Version uint64
	NBlocks uint64

	LogStart  common.Bnum
	LogBlocks uint64

	BitmapStart  common.Bnum
	BitmapBlocks uint64

	DataStart common.Bnum

	CommitSequence uint64
	DeviceId       uint64
}

// MkLayout computes the layout for a device of nblocks blocks:
// the log takes 5% of the device (at least 1, at most MaxLogBlocks blocks),
// the bitmap 10% of what remains (at least 1), the data area the rest.
func MkLayout(nblocks uint64) (*Superblock, error) {
	if nblocks < 2 {
		return nil, errors.Wrapf(common.ErrInvalidSuperblock, "device of %d blocks is too small", nblocks)
	}
	logBlocks := util.Max(1, util.Min(MaxLogBlocks, nblocks*5/100))
	if 1+logBlocks >= nblocks {
		return nil, errors.Wrapf(common.ErrInvalidSuperblock,
			"no room for a bitmap after %d log blocks on a %d-block device", logBlocks, nblocks)
	}
	remaining := nblocks - 1 - logBlocks
	bitmapBlocks := util.Max(1, remaining*10/100)
	if bitmapBlocks >= remaining {
		return nil, errors.Wrapf(common.ErrInvalidSuperblock,
			"no data blocks left on a %d-block device", nblocks)
	}
	sb := &Superblock{
		Magic:        Magic,
		Version:      Version,
		NBlocks:      nblocks,
		LogStart:     1,
		LogBlocks:    logBlocks,
		BitmapStart:  1 + logBlocks,
		BitmapBlocks: bitmapBlocks,
		DataStart:    1 + logBlocks + bitmapBlocks,
	}
	return sb, nil
}

// NDataBlocks is the size of the data area.
func (sb *Superblock) NDataBlocks() uint64 {
	return sb.NBlocks - sb.DataStart
}

func (sb *Superblock) encode(checksum uint64) disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt(checksum)
	enc.PutInt(sb.Magic)
	enc.PutInt(sb.Version)
	enc.PutInt(sb.NBlocks)
	enc.PutInt(sb.LogStart)
	enc.PutInt(sb.LogBlocks)
	enc.PutInt(sb.BitmapStart)
	enc.PutInt(sb.BitmapBlocks)
	enc.PutInt(sb.DataStart)
	enc.PutInt(sb.CommitSequence)
	enc.PutInt(sb.DeviceId)
	return enc.Finish()
}

// Encode serializes the superblock into one zero-padded block.
func (sb *Superblock) Encode() disk.Block {
	return sb.encode(common.Checksum(sb.encode(0)))
}

// Decode parses and validates block 0.
func Decode(blk disk.Block) (*Superblock, error) {
	if uint64(len(blk)) != disk.BlockSize {
		return nil, errors.Wrapf(common.ErrInvalidSuperblock, "superblock is %d bytes", len(blk))
	}
	dec := marshal.NewDec(blk)
	checksum := dec.GetInt()
	sb := &Superblock{}
	sb.Magic = dec.GetInt()
	sb.Version = dec.GetInt()
	sb.NBlocks = dec.GetInt()
	sb.LogStart = dec.GetInt()
	sb.LogBlocks = dec.GetInt()
	sb.BitmapStart = dec.GetInt()
	sb.BitmapBlocks = dec.GetInt()
	sb.DataStart = dec.GetInt()
	sb.CommitSequence = dec.GetInt()
	sb.DeviceId = dec.GetInt()

	if sb.Magic != Magic {
		return nil, errors.Wrapf(common.ErrInvalidSuperblock, "bad magic %#x", sb.Magic)
	}
	if sb.Version != Version {
		return nil, errors.Wrapf(common.ErrInvalidSuperblock, "unsupported format version %d", sb.Version)
	}
	if computed := common.Checksum(blk); computed != checksum {
		return nil, errors.Wrapf(common.ErrInvalidSuperblock,
			"checksum mismatch, computed: %#x, stored: %#x", computed, checksum)
	}
	if err := sb.validate(); err != nil {
		return nil, err
	}
	return sb, nil
}

func (sb *Superblock) validate() error {
	ok := sb.LogStart == SUPERBLK+1 &&
		sb.LogBlocks >= 1 &&
		sb.BitmapStart == sb.LogStart+sb.LogBlocks &&
		sb.BitmapBlocks >= 1 &&
		sb.DataStart == sb.BitmapStart+sb.BitmapBlocks &&
		sb.DataStart < sb.NBlocks
	if !ok {
		return errors.Wrapf(common.ErrInvalidSuperblock, "inconsistent layout %+v", *sb)
	}
	return nil
}

// Load reads and validates the superblock of d.
func Load(d disk.Disk) (*Superblock, error) {
	blk, err := d.Read(SUPERBLK)
	if err != nil {
		return nil, err
	}
	sb, err := Decode(blk)
	if err != nil {
		return nil, err
	}
	size, err := d.Size()
	if err != nil {
		return nil, err
	}
	if sb.NBlocks > size {
		return nil, errors.Wrapf(common.ErrInvalidSuperblock,
			"superblock describes %d blocks, device has %d", sb.NBlocks, size)
	}
	return sb, nil
}

// Store writes the superblock to block 0 and waits for it to be durable.
func (sb *Superblock) Store(d disk.Disk) error {
	if err := d.Write(SUPERBLK, sb.Encode()); err != nil {
		return err
	}
	return d.Barrier()
}
