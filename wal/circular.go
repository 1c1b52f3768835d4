package wal

import (
	"github.com/pandagen/blockstore/common"
	"github.com/pandagen/blockstore/disk"
	"github.com/pandagen/blockstore/util"
)

// Circular owns the log region [start, start+n) of a disk.
type Circular struct {
	d     disk.Disk
	start common.Bnum
	n     uint64
}

func MkCircular(d disk.Disk, start common.Bnum, n uint64) *Circular {
	if n == 0 {
		panic("MkCircular: empty log")
	}
	return &Circular{d: d, start: start, n: n}
}

// Len is the number of slots in the ring.
func (c *Circular) Len() uint64 {
	return c.n
}

// SlotAddr is the block holding the record for sequence seq.
func (c *Circular) SlotAddr(seq uint64) common.Bnum {
	return c.start + seq%c.n
}

// Append writes rec to its slot, overwriting whatever was there, and waits
// for it to be durable. Once Append returns nil the commit has happened.
//
// If the write or the barrier fails, the slot's previous contents are
// written back so that a later barrier cannot make the failed record
// durable. The caller must reuse the sequence number for its next record,
// which overwrites the slot again should the restore not reach the medium.
func (c *Circular) Append(rec *CommitRecord) error {
	blk, err := rec.Encode()
	if err != nil {
		return err
	}
	addr := c.SlotAddr(rec.Sequence)
	old, err := c.d.Read(addr)
	if err != nil {
		return err
	}
	util.DPrintf(5, "Append: seq %d (%d entries) to log block %d",
		rec.Sequence, len(rec.Entries), addr)
	if err := c.d.Write(addr, blk); err != nil {
		c.restore(addr, old)
		return err
	}
	if err := c.d.Barrier(); err != nil {
		c.restore(addr, old)
		return err
	}
	return nil
}

func (c *Circular) restore(addr common.Bnum, old disk.Block) {
	if err := c.d.Write(addr, old); err != nil {
		util.WPrintf("log block %d: restore after failed append: %v", addr, err)
		return
	}
	if err := c.d.Barrier(); err != nil {
		util.WPrintf("log block %d: restore after failed append: %v", addr, err)
	}
}

// Reset zeroes every slot.
func (c *Circular) Reset() error {
	b0 := make(disk.Block, disk.BlockSize)
	for i := uint64(0); i < c.n; i++ {
		if err := c.d.Write(c.start+i, b0); err != nil {
			return err
		}
	}
	return c.d.Barrier()
}

// Slot is the outcome of reading one log slot during a scan. Exactly one of
// Record, Empty and Err is set.
type Slot struct {
	Addr   common.Bnum
	Record *CommitRecord
	Empty  bool
	Err    error
}

// Scan reads every slot in block order. Read and decode failures are
// reported per slot rather than aborting the scan; checksums are left to
// the caller.
func (c *Circular) Scan() []Slot {
	slots := make([]Slot, 0, c.n)
	for i := uint64(0); i < c.n; i++ {
		addr := c.start + i
		s := Slot{Addr: addr}
		blk, err := c.d.Read(addr)
		if err != nil {
			s.Err = err
		} else if isZero(blk) {
			s.Empty = true
		} else {
			s.Record, s.Err = Decode(blk)
		}
		slots = append(slots, s)
	}
	return slots
}
