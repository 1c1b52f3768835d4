package alloc

import (
	"github.com/pkg/errors"

	"github.com/pandagen/blockstore/common"
	"github.com/pandagen/blockstore/disk"
	"github.com/pandagen/blockstore/util"
)

// Alloc tracks the free blocks of the data area with an in-memory bitmap.
// Bit i corresponds to block start+i; a set bit means in use.
//
// The bitmap is never persisted: it is rebuilt from committed allocations
// every time the store is opened. Alloc has no lock; the store drives it
// from a single writer.
type Alloc struct {
	start  common.Bnum
	len    uint64
	bitmap []byte
	next   uint64 // first number to try
	nfree  uint64
}

func MkAlloc(start common.Bnum, len uint64) *Alloc {
	a := &Alloc{
		start:  start,
		len:    len,
		bitmap: make([]byte, util.RoundUp(len, 8)),
		next:   0,
		nfree:  len,
	}
	return a
}

func popCnt(b byte) uint64 {
	var count uint64
	var x = b
	for i := uint64(0); i < 8; i++ {
		count += uint64(x & 1)
		x = x >> 1
	}
	return count
}

func (a *Alloc) used(n uint64) bool {
	return a.bitmap[n/8]&(1<<(n%8)) != 0
}

func (a *Alloc) setBit(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] | (1 << (n % 8))
}

func (a *Alloc) clearBit(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] & ^(1 << (n % 8))
}

// NumFree reports the number of free blocks.
func (a *Alloc) NumFree() uint64 {
	return a.nfree
}

// countFree recomputes NumFree from the bitmap.
func (a *Alloc) countFree() uint64 {
	var used uint64
	for _, b := range a.bitmap {
		used += popCnt(b)
	}
	return a.len - used
}

// IsFree reports whether block bn is in the managed range and free.
func (a *Alloc) IsFree(bn common.Bnum) bool {
	if bn < a.start || bn-a.start >= a.len {
		return false
	}
	return !a.used(bn - a.start)
}

// Contains reports whether the n blocks starting at bn all lie in the
// managed range.
func (a *Alloc) Contains(bn common.Bnum, n uint64) bool {
	if bn < a.start || util.SumOverflows(bn, n) {
		return false
	}
	return bn+n <= a.start+a.len
}

// findRun returns the first run of n free numbers in [from, to).
func (a *Alloc) findRun(from uint64, to uint64, n uint64) (uint64, bool) {
	var run uint64
	for i := from; i < to; i++ {
		if a.used(i) {
			run = 0
			continue
		}
		run++
		if run == n {
			return i + 1 - n, true
		}
	}
	return 0, false
}

// AllocRun reserves n contiguous blocks and returns the first.
//
// The search starts where the previous one ended and wraps once, so a
// fresh allocator hands out blocks in address order.
func (a *Alloc) AllocRun(n uint64) (common.Bnum, error) {
	if n == 0 {
		return common.NULLBNUM, nil
	}
	if a.nfree < n {
		return common.NULLBNUM, errors.Wrapf(common.ErrNoFreeSpace,
			"need %d blocks, %d free", n, a.nfree)
	}
	num, ok := a.findRun(a.next, a.len, n)
	if !ok {
		num, ok = a.findRun(0, util.Min(a.next+n-1, a.len), n)
	}
	if !ok {
		return common.NULLBNUM, errors.Wrapf(common.ErrNoFreeSpace,
			"no run of %d contiguous blocks among %d free", n, a.nfree)
	}
	for i := num; i < num+n; i++ {
		a.setBit(i)
	}
	a.nfree -= n
	a.next = num + n
	if a.next >= a.len {
		a.next = 0
	}
	util.DPrintf(10, "AllocRun: %d blocks at %d", n, a.start+num)
	return a.start + num, nil
}

// Alloc reserves enough contiguous blocks for size bytes and returns the
// first block and the number of blocks.
func (a *Alloc) Alloc(size uint64) (common.Bnum, uint64, error) {
	n := util.RoundUp(size, disk.BlockSize)
	bn, err := a.AllocRun(n)
	if err != nil {
		return common.NULLBNUM, 0, err
	}
	return bn, n, nil
}

// MarkUsed records the n blocks starting at bn as in use. Blocks already in
// use stay in use. The extent must lie within the allocator's range.
func (a *Alloc) MarkUsed(bn common.Bnum, n uint64) {
	if n == 0 {
		return
	}
	if !a.Contains(bn, n) {
		panic("MarkUsed")
	}
	for i := bn - a.start; i < bn-a.start+n; i++ {
		if !a.used(i) {
			a.setBit(i)
			a.nfree--
		}
	}
}

// Release returns the n blocks starting at bn to the free set. It is only
// used for blocks that no commit record can reference.
func (a *Alloc) Release(bn common.Bnum, n uint64) {
	if n == 0 {
		return
	}
	if !a.Contains(bn, n) {
		panic("Release")
	}
	for i := bn - a.start; i < bn-a.start+n; i++ {
		if a.used(i) {
			a.clearBit(i)
			a.nfree++
		}
	}
}
