package alloc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/pandagen/blockstore/common"
	"github.com/pandagen/blockstore/disk"
)

func TestPopCnt(t *testing.T) {
	assert.Equal(t, uint64(0), popCnt(0))
	assert.Equal(t, uint64(1), popCnt(1))
	assert.Equal(t, uint64(1), popCnt(2))
	assert.Equal(t, uint64(2), popCnt(3))
	assert.Equal(t, uint64(8), popCnt(255))
}

func TestAlloc(t *testing.T) {
	assert := assert.New(t)
	max := uint64(32)
	a := MkAlloc(100, max)

	assert.Equal(max, a.NumFree(), "everything should be initially free")

	n, err := a.AllocRun(3)
	assert.NoError(err)
	assert.Equal(common.Bnum(100), n, "fresh allocator starts at the front")

	a.MarkUsed(n+3, 1)
	n2, err := a.AllocRun(2)
	assert.NoError(err)
	assert.Equal(common.Bnum(104), n2, "should not allocate something marked used")

	assert.Equal(max-6, a.NumFree(), "should have used 6 items")
	assert.Equal(a.countFree(), a.NumFree())

	a.Release(n, 3)
	a.Release(n2, 2)
	assert.Equal(max-1, a.NumFree(), "should have freed")
	assert.Equal(a.countFree(), a.NumFree())
}

func TestAllocBytes(t *testing.T) {
	assert := assert.New(t)
	a := MkAlloc(10, 8)

	bn, n, err := a.Alloc(0)
	assert.NoError(err)
	assert.Equal(uint64(0), n, "empty payload takes no blocks")
	assert.Equal(common.NULLBNUM, bn)

	bn, n, err = a.Alloc(1)
	assert.NoError(err)
	assert.Equal(uint64(1), n)
	assert.Equal(common.Bnum(10), bn)

	bn, n, err = a.Alloc(disk.BlockSize + 1)
	assert.NoError(err)
	assert.Equal(uint64(2), n)
	assert.Equal(common.Bnum(11), bn)
	assert.Equal(uint64(5), a.NumFree())
}

func TestNoFreeSpace(t *testing.T) {
	assert := assert.New(t)
	a := MkAlloc(0, 4)
	_, err := a.AllocRun(5)
	assert.True(errors.Is(err, common.ErrNoFreeSpace))

	// free count suffices but no contiguous run does
	a.MarkUsed(1, 1)
	a.MarkUsed(3, 1)
	_, err = a.AllocRun(2)
	assert.True(errors.Is(err, common.ErrNoFreeSpace))
	assert.Equal(uint64(2), a.NumFree(), "failed allocation takes nothing")
}

func TestWrapAround(t *testing.T) {
	assert := assert.New(t)
	a := MkAlloc(0, 8)
	first, err := a.AllocRun(6)
	assert.NoError(err)
	a.Release(first, 4)
	// cursor is at 6; only 2 free at the end, so the search wraps
	bn, err := a.AllocRun(3)
	assert.NoError(err)
	assert.Equal(common.Bnum(0), bn)
}

func TestMarkUsedRange(t *testing.T) {
	assert := assert.New(t)
	a := MkAlloc(50, 10)
	assert.Panics(func() { a.MarkUsed(49, 1) })
	assert.Panics(func() { a.MarkUsed(55, 6) })
	assert.Panics(func() { a.Release(59, 2) })
	a.MarkUsed(55, 5)
	a.MarkUsed(55, 5) // marking twice is harmless
	a.MarkUsed(0, 0)
	assert.Equal(uint64(5), a.NumFree())
	assert.False(a.IsFree(55))
	assert.True(a.IsFree(54))
	assert.False(a.IsFree(60))
}
