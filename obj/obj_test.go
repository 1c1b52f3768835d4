package obj

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pandagen/blockstore/common"
	"github.com/pandagen/blockstore/wal"
)

func entry(o, v, bn, sz uint64) wal.AllocationEntry {
	return wal.AllocationEntry{
		Object:     common.ObjectId(o),
		Version:    common.VersionId(v),
		FirstBlock: bn,
		Size:       sz,
	}
}

func TestIndex(t *testing.T) {
	assert := assert.New(t)
	idx := MkIndex()

	_, ok := idx.Latest(1)
	assert.False(ok)

	idx.Insert(entry(1, 10, 40, 5))
	idx.Insert(entry(2, 20, 41, 4096))
	idx.Insert(entry(1, 11, 42, 7))

	v, ok := idx.Latest(1)
	assert.True(ok)
	assert.Equal(common.VersionId(11), v, "later insert is latest")

	e, ok := idx.Lookup(1, 10)
	assert.True(ok)
	assert.Equal(common.Bnum(40), e.FirstBlock, "old versions stay readable")
	assert.True(idx.Has(2, 20))
	assert.False(idx.Has(2, 10))

	assert.Equal(3, idx.Len())
	assert.Equal(2, idx.NObjects())
	assert.Equal([]wal.AllocationEntry{
		entry(1, 10, 40, 5),
		entry(1, 11, 42, 7),
		entry(2, 20, 41, 4096),
	}, idx.Entries())
}
