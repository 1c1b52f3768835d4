// Package obj is the in-memory object index: which extent holds each
// committed object version, and which version of each object is latest.
//
// The index is derived state. The commit log is the source of truth, and
// the index is rebuilt from it whenever the store is opened.
package obj

import (
	"sort"

	"github.com/pandagen/blockstore/common"
	"github.com/pandagen/blockstore/util"
	"github.com/pandagen/blockstore/wal"
)

type key struct {
	object  common.ObjectId
	version common.VersionId
}

// Index maps (object, version) to its extent and object to latest version.
type Index struct {
	entries map[key]wal.AllocationEntry
	latest  map[common.ObjectId]common.VersionId
}

func MkIndex() *Index {
	return &Index{
		entries: make(map[key]wal.AllocationEntry),
		latest:  make(map[common.ObjectId]common.VersionId),
	}
}

// Insert records a committed entry; it becomes the object's latest version.
// Entries must be inserted in commit order.
func (idx *Index) Insert(e wal.AllocationEntry) {
	util.DPrintf(5, "Insert: object %v version %v at %d (%d bytes)",
		e.Object, e.Version, e.FirstBlock, e.Size)
	idx.entries[key{e.Object, e.Version}] = e
	idx.latest[e.Object] = e.Version
}

// Lookup finds the extent of one object version.
func (idx *Index) Lookup(o common.ObjectId, v common.VersionId) (wal.AllocationEntry, bool) {
	e, ok := idx.entries[key{o, v}]
	return e, ok
}

// Latest returns the most recently committed version of o.
func (idx *Index) Latest(o common.ObjectId) (common.VersionId, bool) {
	v, ok := idx.latest[o]
	return v, ok
}

// Has reports whether version v of o is indexed.
func (idx *Index) Has(o common.ObjectId, v common.VersionId) bool {
	_, ok := idx.entries[key{o, v}]
	return ok
}

// Len is the number of indexed object versions.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// NObjects is the number of distinct objects.
func (idx *Index) NObjects() int {
	return len(idx.latest)
}

// Entries lists every indexed version ordered by object, then first block.
func (idx *Index) Entries() []wal.AllocationEntry {
	es := make([]wal.AllocationEntry, 0, len(idx.entries))
	for _, e := range idx.entries {
		es = append(es, e)
	}
	sort.Slice(es, func(i, j int) bool {
		if es[i].Object != es[j].Object {
			return es[i].Object < es[j].Object
		}
		if es[i].FirstBlock != es[j].FirstBlock {
			return es[i].FirstBlock < es[j].FirstBlock
		}
		return es[i].Version < es[j].Version
	})
	return es
}
