package wal

import (
	"github.com/pkg/errors"
	"github.com/tchajed/marshal"

	"github.com/pandagen/blockstore/common"
	"github.com/pandagen/blockstore/disk"
	"github.com/pandagen/blockstore/util"
)

// AllocationEntry is the extent holding one object version: Size bytes in
// contiguous blocks starting at FirstBlock. It never changes once committed.
type AllocationEntry struct {
	Object     common.ObjectId
	Version    common.VersionId
	FirstBlock common.Bnum
	Size       uint64
}

// NBlocks is the number of blocks the extent spans.
func (e AllocationEntry) NBlocks() uint64 {
	return util.RoundUp(e.Size, disk.BlockSize)
}

// CommitRecord makes a transaction's allocations durable in one block write.
type CommitRecord struct {
	Checksum uint64
	DeviceId uint64
	TxnId    common.TransactionId
	Sequence uint64
	Entries  []AllocationEntry

	raw disk.Block // block the record was decoded from, if any
}

func (r *CommitRecord) encode(checksum uint64) disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt(checksum)
	enc.PutInt(r.DeviceId)
	enc.PutInt(uint64(r.TxnId))
	enc.PutInt(r.Sequence)
	enc.PutInt(uint64(len(r.Entries)))
	for _, e := range r.Entries {
		enc.PutInt(uint64(e.Object))
		enc.PutInt(uint64(e.Version))
		enc.PutInt(e.FirstBlock)
		enc.PutInt(e.Size)
	}
	return enc.Finish()
}

// Encode serializes the record into one zero-padded block and stores its
// checksum in r.Checksum.
func (r *CommitRecord) Encode() (disk.Block, error) {
	if uint64(len(r.Entries)) > MaxEntries {
		return nil, errors.Wrapf(common.ErrSerialization,
			"commit record with %d entries does not fit in a block (max %d)",
			len(r.Entries), MaxEntries)
	}
	r.Checksum = common.Checksum(r.encode(0))
	return r.encode(r.Checksum), nil
}

// Decode parses a log slot. It does not check the checksum; see IsValid.
func Decode(blk disk.Block) (*CommitRecord, error) {
	if uint64(len(blk)) != disk.BlockSize {
		return nil, errors.Wrapf(common.ErrSerialization, "log slot is %d bytes", len(blk))
	}
	dec := marshal.NewDec(blk)
	r := &CommitRecord{}
	r.Checksum = dec.GetInt()
	r.DeviceId = dec.GetInt()
	r.TxnId = common.TransactionId(dec.GetInt())
	r.Sequence = dec.GetInt()
	count := dec.GetInt()
	if count > MaxEntries {
		return nil, errors.Wrapf(common.ErrSerialization,
			"log slot claims %d entries (max %d)", count, MaxEntries)
	}
	r.Entries = make([]AllocationEntry, count)
	for i := range r.Entries {
		r.Entries[i].Object = common.ObjectId(dec.GetInt())
		r.Entries[i].Version = common.VersionId(dec.GetInt())
		r.Entries[i].FirstBlock = dec.GetInt()
		r.Entries[i].Size = dec.GetInt()
	}
	r.raw = util.CloneByteSlice(blk)
	return r, nil
}

// IsValid recomputes the checksum and compares it with the stored one. For a
// decoded record the whole source block is hashed, padding included.
func (r *CommitRecord) IsValid() bool {
	blk := r.raw
	if blk == nil {
		if uint64(len(r.Entries)) > MaxEntries {
			return false
		}
		blk = r.encode(r.Checksum)
	}
	return common.Checksum(blk) == r.Checksum
}

// isZero reports whether a slot was never written.
func isZero(blk disk.Block) bool {
	for _, b := range blk {
		if b != 0 {
			return false
		}
	}
	return true
}
