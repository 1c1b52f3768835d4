package jrnl

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/pandagen/blockstore/common"
	"github.com/pandagen/blockstore/disk"
	"github.com/pandagen/blockstore/txn"
	"github.com/pandagen/blockstore/util"
	"github.com/pandagen/blockstore/wal"
)

// SuperblockError reports a commit whose record is durable but whose
// superblock update failed. The commit took effect; only the superblock's
// sequence hint is stale. It matches common.ErrSuperblockStale and unwraps
// to the device error.
type SuperblockError struct {
	Sequence uint64
	Err      error
}

func (e *SuperblockError) Error() string {
	return fmt.Sprintf("commit %d durable, superblock not updated: %v", e.Sequence, e.Err)
}

func (e *SuperblockError) Unwrap() error { return e.Err }

func (e *SuperblockError) Is(target error) bool {
	return target == common.ErrSuperblockStale
}

// toBlocks splits data into n zero-padded blocks.
func toBlocks(data []byte, n uint64) []disk.Block {
	blks := make([]disk.Block, n)
	for i := range blks {
		blk := make(disk.Block, disk.BlockSize)
		off := uint64(i) * disk.BlockSize
		copy(blk, data[off:util.Min(off+disk.BlockSize, uint64(len(data)))])
		blks[i] = blk
	}
	return blks
}

// writeData allocates an extent for each write, writes the payloads and
// waits for them to be durable. On failure every extent it allocated is
// released: no commit record refers to them yet.
func (s *Storage) writeData(writes []txn.Write) ([]wal.AllocationEntry, error) {
	entries := make([]wal.AllocationEntry, 0, len(writes))
	for _, w := range writes {
		bn, n, err := s.alloc.Alloc(uint64(len(w.Data)))
		if err != nil {
			s.releaseEntries(entries)
			return nil, err
		}
		entries = append(entries, wal.AllocationEntry{
			Object:     w.Object,
			Version:    w.Version,
			FirstBlock: bn,
			Size:       uint64(len(w.Data)),
		})
		util.DPrintf(5, "writeData: object %v version %v to blocks [%d, %d)",
			w.Object, w.Version, bn, bn+n)
		if err := disk.WriteBlocks(s.d, bn, toBlocks(w.Data, n)); err != nil {
			s.releaseEntries(entries)
			return nil, err
		}
	}
	if err := s.d.Barrier(); err != nil {
		s.releaseEntries(entries)
		return nil, err
	}
	return entries, nil
}

// Commit makes tx's writes durable and visible, all or nothing.
//
// The protocol has three phases, each durable before the next starts:
//
//  1. write every payload to newly allocated blocks;
//  2. write the commit record to its log slot (the atomicity point);
//  3. write the superblock with the new sequence number, then fold the
//     allocations into the in-memory index.
//
// If phase 1 or 2 fails the transaction is rolled back and will not be
// visible after a restart, even if a later commit flushes the device. If only phase 3 fails the transaction has
// committed: it is visible now and after recovery, and the error is a
// *SuperblockError. A transaction without writes commits with no I/O.
func (s *Storage) Commit(tx *txn.Txn) error {
	if err := s.active(tx); err != nil {
		return err
	}
	delete(s.txns, tx.Id)

	writes := tx.Writes()
	if len(writes) == 0 {
		util.DPrintf(5, "Commit: read-only txn %v", tx.Id)
		tx.Finish(txn.Committed)
		return nil
	}

	entries, err := s.writeData(writes)
	if err != nil {
		tx.Finish(txn.RolledBack)
		return errors.WithMessagef(err, "commit %v: write data", tx.Id)
	}

	rec := &wal.CommitRecord{
		DeviceId: s.sb.DeviceId,
		TxnId:    tx.Id,
		Sequence: s.seq + 1,
		Entries:  entries,
	}
	if _, err := rec.Encode(); err != nil {
		s.releaseEntries(entries)
		tx.Finish(txn.RolledBack)
		return errors.WithMessagef(err, "commit %v", tx.Id)
	}
	if err := s.log.Append(rec); err != nil {
		// The record may still reach the medium, and it references these
		// blocks, so they stay reserved. The sequence is not consumed: the
		// next commit overwrites the same slot.
		tx.Finish(txn.RolledBack)
		return errors.WithMessagef(err, "commit %v: write record %d", tx.Id, rec.Sequence)
	}
	s.seq = rec.Sequence

	s.sb.CommitSequence = rec.Sequence
	sbErr := s.sb.Store(s.d)

	for _, e := range entries {
		s.index.Insert(e)
	}
	tx.Finish(txn.Committed)
	util.DPrintf(3, "Commit: txn %v seq %d, %d writes", tx.Id, rec.Sequence, len(entries))

	if sbErr != nil {
		util.WPrintf("commit %d: superblock update failed: %v", rec.Sequence, sbErr)
		return &SuperblockError{Sequence: rec.Sequence, Err: sbErr}
	}
	return nil
}

func (s *Storage) releaseEntries(entries []wal.AllocationEntry) {
	for _, e := range entries {
		s.alloc.Release(e.FirstBlock, e.NBlocks())
	}
}
