package jrnl

import (
	"sort"

	"github.com/pandagen/blockstore/util"
	"github.com/pandagen/blockstore/wal"
)

// RecoveryReport summarizes the log scan performed by Open.
type RecoveryReport struct {
	// RecoveredCommits is the number of commit records replayed.
	RecoveredCommits uint64
	// DiscardedRecords counts slots that were unreadable, undecodable,
	// failed their checksum, belonged to another format of the device,
	// referenced blocks outside the data area, or did not advance the
	// sequence.
	DiscardedRecords uint64
	// EmptySlots counts slots never written since format.
	EmptySlots uint64
	// LastSequence is the highest sequence replayed, 0 if none.
	LastSequence uint64
	Success      bool
}

// inDataArea reports whether every extent of rec lies in the data area, as
// MarkUsed requires.
func (s *Storage) inDataArea(rec *wal.CommitRecord) bool {
	for _, e := range rec.Entries {
		if n := e.NBlocks(); n > 0 && !s.alloc.Contains(e.FirstBlock, n) {
			return false
		}
	}
	return true
}

// recover rebuilds the index and free-block set from the log ring.
//
// Slots are read in block order, which after the ring wraps is not commit
// order, so the surviving records are sorted by sequence and replayed
// oldest first. Each replayed record must carry a sequence strictly greater
// than the last one replayed; a duplicate or older leftover is discarded
// even when its checksum is good. The superblock's sequence is only used to
// pick the next sequence number, never to decide visibility.
func (s *Storage) recover() {
	r := RecoveryReport{}
	var recs []*wal.CommitRecord
	for _, slot := range s.log.Scan() {
		switch {
		case slot.Empty:
			r.EmptySlots++
		case slot.Err != nil:
			util.WPrintf("recover: discarding log block %d: %v", slot.Addr, slot.Err)
			r.DiscardedRecords++
		case !slot.Record.IsValid():
			util.WPrintf("recover: discarding log block %d: checksum mismatch", slot.Addr)
			r.DiscardedRecords++
		case slot.Record.DeviceId != s.sb.DeviceId:
			util.WPrintf("recover: discarding log block %d: record from device %#x",
				slot.Addr, slot.Record.DeviceId)
			r.DiscardedRecords++
		default:
			recs = append(recs, slot.Record)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Sequence < recs[j].Sequence
	})
	for _, rec := range recs {
		if rec.Sequence <= r.LastSequence {
			util.WPrintf("recover: discarding record %d: not after %d", rec.Sequence, r.LastSequence)
			r.DiscardedRecords++
			continue
		}
		if !s.inDataArea(rec) {
			util.WPrintf("recover: discarding record %d: extent outside data area", rec.Sequence)
			r.DiscardedRecords++
			continue
		}
		for _, e := range rec.Entries {
			s.alloc.MarkUsed(e.FirstBlock, e.NBlocks())
			s.index.Insert(e)
		}
		r.LastSequence = rec.Sequence
		r.RecoveredCommits++
	}

	s.seq = util.Max(r.LastSequence, s.sb.CommitSequence)
	r.Success = true
	s.report = r
	util.DPrintf(1, "recover: %d commits replayed, %d discarded, %d empty, last seq %d, next seq %d",
		r.RecoveredCommits, r.DiscardedRecords, r.EmptySlots, r.LastSequence, s.seq+1)
}
