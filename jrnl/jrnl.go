// Package jrnl is the top-level transactional object store.
//
// A Storage persists versioned objects on a disk.Disk. The caller begins a
// transaction, reads and writes objects within it, and finally commits or
// rolls back:
//
//	tx := s.Begin()
//	v, err := s.Write(tx, o, data)
//	err = s.Commit(tx)
//	data, err = s.ReadObjectData(o, v)
//
// Writes are buffered in the transaction; no device I/O happens before
// Commit. Commit writes the payloads to freshly allocated blocks, then a
// single checksummed commit record to the log ring, then the superblock,
// waiting for each step to be durable before starting the next. The commit
// record is the atomicity point: after a crash a transaction is visible
// exactly when its record survived. Nothing is overwritten in place, and
// old versions are never reclaimed.
//
// Open rebuilds the object index and the free-block set by replaying the
// valid records in the log ring. Because the ring holds only the most recent
// LogBlocks records, objects committed before that window are readable for
// the rest of the session that wrote them but not after a reopen.
//
// A Storage has a single logical writer and no internal locking; several
// transactions may be open at once, but calls must not overlap.
package jrnl

import (
	"github.com/pkg/errors"

	"github.com/pandagen/blockstore/alloc"
	"github.com/pandagen/blockstore/common"
	"github.com/pandagen/blockstore/disk"
	"github.com/pandagen/blockstore/obj"
	"github.com/pandagen/blockstore/super"
	"github.com/pandagen/blockstore/txn"
	"github.com/pandagen/blockstore/util"
	"github.com/pandagen/blockstore/wal"
)

// Storage is the block-backed transactional object store.
type Storage struct {
	d     disk.Disk
	sb    *super.Superblock
	log   *wal.Circular
	alloc *alloc.Alloc
	index *obj.Index
	txns  map[common.TransactionId]*txn.Txn

	seq    uint64 // last sequence number handed out
	report RecoveryReport
}

func mkStorage(d disk.Disk, sb *super.Superblock) *Storage {
	return &Storage{
		d:     d,
		sb:    sb,
		log:   wal.MkCircular(d, sb.LogStart, sb.LogBlocks),
		alloc: alloc.MkAlloc(sb.DataStart, sb.NDataBlocks()),
		index: obj.MkIndex(),
		txns:  make(map[common.TransactionId]*txn.Txn),
	}
}

// Format initializes d as an empty store spanning the whole device.
//
// The log ring is cleared before the superblock is written, so a device
// whose format was interrupted either fails to open or opens empty.
func Format(d disk.Disk) (*Storage, error) {
	size, err := d.Size()
	if err != nil {
		return nil, err
	}
	sb, err := super.MkLayout(size)
	if err != nil {
		return nil, err
	}
	sb.DeviceId = common.NewDeviceId()
	s := mkStorage(d, sb)
	if err := s.log.Reset(); err != nil {
		return nil, errors.WithMessage(err, "format: clear commit log")
	}
	if err := sb.Store(d); err != nil {
		return nil, errors.WithMessage(err, "format: write superblock")
	}
	s.report = RecoveryReport{Success: true}
	util.DPrintf(1, "Format: %d blocks, log %d, bitmap %d, data %d at %d",
		sb.NBlocks, sb.LogBlocks, sb.BitmapBlocks, sb.NDataBlocks(), sb.DataStart)
	return s, nil
}

// Open loads an existing store from d and recovers its state from the
// commit log. A device without a valid superblock is an error; Open never
// formats.
func Open(d disk.Disk) (*Storage, error) {
	sb, err := super.Load(d)
	if err != nil {
		return nil, errors.WithMessage(err, "open")
	}
	s := mkStorage(d, sb)
	s.recover()
	return s, nil
}

// Begin starts a transaction. It does no I/O.
func (s *Storage) Begin() *txn.Txn {
	tx := txn.Begin()
	s.txns[tx.Id] = tx
	return tx
}

// active checks that tx is an open transaction of this store.
func (s *Storage) active(tx *txn.Txn) error {
	if tx == nil {
		return errors.Wrap(common.ErrTransactionNotFound, "nil transaction")
	}
	if err := tx.CheckActive(); err != nil {
		return err
	}
	if s.txns[tx.Id] != tx {
		return errors.Wrapf(common.ErrTransactionNotFound, "transaction %v", tx.Id)
	}
	return nil
}

// Read returns the version of o that tx sees: its own latest pending write
// if any, otherwise the latest committed version.
func (s *Storage) Read(tx *txn.Txn, o common.ObjectId) (common.VersionId, error) {
	if err := s.active(tx); err != nil {
		return common.NULLVERSION, err
	}
	if v, ok := tx.Lookup(o); ok {
		return v, nil
	}
	if v, ok := s.index.Latest(o); ok {
		return v, nil
	}
	return common.NULLVERSION, errors.Wrapf(common.ErrObjectNotFound, "object %v", o)
}

func (s *Storage) newVersion(tx *txn.Txn, o common.ObjectId) common.VersionId {
	for {
		v := common.NewVersionId()
		if !s.index.Has(o, v) && !tx.Owns(v) {
			return v
		}
	}
}

// Write buffers a new version of o holding data and returns its id. The
// data is copied; nothing is written to the device until Commit.
func (s *Storage) Write(tx *txn.Txn, o common.ObjectId, data []byte) (common.VersionId, error) {
	if err := s.active(tx); err != nil {
		return common.NULLVERSION, err
	}
	v := s.newVersion(tx, o)
	if err := tx.Append(o, v, data); err != nil {
		return common.NULLVERSION, err
	}
	util.DPrintf(5, "Write: txn %v object %v version %v (%d bytes)", tx.Id, o, v, len(data))
	return v, nil
}

// Rollback discards tx. Since tx wrote nothing to the device, there is
// nothing to undo.
func (s *Storage) Rollback(tx *txn.Txn) error {
	if err := s.active(tx); err != nil {
		return err
	}
	delete(s.txns, tx.Id)
	return tx.Rollback()
}

// ReadObjectData returns the payload of a committed object version.
func (s *Storage) ReadObjectData(o common.ObjectId, v common.VersionId) ([]byte, error) {
	e, ok := s.index.Lookup(o, v)
	if !ok {
		return nil, errors.Wrapf(common.ErrObjectNotFound, "object %v version %v", o, v)
	}
	blks, err := disk.ReadBlocks(s.d, e.FirstBlock, e.NBlocks())
	if err != nil {
		return nil, errors.WithMessagef(err, "read object %v version %v", o, v)
	}
	data := make([]byte, 0, e.NBlocks()*disk.BlockSize)
	for _, blk := range blks {
		data = append(data, blk...)
	}
	return data[:e.Size], nil
}

// Latest returns the latest committed version of o.
func (s *Storage) Latest(o common.ObjectId) (common.VersionId, error) {
	v, ok := s.index.Latest(o)
	if !ok {
		return common.NULLVERSION, errors.Wrapf(common.ErrObjectNotFound, "object %v", o)
	}
	return v, nil
}

// Objects lists every committed object version.
func (s *Storage) Objects() []wal.AllocationEntry {
	return s.index.Entries()
}

// Superblock returns a copy of the in-memory superblock.
func (s *Storage) Superblock() super.Superblock {
	return *s.sb
}

// RecoveryReport describes what Open replayed. For a store returned by
// Format it is the report of an empty log.
func (s *Storage) RecoveryReport() RecoveryReport {
	return s.report
}

// NumFree is the number of unallocated data blocks.
func (s *Storage) NumFree() uint64 {
	return s.alloc.NumFree()
}

// NumActive is the number of open transactions.
func (s *Storage) NumActive() int {
	return len(s.txns)
}

// Close closes the underlying disk. Open transactions are abandoned.
func (s *Storage) Close() error {
	s.txns = make(map[common.TransactionId]*txn.Txn)
	return s.d.Close()
}
