package txn

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/pandagen/blockstore/common"
	"github.com/pandagen/blockstore/util"
	"github.com/pandagen/blockstore/wal"
)

//
// A Txn buffers a transaction's writes in memory. Nothing reaches the disk
// until the store commits it, so abandoning a Txn (Rollback) never touches
// the device.
//

type State int

const (
	Active State = iota
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Write is one pending object version.
type Write struct {
	Object  common.ObjectId
	Version common.VersionId
	Data    []byte
}

type Txn struct {
	Id     common.TransactionId
	state  State
	writes []Write
}

// Begin starts a transaction with a fresh id and no writes.
func Begin() *Txn {
	t := &Txn{
		Id:    common.NewTransactionId(),
		state: Active,
	}
	util.DPrintf(3, "Begin: %v", t.Id)
	return t
}

func (t *Txn) State() State {
	return t.state
}

// CheckActive fails with ErrAlreadyFinalized unless t is Active.
func (t *Txn) CheckActive() error {
	if t.state != Active {
		return errors.Wrapf(common.ErrAlreadyFinalized, "transaction %v is %v", t.Id, t.state)
	}
	return nil
}

// Lookup returns the newest pending version of o written by t.
func (t *Txn) Lookup(o common.ObjectId) (common.VersionId, bool) {
	for i := len(t.writes) - 1; i >= 0; i-- {
		if t.writes[i].Object == o {
			return t.writes[i].Version, true
		}
	}
	return common.NULLVERSION, false
}

// Owns reports whether t has a pending write of version v.
func (t *Txn) Owns(v common.VersionId) bool {
	for _, w := range t.writes {
		if w.Version == v {
			return true
		}
	}
	return false
}

// Append adds a pending write. The data is copied. A transaction may hold
// at most wal.MaxEntries writes, the most one commit record can describe.
func (t *Txn) Append(o common.ObjectId, v common.VersionId, data []byte) error {
	if err := t.CheckActive(); err != nil {
		return err
	}
	if uint64(len(t.writes)) >= wal.MaxEntries {
		return errors.Wrapf(common.ErrSerialization,
			"transaction %v already holds %d writes", t.Id, len(t.writes))
	}
	t.writes = append(t.writes, Write{
		Object:  o,
		Version: v,
		Data:    util.CloneByteSlice(data),
	})
	return nil
}

// Writes returns the pending writes in the order they were made.
func (t *Txn) Writes() []Write {
	return t.writes
}

// NWrites is the number of pending writes.
func (t *Txn) NWrites() int {
	return len(t.writes)
}

// Rollback discards the pending writes.
func (t *Txn) Rollback() error {
	if err := t.CheckActive(); err != nil {
		return err
	}
	t.Finish(RolledBack)
	util.DPrintf(3, "Rollback: %v", t.Id)
	return nil
}

// Finish moves t to a terminal state and drops its buffered data.
func (t *Txn) Finish(s State) {
	if s == Active {
		panic("Finish: not a terminal state")
	}
	t.state = s
	t.writes = nil
}
