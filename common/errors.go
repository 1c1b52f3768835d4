package common

import (
	"github.com/pkg/errors"
)

// Errors reported by the store. Callers match them with errors.Is; the
// returned errors usually wrap one of these with more context. Device
// failures are reported as *disk.IOError.
var (
	// ErrInvalidSuperblock: block 0 does not hold a usable superblock, or a
	// requested layout leaves some region empty.
	ErrInvalidSuperblock = errors.New("invalid superblock")

	// ErrNoFreeSpace: the data area has no run of free blocks large enough.
	ErrNoFreeSpace = errors.New("no free space")

	// ErrObjectNotFound: no pending or committed version of the object.
	ErrObjectNotFound = errors.New("object not found")

	// ErrSerialization: a commit record does not fit in one block, or a log
	// slot does not decode.
	ErrSerialization = errors.New("serialization error")

	// ErrAlreadyFinalized: the transaction was already committed or rolled
	// back.
	ErrAlreadyFinalized = errors.New("transaction already finalized")

	// ErrTransactionNotFound: the transaction does not belong to this store.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrSuperblockStale: the commit is durable but the superblock could not
	// be updated.
	ErrSuperblockStale = errors.New("commit durable but superblock not updated")
)
