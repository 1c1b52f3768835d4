// Package wal implements the commit log: a ring of single-block, checksummed
// commit records.
//
// The layout of a log slot:
//
//	[ checksum | device | txn | sequence | count | entry 0 | ... | zero pad ]
//	  8          8        8     8          8       32 each
//
// The record for sequence s lives in slot s mod LogBlocks, so the ring holds
// the most recent LogBlocks records. A record is the atomicity point of a
// commit: the data it references was made durable before it was written.
package wal

import (
	"github.com/pandagen/blockstore/disk"
)

const (
	HDRMETA    = uint64(5 * 8) // checksum, device, txn, sequence, count
	ENTRYSZ    = uint64(4 * 8) // object, version, first block, size
	MaxEntries = (disk.BlockSize - HDRMETA) / ENTRYSZ
)
