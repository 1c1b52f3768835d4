package common

import (
	"github.com/cespare/xxhash/v2"

	"github.com/pandagen/blockstore/disk"
)

// ChecksumSize is the number of leading bytes of an encoded block that hold
// its own checksum.
const ChecksumSize = 8

var zeroSum [ChecksumSize]byte

// Checksum hashes a whole block as if its leading checksum field were zero,
// so the same function serves the write path and the verify path.
func Checksum(blk disk.Block) uint64 {
	d := xxhash.New()
	d.Write(zeroSum[:])
	d.Write(blk[ChecksumSize:])
	return d.Sum64()
}
