package disk

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	goosedisk "github.com/tchajed/goose/machine/disk"
)

func mkBlock(b byte) Block {
	block := make(Block, BlockSize)
	for i := range block {
		block[i] = b
	}
	return block
}

var block0 = mkBlock(0)
var block1 = mkBlock(1)
var block2 = mkBlock(2)

// DiskSuite runs the same checks against every Disk implementation.
type DiskSuite struct {
	suite.Suite
	mk func(numBlocks uint64) Disk
	d  Disk
}

func (suite *DiskSuite) SetupTest() {
	suite.d = suite.mk(16)
}

func (suite *DiskSuite) TearDownTest() {
	suite.NoError(suite.d.Close())
}

func (suite *DiskSuite) TestSize() {
	sz, err := suite.d.Size()
	suite.NoError(err)
	suite.Equal(uint64(16), sz)
}

func (suite *DiskSuite) TestReadWrite() {
	d := suite.d
	suite.Require().NoError(d.Write(1, block1))
	suite.Require().NoError(d.Write(2, block2))
	suite.Require().NoError(d.Barrier())

	b, err := d.Read(1)
	suite.NoError(err)
	suite.Equal(block1, b)
	b, err = d.Read(2)
	suite.NoError(err)
	suite.Equal(block2, b)
	b, err = d.Read(3)
	suite.NoError(err)
	suite.Equal(block0, b)

	buf := make(Block, BlockSize)
	suite.NoError(d.ReadTo(2, buf))
	suite.Equal(block2, buf)
}

func (suite *DiskSuite) TestWriteCopies() {
	d := suite.d
	blk := mkBlock(7)
	suite.Require().NoError(d.Write(0, blk))
	blk[0] = 8
	b, err := d.Read(0)
	suite.NoError(err)
	suite.Equal(byte(7), b[0], "disk should not alias the caller's buffer")
}

func (suite *DiskSuite) TestOutOfBounds() {
	d := suite.d
	_, err := d.Read(16)
	suite.True(errors.Is(err, ErrOutOfBounds))
	err = d.Write(16, block1)
	suite.True(errors.Is(err, ErrOutOfBounds))

	var ioErr *IOError
	suite.Require().True(errors.As(err, &ioErr))
	suite.Equal("write", ioErr.Op)
	suite.Equal(uint64(16), ioErr.Addr)
}

func (suite *DiskSuite) TestBadBlockSize() {
	err := suite.d.Write(0, make(Block, 10))
	suite.True(errors.Is(err, ErrBlockSize))
}

func (suite *DiskSuite) TestWriteBlocks() {
	d := suite.d
	suite.Require().NoError(WriteBlocks(d, 4, []Block{block1, block2, block1}))
	suite.Require().NoError(d.Barrier())
	blks, err := ReadBlocks(d, 4, 3)
	suite.NoError(err)
	suite.Equal([]Block{block1, block2, block1}, blks)
}

func TestMemDisk(t *testing.T) {
	suite.Run(t, &DiskSuite{mk: NewMemDisk})
}

func TestFileDisk(t *testing.T) {
	dir := t.TempDir()
	var n int
	suite.Run(t, &DiskSuite{mk: func(numBlocks uint64) Disk {
		n++
		d, err := NewFileDisk(filepath.Join(dir, "disk"+string(rune('a'+n))), numBlocks)
		require.NoError(t, err)
		return d
	}})
}

func TestGooseDisk(t *testing.T) {
	suite.Run(t, &DiskSuite{mk: func(numBlocks uint64) Disk {
		return FromGoose(goosedisk.NewMemDisk(numBlocks))
	}})
}

func TestFaultDisk(t *testing.T) {
	suite.Run(t, &DiskSuite{mk: func(numBlocks uint64) Disk {
		return NewFaultDisk(NewMemDisk(numBlocks))
	}})
}

func TestDirectDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "direct")
	d, err := NewDirectDisk(path, 8)
	if err != nil {
		t.Skipf("direct I/O unavailable here: %v", err)
	}
	defer d.Close()
	assert := assert.New(t)
	assert.NoError(d.Write(3, block2))
	assert.NoError(d.Barrier())
	b, err := d.Read(3)
	assert.NoError(err)
	assert.Equal(block2, b)
}

func TestFileDiskPersists(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "persist")
	d, err := NewFileDisk(path, 4)
	require.NoError(t, err)
	assert.NoError(d.Write(3, block1))
	assert.NoError(d.Barrier())
	assert.NoError(d.Close())

	d, err = NewFileDisk(path, 4)
	require.NoError(t, err)
	defer d.Close()
	b, err := d.Read(3)
	assert.NoError(err)
	assert.Equal(block1, b)
}
