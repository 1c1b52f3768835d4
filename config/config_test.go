package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandagen/blockstore/disk"
)

func TestParseDefaults(t *testing.T) {
	c := Default()
	require.NoError(t, c.Parse([]byte("device: /tmp/pg.img\n")))
	assert.Equal(t, "/tmp/pg.img", c.Device)
	assert.Equal(t, DefaultBlocks, c.Blocks)
	assert.Equal(t, DefaultLogLevel, c.LogLevel)
	assert.Equal(t, BackendFile, c.Backend)
}

func TestParseAll(t *testing.T) {
	c := Default()
	err := c.Parse([]byte(`
device: dev.img
blocks: 4096
backend: Direct
log_level: 0
`))
	require.NoError(t, err)
	assert.Equal(t, "dev.img", c.Device)
	assert.Equal(t, uint64(4096), c.Blocks)
	assert.Equal(t, BackendDirect, c.Backend)
	assert.Equal(t, uint64(0), c.LogLevel, "an explicit zero is kept")
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"blocks: 1\n",
		"blocks: -3\n",
		"device: [a, b]\n",
		"no_such_key: 1\n",
		"backend: tape\n",
	} {
		assert.Error(t, Default().Parse([]byte(in)), in)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgstore.yml")
	require.NoError(t, os.WriteFile(path, []byte("device: x.img\nblocks: 512\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x.img", c.Device)
	assert.Equal(t, uint64(512), c.Blocks)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestOpenDisk(t *testing.T) {
	c := Default()
	_, err := c.OpenDisk(true)
	assert.Error(t, err, "no device")

	c.Device = filepath.Join(t.TempDir(), "dev.img")
	_, err = c.OpenDisk(false)
	assert.Error(t, err, "missing file is not created")

	d, err := c.OpenDisk(true)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	c.Blocks = 1024
	d, err = c.OpenDisk(false)
	require.NoError(t, err)
	defer d.Close()
	n, err := d.Size()
	require.NoError(t, err)
	assert.Equal(t, DefaultBlocks, n, "existing size wins")

	st, err := os.Stat(c.Device)
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultBlocks*disk.BlockSize), st.Size())
}

func TestOpenGooseDisk(t *testing.T) {
	c := Default()
	c.Device = filepath.Join(t.TempDir(), "goose.img")
	c.Backend = BackendGoose
	d, err := c.OpenDisk(true)
	require.NoError(t, err)

	blk := make(disk.Block, disk.BlockSize)
	blk[0] = 7
	require.NoError(t, d.Write(5, blk))
	require.NoError(t, d.Barrier())
	require.NoError(t, d.Close())

	d, err = c.OpenDisk(false)
	require.NoError(t, err)
	defer d.Close()
	n, err := d.Size()
	require.NoError(t, err)
	assert.Equal(t, DefaultBlocks, n)
	got, err := d.Read(5)
	require.NoError(t, err)
	assert.Equal(t, blk, got)
	_, err = d.Read(n)
	assert.True(t, errors.Is(err, disk.ErrOutOfBounds))
}

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]Backend{
		"":       BackendFile,
		"file":   BackendFile,
		"GOOSE":  BackendGoose,
		"direct": BackendDirect,
	} {
		b, err := ParseBackend(in)
		assert.NoError(t, err)
		assert.Equal(t, want, b, in)
	}
	_, err := ParseBackend("nbd")
	assert.Error(t, err)
}
