package disk

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestFaultDiskCrashDropsVolatile(t *testing.T) {
	assert := assert.New(t)
	under := NewMemDisk(8)
	f := NewFaultDisk(under)

	assert.NoError(f.Write(1, block1))
	assert.NoError(f.Barrier())
	assert.NoError(f.Write(2, block2))
	assert.Equal(1, f.Volatile())

	b, _ := f.Read(2)
	assert.Equal(block2, b, "volatile writes are visible before a crash")

	f.Crash()
	b, _ = f.Read(1)
	assert.Equal(block1, b, "barriered write survives")
	b, _ = f.Read(2)
	assert.Equal(block0, b, "unbarriered write is lost")
	assert.Equal(0, f.Volatile())
}

func TestFaultDiskWriteBudget(t *testing.T) {
	assert := assert.New(t)
	f := NewFaultDisk(NewMemDisk(8))
	f.FailWritesAfter(2)
	assert.NoError(f.Write(0, block1))
	assert.NoError(f.Write(1, block1))
	err := f.Write(2, block1)
	assert.True(errors.Is(err, ErrInjected))
	assert.Error(f.Write(3, block1), "device stays dead")
	assert.Equal(uint64(2), f.Writes())

	f.Heal()
	assert.NoError(f.Write(3, block1))
}

func TestFaultDiskBarrierFailureKeepsVolatile(t *testing.T) {
	assert := assert.New(t)
	under := NewMemDisk(8)
	f := NewFaultDisk(under)
	f.FailBarriersAfter(0)
	assert.NoError(f.Write(4, block2))
	assert.True(errors.Is(f.Barrier(), ErrInjected))
	b, _ := under.Read(4)
	assert.Equal(block0, b)

	f.Crash()
	b, _ = f.Read(4)
	assert.Equal(block0, b)
	assert.Equal(uint64(0), f.Barriers())
}

func TestFaultDiskFailReads(t *testing.T) {
	f := NewFaultDisk(NewMemDisk(8))
	f.FailReadsAt(5)
	_, err := f.Read(5)
	assert.True(t, errors.Is(err, ErrInjected))
	_, err = f.Read(4)
	assert.NoError(t, err)
}
