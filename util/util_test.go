package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSilentByDefault(t *testing.T) {
	assert.False(t, zap.L().Core().Enabled(zapcore.ErrorLevel),
		"importing the package must not install a logger")
}

func TestMinMax(t *testing.T) {
	assert := assert.New(t)
	for _, c := range []struct{ a, b, min, max uint64 }{
		{2, 3, 2, 3},
		{3, 2, 2, 3},
		{2, 2, 2, 2},
		{0, 1<<64 - 1, 0, 1<<64 - 1},
	} {
		assert.Equal(c.min, Min(c.a, c.b))
		assert.Equal(c.max, Max(c.a, c.b))
	}
}

func TestRoundUp(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(0), RoundUp(0, 4096), "empty")
	assert.Equal(uint64(1), RoundUp(1, 4096))
	assert.Equal(uint64(1), RoundUp(4096, 4096), "exact")
	assert.Equal(uint64(2), RoundUp(4097, 4096))
	assert.Equal(uint64(28), RoundUp(219, 8), "bitmap bytes")
}

func TestSumOverflows(t *testing.T) {
	assert := assert.New(t)
	assert.False(SumOverflows(40, 219))
	assert.False(SumOverflows(1<<64-2, 1))
	assert.True(SumOverflows(1<<64-1, 1))
	assert.True(SumOverflows(1<<63, 1<<63))
}

func TestCloneByteSlice(t *testing.T) {
	b := []byte{1, 2, 3}
	c := CloneByteSlice(b)
	c[0] = 9
	assert.Equal(t, byte(1), b[0])
	assert.Equal(t, []byte{}, CloneByteSlice(nil))
}

func TestDPrintfLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := zap.L()
	SetLogger(zap.New(core))
	defer SetLogger(prev)
	defer SetDebug(Debug)

	SetDebug(3)
	DPrintf(1, "summary %d", 1)
	DPrintf(3, "commit %d", 2)
	DPrintf(5, "block %d", 3)
	WPrintf("discarding %d", 4)

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "summary 1", entries[0].Message)
		assert.Equal(t, "commit 2", entries[1].Message)
		assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
		assert.Equal(t, "discarding 4", entries[2].Message)
	}
}
