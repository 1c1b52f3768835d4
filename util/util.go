package util

import (
	"go.uber.org/zap"
)

// Debug is the verbosity threshold for DPrintf: messages with a level at or
// below it are logged.
var Debug uint64 = 1

// SetDebug changes the DPrintf threshold.
func SetDebug(level uint64) {
	Debug = level
}

// SetLogger routes all logging through l. Until it is called, messages go
// to zap's global logger, which discards them unless the program installed
// one.
func SetLogger(l *zap.Logger) {
	zap.ReplaceGlobals(l)
}

func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		zap.S().Infof(format, a...)
	}
}

// WPrintf logs a warning regardless of the debug level.
func WPrintf(format string, a ...interface{}) {
	zap.S().Warnf(format, a...)
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

func Max(n uint64, m uint64) uint64 {
	if n > m {
		return n
	}
	return m
}

// returns true if x + y overflows
func SumOverflows(x uint64, y uint64) bool {
	return x+y < x
}

func CloneByteSlice(s []byte) []byte {
	s2 := make([]byte, len(s))
	copy(s2, s)
	return s2
}
