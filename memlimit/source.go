package memlimit

import (
	"math"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync/atomic"
)

// Source reports the memory ceiling of the process and how much of it is in
// use.  Implementations must be safe for concurrent use; every call returns a
// fresh snapshot.
type Source interface {
	// MemoryLimit returns the ceiling in the format accepted by [Parse], or
	// [Unlimited] when the process has none.
	MemoryLimit() string

	// UsedMemory returns the bytes currently in use.  Implementations that
	// track a peak should return the larger of the current and peak values.
	UsedMemory() uint64
}

// StaticSource is a [Source] with fixed values.
type StaticSource struct {
	Limit string
	Used  uint64
}

// MemoryLimit returns s.Limit.
func (s StaticSource) MemoryLimit() string { return s.Limit }

// UsedMemory returns s.Used.
func (s StaticSource) UsedMemory() uint64 { return s.Used }

// RuntimeSource reads the soft memory limit and memory statistics of the Go
// runtime.
//
// The limit is the value configured through GOMEMLIMIT or
// [debug.SetMemoryLimit]; a process without one reports [Unlimited].  Usage is
// the memory obtained from the OS (MemStats.Sys), compared against the highest
// value this source has observed so far.
//
// The zero value is ready to use.
type RuntimeSource struct {
	peak atomic.Uint64
}

// NewRuntimeSource returns a RuntimeSource with no recorded peak.
func NewRuntimeSource() *RuntimeSource {
	return &RuntimeSource{}
}

// MemoryLimit returns the runtime soft limit as a decimal byte count, or
// [Unlimited] when none is set.
func (s *RuntimeSource) MemoryLimit() string {
	// A negative argument queries the limit without changing it.
	limit := debug.SetMemoryLimit(-1)
	if limit == math.MaxInt64 || limit < 0 {
		return Unlimited
	}
	return strconv.FormatInt(limit, 10)
}

// UsedMemory returns max(current, peak) where current is MemStats.Sys.
func (s *RuntimeSource) UsedMemory() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	current := ms.Sys
	for {
		peak := s.peak.Load()
		if current <= peak {
			return peak
		}
		if s.peak.CompareAndSwap(peak, current) {
			return current
		}
	}
}

// Peak returns the highest usage observed by [RuntimeSource.UsedMemory].
func (s *RuntimeSource) Peak() uint64 { return s.peak.Load() }
