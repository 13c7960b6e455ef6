package driver

import (
	"fmt"
	"sync/atomic"
	"time"
)

// QueryStats counts driver operations as they complete. Reads are Get
// and Eval selections; writes are Set, Create, Upsert, and Remove
// mutations. Counters are atomics so concurrent selections never block
// each other on bookkeeping.
type QueryStats struct {
	reads    atomic.Int64
	writes   atomic.Int64
	duration atomic.Int64 // nanoseconds across all operations
	slow     atomic.Int64
	errors   atomic.Int64
}

// Record updates the counters for one completed operation. A zero
// slowThreshold disables slow-operation counting.
func (s *QueryStats) Record(isRead bool, duration time.Duration, slowThreshold time.Duration, err error) {
	if isRead {
		s.reads.Add(1)
	} else {
		s.writes.Add(1)
	}
	s.duration.Add(int64(duration))
	if err != nil {
		s.errors.Add(1)
	}
	if slowThreshold > 0 && duration > slowThreshold {
		s.slow.Add(1)
	}
}

// Snapshot returns a point-in-time copy of the counters.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Reads:         s.reads.Load(),
		Writes:        s.writes.Load(),
		TotalDuration: time.Duration(s.duration.Load()),
		SlowOps:       s.slow.Load(),
		Errors:        s.errors.Load(),
	}
}

// StatsSnapshot is the result of Driver.Stats().
type StatsSnapshot struct {
	Reads         int64
	Writes        int64
	TotalDuration time.Duration
	SlowOps       int64
	Errors        int64
}

// AvgDuration returns the average duration across all operations.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.Reads + s.Writes
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("reads=%d writes=%d duration=%s avg=%s slow=%d errors=%d",
		s.Reads, s.Writes, s.TotalDuration, s.AvgDuration(), s.SlowOps, s.Errors)
}
