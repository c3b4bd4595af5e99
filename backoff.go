package atomsem

import (
	"runtime"
	"time"
)

const (
	// defaultSpinThreshold is the accumulated backoff after which a waiter
	// stops polling and parks on its Waiter.
	defaultSpinThreshold = 64 * 1024 * time.Nanosecond

	// backoffMaxYields bounds the yield stage. Past it, requests of at least
	// backoffMinSleep become real sleeps.
	backoffMaxYields = 16

	// time.Sleep below the timer granularity overshoots by an order of
	// magnitude, so shorter requests keep yielding instead.
	backoffMinSleep = 50 * time.Microsecond

	// The 500µs ceiling is derived from Facebook/folly's implementation:
	// https://github.com/facebook/folly/blob/main/folly/synchronization/detail/Sleeper.h
	backoffMaxSleep = 500 * time.Microsecond
)

// Backoff is an escalating delay helper: it spins while the runtime allows
// active spinning, then yields the processor, then sleeps.
//
// It records the total delay requested so far, which lets a caller decide
// when polling has gone on long enough to commit to a blocking wait. The
// record is the requested delay, not wall time: a request shorter than 50µs
// only spins or yields, however long it asks for, and a long one sleeps at
// most 500µs.
//
// The zero value is ready to use. A Backoff must not be shared between
// goroutines.
type Backoff struct {
	spins   int
	yields  int
	elapsed time.Duration
}

// Pause delays the caller for roughly d and adds d to Elapsed.
//
// The delay never exceeds 500µs regardless of d.
func (b *Backoff) Pause(d time.Duration) {
	if d > 0 {
		b.elapsed += d
	}
	if trySpin(&b.spins) {
		return
	}
	if b.yields < backoffMaxYields || d < backoffMinSleep {
		b.yields++
		runtime.Gosched()
		return
	}
	time.Sleep(min(d, backoffMaxSleep))
}

// Elapsed returns the total delay requested through Pause since the last
// Reset.
func (b *Backoff) Elapsed() time.Duration {
	return b.elapsed
}

// Exceeded reports whether the accumulated delay reached limit.
func (b *Backoff) Exceeded(limit time.Duration) bool {
	return b.elapsed >= limit
}

// Reset returns b to its initial spinning stage.
func (b *Backoff) Reset() {
	*b = Backoff{}
}
