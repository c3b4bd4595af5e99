package atomsem

import (
	"sync/atomic"
	"time"
)

// Bits of CountingSemaphore.word.
const (
	// csLock is held by a releaser for the span of its wake dispatch.
	csLock uint32 = 1 << iota
	// csContended is set once a waiter parks on the word.
	csContended

	csShift = iota
	csUnit  = 1 << csShift
)

// CountingSemaphoreMax is the largest count a CountingSemaphore can hold.
const CountingSemaphoreMax = 1<<(32-csShift) - 1

// csSpinDelay is the backoff per polling round before a waiter parks. With
// the default threshold a waiter polls twice.
const csSpinDelay = defaultSpinThreshold / 2

// Notify selects how many parked waiters a CountingSemaphore.Release wakes.
type Notify uint8

const (
	// NotifyNone wakes nobody. Use it only when no goroutine can be parked,
	// for example while the count is still positive.
	NotifyNone Notify = iota
	// NotifyOne wakes a single parked waiter.
	NotifyOne
	// NotifyAll wakes every parked waiter.
	NotifyAll
)

func (n Notify) String() string {
	switch n {
	case NotifyNone:
		return "none"
	case NotifyOne:
		return "one"
	case NotifyAll:
		return "all"
	default:
		return "unknown"
	}
}

// CountingSemaphore is a bounded counting semaphore packed into one 32-bit
// word.
//
// Acquire takes one unit, blocking while the count is zero; Release returns
// units and decides how many parked waiters to wake. A release that pushes
// the count past CountingSemaphoreMax is undefined; callers must prevent it.
//
// It is zero-value usable (starts with a count of 0).
//
// Size: 4 byte state + configuration.
type CountingSemaphore struct {
	_ noCopy
	// word layout:
	//   bit 0:     lock
	//   bit 1:     contended
	//   bits 2-31: count
	word uint32
	cfg  Config
}

// NewCountingSemaphore creates a CountingSemaphore holding initial units.
// It panics if initial exceeds CountingSemaphoreMax.
func NewCountingSemaphore(initial uint32, opts ...func(*Config)) *CountingSemaphore {
	if initial > CountingSemaphoreMax {
		panic("atomsem: initial count exceeds CountingSemaphoreMax")
	}
	return &CountingSemaphore{
		word: initial << csShift,
		cfg:  newConfig(opts),
	}
}

// fetchSubIfSlow takes one unit starting from the observed word old. It
// fails once the count is seen at zero.
func (s *CountingSemaphore) fetchSubIfSlow(old uint32) bool {
	var spins int
	for old>>csShift >= 1 {
		if old&csLock != 0 {
			// Release is dispatching a wake.
			yield(&spins)
			old = atomic.LoadUint32(&s.word)
			continue
		}
		if atomic.CompareAndSwapUint32(&s.word, old, old-csUnit) {
			return true
		}
		old = atomic.LoadUint32(&s.word)
	}
	return false
}

// TryAcquire takes one unit if the count is positive, without blocking.
func (s *CountingSemaphore) TryAcquire() bool {
	return s.fetchSubIfSlow(atomic.LoadUint32(&s.word))
}

// Acquire blocks until the count is positive and takes one unit.
func (s *CountingSemaphore) Acquire() {
	for !s.TryAcquire() {
		s.acquireSlow(0)
	}
}

// TryAcquireFor is like Acquire but gives up after d.
// It reports whether a unit was taken.
func (s *CountingSemaphore) TryAcquireFor(d time.Duration) bool {
	if s.TryAcquire() {
		return true
	}
	if d <= 0 {
		return false
	}
	deadline := nanotime() + int64(d)
	for s.acquireSlow(deadline) {
		if s.TryAcquire() {
			return true
		}
	}
	return false
}

// acquireSlow waits until the count is observed positive with no wake in
// flight. It does not take a unit. A zero deadline waits without bound; it
// returns false only when the deadline passed.
func (s *CountingSemaphore) acquireSlow(deadline int64) bool {
	w, limit := s.cfg.parker(), s.cfg.threshold()
	var b Backoff
	old := atomic.LoadUint32(&s.word)
	for old>>csShift < 1 && !b.Exceeded(limit) {
		if _, expired := remainingUntil(deadline); expired {
			return false
		}
		b.Pause(csSpinDelay)
		old = atomic.LoadUint32(&s.word)
	}
	for old>>csShift < 1 {
		remaining, expired := remainingUntil(deadline)
		if expired {
			return false
		}
		old = atomic.OrUint32(&s.word, csContended) | csContended
		if old>>csShift >= 1 {
			break
		}
		w.Wait(&s.word, old, remaining)
		old = atomic.LoadUint32(&s.word)
	}
	// A release may still hold the lock while it dispatches its wake.
	var spins int
	for old&csLock != 0 {
		yield(&spins)
		old = atomic.LoadUint32(&s.word)
	}
	return true
}

// Release returns n units and wakes parked waiters as selected by notify.
// A zero n is a no-op.
//
// NotifyOne wakes a single waiter even when n > 1; use NotifyAll when
// several goroutines may be parked. NotifyAll clears the contention mark,
// and woken waiters that lose the race for a unit mark it again. NotifyOne
// and NotifyNone leave the mark set, so waiters still parked are reached by
// later releases.
func (s *CountingSemaphore) Release(n uint32, notify Notify) {
	if n == 0 {
		return
	}
	var spins int
	for {
		old := atomic.LoadUint32(&s.word)
		if old&csLock != 0 {
			yield(&spins)
			continue
		}
		wake := old&csContended != 0 && notify != NotifyNone
		next := old + n<<csShift
		if wake {
			next |= csLock
			if notify == NotifyAll {
				next &^= csContended
			}
		}
		if !atomic.CompareAndSwapUint32(&s.word, old, next) {
			continue
		}
		if wake {
			if notify == NotifyAll {
				s.cfg.parker().WakeAll(&s.word)
			} else {
				s.cfg.parker().WakeOne(&s.word)
			}
			atomic.AndUint32(&s.word, ^csLock)
		}
		return
	}
}

// Value returns the current count.
// The result may be stale by the time it is used.
func (s *CountingSemaphore) Value() uint32 {
	return atomic.LoadUint32(&s.word) >> csShift
}
