package atomsem

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Bits of BinarySemaphore.word.
const (
	// bsValue is set while the resource is available.
	bsValue uint32 = 1 << iota
	// bsLock is held by a releaser for the span of its wake dispatch.
	bsLock
	// bsSlow is set once a waiter parks on the word.
	bsSlow
	// bsCredit is one unit of the contention credit count kept in the
	// remaining bits. A queued waiter that found the value taken on its turn
	// adds one credit and withdraws it when it claims or gives up.
	bsCredit
)

// bsDelayUnit is the backoff per queued waiter ahead of the caller.
const bsDelayUnit = 128 * time.Nanosecond

// BinarySemaphore is a semaphore whose value is either 0 or 1.
//
// Uncontended Acquire and Release complete in a single CAS. Under contention
// waiters enter a ticketed slow path: they back off in proportion to their
// queue position, then park on the configured Waiter. Only the waiter whose
// ticket has come up may claim a released value, but a fast-path Acquire may
// steal it at any time; there is no FIFO guarantee.
//
// Like sync.Mutex it has no owner, so any goroutine may Release.
//
// It is zero-value usable and starts unavailable.
type BinarySemaphore struct {
	_ noCopy
	// word layout:
	//   bit 0:     value (1 = available)
	//   bit 1:     lock
	//   bit 2:     slow
	//   bits 3-31: contention credits
	word  uint32
	queue ticketQueue
	cfg   Config
}

// NewBinarySemaphore creates a BinarySemaphore that is available if
// available is true.
func NewBinarySemaphore(available bool, opts ...func(*Config)) *BinarySemaphore {
	s := &BinarySemaphore{cfg: newConfig(opts)}
	if available {
		s.word = bsValue
	}
	return s
}

// tryClaim returns the word after taking the value from old and withdrawing
// credit. It fails while the value is taken or a wake is being dispatched.
func tryClaim(old, credit uint32) (uint32, bool) {
	if old&(bsValue|bsLock) != bsValue {
		return old, false
	}
	return (old &^ bsValue) - credit, true
}

// tryRelease returns the word after making the value available. If a waiter
// parked on old, the slow bit is traded for the lock and wake is true: the
// caller must wake the parked waiters and then clear the lock.
func tryRelease(old uint32) (next uint32, wake bool) {
	if old&bsSlow != 0 {
		return (old | bsValue | bsLock) &^ bsSlow, true
	}
	return old | bsValue, false
}

// markSlow returns old with the slow bit set.
func markSlow(old uint32) uint32 {
	return old | bsSlow
}

// Acquire blocks until the value is available and takes it.
func (s *BinarySemaphore) Acquire() {
	if s.TryAcquire() {
		return
	}
	s.acquireSlow(0)
}

// TryAcquire takes the value if it is available, without blocking.
func (s *BinarySemaphore) TryAcquire() bool {
	return s.claim(0)
}

// TryAcquireFor is like Acquire but gives up after d.
// It reports whether the value was taken. A timed-out call leaves the value
// untouched.
func (s *BinarySemaphore) TryAcquireFor(d time.Duration) bool {
	if s.TryAcquire() {
		return true
	}
	if d <= 0 {
		return false
	}
	return s.acquireSlow(nanotime() + int64(d))
}

// claim takes the value and withdraws credit in one step. It retries while
// the value stays available and fails once it is observed taken.
func (s *BinarySemaphore) claim(credit uint32) bool {
	var spins int
	for {
		old := atomic.LoadUint32(&s.word)
		if old&bsValue == 0 {
			return false
		}
		next, ok := tryClaim(old, credit)
		if !ok {
			// Release is dispatching a wake.
			yield(&spins)
			continue
		}
		if atomic.CompareAndSwapUint32(&s.word, old, next) {
			return true
		}
	}
}

// acquireSlow waits for the caller's turn and claims the value. A zero
// deadline waits without bound.
func (s *BinarySemaphore) acquireSlow(deadline int64) bool {
	w, limit := s.cfg.parker(), s.cfg.threshold()
	tick := s.queue.take()
	var (
		b      Backoff
		credit uint32
	)
	for {
		tock := s.queue.turn()
		if tock == tick {
			if s.claim(credit) {
				s.queue.pass(tick)
				return true
			}
			if credit == 0 {
				credit = bsCredit
				atomic.AddUint32(&s.word, credit)
			}
		}

		remaining, expired := remainingUntil(deadline)
		if expired {
			if credit != 0 {
				atomic.AddUint32(&s.word, -credit)
			}
			s.queue.abandon(tick)
			return false
		}

		if !b.Exceeded(limit) {
			b.Pause(time.Duration(tick-tock+1) * bsDelayUnit)
			continue
		}
		old := s.markSlow()
		if old&bsValue != 0 {
			// Available, but the turn belongs to an earlier ticket.
			runtime.Gosched()
			continue
		}
		w.Wait(&s.word, old, remaining)
	}
}

// markSlow sets the slow bit and returns the resulting word.
func (s *BinarySemaphore) markSlow() uint32 {
	for {
		old := atomic.LoadUint32(&s.word)
		next := markSlow(old)
		if next == old || atomic.CompareAndSwapUint32(&s.word, old, next) {
			return next
		}
	}
}

// Release makes the value available and wakes parked waiters, if any.
//
// Releasing an available semaphore leaves it available; a single value is
// never handed out twice.
func (s *BinarySemaphore) Release() {
	var spins int
	for {
		old := atomic.LoadUint32(&s.word)
		if old&bsLock != 0 {
			yield(&spins)
			continue
		}
		next, wake := tryRelease(old)
		if !atomic.CompareAndSwapUint32(&s.word, old, next) {
			continue
		}
		if wake {
			// The CAS above is sequentially consistent, so every parked
			// waiter observes the new value once woken.
			s.cfg.parker().WakeAll(&s.word)
			atomic.AndUint32(&s.word, ^bsLock)
		}
		return
	}
}

// Available reports whether the value is currently available.
// The result may be stale by the time it is used.
func (s *BinarySemaphore) Available() bool {
	return atomic.LoadUint32(&s.word)&bsValue != 0
}

// Waiting estimates the number of goroutines queued in the slow path.
func (s *BinarySemaphore) Waiting() int {
	return max(int(s.queue.pending())-s.queue.abandonedCount(), 0)
}
