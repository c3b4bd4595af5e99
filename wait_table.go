package atomsem

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/gammazero/deque"

	"github.com/llxisdsh/atomsem/internal/opt"
)

const (
	// waitTableSize is the bucket count. It must be a power of two.
	waitTableSize = 1024
	// waitTableShift groups addresses within the same 64-byte block into one
	// bucket.
	waitTableShift = 6
)

// AddressWaitTable is a fixed-size table of condition variables indexed by
// a hash of a 32-bit word's address. It is the wait/notify substrate for
// platforms without a kernel wait-on-address primitive.
//
// Many addresses share a bucket. NotifyAll on one address therefore wakes
// the waiters of every address in the same bucket; each of them re-checks
// its own word and waits again, so aliasing costs a retry and never a lost
// or false acquisition. NotifyOne wakes the oldest waiter parked on the same
// address, so it cannot be absorbed by an alias.
//
// The zero value is ready to use. The package keeps one process-wide table
// that lives for the process lifetime.
type AddressWaitTable struct {
	buckets [waitTableSize]waitBucket
}

type waitBucketData struct {
	mu sync.Mutex
	// n counts parked waiters. It is raised before the waiter checks its
	// word and read without mu by notifiers.
	n       atomic.Int32
	waiters deque.Deque[*tableWaiter]
}

// waitBucket keeps neighbouring buckets on separate cache lines.
type waitBucket struct {
	waitBucketData
	_ [(opt.CacheLineSize_ - unsafe.Sizeof(waitBucketData{})%opt.CacheLineSize_) % opt.CacheLineSize_]byte
}

// tableWaiter is a parked goroutine. Untimed waits park on sema; timed
// waits need a select against their timer and park on ch.
type tableWaiter struct {
	addr  *uint32
	timed bool
	sema  opt.Sema
	ch    chan struct{}
}

var tableWaiterPool = sync.Pool{
	New: func() any {
		return &tableWaiter{ch: make(chan struct{}, 1)}
	},
}

// waitTable is the process-wide table used by TableWaiter and, on platforms
// without futexes, by KernelAssistedWaiter.
var waitTable AddressWaitTable

func waitTableIndex(addr *uint32) uintptr {
	return (uintptr(unsafe.Pointer(addr)) >> waitTableShift) & (waitTableSize - 1)
}

func (t *AddressWaitTable) bucket(addr *uint32) *waitBucket {
	return &t.buckets[waitTableIndex(addr)]
}

// Wait blocks while *addr == expected until a Notify on addr (or on an
// address sharing its bucket), or until timeout elapses when timeout >= 0.
//
// The word is re-checked under the bucket lock, so a Notify issued after the
// word changed cannot be missed. It returns false only on timeout; a true
// result may still be spurious and the caller must re-validate its word.
func (t *AddressWaitTable) Wait(addr *uint32, expected uint32, timeout time.Duration) bool {
	b := t.bucket(addr)
	b.mu.Lock()
	b.n.Add(1)
	if atomic.LoadUint32(addr) != expected {
		b.n.Add(-1)
		b.mu.Unlock()
		return true
	}
	if timeout == 0 {
		b.n.Add(-1)
		b.mu.Unlock()
		return false
	}
	w := tableWaiterPool.Get().(*tableWaiter)
	w.addr = addr
	w.timed = timeout > 0
	b.waiters.PushBack(w)
	b.mu.Unlock()

	if !w.timed {
		w.sema.Acquire()
		t.put(w)
		return true
	}

	timer := time.NewTimer(timeout)
	select {
	case <-w.ch:
		timer.Stop()
		t.put(w)
		return true
	case <-timer.C:
	}

	b.mu.Lock()
	if i := b.waiters.Index(func(x *tableWaiter) bool { return x == w }); i >= 0 {
		b.waiters.Remove(i)
		b.n.Add(-1)
		b.mu.Unlock()
		t.put(w)
		return false
	}
	b.mu.Unlock()
	// A notifier dequeued w before we reacquired the lock; its signal is
	// already on the way.
	<-w.ch
	t.put(w)
	return true
}

func (t *AddressWaitTable) put(w *tableWaiter) {
	w.addr = nil
	tableWaiterPool.Put(w)
}

// NotifyOne wakes the oldest waiter parked on addr, if any.
// It returns the number of waiters woken.
func (t *AddressWaitTable) NotifyOne(addr *uint32) int {
	return t.notify(addr, false)
}

// NotifyAll wakes every waiter parked in addr's bucket.
// It returns the number of waiters woken.
func (t *AddressWaitTable) NotifyAll(addr *uint32) int {
	return t.notify(addr, true)
}

func (t *AddressWaitTable) notify(addr *uint32, all bool) int {
	b := t.bucket(addr)
	if b.n.Load() == 0 {
		return 0
	}
	var woken int
	b.mu.Lock()
	if all {
		for b.waiters.Len() > 0 {
			b.wake(b.waiters.PopFront())
			woken++
		}
	} else if i := b.waiters.Index(func(w *tableWaiter) bool { return w.addr == addr }); i >= 0 {
		b.wake(b.waiters.Remove(i))
		woken = 1
	}
	b.mu.Unlock()
	return woken
}

// wake signals a waiter already removed from the queue. Requires b.mu.
func (b *waitBucket) wake(w *tableWaiter) {
	b.n.Add(-1)
	if w.timed {
		w.ch <- struct{}{}
	} else {
		w.sema.Release()
	}
}
