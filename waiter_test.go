package atomsem

import (
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/llxisdsh/atomsem/internal/opt"
)

func TestDefaultWaiter(t *testing.T) {
	w := DefaultWaiter()
	switch opt.WaitMode_ {
	case opt.WaitKernel:
		if _, ok := w.(KernelAssistedWaiter); !ok {
			t.Errorf("DefaultWaiter() = %T, want KernelAssistedWaiter", w)
		}
	case opt.WaitSpin:
		if _, ok := w.(SpinOnlyWaiter); !ok {
			t.Errorf("DefaultWaiter() = %T, want SpinOnlyWaiter", w)
		}
	default:
		if _, ok := w.(TableWaiter); !ok {
			t.Errorf("DefaultWaiter() = %T, want TableWaiter", w)
		}
	}

	for _, m := range []opt.WaitMode{opt.WaitKernel, opt.WaitTable, opt.WaitSpin} {
		if newDefaultWaiter(m) == nil {
			t.Errorf("newDefaultWaiter(%v) = nil", m)
		}
	}
}

func TestTableWaiter_ExplicitTable(t *testing.T) {
	var table AddressWaitTable
	w := TableWaiter{Table: &table}
	var word uint32
	done := make(chan struct{})
	go func() {
		for atomic.LoadUint32(&word) == 0 {
			w.Wait(&word, 0, -1)
		}
		close(done)
	}()
	eventually(t, time.Second, func() bool {
		return table.bucket(&word).n.Load() == 1
	}, "waiter did not park on the explicit table")
	if waitTable.bucket(&word).n.Load() != 0 {
		t.Error("waiter parked on the process-wide table")
	}
	atomic.StoreUint32(&word, 1)
	w.WakeAll(&word)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestWaiters_ValueMismatch(t *testing.T) {
	for _, tw := range testWaiters {
		t.Run(tw.name, func(t *testing.T) {
			var word uint32 = 1
			start := time.Now()
			tw.w.Wait(&word, 0, -1)
			if d := time.Since(start); d > 100*time.Millisecond {
				t.Errorf("Wait on a changed word blocked for %v", d)
			}
		})
	}
}

func TestWaiters_TimedWait(t *testing.T) {
	for _, tw := range testWaiters {
		t.Run(tw.name, func(t *testing.T) {
			var word uint32
			start := time.Now()
			tw.w.Wait(&word, 0, 10*time.Millisecond)
			if d := time.Since(start); d > time.Second {
				t.Errorf("timed Wait blocked for %v", d)
			}
		})
	}
}

func TestWaiters_WakeOne(t *testing.T) {
	for _, tw := range testWaiters {
		t.Run(tw.name, func(t *testing.T) {
			var word uint32
			done := make(chan struct{})
			go func() {
				for atomic.LoadUint32(&word) == 0 {
					tw.w.Wait(&word, 0, -1)
				}
				close(done)
			}()
			time.Sleep(20 * time.Millisecond)
			atomic.StoreUint32(&word, 1)
			tw.w.WakeOne(&word)
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("waiter was not woken")
			}
		})
	}
}

func TestWaiters_WakeAll(t *testing.T) {
	for _, tw := range testWaiters {
		t.Run(tw.name, func(t *testing.T) {
			var word uint32
			const n = 8
			var left atomic.Int32
			left.Store(n)
			for range n {
				go func() {
					for atomic.LoadUint32(&word) == 0 {
						tw.w.Wait(&word, 0, -1)
					}
					left.Add(-1)
				}()
			}
			time.Sleep(20 * time.Millisecond)
			atomic.StoreUint32(&word, 1)
			tw.w.WakeAll(&word)
			eventually(t, 2*time.Second, func() bool {
				return left.Load() == 0
			}, "not all waiters woke up")
		})
	}
}

// Goroutines parked with the default waiter must not pin OS threads.
func TestDefaultWaiter_ParksWithoutThreads(t *testing.T) {
	if opt.WaitMode_ == opt.WaitKernel {
		t.Skip("futex waiters hold a thread each")
	}
	const n = 500
	threads := pprof.Lookup("threadcreate")
	before := threads.Count()

	s := NewBinarySemaphore(false)
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			s.Acquire()
			s.Release()
		}()
	}
	eventually(t, 10*time.Second, func() bool {
		return s.Waiting() == n
	}, "acquirers did not queue")
	// Let every waiter exhaust its backoff and park.
	time.Sleep(50 * time.Millisecond)
	if grown := threads.Count() - before; grown > 64 {
		t.Errorf("%d parked goroutines created %d threads", n, grown)
	}
	s.Release()
	wg.Wait()
}
