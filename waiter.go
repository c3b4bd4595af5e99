package atomsem

import (
	"sync/atomic"
	"time"

	"github.com/llxisdsh/atomsem/internal/opt"
)

// Waiter parks and wakes goroutines on the address of a 32-bit word. It is
// the strategy a semaphore uses once backoff has run its course.
//
// Wait blocks while *addr == expected until a wake on addr, or until
// timeout elapses when timeout >= 0 (a negative timeout waits without
// bound). Any return may be spurious: callers re-validate the word.
//
// WakeOne and WakeAll wake one or every goroutine parked on addr. Waking an
// address nobody waits on is harmless.
type Waiter interface {
	Wait(addr *uint32, expected uint32, timeout time.Duration)
	WakeOne(addr *uint32)
	WakeAll(addr *uint32)
}

// KernelAssistedWaiter parks on the operating system's wait-on-address
// facility (futex on Linux). Platforms without one fall back to the
// process-wide AddressWaitTable.
//
// Kernel wait errors are treated as spurious wakeups.
//
// A goroutine blocked in the kernel keeps its OS thread, and the runtime
// starts another thread to run the rest of the program. Parking more
// goroutines than debug.SetMaxThreads allows (10000 by default) kills the
// process. Use it only when few goroutines block at a time.
type KernelAssistedWaiter struct{}

// TableWaiter parks on an AddressWaitTable. A nil Table selects the
// process-wide table. Parked goroutines hold no OS thread.
type TableWaiter struct {
	Table *AddressWaitTable
}

// SpinOnlyWaiter never parks. Wait sleeps one bounded backoff slice while
// the word is unchanged and the wakes are no-ops, so semaphores using it
// degrade to pure polling with backoff.
type SpinOnlyWaiter struct{}

var (
	_ Waiter = KernelAssistedWaiter{}
	_ Waiter = TableWaiter{}
	_ Waiter = SpinOnlyWaiter{}
)

var defaultWaiter = newDefaultWaiter(opt.WaitMode_)

// DefaultWaiter returns the Waiter used by semaphores created without
// WithWaiter. It is selected at build time: the atomsem_futex tag selects
// KernelAssistedWaiter, atomsem_spinonly selects SpinOnlyWaiter, and
// TableWaiter is used otherwise.
func DefaultWaiter() Waiter {
	return defaultWaiter
}

func newDefaultWaiter(mode opt.WaitMode) Waiter {
	switch mode {
	case opt.WaitKernel:
		return KernelAssistedWaiter{}
	case opt.WaitSpin:
		return SpinOnlyWaiter{}
	default:
		return TableWaiter{}
	}
}

func (w TableWaiter) table() *AddressWaitTable {
	if w.Table != nil {
		return w.Table
	}
	return &waitTable
}

func (w TableWaiter) Wait(addr *uint32, expected uint32, timeout time.Duration) {
	w.table().Wait(addr, expected, timeout)
}

func (w TableWaiter) WakeOne(addr *uint32) {
	w.table().NotifyOne(addr)
}

func (w TableWaiter) WakeAll(addr *uint32) {
	w.table().NotifyAll(addr)
}

// spinOnlySleep is the longest single sleep of a SpinOnlyWaiter.
const spinOnlySleep = backoffMaxSleep

func (SpinOnlyWaiter) Wait(addr *uint32, expected uint32, timeout time.Duration) {
	if atomic.LoadUint32(addr) != expected {
		return
	}
	d := spinOnlySleep
	if timeout >= 0 {
		d = min(d, timeout)
	}
	if d > 0 {
		time.Sleep(d)
	}
}

func (SpinOnlyWaiter) WakeOne(*uint32) {}

func (SpinOnlyWaiter) WakeAll(*uint32) {}
