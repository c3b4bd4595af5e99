//go:build linux

package atomsem

import (
	"time"

	"github.com/llxisdsh/atomsem/internal/futex"
)

func (KernelAssistedWaiter) Wait(addr *uint32, expected uint32, timeout time.Duration) {
	_ = futex.Wait(addr, expected, timeout)
}

func (KernelAssistedWaiter) WakeOne(addr *uint32) {
	_, _ = futex.Wake(addr, 1)
}

func (KernelAssistedWaiter) WakeAll(addr *uint32) {
	_, _ = futex.Wake(addr, futex.WakeAll)
}
