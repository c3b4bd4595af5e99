//go:build !linux

package atomsem

import (
	"time"
)

func (KernelAssistedWaiter) Wait(addr *uint32, expected uint32, timeout time.Duration) {
	waitTable.Wait(addr, expected, timeout)
}

func (KernelAssistedWaiter) WakeOne(addr *uint32) {
	waitTable.NotifyOne(addr)
}

func (KernelAssistedWaiter) WakeAll(addr *uint32) {
	waitTable.NotifyAll(addr)
}
