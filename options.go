package atomsem

import (
	"time"
)

// ============================================================================
// Configuration
// ============================================================================

// Config defines the configurable behaviour of BinarySemaphore and
// CountingSemaphore. Zero fields select the defaults.
type Config struct {
	// waiter parks blocked goroutines once backoff is exhausted.
	// If nil, DefaultWaiter() is used.
	waiter Waiter

	// spinThreshold is the accumulated backoff a waiter spends polling
	// before it parks on waiter. If zero, 64µs is used.
	spinThreshold time.Duration
}

// WithWaiter selects the parking strategy of a semaphore, overriding the
// build-time default. Pass SpinOnlyWaiter{} for pure spin/backoff,
// TableWaiter{} for the address wait table or KernelAssistedWaiter{} for
// the kernel facility.
func WithWaiter(w Waiter) func(*Config) {
	return func(c *Config) {
		c.waiter = w
	}
}

// WithSpinThreshold sets how much backoff a waiter accumulates before it
// parks. Longer thresholds trade CPU for wake latency under short critical
// sections. It panics if d is negative.
//
// The threshold is a budget of requested backoff (see Backoff), not wall
// time. The semaphores request slices below 50µs, which spin or yield
// instead of sleeping, so the real polling time depends on the scheduler.
func WithSpinThreshold(d time.Duration) func(*Config) {
	if d < 0 {
		panic("atomsem: negative spin threshold")
	}
	return func(c *Config) {
		c.spinThreshold = d
	}
}

func newConfig(opts []func(*Config)) Config {
	var c Config
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}
	return c
}

// parker returns the configured waiter or the default.
func (c *Config) parker() Waiter {
	if c.waiter != nil {
		return c.waiter
	}
	return defaultWaiter
}

func (c *Config) threshold() time.Duration {
	if c.spinThreshold != 0 {
		return c.spinThreshold
	}
	return defaultSpinThreshold
}
