package opt

// WaitMode selects how a blocked semaphore waiter parks by default.
type WaitMode uint8

const (
	// WaitKernel parks on the kernel wait-on-address facility where the
	// platform has one, and on the address wait table otherwise.
	WaitKernel WaitMode = iota
	// WaitTable always parks on the process-wide address wait table.
	WaitTable
	// WaitSpin never parks. Waiters back off and poll.
	WaitSpin
)

func (m WaitMode) String() string {
	switch m {
	case WaitKernel:
		return "kernel"
	case WaitTable:
		return "table"
	case WaitSpin:
		return "spin"
	default:
		return "unknown"
	}
}
