package atomsem

import (
	"runtime"
	"time"
	_ "unsafe" // for linkname
)

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
//
// Note that it must not be embedded, due to the Lock and Unlock methods.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

func trySpin(spins *int) bool {
	if runtime_canSpin(*spins) {
		*spins++
		runtime_doSpin()
		return true
	}
	return false
}

// yield is used while another goroutine holds a transient lock bit for the
// span of a single wake dispatch.
func yield(spins *int) {
	if !trySpin(spins) {
		runtime.Gosched()
	}
}

// nolint:all
//
//go:linkname runtime_canSpin sync.runtime_canSpin
//goland:noinspection ALL
func runtime_canSpin(i int) bool

// nolint:all
//
//go:linkname runtime_doSpin sync.runtime_doSpin
//goland:noinspection ALL
func runtime_doSpin()

// nanotime is the runtime's monotonic clock in nanoseconds.
//
// nolint:all
//
//go:linkname nanotime runtime.nanotime
//goland:noinspection ALL
func nanotime() int64

// remainingUntil converts an absolute nanotime deadline into the time left.
// A zero deadline means none: the result is -1 and never expired.
func remainingUntil(deadline int64) (time.Duration, bool) {
	if deadline == 0 {
		return -1, false
	}
	d := time.Duration(deadline - nanotime())
	return d, d <= 0
}
