//go:build race

package opt

import (
	"runtime"
	"unsafe"
)

// Race_ reports whether the binary was built with the race detector.
// Stress loops shrink their iteration counts when it is set.
const Race_ = true

// Sema is a zero-allocation semaphore that parks the calling goroutine, not
// its thread. In race mode, Release happens-before the Acquire it wakes, as
// the race detector sees it.
type Sema uint32

func (s *Sema) Acquire() {
	runtime_semacquire((*uint32)(s))
	runtime.RaceAcquire(unsafe.Pointer(s))
}

func (s *Sema) Release() {
	runtime.RaceReleaseMerge(unsafe.Pointer(s))
	runtime_semrelease((*uint32)(s), false, 0)
}

//go:linkname runtime_semacquire sync.runtime_Semacquire
func runtime_semacquire(s *uint32)

//go:linkname runtime_semrelease sync.runtime_Semrelease
func runtime_semrelease(s *uint32, handoff bool, skipframes int)
