//go:build linux

// Package futex wraps the Linux futex(2) wait and wake operations on a
// process-private 32-bit word.
//
// The kernel may return from a wait for reasons unrelated to the word, so
// callers always re-check the word after Wait returns.
package futex

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	futexWait        = 0
	futexWake        = 1
	futexPrivateFlag = 128

	futexWaitPrivate = futexWait | futexPrivateFlag
	futexWakePrivate = futexWake | futexPrivateFlag

	// WakeAll is the waiter count that wakes every waiter on a word.
	WakeAll = 1<<31 - 1
)

// Wait blocks while *addr == val, until a Wake on addr or, when
// timeout >= 0, until timeout elapses.
//
// The errors are informational: EAGAIN means the word no longer held val,
// ETIMEDOUT that the timeout elapsed and EINTR that a signal interrupted the
// wait.
func Wait(addr *uint32, val uint32, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWaitPrivate),
		uintptr(val),
		uintptr(unsafe.Pointer(ts)),
		0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Wake wakes at most n waiters blocked on addr and returns how many woke.
func Wake(addr *uint32, n int) (int, error) {
	r, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWakePrivate),
		uintptr(n),
		0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}
