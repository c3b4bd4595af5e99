// Package atomsem provides a binary semaphore, a bounded counting semaphore
// and an address-keyed wait/notify table, built from compare-and-swap loops
// on a single 32-bit word per semaphore.
//
// Uncontended operations finish in one or two atomic operations. Under
// contention a waiter first backs off (spin, yield, sleep) and then parks
// on a Waiter:
//
//   - TableWaiter parks on a process-wide table of condition variables
//     indexed by a hash of the word's address. It is the default.
//   - KernelAssistedWaiter waits on the word's address in the kernel (futex
//     on Linux) and falls back to the AddressWaitTable elsewhere. A parked
//     waiter occupies an OS thread.
//   - SpinOnlyWaiter never parks; waiters poll with bounded sleeps.
//
// The default is chosen at build time with the atomsem_futex and
// atomsem_spinonly build tags, and can be overridden per semaphore with
// WithWaiter.
//
// No operation returns an error. Timed acquires report success as a bool
// and leave the semaphore untouched on timeout. There is no fairness
// guarantee between waiters.
package atomsem
