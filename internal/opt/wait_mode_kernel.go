//go:build atomsem_futex && !atomsem_spinonly

package opt

// WaitMode_ is forced to the kernel wait-on-address facility via the
// atomsem_futex build tag.
const WaitMode_ = WaitKernel
