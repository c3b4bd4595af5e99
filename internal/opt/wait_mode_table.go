//go:build !atomsem_spinonly && !atomsem_futex

package opt

// WaitMode_ is the default parking strategy.
// Use: go build -tags=atomsem_futex or -tags=atomsem_spinonly to change it.
const WaitMode_ = WaitTable
