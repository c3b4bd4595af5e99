//go:build atomsem_spinonly

package opt

// WaitMode_ is forced to pure backoff via the atomsem_spinonly build tag.
const WaitMode_ = WaitSpin
