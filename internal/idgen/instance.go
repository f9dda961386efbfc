package idgen

import "sync/atomic"

var shared atomic.Pointer[Generator]

// Instance returns the process-wide Generator. The first call builds it from
// opts; later calls return that same Generator and ignore their options, so
// the configuration cannot be changed once set. Concurrent first calls race
// on a compare-and-swap and the losers' candidates are dropped.
//
// Prefer New and passing the Generator explicitly; Instance exists for code
// that has no way to receive one.
func Instance(opts ...Option) *Generator {
	if g := shared.Load(); g != nil {
		return g
	}
	shared.CompareAndSwap(nil, New(opts...))
	return shared.Load()
}
