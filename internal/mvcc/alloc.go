package mvcc

import "sync/atomic"

// Allocator dispenses strictly monotonic logical timestamps: one per
// Engine, shared by every TransactionStatus and every auto-commit
// AddVersion call.
//
// Grounded on storage.MVCCManager's nextTimestamp atomic.Uint64 counter.
type Allocator struct {
	next atomic.Uint64
}

// NewAllocator returns an Allocator whose first issued timestamp is safely
// past the low sentinel space (Primordial, Uncommitted, and room to grow)
// so ordinary timestamps never collide with those sentinels.
func NewAllocator() *Allocator {
	a := &Allocator{}
	a.next.Store(uint64(sentinelSpace))
	return a
}

// Next returns the next strictly increasing timestamp.
func (a *Allocator) Next() Timestamp {
	return Timestamp(a.next.Add(1))
}

// Peek returns the most recently issued timestamp without allocating a new
// one.
func (a *Allocator) Peek() Timestamp {
	return Timestamp(a.next.Load())
}
