package mvcc

import (
	"context"
	"sync"
	"time"
)

// TransactionIndex is the process-wide registry mapping a version handle's
// creating transaction to its current commit status, and answers the three
// queries the Timely Resource core depends on: commitStatus, wwDependency,
// and hasConcurrentTransaction.
//
// Grounded on storage.MVCCManager: activeTxs + commitLog + updateOldestActive
// reshaped around a single packed Handle instead of separate XMin/XMax
// fields, and generalized so any container's Timely Resource shares one
// index per Engine, not one per table.
type TransactionIndex struct {
	alloc *Allocator

	mu        sync.RWMutex
	active    map[Timestamp]*TransactionStatus
	commitLog map[Timestamp]Timestamp // ts -> tc (Aborted included), retained forever
}

// NewTransactionIndex builds an index that issues start and commit
// timestamps from alloc.
func NewTransactionIndex(alloc *Allocator) *TransactionIndex {
	return &TransactionIndex{
		alloc:     alloc,
		active:    make(map[Timestamp]*TransactionStatus),
		commitLog: make(map[Timestamp]Timestamp),
	}
}

// Begin starts a new transaction and registers it as active.
func (idx *TransactionIndex) Begin() *TransactionStatus {
	ts := idx.alloc.Next()
	status := NewTransactionStatus(ts)

	idx.mu.Lock()
	idx.active[ts] = status
	idx.mu.Unlock()

	return status
}

// Commit assigns status a fresh commit timestamp, publishes it to waiters,
// and records it permanently in the commit log.
func (idx *TransactionIndex) Commit(status *TransactionStatus) Timestamp {
	tc := idx.alloc.Next()
	status.Commit(tc)

	idx.mu.Lock()
	idx.commitLog[status.TS()] = tc
	delete(idx.active, status.TS())
	idx.mu.Unlock()

	return tc
}

// Abort marks status rolled back, publishes it to waiters, and records the
// Aborted sentinel permanently in the commit log.
func (idx *TransactionIndex) Abort(status *TransactionStatus) {
	status.Abort()

	idx.mu.Lock()
	idx.commitLog[status.TS()] = Aborted
	delete(idx.active, status.TS())
	idx.mu.Unlock()
}

// commitStatus reports the visibility of the version created at vh from the
// point of view of a reader at (snapshotTs, snapshotStep).
func (idx *TransactionIndex) commitStatus(vh Handle, snapshotTs Timestamp, snapshotStep Step) Timestamp {
	creatorTs := vh.DecodeTimestamp()
	if creatorTs == Primordial {
		return Primordial
	}

	// Self-visibility: the observer is the creating transaction itself.
	if creatorTs == snapshotTs {
		if vh.DecodeStep() <= snapshotStep {
			return creatorTs
		}
		return Uncommitted
	}

	idx.mu.RLock()
	status, isActive := idx.active[creatorTs]
	tc, known := idx.commitLog[creatorTs]
	idx.mu.RUnlock()

	var out Timestamp
	switch {
	case isActive:
		out = status.Outcome()
	case known:
		out = tc
	default:
		// A handle for a transaction the index has never heard of cannot be
		// observed: treat it as if it had aborted.
		return Aborted
	}
	// A commit after the reader's snapshot is not visible to that reader.
	// An Uncommitted snapshot means "latest committed state" and sees every
	// commit.
	if snapshotTs != Uncommitted && out.Committed() && out > snapshotTs {
		return Uncommitted
	}
	return out
}

// wwDependency reports the outcome of the transaction that created vh, so
// a writer can decide whether appending on top of it would race a
// still-undecided concurrent write. ctx carries cooperative cancellation
// for the blocking case; maxWait of zero performs the non-blocking probe
// AddVersion uses on its first pass.
func (idx *TransactionIndex) wwDependency(ctx context.Context, vh Handle, waiter *TransactionStatus, maxWait time.Duration) (Timestamp, error) {
	creatorTs := vh.DecodeTimestamp()
	if creatorTs == Primordial {
		return Primordial, nil
	}

	// Self-dependency: the waiter is re-writing on top of its own earlier
	// write within the same transaction (e.g. insert then delete before
	// commit). It can always see and safely supersede its own prior step.
	if waiter != nil && creatorTs == waiter.TS() {
		return Primordial, nil
	}

	idx.mu.RLock()
	status, isActive := idx.active[creatorTs]
	tc, known := idx.commitLog[creatorTs]
	idx.mu.RUnlock()

	if isActive {
		return status.Await(ctx, maxWait)
	}
	if known {
		return tc, nil
	}
	return Aborted, nil
}

// hasConcurrentTransaction reports true iff some still-active transaction's
// lifetime overlaps [tcA, tcB). Active transactions are open-ended (their
// lifetime runs through "now"), so they only need to have started before
// tcB. Committed and aborted transactions are excluded: once finished, a
// transaction can never again observe a version, so it cannot be the
// reason an older version must be retained.
func (idx *TransactionIndex) hasConcurrentTransaction(tcA, tcB Timestamp) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for start, status := range idx.active {
		if status.Outcome() == Uncommitted && start < tcB {
			return true
		}
	}
	return false
}
