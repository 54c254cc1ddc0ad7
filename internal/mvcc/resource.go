package mvcc

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// TimelyResource owns the head of a version chain attached to one
// container C, storing versions of type V: addVersion, getVersion, delete,
// prune, isEmpty, and getVersionCount all live here.
//
// Grounded on storage.MVCCTable (InsertVersion/UpdateVersion/DeleteVersion/
// GetVisibleVersion/GarbageCollect), restructured around an intrusive
// singly-linked chain and packed Handle instead of a
// map[int64]*RowVersion-per-row-id model — a Timely Resource guards exactly
// one chain, not a whole table.
type TimelyResource[C any, V Version] struct {
	container C

	mu    sync.Mutex
	first atomic.Pointer[entry[V]]

	index   *TransactionIndex
	alloc   *Allocator
	maxWait time.Duration
}

// NewTimelyResource attaches a new, empty Timely Resource to container and
// registers it with engine for periodic sweeping.
func NewTimelyResource[C any, V Version](engine *Engine, container C) *TimelyResource[C, V] {
	r := &TimelyResource[C, V]{
		container: container,
		index:     engine.index,
		alloc:     engine.alloc,
		maxWait:   engine.config.DefaultMaxWait,
	}
	register(engine.registry, r)
	return r
}

// Container returns the container this resource is attached to.
func (r *TimelyResource[C, V]) Container() C { return r.container }

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// AddVersion publishes a new version of the resource on behalf of txn (nil
// meaning an auto-commit writer with no transaction of its own). It retries
// internally across a TIMED_OUT non-blocking probe, starting the attempt
// over from the top on each retry — that retry is an implementation detail
// of this call, not something the caller has to drive.
func (r *TimelyResource[C, V]) AddVersion(ctx context.Context, payload V, txn *TransactionStatus) error {
	if isNilValue(payload) {
		return fault(InvalidArgument, "addVersion: payload must not be nil")
	}
	for {
		retry, err := r.tryAddVersion(ctx, payload, false, txn)
		if err != nil {
			return err
		}
		if !retry {
			return nil
		}
	}
}

func (r *TimelyResource[C, V]) tryAddVersion(ctx context.Context, payload V, deleted bool, txn *TransactionStatus) (retry bool, err error) {
	r.mu.Lock()

	active := txn != nil && txn.Active()
	var vhNew Handle
	if active {
		vhNew = EncodeHandle(txn.TS(), txn.NextStep())
	} else {
		vhNew = EncodeHandle(r.alloc.Next(), 0)
	}

	head := r.first.Load()
	if head != nil && vhNew <= head.handle() {
		r.mu.Unlock()
		return false, fault(Rollback, "lost race to append: new handle does not exceed chain head")
	}

	// Only the chain head can possibly still be active: any entry below it
	// already passed this same check (under this same mutex) before it was
	// superseded, so it was necessarily resolved by the time it lost the
	// head position. A resolved-committed ancestor is just history, not a
	// conflict — wwDependency only needs to look at head.
	if active && head != nil {
		tc, werr := r.index.wwDependency(ctx, head.handle(), txn, 0)
		if werr != nil {
			r.mu.Unlock()
			return false, werr
		}

		switch {
		case tc == Primordial, tc.IsAborted():
			// No dependency, or the creator rolled back: not a conflict.
		case tc.IsTimedOut():
			// Can't decide without blocking. Release the mutex and wait.
			r.mu.Unlock()
			outcome, werr2 := r.index.wwDependency(ctx, head.handle(), txn, r.maxWait)
			if werr2 != nil {
				return false, werr2
			}
			if outcome == Primordial || outcome.IsAborted() {
				return true, nil
			}
			return false, fault(Rollback, "write-write conflict: concurrent transaction committed or active")
		default:
			// head's creator already committed. A commit before txn started
			// is ordinary history, not a conflict; a commit after txn
			// started is a concurrent write txn's snapshot never saw.
			if tc > txn.TS() {
				r.mu.Unlock()
				return false, fault(Rollback, "write-write conflict: concurrent transaction committed after this one started")
			}
		}
	}

	ne := newEntry(vhNew, payload, deleted, head)
	r.first.Store(ne)
	r.mu.Unlock()
	return false, nil
}

// Delete logically removes the resource's current version by prepending a
// tombstone entry carrying the same payload as the current head, using the
// same conflict-checked path as AddVersion. A Delete on an already-empty
// chain is a no-op.
func (r *TimelyResource[C, V]) Delete(ctx context.Context, txn *TransactionStatus) error {
	head := r.first.Load()
	if head == nil {
		return nil
	}
	for {
		retry, err := r.tryAddVersion(ctx, head.payload, true, txn)
		if err != nil {
			return err
		}
		if !retry {
			return nil
		}
		head = r.first.Load()
		if head == nil {
			return nil
		}
	}
}

// GetVersion returns the version visible to txn's snapshot (nil meaning
// "see the latest committed state globally"). It runs without the resource
// mutex: first is read with acquire semantics and the chain below it is
// immutable except for the sticky deleted flag and prune's skip-forward
// relinking, both of which preserve the suffix a concurrent reader is
// walking.
//
// If the first visible entry is a deletion tombstone, GetVersion reports no
// version: the tombstone exists precisely to tell a snapshot observer that
// the resource has no content as of that point. A tombstone with no older
// observer later prunes straight to an empty chain, which a reader
// positioned just before that prune would already have seen as "no
// version".
func (r *TimelyResource[C, V]) GetVersion(txn *TransactionStatus) (V, bool) {
	var ts Timestamp
	var step Step
	if txn != nil && txn.Active() {
		ts, step = txn.TS(), txn.Step()
	} else {
		ts, step = Uncommitted, 0
	}

	for e := r.first.Load(); e != nil; e = e.prev() {
		tc := r.index.commitStatus(e.handle(), ts, step)
		if !tc.Committed() {
			continue
		}
		if e.isDeleted() {
			var zero V
			return zero, false
		}
		return e.payload, true
	}

	var zero V
	return zero, false
}

// GetVersionOrCreate returns GetVersion(txn) if a version is already
// visible, otherwise invokes creator.Create and publishes the result via
// AddVersion before returning it.
func (r *TimelyResource[C, V]) GetVersionOrCreate(ctx context.Context, txn *TransactionStatus, creator VersionCreator[C, V]) (V, error) {
	if v, ok := r.GetVersion(txn); ok {
		return v, nil
	}
	v, err := creator.Create(r)
	if err != nil {
		var zero V
		return zero, err
	}
	if err := r.AddVersion(ctx, v, txn); err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}

// IsEmpty reports whether the resource currently holds no observable
// content: either the chain is physically empty, or (per invariant 5) its
// sole entry is an un-pruned deletion tombstone with no predecessor.
func (r *TimelyResource[C, V]) IsEmpty() bool {
	head := r.first.Load()
	if head == nil {
		return true
	}
	return head.isDeleted() && head.prev() == nil
}

// VersionCount walks the chain and returns its length, regardless of
// commit or deletion status of each entry.
func (r *TimelyResource[C, V]) VersionCount() int {
	n := 0
	for e := r.first.Load(); e != nil; e = e.prev() {
		n++
	}
	return n
}

// SetPrimordial promotes the resource's sole entry to the PRIMORDIAL
// sentinel handle. It is only valid when the chain holds exactly one entry.
func (r *TimelyResource[C, V]) SetPrimordial() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	head := r.first.Load()
	if head == nil {
		return fault(InvalidArgument, "setPrimordial: chain is empty")
	}
	if head.prev() != nil {
		return fault(InvalidArgument, "setPrimordial: chain has more than one entry")
	}
	head.setHandle(PrimordialHandle)
	return nil
}
