package mvcc

import "errors"

// Prune runs a two-phase reclaim over the version chain.
//
// Phase A runs under the resource mutex: it decides, newest to oldest,
// which entries survive and which are doomed, relinks the chain around the
// doomed ones, and (when safe) collapses the whole chain to a single
// PRIMORDIAL entry. Phase B runs after the mutex is released: it invokes
// each doomed, non-tombstone entry's PrunableVersion.Prune callback.
//
// Grounded on pager/gc.go's mark-then-reclaim shape (walk under a lock,
// build a worklist, act on it), generalized from a B-tree reachability scan
// to an MVCC visibility scan.
func (r *TimelyResource[C, V]) Prune() error {
	toPrune, err := r.pruneMark()
	if err != nil {
		return err
	}
	return runPruneCallbacks(toPrune)
}

func (r *TimelyResource[C, V]) pruneMark() ([]*entry[V], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head := r.first.Load()
	if head == nil {
		return nil, nil
	}

	var (
		kept    []*entry[V] // newest to oldest, entries that survive
		toPrune []*entry[V] // non-tombstone entries whose payload must be pruned

		uncommittedTs Timestamp
		haveUncommit  bool

		latest *entry[V]

		lastTc      Timestamp
		haveLastVh  bool
		lastVh      Handle

		isPrimordial = true
	)

	for e := head; e != nil; e = e.prev() {
		vh := e.handle()
		tc := r.index.commitStatus(vh, Uncommitted, 0)

		switch {
		case tc.IsAborted():
			// Creator rolled back: drop unconditionally, no prune callback
			// owed (the payload was never published to any observer).
			continue

		case tc == Uncommitted:
			ts := vh.DecodeTimestamp()
			if haveUncommit && uncommittedTs != ts {
				return nil, fault(CorruptedState, "prune: more than one uncommitted version in chain")
			}
			uncommittedTs = ts
			haveUncommit = true
			isPrimordial = false
			kept = append(kept, e)

		case tc > Primordial:
			if haveLastVh && vh > lastVh {
				return nil, fault(CorruptedState, "prune: version chain is not monotonically ordered")
			}

			hctTrue := false
			keep := true
			if latest != nil {
				hctTrue = r.index.hasConcurrentTransaction(tc, lastTc)
				keep = hctTrue
			}
			if keep {
				if latest == nil {
					latest = e
				}
				kept = append(kept, e)
			} else if !e.isDeleted() {
				toPrune = append(toPrune, e)
			}
			if hctTrue {
				isPrimordial = false
			}

			lastVh, lastTc, haveLastVh = vh, tc, true

		case e.isDeleted():
			// A tombstone at the primordial level still masks the
			// resource; keep it, but its presence alone neither
			// confirms nor denies a full primordial collapse.
			kept = append(kept, e)
			lastVh, lastTc, haveLastVh = vh, tc, true

		case latest == nil:
			// A bare primordial entry with nothing newer already kept:
			// it is the resource's entire visible content, keep it and
			// let it anchor the collapse.
			latest = e
			kept = append(kept, e)
			lastVh, lastTc, haveLastVh = vh, tc, true

		default:
			// A primordial entry superseded by a genuinely newer kept
			// committed version: no longer reachable, and its presence
			// means the chain is not purely primordial content.
			if !e.isDeleted() {
				toPrune = append(toPrune, e)
			}
			isPrimordial = false
			lastVh, lastTc, haveLastVh = vh, tc, true
		}
	}

	// Relink the surviving entries (kept is newest-to-oldest already).
	for i, e := range kept {
		if i+1 < len(kept) {
			e.setPrev(kept[i+1])
		} else {
			e.setPrev(nil)
		}
	}

	var newFirst *entry[V]
	if len(kept) > 0 {
		newFirst = kept[0]
	}
	r.first.Store(newFirst)

	if newFirst != nil && newFirst.isDeleted() && newFirst.prev() == nil {
		newFirst = nil
		r.first.Store(nil)
	}

	if isPrimordial && newFirst != nil {
		if newFirst.prev() != nil {
			return nil, fault(CorruptedState, "prune: primordial collapse candidate has a predecessor")
		}
		newFirst.setHandle(PrimordialHandle)
	}

	return toPrune, nil
}

// runPruneCallbacks invokes PrunableVersion.Prune on every doomed entry
// outside the resource mutex, running all of them even if some fail, and
// joining any failures into a single error surfaced once the sweep
// completes rather than aborting on the first failure.
func runPruneCallbacks[V Version](toPrune []*entry[V]) error {
	var errs []error
	for _, e := range toPrune {
		pv, ok := any(e.payload).(PrunableVersion)
		if !ok {
			continue
		}
		if _, err := pv.Prune(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return faultf(PruneCallbackFailed, errors.Join(errs...), "prune: %d payload callback(s) failed", len(errs))
}
