package mvcc

import (
	"errors"
	"sync"
	"weak"
)

// sweepable is the capability every registered TimelyResource exposes to
// the background sweeper, regardless of its container/payload type
// parameters — Go methods can't carry their own type parameters, so the
// registry is built around this non-generic interface plus a package-level
// generic register function instead of a generic method.
type sweepable interface {
	Prune() error
}

// Registry is a weak-referenced collection of live Timely Resources, so a
// periodic sweep can find every resource without keeping a container alive
// past its owner's lifetime.
//
// Grounded on pager/gc.go's "walk every live thing under a lock, build a
// worklist" shape, generalized from a page reachability scan to a flat
// resource list, and changed from strong to weak references so a
// registered resource never outlives its owning container.
type Registry struct {
	mu      sync.Mutex
	entries []weakEntry
}

type weakEntry struct {
	resolve func() (sweepable, bool)
}

func newRegistry() *Registry {
	return &Registry{}
}

// register adds r to reg as a weak reference. It is a package-level
// function, not a Registry method, because Go does not allow a method to
// introduce type parameters beyond those of its receiver.
func register[C any, V Version](reg *Registry, r *TimelyResource[C, V]) {
	wp := weak.Make(r)
	reg.mu.Lock()
	reg.entries = append(reg.entries, weakEntry{
		resolve: func() (sweepable, bool) {
			p := wp.Value()
			if p == nil {
				return nil, false
			}
			return p, true
		},
	})
	reg.mu.Unlock()
}

// Sweep resolves every live entry, drops the ones whose container has been
// garbage collected, and calls Prune on each survivor. Resolution happens
// under the registry mutex; the Prune calls themselves run outside it, so a
// slow or blocking payload callback in one resource's prune pass never
// stalls registration of new resources.
func (reg *Registry) Sweep() error {
	reg.mu.Lock()
	var targets []sweepable
	n := 0
	for _, e := range reg.entries {
		if s, ok := e.resolve(); ok {
			reg.entries[n] = e
			n++
			targets = append(targets, s)
		}
	}
	reg.entries = reg.entries[:n]
	reg.mu.Unlock()

	var errs []error
	for _, s := range targets {
		if err := s.Prune(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Len reports how many live resources are currently tracked, resolving
// weak references as it goes (a resource whose container has already been
// collected is not counted). Intended for tests and diagnostics.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	n := 0
	for _, e := range reg.entries {
		if _, ok := e.resolve(); ok {
			n++
		}
	}
	return n
}
