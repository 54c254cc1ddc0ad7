package mvcc

import (
	"context"
	"runtime"
	"testing"
	"time"
)

func TestRegistrySweepPrunesRegisteredResources(t *testing.T) {
	engine := newTestEngine(t)
	r := NewTimelyResource[containerStub, recordPayload](engine, containerStub{"t"})

	t0 := engine.Begin()
	var prunedStale bool
	if err := r.AddVersion(context.Background(), recordPayload{value: "stale", pruned: &prunedStale}, t0); err != nil {
		t.Fatalf("AddVersion(t0): %v", err)
	}
	engine.Commit(t0)

	t1 := engine.Begin()
	if err := r.AddVersion(context.Background(), recordPayload{value: "current"}, t1); err != nil {
		t.Fatalf("AddVersion(t1): %v", err)
	}
	engine.Commit(t1)

	if err := engine.SweepNow(); err != nil {
		t.Fatalf("SweepNow: %v", err)
	}
	if !prunedStale {
		t.Error("SweepNow should have pruned the superseded entry via the registered resource")
	}
	if r.VersionCount() != 1 {
		t.Errorf("VersionCount() after sweep = %d, want 1", r.VersionCount())
	}
}

func TestRegistryDropsCollectedResources(t *testing.T) {
	reg := newRegistry()

	func() {
		engine := &Engine{
			config:   EngineConfig{},
			alloc:    NewAllocator(),
			index:    NewTransactionIndex(NewAllocator()),
			registry: reg,
		}
		r := NewTimelyResource[containerStub, recordPayload](engine, containerStub{"ephemeral"})
		_ = r
	}()

	// The resource above is now unreachable. Force a collection and give
	// the weak reference a chance to clear before sweeping.
	runtime.GC()
	runtime.GC()
	time.Sleep(10 * time.Millisecond)

	if err := reg.Sweep(); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n := reg.Len(); n != 0 {
		t.Errorf("Len() after the owning resource was collected = %d, want 0", n)
	}
}

func TestEngineLiveResourcesCounts(t *testing.T) {
	engine := newTestEngine(t)
	if got := engine.LiveResources(); got != 0 {
		t.Errorf("LiveResources() on a fresh engine = %d, want 0", got)
	}

	r := NewTimelyResource[containerStub, recordPayload](engine, containerStub{"t"})
	if got := engine.LiveResources(); got != 1 {
		t.Errorf("LiveResources() after registering one resource = %d, want 1", got)
	}
	_ = r
}
