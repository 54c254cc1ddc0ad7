package mvcc

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// atomicPrunable adapts a plain Version into a PrunableVersion whose
// callback flips an atomic flag, so a test can observe a background
// sweeper's prune pass without racing on a plain bool.
type atomicPrunable struct {
	value string
	seen  *atomic.Bool
}

func (p atomicPrunable) Prune() (bool, error) {
	p.seen.Store(true)
	return true, nil
}

func TestSweeperRunsOnSchedule(t *testing.T) {
	engine := newTestEngine(t)
	r := NewTimelyResource[containerStub, atomicPrunable](engine, containerStub{"t"})

	var prunedStale atomic.Bool
	t0 := engine.Begin()
	if err := r.AddVersion(context.Background(), atomicPrunable{value: "stale", seen: &prunedStale}, t0); err != nil {
		t.Fatalf("AddVersion(t0): %v", err)
	}
	engine.Commit(t0)

	t1 := engine.Begin()
	if err := r.AddVersion(context.Background(), atomicPrunable{value: "current", seen: &atomic.Bool{}}, t1); err != nil {
		t.Fatalf("AddVersion(t1): %v", err)
	}
	engine.Commit(t1)

	if err := engine.sweeper.Start("* * * * * *"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.sweeper.Stop()

	deadline := time.After(3 * time.Second)
	for !prunedStale.Load() {
		select {
		case <-deadline:
			t.Fatal("sweeper did not prune the registered resource within the deadline")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestSweeperStopWithoutStartIsSafe(t *testing.T) {
	s := newSweeper(newRegistry())
	s.Stop()
}

func TestSweeperStartReplacesPreviousSchedule(t *testing.T) {
	s := newSweeper(newRegistry())
	if err := s.Start("* * * * * *"); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := s.Start("0 0 0 1 1 *"); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	s.Stop()
}

func TestSweeperRejectsInvalidSchedule(t *testing.T) {
	s := newSweeper(newRegistry())
	if err := s.Start("not a cron spec"); !IsKind(err, InvalidArgument) {
		t.Errorf("Start with an invalid spec = %v, want an InvalidArgument Fault", err)
	}
}
