package mvcc

import (
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the Engine Registry's Sweep on a cron schedule in the
// background, so callers don't have to drive pruning by hand.
//
// Grounded on storage.Scheduler's cron.Cron wrapper, retargeted from
// periodic checkpoint/compaction jobs to periodic MVCC pruning.
type Sweeper struct {
	registry *Registry

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	started bool
}

func newSweeper(registry *Registry) *Sweeper {
	return &Sweeper{registry: registry}
}

// Start schedules periodic sweeps according to spec (a robfig/cron
// expression with a seconds field). An empty spec is a no-op: the engine
// then relies on explicit SweepNow calls. Start is idempotent; calling it
// again replaces the previous schedule.
func (s *Sweeper) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.stopLocked()
	}
	if spec == "" {
		return nil
	}

	c := cron.New(cron.WithSeconds())
	id, err := c.AddFunc(spec, func() {
		if err := s.registry.Sweep(); err != nil {
			log.Printf("timelyvault: sweep error: %v", err)
		}
	})
	if err != nil {
		return faultf(InvalidArgument, err, "sweeper: invalid schedule %q", spec)
	}
	c.Start()

	s.cron = c
	s.entryID = id
	s.started = true
	return nil
}

// Stop halts the background schedule, waiting for any in-flight sweep to
// finish. It is safe to call even if Start was never called.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Sweeper) stopLocked() {
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron = nil
	s.started = false
}

// SweepNow runs one sweep immediately, independent of the cron schedule.
func (s *Sweeper) SweepNow() error {
	return s.registry.Sweep()
}
