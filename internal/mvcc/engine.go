package mvcc

import "context"

// Engine is the top-level handle: the shared Allocator and Transaction
// Index every TimelyResource in a process draws on, the Registry that
// tracks them all weakly, and the Sweeper that prunes them on a schedule.
//
// Grounded on storage.Database, which plays the analogous "one allocator,
// one transaction table, one background scheduler, many tables" role; this
// type narrows that to MVCC concerns only, since a page/buffer-pool layer
// has no equivalent here.
type Engine struct {
	config EngineConfig

	alloc    *Allocator
	index    *TransactionIndex
	registry *Registry
	sweeper  *Sweeper
}

// NewEngine builds an Engine from cfg and starts its background sweeper if
// cfg.SweepCronSpec is non-empty.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	alloc := NewAllocator()
	e := &Engine{
		config:   cfg,
		alloc:    alloc,
		index:    NewTransactionIndex(alloc),
		registry: newRegistry(),
	}
	e.sweeper = newSweeper(e.registry)

	if err := e.sweeper.Start(cfg.SweepCronSpec); err != nil {
		return nil, err
	}
	return e, nil
}

// NewDefaultEngine builds an Engine with DefaultEngineConfig.
func NewDefaultEngine() (*Engine, error) {
	return NewEngine(DefaultEngineConfig())
}

// Begin starts a new transaction against this engine's Transaction Index.
func (e *Engine) Begin() *TransactionStatus {
	return e.index.Begin()
}

// Commit assigns status a commit timestamp and publishes it to waiters.
func (e *Engine) Commit(status *TransactionStatus) Timestamp {
	return e.index.Commit(status)
}

// Abort marks status rolled back and publishes it to waiters.
func (e *Engine) Abort(status *TransactionStatus) {
	e.index.Abort(status)
}

// SweepNow runs one immediate pruning pass over every live resource
// registered with this engine, independent of the background schedule.
func (e *Engine) SweepNow() error {
	return e.registry.Sweep()
}

// LiveResources reports how many registered resources are still reachable
// (not yet garbage collected on the owner's side).
func (e *Engine) LiveResources() int {
	return e.registry.Len()
}

// Close stops the background sweeper. It does not touch any resource
// already created against this engine; their containers remain valid for
// as long as the caller holds a reference to them.
func (e *Engine) Close(_ context.Context) error {
	e.sweeper.Stop()
	return nil
}
