// Command timelyvaultd is a small end-to-end demonstration of the
// timelyvault engine: it loads a config, wires up an Engine, registers a
// handful of containers, and drives concurrent readers/writers against
// them while the background sweeper prunes stale versions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/SimonWaldherr/timelyvault/internal/mvcc"
)

var (
	flagConfig   = flag.String("config", "", "path to an EngineConfig YAML file (defaults built in if unset)")
	flagWriters  = flag.Int("writers", 4, "number of concurrent writer goroutines")
	flagReaders  = flag.Int("readers", 4, "number of concurrent reader goroutines")
	flagDuration = flag.Duration("duration", 5*time.Second, "how long to run the demo workload")
)

// demoContainer stands in for the out-of-scope B-tree/page container a
// TimelyResource would normally attach to.
type demoContainer struct {
	ID   mvcc.ContainerID
	Name string
}

// demoValue is the version payload the demo stores; its Prune callback just
// logs, standing in for whatever real cleanup a container's value would
// need (releasing a buffer, decrementing a refcount).
type demoValue struct {
	Text string
}

func (v demoValue) Prune() (bool, error) {
	log.Printf("prune: reclaiming %q", v.Text)
	return true, nil
}

func main() {
	flag.Parse()

	cfg := mvcc.DefaultEngineConfig()
	if *flagConfig != "" {
		loaded, err := mvcc.LoadEngineConfig(*flagConfig)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	engine, err := mvcc.NewEngine(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "new engine:", err)
		os.Exit(1)
	}
	defer engine.Close(context.Background())

	const containerCount = 3
	resources := make([]*mvcc.TimelyResource[demoContainer, demoValue], containerCount)
	for i := range resources {
		container := demoContainer{ID: mvcc.NewContainerID(), Name: fmt.Sprintf("container-%d", i)}
		resources[i] = mvcc.NewTimelyResource[demoContainer, demoValue](engine, container)
		log.Printf("registered %s (%s)", container.Name, container.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flagDuration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < *flagWriters; i++ {
		wg.Add(1)
		go runWriter(ctx, &wg, i, engine, resources)
	}
	for i := 0; i < *flagReaders; i++ {
		wg.Add(1)
		go runReader(ctx, &wg, i, engine, resources)
	}
	wg.Wait()

	if err := engine.SweepNow(); err != nil {
		log.Printf("final sweep reported errors: %v", err)
	}
	for _, r := range resources {
		log.Printf("%v: %d version(s) remaining", r.Container().Name, r.VersionCount())
	}
}

func runWriter(ctx context.Context, wg *sync.WaitGroup, id int, engine *mvcc.Engine, resources []*mvcc.TimelyResource[demoContainer, demoValue]) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := resources[rand.Intn(len(resources))]
		txn := engine.Begin()
		text := fmt.Sprintf("writer-%d @ %s", id, time.Now().Format(time.RFC3339Nano))
		if err := r.AddVersion(ctx, demoValue{Text: text}, txn); err != nil {
			engine.Abort(txn)
			if mvcc.IsKind(err, mvcc.Rollback) {
				continue
			}
			log.Printf("writer %d: addVersion: %v", id, err)
			continue
		}
		engine.Commit(txn)
		time.Sleep(5 * time.Millisecond)
	}
}

func runReader(ctx context.Context, wg *sync.WaitGroup, id int, engine *mvcc.Engine, resources []*mvcc.TimelyResource[demoContainer, demoValue]) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := resources[rand.Intn(len(resources))]
		txn := engine.Begin()
		if v, ok := r.GetVersion(txn); ok {
			_ = v
		}
		engine.Commit(txn)
		time.Sleep(5 * time.Millisecond)
	}
}
