// Package executor runs the nodes of a dag.Graph concurrently, starting each
// node once all of its dependencies have succeeded.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
	"github.com/specialistvlad/vxgraph/internal/ctxlog"
	"github.com/specialistvlad/vxgraph/internal/dag"
)

// ErrSkipped is wrapped by the error of every node that did not run because
// an upstream node failed or the run was canceled.
var ErrSkipped = errors.New("skipped")

// Func executes one node.
type Func func(ctx context.Context, id string) error

// Report holds the outcome of every node that did not succeed.
type Report map[string]error

// Failed returns the IDs of the nodes that ran and failed, in graph order.
func (r Report) Failed(g *dag.Graph) []string {
	var ids []string
	for _, id := range g.Nodes() {
		if err, ok := r[id]; ok && !errors.Is(err, ErrSkipped) {
			ids = append(ids, id)
		}
	}
	return ids
}

type state struct {
	id         string
	depCount   atomic.Int32
	dependents []*state
	err        error
	skipOnce   sync.Once
}

type executor struct {
	fn     Func
	wg     sync.WaitGroup
	mu     deadlock.Mutex
	report Report
}

// Run executes every node of g with at most workers goroutines. A failing
// node cancels the run: its dependents and nodes not yet started are
// skipped. The returned error wraps the first real node failure.
func Run(ctx context.Context, g *dag.Graph, workers int, fn Func) (Report, error) {
	logger := ctxlog.FromContext(ctx)
	if workers < 1 {
		workers = 1
	}

	ids := g.Nodes()
	states := make(map[string]*state, len(ids))
	for _, id := range ids {
		states[id] = &state{id: id}
	}
	for _, id := range ids {
		deps, err := g.Dependencies(id)
		if err != nil {
			return nil, err
		}
		states[id].depCount.Store(int32(len(deps)))
		for _, dep := range deps {
			states[dep].dependents = append(states[dep].dependents, states[id])
		}
	}

	e := &executor{fn: fn, report: Report{}}
	readyChan := make(chan *state, len(ids))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootNodeCount := 0
	for _, id := range ids {
		if states[id].depCount.Load() == 0 {
			readyChan <- states[id]
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(ids))
	for i := 0; i < workers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}
	e.wg.Wait()
	close(readyChan)

	var failedNodes []string
	var rootCauseError error
	for _, id := range ids {
		err := states[id].err
		if err == nil {
			continue
		}
		e.report[id] = err
		// A skipped node is a symptom, not a cause.
		if !errors.Is(err, ErrSkipped) {
			failedNodes = append(failedNodes, id)
			if rootCauseError == nil {
				rootCauseError = err
			}
		}
	}

	if rootCauseError != nil {
		return e.report, fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	if err := ctx.Err(); err != nil && len(e.report) > 0 {
		return e.report, fmt.Errorf("execution canceled: %w", err)
	}
	return e.report, nil
}

// skipDependents recursively marks all downstream nodes as skipped and
// decrements the WaitGroup.
func (e *executor) skipDependents(ctx context.Context, s *state) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range s.dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", dependent.id, "dependency", s.id)
			dependent.err = fmt.Errorf("%w due to upstream failure of '%s'", ErrSkipped, s.id)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}

func (e *executor) worker(ctx context.Context, readyChan chan *state, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for s := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", s.id)

		if ctx.Err() != nil {
			s.skipOnce.Do(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				s.err = fmt.Errorf("%w: %w", ErrSkipped, ctx.Err())
				e.wg.Done()
				e.skipDependents(ctx, s)
			})
			continue
		}

		ran := false
		s.skipOnce.Do(func() {
			ran = true
			if err := e.fn(ctx, s.id); err != nil {
				workerLogger.Error("Node execution failed.", "error", err)
				s.err = err
				cancel()
				e.skipDependents(ctx, s)
				e.wg.Done()
				return
			}
			for _, dependent := range s.dependents {
				if dependent.depCount.Add(-1) == 0 {
					readyChan <- dependent
				}
			}
			e.wg.Done()
		})
		if !ran {
			workerLogger.Debug("Node already settled.")
		}
	}
}
