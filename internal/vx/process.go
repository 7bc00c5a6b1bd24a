package vx

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/vxgraph/internal/ctxlog"
	"github.com/specialistvlad/vxgraph/internal/events"
	"github.com/specialistvlad/vxgraph/internal/executor"
)

// Process runs the graph once and blocks until every node has finished. An
// unverified graph is verified first. Nodes whose inputs are ready run
// concurrently on up to the context's worker count; a failing node stops its
// dependents and the returned error carries its status.
func (g *Graph) Process(ctx context.Context) error {
	if err := g.Schedule(ctx); err != nil {
		return err
	}
	return g.Wait()
}

// Schedule starts processing in the background. Use Wait for the result.
func (g *Graph) Schedule(ctx context.Context) error {
	if !g.base().valid(TypeGraph) {
		return Errorf(ErrorInvalidReference, "schedule invalid graph")
	}
	if !g.Verified() {
		if err := g.Verify(); err != nil {
			return err
		}
	}

	g.mu.Lock()
	if g.scheduled {
		g.mu.Unlock()
		return Errorf(ErrorGraphScheduled, "graph %s is already scheduled", g.ID())
	}
	g.scheduled = true
	g.done = make(chan struct{})
	g.mu.Unlock()

	go func() {
		err := g.execute(ctx)
		g.mu.Lock()
		g.result = err
		g.scheduled = false
		close(g.done)
		g.mu.Unlock()
	}()
	return nil
}

// Wait blocks until the scheduled run finishes and returns its result.
// Waiting on a graph that was never scheduled reports ErrorGraphAbandoned.
func (g *Graph) Wait() error {
	g.mu.Lock()
	done := g.done
	g.mu.Unlock()
	if done == nil {
		return Errorf(ErrorGraphAbandoned, "graph %s was never scheduled", g.ID())
	}
	<-done

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result
}

func (g *Graph) execute(ctx context.Context) error {
	logger := g.logger()
	ctx = ctxlog.WithLogger(ctx, logger)

	g.mu.Lock()
	deps, byID := g.deps, g.byID
	g.mu.Unlock()

	beg := time.Now()
	_, runErr := executor.Run(ctx, deps, g.context.workers, func(ctx context.Context, id string) error {
		return g.runNode(ctx, byID[id])
	})
	end := time.Now()

	status := StatusOf(runErr)
	g.mu.Lock()
	g.perf.record(beg, end)
	g.status = status
	g.mu.Unlock()

	e := events.Event{Kind: events.GraphCompleted, Graph: g.ID(), Status: int32(status), Duration: end.Sub(beg), Time: end}
	if runErr != nil {
		e.Error = runErr.Error()
		logger.Error("Graph processing failed.", "status", status, "error", runErr)
		g.context.emit(e)
		return fmt.Errorf("process graph %s: %w", g.ID(), runErr)
	}
	logger.Debug("Graph processed.", "duration", end.Sub(beg))
	g.context.emit(e)
	return nil
}

func (g *Graph) runNode(ctx context.Context, n *Node) error {
	if err := ctx.Err(); err != nil {
		return Errorf(ErrorGraphAbandoned, "node %s not started: %v", n.label(), err)
	}

	beg := time.Now()
	err := n.funcs.Run(n, n.params)
	end := time.Now()

	status := StatusOf(err)
	g.mu.Lock()
	n.perf.record(beg, end)
	n.status = status
	g.mu.Unlock()

	e := events.Event{
		Kind:     events.NodeCompleted,
		Graph:    g.ID(),
		Node:     n.label(),
		Kernel:   n.kernelName,
		Status:   int32(status),
		Duration: end.Sub(beg),
		Time:     end,
	}
	if err != nil {
		e.Kind = events.NodeError
		e.Error = err.Error()
		g.context.emit(e)
		return fmt.Errorf("node %s (%s): %w", n.label(), n.kernelName, err)
	}
	g.context.emit(e)
	return nil
}
