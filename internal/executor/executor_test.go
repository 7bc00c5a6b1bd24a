package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/vxgraph/internal/dag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diamond(t *testing.T) *dag.Graph {
	t.Helper()
	g := dag.New()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "c"))
	require.NoError(t, g.AddEdge("b", "d"))
	require.NoError(t, g.AddEdge("c", "d"))
	return g
}

func TestRun_RespectsDependencies(t *testing.T) {
	g := diamond(t)

	var mu sync.Mutex
	finished := map[string]bool{}
	fn := func(_ context.Context, id string) error {
		deps, err := g.Dependencies(id)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		for _, dep := range deps {
			if !finished[dep] {
				return errors.New(id + " started before " + dep)
			}
		}
		finished[id] = true
		return nil
	}

	report, err := Run(context.Background(), g, 4, fn)
	require.NoError(t, err)
	assert.Empty(t, report)
	assert.Len(t, finished, 4)
}

func TestRun_FailureSkipsDependents(t *testing.T) {
	g := diamond(t)
	boom := errors.New("boom")

	var ran atomic.Int32
	fn := func(_ context.Context, id string) error {
		ran.Add(1)
		if id == "b" {
			return boom
		}
		return nil
	}

	report, err := Run(context.Background(), g, 1, fn)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "execution failed for b")

	assert.ErrorIs(t, report["d"], ErrSkipped)
	assert.NotContains(t, report, "a")
	assert.Equal(t, []string{"b"}, report.Failed(g))
	assert.LessOrEqual(t, ran.Load(), int32(3))
}

func TestRun_WorkerBound(t *testing.T) {
	g := dag.New()
	for _, id := range []string{"n1", "n2", "n3", "n4", "n5", "n6"} {
		g.AddNode(id)
	}

	var active, peak atomic.Int32
	fn := func(_ context.Context, _ string) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	}

	_, err := Run(context.Background(), g, 2, fn)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_CanceledContext(t *testing.T) {
	g := diamond(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, g, 2, func(context.Context, string) error {
		t.Error("no node should run")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report, 4)
	for id, nodeErr := range report {
		assert.ErrorIs(t, nodeErr, ErrSkipped, id)
	}
}

func TestRun_EmptyGraph(t *testing.T) {
	report, err := Run(context.Background(), dag.New(), 3, func(context.Context, string) error { return nil })
	require.NoError(t, err)
	assert.Empty(t, report)
}
