package vx

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/specialistvlad/vxgraph/internal/dag"

	sync "github.com/sasha-s/go-deadlock"
)

// Graph is a set of nodes verified and processed as a unit.
type Graph struct {
	reference

	uid uuid.UUID

	mu       sync.Mutex
	nodes    []*Node
	virtuals []Reference
	verified bool
	deps     *dag.Graph
	byID     map[string]*Node
	order    []*Node
	perf     Perf
	status   Status

	scheduled bool
	done      chan struct{}
	result    error
}

func (g *Graph) base() *reference {
	if g == nil {
		return nil
	}
	return &g.reference
}

// CreateGraph creates an empty, unverified graph.
func (c *Context) CreateGraph() (*Graph, error) {
	if !c.Valid() {
		return nil, Errorf(ErrorInvalidReference, "create graph on released context")
	}
	g := &Graph{uid: uuid.New()}
	c.addReference(&g.reference, TypeGraph)
	g.destroy = g.teardown
	c.logger.Debug("Graph created.", "graph", g.uid.String())
	return g, nil
}

// ID is a unique identifier used in logs and events.
func (g *Graph) ID() string { return g.uid.String() }

// NumNodes counts the nodes of the graph.
func (g *Graph) NumNodes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Nodes returns the nodes in creation order.
func (g *Graph) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Node(nil), g.nodes...)
}

// Verified reports whether the graph passed verification since its last
// structural change.
func (g *Graph) Verified() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verified
}

// Status is the result of the last processing run.
func (g *Graph) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Perf returns the timings of processing runs.
func (g *Graph) Perf() Perf {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.perf
}

// Release drops the caller's handle. Nodes and virtual objects of the graph
// are destroyed with it.
func (g *Graph) Release() error {
	if g.base().valid(TypeGraph) {
		g.mu.Lock()
		busy := g.scheduled
		g.mu.Unlock()
		if busy {
			return Errorf(ErrorGraphScheduled, "graph %s is still scheduled", g.ID())
		}
	}
	return g.base().releaseExternal(TypeGraph)
}

func (g *Graph) logger() *slog.Logger {
	return g.context.logger.With("graph", g.uid.String())
}

func (g *Graph) adoptVirtual(ref Reference) {
	g.mu.Lock()
	g.virtuals = append(g.virtuals, ref)
	g.verified = false
	g.mu.Unlock()
	ref.base().retain()
}

func (g *Graph) teardown() {
	g.mu.Lock()
	nodes, virtuals := g.nodes, g.virtuals
	g.nodes, g.virtuals, g.order, g.byID, g.deps = nil, nil, nil, nil, nil
	g.verified = false
	g.mu.Unlock()

	for _, n := range nodes {
		n.finalize()
	}
	for _, v := range virtuals {
		v.base().finalize()
	}
	g.context.logger.Debug("Graph released.", "graph", g.uid.String(), "nodes", len(nodes))
}

// RemoveNode deletes n from the graph and destroys it.
func (g *Graph) RemoveNode(n *Node) error {
	if !g.base().valid(TypeGraph) || !n.base().valid(TypeNode) || n.graph != g {
		return Errorf(ErrorInvalidReference, "remove node")
	}
	g.mu.Lock()
	if g.scheduled {
		g.mu.Unlock()
		return Errorf(ErrorGraphScheduled, "graph %s is scheduled", g.ID())
	}
	for i, other := range g.nodes {
		if other == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	g.verified = false
	g.mu.Unlock()
	n.finalize()
	return nil
}
