package vx

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/vxgraph/internal/dag"
	"github.com/specialistvlad/vxgraph/internal/events"
)

// Verify checks the graph and prepares it for processing:
//
//  1. every required parameter is bound
//  2. each data object has at most one writer
//  3. the dependencies between nodes form a DAG
//  4. validators accept their parameters, in dependency order, and shape
//     virtual outputs from the meta formats they return
//  5. virtual objects get memory
//  6. kernels are initialized with their local data
//
// A graph that fails verification stays unverified and cannot be processed.
func (g *Graph) Verify() error {
	if !g.base().valid(TypeGraph) {
		return Errorf(ErrorInvalidReference, "verify invalid graph")
	}
	g.mu.Lock()
	if g.scheduled {
		g.mu.Unlock()
		return Errorf(ErrorGraphScheduled, "graph %s is scheduled", g.ID())
	}
	nodes := append([]*Node(nil), g.nodes...)
	virtuals := append([]Reference(nil), g.virtuals...)
	g.verified = false
	g.mu.Unlock()

	logger := g.logger()
	err := g.verify(nodes, virtuals)
	if err != nil {
		logger.Error("Graph verification failed.", "status", StatusOf(err), "error", err)
		return err
	}

	g.mu.Lock()
	g.verified = true
	g.mu.Unlock()
	logger.Info("Graph verified.", "nodes", len(nodes))
	g.context.emit(events.Event{Kind: events.GraphVerified, Graph: g.ID(), Time: time.Now()})
	return nil
}

func (g *Graph) verify(nodes []*Node, virtuals []Reference) error {
	if len(nodes) == 0 {
		return Errorf(ErrorInvalidGraph, "graph has no nodes")
	}

	if err := checkParameters(nodes); err != nil {
		return err
	}

	deps, byID, err := buildDependencies(nodes)
	if err != nil {
		return err
	}
	ids, err := deps.TopologicalSort()
	if err != nil {
		if errors.Is(err, dag.ErrCycle) {
			return Errorf(ErrorInvalidGraph, "%v", err)
		}
		return err
	}
	order := make([]*Node, len(ids))
	for i, id := range ids {
		order[i] = byID[id]
	}

	if err := checkVirtualProducers(order, virtuals); err != nil {
		return err
	}

	for _, n := range order {
		if err := n.validate(); err != nil {
			return err
		}
	}

	for _, v := range virtuals {
		if err := allocateVirtual(v); err != nil {
			return err
		}
	}

	for _, n := range order {
		if n.target == nil || !n.target.hasKernel(n.kernelName) {
			return Errorf(ErrorInvalidNode, "node %s: kernel %s is no longer available on any target", n.label(), n.kernelName)
		}
		if err := n.initialize(); err != nil {
			return err
		}
	}

	g.mu.Lock()
	g.deps, g.byID, g.order = deps, byID, order
	g.mu.Unlock()
	return nil
}

func checkParameters(nodes []*Node) error {
	for _, n := range nodes {
		for i, sig := range n.signature {
			p := n.params[i]
			if p == nil {
				if sig.State == ParameterRequired {
					return Errorf(ErrorNotSufficient, "node %s: required parameter %d is not set", n.label(), i)
				}
				continue
			}
			if !isValid(p, p.Type()) {
				return Errorf(ErrorInvalidReference, "node %s: parameter %d was released", n.label(), i)
			}
		}
	}
	return nil
}

// buildDependencies links every writer of a data object to the other nodes
// using it.
func buildDependencies(nodes []*Node) (*dag.Graph, map[string]*Node, error) {
	deps := dag.New()
	byID := make(map[string]*Node, len(nodes))
	writers := make(map[uint64]*Node)

	for _, n := range nodes {
		id := n.label()
		if _, dup := byID[id]; dup {
			id = fmt.Sprintf("%s#%d", id, n.id)
		}
		byID[id] = n
		deps.AddNode(id)
		for i, p := range n.params {
			if p == nil || !n.dirs[i].writes() {
				continue
			}
			ref := p.base()
			if w, ok := writers[ref.id]; ok && w != n {
				return nil, nil, Errorf(ErrorMultipleWriters, "%s %q is written by %s and %s", ref.typ, ref.name, w.label(), n.label())
			}
			writers[ref.id] = n
		}
	}

	idOf := make(map[*Node]string, len(byID))
	for id, n := range byID {
		idOf[n] = id
	}
	for _, n := range nodes {
		for _, p := range n.params {
			if p == nil {
				continue
			}
			w, ok := writers[p.base().id]
			if !ok || w == n {
				continue
			}
			if err := deps.AddEdge(idOf[w], idOf[n]); err != nil {
				return nil, nil, err
			}
		}
	}
	return deps, byID, nil
}

func checkVirtualProducers(order []*Node, virtuals []Reference) error {
	produced := make(map[uint64]bool)
	used := make(map[uint64]bool)
	for _, n := range order {
		for i, p := range n.params {
			if p == nil {
				continue
			}
			used[p.base().id] = true
			if n.dirs[i].writes() {
				produced[p.base().id] = true
			}
		}
	}
	for _, v := range virtuals {
		r := v.base()
		if used[r.id] && !produced[r.id] {
			return Errorf(ErrorInvalidGraph, "virtual %s %q is read but never written", r.typ, r.name)
		}
	}
	return nil
}

func (n *Node) validate() error {
	metas := make([]*MetaFormat, len(n.params))
	for i := range metas {
		metas[i] = &MetaFormat{}
	}
	if n.funcs.Validate != nil {
		if err := n.funcs.Validate(n, n.params, metas); err != nil {
			st := StatusOf(err)
			if st == Failure {
				st = ErrorInvalidParameters
			}
			return Errorf(st, "node %s: %v", n.label(), err)
		}
	}
	for i, sig := range n.signature {
		if sig.Direction != Output || n.params[i] == nil {
			continue
		}
		if err := metas[i].apply(n.params[i]); err != nil {
			return fmt.Errorf("node %s parameter %d: %w", n.label(), i, err)
		}
	}
	return nil
}

func (n *Node) initialize() error {
	n.deinitialize()
	if n.localSize > 0 {
		n.localData = make([]byte, n.localSize)
	}
	if n.funcs.Initialize != nil {
		if err := n.funcs.Initialize(n, n.params); err != nil {
			n.localData = nil
			return fmt.Errorf("node %s initialize: %w", n.label(), err)
		}
	}
	n.initialized = true
	return nil
}

func allocateVirtual(ref Reference) error {
	switch obj := ref.(type) {
	case *Image:
		if obj.width == 0 || obj.height == 0 || obj.format.PixelSize() == 0 {
			return Errorf(ErrorNotAllocated, "virtual image %q has unresolved geometry", obj.name)
		}
		obj.allocate()
	case *Array:
		if obj.itemSize == 0 || obj.capacity == 0 {
			return Errorf(ErrorNotAllocated, "virtual array %q has unresolved geometry", obj.name)
		}
		obj.allocate()
	}
	return nil
}
