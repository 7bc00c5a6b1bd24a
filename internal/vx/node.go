package vx

import (
	"log/slog"
	"strconv"
)

// Node is one kernel invocation inside a graph. It copies what it needs from
// the kernel at creation, so the kernel handle can be released right away.
type Node struct {
	reference

	graph      *Graph
	kernelName string
	kernelEnum KernelEnum
	funcs      KernelFuncs
	signature  []ParamSpec
	target     *Target
	localSize  int

	params []Reference
	dirs   []Direction

	localData   []byte
	initialized bool
	status      Status
	perf        Perf
}

func (n *Node) base() *reference {
	if n == nil {
		return nil
	}
	return &n.reference
}

// CreateNode instantiates kernel k in the graph. Parameters start unset.
func (g *Graph) CreateNode(k *Kernel) (*Node, error) {
	if !g.base().valid(TypeGraph) {
		return nil, Errorf(ErrorInvalidReference, "create node on invalid graph")
	}
	if !k.base().valid(TypeKernel) || !k.Enabled() {
		return nil, Errorf(ErrorInvalidReference, "create node from invalid kernel")
	}
	if k.context != g.context {
		return nil, Errorf(ErrorInvalidScope, "kernel %s belongs to another context", k.name)
	}

	n := &Node{
		graph:      g,
		kernelName: k.name,
		kernelEnum: k.enum,
		funcs:      k.funcs,
		signature:  append([]ParamSpec(nil), k.params...),
		target:     k.target,
		localSize:  k.localDataSize,
		params:     make([]Reference, len(k.params)),
		dirs:       make([]Direction, len(k.params)),
	}
	g.context.addReference(&n.reference, TypeNode)
	n.destroy = n.teardown

	g.mu.Lock()
	g.nodes = append(g.nodes, n)
	g.verified = false
	g.mu.Unlock()
	n.retain()

	g.logger().Debug("Node created.", "node", n.label(), "kernel", n.kernelName)
	return n, nil
}

// KernelName is the name of the instantiated kernel.
func (n *Node) KernelName() string { return n.kernelName }

// KernelEnum is the id of the instantiated kernel.
func (n *Node) KernelEnum() KernelEnum { return n.kernelEnum }

// Graph is the owning graph.
func (n *Node) Graph() *Graph { return n.graph }

// Target is the target the node executes on.
func (n *Node) Target() *Target { return n.target }

// NumParams is the signature length.
func (n *Node) NumParams() int { return len(n.signature) }

// LocalData is the node's scratch memory, sized by the kernel and allocated
// at verification.
func (n *Node) LocalData() []byte { return n.localData }

// Status is the result of the node's last execution.
func (n *Node) Status() Status {
	n.graph.mu.Lock()
	defer n.graph.mu.Unlock()
	return n.status
}

// Perf returns the node's execution timings.
func (n *Node) Perf() Perf {
	n.graph.mu.Lock()
	defer n.graph.mu.Unlock()
	return n.perf
}

// Logger is the runtime logger annotated with the node.
func (n *Node) Logger() *slog.Logger {
	return n.graph.logger().With("node", n.label(), "kernel", n.kernelName)
}

// Parameter returns the reference bound at index, nil if unset.
func (n *Node) Parameter(index int) (Reference, error) {
	if index < 0 || index >= len(n.params) {
		return nil, Errorf(ErrorInvalidParameters, "node %s has no parameter %d", n.label(), index)
	}
	n.graph.mu.Lock()
	defer n.graph.mu.Unlock()
	return n.params[index], nil
}

// Direction returns the direction index was bound with.
func (n *Node) Direction(index int) (Direction, error) {
	if index < 0 || index >= len(n.dirs) {
		return 0, Errorf(ErrorInvalidParameters, "node %s has no parameter %d", n.label(), index)
	}
	n.graph.mu.Lock()
	defer n.graph.mu.Unlock()
	return n.dirs[index], nil
}

// SetParameterByIndex binds ref to slot index. dir must agree with the
// kernel signature; a bidirectional binding is accepted for an output slot.
// Binding marks the graph for re-verification.
func (n *Node) SetParameterByIndex(index int, dir Direction, ref Reference) error {
	if !n.base().valid(TypeNode) {
		return Errorf(ErrorInvalidReference, "set parameter on invalid node")
	}
	if index < 0 || index >= len(n.signature) {
		return Errorf(ErrorInvalidParameters, "node %s has no parameter %d", n.label(), index)
	}
	sig := n.signature[index]
	if dir != sig.Direction && !(dir == Bidirectional && sig.Direction == Output) {
		return Errorf(ErrorInvalidParameters, "node %s parameter %d is %s, bound as %s", n.label(), index, sig.Direction, dir)
	}
	if ref == nil || ref.base() == nil {
		return Errorf(ErrorInvalidReference, "node %s parameter %d bound to nil", n.label(), index)
	}
	if !isValid(ref, ref.Type()) {
		return Errorf(ErrorInvalidReference, "node %s parameter %d bound to a released object", n.label(), index)
	}
	if sig.Type != TypeReference && ref.Type() != sig.Type {
		return Errorf(ErrorInvalidType, "node %s parameter %d wants %s, got %s", n.label(), index, sig.Type, ref.Type())
	}
	if ref.base().context != n.context {
		return Errorf(ErrorInvalidScope, "node %s parameter %d belongs to another context", n.label(), index)
	}
	if scope := virtualScope(ref); scope != nil && scope != n.graph {
		return Errorf(ErrorInvalidScope, "node %s parameter %d is virtual in another graph", n.label(), index)
	}

	n.graph.mu.Lock()
	old := n.params[index]
	n.params[index] = ref
	n.dirs[index] = dir
	n.graph.verified = false
	n.graph.mu.Unlock()

	ref.base().retain()
	if old != nil {
		old.base().releaseInternal()
	}
	return nil
}

// Release drops the caller's handle. The node lives until its graph does.
func (n *Node) Release() error {
	return n.base().releaseExternal(TypeNode)
}

func (n *Node) label() string {
	if n.name != "" {
		return n.name
	}
	return "node_" + strconv.FormatUint(n.id, 10)
}

func (n *Node) deinitialize() {
	if !n.initialized {
		return
	}
	n.initialized = false
	if n.funcs.Deinitialize != nil {
		if err := n.funcs.Deinitialize(n, n.params); err != nil {
			n.Logger().Warn("Kernel deinitialize failed.", "error", err)
		}
	}
	n.localData = nil
}

func (n *Node) teardown() {
	n.deinitialize()
	for i, p := range n.params {
		if p != nil {
			p.base().releaseInternal()
			n.params[i] = nil
		}
	}
}

func virtualScope(ref Reference) *Graph {
	switch obj := ref.(type) {
	case *Image:
		if obj.virtual {
			return obj.scope
		}
	case *Array:
		if obj.virtual {
			return obj.scope
		}
	}
	return nil
}
