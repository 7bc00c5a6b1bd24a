package vx

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/specialistvlad/vxgraph/internal/events"

	// deadlock detecting mutexes, module loading re-enters the context from
	// publish callbacks
	sync "github.com/sasha-s/go-deadlock"
)

// TargetProvider populates one execution target with its built-in kernels
// when a context is created.
type TargetProvider interface {
	// TargetName is the qualified target name, e.g. "khronos.c_model".
	TargetName() string
	// Publish adds the target's kernels through t.AddKernel.
	Publish(c *Context, t *Target) error
}

// Context is a runtime session. It owns every object created from it and is
// passed explicitly to whoever needs the kernel registry or the targets.
type Context struct {
	id     uuid.UUID
	logger *slog.Logger

	mu      sync.Mutex
	refs    map[uint64]*reference
	modules map[string]*loadedModule
	targets []*Target
	catalog Catalog
	workers int
	sink    events.Sink

	nextID atomic.Uint64
	sealed atomic.Bool
	dead   atomic.Bool
}

type contextConfig struct {
	logger    *slog.Logger
	catalog   Catalog
	providers []TargetProvider
	workers   int
	sink      events.Sink
}

// ContextOption customizes NewContext.
type ContextOption func(*contextConfig)

// WithLogger sets the logger used by the runtime.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *contextConfig) { c.logger = l }
}

// WithCatalog sets the loadable extension modules.
func WithCatalog(cat Catalog) ContextOption {
	return func(c *contextConfig) { c.catalog = cat }
}

// WithTargets appends execution targets. Targets keep the order given here,
// the first one is the default for user kernels.
func WithTargets(p ...TargetProvider) ContextOption {
	return func(c *contextConfig) { c.providers = append(c.providers, p...) }
}

// WithWorkers bounds how many nodes of one graph may run at once.
func WithWorkers(n int) ContextOption {
	return func(c *contextConfig) { c.workers = n }
}

// WithEventSink receives graph and node completion events.
func WithEventSink(s events.Sink) ContextOption {
	return func(c *contextConfig) { c.sink = s }
}

// NewContext creates a session and publishes the kernels of every target.
func NewContext(opts ...ContextOption) (*Context, error) {
	cfg := contextConfig{
		logger:  slog.Default(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	if cfg.sink == nil {
		cfg.sink = events.Discard{}
	}

	c := &Context{
		id:      uuid.New(),
		logger:  cfg.logger,
		refs:    make(map[uint64]*reference),
		modules: make(map[string]*loadedModule),
		catalog: cfg.catalog,
		workers: cfg.workers,
		sink:    cfg.sink,
	}
	c.logger = c.logger.With("context", c.id.String())

	for i, p := range cfg.providers {
		t := &Target{name: p.TargetName(), priority: i, context: c}
		c.targets = append(c.targets, t)
		if err := p.Publish(c, t); err != nil {
			return nil, fmt.Errorf("failed to publish target %s: %w", t.name, err)
		}
		c.logger.Debug("Target published.", "target", t.name, "kernels", t.NumKernels())
	}
	c.sealed.Store(true)
	c.logger.Debug("Context created.", "targets", len(c.targets), "kernels", c.NumKernels())
	return c, nil
}

// ID is a unique session identifier used in logs and events.
func (c *Context) ID() string { return c.id.String() }

// Logger returns the runtime logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Valid reports whether the context has not been released.
func (c *Context) Valid() bool { return c != nil && !c.dead.Load() }

// NumKernels counts enabled kernels over all targets.
func (c *Context) NumKernels() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.targets {
		n += t.numKernelsLocked()
	}
	return n
}

// NumModules counts loaded extension modules.
func (c *Context) NumModules() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.modules)
}

// NumReferences counts live objects created from this context.
func (c *Context) NumReferences() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.refs)
}

// NumTargets counts the execution targets.
func (c *Context) NumTargets() int {
	return len(c.targets)
}

// Target returns the i-th target in priority order.
func (c *Context) Target(i int) (*Target, error) {
	if !c.Valid() {
		return nil, Errorf(ErrorInvalidReference, "target query on released context")
	}
	if i < 0 || i >= len(c.targets) {
		return nil, Errorf(ErrorInvalidParameters, "target index %d out of range [0,%d)", i, len(c.targets))
	}
	return c.targets[i], nil
}

// Modules returns the names of loaded modules, sorted.
func (c *Context) Modules() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Release destroys the context. Objects still held by the caller are torn
// down as well; their presence is reported as ErrorReferenceNonzero.
func (c *Context) Release() error {
	if !c.Valid() {
		return Errorf(ErrorInvalidReference, "release context")
	}

	var errs []error
	for _, name := range c.Modules() {
		c.mu.Lock()
		m, ok := c.modules[name]
		if ok {
			m.refCount = 1
		}
		c.mu.Unlock()
		if !ok {
			continue
		}
		if err := c.UnloadKernels(name); err != nil {
			errs = append(errs, err)
		}
	}

	c.mu.Lock()
	leaked := make([]*reference, 0, len(c.refs))
	for _, r := range c.refs {
		if r.typ != TypeKernel {
			leaked = append(leaked, r)
		}
	}
	c.mu.Unlock()

	if len(leaked) > 0 {
		c.logger.Warn("Context released with live references.", "count", len(leaked))
		errs = append(errs, Errorf(ErrorReferenceNonzero, "%d references still held", len(leaked)))
		for _, r := range leaked {
			r.finalize()
		}
	}

	c.mu.Lock()
	for _, r := range c.refs {
		r.dead.Store(true)
	}
	c.refs = map[uint64]*reference{}
	for _, t := range c.targets {
		t.kernels = nil
	}
	c.mu.Unlock()

	c.dead.Store(true)
	c.logger.Debug("Context released.")
	return errors.Join(errs...)
}

// addReference registers r with the context and gives it one external count.
func (c *Context) addReference(r *reference, t Type) {
	r.id = c.nextID.Add(1)
	r.typ = t
	r.context = c
	r.external.Store(1)
	c.mu.Lock()
	c.refs[r.id] = r
	c.mu.Unlock()
}

func (c *Context) removeReference(r *reference) {
	c.mu.Lock()
	delete(c.refs, r.id)
	c.mu.Unlock()
}

func (c *Context) emit(e events.Event) {
	e.Context = c.id.String()
	c.sink.Emit(e)
}
