// Package platform assembles the targets and loadable modules shipped with
// vxgraph, so callers can create a fully stocked context in one call.
package platform

import (
	"log/slog"
	"sort"

	"github.com/specialistvlad/vxgraph/internal/events"
	"github.com/specialistvlad/vxgraph/internal/kernels/cmodel"
	"github.com/specialistvlad/vxgraph/internal/kernels/debug"
	"github.com/specialistvlad/vxgraph/internal/kernels/xyz"
	"github.com/specialistvlad/vxgraph/internal/vx"
)

// Targets returns the built-in targets in priority order.
func Targets() []vx.TargetProvider {
	return []vx.TargetProvider{cmodel.Target{}, cmodel.DebugTarget{}}
}

// Catalog returns the loadable extension modules by name.
func Catalog() vx.Catalog {
	return vx.Catalog{
		xyz.ModuleName:   xyz.Module{},
		debug.ModuleName: debug.Module{},
	}
}

// ModuleNames lists the catalog in sorted order.
func ModuleNames() []string {
	cat := Catalog()
	names := make([]string, 0, len(cat))
	for name := range cat {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configures NewContext.
type Options struct {
	Logger  *slog.Logger
	Workers int
	Sink    events.Sink
	// Catalog overrides the default module catalog when set.
	Catalog vx.Catalog
}

// NewContext creates a context with the built-in targets and catalog.
func NewContext(opts Options) (*vx.Context, error) {
	cat := opts.Catalog
	if cat == nil {
		cat = Catalog()
	}
	vxOpts := []vx.ContextOption{
		vx.WithTargets(Targets()...),
		vx.WithCatalog(cat),
	}
	if opts.Logger != nil {
		vxOpts = append(vxOpts, vx.WithLogger(opts.Logger))
	}
	if opts.Workers > 0 {
		vxOpts = append(vxOpts, vx.WithWorkers(opts.Workers))
	}
	if opts.Sink != nil {
		vxOpts = append(vxOpts, vx.WithEventSink(opts.Sink))
	}
	return vx.NewContext(vxOpts...)
}
