// Package demo drives the xyz example graph through a setup, execute and
// teardown lifecycle.
package demo

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/specialistvlad/vxgraph/internal/ctxlog"
	"github.com/specialistvlad/vxgraph/internal/events"
	"github.com/specialistvlad/vxgraph/internal/kernels/xyz"
	"github.com/specialistvlad/vxgraph/internal/platform"
	"github.com/specialistvlad/vxgraph/internal/vx"
)

// Graph geometry and the values written into it.
const (
	Width        = 320
	Height       = 240
	NumUnits     = xyz.TempNumItems
	UnitSize     = 4
	ScalarValue  = 2
	PixelValue   = 42
	ElementValue = 97

	Extension  = xyz.ModuleName
	KernelName = xyz.KernelName
)

// State tells whether the graph resources exist.
type State int

const (
	TornDown State = iota
	SetUp
)

func (s State) String() string {
	if s == SetUp {
		return "set_up"
	}
	return "torn_down"
}

// Config holds the controller's dependencies.
type Config struct {
	// Catalog lists the loadable modules; nil uses the platform catalog.
	Catalog vx.Catalog
	Workers int
	Sink    events.Sink
}

// Controller owns one context and the graph built in it. It is not safe for
// concurrent use.
type Controller struct {
	cfg Config

	state   State
	context *vx.Context
	input   *vx.Image
	output  *vx.Image
	temp    *vx.Array
	value   *vx.Scalar
	graph   *vx.Graph
	node    *vx.Node

	teardownErr error
}

// New returns a torn down controller.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// State reports the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Context is the live context, nil when torn down.
func (c *Controller) Context() *vx.Context { return c.context }

// Graph is the live graph, nil when torn down.
func (c *Controller) Graph() *vx.Graph { return c.graph }

// Node is the xyz node, nil when torn down or never created.
func (c *Controller) Node() *vx.Node { return c.node }

// Input is the input image, nil when torn down.
func (c *Controller) Input() *vx.Image { return c.input }

// Output is the output image, nil when torn down.
func (c *Controller) Output() *vx.Image { return c.output }

// Temp is the buffer bound as the kernel's temp array, nil when torn down.
func (c *Controller) Temp() *vx.Array { return c.temp }

// Value is the scalar bound as the xyz value, nil when torn down.
func (c *Controller) Value() *vx.Scalar { return c.value }

// LastTeardownErr holds the release failures of the last teardown.
func (c *Controller) LastTeardownErr() error { return c.teardownErr }

// SetupGraph creates the context, loads the extension, builds and verifies
// the graph, and on success fills the input image and the temp buffer. It
// reports whether the graph verified. Everything created stays allocated
// until TeardownGraph, whatever the result.
func (c *Controller) SetupGraph(ctx context.Context) bool {
	logger := ctxlog.FromContext(ctx)
	if c.state == SetUp {
		logger.Warn("Graph already set up.")
		return c.graph != nil && c.graph.Verified()
	}

	vc, err := platform.NewContext(platform.Options{
		Logger:  logger,
		Workers: c.cfg.Workers,
		Sink:    c.cfg.Sink,
		Catalog: c.cfg.Catalog,
	})
	if err != nil {
		logger.Error("Failed to create context.", "error", err)
		return false
	}
	c.context = vc
	c.state = SetUp

	if err := vc.LoadKernels(Extension); err != nil {
		logger.Error("Failed to load extension.", "module", Extension, "status", int32(vx.StatusOf(err)), "error", err)
		return false
	}
	if err := platform.LogInventory(logger, vc); err != nil {
		logger.Warn("Failed to describe context.", "error", err)
	}

	if err := c.createData(); err != nil {
		logger.Error("Failed to create graph data.", "status", int32(vx.StatusOf(err)), "error", err)
		return false
	}
	logger.Debug("Graph data created.",
		"image", fmt.Sprintf("%dx%d %s", Width, Height, vx.DFImageU8),
		"image_bytes", humanize.Bytes(uint64(c.input.Size())),
		"temp_bytes", humanize.Bytes(uint64(NumUnits*UnitSize)),
	)

	g, err := vc.CreateGraph()
	if err != nil {
		logger.Error("Failed to create graph.", "error", err)
		return false
	}
	c.graph = g

	node, err := c.xyzNode()
	if err != nil {
		logger.Error("Failed to create xyz node.", "kernel", KernelName, "status", int32(vx.StatusOf(err)), "error", err)
		return false
	}
	c.node = node

	if err := g.Verify(); err != nil {
		logger.Error("Graph verification failed.", "status", int32(vx.StatusOf(err)), "error", err)
		return false
	}
	logger.Debug("Graph verified.", "graph", g.ID())

	c.initInput(ctx)
	c.initTemp(ctx)
	return true
}

func (c *Controller) createData() (err error) {
	if c.input, err = c.context.CreateImage(Width, Height, vx.DFImageU8); err != nil {
		return fmt.Errorf("input image: %w", err)
	}
	if c.output, err = c.context.CreateImage(Width, Height, vx.DFImageU8); err != nil {
		return fmt.Errorf("output image: %w", err)
	}
	if c.temp, err = c.context.CreateBuffer(UnitSize, NumUnits); err != nil {
		return fmt.Errorf("temp buffer: %w", err)
	}
	if c.value, err = c.context.CreateScalar(vx.TypeInt32, int32(ScalarValue)); err != nil {
		return fmt.Errorf("value scalar: %w", err)
	}
	return nil
}

// xyzNode instantiates the xyz kernel and binds the four parameters. The
// kernel handle is released as soon as the node exists.
func (c *Controller) xyzNode() (*vx.Node, error) {
	k, err := c.context.GetKernelByName(KernelName)
	if err != nil {
		return nil, err
	}
	node, err := c.graph.CreateNode(k)
	if rerr := k.Release(); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}

	binds := []struct {
		dir vx.Direction
		ref vx.Reference
	}{
		{vx.Input, c.input},
		{vx.Input, c.value},
		{vx.Output, c.output},
		{vx.Bidirectional, c.temp},
	}
	for i, b := range binds {
		if err := node.SetParameterByIndex(i, b.dir, b.ref); err != nil {
			return node, fmt.Errorf("parameter %d: %w", i, err)
		}
	}
	return node, nil
}

func (c *Controller) initInput(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	rect := vx.Rectangle{EndX: Width, EndY: Height}
	data := make([]byte, c.input.ComputePatchSize(rect, 0))
	if err := c.input.CopyPatch(rect, 0, data, vx.ReadOnly); err != nil {
		logger.Error("Failed to read input image.", "error", err)
		return
	}
	for i := range data {
		data[i] = PixelValue
	}
	if err := c.input.CopyPatch(rect, 0, data, vx.WriteOnly); err != nil {
		logger.Error("Failed to write input image.", "error", err)
		return
	}
	logger.Debug("Initialized input image.")
}

func (c *Controller) initTemp(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	buf := make([]int32, NumUnits)
	if err := c.temp.CopyRangeInt32(0, NumUnits, buf, vx.ReadOnly); err != nil {
		logger.Error("Failed to get temp buffer range.", "error", err)
		return
	}
	for i := range buf {
		buf[i] = ElementValue
	}
	if err := c.temp.CopyRangeInt32(0, NumUnits, buf, vx.WriteOnly); err != nil {
		logger.Error("Failed to set temp buffer range.", "error", err)
		return
	}
	logger.Debug("Initialized temp buffer.")
}

// Execute processes the graph once and returns the resulting status.
func (c *Controller) Execute(ctx context.Context) vx.Status {
	logger := ctxlog.FromContext(ctx)
	if c.state != SetUp || c.graph == nil {
		logger.Error("Failed to process graph.", "status", int32(vx.ErrorInvalidGraph), "error", "graph is not set up")
		return vx.ErrorInvalidGraph
	}
	status := vx.StatusOf(c.graph.Process(ctx))
	if status != vx.Success {
		logger.Error("Failed to process graph.", "status", int32(status))
		return status
	}
	logger.Info("Processed graph successfully.", "duration", c.graph.Perf().Tmp)
	return status
}

// TeardownGraph releases the graph, the data objects and the context in that
// order. It always reports true; release failures are joined into
// LastTeardownErr.
func (c *Controller) TeardownGraph(ctx context.Context) bool {
	logger := ctxlog.FromContext(ctx)
	if c.state == TornDown {
		return true
	}

	var errs []error
	release := func(what string, r interface{ Release() error }, present bool) {
		if !present {
			return
		}
		if err := r.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", what, err))
		}
	}
	release("graph", c.graph, c.graph != nil)
	release("input", c.input, c.input != nil)
	release("output", c.output, c.output != nil)
	release("temp", c.temp, c.temp != nil)
	release("value", c.value, c.value != nil)
	release("context", c.context, c.context != nil)

	c.teardownErr = errors.Join(errs...)
	if c.teardownErr != nil {
		logger.Warn("Teardown reported errors.", "error", c.teardownErr)
	}

	c.graph, c.node = nil, nil
	c.input, c.output, c.temp, c.value = nil, nil, nil, nil
	c.context = nil
	c.state = TornDown
	logger.Debug("Graph torn down.")
	return true
}

// Perf returns the graph timings while set up.
func (c *Controller) Perf() (vx.Perf, bool) {
	if c.graph == nil {
		return vx.Perf{}, false
	}
	return c.graph.Perf(), true
}
