package vx_test

import (
	"testing"

	"github.com/specialistvlad/vxgraph/internal/testutil"
	"github.com/specialistvlad/vxgraph/internal/vx"
	"github.com/stretchr/testify/require"
)

const (
	kernelCopy = "test.copy"
	kernelFail = "test.fail"
	kernelSink = "test.sink"
	kernelPair = "test.pair"
)

var testBase = vx.KernelBase(0x7, 0x1)

func inImage() vx.ParamSpec {
	return vx.ParamSpec{Direction: vx.Input, Type: vx.TypeImage, State: vx.ParameterRequired}
}

func outImage() vx.ParamSpec {
	return vx.ParamSpec{Direction: vx.Output, Type: vx.TypeImage, State: vx.ParameterRequired}
}

func copyValidate(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	in := params[0].(*vx.Image)
	metas[1].SetImage(in.Width(), in.Height(), in.Format())
	return nil
}

func copyRun(_ *vx.Node, params []vx.Reference) error {
	in, out := params[0].(*vx.Image), params[1].(*vx.Image)
	rect := vx.Rectangle{EndX: in.Width(), EndY: in.Height()}
	src, err := in.MapPatch(rect, 0, vx.ReadOnly)
	if err != nil {
		return err
	}
	defer in.Unmap(src)
	dst, err := out.MapPatch(rect, 0, vx.WriteOnly)
	if err != nil {
		return err
	}
	copy(dst.Data, src.Data)
	return out.Unmap(dst)
}

// testTarget publishes the kernels used across the package tests.
type testTarget struct {
	name    string
	kernels []vx.KernelDescription
}

func (t testTarget) TargetName() string { return t.name }

func (t testTarget) Publish(_ *vx.Context, tgt *vx.Target) error {
	for _, d := range t.kernels {
		if err := tgt.AddKernel(d); err != nil {
			return err
		}
	}
	return nil
}

func defaultTarget() testTarget {
	return testTarget{
		name: "test.cpu",
		kernels: []vx.KernelDescription{
			{
				Enum: testBase + 0, Name: kernelCopy,
				Funcs:  vx.KernelFuncs{Run: copyRun, Validate: copyValidate},
				Params: []vx.ParamSpec{inImage(), outImage()},
			},
			{
				Enum: testBase + 1, Name: kernelFail,
				Funcs: vx.KernelFuncs{
					Run:      func(*vx.Node, []vx.Reference) error { return vx.Errorf(vx.ErrorNotImplemented, "boom") },
					Validate: copyValidate,
				},
				Params: []vx.ParamSpec{inImage(), outImage()},
			},
			{
				Enum: testBase + 2, Name: kernelSink,
				Funcs:  vx.KernelFuncs{Run: func(*vx.Node, []vx.Reference) error { return nil }},
				Params: []vx.ParamSpec{inImage()},
			},
			{
				Enum: testBase + 3, Name: kernelPair,
				Funcs: vx.KernelFuncs{
					Run:      copyRun,
					Validate: copyValidate,
				},
				Params: []vx.ParamSpec{
					inImage(),
					outImage(),
					{Direction: vx.Input, Type: vx.TypeScalar, State: vx.ParameterOptional},
				},
			},
		},
	}
}

func newContext(t *testing.T, opts ...vx.ContextOption) *vx.Context {
	t.Helper()
	logger, _ := testutil.NewLogger(t)
	all := append([]vx.ContextOption{
		vx.WithLogger(logger),
		vx.WithTargets(defaultTarget(), testTarget{name: "test.debug"}),
		vx.WithWorkers(2),
	}, opts...)
	c, err := vx.NewContext(all...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if c.Valid() {
			_ = c.Release()
		}
	})
	return c
}

// addNode creates a node of the named kernel and binds params with the
// directions of its signature. nil entries are left unset.
func addNode(t *testing.T, g *vx.Graph, name string, params ...vx.Reference) *vx.Node {
	t.Helper()
	k, err := g.Context().GetKernelByName(name)
	require.NoError(t, err)
	defer k.Release()

	n, err := g.CreateNode(k)
	require.NoError(t, err)
	for i, p := range params {
		if p == nil {
			continue
		}
		sig, err := k.Param(i)
		require.NoError(t, err)
		require.NoError(t, n.SetParameterByIndex(i, sig.Direction, p))
	}
	return n
}

func newImage(t *testing.T, c *vx.Context, w, h int) *vx.Image {
	t.Helper()
	img, err := c.CreateImage(w, h, vx.DFImageU8)
	require.NoError(t, err)
	return img
}

// fakeModule publishes one user kernel and counts its calls.
type fakeModule struct {
	name        string
	publishes   int
	unpublishes int
	failWith    error
}

func (m *fakeModule) Publish(c *vx.Context) error {
	m.publishes++
	if m.failWith != nil {
		return m.failWith
	}
	k, err := c.AddUserKernel(m.name, testBase+0x100, vx.KernelFuncs{Run: copyRun, Validate: copyValidate}, 2)
	if err != nil {
		return err
	}
	if err := k.AddParameter(0, vx.Input, vx.TypeImage, vx.ParameterRequired); err != nil {
		return err
	}
	if err := k.AddParameter(1, vx.Output, vx.TypeImage, vx.ParameterRequired); err != nil {
		return err
	}
	return k.Finalize()
}

func (m *fakeModule) Unpublish(c *vx.Context) error {
	m.unpublishes++
	k, err := c.GetKernelByName(m.name)
	if err != nil {
		return err
	}
	if err := c.RemoveKernel(k); err != nil {
		return err
	}
	return k.Release()
}
