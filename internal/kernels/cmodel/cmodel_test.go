package cmodel_test

import (
	"context"
	"testing"

	"github.com/specialistvlad/vxgraph/internal/kernels/cmodel"
	"github.com/specialistvlad/vxgraph/internal/testutil"
	"github.com/specialistvlad/vxgraph/internal/vx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T) *vx.Context {
	t.Helper()
	logger, _ := testutil.NewLogger(t)
	c, err := vx.NewContext(
		vx.WithLogger(logger),
		vx.WithTargets(cmodel.Target{}, cmodel.DebugTarget{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Release() })
	return c
}

func addNode(t *testing.T, g *vx.Graph, name string, params ...vx.Reference) *vx.Node {
	t.Helper()
	c := g.Context()
	k, err := c.GetKernelByName(name)
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

func pixels(t *testing.T, img *vx.Image) []byte {
	t.Helper()
	rect := vx.Rectangle{EndX: img.Width(), EndY: img.Height()}
	buf := make([]byte, img.ComputePatchSize(rect, 0))
	require.NoError(t, img.CopyPatch(rect, 0, buf, vx.ReadOnly))
	return buf
}

func image(t *testing.T, c *vx.Context, w, h int, pix []byte) *vx.Image {
	t.Helper()
	img, err := c.CreateImage(w, h, vx.DFImageU8)
	require.NoError(t, err)
	if pix != nil {
		require.NoError(t, img.CopyPatch(vx.Rectangle{EndX: w, EndY: h}, 0, pix, vx.WriteOnly))
	}
	return img
}

func TestTargets(t *testing.T) {
	c := newContext(t)
	require.Equal(t, 2, c.NumTargets())

	first, err := c.Target(0)
	require.NoError(t, err)
	assert.Equal(t, cmodel.TargetName, first.Name())
	assert.Equal(t, 4, first.NumKernels())

	debugTarget, err := c.Target(1)
	require.NoError(t, err)
	assert.Equal(t, cmodel.DebugTargetName, debugTarget.Name())
	assert.Zero(t, debugTarget.NumKernels())
}

func TestBuiltinsCannotBeRemoved(t *testing.T) {
	c := newContext(t)
	k, err := c.GetKernelByEnum(cmodel.KernelNot)
	require.NoError(t, err)
	defer k.Release()

	err = c.RemoveKernel(k)
	assert.Equal(t, vx.ErrorNotSupported, vx.StatusOf(err))
	assert.Equal(t, 4, c.NumKernels())
}

func TestAbsDiffNotChain(t *testing.T) {
	c := newContext(t)
	g, err := c.CreateGraph()
	require.NoError(t, err)

	a := image(t, c, 3, 1, []byte{10, 200, 7})
	b := image(t, c, 3, 1, []byte{15, 100, 7})
	diff, err := g.CreateVirtualImage(0, 0, vx.DFImageVirt)
	require.NoError(t, err)
	out := image(t, c, 3, 1, nil)

	addNode(t, g, cmodel.NameAbsDiff, a, b, diff)
	addNode(t, g, cmodel.NameNot, diff, out)

	require.NoError(t, g.Process(context.Background()))
	assert.Equal(t, []byte{250, 155, 255}, pixels(t, out))
}

func TestAbsDiff_S16(t *testing.T) {
	c := newContext(t)
	g, err := c.CreateGraph()
	require.NoError(t, err)

	a, err := c.CreateImage(2, 1, vx.DFImageS16)
	require.NoError(t, err)
	b, err := c.CreateImage(2, 1, vx.DFImageS16)
	require.NoError(t, err)
	out, err := c.CreateImage(2, 1, vx.DFImageS16)
	require.NoError(t, err)
	rect := vx.Rectangle{EndX: 2, EndY: 1}
	// -32768 and 5 against 32767 and -5
	require.NoError(t, a.CopyPatch(rect, 0, []byte{0x00, 0x80, 5, 0}, vx.WriteOnly))
	require.NoError(t, b.CopyPatch(rect, 0, []byte{0xff, 0x7f, 0xfb, 0xff}, vx.WriteOnly))

	addNode(t, g, cmodel.NameAbsDiff, a, b, out)
	require.NoError(t, g.Process(context.Background()))
	assert.Equal(t, []byte{0xff, 0x7f, 10, 0}, pixels(t, out))
}

func TestAbsDiff_RejectsMixedFormats(t *testing.T) {
	c := newContext(t)
	g, err := c.CreateGraph()
	require.NoError(t, err)

	a := image(t, c, 2, 2, nil)
	b, err := c.CreateImage(2, 2, vx.DFImageS16)
	require.NoError(t, err)
	out := image(t, c, 2, 2, nil)
	addNode(t, g, cmodel.NameAbsDiff, a, b, out)

	assert.Equal(t, vx.ErrorInvalidFormat, vx.StatusOf(g.Verify()))
}

func TestBox3x3(t *testing.T) {
	c := newContext(t)
	g, err := c.CreateGraph()
	require.NoError(t, err)

	in := image(t, c, 5, 5, nil)
	require.NoError(t, in.Fill(42))
	out := image(t, c, 5, 5, nil)
	addNode(t, g, cmodel.NameBox3x3, in, out)

	require.NoError(t, g.Process(context.Background()))
	for i, v := range pixels(t, out) {
		assert.Equal(t, byte(42), v, "pixel %d", i)
	}
}

func TestScaleImage(t *testing.T) {
	tests := []struct {
		name   string
		interp int32
	}{
		{name: "default"},
		{name: "nearest", interp: cmodel.InterpolationNearest},
		{name: "bilinear", interp: cmodel.InterpolationBilinear},
		{name: "area", interp: cmodel.InterpolationArea},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newContext(t)
			g, err := c.CreateGraph()
			require.NoError(t, err)

			in := image(t, c, 8, 6, nil)
			require.NoError(t, in.Fill(77))
			out := image(t, c, 4, 3, nil)
			var interp vx.Reference
			if tc.interp != 0 {
				s, err := c.CreateScalar(vx.TypeEnum, tc.interp)
				require.NoError(t, err)
				interp = s
			}
			addNode(t, g, cmodel.NameScaleImage, in, out, interp)

			require.NoError(t, g.Process(context.Background()))
			for i, v := range pixels(t, out) {
				assert.Equal(t, byte(77), v, "pixel %d", i)
			}
		})
	}
}

func TestScaleImage_UnknownInterpolation(t *testing.T) {
	c := newContext(t)
	g, err := c.CreateGraph()
	require.NoError(t, err)

	in := image(t, c, 4, 4, nil)
	out := image(t, c, 2, 2, nil)
	s, err := c.CreateScalar(vx.TypeEnum, int32(1))
	require.NoError(t, err)
	addNode(t, g, cmodel.NameScaleImage, in, out, s)

	assert.Equal(t, vx.ErrorInvalidValue, vx.StatusOf(g.Verify()))
}
