package demo_test

import (
	"context"
	"strings"
	"testing"

	"github.com/specialistvlad/vxgraph/internal/demo"
	"github.com/specialistvlad/vxgraph/internal/events"
	"github.com/specialistvlad/vxgraph/internal/kernels/xyz"
	"github.com/specialistvlad/vxgraph/internal/testutil"
	"github.com/specialistvlad/vxgraph/internal/vx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rejectingModule publishes a kernel under the xyz name whose validator
// always fails.
type rejectingModule struct{}

func (rejectingModule) Publish(c *vx.Context) error {
	k, err := c.AddUserKernel(xyz.KernelName, xyz.KernelKHRXYZ, vx.KernelFuncs{
		Run: func(*vx.Node, []vx.Reference) error { return nil },
		Validate: func(*vx.Node, []vx.Reference, []*vx.MetaFormat) error {
			return vx.Errorf(vx.ErrorInvalidValue, "rejected")
		},
	}, 4)
	if err != nil {
		return err
	}
	sig := []struct {
		dir vx.Direction
		typ vx.Type
	}{
		{vx.Input, vx.TypeImage},
		{vx.Input, vx.TypeScalar},
		{vx.Output, vx.TypeImage},
		{vx.Output, vx.TypeArray},
	}
	for i, p := range sig {
		if err := k.AddParameter(i, p.dir, p.typ, vx.ParameterRequired); err != nil {
			return err
		}
	}
	return k.Finalize()
}

func (rejectingModule) Unpublish(c *vx.Context) error {
	k, err := c.GetKernelByName(xyz.KernelName)
	if err != nil {
		return err
	}
	if err := c.RemoveKernel(k); err != nil {
		return err
	}
	return k.Release()
}

// emptyModule loads but publishes nothing.
type emptyModule struct{}

func (emptyModule) Publish(*vx.Context) error   { return nil }
func (emptyModule) Unpublish(*vx.Context) error { return nil }

func readInput(t *testing.T, c *demo.Controller) []byte {
	t.Helper()
	rect := vx.Rectangle{EndX: demo.Width, EndY: demo.Height}
	data := make([]byte, c.Input().ComputePatchSize(rect, 0))
	require.NoError(t, c.Input().CopyPatch(rect, 0, data, vx.ReadOnly))
	return data
}

func readTemp(t *testing.T, c *demo.Controller) []int32 {
	t.Helper()
	buf := make([]int32, demo.NumUnits)
	require.NoError(t, c.Temp().CopyRangeInt32(0, demo.NumUnits, buf, vx.ReadOnly))
	return buf
}

func TestSetupGraph_RoundTrip(t *testing.T) {
	ctx, _ := testutil.Context(t)
	c := demo.New(demo.Config{})
	t.Cleanup(func() { c.TeardownGraph(ctx) })

	require.True(t, c.SetupGraph(ctx))
	assert.Equal(t, demo.SetUp, c.State())
	assert.True(t, c.Graph().Verified())

	data := readInput(t, c)
	require.Len(t, data, demo.Width*demo.Height)
	for i, v := range data {
		if v != demo.PixelValue {
			t.Fatalf("pixel %d = %d, want %d", i, v, demo.PixelValue)
		}
	}

	temp := readTemp(t, c)
	for i, v := range temp {
		if v != demo.ElementValue {
			t.Fatalf("temp[%d] = %d, want %d", i, v, demo.ElementValue)
		}
	}

	value, err := c.Value().Int32()
	require.NoError(t, err)
	assert.EqualValues(t, demo.ScalarValue, value)
}

func TestSetupGraph_LogsInventory(t *testing.T) {
	ctx, logs := testutil.Context(t)
	c := demo.New(demo.Config{})
	t.Cleanup(func() { c.TeardownGraph(ctx) })

	require.True(t, c.SetupGraph(ctx))
	out := logs.String()
	assert.Contains(t, out, "Kernels available.")
	assert.Contains(t, out, "Targets available.")
	assert.Contains(t, out, "target=khronos.c_model")
	assert.Contains(t, out, "name="+xyz.KernelName)
	assert.Contains(t, out, "Initialized input image.")
	assert.Contains(t, out, "Initialized temp buffer.")
}

func TestSetupGraph_ParameterBinding(t *testing.T) {
	ctx, _ := testutil.Context(t)
	c := demo.New(demo.Config{})
	t.Cleanup(func() { c.TeardownGraph(ctx) })
	require.True(t, c.SetupGraph(ctx))

	n := c.Node()
	require.NotNil(t, n)
	assert.Equal(t, xyz.KernelName, n.KernelName())

	want := []struct {
		ref vx.Reference
		dir vx.Direction
	}{
		{c.Input(), vx.Input},
		{c.Value(), vx.Input},
		{c.Output(), vx.Output},
		{c.Temp(), vx.Bidirectional},
	}
	require.Equal(t, len(want), n.NumParams())
	for i, w := range want {
		ref, err := n.Parameter(i)
		require.NoError(t, err)
		assert.Equal(t, vx.ReferenceID(w.ref), vx.ReferenceID(ref), "parameter %d", i)
		dir, err := n.Direction(i)
		require.NoError(t, err)
		assert.Equal(t, w.dir, dir, "parameter %d", i)
	}
}

func TestSetupGraph_LoadFailure(t *testing.T) {
	ctx, logs := testutil.Context(t)
	c := demo.New(demo.Config{Catalog: vx.Catalog{}})

	assert.False(t, c.SetupGraph(ctx))
	assert.Nil(t, c.Input())
	assert.Nil(t, c.Output())
	assert.Nil(t, c.Temp())
	assert.Nil(t, c.Value())
	assert.Nil(t, c.Graph())
	require.NotNil(t, c.Context())
	assert.Equal(t, c.Context().NumKernels(), c.Context().NumReferences(), "no data objects were created")
	assert.Contains(t, logs.String(), "Failed to load extension.")

	assert.True(t, c.TeardownGraph(ctx))
	assert.NoError(t, c.LastTeardownErr())
	assert.Equal(t, demo.TornDown, c.State())
}

func TestSetupGraph_KernelMissing(t *testing.T) {
	ctx, logs := testutil.Context(t)
	c := demo.New(demo.Config{Catalog: vx.Catalog{xyz.ModuleName: emptyModule{}}})
	t.Cleanup(func() { c.TeardownGraph(ctx) })

	assert.False(t, c.SetupGraph(ctx))
	assert.Nil(t, c.Node())
	require.NotNil(t, c.Graph())
	assert.Zero(t, c.Graph().NumNodes())
	assert.Contains(t, logs.String(), "Failed to create xyz node.")
	assert.NotContains(t, logs.String(), "Graph verification failed.")
}

func TestSetupGraph_VerifyFailure(t *testing.T) {
	ctx, logs := testutil.Context(t)
	c := demo.New(demo.Config{Catalog: vx.Catalog{xyz.ModuleName: rejectingModule{}}})

	assert.False(t, c.SetupGraph(ctx))
	assert.Contains(t, logs.String(), "Graph verification failed.")
	assert.NotContains(t, logs.String(), "Initialized input image.")

	// resources stay allocated and untouched until teardown
	require.NotNil(t, c.Input())
	for _, v := range readInput(t, c) {
		require.Zero(t, v)
	}
	for _, v := range readTemp(t, c) {
		require.Zero(t, v)
	}

	assert.Equal(t, vx.ErrorInvalidValue, c.Execute(ctx))

	assert.True(t, c.TeardownGraph(ctx))
	assert.NoError(t, c.LastTeardownErr())
}

func TestExecute(t *testing.T) {
	ctx, logs := testutil.Context(t)
	c := demo.New(demo.Config{Workers: 2})
	t.Cleanup(func() { c.TeardownGraph(ctx) })
	require.True(t, c.SetupGraph(ctx))

	require.Equal(t, vx.Success, c.Execute(ctx))
	assert.Contains(t, logs.String(), "Processed graph successfully.")

	rect := vx.Rectangle{EndX: demo.Width, EndY: demo.Height}
	out := make([]byte, demo.Width*demo.Height)
	require.NoError(t, c.Output().CopyPatch(rect, 0, out, vx.ReadOnly))
	for i, v := range out {
		if v != demo.PixelValue+demo.ScalarValue {
			t.Fatalf("output pixel %d = %d", i, v)
		}
	}

	temp := readTemp(t, c)
	rowSum := int32((demo.PixelValue + demo.ScalarValue) * demo.Width)
	for y := 0; y < demo.Height; y++ {
		require.Equal(t, rowSum, temp[y], "row %d", y)
	}
	for i := demo.Height; i < demo.NumUnits; i++ {
		require.EqualValues(t, demo.ElementValue, temp[i], "item %d past the rows is untouched", i)
	}

	perf, ok := c.Perf()
	require.True(t, ok)
	assert.EqualValues(t, 1, perf.Num)

	require.Equal(t, vx.Success, c.Execute(ctx), "the graph can be processed again")
	perf, _ = c.Perf()
	assert.EqualValues(t, 2, perf.Num)
}

func TestExecute_TornDown(t *testing.T) {
	ctx, logs := testutil.Context(t)
	c := demo.New(demo.Config{})

	assert.Equal(t, vx.ErrorInvalidGraph, c.Execute(ctx))
	assert.Contains(t, logs.String(), "Failed to process graph.")
	_, ok := c.Perf()
	assert.False(t, ok)
}

func TestExecute_EmitsEvents(t *testing.T) {
	ctx, _ := testutil.Context(t)
	q := events.NewQueue(16)
	c := demo.New(demo.Config{Sink: q})
	t.Cleanup(func() { c.TeardownGraph(ctx) })
	require.True(t, c.SetupGraph(ctx))
	require.Equal(t, vx.Success, c.Execute(ctx))

	var kinds []events.Kind
	for {
		e, ok := q.Poll()
		if !ok {
			break
		}
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, events.NodeCompleted)
	assert.Contains(t, kinds, events.GraphCompleted)
}

func TestTeardownGraph(t *testing.T) {
	ctx, _ := testutil.Context(t)
	c := demo.New(demo.Config{})
	require.True(t, c.SetupGraph(ctx))
	vc, input := c.Context(), c.Input()

	assert.True(t, c.TeardownGraph(ctx))
	assert.NoError(t, c.LastTeardownErr())
	assert.Equal(t, demo.TornDown, c.State())
	assert.False(t, vc.Valid())
	assert.Nil(t, c.Graph())
	assert.Nil(t, c.Context())

	buf := make([]byte, 4)
	err := input.CopyPatch(vx.Rectangle{EndX: 2, EndY: 2}, 0, buf, vx.ReadOnly)
	assert.Equal(t, vx.ErrorInvalidReference, vx.StatusOf(err), "data is gone with its context")

	assert.True(t, c.TeardownGraph(ctx), "teardown twice is a no-op")
}

func TestSetupTeardownCycles(t *testing.T) {
	ctx, _ := testutil.Context(t)
	c := demo.New(demo.Config{})

	for i := 0; i < 3; i++ {
		require.True(t, c.SetupGraph(ctx), "cycle %d", i)
		require.Equal(t, vx.Success, c.Execute(ctx), "cycle %d", i)
		require.True(t, c.TeardownGraph(ctx), "cycle %d", i)
		require.NoError(t, c.LastTeardownErr())
	}
}

func TestSetupGraph_Twice(t *testing.T) {
	ctx, logs := testutil.Context(t)
	c := demo.New(demo.Config{})
	t.Cleanup(func() { c.TeardownGraph(ctx) })

	require.True(t, c.SetupGraph(ctx))
	first := c.Context()
	assert.True(t, c.SetupGraph(ctx))
	assert.Same(t, first, c.Context())
	assert.Contains(t, logs.String(), "Graph already set up.")
}

func TestLifecycle(t *testing.T) {
	ctx, logs := testutil.Context(t)
	c := demo.New(demo.Config{})

	c.OnCreate(ctx)
	require.True(t, c.OnResume(ctx))
	assert.Equal(t, vx.Success, c.OnClick(ctx))
	assert.True(t, c.OnPause(ctx))
	c.OnStop(ctx)

	out := logs.String()
	assert.Less(t, strings.Index(out, "Controller created."), strings.Index(out, "Graph verified."))
	assert.Less(t, strings.Index(out, "Processed graph successfully."), strings.Index(out, "Graph torn down."))
	assert.Contains(t, out, "Controller stopped.")
}

func TestOnStop_TearsDown(t *testing.T) {
	ctx, _ := testutil.Context(t)
	c := demo.New(demo.Config{})
	require.True(t, c.OnResume(ctx))

	c.OnStop(ctx)
	assert.Equal(t, demo.TornDown, c.State())
}

func TestAbout(t *testing.T) {
	info := demo.About()
	assert.Equal(t, demo.Name, info.Name)
	assert.Equal(t, "Copyright", info.Title)
	assert.NotEmpty(t, info.Version)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "set_up", demo.SetUp.String())
	assert.Equal(t, "torn_down", demo.TornDown.String())
}

func TestExecute_CanceledContext(t *testing.T) {
	ctx, _ := testutil.Context(t)
	c := demo.New(demo.Config{})
	t.Cleanup(func() { c.TeardownGraph(ctx) })
	require.True(t, c.SetupGraph(ctx))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.NotEqual(t, vx.Success, c.Execute(canceled))
}
