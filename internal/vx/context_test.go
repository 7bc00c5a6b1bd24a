package vx_test

import (
	"errors"
	"testing"

	"github.com/specialistvlad/vxgraph/internal/vx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext_Counts(t *testing.T) {
	c := newContext(t)

	assert.Equal(t, 2, c.NumTargets())
	assert.Equal(t, 4, c.NumKernels())
	assert.Zero(t, c.NumModules())
	// kernels are references too
	assert.Equal(t, 4, c.NumReferences())
	assert.NotEmpty(t, c.ID())

	tgt, err := c.Target(0)
	require.NoError(t, err)
	assert.Equal(t, "test.cpu", tgt.Name())
	assert.Equal(t, 0, tgt.Priority())
	table := tgt.Table()
	require.Len(t, table, 4)
	assert.Equal(t, kernelCopy, table[0].Name)
	assert.Equal(t, testBase, table[0].Enum)

	_, err = c.Target(2)
	assert.Equal(t, vx.ErrorInvalidParameters, vx.StatusOf(err))
}

func TestNewContext_PublishFailure(t *testing.T) {
	dup := defaultTarget()
	_, err := vx.NewContext(vx.WithTargets(dup, dup))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestTargetByName(t *testing.T) {
	c := newContext(t)

	tgt, err := c.TargetByName("test.debug")
	require.NoError(t, err)
	assert.Equal(t, "test.debug", tgt.Name())

	tgt, err = c.TargetByName("khronos.any")
	require.NoError(t, err)
	assert.Equal(t, "test.cpu", tgt.Name())

	_, err = c.TargetByName("nope")
	assert.Error(t, err)
}

func TestContextRelease(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		c := newContext(t)
		base := c.NumReferences()
		img := newImage(t, c, 2, 2)
		assert.Equal(t, base+1, c.NumReferences())
		require.NoError(t, img.Release())
		assert.Equal(t, base, c.NumReferences())

		require.NoError(t, c.Release())
		assert.False(t, c.Valid())
	})

	t.Run("leaked references", func(t *testing.T) {
		c := newContext(t)
		img := newImage(t, c, 2, 2)

		err := c.Release()
		assert.Equal(t, vx.ErrorReferenceNonzero, vx.StatusOf(err))
		assert.Nil(t, img.Context())
		assert.Equal(t, vx.ErrorInvalidReference, vx.StatusOf(img.Release()))
	})

	t.Run("released context rejects calls", func(t *testing.T) {
		c := newContext(t)
		require.NoError(t, c.Release())

		_, err := c.CreateGraph()
		assert.Equal(t, vx.ErrorInvalidReference, vx.StatusOf(err))
		_, err = c.CreateImage(1, 1, vx.DFImageU8)
		assert.Equal(t, vx.ErrorInvalidReference, vx.StatusOf(err))
		_, err = c.GetKernelByName(kernelCopy)
		assert.Equal(t, vx.ErrorInvalidReference, vx.StatusOf(err))
		assert.Equal(t, vx.ErrorInvalidReference, vx.StatusOf(c.LoadKernels("any")))
		assert.Equal(t, vx.ErrorInvalidReference, vx.StatusOf(c.Release()))
	})
}

func TestLoadKernels(t *testing.T) {
	mod := &fakeModule{name: "fake.kernel"}
	c := newContext(t, vx.WithCatalog(vx.Catalog{"fake": mod}))

	require.NoError(t, c.LoadKernels("fake"))
	require.NoError(t, c.LoadKernels("fake"))
	assert.Equal(t, 1, mod.publishes)
	assert.Equal(t, 1, c.NumModules())
	assert.Equal(t, []string{"fake"}, c.Modules())
	assert.Equal(t, 5, c.NumKernels())

	require.NoError(t, c.UnloadKernels("fake"))
	assert.Zero(t, mod.unpublishes)
	assert.Equal(t, 5, c.NumKernels())

	require.NoError(t, c.UnloadKernels("fake"))
	assert.Equal(t, 1, mod.unpublishes)
	assert.Zero(t, c.NumModules())
	assert.Equal(t, 4, c.NumKernels())

	assert.Equal(t, vx.Failure, vx.StatusOf(c.UnloadKernels("fake")))
}

func TestLoadKernels_Failures(t *testing.T) {
	broken := &fakeModule{name: "broken", failWith: errors.New("no symbol")}
	c := newContext(t, vx.WithCatalog(vx.Catalog{"broken": broken}))

	assert.Equal(t, vx.Failure, vx.StatusOf(c.LoadKernels("missing")))

	err := c.LoadKernels("broken")
	assert.Equal(t, vx.ErrorInvalidModule, vx.StatusOf(err))
	assert.Zero(t, c.NumModules())
}

func TestContextRelease_UnloadsModules(t *testing.T) {
	mod := &fakeModule{name: "fake.kernel"}
	c := newContext(t, vx.WithCatalog(vx.Catalog{"fake": mod}))
	require.NoError(t, c.LoadKernels("fake"))
	require.NoError(t, c.LoadKernels("fake"))

	require.NoError(t, c.Release())
	assert.Equal(t, 1, mod.unpublishes)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, vx.Success, vx.StatusOf(nil))
	assert.Equal(t, vx.Failure, vx.StatusOf(errors.New("plain")))

	err := vx.Errorf(vx.ErrorInvalidGraph, "graph %d", 3)
	assert.ErrorIs(t, err, vx.ErrorInvalidGraph)
	assert.Equal(t, vx.ErrorInvalidGraph, vx.StatusOf(err))
	assert.Contains(t, err.Error(), "graph 3")
	assert.Nil(t, vx.Success.Err())
	assert.Equal(t, int32(-18), int32(vx.ErrorInvalidGraph))
}
