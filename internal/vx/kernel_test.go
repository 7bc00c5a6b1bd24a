package vx_test

import (
	"testing"

	"github.com/specialistvlad/vxgraph/internal/vx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserKernelLifecycle(t *testing.T) {
	c := newContext(t)
	funcs := vx.KernelFuncs{Run: copyRun, Validate: copyValidate}

	k, err := c.AddUserKernel("test.debug:user.copy", testBase+0x200, funcs, 2)
	require.NoError(t, err)
	assert.Equal(t, "test.debug", k.Target().Name())
	assert.False(t, k.Enabled())

	_, err = c.GetKernelByName("user.copy")
	assert.Error(t, err, "unfinalized kernels are not visible")

	require.NoError(t, k.AddParameter(0, vx.Input, vx.TypeImage, vx.ParameterRequired))
	err = k.Finalize()
	assert.Equal(t, vx.ErrorInvalidParameters, vx.StatusOf(err))

	assert.Equal(t, vx.ErrorInvalidParameters, vx.StatusOf(k.AddParameter(2, vx.Input, vx.TypeImage, vx.ParameterRequired)))
	require.NoError(t, k.AddParameter(1, vx.Output, vx.TypeImage, vx.ParameterRequired))
	require.NoError(t, k.SetLocalDataSize(64))
	require.NoError(t, k.Finalize())
	assert.True(t, k.Enabled())

	assert.Equal(t, vx.ErrorNotSupported, vx.StatusOf(k.AddParameter(1, vx.Input, vx.TypeImage, vx.ParameterRequired)))
	assert.Equal(t, vx.ErrorNotSupported, vx.StatusOf(k.SetLocalDataSize(1)))

	found, err := c.GetKernelByName("test.debug:user.copy")
	require.NoError(t, err)
	assert.Same(t, k, found)
	assert.Equal(t, 64, found.LocalDataSize())
	require.NoError(t, found.Release())

	byEnum, err := c.GetKernelByEnum(testBase + 0x200)
	require.NoError(t, err)
	assert.Same(t, k, byEnum)
	require.NoError(t, byEnum.Release())

	require.NoError(t, c.RemoveKernel(k))
	assert.False(t, k.Enabled())
	_, err = c.GetKernelByName("user.copy")
	assert.Error(t, err)
}

func TestAddUserKernel_Errors(t *testing.T) {
	c := newContext(t)
	funcs := vx.KernelFuncs{Run: copyRun}

	_, err := c.AddUserKernel("nowhere:user.k", 1, funcs, 1)
	assert.Equal(t, vx.ErrorNoResources, vx.StatusOf(err))

	_, err = c.AddUserKernel("user.k", 1, vx.KernelFuncs{}, 1)
	assert.Equal(t, vx.ErrorInvalidParameters, vx.StatusOf(err))

	_, err = c.AddUserKernel(kernelCopy, 1, funcs, 1)
	assert.Equal(t, vx.ErrorInvalidParameters, vx.StatusOf(err), "duplicate name")
}

func TestRemoveKernel_Builtin(t *testing.T) {
	c := newContext(t)
	k, err := c.GetKernelByName(kernelCopy)
	require.NoError(t, err)
	defer k.Release()

	assert.Equal(t, vx.ErrorNotSupported, vx.StatusOf(c.RemoveKernel(k)))
	assert.True(t, k.Enabled())
}

func TestKernelParam(t *testing.T) {
	c := newContext(t)
	k, err := c.GetKernelByName(kernelPair)
	require.NoError(t, err)
	defer k.Release()

	assert.Equal(t, 3, k.NumParams())
	p, err := k.Param(2)
	require.NoError(t, err)
	assert.Equal(t, vx.ParameterOptional, p.State)
	assert.Equal(t, vx.TypeScalar, p.Type)

	_, err = k.Param(3)
	assert.Error(t, err)
}

func TestNodeKeepsKernelAfterRelease(t *testing.T) {
	c := newContext(t)
	g, err := c.CreateGraph()
	require.NoError(t, err)

	k, err := c.GetKernelByName(kernelCopy)
	require.NoError(t, err)
	n, err := g.CreateNode(k)
	require.NoError(t, err)
	require.NoError(t, k.Release())

	assert.Equal(t, kernelCopy, n.KernelName())
	assert.Equal(t, testBase, n.KernelEnum())
	assert.Equal(t, 2, n.NumParams())
	assert.Equal(t, "test.cpu", n.Target().Name())

	in, out := newImage(t, c, 4, 4), newImage(t, c, 4, 4)
	require.NoError(t, n.SetParameterByIndex(0, vx.Input, in))
	require.NoError(t, n.SetParameterByIndex(1, vx.Output, out))
	require.NoError(t, g.Verify())
}
