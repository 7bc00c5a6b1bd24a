// Package xyz is the example extension module. It publishes one user kernel,
// org.khronos.example.xyz, which offsets an image by a scalar and reports row
// sums into an array.
package xyz

import (
	"fmt"

	"github.com/specialistvlad/vxgraph/internal/vx"
)

const (
	// KernelName is the qualified name of the kernel.
	KernelName = "org.khronos.example.xyz"
	// ModuleName is the name passed to LoadKernels.
	ModuleName = "xyz"

	// DataArea is the local data size of every xyz node.
	DataArea = 1024
	// TempNumItems is the minimum number of items of the temp array.
	TempNumItems = 374
	// ValueMin and ValueMax exclusively bound the scalar value.
	ValueMin = -10
	ValueMax = 10
)

// KernelKHRXYZ is the kernel enumeration.
var KernelKHRXYZ = vx.KernelBase(vx.VendorKhronos, vx.LibraryXYZ) + 0x0

// Parameter indices.
const (
	ParamInput = iota
	ParamValue
	ParamOutput
	ParamTemp
	numParams
)

// Module publishes the xyz kernel as a user kernel.
type Module struct{}

// Publish implements vx.Module.
func (Module) Publish(c *vx.Context) (err error) {
	k, err := c.AddUserKernel(KernelName, KernelKHRXYZ, vx.KernelFuncs{
		Run:          run,
		Validate:     validate,
		Initialize:   initialize,
		Deinitialize: deinitialize,
	}, numParams)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = c.RemoveKernel(k)
		}
	}()

	sig := []struct {
		dir vx.Direction
		typ vx.Type
	}{
		ParamInput:  {vx.Input, vx.TypeImage},
		ParamValue:  {vx.Input, vx.TypeScalar},
		ParamOutput: {vx.Output, vx.TypeImage},
		ParamTemp:   {vx.Output, vx.TypeArray},
	}
	for i, p := range sig {
		if err := k.AddParameter(i, p.dir, p.typ, vx.ParameterRequired); err != nil {
			return fmt.Errorf("parameter %d: %w", i, err)
		}
	}
	if err := k.SetLocalDataSize(DataArea); err != nil {
		return err
	}
	return k.Finalize()
}

// Unpublish implements vx.Module.
func (Module) Unpublish(c *vx.Context) error {
	k, err := c.GetKernelByName(KernelName)
	if err != nil {
		return err
	}
	if err := c.RemoveKernel(k); err != nil {
		return err
	}
	return k.Release()
}

// NewNode adds an xyz node to g. The module must be loaded. The scalar
// holding value is owned by the node.
func NewNode(g *vx.Graph, input *vx.Image, value int32, output *vx.Image, temp *vx.Array) (*vx.Node, error) {
	c := g.Context()
	if c == nil {
		return nil, vx.Errorf(vx.ErrorInvalidReference, "graph is released")
	}
	k, err := c.GetKernelByName(KernelName)
	if err != nil {
		return nil, err
	}
	defer k.Release()

	n, err := g.CreateNode(k)
	if err != nil {
		return nil, err
	}
	scalar, err := c.CreateScalar(vx.TypeInt32, value)
	if err != nil {
		_ = g.RemoveNode(n)
		return nil, err
	}
	defer scalar.Release()

	binds := []struct {
		dir vx.Direction
		ref vx.Reference
	}{
		ParamInput:  {vx.Input, input},
		ParamValue:  {vx.Input, scalar},
		ParamOutput: {vx.Output, output},
		ParamTemp:   {vx.Output, temp},
	}
	for i, b := range binds {
		if err := n.SetParameterByIndex(i, b.dir, b.ref); err != nil {
			_ = g.RemoveNode(n)
			return nil, fmt.Errorf("xyz parameter %d: %w", i, err)
		}
	}
	return n, nil
}
