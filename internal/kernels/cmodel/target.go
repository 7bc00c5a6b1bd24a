// Package cmodel is the default CPU target. It carries the built-in vision
// kernels every context starts with.
package cmodel

import "github.com/specialistvlad/vxgraph/internal/vx"

const (
	// TargetName is the qualified name of the CPU target.
	TargetName = "khronos.c_model"
	// DebugTargetName is the target debug modules publish to.
	DebugTargetName = "khronos.debug"
)

var base = vx.KernelBase(vx.VendorKhronos, vx.LibraryBase)

// Built-in kernel enumerations.
var (
	KernelScaleImage = base + 0x07
	KernelAbsDiff    = base + 0x0B
	KernelBox3x3     = base + 0x12
	KernelNot        = base + 0x1B
)

// Built-in kernel names.
const (
	NameScaleImage = "org.khronos.openvx.scale_image"
	NameAbsDiff    = "org.khronos.openvx.absdiff"
	NameBox3x3     = "org.khronos.openvx.box_3x3"
	NameNot        = "org.khronos.openvx.not"
)

func in(t vx.Type) vx.ParamSpec {
	return vx.ParamSpec{Direction: vx.Input, Type: t, State: vx.ParameterRequired}
}

func out(t vx.Type) vx.ParamSpec {
	return vx.ParamSpec{Direction: vx.Output, Type: t, State: vx.ParameterRequired}
}

var kernels = []vx.KernelDescription{
	{
		Enum: KernelAbsDiff, Name: NameAbsDiff,
		Funcs:  vx.KernelFuncs{Run: absDiff, Validate: validateAbsDiff},
		Params: []vx.ParamSpec{in(vx.TypeImage), in(vx.TypeImage), out(vx.TypeImage)},
	},
	{
		Enum: KernelNot, Name: NameNot,
		Funcs:  vx.KernelFuncs{Run: not, Validate: validateU8Filter},
		Params: []vx.ParamSpec{in(vx.TypeImage), out(vx.TypeImage)},
	},
	{
		Enum: KernelBox3x3, Name: NameBox3x3,
		Funcs:  vx.KernelFuncs{Run: box3x3, Validate: validateU8Filter},
		Params: []vx.ParamSpec{in(vx.TypeImage), out(vx.TypeImage)},
	},
	{
		Enum: KernelScaleImage, Name: NameScaleImage,
		Funcs: vx.KernelFuncs{Run: scaleImage, Validate: validateScaleImage},
		Params: []vx.ParamSpec{
			in(vx.TypeImage),
			out(vx.TypeImage),
			{Direction: vx.Input, Type: vx.TypeScalar, State: vx.ParameterOptional},
		},
	},
}

// Target publishes the built-in kernels on khronos.c_model.
type Target struct{}

// TargetName implements vx.TargetProvider.
func (Target) TargetName() string { return TargetName }

// Publish implements vx.TargetProvider.
func (Target) Publish(_ *vx.Context, t *vx.Target) error {
	for _, d := range kernels {
		if err := t.AddKernel(d); err != nil {
			return err
		}
	}
	return nil
}

// DebugTarget is an empty target that debug modules fill when loaded.
type DebugTarget struct{}

// TargetName implements vx.TargetProvider.
func (DebugTarget) TargetName() string { return DebugTargetName }

// Publish implements vx.TargetProvider.
func (DebugTarget) Publish(*vx.Context, *vx.Target) error { return nil }
