// Package debug is the debugging extension module: it fills, checks,
// copies and compares objects and moves images and arrays between graphs
// and files.
package debug

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/vxgraph/internal/vx"
)

const (
	// ModuleName is the name passed to LoadKernels.
	ModuleName = "openvx-debug"
	// TargetName is the target the module publishes to when the context
	// has one; otherwise the default target is used.
	TargetName = "khronos.debug"
)

var base = vx.KernelBase(vx.VendorKhronos, vx.LibraryDebug)

// Kernel enumerations.
var (
	KernelFWriteImage   = base + 0x0
	KernelFWriteArray   = base + 0x1
	KernelFReadImage    = base + 0x2
	KernelFReadArray    = base + 0x3
	KernelCheckImage    = base + 0x4
	KernelCheckArray    = base + 0x5
	KernelCopyImage     = base + 0x6
	KernelCopyArray     = base + 0x7
	KernelFillImage     = base + 0x8
	KernelCompareImages = base + 0x9
)

// Kernel names.
const (
	NameFWriteImage   = "org.khronos.debug.fwrite_image"
	NameFWriteArray   = "org.khronos.debug.fwrite_array"
	NameFReadImage    = "org.khronos.debug.fread_image"
	NameFReadArray    = "org.khronos.debug.fread_array"
	NameCheckImage    = "org.khronos.debug.check_image"
	NameCheckArray    = "org.khronos.debug.check_array"
	NameCopyImage     = "org.khronos.debug.copy_image"
	NameCopyArray     = "org.khronos.debug.copy_array"
	NameFillImage     = "org.khronos.debug.fill_image"
	NameCompareImages = "org.khronos.debug.compare_images"
)

func in(t vx.Type) vx.ParamSpec {
	return vx.ParamSpec{Direction: vx.Input, Type: t, State: vx.ParameterRequired}
}

func out(t vx.Type) vx.ParamSpec {
	return vx.ParamSpec{Direction: vx.Output, Type: t, State: vx.ParameterRequired}
}

var kernels = []vx.KernelDescription{
	{
		Enum: KernelFWriteImage, Name: NameFWriteImage,
		Funcs:  vx.KernelFuncs{Run: fwriteImage, Validate: validateFWriteImage},
		Params: []vx.ParamSpec{in(vx.TypeImage), in(vx.TypeArray)},
	},
	{
		Enum: KernelFWriteArray, Name: NameFWriteArray,
		Funcs:  vx.KernelFuncs{Run: fwriteArray, Validate: validateFWriteArray},
		Params: []vx.ParamSpec{in(vx.TypeArray), in(vx.TypeArray)},
	},
	{
		Enum: KernelFReadImage, Name: NameFReadImage,
		Funcs:  vx.KernelFuncs{Run: freadImage, Validate: validateFReadImage},
		Params: []vx.ParamSpec{in(vx.TypeArray), out(vx.TypeImage)},
	},
	{
		Enum: KernelFReadArray, Name: NameFReadArray,
		Funcs:  vx.KernelFuncs{Run: freadArray, Validate: validateFReadArray},
		Params: []vx.ParamSpec{in(vx.TypeArray), out(vx.TypeArray)},
	},
	{
		Enum: KernelCheckImage, Name: NameCheckImage,
		Funcs:  vx.KernelFuncs{Run: checkImage, Validate: validateCheckImage},
		Params: []vx.ParamSpec{in(vx.TypeImage), in(vx.TypeScalar), out(vx.TypeScalar)},
	},
	{
		Enum: KernelCheckArray, Name: NameCheckArray,
		Funcs:  vx.KernelFuncs{Run: checkArray, Validate: validateCheckArray},
		Params: []vx.ParamSpec{in(vx.TypeArray), in(vx.TypeScalar), out(vx.TypeScalar)},
	},
	{
		Enum: KernelCopyImage, Name: NameCopyImage,
		Funcs:  vx.KernelFuncs{Run: copyImage, Validate: validateCopyImage},
		Params: []vx.ParamSpec{in(vx.TypeImage), out(vx.TypeImage)},
	},
	{
		Enum: KernelCopyArray, Name: NameCopyArray,
		Funcs:  vx.KernelFuncs{Run: copyArray, Validate: validateCopyArray},
		Params: []vx.ParamSpec{in(vx.TypeArray), out(vx.TypeArray)},
	},
	{
		Enum: KernelFillImage, Name: NameFillImage,
		Funcs:  vx.KernelFuncs{Run: fillImage, Validate: validateFillImage},
		Params: []vx.ParamSpec{in(vx.TypeScalar), out(vx.TypeImage)},
	},
	{
		Enum: KernelCompareImages, Name: NameCompareImages,
		Funcs:  vx.KernelFuncs{Run: compareImages, Validate: validateCompareImages},
		Params: []vx.ParamSpec{in(vx.TypeImage), in(vx.TypeImage), out(vx.TypeScalar)},
	},
}

// Module publishes the debug kernels.
type Module struct{}

func target(c *vx.Context) (*vx.Target, error) {
	if t, err := c.TargetByName(TargetName); err == nil {
		return t, nil
	}
	return c.TargetByName("khronos.any")
}

// Publish implements vx.Module.
func (Module) Publish(c *vx.Context) error {
	t, err := target(c)
	if err != nil {
		return err
	}
	for i, d := range kernels {
		if err := t.AddKernel(d); err != nil {
			// undo the kernels added so far
			_ = unpublish(c, kernels[:i])
			return fmt.Errorf("add %s: %w", d.Name, err)
		}
	}
	return nil
}

// Unpublish implements vx.Module.
func (Module) Unpublish(c *vx.Context) error {
	return unpublish(c, kernels)
}

func unpublish(c *vx.Context, descs []vx.KernelDescription) error {
	var errs []error
	for _, d := range descs {
		k, err := c.GetKernelByName(d.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := c.RemoveKernel(k); err != nil {
			errs = append(errs, err)
		}
		if err := k.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Names lists the qualified names of the module's kernels.
func Names() []string {
	names := make([]string, len(kernels))
	for i, d := range kernels {
		names[i] = d.Name
	}
	return names
}
