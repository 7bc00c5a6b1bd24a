package xyz

import (
	"github.com/specialistvlad/vxgraph/internal/vx"
)

func validate(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	if len(params) != numParams {
		return vx.Errorf(vx.ErrorInvalidParameters, "xyz takes %d parameters, got %d", numParams, len(params))
	}

	input, ok := params[ParamInput].(*vx.Image)
	if !ok {
		return vx.Errorf(vx.ErrorInvalidReference, "input is not an image")
	}
	if input.Format() != vx.DFImageU8 {
		return vx.Errorf(vx.ErrorInvalidValue, "input format %s, want %s", input.Format(), vx.DFImageU8)
	}

	scalar, ok := params[ParamValue].(*vx.Scalar)
	if !ok || scalar.ValueType() != vx.TypeInt32 {
		return vx.Errorf(vx.ErrorInvalidParameters, "value must be an int32 scalar")
	}
	value, err := scalar.Int32()
	if err != nil {
		return vx.Errorf(vx.ErrorInvalidParameters, "read value: %v", err)
	}
	if value <= ValueMin || value >= ValueMax {
		return vx.Errorf(vx.ErrorInvalidValue, "value %d outside (%d,%d)", value, ValueMin, ValueMax)
	}

	metas[ParamOutput].SetImage(input.Width(), input.Height(), input.Format())

	temp, ok := params[ParamTemp].(*vx.Array)
	if !ok {
		return vx.Errorf(vx.ErrorInvalidReference, "temp is not an array")
	}
	if temp.ItemSize() != 4 {
		return vx.Errorf(vx.ErrorInvalidType, "temp items are %d bytes, want 4", temp.ItemSize())
	}
	if temp.NumItems() < TempNumItems {
		return vx.Errorf(vx.ErrorInvalidDimension, "temp holds %d items, want at least %d", temp.NumItems(), TempNumItems)
	}
	return nil
}

// run writes input+value, saturated to [0,255], into output and stores the
// sum of each output row into the matching temp item.
func run(n *vx.Node, params []vx.Reference) error {
	input := params[ParamInput].(*vx.Image)
	output := params[ParamOutput].(*vx.Image)
	temp := params[ParamTemp].(*vx.Array)
	value, err := params[ParamValue].(*vx.Scalar).Int32()
	if err != nil {
		return err
	}

	rect := input.ValidRegion()
	in, err := input.MapPatch(rect, 0, vx.ReadOnly)
	if err != nil {
		return err
	}
	defer input.Unmap(in)

	out, err := output.MapPatch(rect, 0, vx.WriteOnly)
	if err != nil {
		return err
	}

	rows, err := temp.MapRange(0, temp.NumItems(), vx.ReadAndWrite)
	if err != nil {
		_ = output.Unmap(out)
		return err
	}

	for y := 0; y < in.Addr.DimY; y += in.Addr.StepY {
		var sum int32
		for x := 0; x < in.Addr.DimX; x += in.Addr.StepX {
			v := int32(in.Data[in.Addr.Offset(x, y)]) + value
			v = min(max(v, 0), 255)
			out.Data[out.Addr.Offset(x, y)] = uint8(v)
			sum += v
		}
		if y < rows.Len() {
			rows.SetInt32(y, sum)
		}
	}

	n.Logger().Debug("XYZ kernel ran.", "width", in.Addr.DimX, "height", in.Addr.DimY, "value", value)

	if err := temp.Unmap(rows); err != nil {
		_ = output.Unmap(out)
		return err
	}
	return output.Unmap(out)
}

func initialize(n *vx.Node, _ []vx.Reference) error {
	if len(n.LocalData()) != DataArea {
		return vx.Errorf(vx.ErrorNoMemory, "local data is %d bytes, want %d", len(n.LocalData()), DataArea)
	}
	return nil
}

func deinitialize(*vx.Node, []vx.Reference) error {
	return nil
}
