package debug

import (
	"bytes"
	"encoding/binary"

	"github.com/specialistvlad/vxgraph/internal/vx"
)

func imageParam(params []vx.Reference, i int) (*vx.Image, error) {
	img, ok := params[i].(*vx.Image)
	if !ok {
		return nil, vx.Errorf(vx.ErrorInvalidParameters, "parameter %d is not an image", i)
	}
	return img, nil
}

func arrayParam(params []vx.Reference, i int) (*vx.Array, error) {
	arr, ok := params[i].(*vx.Array)
	if !ok {
		return nil, vx.Errorf(vx.ErrorInvalidParameters, "parameter %d is not an array", i)
	}
	return arr, nil
}

func uint32Scalar(params []vx.Reference, i int) (*vx.Scalar, error) {
	s, ok := params[i].(*vx.Scalar)
	if !ok || s.ValueType() != vx.TypeUint32 {
		return nil, vx.Errorf(vx.ErrorInvalidType, "parameter %d must be a uint32 scalar", i)
	}
	return s, nil
}

func uint32Value(s *vx.Scalar) (uint32, error) {
	v, err := s.Value()
	if err != nil {
		return 0, err
	}
	u, ok := v.(uint32)
	if !ok {
		return 0, vx.Errorf(vx.ErrorInvalidType, "scalar holds %T", v)
	}
	return u, nil
}

// packed is value truncated to the pixel size of f, little endian.
func packed(value uint32, f vx.DFImage) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return b[:f.PixelSize()]
}

func validateFillImage(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	if _, err := uint32Scalar(params, 0); err != nil {
		return err
	}
	img, err := imageParam(params, 1)
	if err != nil {
		return err
	}
	if img.Width() == 0 || img.Height() == 0 || img.Format() == vx.DFImageVirt {
		return vx.Errorf(vx.ErrorInvalidParameters, "fill_image needs an output with known geometry")
	}
	metas[1].SetImage(img.Width(), img.Height(), img.Format())
	return nil
}

func fillImage(_ *vx.Node, params []vx.Reference) error {
	value, err := uint32Value(params[0].(*vx.Scalar))
	if err != nil {
		return err
	}
	return params[1].(*vx.Image).Fill(value)
}

func validateCheckImage(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	if _, err := imageParam(params, 0); err != nil {
		return err
	}
	if _, err := uint32Scalar(params, 1); err != nil {
		return err
	}
	if _, err := uint32Scalar(params, 2); err != nil {
		return err
	}
	metas[2].SetScalar(vx.TypeUint32)
	return nil
}

// checkImage counts the pixels of the valid region that differ from the
// expected value. Any mismatch fails the node after the count is written.
func checkImage(n *vx.Node, params []vx.Reference) error {
	img := params[0].(*vx.Image)
	value, err := uint32Value(params[1].(*vx.Scalar))
	if err != nil {
		return err
	}

	want := packed(value, img.Format())
	p, err := img.MapPatch(img.ValidRegion(), 0, vx.ReadOnly)
	if err != nil {
		return err
	}
	defer img.Unmap(p)

	var errs uint32
	for y := 0; y < p.Addr.DimY; y++ {
		for x := 0; x < p.Addr.DimX; x++ {
			off := p.Addr.Offset(x, y)
			if !bytes.Equal(p.Data[off:off+len(want)], want) {
				errs++
			}
		}
	}
	if err := params[2].(*vx.Scalar).SetValue(errs); err != nil {
		return err
	}
	if errs > 0 {
		n.Logger().Warn("Image check found mismatches.", "errors", errs, "value", value)
		return vx.Errorf(vx.Failure, "image check: %d pixels differ from %d", errs, value)
	}
	return nil
}

func validateCheckArray(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	arr, err := arrayParam(params, 0)
	if err != nil {
		return err
	}
	s, ok := params[1].(*vx.Scalar)
	if !ok || s.ValueType() != arr.ItemType() {
		return vx.Errorf(vx.ErrorInvalidType, "check value must be a %s scalar", arr.ItemType())
	}
	if _, err := uint32Scalar(params, 2); err != nil {
		return err
	}
	metas[2].SetScalar(vx.TypeUint32)
	return nil
}

// checkArray counts the items that differ from the expected value. Any
// mismatch fails the node after the count is written.
func checkArray(n *vx.Node, params []vx.Reference) error {
	arr := params[0].(*vx.Array)
	want, err := scalarBytes(params[1].(*vx.Scalar), arr.ItemSize())
	if err != nil {
		return err
	}

	var errs uint32
	if count := arr.NumItems(); count > 0 {
		r, err := arr.MapRange(0, count, vx.ReadOnly)
		if err != nil {
			return err
		}
		for i := 0; i < r.Len(); i++ {
			if !bytes.Equal(r.Data[i*r.Stride:i*r.Stride+len(want)], want) {
				errs++
			}
		}
		if err := arr.Unmap(r); err != nil {
			return err
		}
	}
	if err := params[2].(*vx.Scalar).SetValue(errs); err != nil {
		return err
	}
	if errs > 0 {
		n.Logger().Warn("Array check found mismatches.", "errors", errs)
		return vx.Errorf(vx.Failure, "array check: %d items differ", errs)
	}
	return nil
}

func scalarBytes(s *vx.Scalar, size int) ([]byte, error) {
	v, err := s.Value()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, vx.Errorf(vx.ErrorInvalidType, "scalar %T cannot be packed: %v", v, err)
	}
	if buf.Len() != size {
		return nil, vx.Errorf(vx.ErrorInvalidType, "scalar is %d bytes, items are %d", buf.Len(), size)
	}
	return buf.Bytes(), nil
}

func validateCopyImage(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	src, err := imageParam(params, 0)
	if err != nil {
		return err
	}
	metas[1].SetImage(src.Width(), src.Height(), src.Format())
	return nil
}

func copyImage(_ *vx.Node, params []vx.Reference) error {
	src, dst := params[0].(*vx.Image), params[1].(*vx.Image)
	rect := src.ValidRegion()
	in, err := src.MapPatch(rect, 0, vx.ReadOnly)
	if err != nil {
		return err
	}
	defer src.Unmap(in)

	outp, err := dst.MapPatch(rect, 0, vx.WriteOnly)
	if err != nil {
		return err
	}
	copy(outp.Data, in.Data)
	return dst.Unmap(outp)
}

func validateCopyArray(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	src, err := arrayParam(params, 0)
	if err != nil {
		return err
	}
	metas[1].SetArray(src.ItemType(), src.Capacity())
	return nil
}

// copyArray replaces the items of the output with the items of the input.
func copyArray(_ *vx.Node, params []vx.Reference) error {
	src, dst := params[0].(*vx.Array), params[1].(*vx.Array)
	if err := dst.Truncate(0); err != nil {
		return err
	}
	count := src.NumItems()
	if count == 0 {
		return nil
	}
	r, err := src.MapRange(0, count, vx.ReadOnly)
	if err != nil {
		return err
	}
	defer src.Unmap(r)
	return dst.AddItems(r.Data)
}

func validateCompareImages(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	a, err := imageParam(params, 0)
	if err != nil {
		return err
	}
	b, err := imageParam(params, 1)
	if err != nil {
		return err
	}
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return vx.Errorf(vx.ErrorInvalidDimension, "images are %dx%d and %dx%d", a.Width(), a.Height(), b.Width(), b.Height())
	}
	if a.Format() != b.Format() {
		return vx.Errorf(vx.ErrorInvalidFormat, "images are %s and %s", a.Format(), b.Format())
	}
	if _, err := uint32Scalar(params, 2); err != nil {
		return err
	}
	metas[2].SetScalar(vx.TypeUint32)
	return nil
}

// compareImages counts differing pixels over the whole image.
func compareImages(_ *vx.Node, params []vx.Reference) error {
	a, b := params[0].(*vx.Image), params[1].(*vx.Image)
	rect := vx.Rectangle{EndX: a.Width(), EndY: a.Height()}
	pa, err := a.MapPatch(rect, 0, vx.ReadOnly)
	if err != nil {
		return err
	}
	defer a.Unmap(pa)
	pb, err := b.MapPatch(rect, 0, vx.ReadOnly)
	if err != nil {
		return err
	}
	defer b.Unmap(pb)

	ps := a.Format().PixelSize()
	var diffs uint32
	for off := 0; off < len(pa.Data); off += ps {
		if !bytes.Equal(pa.Data[off:off+ps], pb.Data[off:off+ps]) {
			diffs++
		}
	}
	return params[2].(*vx.Scalar).SetValue(diffs)
}
