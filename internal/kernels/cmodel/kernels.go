package cmodel

import (
	"github.com/disintegration/imaging"

	"github.com/specialistvlad/vxgraph/internal/vx"
)

// Interpolation policies of scale_image, passed as an enum scalar.
const (
	InterpolationNearest  int32 = 0x4000
	InterpolationBilinear int32 = 0x4001
	InterpolationArea     int32 = 0x4002
)

func images(params []vx.Reference, idx ...int) ([]*vx.Image, error) {
	imgs := make([]*vx.Image, len(idx))
	for i, p := range idx {
		img, ok := params[p].(*vx.Image)
		if !ok {
			return nil, vx.Errorf(vx.ErrorInvalidParameters, "parameter %d is not an image", p)
		}
		imgs[i] = img
	}
	return imgs, nil
}

func whole(img *vx.Image) vx.Rectangle {
	return vx.Rectangle{EndX: img.Width(), EndY: img.Height()}
}

func validateAbsDiff(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	imgs, err := images(params, 0, 1)
	if err != nil {
		return err
	}
	a, b := imgs[0], imgs[1]
	if a.Format() != vx.DFImageU8 && a.Format() != vx.DFImageS16 {
		return vx.Errorf(vx.ErrorInvalidFormat, "absdiff takes U008 or S016, got %s", a.Format())
	}
	if a.Format() != b.Format() {
		return vx.Errorf(vx.ErrorInvalidFormat, "inputs are %s and %s", a.Format(), b.Format())
	}
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return vx.Errorf(vx.ErrorInvalidDimension, "inputs are %dx%d and %dx%d", a.Width(), a.Height(), b.Width(), b.Height())
	}
	metas[2].SetImage(a.Width(), a.Height(), a.Format())
	return nil
}

// absDiff writes |a-b| per pixel. S16 results saturate at 32767.
func absDiff(_ *vx.Node, params []vx.Reference) error {
	imgs, err := images(params, 0, 1, 2)
	if err != nil {
		return err
	}
	a, b, o := imgs[0], imgs[1], imgs[2]
	rect := whole(a)

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
	po, err := o.MapPatch(rect, 0, vx.WriteOnly)
	if err != nil {
		return err
	}

	if a.Format() == vx.DFImageU8 {
		for i := range po.Data {
			x, y := int(pa.Data[i]), int(pb.Data[i])
			if x > y {
				po.Data[i] = uint8(x - y)
			} else {
				po.Data[i] = uint8(y - x)
			}
		}
		return o.Unmap(po)
	}

	for i := 0; i+1 < len(po.Data); i += 2 {
		x := int32(int16(uint16(pa.Data[i]) | uint16(pa.Data[i+1])<<8))
		y := int32(int16(uint16(pb.Data[i]) | uint16(pb.Data[i+1])<<8))
		d := x - y
		if d < 0 {
			d = -d
		}
		d = min(d, 32767)
		po.Data[i], po.Data[i+1] = byte(d), byte(d>>8)
	}
	return o.Unmap(po)
}

func validateU8Filter(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	imgs, err := images(params, 0)
	if err != nil {
		return err
	}
	src := imgs[0]
	if src.Format() != vx.DFImageU8 {
		return vx.Errorf(vx.ErrorInvalidFormat, "input must be U008, got %s", src.Format())
	}
	metas[1].SetImage(src.Width(), src.Height(), vx.DFImageU8)
	return nil
}

func not(_ *vx.Node, params []vx.Reference) error {
	imgs, err := images(params, 0, 1)
	if err != nil {
		return err
	}
	src, err := imgs[0].Gray()
	if err != nil {
		return err
	}
	return imgs[1].SetGray(imaging.Invert(src))
}

// box3x3 averages each 3x3 neighbourhood. Pixels outside the image repeat
// the nearest edge pixel.
func box3x3(_ *vx.Node, params []vx.Reference) error {
	imgs, err := images(params, 0, 1)
	if err != nil {
		return err
	}
	src, err := imgs[0].Gray()
	if err != nil {
		return err
	}
	ones := [9]float64{1, 1, 1, 1, 1, 1, 1, 1, 1}
	return imgs[1].SetGray(imaging.Convolve3x3(src, ones, &imaging.ConvolveOptions{Normalize: true}))
}

func validateScaleImage(_ *vx.Node, params []vx.Reference, metas []*vx.MetaFormat) error {
	imgs, err := images(params, 0, 1)
	if err != nil {
		return err
	}
	src, dst := imgs[0], imgs[1]
	if src.Format() != vx.DFImageU8 {
		return vx.Errorf(vx.ErrorInvalidFormat, "input must be U008, got %s", src.Format())
	}
	if dst.Width() == 0 || dst.Height() == 0 {
		return vx.Errorf(vx.ErrorInvalidParameters, "scale_image output needs its size")
	}
	if params[2] != nil {
		if _, err := interpolation(params[2]); err != nil {
			return err
		}
	}
	metas[1].SetImage(dst.Width(), dst.Height(), vx.DFImageU8)
	return nil
}

func interpolation(ref vx.Reference) (imaging.ResampleFilter, error) {
	s, ok := ref.(*vx.Scalar)
	if !ok || (s.ValueType() != vx.TypeEnum && s.ValueType() != vx.TypeInt32) {
		return imaging.ResampleFilter{}, vx.Errorf(vx.ErrorInvalidType, "interpolation must be an enum scalar")
	}
	v, err := s.Int32()
	if err != nil {
		return imaging.ResampleFilter{}, err
	}
	switch v {
	case InterpolationNearest:
		return imaging.NearestNeighbor, nil
	case InterpolationBilinear:
		return imaging.Linear, nil
	case InterpolationArea:
		return imaging.Box, nil
	}
	return imaging.ResampleFilter{}, vx.Errorf(vx.ErrorInvalidValue, "unknown interpolation 0x%x", v)
}

// scaleImage resizes the input to the output size, bilinear by default.
func scaleImage(_ *vx.Node, params []vx.Reference) error {
	imgs, err := images(params, 0, 1)
	if err != nil {
		return err
	}
	src, dst := imgs[0], imgs[1]
	filter := imaging.Linear
	if params[2] != nil {
		if filter, err = interpolation(params[2]); err != nil {
			return err
		}
	}
	gray, err := src.Gray()
	if err != nil {
		return err
	}
	return dst.SetGray(imaging.Resize(gray, dst.Width(), dst.Height(), filter))
}
