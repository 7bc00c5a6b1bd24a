package graphfile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/specialistvlad/vxgraph/internal/vx"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// goValue converts an HCL value into the Go value a scalar of type t
// accepts. Range checks are left to the runtime.
func goValue(t vx.Type, v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("value is null")
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	switch t {
	case vx.TypeBool:
		var b bool
		err := decodeAs(v, cty.Bool, &b)
		return b, err
	case vx.TypeDFImage:
		var s string
		if err := decodeAs(v, cty.String, &s); err != nil {
			return nil, err
		}
		f, ok := vx.ParseDFImage(s)
		if !ok {
			return nil, fmt.Errorf("unknown image format %q", s)
		}
		return f, nil
	case vx.TypeFloat32, vx.TypeFloat64:
		var f float64
		err := decodeAs(v, cty.Number, &f)
		return f, err
	}

	var i int64
	if err := decodeAs(v, cty.Number, &i); err != nil {
		return nil, err
	}
	return i, nil
}

func decodeAs(v cty.Value, want cty.Type, dst any) error {
	conv, err := convert.Convert(v, want)
	if err != nil {
		return fmt.Errorf("cannot convert %s to %s: %w", v.Type().FriendlyName(), want.FriendlyName(), err)
	}
	return gocty.FromCtyValue(conv, dst)
}

// itemBytes packs one array item of type t holding v, little endian.
func itemBytes(c *vx.Context, t vx.Type, v any) ([]byte, error) {
	// a throwaway scalar applies the runtime's conversion and range rules
	s, err := c.CreateScalar(t, v)
	if err != nil {
		return nil, err
	}
	defer s.Release()
	typed, err := s.Value()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, typed); err != nil {
		return nil, fmt.Errorf("pack %s item: %w", t, err)
	}
	if buf.Len() != vx.SizeOf(t) {
		return nil, fmt.Errorf("packed %s item is %d bytes, want %d", t, buf.Len(), vx.SizeOf(t))
	}
	return buf.Bytes(), nil
}
