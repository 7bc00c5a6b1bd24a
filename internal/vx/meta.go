package vx

// MetaFormat is what a kernel validator promises about one output
// parameter. The graph uses it to size virtual objects and to check real
// ones.
type MetaFormat struct {
	Type Type

	ImageWidth  int
	ImageHeight int
	ImageFormat DFImage

	ArrayItemType Type
	ArrayCapacity int

	ScalarType Type
}

// SetImage describes an output image.
func (m *MetaFormat) SetImage(width, height int, format DFImage) {
	m.Type = TypeImage
	m.ImageWidth, m.ImageHeight, m.ImageFormat = width, height, format
}

// SetArray describes an output array.
func (m *MetaFormat) SetArray(itemType Type, capacity int) {
	m.Type = TypeArray
	m.ArrayItemType, m.ArrayCapacity = itemType, capacity
}

// SetScalar describes an output scalar.
func (m *MetaFormat) SetScalar(t Type) {
	m.Type = TypeScalar
	m.ScalarType = t
}

// IsSet reports whether the validator filled the entry.
func (m *MetaFormat) IsSet() bool { return m != nil && m.Type != TypeInvalid }

// apply reconciles ref with the promised meta format. Virtual objects are
// shaped after it, real objects must already match.
func (m *MetaFormat) apply(ref Reference) error {
	if !m.IsSet() {
		return nil
	}
	if ref.Type() != m.Type {
		return Errorf(ErrorInvalidType, "meta format describes %s, parameter is %s", m.Type, ref.Type())
	}
	switch obj := ref.(type) {
	case *Image:
		return obj.applyMeta(m)
	case *Array:
		return obj.applyMeta(m)
	case *Scalar:
		if obj.valueType != m.ScalarType {
			return Errorf(ErrorInvalidType, "scalar is %s, kernel produces %s", obj.valueType, m.ScalarType)
		}
	}
	return nil
}
