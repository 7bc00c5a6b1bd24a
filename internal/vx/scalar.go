package vx

import (
	"math"

	sync "github.com/sasha-s/go-deadlock"
)

// Scalar holds one typed value.
type Scalar struct {
	reference

	mu        sync.RWMutex
	valueType Type
	value     any
}

func (s *Scalar) base() *reference {
	if s == nil {
		return nil
	}
	return &s.reference
}

// CreateScalar creates a scalar of type t. value must be convertible to t;
// see SetValue.
func (c *Context) CreateScalar(t Type, value any) (*Scalar, error) {
	if !c.Valid() {
		return nil, Errorf(ErrorInvalidReference, "create scalar on released context")
	}
	if SizeOf(t) == 0 {
		return nil, Errorf(ErrorInvalidType, "scalar type %s", t)
	}
	v, err := convertScalar(t, value)
	if err != nil {
		return nil, err
	}
	s := &Scalar{valueType: t, value: v}
	c.addReference(&s.reference, TypeScalar)
	return s, nil
}

// ValueType is the type of the held value.
func (s *Scalar) ValueType() Type { return s.valueType }

// Value returns the held value as its natural Go type: int32 for TypeInt32,
// uint8 for TypeUint8, float32 for TypeFloat32 and so on.
func (s *Scalar) Value() (any, error) {
	if !s.base().valid(TypeScalar) {
		return nil, Errorf(ErrorInvalidReference, "read scalar")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, nil
}

// SetValue replaces the held value. Integer and float values of any Go kind
// are accepted when they fit the scalar type.
func (s *Scalar) SetValue(value any) error {
	if !s.base().valid(TypeScalar) {
		return Errorf(ErrorInvalidReference, "write scalar")
	}
	v, err := convertScalar(s.valueType, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	return nil
}

// Int32 returns the value of an integer scalar widened or narrowed to int32.
func (s *Scalar) Int32() (int32, error) {
	v, err := s.Value()
	if err != nil {
		return 0, err
	}
	i, ok := asInt64(v)
	if !ok || i < math.MinInt32 || i > math.MaxInt32 {
		return 0, Errorf(ErrorInvalidType, "scalar of type %s is not an int32", s.valueType)
	}
	return int32(i), nil
}

// Release drops the caller's handle.
func (s *Scalar) Release() error {
	return s.base().releaseExternal(TypeScalar)
}

func convertScalar(t Type, value any) (any, error) {
	switch t {
	case TypeFloat32, TypeFloat64:
		f, ok := asFloat64(value)
		if !ok {
			return nil, Errorf(ErrorInvalidType, "%T is not a %s", value, t)
		}
		if t == TypeFloat32 {
			return float32(f), nil
		}
		return f, nil
	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, Errorf(ErrorInvalidType, "%T is not a bool", value)
		}
		return b, nil
	case TypeDFImage:
		f, ok := value.(DFImage)
		if !ok {
			return nil, Errorf(ErrorInvalidType, "%T is not an image format", value)
		}
		return f, nil
	case TypeRectangle:
		r, ok := value.(Rectangle)
		if !ok {
			return nil, Errorf(ErrorInvalidType, "%T is not a rectangle", value)
		}
		return r, nil
	}

	i, ok := asInt64(value)
	if !ok {
		return nil, Errorf(ErrorInvalidType, "%T is not a %s", value, t)
	}
	var lo, hi int64
	switch t {
	case TypeChar, TypeUint8:
		lo, hi = 0, math.MaxUint8
	case TypeInt8:
		lo, hi = math.MinInt8, math.MaxInt8
	case TypeInt16:
		lo, hi = math.MinInt16, math.MaxInt16
	case TypeUint16:
		lo, hi = 0, math.MaxUint16
	case TypeInt32, TypeEnum:
		lo, hi = math.MinInt32, math.MaxInt32
	case TypeUint32:
		lo, hi = 0, math.MaxUint32
	case TypeInt64:
		lo, hi = math.MinInt64, math.MaxInt64
	case TypeUint64, TypeSize:
		lo, hi = 0, math.MaxInt64
	default:
		return nil, Errorf(ErrorInvalidType, "scalar type %s", t)
	}
	if i < lo || i > hi {
		return nil, Errorf(ErrorInvalidValue, "%d out of range for %s", i, t)
	}

	switch t {
	case TypeChar, TypeUint8:
		return uint8(i), nil
	case TypeInt8:
		return int8(i), nil
	case TypeInt16:
		return int16(i), nil
	case TypeUint16:
		return uint16(i), nil
	case TypeInt32, TypeEnum:
		return int32(i), nil
	case TypeUint32:
		return uint32(i), nil
	case TypeUint64, TypeSize:
		return uint64(i), nil
	}
	return i, nil
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	i, ok := asInt64(v)
	return float64(i), ok
}
