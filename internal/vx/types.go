package vx

import "fmt"

// Type identifies both object types (images, graphs, ...) and the scalar
// value types used by scalars and array items.
type Type int32

const (
	TypeInvalid Type = 0x000
	TypeChar    Type = 0x001
	TypeInt8    Type = 0x002
	TypeUint8   Type = 0x003
	TypeInt16   Type = 0x004
	TypeUint16  Type = 0x005
	TypeInt32   Type = 0x006
	TypeUint32  Type = 0x007
	TypeInt64   Type = 0x008
	TypeUint64  Type = 0x009
	TypeFloat32 Type = 0x00A
	TypeFloat64 Type = 0x00B
	TypeEnum    Type = 0x00C
	TypeSize    Type = 0x00D
	TypeDFImage Type = 0x00E
	TypeBool    Type = 0x010

	TypeRectangle  Type = 0x020
	TypeUserStruct Type = 0x100

	TypeReference Type = 0x800
	TypeContext   Type = 0x801
	TypeGraph     Type = 0x802
	TypeNode      Type = 0x803
	TypeKernel    Type = 0x804
	TypeScalar    Type = 0x80D
	TypeArray     Type = 0x80E
	TypeImage     Type = 0x80F
)

var typeNames = map[Type]string{
	TypeInvalid:    "invalid",
	TypeChar:       "char",
	TypeInt8:       "int8",
	TypeUint8:      "uint8",
	TypeInt16:      "int16",
	TypeUint16:     "uint16",
	TypeInt32:      "int32",
	TypeUint32:     "uint32",
	TypeInt64:      "int64",
	TypeUint64:     "uint64",
	TypeFloat32:    "float32",
	TypeFloat64:    "float64",
	TypeEnum:       "enum",
	TypeSize:       "size",
	TypeDFImage:    "df_image",
	TypeBool:       "bool",
	TypeRectangle:  "rectangle",
	TypeUserStruct: "user_struct",
	TypeReference:  "reference",
	TypeContext:    "context",
	TypeGraph:      "graph",
	TypeNode:       "node",
	TypeKernel:     "kernel",
	TypeScalar:     "scalar",
	TypeArray:      "array",
	TypeImage:      "image",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(0x%03x)", int32(t))
}

// ParseType maps a lower-case type name back to its Type.
func ParseType(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return TypeInvalid, false
}

// SizeOf returns the byte size of a scalar value type, or 0 for object and
// unknown types.
func SizeOf(t Type) int {
	switch t {
	case TypeChar, TypeInt8, TypeUint8, TypeBool:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32, TypeEnum, TypeDFImage:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64, TypeSize:
		return 8
	case TypeRectangle:
		return 16
	}
	return 0
}

// Direction is the data flow of a node parameter.
type Direction int

const (
	Input Direction = iota
	Output
	Bidirectional
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case Bidirectional:
		return "bidirectional"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// writes reports whether a parameter bound with this direction modifies its
// reference.
func (d Direction) writes() bool {
	return d == Output || d == Bidirectional
}

// reads reports whether a parameter bound with this direction consumes its
// reference.
func (d Direction) reads() bool {
	return d == Input || d == Bidirectional
}

// ParameterState marks a kernel parameter as mandatory or not.
type ParameterState int

const (
	ParameterRequired ParameterState = iota
	ParameterOptional
)

// Usage selects the direction of a copy or map between host memory and an
// object.
type Usage int

const (
	ReadOnly Usage = iota
	WriteOnly
	ReadAndWrite
)

func (u Usage) String() string {
	switch u {
	case ReadOnly:
		return "read_only"
	case WriteOnly:
		return "write_only"
	case ReadAndWrite:
		return "read_and_write"
	}
	return fmt.Sprintf("usage(%d)", int(u))
}

// DFImage is a FourCC image format code.
type DFImage uint32

func fourcc(a, b, c, d byte) DFImage {
	return DFImage(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

var (
	DFImageVirt = fourcc('V', 'I', 'R', 'T')
	DFImageU8   = fourcc('U', '0', '0', '8')
	DFImageU16  = fourcc('U', '0', '1', '6')
	DFImageS16  = fourcc('S', '0', '1', '6')
	DFImageU32  = fourcc('U', '0', '3', '2')
	DFImageS32  = fourcc('S', '0', '3', '2')

	// DFImageY800 is the legacy name of the single 8-bit luma plane.
	DFImageY800 = DFImageU8
)

// String returns the four characters of the code.
func (f DFImage) String() string {
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}

// ParseDFImage accepts a FourCC string such as "U008", or the alias "Y800".
func ParseDFImage(s string) (DFImage, bool) {
	if s == "Y800" {
		return DFImageU8, true
	}
	for _, f := range []DFImage{DFImageVirt, DFImageU8, DFImageU16, DFImageS16, DFImageU32, DFImageS32} {
		if f.String() == s {
			return f, true
		}
	}
	return 0, false
}

// PixelSize returns bytes per pixel of a single-plane format, 0 if unknown.
func (f DFImage) PixelSize() int {
	switch f {
	case DFImageU8:
		return 1
	case DFImageU16, DFImageS16:
		return 2
	case DFImageU32, DFImageS32:
		return 4
	}
	return 0
}

// Rectangle is a half-open pixel region [StartX,EndX) x [StartY,EndY).
type Rectangle struct {
	StartX, StartY int
	EndX, EndY     int
}

// Width of the region.
func (r Rectangle) Width() int { return r.EndX - r.StartX }

// Height of the region.
func (r Rectangle) Height() int { return r.EndY - r.StartY }

// Empty reports whether the region has no pixels.
func (r Rectangle) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// KernelEnum is the numeric identifier of a kernel.
type KernelEnum int32

// KernelBase composes a kernel enumeration base from a vendor and a library.
func KernelBase(vendor, library int32) KernelEnum {
	return KernelEnum(vendor<<20 | library<<12)
}

const (
	VendorKhronos int32 = 0x000

	LibraryBase   int32 = 0x0
	LibraryDebug  int32 = 0x1
	LibraryExtras int32 = 0x2
	LibraryXYZ    int32 = 0x3
)
