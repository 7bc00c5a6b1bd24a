package graphfile

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/vxgraph/internal/vx"
)

// Document is a parsed graph description.
type Document struct {
	Files   []string
	Modules []string
	Images  []*Image
	Arrays  []*Array
	Scalars []*Scalar
	Nodes   []*Node
}

// Image declares an image. A virtual image may leave its geometry and format
// to verification.
type Image struct {
	Name    string
	Width   int
	Height  int
	Format  vx.DFImage
	Virtual bool
	// Fill sets every pixel after creation when not nil.
	Fill  *uint32
	Range hcl.Range
}

// Array declares an array. ItemSize is only used for user_struct items.
type Array struct {
	Name     string
	ItemType vx.Type
	ItemSize int
	Capacity int
	Virtual  bool
	// Fill, when not nil, populates the array to capacity with this value.
	Fill  any
	Range hcl.Range
}

// Scalar declares a scalar with its initial value.
type Scalar struct {
	Name  string
	Type  vx.Type
	Value any
	Range hcl.Range
}

// Node declares a kernel instance and its parameters in signature order.
type Node struct {
	Name   string
	Kernel string
	Params []Ref
	Range  hcl.Range
}

// Ref points at a declared object. The zero Ref leaves a parameter unset.
type Ref struct {
	Kind  string
	Name  string
	Range hcl.Range
}

// IsSet reports whether the reference names an object.
func (r Ref) IsSet() bool { return r.Kind != "" }

func (r Ref) String() string {
	if !r.IsSet() {
		return "null"
	}
	return r.Kind + "." + r.Name
}

func (d *Document) declared(kind, name string) bool {
	switch kind {
	case kindImage:
		for _, o := range d.Images {
			if o.Name == name {
				return true
			}
		}
	case kindArray:
		for _, o := range d.Arrays {
			if o.Name == name {
				return true
			}
		}
	case kindScalar:
		for _, o := range d.Scalars {
			if o.Name == name {
				return true
			}
		}
	}
	return false
}
