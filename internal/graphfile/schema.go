package graphfile

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

const (
	kindImage  = "image"
	kindArray  = "array"
	kindScalar = "scalar"
	kindNode   = "node"
)

var rootSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "modules"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: kindImage, LabelNames: []string{"name"}},
		{Type: kindArray, LabelNames: []string{"name"}},
		{Type: kindScalar, LabelNames: []string{"name"}},
		{Type: kindNode, LabelNames: []string{"name"}},
	},
}

// imageBody is the content of an image block.
type imageBody struct {
	Width   int     `hcl:"width,optional"`
	Height  int     `hcl:"height,optional"`
	Format  string  `hcl:"format,optional"`
	Virtual bool    `hcl:"virtual,optional"`
	Fill    *uint32 `hcl:"fill,optional"`
}

// arrayBody is the content of an array block.
type arrayBody struct {
	ItemType string    `hcl:"item_type"`
	ItemSize int       `hcl:"item_size,optional"`
	Capacity int       `hcl:"capacity"`
	Virtual  bool      `hcl:"virtual,optional"`
	Fill     cty.Value `hcl:"fill,optional"`
}

// scalarBody is the content of a scalar block.
type scalarBody struct {
	Type  string    `hcl:"type"`
	Value cty.Value `hcl:"value"`
}

// nodeBody is the content of a node block.
type nodeBody struct {
	Kernel string         `hcl:"kernel"`
	Target string         `hcl:"target,optional"`
	Params hcl.Expression `hcl:"params"`
}
