package debug

import (
	"fmt"

	"github.com/specialistvlad/vxgraph/internal/vx"
)

// node instantiates the kernel called name in g and binds params in
// signature order. The node is removed again if any binding fails.
func node(g *vx.Graph, name string, params ...vx.Reference) (*vx.Node, error) {
	c := g.Context()
	k, err := c.GetKernelByName(name)
	if err != nil {
		return nil, err
	}
	defer k.Release()

	n, err := g.CreateNode(k)
	if err != nil {
		return nil, err
	}
	for i, p := range params {
		sig, err := k.Param(i)
		if err == nil {
			err = n.SetParameterByIndex(i, sig.Direction, p)
		}
		if err != nil {
			_ = g.RemoveNode(n)
			return nil, fmt.Errorf("%s parameter %d: %w", name, i, err)
		}
	}
	return n, nil
}

func uint32Param(c *vx.Context, v uint32) (*vx.Scalar, error) {
	return c.CreateScalar(vx.TypeUint32, v)
}

// FillImageNode sets every pixel of out to value.
func FillImageNode(g *vx.Graph, value uint32, out *vx.Image) (*vx.Node, error) {
	s, err := uint32Param(g.Context(), value)
	if err != nil {
		return nil, err
	}
	defer s.Release()
	return node(g, NameFillImage, s, out)
}

// CheckImageNode counts into errs the pixels of in that differ from value.
func CheckImageNode(g *vx.Graph, in *vx.Image, value uint32, errs *vx.Scalar) (*vx.Node, error) {
	s, err := uint32Param(g.Context(), value)
	if err != nil {
		return nil, err
	}
	defer s.Release()
	return node(g, NameCheckImage, in, s, errs)
}

// CheckArrayNode counts into errs the items of in that differ from value.
// value must have the array's item type.
func CheckArrayNode(g *vx.Graph, in *vx.Array, value *vx.Scalar, errs *vx.Scalar) (*vx.Node, error) {
	return node(g, NameCheckArray, in, value, errs)
}

// CopyImageNode copies the valid region of in to out.
func CopyImageNode(g *vx.Graph, in, out *vx.Image) (*vx.Node, error) {
	return node(g, NameCopyImage, in, out)
}

// CopyArrayNode copies the items of in to out.
func CopyArrayNode(g *vx.Graph, in, out *vx.Array) (*vx.Node, error) {
	return node(g, NameCopyArray, in, out)
}

// CompareImagesNode counts into diffs the pixels where a and b differ.
func CompareImagesNode(g *vx.Graph, a, b *vx.Image, diffs *vx.Scalar) (*vx.Node, error) {
	return node(g, NameCompareImages, a, b, diffs)
}

// FWriteImageNode writes in to path when the graph runs.
func FWriteImageNode(g *vx.Graph, in *vx.Image, path string) (*vx.Node, error) {
	return fileNode(g, NameFWriteImage, path, in, true)
}

// FWriteArrayNode writes the items of in to path when the graph runs.
func FWriteArrayNode(g *vx.Graph, in *vx.Array, path string) (*vx.Node, error) {
	return fileNode(g, NameFWriteArray, path, in, true)
}

// FReadImageNode loads path into out when the graph runs.
func FReadImageNode(g *vx.Graph, path string, out *vx.Image) (*vx.Node, error) {
	return fileNode(g, NameFReadImage, path, out, false)
}

// FReadArrayNode loads path into out when the graph runs.
func FReadArrayNode(g *vx.Graph, path string, out *vx.Array) (*vx.Node, error) {
	return fileNode(g, NameFReadArray, path, out, false)
}

func fileNode(g *vx.Graph, kernel, path string, obj vx.Reference, nameLast bool) (*vx.Node, error) {
	name, err := FileName(g.Context(), path)
	if err != nil {
		return nil, err
	}
	defer name.Release()
	if nameLast {
		return node(g, kernel, obj, name)
	}
	return node(g, kernel, name, obj)
}
