package graphfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/vxgraph/internal/ctxlog"
	"github.com/specialistvlad/vxgraph/internal/vx"
)

// Built holds the objects created from a document. Release frees them.
type Built struct {
	Graph   *vx.Graph
	Images  map[string]*vx.Image
	Arrays  map[string]*vx.Array
	Scalars map[string]*vx.Scalar
	Nodes   map[string]*vx.Node

	context *vx.Context
	modules []string
}

// Build loads the document's modules into c and creates its graph. On error
// everything created so far is released.
func Build(ctx context.Context, c *vx.Context, doc *Document) (*Built, error) {
	logger := ctxlog.FromContext(ctx)
	b := &Built{
		Images:  map[string]*vx.Image{},
		Arrays:  map[string]*vx.Array{},
		Scalars: map[string]*vx.Scalar{},
		Nodes:   map[string]*vx.Node{},
		context: c,
	}

	if err := b.build(doc); err != nil {
		if rerr := b.Release(); rerr != nil {
			logger.Warn("Failed to release partial graph.", "error", rerr)
		}
		return nil, err
	}
	logger.Debug("Graph built.",
		"graph", b.Graph.ID(),
		"nodes", len(b.Nodes),
		"images", len(b.Images),
		"arrays", len(b.Arrays),
		"scalars", len(b.Scalars),
	)
	return b, nil
}

func (b *Built) build(doc *Document) error {
	c := b.context
	for _, m := range doc.Modules {
		if err := c.LoadKernels(m); err != nil {
			return fmt.Errorf("load module %q: %w", m, err)
		}
		b.modules = append(b.modules, m)
	}

	g, err := c.CreateGraph()
	if err != nil {
		return err
	}
	b.Graph = g

	for _, decl := range doc.Images {
		if err := b.image(decl); err != nil {
			return fmt.Errorf("%s: image %q: %w", decl.Range, decl.Name, err)
		}
	}
	for _, decl := range doc.Arrays {
		if err := b.array(decl); err != nil {
			return fmt.Errorf("%s: array %q: %w", decl.Range, decl.Name, err)
		}
	}
	for _, decl := range doc.Scalars {
		s, err := c.CreateScalar(decl.Type, decl.Value)
		if err != nil {
			return fmt.Errorf("%s: scalar %q: %w", decl.Range, decl.Name, err)
		}
		s.SetName(decl.Name)
		b.Scalars[decl.Name] = s
	}
	for _, decl := range doc.Nodes {
		if err := b.node(decl); err != nil {
			return fmt.Errorf("%s: node %q: %w", decl.Range, decl.Name, err)
		}
	}
	return nil
}

func (b *Built) image(decl *Image) error {
	var (
		img *vx.Image
		err error
	)
	if decl.Virtual {
		img, err = b.Graph.CreateVirtualImage(decl.Width, decl.Height, decl.Format)
	} else {
		img, err = b.context.CreateImage(decl.Width, decl.Height, decl.Format)
	}
	if err != nil {
		return err
	}
	img.SetName(decl.Name)
	b.Images[decl.Name] = img

	if decl.Fill != nil {
		return img.Fill(*decl.Fill)
	}
	return nil
}

func (b *Built) array(decl *Array) error {
	var (
		arr *vx.Array
		err error
	)
	switch {
	case decl.Virtual:
		arr, err = b.Graph.CreateVirtualArray(decl.ItemType, decl.Capacity)
	case decl.ItemType == vx.TypeUserStruct:
		arr, err = b.context.CreateUserArray(decl.ItemSize, decl.Capacity)
	default:
		arr, err = b.context.CreateArray(decl.ItemType, decl.Capacity)
	}
	if err != nil {
		return err
	}
	arr.SetName(decl.Name)
	b.Arrays[decl.Name] = arr

	if decl.Fill == nil {
		return nil
	}
	item, err := itemBytes(b.context, decl.ItemType, decl.Fill)
	if err != nil {
		return err
	}
	return arr.AddItems(bytes.Repeat(item, decl.Capacity))
}

func (b *Built) node(decl *Node) error {
	k, err := b.context.GetKernelByName(decl.Kernel)
	if err != nil {
		return err
	}
	defer k.Release()

	if len(decl.Params) > k.NumParams() {
		return vx.Errorf(vx.ErrorInvalidParameters, "%d parameters given, kernel %s takes %d", len(decl.Params), decl.Kernel, k.NumParams())
	}
	n, err := b.Graph.CreateNode(k)
	if err != nil {
		return err
	}
	n.SetName(decl.Name)
	b.Nodes[decl.Name] = n

	for i, ref := range decl.Params {
		if !ref.IsSet() {
			continue
		}
		sig, err := k.Param(i)
		if err != nil {
			return err
		}
		obj, err := b.Lookup(ref)
		if err != nil {
			return err
		}
		if err := n.SetParameterByIndex(i, sig.Direction, obj); err != nil {
			return fmt.Errorf("parameter %d (%s): %w", i, ref, err)
		}
	}
	return nil
}

// Lookup returns the object a reference names.
func (b *Built) Lookup(ref Ref) (vx.Reference, error) {
	var (
		obj vx.Reference
		ok  bool
	)
	switch ref.Kind {
	case kindImage:
		obj, ok = b.Images[ref.Name]
	case kindArray:
		obj, ok = b.Arrays[ref.Name]
	case kindScalar:
		obj, ok = b.Scalars[ref.Name]
	}
	if !ok {
		return nil, vx.Errorf(vx.ErrorInvalidReference, "%s is not declared", ref)
	}
	return obj, nil
}

// Release frees virtual handles, then the graph with its nodes, then the
// remaining data objects, and finally unloads the modules Build loaded.
func (b *Built) Release() error {
	var errs []error
	release := func(what string, r interface{ Release() error }) {
		if err := r.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", what, err))
		}
	}

	var images []*vx.Image
	for name, img := range b.Images {
		if img.Virtual() {
			release("image "+name, img)
		} else {
			images = append(images, img)
		}
	}
	var arrays []*vx.Array
	for name, arr := range b.Arrays {
		if arr.Virtual() {
			release("array "+name, arr)
		} else {
			arrays = append(arrays, arr)
		}
	}

	if b.Graph != nil {
		release("graph", b.Graph)
	}
	for _, img := range images {
		release("image "+img.Name(), img)
	}
	for _, arr := range arrays {
		release("array "+arr.Name(), arr)
	}
	for name, s := range b.Scalars {
		release("scalar "+name, s)
	}
	for i := len(b.modules) - 1; i >= 0; i-- {
		if err := b.context.UnloadKernels(b.modules[i]); err != nil {
			errs = append(errs, fmt.Errorf("unload module %q: %w", b.modules[i], err))
		}
	}

	b.Graph, b.modules = nil, nil
	b.Images, b.Arrays, b.Scalars, b.Nodes = nil, nil, nil, nil
	return errors.Join(errs...)
}
