package graphfile

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/vxgraph/internal/ctxlog"
	"github.com/specialistvlad/vxgraph/internal/fsutil"
	"github.com/specialistvlad/vxgraph/internal/vx"
	"github.com/zclconf/go-cty/cty"
)

// Load parses every .hcl file found at paths into one document. A path is a
// file or a directory searched recursively.
func Load(ctx context.Context, paths ...string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Graph file loader started.", "path_count", len(paths))

	files, err := findFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered graph files.", "count", len(files))

	l := &loader{
		doc:    &Document{Files: files},
		parser: hclparse.NewParser(),
		seen:   map[string]hcl.Range{},
	}
	for _, file := range files {
		if diags := l.loadFile(file); diags.HasErrors() {
			return nil, fmt.Errorf("failed to load graph file %s: %w", file, diags)
		}
	}
	if diags := l.checkRefs(); diags.HasErrors() {
		return nil, diags
	}

	logger.Debug("Graph files loaded.",
		"modules", len(l.doc.Modules),
		"images", len(l.doc.Images),
		"arrays", len(l.doc.Arrays),
		"scalars", len(l.doc.Scalars),
		"nodes", len(l.doc.Nodes),
	)
	return l.doc, nil
}

// findFiles expands paths into a de-duplicated, sorted list of .hcl files.
func findFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return all, nil
}

type loader struct {
	doc    *Document
	parser *hclparse.Parser
	seen   map[string]hcl.Range
}

func (l *loader) loadFile(file string) hcl.Diagnostics {
	f, diags := l.parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return diags
	}
	content, diags := f.Body.Content(rootSchema)
	if diags.HasErrors() {
		return diags
	}

	if attr, ok := content.Attributes["modules"]; ok {
		val, d := attr.Expr.Value(nil)
		diags = append(diags, d...)
		var modules []string
		if !d.HasErrors() {
			if err := decodeAs(val, cty.List(cty.String), &modules); err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid modules list",
					Detail:   fmt.Sprintf("modules must be a list of module names: %s.", err),
					Subject:  attr.Expr.Range().Ptr(),
				})
			}
		}
		l.doc.Modules = appendUnique(l.doc.Modules, modules...)
	}

	for _, block := range content.Blocks {
		name := block.Labels[0]
		if d := l.claim(block, name); d != nil {
			diags = append(diags, d)
			continue
		}
		switch block.Type {
		case kindImage:
			diags = append(diags, l.image(block, name)...)
		case kindArray:
			diags = append(diags, l.array(block, name)...)
		case kindScalar:
			diags = append(diags, l.scalar(block, name)...)
		case kindNode:
			diags = append(diags, l.node(block, name)...)
		}
	}
	return diags
}

// claim registers a block name, reporting a duplicate of the same kind.
func (l *loader) claim(block *hcl.Block, name string) *hcl.Diagnostic {
	key := block.Type + "." + name
	if prev, ok := l.seen[key]; ok {
		return &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Duplicate %s %q", block.Type, name),
			Detail:   fmt.Sprintf("A %s named %q was already declared at %s.", block.Type, name, prev),
			Subject:  &block.DefRange,
		}
	}
	l.seen[key] = block.DefRange
	return nil
}

func (l *loader) image(block *hcl.Block, name string) hcl.Diagnostics {
	var body imageBody
	if diags := gohcl.DecodeBody(block.Body, nil, &body); diags.HasErrors() {
		return diags
	}

	img := &Image{
		Name:    name,
		Width:   body.Width,
		Height:  body.Height,
		Virtual: body.Virtual,
		Fill:    body.Fill,
		Range:   block.DefRange,
	}
	switch {
	case body.Format != "":
		f, ok := vx.ParseDFImage(body.Format)
		if !ok {
			return blockError(block, "Unsupported image format", fmt.Sprintf("Image %q has unknown format %q.", name, body.Format))
		}
		img.Format = f
	case body.Virtual:
		img.Format = vx.DFImageVirt
	default:
		img.Format = vx.DFImageU8
	}

	if !img.Virtual && (img.Width <= 0 || img.Height <= 0) {
		return blockError(block, "Missing image size", fmt.Sprintf("Image %q needs a positive width and height.", name))
	}
	if img.Virtual && img.Fill != nil {
		return blockError(block, "Virtual image cannot be filled", fmt.Sprintf("Image %q is virtual and has no host data to fill.", name))
	}
	l.doc.Images = append(l.doc.Images, img)
	return nil
}

func (l *loader) array(block *hcl.Block, name string) hcl.Diagnostics {
	var body arrayBody
	if diags := gohcl.DecodeBody(block.Body, nil, &body); diags.HasErrors() {
		return diags
	}

	t, ok := vx.ParseType(body.ItemType)
	if !ok || (t != vx.TypeUserStruct && vx.SizeOf(t) == 0) {
		return blockError(block, "Unsupported item type", fmt.Sprintf("Array %q has unknown item type %q.", name, body.ItemType))
	}
	arr := &Array{
		Name:     name,
		ItemType: t,
		ItemSize: body.ItemSize,
		Capacity: body.Capacity,
		Virtual:  body.Virtual,
		Range:    block.DefRange,
	}
	if arr.Capacity <= 0 {
		return blockError(block, "Invalid array capacity", fmt.Sprintf("Array %q needs a positive capacity.", name))
	}
	if t == vx.TypeUserStruct && arr.ItemSize <= 0 {
		return blockError(block, "Missing item size", fmt.Sprintf("Array %q of user_struct needs item_size.", name))
	}

	if !body.Fill.IsNull() {
		switch {
		case arr.Virtual:
			return blockError(block, "Virtual array cannot be filled", fmt.Sprintf("Array %q is virtual and has no host data to fill.", name))
		case t == vx.TypeUserStruct:
			return blockError(block, "Unsupported fill", fmt.Sprintf("Array %q holds opaque items and cannot be filled.", name))
		}
		v, err := goValue(t, body.Fill)
		if err != nil {
			return blockError(block, "Invalid fill value", fmt.Sprintf("Array %q: %s.", name, err))
		}
		arr.Fill = v
	}
	l.doc.Arrays = append(l.doc.Arrays, arr)
	return nil
}

func (l *loader) scalar(block *hcl.Block, name string) hcl.Diagnostics {
	var body scalarBody
	if diags := gohcl.DecodeBody(block.Body, nil, &body); diags.HasErrors() {
		return diags
	}

	t, ok := vx.ParseType(body.Type)
	if !ok || vx.SizeOf(t) == 0 || t == vx.TypeRectangle {
		return blockError(block, "Unsupported scalar type", fmt.Sprintf("Scalar %q has unsupported type %q.", name, body.Type))
	}
	v, err := goValue(t, body.Value)
	if err != nil {
		return blockError(block, "Invalid scalar value", fmt.Sprintf("Scalar %q: %s.", name, err))
	}
	l.doc.Scalars = append(l.doc.Scalars, &Scalar{Name: name, Type: t, Value: v, Range: block.DefRange})
	return nil
}

func (l *loader) node(block *hcl.Block, name string) hcl.Diagnostics {
	var body nodeBody
	if diags := gohcl.DecodeBody(block.Body, nil, &body); diags.HasErrors() {
		return diags
	}

	exprs, diags := hcl.ExprList(body.Params)
	if diags.HasErrors() {
		return diags
	}
	n := &Node{Name: name, Kernel: body.Kernel, Range: block.DefRange}
	if body.Target != "" {
		n.Kernel = body.Target + ":" + body.Kernel
	}
	for _, expr := range exprs {
		ref, d := parseRef(expr)
		diags = append(diags, d...)
		n.Params = append(n.Params, ref)
	}
	if diags.HasErrors() {
		return diags
	}
	l.doc.Nodes = append(l.doc.Nodes, n)
	return nil
}

// parseRef reads a parameter expression: kind.name or null.
func parseRef(expr hcl.Expression) (Ref, hcl.Diagnostics) {
	// null also parses as a one-step traversal, so check the value first.
	if v, d := expr.Value(nil); !d.HasErrors() && v.IsNull() {
		return Ref{}, nil
	}
	trav, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return Ref{}, invalidRef(expr, "A parameter must be a reference such as image.input, or null.")
	}
	if len(trav) != 2 {
		return Ref{}, invalidRef(expr, fmt.Sprintf("%s is not of the form kind.name.", traversalKey(trav)))
	}
	attr, ok := trav[1].(hcl.TraverseAttr)
	if !ok {
		return Ref{}, invalidRef(expr, fmt.Sprintf("%s is not of the form kind.name.", traversalKey(trav)))
	}
	switch kind := trav.RootName(); kind {
	case kindImage, kindArray, kindScalar:
		return Ref{Kind: kind, Name: attr.Name, Range: expr.Range()}, nil
	default:
		return Ref{}, invalidRef(expr, fmt.Sprintf("%q is not an object kind; use image, array or scalar.", kind))
	}
}

// checkRefs reports parameters naming objects that no file declares.
func (l *loader) checkRefs() hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, n := range l.doc.Nodes {
		for _, r := range n.Params {
			if !r.IsSet() || l.doc.declared(r.Kind, r.Name) {
				continue
			}
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Reference to undeclared object",
				Detail:   fmt.Sprintf("Node %q uses %s, which is not declared.", n.Name, r),
				Subject:  r.Range.Ptr(),
			})
		}
	}
	return diags
}

// traversalKey renders a traversal as it would be written in a file.
func traversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

func invalidRef(expr hcl.Expression, detail string) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Invalid parameter reference",
		Detail:   detail,
		Subject:  expr.Range().Ptr(),
	}}
}

func blockError(block *hcl.Block, summary, detail string) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  &block.DefRange,
	}}
}

func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		dup := false
		for _, have := range list {
			if have == it {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, it)
		}
	}
	return list
}
