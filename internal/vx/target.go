package vx

import "strings"

// anyTarget matches whichever target comes first.
const anyTarget = "khronos.any"

// Target is an execution backend holding a table of kernels.
type Target struct {
	name     string
	priority int
	context  *Context
	kernels  []*Kernel
}

// TargetKernel is one row of a target's kernel table.
type TargetKernel struct {
	Enum KernelEnum `json:"enum" yaml:"enum"`
	Name string     `json:"name" yaml:"name"`
}

// Name is the qualified target name.
func (t *Target) Name() string { return t.name }

// Priority is the target's position in the context, lower runs first.
func (t *Target) Priority() int { return t.priority }

// NumKernels counts the enabled kernels of the target.
func (t *Target) NumKernels() int {
	t.context.mu.Lock()
	defer t.context.mu.Unlock()
	return t.numKernelsLocked()
}

func (t *Target) numKernelsLocked() int {
	n := 0
	for _, k := range t.kernels {
		if k.enabled {
			n++
		}
	}
	return n
}

// Table lists the enabled kernels of the target in registration order.
func (t *Target) Table() []TargetKernel {
	t.context.mu.Lock()
	defer t.context.mu.Unlock()
	table := make([]TargetKernel, 0, len(t.kernels))
	for _, k := range t.kernels {
		if k.enabled {
			table = append(table, TargetKernel{Enum: k.enum, Name: k.name})
		}
	}
	return table
}

// splitTargetName separates an optional "target:" prefix from a kernel name.
func splitTargetName(name string) (target, kernel string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return anyTarget, name
}

// findTarget resolves a target name, "khronos.any" matching the first one.
func (c *Context) findTarget(name string) *Target {
	if len(c.targets) == 0 {
		return nil
	}
	if name == anyTarget || name == "" {
		return c.targets[0]
	}
	for _, t := range c.targets {
		if t.name == name {
			return t
		}
	}
	return nil
}

// hasKernel reports whether an enabled kernel called name is registered on
// the target.
func (t *Target) hasKernel(name string) bool {
	t.context.mu.Lock()
	defer t.context.mu.Unlock()
	for _, k := range t.kernels {
		if k.enabled && k.name == name {
			return true
		}
	}
	return false
}

// TargetByName resolves a qualified target name. "khronos.any" resolves to
// the default target.
func (c *Context) TargetByName(name string) (*Target, error) {
	if !c.Valid() {
		return nil, Errorf(ErrorInvalidReference, "target query on released context")
	}
	t := c.findTarget(name)
	if t == nil {
		return nil, Errorf(ErrorInvalidParameters, "no target %q", name)
	}
	return t, nil
}
