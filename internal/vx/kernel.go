package vx

// KernelFunc runs, initializes or deinitializes a kernel instance. params
// holds the node's bound references in signature order.
type KernelFunc func(n *Node, params []Reference) error

// ValidateFunc checks a node's parameters at graph verification. metas has
// one entry per parameter; entries of output parameters must be filled in
// with the geometry the kernel will produce.
type ValidateFunc func(n *Node, params []Reference, metas []*MetaFormat) error

// KernelFuncs is the function table of a kernel.
type KernelFuncs struct {
	Run          KernelFunc
	Validate     ValidateFunc
	Initialize   KernelFunc
	Deinitialize KernelFunc
}

// ParamSpec describes one slot of a kernel signature.
type ParamSpec struct {
	Direction Direction
	Type      Type
	State     ParameterState

	set bool
}

// KernelDescription declares a kernel in one go.
type KernelDescription struct {
	Enum          KernelEnum
	Name          string
	Funcs         KernelFuncs
	Params        []ParamSpec
	LocalDataSize int
}

// Kernel is a named, registered operation.
type Kernel struct {
	reference

	enum          KernelEnum
	funcs         KernelFuncs
	params        []ParamSpec
	localDataSize int
	user          bool
	builtin       bool
	finalized     bool
	enabled       bool
	target        *Target
}

func (k *Kernel) base() *reference {
	if k == nil {
		return nil
	}
	return &k.reference
}

// Enum is the numeric kernel id.
func (k *Kernel) Enum() KernelEnum { return k.enum }

// NumParams is the signature length.
func (k *Kernel) NumParams() int { return len(k.params) }

// Param returns the signature slot at index.
func (k *Kernel) Param(index int) (ParamSpec, error) {
	if index < 0 || index >= len(k.params) {
		return ParamSpec{}, Errorf(ErrorInvalidParameters, "kernel %s has no parameter %d", k.name, index)
	}
	return k.params[index], nil
}

// LocalDataSize is the per-node scratch memory size.
func (k *Kernel) LocalDataSize() int { return k.localDataSize }

// Target is the target the kernel is registered on.
func (k *Kernel) Target() *Target { return k.target }

// Enabled reports whether the kernel is finalized and not removed.
func (k *Kernel) Enabled() bool {
	k.context.mu.Lock()
	defer k.context.mu.Unlock()
	return k.enabled
}

// Release drops a handle obtained from GetKernelByName or GetKernelByEnum.
func (k *Kernel) Release() error {
	return k.base().releaseExternal(TypeKernel)
}

// AddKernel registers a kernel from its description, enabled immediately.
// Kernels added while the context is being created are built-ins and cannot
// be removed; modules call AddKernel from Publish and RemoveKernel from
// Unpublish.
func (t *Target) AddKernel(d KernelDescription) error {
	if d.Funcs.Run == nil || d.Name == "" {
		return Errorf(ErrorInvalidParameters, "kernel %q has no run function", d.Name)
	}
	params := make([]ParamSpec, len(d.Params))
	for i, p := range d.Params {
		p.set = true
		params[i] = p
	}
	k := &Kernel{
		enum:          d.Enum,
		funcs:         d.Funcs,
		params:        params,
		localDataSize: d.LocalDataSize,
		builtin:       !t.context.sealed.Load(),
		finalized:     true,
		enabled:       true,
		target:        t,
	}
	return t.context.registerKernel(t, k, d.Name)
}

func (c *Context) registerKernel(t *Target, k *Kernel, name string) error {
	c.mu.Lock()
	for _, other := range c.targets {
		for _, existing := range other.kernels {
			if existing.enabled && existing.name == name {
				c.mu.Unlock()
				return Errorf(ErrorInvalidParameters, "kernel %q already registered on %s", name, other.name)
			}
		}
	}
	c.mu.Unlock()

	c.addReference(&k.reference, TypeKernel)
	k.name = name
	k.external.Store(0)
	k.internal.Store(1)

	c.mu.Lock()
	t.kernels = append(t.kernels, k)
	c.mu.Unlock()
	return nil
}

// AddUserKernel registers a kernel whose signature is completed with
// AddParameter and committed with Finalize. The name may carry a
// "target:" prefix; without one the first target is used.
func (c *Context) AddUserKernel(name string, enum KernelEnum, funcs KernelFuncs, numParams int) (*Kernel, error) {
	if !c.Valid() {
		return nil, Errorf(ErrorInvalidReference, "add kernel on released context")
	}
	if funcs.Run == nil || numParams <= 0 {
		return nil, Errorf(ErrorInvalidParameters, "kernel %q needs a run function and parameters", name)
	}
	targetName, kernelName := splitTargetName(name)
	t := c.findTarget(targetName)
	if t == nil {
		return nil, Errorf(ErrorNoResources, "no target %q for kernel %q", targetName, kernelName)
	}
	k := &Kernel{
		enum:   enum,
		funcs:  funcs,
		params: make([]ParamSpec, numParams),
		user:   true,
		target: t,
	}
	if err := c.registerKernel(t, k, kernelName); err != nil {
		return nil, err
	}
	c.logger.Debug("User kernel added.", "kernel", kernelName, "target", t.name)
	return k, nil
}

// AddParameter declares signature slot index of a user kernel.
func (k *Kernel) AddParameter(index int, dir Direction, typ Type, state ParameterState) error {
	if !k.base().valid(TypeKernel) || !k.user {
		return Errorf(ErrorInvalidReference, "add parameter to kernel")
	}
	if k.finalized {
		return Errorf(ErrorNotSupported, "kernel %s is already finalized", k.name)
	}
	if index < 0 || index >= len(k.params) {
		return Errorf(ErrorInvalidParameters, "kernel %s parameter %d out of range", k.name, index)
	}
	if dir < Input || dir > Bidirectional {
		return Errorf(ErrorInvalidParameters, "kernel %s parameter %d has bad direction %d", k.name, index, dir)
	}
	k.params[index] = ParamSpec{Direction: dir, Type: typ, State: state, set: true}
	return nil
}

// SetLocalDataSize sets the scratch memory each node of this kernel gets.
func (k *Kernel) SetLocalDataSize(size int) error {
	if k.finalized {
		return Errorf(ErrorNotSupported, "kernel %s is already finalized", k.name)
	}
	if size < 0 {
		return Errorf(ErrorInvalidValue, "negative local data size")
	}
	k.localDataSize = size
	return nil
}

// Finalize makes a user kernel available for node creation.
func (k *Kernel) Finalize() error {
	if !k.base().valid(TypeKernel) {
		return Errorf(ErrorInvalidReference, "finalize kernel")
	}
	for i, p := range k.params {
		if !p.set {
			return Errorf(ErrorInvalidParameters, "kernel %s parameter %d was never added", k.name, i)
		}
	}
	k.context.mu.Lock()
	k.finalized = true
	k.enabled = true
	k.context.mu.Unlock()
	return nil
}

// RemoveKernel unregisters a kernel added by a module or by AddUserKernel.
// Handles still held stay valid but the kernel can no longer be found or
// instantiated.
func (c *Context) RemoveKernel(k *Kernel) error {
	if !k.base().valid(TypeKernel) {
		return Errorf(ErrorInvalidReference, "remove kernel")
	}
	if k.builtin {
		return Errorf(ErrorNotSupported, "built-in kernel %s cannot be removed", k.name)
	}
	c.mu.Lock()
	t := k.target
	for i, existing := range t.kernels {
		if existing == k {
			t.kernels = append(t.kernels[:i], t.kernels[i+1:]...)
			break
		}
	}
	k.enabled = false
	c.mu.Unlock()
	k.releaseInternal()
	c.logger.Debug("Kernel removed.", "kernel", k.name, "target", t.name)
	return nil
}

// GetKernelByName resolves an enabled kernel. The name may carry a
// "target:" prefix. The returned handle must be released.
func (c *Context) GetKernelByName(name string) (*Kernel, error) {
	if !c.Valid() {
		return nil, Errorf(ErrorInvalidReference, "kernel lookup on released context")
	}
	targetName, kernelName := splitTargetName(name)
	return c.lookupKernel(targetName, func(k *Kernel) bool { return k.name == kernelName }, name)
}

// GetKernelByEnum resolves an enabled kernel by id.
func (c *Context) GetKernelByEnum(enum KernelEnum) (*Kernel, error) {
	if !c.Valid() {
		return nil, Errorf(ErrorInvalidReference, "kernel lookup on released context")
	}
	return c.lookupKernel(anyTarget, func(k *Kernel) bool { return k.enum == enum }, enum)
}

func (c *Context) lookupKernel(targetName string, match func(*Kernel) bool, key any) (*Kernel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.targets {
		if targetName != anyTarget && t.name != targetName {
			continue
		}
		for _, k := range t.kernels {
			if k.enabled && match(k) {
				k.external.Add(1)
				return k, nil
			}
		}
	}
	return nil, Errorf(ErrorInvalidParameters, "kernel %v not found", key)
}
