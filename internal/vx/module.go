package vx

import "fmt"

// Module is a loadable kernel extension. Publish registers its kernels on
// first load, Unpublish removes them when the last load is undone.
type Module interface {
	Publish(c *Context) error
	Unpublish(c *Context) error
}

// Catalog maps extension names, as passed to LoadKernels, to modules. It
// plays the role of a library search path.
type Catalog map[string]Module

type loadedModule struct {
	module   Module
	refCount int
}

// LoadKernels loads the named extension. Loading an already loaded extension
// only increases its load count.
func (c *Context) LoadKernels(name string) error {
	if !c.Valid() {
		return Errorf(ErrorInvalidReference, "load %q on released context", name)
	}

	c.mu.Lock()
	if m, ok := c.modules[name]; ok {
		m.refCount++
		c.mu.Unlock()
		c.logger.Debug("Module already loaded.", "module", name, "loads", m.refCount)
		return nil
	}
	mod, ok := c.catalog[name]
	c.mu.Unlock()
	if !ok {
		c.logger.Error("Failed to find module in catalog.", "module", name)
		return Errorf(Failure, "module %q not found", name)
	}

	// publish re-enters the context to add kernels, so it runs unlocked
	c.logger.Debug("Calling module publish function.", "module", name)
	if err := mod.Publish(c); err != nil {
		c.logger.Error("Failed to publish kernels in module.", "module", name, "error", err)
		if StatusOf(err) == Failure {
			return Errorf(ErrorInvalidModule, "publish %q: %v", name, err)
		}
		return fmt.Errorf("publish %q: %w", name, err)
	}

	c.mu.Lock()
	c.modules[name] = &loadedModule{module: mod, refCount: 1}
	c.mu.Unlock()
	c.logger.Info("Module loaded.", "module", name)
	return nil
}

// UnloadKernels undoes one LoadKernels call. The module's kernels are
// unpublished when its load count reaches zero.
func (c *Context) UnloadKernels(name string) error {
	if !c.Valid() {
		return Errorf(ErrorInvalidReference, "unload %q on released context", name)
	}

	c.mu.Lock()
	m, ok := c.modules[name]
	if !ok {
		c.mu.Unlock()
		return Errorf(Failure, "module %q is not loaded", name)
	}
	m.refCount--
	if m.refCount > 0 {
		c.mu.Unlock()
		return nil
	}
	delete(c.modules, name)
	c.mu.Unlock()

	if err := m.module.Unpublish(c); err != nil {
		c.logger.Error("Failed to unpublish kernels in module.", "module", name, "error", err)
		return fmt.Errorf("unpublish %q: %w", name, err)
	}
	c.logger.Debug("Module unloaded.", "module", name)
	return nil
}
