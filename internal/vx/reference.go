package vx

import "sync/atomic"

// Reference is the common view over every object owned by a Context.
type Reference interface {
	// Type is the object type tag.
	Type() Type
	// Context is the owning context, nil once the object is destroyed.
	Context() *Context
	// Name is the user visible label, empty by default.
	Name() string
	// SetName labels the object for logs and diagnostics.
	SetName(name string)

	base() *reference
}

// reference carries the bookkeeping shared by all objects. Objects are
// destroyed when both the external (user) and internal (graph) counts reach
// zero.
type reference struct {
	id       uint64
	typ      Type
	context  *Context
	name     string
	external atomic.Int32
	internal atomic.Int32
	dead     atomic.Bool
	destroy  func()
}

func (r *reference) Type() Type { return r.typ }

func (r *reference) Context() *Context {
	if r.dead.Load() {
		return nil
	}
	return r.context
}

func (r *reference) Name() string { return r.name }

func (r *reference) SetName(name string) { r.name = name }

func (r *reference) base() *reference { return r }

// valid reports whether the object is alive, of type t and owned by a live
// context.
func (r *reference) valid(t Type) bool {
	if r == nil || r.dead.Load() || r.typ != t {
		return false
	}
	return r.context != nil && !r.context.dead.Load()
}

func (r *reference) retain() {
	r.internal.Add(1)
}

// releaseInternal drops a graph-held count and destroys the object if nothing
// else holds it.
func (r *reference) releaseInternal() {
	if r.internal.Add(-1) <= 0 && r.external.Load() <= 0 {
		r.finalize()
	}
}

// releaseExternal drops the user-held count.
func (r *reference) releaseExternal(t Type) error {
	if !r.valid(t) {
		return Errorf(ErrorInvalidReference, "release %s", t)
	}
	if r.external.Add(-1) <= 0 && r.internal.Load() <= 0 {
		r.finalize()
	}
	return nil
}

func (r *reference) finalize() {
	if !r.dead.CompareAndSwap(false, true) {
		return
	}
	if r.destroy != nil {
		r.destroy()
	}
	if r.context != nil {
		r.context.removeReference(r)
	}
}

// isValid reports whether ref is a live object of type t.
func isValid(ref Reference, t Type) bool {
	if ref == nil {
		return false
	}
	return ref.base().valid(t)
}

// ReferenceID returns the context-unique id of a reference.
func ReferenceID(ref Reference) uint64 {
	if ref == nil {
		return 0
	}
	return ref.base().id
}
