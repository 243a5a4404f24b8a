package object

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-object/errors"
)

// ErrReleased is returned by operations on a handle that was already
// released. It matches with errors.Is.
var ErrReleased = &errors.Error{
	Phase:  errors.PhaseRefcount,
	Kind:   errors.KindReleased,
	Detail: "object handle already released",
}

// Object is a typed handle to a runtime object whose state is a T.
//
// Each handle owns one reference. Release gives it back; the runtime tears
// the object down when the last reference goes. Dropping a handle without
// Release leaks that reference, it never frees anything.
// An Object is not safe for concurrent use.
type Object[T any] struct {
	class       *Class[T]
	header      uint32
	released    bool
	constructed bool
}

// New constructs an object of class c holding state.
//
// Allocation failure panics. If the class constructor fails the object has
// already been made visible to the runtime, so it is released through the
// normal refcount path (state dropped once, memory freed) and a constructor
// error is returned.
func New[T any](ctx context.Context, c *Class[T], state T, args ...uint64) (*Object[T], error) {
	header, err := c.create(ctx, state)
	if err != nil {
		return nil, err
	}

	rt := c.reg.rt
	ran, err := rt.Construct(ctx, header, args)
	if err != nil {
		if rerr := rt.Release(ctx, header); rerr != nil {
			Logger().Warn("release after constructor failure",
				zap.String("class", c.name),
				zap.Uint32("header", header),
				zap.Error(rerr))
		}
		return nil, errors.ConstructorFailed(c.name, header, err)
	}

	return &Object[T]{class: c, header: header, constructed: ran}, nil
}

// NewByName constructs an object of the class bound under name.
func NewByName[T any](ctx context.Context, r *Registry, name string, state T, args ...uint64) (*Object[T], error) {
	c, err := Lookup[T](r, name)
	if err != nil {
		return nil, err
	}
	return New(ctx, c, state, args...)
}

// Wrap returns a new handle for a header address handed out by the
// runtime. The header must be a live object of class c; the handle takes
// its own reference.
func Wrap[T any](c *Class[T], header uint32) (*Object[T], error) {
	rt := c.reg.rt
	id, err := rt.ClassID(header)
	if err != nil {
		return nil, err
	}
	if id != c.id {
		return nil, errors.New(errors.PhaseAccess, errors.KindTypeMismatch).
			Class(c.name).
			Addr(header).
			GoType(fmt.Sprintf("%T", (*T)(nil))).
			Detail("header belongs to class id %d", id).
			Build()
	}
	if _, err := rt.AddRef(header); err != nil {
		return nil, err
	}
	return &Object[T]{class: c, header: header}, nil
}

// Header returns the runtime header address, the only address the runtime
// knows the object by.
func (o *Object[T]) Header() uint32 {
	return o.header
}

// Class returns the object's class.
func (o *Object[T]) Class() *Class[T] {
	return o.class
}

// Constructed reports whether the class constructor ran when this handle's
// object was created by New. Handles from Duplicate, Clone and Wrap report
// false.
func (o *Object[T]) Constructed() bool {
	return o.constructed
}

// Released reports whether Release was called on this handle.
func (o *Object[T]) Released() bool {
	return o.released
}

// State returns a copy of the object's state.
func (o *Object[T]) State() T {
	return *o.mustState()
}

// StateMut returns the object's state for in-place mutation. Every handle
// to the object sees the same value.
func (o *Object[T]) StateMut() *T {
	return o.mustState()
}

// mustState panics on misuse: a released handle or a slot that does not
// hold a T means a lifecycle or registration bug, not a runtime condition.
func (o *Object[T]) mustState() *T {
	if o.released {
		panic(ErrReleased)
	}
	p, err := o.class.state(o.header)
	if err != nil {
		panic(err)
	}
	return p
}

// RefCount returns the runtime's reference count for the object.
func (o *Object[T]) RefCount() (uint32, error) {
	if o.released {
		return 0, ErrReleased
	}
	return o.class.reg.rt.RefCount(o.header)
}

// Duplicate returns another handle to the same object. Both handles must be
// released.
func (o *Object[T]) Duplicate() (*Object[T], error) {
	if o.released {
		return nil, ErrReleased
	}
	if _, err := o.class.reg.rt.AddRef(o.header); err != nil {
		return nil, err
	}
	return &Object[T]{class: o.class, header: o.header}, nil
}

// Clone deep-clones the object through the runtime. The clone has its own
// state copy, its own properties and a reference count of 1.
func (o *Object[T]) Clone(ctx context.Context) (*Object[T], error) {
	if o.released {
		return nil, ErrReleased
	}
	header, err := o.class.reg.rt.Clone(ctx, o.header)
	if err != nil {
		return nil, err
	}
	return &Object[T]{class: o.class, header: header}, nil
}

// Release gives up this handle's reference. The last release tears the
// object down. Releasing the same handle twice returns ErrReleased and
// leaves the count alone.
func (o *Object[T]) Release(ctx context.Context) error {
	if o.released {
		return ErrReleased
	}
	o.released = true
	return o.class.reg.rt.Release(ctx, o.header)
}

// Property reads a declared property through the runtime.
func (o *Object[T]) Property(name string) (uint64, error) {
	if o.released {
		return 0, ErrReleased
	}
	return o.class.reg.rt.ReadProperty(o.header, name)
}

// SetProperty writes a declared property through the runtime.
func (o *Object[T]) SetProperty(name string, v uint64) error {
	if o.released {
		return ErrReleased
	}
	return o.class.reg.rt.WriteProperty(o.header, name, v)
}
