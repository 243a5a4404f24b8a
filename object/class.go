package object

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-object/ebox"
	"github.com/wippyai/wasm-object/errors"
)

// Class is a runtime class whose objects carry a state of type T.
type Class[T any] struct {
	reg    *Registry
	cloner func(*T) T
	name   string
	id     uint32
	typeID uint32
}

// ClassOption customizes a class at registration.
type ClassOption[T any] func(*Class[T])

// WithStateCloner sets how Clone copies state. The default copies *T by
// value, which shares anything T points to.
func WithStateCloner[T any](fn func(*T) T) ClassOption[T] {
	return func(c *Class[T]) {
		c.cloner = fn
	}
}

// WithoutClone makes Clone fail for this class.
func WithoutClone[T any]() ClassOption[T] {
	return func(c *Class[T]) {
		c.cloner = nil
	}
}

// Name returns the class name.
func (c *Class[T]) Name() string { return c.name }

// ID returns the runtime class id.
func (c *Class[T]) ID() uint32 { return c.id }

// Registry returns the registry the class is bound in.
func (c *Class[T]) Registry() *Registry { return c.reg }

// create allocates a composite record, stores state in its slot and makes
// the header live. The record is boxed until the runtime accepts the header,
// so every earlier failure frees it once and drops the state with it.
func (c *Class[T]) create(ctx context.Context, state T) (uint32, error) {
	rt := c.reg.rt

	hsize, err := rt.HeaderSize(c.id)
	if err != nil {
		return 0, err
	}
	layout := compositeLayout{reg: c.reg, header: hsize}

	box := ebox.New(rt.Allocator(), rt.Memory(), ebox.Layout[slot](layout), slot{})

	p := new(T)
	*p = state
	handle := c.reg.states.Insert(c.typeID, p)
	if handle == 0 {
		box.Release()
		return 0, errors.New(errors.PhaseConstruct, errors.KindDestroyed).
			Class(c.name).
			Detail("state table closed").
			Build()
	}

	if err := box.Set(slot{handle: handle, typeID: c.typeID}); err != nil {
		box.Release()
		c.reg.states.Remove(handle)
		return 0, err
	}

	if err := rt.InitHeader(ctx, HeaderOf(box.Ptr()), c.id); err != nil {
		box.Release()
		return 0, err
	}

	// The runtime owns the record from here; its Free hook tears it down.
	composite := box.IntoRaw()
	header := HeaderOf(composite)

	Logger().Debug("object created",
		zap.String("class", c.name),
		zap.Uint32("composite", composite),
		zap.Uint32("header", header),
		zap.Uint32("state", uint32(handle)))

	return header, nil
}

// free is the class' Free hook: drop the state, then destroy the header.
// The runtime frees the composite afterwards.
func (c *Class[T]) free(ctx context.Context, header uint32) error {
	rt := c.reg.rt
	stateErr := c.reg.dropState(CompositeOf(header))
	if stateErr != nil {
		Logger().Warn("state slot unreadable during teardown",
			zap.String("class", c.name),
			zap.Uint32("header", header),
			zap.Error(stateErr))
	}
	return stderrors.Join(stateErr, rt.DestroyHeader(ctx, header))
}

// clone is the class' Clone hook.
func (c *Class[T]) clone(ctx context.Context, header uint32) (uint32, error) {
	src, err := c.state(header)
	if err != nil {
		return 0, err
	}

	dst, err := c.create(ctx, c.cloner(src))
	if err != nil {
		return 0, err
	}

	rt := c.reg.rt
	if err := rt.CloneMembers(header, dst); err != nil {
		if rerr := rt.Release(ctx, dst); rerr != nil {
			Logger().Warn("release of half-cloned object failed",
				zap.String("class", c.name),
				zap.Uint32("header", dst),
				zap.Error(rerr))
		}
		return 0, err
	}
	return dst, nil
}

// state resolves the typed state behind a header. With CheckStateType the
// table entry must carry the class' state type; without it, only the type
// the slot recorded, which still catches a recycled handle.
func (c *Class[T]) state(header uint32) (*T, error) {
	s, err := readSlot(c.reg.rt.Memory(), CompositeOf(header))
	if err != nil {
		return nil, err
	}
	if s.handle == 0 {
		return nil, errors.Destroyed(errors.PhaseAccess, header)
	}

	want := s.typeID
	if c.reg.opts.CheckStateType {
		want = c.typeID
	}
	v, ok := c.reg.states.GetTyped(s.handle, want)
	if !ok {
		got, live := c.reg.states.TypeID(s.handle)
		if !live {
			return nil, errors.Destroyed(errors.PhaseAccess, header)
		}
		return nil, errors.TypeMismatch(errors.PhaseAccess, c.name,
			fmt.Sprintf("%T", (*T)(nil)), fmt.Sprintf("state type %d", got))
	}
	p, ok := v.(*T)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseAccess, c.name,
			fmt.Sprintf("%T", (*T)(nil)), fmt.Sprintf("%T", v))
	}
	return p, nil
}

// dropState clears the slot and removes its state from the table, which
// runs the state's Drop. A cleared slot makes a second call a no-op.
func (r *Registry) dropState(composite uint32) error {
	mem := r.rt.Memory()
	s, err := readSlot(mem, composite)
	if err != nil {
		return err
	}
	if s.handle == 0 {
		return nil
	}
	if err := writeSlot(mem, composite, slot{}); err != nil {
		return err
	}
	r.states.Remove(s.handle)
	return nil
}
