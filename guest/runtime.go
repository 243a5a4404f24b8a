package guest

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	wasmobject "github.com/wippyai/wasm-object"
	"github.com/wippyai/wasm-object/ebox"
	"github.com/wippyai/wasm-object/errors"
	"github.com/wippyai/wasm-object/resource"
)

var validate = validator.New()

// Config holds configuration for runtime creation
type Config struct {
	// MaxObjects caps the number of live objects in the store.
	// 0 means unlimited.
	MaxObjects int

	// HeapBase is the first address the host heap may hand out when the
	// module exports no allocator. 0 means DefaultHeapBase.
	HeapBase uint32
}

// DefaultHeapBase leaves the first KiB of memory to the guest's own data.
const DefaultHeapBase = 1024

// Class is a class registered with the runtime.
type Class struct {
	constructor wasmobject.Constructor
	handlers    *wasmobject.Handlers
	propIndex   map[string]int
	Name        string
	Properties  []string
	ID          uint32
}

// Offset returns the binding offset in front of this class' headers.
func (c *Class) Offset() uint32 {
	if c.handlers == nil {
		return 0
	}
	return c.handlers.Offset
}

// HasConstructor reports whether the class declares a constructor.
func (c *Class) HasConstructor() bool {
	return c.constructor != nil
}

// Runtime is an object runtime whose objects live in linear memory.
// Object operations are not safe for concurrent use, the same as a single
// guest instance; class registration is.
type Runtime struct {
	mem     wasmobject.Memory
	alloc   wasmobject.Allocator
	store   *resource.Table
	byName  map[string]*Class
	classes []*Class
	cfg     Config
	mu      sync.RWMutex
}

// New creates a runtime over mem that allocates objects with alloc.
func New(mem wasmobject.Memory, alloc wasmobject.Allocator, cfg *Config) (*Runtime, error) {
	if mem == nil {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "memory is nil")
	}
	if alloc == nil {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "allocator is nil")
	}

	r := &Runtime{
		mem:    mem,
		alloc:  alloc,
		store:  resource.NewTable(),
		byName: make(map[string]*Class),
	}
	if cfg != nil {
		r.cfg = *cfg
	}
	return r, nil
}

// Memory returns the runtime's linear memory.
func (r *Runtime) Memory() wasmobject.Memory {
	return r.mem
}

// Allocator returns the runtime's allocator.
func (r *Runtime) Allocator() wasmobject.Allocator {
	return r.alloc
}

// RegisterClass declares a class. Names are case-insensitive.
func (r *Runtime) RegisterClass(spec wasmobject.ClassSpec) (uint32, error) {
	if err := validate.Struct(spec); err != nil {
		return 0, errors.Registration(spec.Name, err)
	}
	if spec.Handlers != nil && spec.Handlers.Offset%HeaderAlign != 0 {
		return 0, errors.Registration(spec.Name,
			stderrors.New("handler offset must keep headers aligned"))
	}

	key := strings.ToLower(spec.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[key]; exists {
		return 0, errors.Registration(spec.Name, stderrors.New("class already registered"))
	}

	c := &Class{
		ID:          uint32(len(r.classes) + 1),
		Name:        spec.Name,
		Properties:  append([]string(nil), spec.Properties...),
		constructor: spec.Constructor,
		handlers:    spec.Handlers,
		propIndex:   make(map[string]int, len(spec.Properties)),
	}
	for i, p := range spec.Properties {
		c.propIndex[p] = i
	}
	r.classes = append(r.classes, c)
	r.byName[key] = c

	Logger().Debug("class registered",
		zap.String("class", c.Name),
		zap.Uint32("id", c.ID),
		zap.Int("properties", len(c.Properties)),
		zap.Bool("binding", c.handlers != nil))

	return c.ID, nil
}

// Class returns the class with the given id.
func (r *Runtime) Class(id uint32) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) > len(r.classes) {
		return nil, false
	}
	return r.classes[id-1], true
}

// LookupClass finds a class by name.
func (r *Runtime) LookupClass(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[strings.ToLower(name)]
	return c, ok
}

func (r *Runtime) class(phase errors.Phase, id uint32) (*Class, error) {
	c, ok := r.Class(id)
	if !ok {
		return nil, errors.New(phase, errors.KindNotFound).
			Value(id).
			Detail("class id %d", id).
			Build()
	}
	return c, nil
}

// HeaderSize returns the header size of the given class.
func (r *Runtime) HeaderSize(classID uint32) (uint32, error) {
	c, err := r.class(errors.PhaseConstruct, classID)
	if err != nil {
		return 0, err
	}
	return HeaderSize(len(c.Properties)), nil
}

// InitHeader turns the bytes at header into a live object of the class:
// refcount 1, class bound, properties zeroed, registered in the store.
func (r *Runtime) InitHeader(ctx context.Context, header, classID uint32) error {
	c, err := r.class(errors.PhaseConstruct, classID)
	if err != nil {
		return err
	}
	if header == 0 || header%HeaderAlign != 0 {
		return errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Class(c.Name).
			Addr(header).
			Detail("header address must be non-null and %d-byte aligned", HeaderAlign).
			Build()
	}
	if r.cfg.MaxObjects > 0 && r.store.Len() >= r.cfg.MaxObjects {
		return errors.New(errors.PhaseConstruct, errors.KindAllocation).
			Class(c.Name).
			Detail("object store full (%d objects)", r.cfg.MaxObjects).
			Build()
	}

	size := HeaderSize(len(c.Properties))
	if err := r.mem.Write(header, make([]byte, size)); err != nil {
		return err
	}

	handle := r.store.Insert(c.ID, header)
	if handle == 0 {
		return errors.New(errors.PhaseConstruct, errors.KindDestroyed).
			Class(c.Name).
			Detail("object store closed").
			Build()
	}

	for _, w := range [...]struct{ off, v uint32 }{
		{offRefcount, 1},
		{offTypeInfo, typeInfoObject},
		{offHandle, uint32(handle)},
		{offClass, c.ID},
	} {
		if err := r.mem.WriteU32(header+w.off, w.v); err != nil {
			r.store.Remove(handle)
			return err
		}
	}

	Logger().Debug("header initialized",
		zap.String("class", c.Name),
		zap.Uint32("header", header),
		zap.Uint32("handle", uint32(handle)))

	return nil
}

// live validates that header belongs to a live object and returns its class.
func (r *Runtime) live(phase errors.Phase, header uint32) (*Class, uint32, error) {
	if header == 0 {
		return nil, 0, errors.InvalidInput(phase, "null header")
	}
	rc, err := r.mem.ReadU32(header + offRefcount)
	if err != nil {
		return nil, 0, err
	}
	flags, err := r.mem.ReadU32(header + offFlags)
	if err != nil {
		return nil, 0, err
	}
	if rc == 0 || flags&flagFreeCalled != 0 {
		return nil, 0, errors.Destroyed(phase, header)
	}
	id, err := r.mem.ReadU32(header + offClass)
	if err != nil {
		return nil, 0, err
	}
	c, err := r.class(phase, id)
	if err != nil {
		return nil, 0, err
	}
	return c, rc, nil
}

// ClassID returns the class id bound to a live header.
func (r *Runtime) ClassID(header uint32) (uint32, error) {
	c, _, err := r.live(errors.PhaseAccess, header)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

// RefCount returns the reference count of a live header.
func (r *Runtime) RefCount(header uint32) (uint32, error) {
	_, rc, err := r.live(errors.PhaseRefcount, header)
	return rc, err
}

// AddRef increments the reference count and returns the new count.
func (r *Runtime) AddRef(header uint32) (uint32, error) {
	_, rc, err := r.live(errors.PhaseRefcount, header)
	if err != nil {
		return 0, err
	}
	rc++
	if err := r.mem.WriteU32(header+offRefcount, rc); err != nil {
		return 0, err
	}
	return rc, nil
}

// Release decrements the reference count. When it reaches zero the object
// is removed from the store: the class' Free hook runs, then the composite
// allocation is returned to the allocator.
func (r *Runtime) Release(ctx context.Context, header uint32) error {
	_, rc, err := r.live(errors.PhaseRefcount, header)
	if err != nil {
		return err
	}
	rc--
	if err := r.mem.WriteU32(header+offRefcount, rc); err != nil {
		return err
	}
	if rc > 0 {
		return nil
	}
	return r.storeDel(ctx, header)
}

func (r *Runtime) storeDel(ctx context.Context, header uint32) error {
	id, err := r.mem.ReadU32(header + offClass)
	if err != nil {
		return err
	}
	c, err := r.class(errors.PhaseTeardown, id)
	if err != nil {
		return err
	}
	flags, err := r.mem.ReadU32(header + offFlags)
	if err != nil {
		return err
	}
	if err := r.mem.WriteU32(header+offFlags, flags|flagFreeCalled); err != nil {
		return err
	}

	var hookErr error
	if c.handlers != nil && c.handlers.Free != nil {
		hookErr = c.handlers.Free(ctx, header)
	}

	// Whatever the hook did, the header's own resources go before the bytes.
	if err := r.DestroyHeader(ctx, header); err != nil && hookErr == nil {
		hookErr = err
	}

	offset := c.Offset()
	r.alloc.Free(header-offset, offset+HeaderSize(len(c.Properties)), HeaderAlign)

	Logger().Debug("object freed",
		zap.String("class", c.Name),
		zap.Uint32("header", header),
		zap.Uint32("offset", offset))

	if hookErr != nil {
		return errors.Wrap(errors.PhaseTeardown, errors.KindHook, hookErr, "free hook of class "+c.Name)
	}
	return nil
}

// DestroyHeader releases what the header owns: its store entry and its
// property slots. Safe to call more than once.
func (r *Runtime) DestroyHeader(ctx context.Context, header uint32) error {
	flags, err := r.mem.ReadU32(header + offFlags)
	if err != nil {
		return err
	}
	if flags&flagHeaderDestroyed != 0 {
		return nil
	}

	handle, err := r.mem.ReadU32(header + offHandle)
	if err != nil {
		return err
	}
	id, err := r.mem.ReadU32(header + offClass)
	if err != nil {
		return err
	}
	c, err := r.class(errors.PhaseTeardown, id)
	if err != nil {
		return err
	}

	r.store.Remove(resource.Handle(handle))
	if n := len(c.Properties); n > 0 {
		if err := r.mem.Write(header+HeaderBaseSize, make([]byte, n*PropertySize)); err != nil {
			return err
		}
	}
	return r.mem.WriteU32(header+offFlags, flags|flagHeaderDestroyed)
}

// NewStdObject creates a header-only object of a class that has no binding.
func (r *Runtime) NewStdObject(ctx context.Context, classID uint32) (uint32, error) {
	c, err := r.class(errors.PhaseConstruct, classID)
	if err != nil {
		return 0, err
	}
	if c.handlers != nil {
		return 0, errors.New(errors.PhaseConstruct, errors.KindUnsupported).
			Class(c.Name).
			Detail("class with a binding must be created through it").
			Build()
	}

	box := ebox.New(r.alloc, r.mem, ebox.Zeroed(HeaderSize(len(c.Properties)), HeaderAlign), struct{}{})
	if err := r.InitHeader(ctx, box.Ptr(), classID); err != nil {
		box.Release()
		return 0, err
	}
	return box.IntoRaw(), nil
}

// Construct runs the class constructor, if any, and reports whether one ran.
func (r *Runtime) Construct(ctx context.Context, header uint32, args []uint64) (bool, error) {
	c, _, err := r.live(errors.PhaseConstruct, header)
	if err != nil {
		return false, err
	}
	if c.constructor == nil {
		return false, nil
	}
	return true, c.constructor(ctx, header, args)
}

// Clone deep-clones an object. Classes with a Clone hook clone through it;
// header-only classes get a new header with copied properties.
func (r *Runtime) Clone(ctx context.Context, header uint32) (uint32, error) {
	c, _, err := r.live(errors.PhaseClone, header)
	if err != nil {
		return 0, err
	}

	if c.handlers != nil {
		if c.handlers.Clone == nil {
			return 0, errors.New(errors.PhaseClone, errors.KindUnsupported).
				Class(c.Name).
				Addr(header).
				Detail("class binding has no clone hook").
				Build()
		}
		return c.handlers.Clone(ctx, header)
	}

	dst, err := r.NewStdObject(ctx, c.ID)
	if err != nil {
		return 0, err
	}
	if err := r.CloneMembers(header, dst); err != nil {
		if rerr := r.Release(ctx, dst); rerr != nil {
			Logger().Warn("release of half-cloned object failed",
				zap.String("class", c.Name),
				zap.Uint32("header", dst),
				zap.Error(rerr))
		}
		return 0, err
	}
	return dst, nil
}

// CloneMembers copies the property slots of src into dst. Both must be live
// objects of the same class.
func (r *Runtime) CloneMembers(src, dst uint32) error {
	sc, _, err := r.live(errors.PhaseClone, src)
	if err != nil {
		return err
	}
	dc, _, err := r.live(errors.PhaseClone, dst)
	if err != nil {
		return err
	}
	if sc.ID != dc.ID {
		return errors.New(errors.PhaseClone, errors.KindTypeMismatch).
			Class(dc.Name).
			Detail("cannot copy members from class %s", sc.Name).
			Build()
	}
	n := uint32(len(sc.Properties)) * PropertySize
	if n == 0 {
		return nil
	}
	data, err := r.mem.Read(src+HeaderBaseSize, n)
	if err != nil {
		return err
	}
	return r.mem.Write(dst+HeaderBaseSize, append([]byte(nil), data...))
}

func (r *Runtime) property(header uint32, name string) (uint32, error) {
	c, _, err := r.live(errors.PhaseAccess, header)
	if err != nil {
		return 0, err
	}
	i, ok := c.propIndex[name]
	if !ok {
		return 0, errors.New(errors.PhaseAccess, errors.KindNotFound).
			Class(c.Name).
			Detail("undeclared property %q", name).
			Build()
	}
	return header + HeaderBaseSize + uint32(i)*PropertySize, nil
}

// ReadProperty reads a declared property slot.
func (r *Runtime) ReadProperty(header uint32, name string) (uint64, error) {
	addr, err := r.property(header, name)
	if err != nil {
		return 0, err
	}
	return r.mem.ReadU64(addr)
}

// WriteProperty writes a declared property slot.
func (r *Runtime) WriteProperty(header uint32, name string, v uint64) error {
	addr, err := r.property(header, name)
	if err != nil {
		return err
	}
	return r.mem.WriteU64(addr, v)
}

// Live returns the number of objects in the store.
func (r *Runtime) Live() int {
	return r.store.Len()
}

// Objects returns the header addresses of all live objects.
func (r *Runtime) Objects() []uint32 {
	var out []uint32
	r.store.Each(func(_ resource.Handle, _ uint32, v any) bool {
		out = append(out, v.(uint32))
		return true
	})
	return out
}

// Close retires the object store. Objects still alive are reported and left
// to the allocator's owner.
func (r *Runtime) Close() error {
	if n := r.store.Len(); n > 0 {
		Logger().Warn("runtime closed with live objects", zap.Int("objects", n))
	}
	return r.store.Close()
}
