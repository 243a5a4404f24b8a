package object

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	wasmobject "github.com/wippyai/wasm-object"
	"github.com/wippyai/wasm-object/errors"
	"github.com/wippyai/wasm-object/resource"
)

var validate = validator.New()

// Options configures the binding layer.
type Options struct {
	// CheckStateType compares the slot's type id with the class on every
	// state access. The type assertion on the stored value always runs.
	CheckStateType bool
}

// DefaultOptions returns default binding configuration.
func DefaultOptions() Options {
	return Options{
		CheckStateType: true,
	}
}

// ClassConfig declares a class whose objects carry typed state.
type ClassConfig struct {
	// Constructor runs inside the runtime after the header is live.
	Constructor wasmobject.Constructor
	Name        string   `validate:"required,max=255"`
	Properties  []string `validate:"unique,dive,required,max=255"`
}

// Registry binds state-carrying classes to a runtime and owns the table
// that holds their state.
// Thread-safe for registration and lookup.
type Registry struct {
	rt       Runtime
	states   *resource.Table
	classes  map[string]any
	opts     Options
	nextType uint32
	mu       sync.RWMutex
}

// NewRegistry creates a registry over rt.
func NewRegistry(rt Runtime, opts Options) *Registry {
	return &Registry{
		rt:      rt,
		states:  resource.NewTable(),
		classes: make(map[string]any),
		opts:    opts,
	}
}

// Runtime returns the runtime the registry is bound to.
func (r *Registry) Runtime() Runtime {
	return r.rt
}

// Subscribe observes state creation and teardown.
func (r *Registry) Subscribe(o resource.Observer) {
	r.states.Subscribe(o)
}

// Unsubscribe removes a state observer.
func (r *Registry) Unsubscribe(o resource.Observer) {
	r.states.Unsubscribe(o)
}

// LiveStates returns the number of state values not yet torn down.
func (r *Registry) LiveStates() int {
	return r.states.Len()
}

// Close drops any state still held. Objects whose state is dropped here were
// leaked by their owners; their headers stay with the runtime.
func (r *Registry) Close() error {
	if n := r.states.Len(); n > 0 {
		Logger().Warn("registry closed with live state", zap.Int("states", n))
	}
	return r.states.Close()
}

// Register declares a class on the runtime and fixes its state type to T.
func Register[T any](r *Registry, cfg ClassConfig, opts ...ClassOption[T]) (*Class[T], error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Registration(cfg.Name, err)
	}

	c := &Class[T]{
		reg:    r,
		name:   cfg.Name,
		cloner: func(src *T) T { return *src },
	}
	for _, opt := range opts {
		opt(c)
	}

	key := strings.ToLower(cfg.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.classes[key]; exists {
		return nil, errors.Registration(cfg.Name, stderrors.New("class already bound"))
	}

	handlers := &wasmobject.Handlers{
		Offset: Offset,
		Free:   c.free,
	}
	if c.cloner != nil {
		handlers.Clone = c.clone
	}

	id, err := r.rt.RegisterClass(wasmobject.ClassSpec{
		Name:        cfg.Name,
		Properties:  cfg.Properties,
		Constructor: cfg.Constructor,
		Handlers:    handlers,
	})
	if err != nil {
		return nil, err
	}

	r.nextType++
	c.id = id
	c.typeID = r.nextType
	r.classes[key] = c

	Logger().Debug("class bound",
		zap.String("class", c.name),
		zap.Uint32("id", c.id),
		zap.Uint32("state_type", c.typeID),
		zap.String("go_type", fmt.Sprintf("%T", (*T)(nil))))

	return c, nil
}

// Lookup finds a bound class by name. It fails if the class carries a state
// type other than T.
func Lookup[T any](r *Registry, name string) (*Class[T], error) {
	r.mu.RLock()
	entry, ok := r.classes[strings.ToLower(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.NotFound(errors.PhaseRegister, fmt.Sprintf("class %q", name))
	}
	c, ok := entry.(*Class[T])
	if !ok {
		return nil, errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
			Class(name).
			GoType(fmt.Sprintf("%T", (*T)(nil))).
			Detail("class is bound to %T", entry).
			Build()
	}
	return c, nil
}
