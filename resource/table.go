package resource

import (
	"sync"
)

// Table holds type-erased values behind handles. Observers hear about every
// value that enters or leaves it; a value leaving runs its Drop first.
// Thread-safe.
type Table struct {
	entries   *LocalBackend
	observers []Observer
	mu        sync.RWMutex
	closed    bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries: NewLocalBackend(),
	}
}

// Insert stores value under typeID. It returns 0 once the table is closed.
func (t *Table) Insert(typeID uint32, value any) Handle {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return 0
	}

	handle, err := t.entries.Create(typeID, value)
	if err != nil {
		return 0
	}
	t.notify(Event{Type: EventCreated, Handle: handle, TypeID: typeID, Value: value})
	return handle
}

// Get returns the value behind handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.entries.Get(handle)
}

// GetTyped returns the value behind handle only if it was stored under
// typeID.
func (t *Table) GetTyped(handle Handle, typeID uint32) (any, bool) {
	return t.entries.GetTyped(handle, typeID)
}

// TypeID returns the type a live handle's value was stored under.
func (t *Table) TypeID(handle Handle) (uint32, bool) {
	return t.entries.TypeID(handle)
}

// Remove takes the value out of the table, runs its Drop and then notifies
// observers. A handle that is not live is reported as (nil, false) and
// nothing runs, so teardown through Remove happens at most once.
func (t *Table) Remove(handle Handle) (any, bool) {
	typeID, _ := t.entries.TypeID(handle)
	value, ok := t.entries.Drop(handle)
	if !ok {
		return nil, false
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventDropped, Handle: handle, TypeID: typeID, Value: value})
	return value, true
}

// Subscribe adds an observer.
func (t *Table) Subscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live values.
func (t *Table) Len() int {
	return t.entries.Len()
}

// Each calls fn for every live value until fn returns false.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.entries.Each(fn)
}

// Close stops accepting inserts and removes every live value, so leftover
// values are dropped and observed like any other removal.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	var live []Handle
	t.entries.Each(func(h Handle, _ uint32, _ any) bool {
		live = append(live, h)
		return true
	})
	for _, h := range live {
		t.Remove(h)
	}
	return t.entries.Close()
}

func (t *Table) notify(e Event) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
