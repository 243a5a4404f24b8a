// Package object attaches typed Go state to runtime objects.
//
// Each object is one allocation from the runtime's allocator:
//
//	| state slot (8 bytes) | runtime header |
//	^ composite            ^ header = composite + Offset
//
// The runtime only ever sees the header address. The slot in front of it
// holds a handle into the registry's state table and the id of the state
// type, so any header of a bound class maps back to its state with one
// subtraction. Offset is a constant: state lives behind the handle, so its
// size never shifts the header.
//
// # Lifetime
//
// Objects are reference counted by the runtime. New and Clone return a
// handle owning the first reference, Duplicate and Wrap add one, and
// Release removes one. When the runtime's count reaches zero it calls the
// class' Free hook, which drops the state exactly once and destroys the
// header; the runtime then frees the composite. Nothing else frees an
// object, and a handle that is never released only leaks its reference.
//
//	obj, err := object.New(ctx, counters, Counter{})
//	if err != nil {
//	    return err
//	}
//	defer obj.Release(ctx)
//
//	alias, _ := obj.Duplicate() // same state, refcount 2
//	clone, _ := obj.Clone(ctx)  // new state copy, refcount 1
//
// # State types
//
// A class is bound to one state type at registration. State that owns
// resources implements resource.Dropper on its pointer type; Drop runs once
// at teardown, including when the constructor fails.
package object
