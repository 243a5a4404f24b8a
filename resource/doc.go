// Package resource provides the handle table that holds binding state.
//
// Objects in linear memory cannot hold Go pointers, so an object's typed
// state lives in a host-side table and the object only stores a 32-bit
// handle to it. The handle plus the type ID the value was stored with form
// the object's state slot.
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle := table.Insert(typeID, &state)
//
//	// Type-checked retrieval
//	value, ok := table.GetTyped(handle, typeID)
//
//	// Remove runs the value's Drop exactly once
//	value, ok := table.Remove(handle)
//
// # Observers
//
// Observers see every insert and drop, which is how tests and diagnostics
// count state teardown:
//
//	table.Subscribe(obs)
//
// # Memory Management
//
// Values are not garbage collected while their handle is live. The object
// runtime's teardown path removes the handle; Close drops whatever is left
// when the table itself is retired.
package resource
