// Package guest implements the object runtime that owns objects in linear
// memory.
//
// The runtime knows nothing about binding state. It allocates headers with
// its allocator, keeps a reference count in every header, registers live
// objects in its object store and tears objects down when the count reaches
// zero. Bindings participate only through the wasmobject.Handlers installed
// with their class:
//
//	Release(header)          refcount--
//	  refcount == 0  ->      Handlers.Free(header)   binding state
//	                         DestroyHeader(header)   store entry, properties
//	                         Free(header - Offset)   whole allocation
//
// Classes without handlers are header-only ("standard") objects created
// with NewStdObject.
//
// A Runtime can sit on any wasmobject.Memory and Allocator, or be built from
// an instantiated wazero module with FromModule.
package guest
