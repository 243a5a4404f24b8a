// Package wasmobject attaches typed Go state to objects owned by an object
// runtime that lives in WebAssembly linear memory.
//
// The runtime allocates objects with its own allocator, lays out its own
// header and drives object lifetime through its own reference count. This
// library places a fixed-size state slot directly in front of that header,
// so a header address (the only address the runtime ever hands back) can be
// turned into the binding's typed state without any runtime type tag.
//
// # Architecture Overview
//
//	wasmobject/          Root package with Memory, Allocator and Handlers
//	├── memory/          wazero adapters, host heap, instrumented allocator
//	├── ebox/            Single-owner boxes in runtime-allocated memory
//	├── object/          Extended object layout and typed handles
//	├── guest/           The object runtime: headers, refcounts, store
//	├── resource/        Handle table holding type-erased state
//	└── errors/          Structured error types
//
// # Quick Start
//
//	rt, err := guest.New(mem, heap, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reg := object.NewRegistry(rt, object.DefaultOptions())
//	counters, err := object.Register[Counter](reg, object.ClassConfig{
//	    Name:       "Counter",
//	    Properties: []string{"label"},
//	})
//
//	obj, err := object.New(ctx, counters, Counter{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer obj.Release(ctx)
//
//	obj.StateMut().Value++
//
// # Lifetime
//
// Object handles never free memory on their own. Every handle owns one
// reference; Release drops it and the runtime tears the object down when the
// count reaches zero. Teardown drops the state slot exactly once, destroys the
// header and frees the whole composite allocation.
package wasmobject
