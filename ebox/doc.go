// Package ebox provides single-owner boxes whose bytes come from an object
// runtime's allocator instead of the Go heap.
//
// A Box[T] owns exactly one value of T encoded into linear memory through a
// Layout[T]. Release runs the layout's finalizer (if any) and returns the
// bytes to the same allocator, exactly once:
//
//	b := ebox.New(alloc, mem, ebox.I64, 42)
//	defer b.Release()
//
//	v, err := b.Get()
//
// IntoRaw hands the address to a new owner (usually the runtime itself)
// without running teardown; FromRaw re-arms a box around such an address.
//
// Allocation failure is fatal: New panics with an *errors.Error of kind
// allocation, mirroring the runtime's own out-of-memory policy.
package ebox
