// Package memory provides linear-memory and allocator adapters.
//
// WrapMemory and WrapAllocator adapt a wazero module's exported memory and
// allocator functions to the wasmobject interfaces. Heap is a host-managed
// first-fit allocator over a region of linear memory for runtimes that do not
// export their own allocator. Tracking wraps any allocator and records every
// allocation and free so that leaks and double frees can be asserted on.
package memory
