package guest

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	wasmobject "github.com/wippyai/wasm-object"
	"github.com/wippyai/wasm-object/errors"
	"github.com/wippyai/wasm-object/memory"
)

// FromModule creates a runtime over an instantiated wasm module's exported
// "memory". The allocator is picked in order: an exported cabi_realloc, an
// exported malloc/free pair, or a host heap over [HeapBase, memory size).
func FromModule(ctx context.Context, mod api.Module, cfg *Config) (*Runtime, error) {
	if mod == nil {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "module is nil")
	}
	mem := memory.WrapMemory(mod.ExportedMemory("memory"))
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, `module exports no "memory"`)
	}

	var alloc wasmobject.Allocator
	switch {
	case mod.ExportedFunction("cabi_realloc") != nil:
		alloc = memory.WrapAllocator(ctx, mod.ExportedFunction("cabi_realloc"))
	case mod.ExportedFunction("malloc") != nil && mod.ExportedFunction("free") != nil:
		alloc = memory.WrapMallocFree(ctx, mod.ExportedFunction("malloc"), mod.ExportedFunction("free"))
	default:
		base := uint32(DefaultHeapBase)
		if cfg != nil && cfg.HeapBase != 0 {
			base = cfg.HeapBase
		}
		if base >= mem.Size() {
			return nil, errors.InvalidInput(errors.PhaseRuntime,
				fmt.Sprintf("heap base %d beyond memory size %d", base, mem.Size()))
		}
		alloc = memory.NewHeap(base, mem.Size())
	}

	return New(mem, alloc, cfg)
}

// ExportedConstructor adapts a guest export to a class constructor. The
// export is called as (header, args...) and must return one i32 status;
// non-zero is a constructor failure.
func ExportedConstructor(mod api.Module, name string) (wasmobject.Constructor, error) {
	fn := mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRegister, fmt.Sprintf("export %q", name))
	}
	if n := len(fn.Definition().ResultTypes()); n != 1 {
		return nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Detail("constructor export %q returns %d values, want 1", name, n).
			Build()
	}

	return func(ctx context.Context, header uint32, args []uint64) error {
		params := make([]uint64, 0, len(args)+1)
		params = append(params, uint64(header))
		params = append(params, args...)

		results, err := fn.Call(ctx, params...)
		if err != nil {
			return err
		}
		if status := uint32(results[0]); status != 0 {
			return errors.New(errors.PhaseConstruct, errors.KindConstructor).
				Addr(header).
				Value(status).
				Detail("%s returned status %d", name, status).
				Build()
		}
		return nil
	}, nil
}
