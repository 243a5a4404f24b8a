package resource

import (
	"errors"
	"sync"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	handle, err := b.Create(1, "test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := b.Get(handle)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	typeID, ok := b.TypeID(handle)
	if !ok || typeID != 1 {
		t.Fatalf("TypeID = %d, %v", typeID, ok)
	}

	val, ok = b.Drop(handle)
	if !ok {
		t.Fatal("Drop failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	if _, ok = b.Get(handle); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
	if _, ok = b.Drop(handle); ok {
		t.Fatal("Expected second Drop to fail")
	}
}

func TestLocalBackend_HandleReuse(t *testing.T) {
	b := NewLocalBackend()

	h1, _ := b.Create(1, "first")
	b.Drop(h1)

	h2, _ := b.Create(2, "second")
	if h2 != h1 {
		t.Fatalf("Expected handle %d to be reused, got %d", h1, h2)
	}

	typeID, _ := b.TypeID(h2)
	if typeID != 2 {
		t.Fatalf("Reused handle kept stale type ID %d", typeID)
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()
	d := &dropCounter{}
	b.Create(1, d)

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if d.count != 1 {
		t.Fatalf("Expected Close to drop live value once, got %d", d.count)
	}

	_, err := b.Create(1, "after close")
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if d.count != 1 {
		t.Fatal("second Close must not drop again")
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h, err := b.Create(1, n)
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			b.Get(h)
			b.Drop(h)
		}(i)
	}
	wg.Wait()

	if b.Len() != 0 {
		t.Fatalf("Expected Len() == 0, got %d", b.Len())
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()
	b.Create(1, "a")
	h, _ := b.Create(1, "b")
	b.Create(1, "c")
	b.Drop(h)

	var seen []any
	b.Each(func(_ Handle, _ uint32, v any) bool {
		seen = append(seen, v)
		return true
	})
	if len(seen) != 2 {
		t.Fatalf("Expected 2 live values, got %v", seen)
	}

	count := 0
	b.Each(func(Handle, uint32, any) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Expected Each to stop early, visited %d", count)
	}
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := NewLocalBackend()

	if _, ok := b.Get(0); ok {
		t.Error("handle 0 must be invalid")
	}
	if _, ok := b.Get(99); ok {
		t.Error("out of range handle must be invalid")
	}
	if _, ok := b.TypeID(99); ok {
		t.Error("out of range handle must have no type")
	}
	if _, ok := b.Drop(0); ok {
		t.Error("dropping handle 0 must fail")
	}
}
