package allocator

import (
	"runtime"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestHandleAllocFree(t *testing.T) {
	e := NewEngine()

	h, err := e.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.Release()

	p, err := h.Alloc(100)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if p == 0 {
		t.Fatal("Alloc returned nil pointer")
	}

	Free(p)
}

func TestHandleCalloc(t *testing.T) {
	e := NewEngine()

	h, err := e.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.Release()

	p, err := h.Calloc(16, 8)
	if err != nil {
		t.Fatalf("Calloc: %v", err)
	}

	b := bytesAt(p, 128)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
}

func TestHandleReallocGrowsAndPreserves(t *testing.T) {
	e := NewEngine()

	h, err := e.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.Release()

	p, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	b := bytesAt(p, 32)
	for i := range b {
		b[i] = byte(i)
	}

	p2, err := h.Realloc(p, 512)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}

	b2 := bytesAt(p2, 32)
	for i := range b2 {
		if b2[i] != byte(i) {
			t.Fatalf("byte %d = %d, want %d after realloc", i, b2[i], byte(i))
		}
	}
}

func TestHandleReallocNeverShrinks(t *testing.T) {
	e := NewEngine()

	h, err := e.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.Release()

	p, err := h.Alloc(512)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	p2, err := h.Realloc(p, 16)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}

	if p2 != p {
		t.Fatal("Realloc to a smaller size moved the block")
	}
}

func TestHandleMemalign(t *testing.T) {
	e := NewEngine()

	h, err := e.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.Release()

	p, err := h.Memalign(256, 64)
	if err != nil {
		t.Fatalf("Memalign: %v", err)
	}

	if p%256 != 0 {
		t.Fatalf("Memalign returned %#x, not aligned to 256", p)
	}
}

func TestHandleMemalignRejectsBadAlignment(t *testing.T) {
	e := NewEngine()

	h, err := e.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.Release()

	if _, err := h.Memalign(3, 64); err != ErrInvalidAlignment {
		t.Fatalf("Memalign(3, ...) err = %v, want ErrInvalidAlignment", err)
	}
}

func TestHandleReleaseThenUseErrors(t *testing.T) {
	e := NewEngine()

	h, err := e.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	h.Release()

	if _, err := h.Alloc(16); err != ErrHandleReleased {
		t.Fatalf("Alloc after Release err = %v, want ErrHandleReleased", err)
	}
}

func TestRecyclerReusesReleasedDirectory(t *testing.T) {
	e := NewEngine()

	h1, err := e.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	dir1 := h1.dirAddr
	h1.Release()

	h2, err := e.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h2.Release()

	if h2.dirAddr != dir1 {
		t.Fatal("Acquire did not reuse the released directory from the recycler")
	}
}

func TestConcurrentHandlesAllocateDistinctRegions(t *testing.T) {
	e := NewEngine()

	const workers = 8

	seen := make([][]uintptr, workers)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			h, err := e.Acquire()
			if err != nil {
				return err
			}
			defer h.Release()

			for j := 0; j < 50; j++ {
				p, err := h.Alloc(64)
				if err != nil {
					return err
				}

				seen[i] = append(seen[i], p)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent allocation failed: %v", err)
	}

	all := make(map[uintptr]bool)
	for _, ptrs := range seen {
		for _, p := range ptrs {
			if all[p] {
				t.Fatalf("address %#x allocated twice across handles", p)
			}
			all[p] = true
		}
	}
}
