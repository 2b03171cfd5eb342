// Package fsma is a drop-in Go replacement for the C allocator
// surface: Alloc, Calloc, Realloc, Memalign, and Free, backed by
// OS-mapped anonymous memory and per-thread pool directories rather
// than the Go heap.
//
// Alloc, Calloc, Realloc, and Memalign borrow a directory handle from
// a shared pool for the duration of the call; callers who make many
// allocations in a loop get better locality and less recycler
// contention by acquiring their own Handle with Acquire and using its
// methods directly. Free never needs a handle: the block header
// carries everything required to reclaim it.
package fsma

import (
	"fmt"

	"github.com/ucodev-go/fsma/internal/allocator"
	"github.com/ucodev-go/fsma/internal/version"
)

// Handle is a thread-affine allocation context; see allocator.Handle.
type Handle = allocator.Handle

var defaultEngine = allocator.NewEngine()

// NewEngine builds an independent allocator instance with its own
// recycler, for callers that want isolation from the package-level
// default (tests, multi-tenant embeddings).
func NewEngine(opts ...allocator.Option) *allocator.Engine {
	return allocator.NewEngine(opts...)
}

// Acquire borrows a Handle from the default engine. Release it when
// done, typically via defer.
func Acquire() (*Handle, error) {
	return defaultEngine.Acquire()
}

// Alloc returns a pointer to an unused block of at least size bytes.
// Its contents are unspecified; use Calloc for zeroed memory.
func Alloc(size uintptr) (uintptr, error) {
	h, err := defaultEngine.Acquire()
	if err != nil {
		return 0, err
	}
	defer h.Release()

	return h.Alloc(size)
}

// Calloc returns a pointer to n*elemSize zeroed bytes.
func Calloc(n, elemSize uintptr) (uintptr, error) {
	h, err := defaultEngine.Acquire()
	if err != nil {
		return 0, err
	}
	defer h.Release()

	return h.Calloc(n, elemSize)
}

// Realloc resizes the block at ptr to size bytes, preserving its
// contents up to the smaller of the old and new sizes. Shrinking
// requests are satisfied in place and never move the block.
func Realloc(ptr uintptr, size uintptr) (uintptr, error) {
	h, err := defaultEngine.Acquire()
	if err != nil {
		return 0, err
	}
	defer h.Release()

	return h.Realloc(ptr, size)
}

// Memalign returns a block of size bytes aligned to a multiple of
// alignment, which must be a power of two multiple of the machine
// word size.
func Memalign(alignment, size uintptr) (uintptr, error) {
	h, err := defaultEngine.Acquire()
	if err != nil {
		return 0, err
	}
	defer h.Release()

	return h.Memalign(alignment, size)
}

// Free marks ptr's block to-be-freed. It requires no handle or pool
// context. The rank word it writes is not synchronized with the Handle
// whose pool holds the block, which reads and rewrites the same word
// while allocating, so Free must not run concurrently with allocations
// on that Handle.
func Free(ptr uintptr) {
	allocator.Free(ptr)
}

// CheckABI reports whether the running module version satisfies
// constraint (e.g. ">= 0.1.0, < 1.0.0"), the way a shared library
// consumer would gate against a minimum ABI version before linking.
func CheckABI(constraint string) error {
	ok, err := version.Satisfies(constraint)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("fsma: version %s does not satisfy %q", version.String, constraint)
	}

	return nil
}
