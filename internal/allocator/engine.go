package allocator

import (
	"fmt"
	"log"
	"runtime"
	"sync"
)

// Engine is a process-wide fsma instance: its own recycler and its own
// Config. Most programs need exactly one (see the package-level
// default Engine in the root fsma facade); tests construct private
// ones to stay isolated from each other's recycled directories.
type Engine struct {
	cfg      *Config
	recycler recycler
	dirPool  sync.Pool
}

// NewEngine builds an Engine with the given options applied over the
// defaults (65536-byte pools, 64-slot directories, recycling on).
func NewEngine(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	e := &Engine{cfg: cfg}
	e.dirPool.New = func() any {
		addr, err := newDirectory(e.cfg.dirCapacity)
		if err != nil {
			return err
		}

		return addr
	}

	return e
}

// Handle is the explicit stand-in for the thread-local pool directory
// the original C allocator keeps per pthread: a goroutine that expects
// to make many allocations acquires one, uses it for all of them, and
// releases it when done (typically via defer). This is the literal,
// deterministic implementation of the engine's per-thread affinity;
// the package-level Alloc/Calloc/Realloc/Memalign facade instead
// acquires and releases a Handle around every call, so its directory
// comes from the engine's recycler (or, when that is empty or
// recycling is off, from the engine's sync.Pool of directories), and
// consecutive calls are not tied to one thread.
type Handle struct {
	engine      *Engine
	dirAddr     uintptr
	curPoolAddr uintptr
	released    bool
}

// Acquire binds a new Handle to e, recycling an abandoned directory
// from the engine's recycler when one is available and recycling is
// enabled, or minting a fresh directory otherwise. No pool is mapped
// here: the Handle's first Alloc picks or maps one. The returned
// Handle must be released with Release, typically via defer.
func (e *Engine) Acquire() (*Handle, error) {
	var dirAddr uintptr

	if e.cfg.recycleEnabled {
		dirAddr = e.recycler.pop()
	}

	if dirAddr == 0 {
		v := e.dirPool.Get()
		if err, ok := v.(error); ok {
			log.Printf("fsma: bootstrap directory mapping failed: %v", err)
			return nil, err
		}

		dirAddr = v.(uintptr)
	}

	h := &Handle{engine: e, dirAddr: dirAddr}

	runtime.SetFinalizer(h, func(h *Handle) {
		h.release()
	})

	return h, nil
}

// Release returns h's directory to the engine: to the recycler if
// recycling is enabled (spec.md §4.4's thread-exit handoff), back to
// the engine's directory pool otherwise. A released Handle must not be
// used again.
func (h *Handle) Release() {
	runtime.SetFinalizer(h, nil)
	h.release()
}

func (h *Handle) release() {
	if h.released {
		return
	}

	h.released = true

	if h.dirAddr == 0 {
		return
	}

	if h.engine.cfg.recycleEnabled {
		h.engine.recycler.push(h.dirAddr)
	} else {
		h.engine.dirPool.Put(h.dirAddr)
	}
}

// Alloc returns a pointer to a block of at least size bytes, or
// ErrOutOfMemory if no pool could be grown to satisfy it.
func (h *Handle) Alloc(size uintptr) (uintptr, error) {
	if h.released {
		return 0, ErrHandleReleased
	}

	need := roundToQuantum(size)
	if need == 0 {
		need = Quantum
	}

	if h.curPoolAddr != 0 {
		if payload, ok := tryAllocInPool(h.curPoolAddr, need); ok {
			return payload, nil
		}
	}

	newDir, newPool, err := changePool(h.dirAddr, h.curPoolAddr, need, h.engine.cfg.poolSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	h.dirAddr = newDir
	h.curPoolAddr = newPool

	payload, ok := tryAllocInPool(newPool, need)
	if !ok {
		return 0, ErrOutOfMemory
	}

	return payload, nil
}

// Calloc is Alloc for n elements of elemSize bytes each, zero-filled.
func (h *Handle) Calloc(n, elemSize uintptr) (uintptr, error) {
	total := n * elemSize

	payload, err := h.Alloc(total)
	if err != nil {
		return 0, err
	}

	zeroMem(payload, total)

	return payload, nil
}

// Memalign returns a block of size bytes whose address is a multiple
// of alignment. alignment must be a power of two and a multiple of
// the machine word size, matching the original EINVAL checks.
func (h *Handle) Memalign(alignment, size uintptr) (uintptr, error) {
	if !isPowerOfTwo(alignment) || alignment%WordSize != 0 {
		return 0, ErrInvalidAlignment
	}

	// Every payload sits at a multiple of blockHeaderSize (pool bases are
	// page-aligned and every header and block length is a multiple of
	// it), but not necessarily at a multiple of Quantum.
	if alignment <= blockHeaderSize {
		return h.Alloc(size)
	}

	// Over-allocate by 2*alignment and round aligned up past the next
	// alignment boundary (never settling for an already-aligned payload)
	// so the gap ahead of the aligned pointer is always at least
	// alignment, which is always more than blockHeaderSize here since
	// alignment > blockHeaderSize. That keeps the prefix split below
	// from ever underflowing.
	payload, err := h.Alloc(size + 2*alignment)
	if err != nil {
		return 0, err
	}

	aligned := alignUp(payload, alignment) + alignment

	blockAddr := blockAddrFromPayload(payload)
	_, length := readHeader(blockAddr)

	alignedBlock := aligned - blockHeaderSize
	prefixLen := alignedBlock - blockAddr - blockHeaderSize
	tailLen := length - (alignedBlock - blockAddr)

	writeHeader(blockAddr, rankFree, prefixLen)
	writeHeader(alignedBlock, rankUsed, tailLen)

	return payloadAddr(alignedBlock), nil
}

// Realloc resizes the block at ptr to size bytes, preserving its
// contents up to the smaller of the old and new sizes. A nil ptr
// behaves like Alloc; a zero size still returns a live block, matching
// the original's refusal to silently free on realloc(ptr, 0).
func (h *Handle) Realloc(ptr uintptr, size uintptr) (uintptr, error) {
	if ptr == 0 {
		return h.Alloc(size)
	}

	blockAddr := blockAddrFromPayload(ptr)
	_, oldLength := readHeader(blockAddr)

	need := roundToQuantum(size)
	if need <= oldLength {
		return ptr, nil
	}

	newPtr, err := h.Alloc(size)
	if err != nil {
		return 0, err
	}

	copyMem(newPtr, ptr, oldLength)
	Free(ptr)

	return newPtr, nil
}

// tryAllocInPool scans poolAddr from its first block for a free span
// of at least size bytes, extending a short FREE or TBF block by
// absorbing its immediate successors (defrag) when the block it first
// lands on is not already long enough, and consuming unformatted space
// directly when the scan reaches the terminal sentinel (a header with
// length 0, the state every freshly mapped pool starts in). Reports
// whether it found one.
func tryAllocInPool(poolAddr, size uintptr) (uintptr, bool) {
	poolSz := poolSize(poolAddr)
	end := poolAddr + poolSz
	cur := poolBlocksStart(poolAddr)
	bfree := poolBfree(poolAddr)

	for {
		r, length := readHeader(cur)

		if length == 0 {
			// The terminal sentinel: cur is unformatted free space
			// running to the end of the pool, not a dead end. Consume
			// it in place (splitAndCommit turns the rest into a FREE
			// block running to the pool's end) if it is big enough,
			// the way updatePool treats it as the
			// pool's remaining span rather than a failure.
			avail := end - cur - blockHeaderSize
			if avail < size {
				return 0, false
			}

			return splitAndCommit(poolAddr, cur, avail, size, bfree), true
		}

		if r == rankUsed {
			cur += blockHeaderSize + length
			if cur >= end {
				return 0, false
			}

			continue
		}

		want := length
		if want < size {
			want = defrag(poolAddr, poolSz, cur, size, length, &bfree)
		}

		if r == rankTBF {
			bfree += length + blockHeaderSize
			setRank(cur, rankFree)
		}

		if want >= size {
			return splitAndCommit(poolAddr, cur, want, size, bfree), true
		}

		next := cur + blockHeaderSize + want
		if next >= end {
			return 0, false
		}

		cur = next
	}
}

// Free marks the block at ptr as to-be-freed. It needs no handle,
// directory, or pool context: the block header carries everything
// required, recovered by pointer arithmetic alone. The block is
// reclaimed lazily, the next time its owning pool is scanned by
// tryAllocInPool or updatePool (spec.md §4.3's deferred-free design).
func Free(ptr uintptr) {
	if ptr == 0 {
		return
	}

	setRank(blockAddrFromPayload(ptr), rankTBF)
}
