package allocator

// A pool is a single OS mapping: word 0 holds bfree (a cached, possibly
// stale lower bound on free bytes), word 1 holds pool_size, and the
// remaining bytes are a contiguous run of blocks (header.go). In a
// fresh pool the first header is a zero-length terminal sentinel; the
// first allocation turns it into a USED block followed by a FREE block
// running to the pool's end, so from then on the run of blocks ends
// exactly at the end of the mapping. The functions below all take the
// pool's base address and operate directly on the mapped bytes, the
// same shape as the teacher's arena.go bump allocator but carrying the
// in-band header bookkeeping spec.md requires instead of a bare cursor.

func poolBfree(addr uintptr) uintptr       { return readWord(addr, 0) }
func setPoolBfree(addr, v uintptr)         { writeWord(addr, 0, v) }
func poolSize(addr uintptr) uintptr        { return readWord(addr, WordSize) }
func poolBlocksStart(addr uintptr) uintptr { return addr + poolHeaderSize }

// newPool maps a fresh pool sized for size (or defaultSize when size
// fits under it), zero-fills its two header words defensively, and
// returns its base address and the size actually mapped.
func newPool(size, defaultSize uintptr) (addr uintptr, mapped uintptr, err error) {
	mapped = defaultSize
	if size > defaultSize {
		mapped = alignUp(size, defaultSize)
	}

	addr, err = mapPool(mapped)
	if err != nil {
		// Retry at exactly the requested size.
		addr, err = mapPool(size)
		if err != nil {
			return 0, 0, err
		}

		mapped = size
	}

	zeroMem(addr, 2*WordSize)
	setPoolBfree(addr, mapped-blockHeaderSize)
	writeWord(addr, WordSize, mapped)

	return addr, mapped, nil
}

// updatePool walks every block header from the start of the pool,
// reclaiming TBF blocks into FREE in place, and returns the maximum
// contiguous free span (MCFS) it observed. bfree is rewritten at word 0
// as a side effect, matching spec.md's pool_update.
func updatePool(addr uintptr) uintptr {
	size := poolSize(addr)
	cur := poolBlocksStart(addr)
	end := addr + size

	var used, mcfs uintptr

	for {
		r, length := readHeader(cur)

		if length == 0 {
			bfree := size - used - blockHeaderSize
			if bfree > mcfs {
				mcfs = bfree
			}

			setPoolBfree(addr, bfree)

			return mcfs
		}

		if r == rankUsed {
			used += length + blockHeaderSize
			cur += length + blockHeaderSize

			if cur >= end {
				bfree := size - used - blockHeaderSize
				setPoolBfree(addr, bfree)

				return mcfs
			}

			continue
		}

		if r == rankTBF {
			setRank(cur, rankFree)
		}

		if length > mcfs {
			mcfs = length
		}

		next := cur + blockHeaderSize + length
		if next >= end {
			bfree := size - used - blockHeaderSize
			setPoolBfree(addr, bfree)

			return mcfs
		}

		cur = next
	}
}

// defrag absorbs the FREE block's immediate successors (TBF and FREE)
// into it until it hits a USED block, the terminal sentinel, or the end
// of the pool; it does not stop early once the length reaches size.
// bfree is credited for every TBF block absorbed
// (FREE blocks are already accounted for by the last scan). Returns the
// extended length.
func defrag(poolAddr, poolSz, cur, size, length uintptr, bfree *uintptr) uintptr {
	for {
		next := cur + blockHeaderSize + length
		if next >= poolAddr+poolSz {
			return length
		}

		er, elen := readHeader(next)

		if elen == 0 {
			if cur+blockHeaderSize+size <= poolAddr+poolSz {
				length = size
			} else {
				length += poolSz - (next - poolAddr)
			}

			return length
		}

		if er == rankUsed {
			return length
		}

		if er == rankTBF {
			*bfree += elen + blockHeaderSize
			setRank(next, rankFree)
		}

		length += elen + blockHeaderSize

		if cur+blockHeaderSize+length >= poolAddr+poolSz {
			return length
		}
	}
}

// splitAndCommit finishes an allocation once a block of at least size
// bytes has been located at cur: it splits off a trailing FREE block
// when the remainder is worth keeping, stamps the chosen block USED,
// and debits bfree.
func splitAndCommit(poolAddr, cur, length, size, bfree uintptr) uintptr {
	if remain := length - size; remain > 4*WordSize {
		remain -= blockHeaderSize
		writeHeader(cur+blockHeaderSize+size, rankFree, remain)
		length = size
	}

	writeHeader(cur, rankUsed, length)
	bfree -= blockHeaderSize + length
	setPoolBfree(poolAddr, bfree)

	return payloadAddr(cur)
}
