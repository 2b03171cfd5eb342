package allocator

import (
	"fmt"
	"log"
)

// A directory is the per-thread dynamic array of pool pointers: word 0
// is its capacity N, word 1 is the recycler link (dirLink/setDirLink),
// and words 2..N+1 are pool base addresses or 0 for an empty slot.

func dirCapacity(addr uintptr) uintptr { return readWord(addr, 0) }
func dirLink(addr uintptr) uintptr     { return readWord(addr, WordSize) }
func setDirLink(addr, v uintptr)       { writeWord(addr, WordSize, v) }

func dirSlot(addr uintptr, i uintptr) uintptr {
	return readWord(addr, directoryHeaderSize+i*WordSize)
}

func setDirSlot(addr uintptr, i, v uintptr) {
	writeWord(addr, directoryHeaderSize+i*WordSize, v)
}

// newDirectory maps a fresh directory with capacity slots, all
// initially empty (the mapping is already zero-filled by the OS).
func newDirectory(capacity uintptr) (uintptr, error) {
	addr, err := mapPool(directoryHeaderSize + capacity*WordSize)
	if err != nil {
		return 0, fmt.Errorf("fsma: map directory: %w", err)
	}

	writeWord(addr, 0, capacity)
	setDirLink(addr, 0)

	return addr, nil
}

// growDirectory doubles a directory's capacity: it maps a new,
// larger directory, copies the existing slots across, and returns the
// new base address. The old mapping is intentionally leaked, matching
// spec.md §3 ("growth is O(log) and mappings are reclaimed ... at
// process exit").
func growDirectory(oldAddr uintptr) (uintptr, error) {
	oldCap := dirCapacity(oldAddr)
	newCap := oldCap * 2

	newAddr, err := newDirectory(newCap)
	if err != nil {
		log.Printf("fsma: directory growth %d -> %d failed: %v", oldCap, newCap, err)
		return 0, err
	}

	for i := uintptr(0); i < oldCap; i++ {
		setDirSlot(newAddr, i, dirSlot(oldAddr, i))
	}

	return newAddr, nil
}

// changePool implements spec.md §4.2's directory scan: it looks for a
// pool (other than curPoolAddr) with enough contiguous free space for
// size, refreshing stale pools as it goes; failing that, it populates
// the first empty slot with a freshly mapped pool; failing that (the
// directory is full), it doubles the directory and maps a new pool
// just beyond the old capacity. Returns the directory's address (which
// changes if it had to grow) and the chosen pool's address.
func changePool(dirAddr, curPoolAddr, size, defaultPoolSize uintptr) (newDirAddr, newPoolAddr uintptr, err error) {
	slots := dirCapacity(dirAddr)
	need := size + blockHeaderSize

	for i := uintptr(0); i < slots; i++ {
		slot := dirSlot(dirAddr, i)

		if slot == 0 {
			poolAddr, _, perr := newPool(size, defaultPoolSize)
			if perr != nil {
				return 0, 0, perr
			}

			setDirSlot(dirAddr, i, poolAddr)

			return dirAddr, poolAddr, nil
		}

		if slot == curPoolAddr {
			continue
		}

		if updatePool(slot) >= need {
			return dirAddr, slot, nil
		}
	}

	grown, err := growDirectory(dirAddr)
	if err != nil {
		return 0, 0, err
	}

	poolAddr, _, err := newPool(size, defaultPoolSize)
	if err != nil {
		return 0, 0, err
	}

	setDirSlot(grown, slots, poolAddr)

	return grown, poolAddr, nil
}
