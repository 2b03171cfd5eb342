//go:build unix

package allocator

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapAnon requests a page-aligned, read-write, private, anonymous
// mapping from the kernel. mmap-backed pages start zero-filled.
func mapAnon(size uintptr) (uintptr, error) {
	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}

	return uintptr(unsafe.Pointer(&mem[0])), nil
}

// unmapAnon releases a mapping obtained from mapAnon. Nothing calls it
// at present; pools live for the process lifetime.
func unmapAnon(addr, size uintptr) error {
	mem := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))

	return unix.Munmap(mem)
}
