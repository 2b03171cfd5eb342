//go:build windows

package allocator

import "golang.org/x/sys/windows"

// mapAnon requests a committed, read-write, private, anonymous region
// from the kernel via VirtualAlloc. Freshly committed pages are
// zero-filled by the OS.
func mapAnon(size uintptr) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return 0, err
	}

	return addr, nil
}

// unmapAnon releases a mapping obtained from mapAnon. Nothing calls it
// at present; pools live for the process lifetime.
func unmapAnon(addr, _ uintptr) error {
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}
