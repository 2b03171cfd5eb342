package allocator

import "fmt"

// ErrMapFailed wraps a failed attempt to obtain anonymous memory from
// the OS. Callers see it wrapped with context: inside ErrOutOfMemory
// when Handle.Alloc cannot map a pool or grow its directory, and on its
// own when Acquire cannot map a fresh directory.
var ErrMapFailed = fmt.Errorf("fsma: anonymous mapping failed")

// mapAnon and unmapAnon are implemented per OS in mapping_unix.go and
// mapping_windows.go, mirroring the way the teacher splits syscall
// wrappers across build-tagged files (see
// internal/runtime/asyncio/kqueue_poller_bsd.go and its Windows/Darwin
// siblings).
//
// mapAnon returns the base address of a zero-filled, read-write,
// private mapping of size bytes. unmapAnon releases it; nothing in the
// package calls it, since pools and directories are intentionally
// leaked for the process lifetime (spec.md §4.1).

func mapPool(size uintptr) (uintptr, error) {
	addr, err := mapAnon(size)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMapFailed, err)
	}

	return addr, nil
}
