package allocator

import "errors"

// ErrInvalidAlignment is returned by Memalign when alignment is not a
// power of two or not a multiple of the machine word size.
var ErrInvalidAlignment = errors.New("fsma: invalid alignment")

// ErrOutOfMemory is returned when the OS refuses an anonymous mapping
// needed to satisfy an allocation.
var ErrOutOfMemory = errors.New("fsma: out of memory")

// ErrHandleReleased is returned by Handle methods called after
// Release, catching the programmer error of using a handle past its
// owning goroutine's lifetime.
var ErrHandleReleased = errors.New("fsma: handle already released")
