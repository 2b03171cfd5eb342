// Package allocator implements the fsma engine: a per-thread pool
// allocator that carves OS-mapped anonymous memory into in-band blocks.
//
// The engine is organized the way the original libfsma C sources split
// it: an OS mapping layer (mapping_*.go), a per-thread pool directory
// (directory.go) backed by a process-global recycler (recycler.go), and
// a single-pool arena algorithm (pool.go) doing first-fit search, split
// on fit, and deferred-free reclamation. header.go models the two-word
// block header that is type-punned onto raw mapped bytes.
package allocator
