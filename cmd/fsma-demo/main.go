// Command fsma-demo exercises the fsma allocator from the command
// line: a single string allocation and free like the original
// eg_alloc.c example, or a -workers burst exercising the recycler
// across goroutines each pinned to their own OS thread.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/ucodev-go/fsma"
	"github.com/ucodev-go/fsma/internal/cli"
)

func main() {
	workers := flag.Int("workers", 0, "run N worker goroutines performing alloc/free bursts instead of the single-string demo")
	rounds := flag.Int("rounds", 1000, "alloc/free rounds per worker")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		cli.PrintVersion("fsma-demo")
		return
	}

	if *workers > 0 {
		if err := runWorkers(*workers, *rounds); err != nil {
			cli.ExitWithError("%v", err)
		}

		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Syntax: %s <string>\n", os.Args[0])
		os.Exit(1)
	}

	runSingle(args[0])
}

func runSingle(s string) {
	ptr, err := fsma.Alloc(uintptr(len(s) + 1))
	if err != nil {
		cli.ExitWithError("failed to allocate memory: %v", err)
	}

	defer fsma.Free(ptr)

	buf := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(s)+1)
	copy(buf, s)
	buf[len(s)] = 0

	fmt.Printf("Alloc'd memory contents: %s\n", string(buf[:len(s)]))
}

func runWorkers(workers, rounds int) error {
	var g errgroup.Group

	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			h, err := fsma.Acquire()
			if err != nil {
				return fmt.Errorf("worker %d: acquire: %w", i, err)
			}
			defer h.Release()

			for r := 0; r < rounds; r++ {
				p, err := h.Alloc(64)
				if err != nil {
					return fmt.Errorf("worker %d round %d: %w", i, r, err)
				}

				fsma.Free(p)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("%d workers completed %d rounds each\n", workers, rounds)

	return nil
}

