// Command galloc-bench drives a fixed-region handle backed by a
// tracked-system fallback through a small allocate/resize/free workload and
// prints the resulting aggregate stats, in the spirit of the teacher's own
// benchmark-driven development (cznic/exp/lldb/db_bench).
package main

import (
	"flag"
	"fmt"
	"os"
	"unsafe"

	"github.com/peffjepin/libc"
)

func main() {
	regionSize := flag.Int("region", 1<<20, "fixed-region size in bytes")
	count := flag.Int("count", 10000, "number of allocations to perform")
	payload := flag.Int("size", 96, "payload size per allocation in bytes")
	trace := flag.Bool("trace", false, "enable OS-heap tracing to stderr")
	flag.Parse()

	galloc.WithTrace(*trace)

	fallback := galloc.NewTrackedSystem(nil)
	a, err := galloc.NewFixedRegionOwned(*regionSize, fallback)
	if err != nil {
		fmt.Fprintln(os.Stderr, "galloc-bench:", err)
		os.Exit(1)
	}
	defer galloc.Destroy(a)

	live := make([]unsafe.Pointer, 0, *count)
	for i := 0; i < *count; i++ {
		p := galloc.Allocate(a, *payload)
		if p == nil {
			fmt.Fprintf(os.Stderr, "galloc-bench: allocation %d failed\n", i)
			break
		}
		live = append(live, p)

		// Free every third block immediately. It is the newest allocation,
		// so this takes the region's tail-retract path (or the fallback's
		// ledger removal once the region is full); the freelist and
		// coalescing paths are exercised by the in-order frees below.
		if i%3 == 0 {
			galloc.Free(a, p)
			live = live[:len(live)-1]
		}
	}

	for _, p := range live {
		galloc.Free(a, p)
	}

	stats := a.Stats()
	fmt.Printf("regions=%d allocations=%d bytes=%d\n", stats.Regions, stats.Allocations, stats.Bytes)
	if err := a.Verify(); err != nil {
		fmt.Fprintln(os.Stderr, "galloc-bench: verify failed:", err)
		os.Exit(1)
	}
}
