// Command kiwikernel drives the magazine-enabled slab allocator and
// filesystem node cache through internal/kernel's syscall-surface facade,
// mounting the bundled in-memory reference filesystem and exercising it.
package main

import "github.com/aejsmith/kiwi-sub001/cmd"

func main() {
	cmd.Execute()
}
