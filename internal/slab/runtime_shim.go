package slab

import "runtime"

func numCPUHint() int {
	return runtime.GOMAXPROCS(0)
}
