package common

import "runtime"

// NumCPU floors runtime.NumCPU() at 1, and is exported so the Hybrid and
// EventLoop engines can size their CPU/offload pools the same way
// DefaultConfig sizes WorkerCap.
func NumCPU() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

// defaultWorkerCap implements spec.md §4.4's "Core size >= max(10,
// configured/4)" by way of a sane configured-absent default: four workers
// per CPU, floored at 10.
func defaultWorkerCap() int {
	n := NumCPU() * 4
	if n < 10 {
		return 10
	}
	return n
}
