// Package bench implements the benchmark harness (spec.md §4.7): a
// concurrent virtual-client load generator, percentile latency
// collector, composite scorer, and cross-engine comparison layer.
// Grounded on shockwave/comprehensive_benchmark_test.go and
// shockwave/benchmarks/competitors/comparison_test.go's pattern of
// driving the same workload against multiple server implementations and
// diffing the results.
package bench

import "time"

// Scenario is one of the five canonical workloads spec.md §4.7 defines.
type Scenario string

const (
	Basic          Scenario = "BASIC"
	Concurrency    Scenario = "CONCURRENCY"
	CPUIntensive   Scenario = "CPU_INTENSIVE"
	IOIntensive    Scenario = "IO_INTENSIVE"
	MemoryPressure Scenario = "MEMORY_PRESSURE"
)

// Profile is the concrete load-generation parameters and scoring
// reference values for a Scenario. Reference TPS/latency are the
// denominators in spec.md §4.7's throughputScore/latencyScore formulas;
// values below are chosen as plausible baselines for each workload's
// shape (light baseline, max fan-out, CPU-bound, I/O-bound, large body)
// rather than tuned to any specific piece of hardware.
type Profile struct {
	Scenario         Scenario
	Path             string
	Concurrency      int
	Duration         time.Duration
	RequestBody      []byte
	ReferenceTPS     float64
	ReferenceLatency time.Duration
}

// Profiles returns the default load profile for each canonical scenario,
// matching spec.md §4.7's descriptions: BASIC is low concurrency and
// short; CONCURRENCY maximises concurrent clients on a trivial endpoint;
// CPU_INTENSIVE and IO_INTENSIVE target endpoints doing fixed compute or
// a simulated downstream wait; MEMORY_PRESSURE targets large response
// bodies.
func Profiles() map[Scenario]Profile {
	return map[Scenario]Profile{
		Basic: {
			Scenario:         Basic,
			Path:             "/bench/basic",
			Concurrency:      50,
			Duration:         5 * time.Second,
			ReferenceTPS:     2000,
			ReferenceLatency: 5 * time.Millisecond,
		},
		Concurrency: {
			Scenario:         Concurrency,
			Path:             "/bench/basic",
			Concurrency:      1000,
			Duration:         5 * time.Second,
			ReferenceTPS:     5000,
			ReferenceLatency: 20 * time.Millisecond,
		},
		CPUIntensive: {
			Scenario:         CPUIntensive,
			Path:             "/bench/cpu",
			Concurrency:      200,
			Duration:         5 * time.Second,
			ReferenceTPS:     500,
			ReferenceLatency: 50 * time.Millisecond,
		},
		IOIntensive: {
			Scenario:         IOIntensive,
			Path:             "/bench/io",
			Concurrency:      400,
			Duration:         5 * time.Second,
			ReferenceTPS:     3000,
			ReferenceLatency: 120 * time.Millisecond,
		},
		MemoryPressure: {
			Scenario:         MemoryPressure,
			Path:             "/bench/memory",
			Concurrency:      100,
			Duration:         5 * time.Second,
			RequestBody:      make([]byte, 64*1024),
			ReferenceTPS:     800,
			ReferenceLatency: 40 * time.Millisecond,
		},
	}
}
