package mdpost

import "runtime"

// Worker sizing constants.
const (
	// MinWorkers ensures at least one document is processed at a time.
	MinWorkers = 1

	// MaxWorkers caps concurrent transforms. Each holds a full syntax tree
	// and its goldmark AST in memory.
	MaxWorkers = 64
)

// ResolveWorkers determines how many documents are processed concurrently.
// Priority: explicit workers > GOMAXPROCS.
// Exported for use by servers and CLIs.
func ResolveWorkers(workers int) int {
	if workers > 0 {
		if workers > MaxWorkers {
			return MaxWorkers
		}
		return workers
	}

	// Transforms are CPU-bound; GOMAXPROCS is adjusted by automaxprocs in
	// containers.
	n := runtime.GOMAXPROCS(0)
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}
