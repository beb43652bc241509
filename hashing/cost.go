package hashing

import "fmt"

const (
	// CutoffStandard is the default memory cutoff in KiB (24 MiB): below it
	// the fallback algorithm is used.
	CutoffStandard = 24 * 1024

	// CutoffConservative is a stricter cutoff in KiB (32 MiB).
	CutoffConservative = 32 * 1024

	// NoCutoff disables the cutoff comparison: the most preferred available
	// algorithm is chosen whatever the memory budget.
	NoCutoff = -1
)

// CostConfig controls how [Select] sizes the cost parameters.
//
// A CostConfig is a plain value.  Build one with [DefaultCostConfig], adjust
// fields, and pass it by value; nothing in this package modifies it.
type CostConfig struct {
	// DefaultMemoryKiB caps the memory cost used for algorithm selection.
	// Default: 131072 (128 MiB).
	DefaultMemoryKiB int

	// MaxMemoryMultiplier scales DefaultMemoryKiB into the ceiling of the
	// final memory cost.  Default: 3.
	MaxMemoryMultiplier int

	// DefaultThreads and MaxThreads bound the parallelism.  Defaults: 4 and 8.
	// MaxThreads must not exceed 255.
	DefaultThreads int
	MaxThreads     int

	// DefaultIterations and MaxIterations bound the time cost.
	// Defaults: 4 and 6.
	DefaultIterations int
	MaxIterations     int

	// MemoryCutoffKiB is the smallest memory cost for which a memory-hard
	// algorithm is chosen.  It must be at least 8×MaxThreads, the Argon2
	// minimum.  Default: [CutoffStandard].  [NoCutoff] disables the
	// comparison.
	MemoryCutoffKiB int

	// Debug logs the selected parameters on every hash.
	Debug bool
}

// DefaultCostConfig returns the recommended CostConfig.
func DefaultCostConfig() CostConfig {
	return CostConfig{
		DefaultMemoryKiB:    128 * 1024,
		MaxMemoryMultiplier: 3,
		DefaultThreads:      4,
		MaxThreads:          8,
		DefaultIterations:   4,
		MaxIterations:       6,
		MemoryCutoffKiB:     CutoffStandard,
	}
}

// Validate returns an error wrapping [ErrInvalidOption] when a field is out
// of range.
func (c CostConfig) Validate() error {
	switch {
	case c.DefaultMemoryKiB < 1:
		return fmt.Errorf("%w: default memory must be ≥ 1 KiB, got %d", ErrInvalidOption, c.DefaultMemoryKiB)
	case c.MaxMemoryMultiplier < 1:
		return fmt.Errorf("%w: max memory multiplier must be ≥ 1, got %d", ErrInvalidOption, c.MaxMemoryMultiplier)
	case c.DefaultThreads < 1:
		return fmt.Errorf("%w: default threads must be ≥ 1, got %d", ErrInvalidOption, c.DefaultThreads)
	case c.MaxThreads < c.DefaultThreads:
		return fmt.Errorf("%w: max threads (%d) must be ≥ default threads (%d)",
			ErrInvalidOption, c.MaxThreads, c.DefaultThreads)
	case c.MaxThreads > 255:
		return fmt.Errorf("%w: max threads must be ≤ 255, got %d", ErrInvalidOption, c.MaxThreads)
	case c.DefaultIterations < 1:
		return fmt.Errorf("%w: default iterations must be ≥ 1, got %d", ErrInvalidOption, c.DefaultIterations)
	case c.MaxIterations < c.DefaultIterations:
		return fmt.Errorf("%w: max iterations (%d) must be ≥ default iterations (%d)",
			ErrInvalidOption, c.MaxIterations, c.DefaultIterations)
	case c.MemoryCutoffKiB < 0 && c.MemoryCutoffKiB != NoCutoff:
		return fmt.Errorf("%w: memory cutoff must be ≥ 0 or NoCutoff, got %d", ErrInvalidOption, c.MemoryCutoffKiB)
	case c.MemoryCutoffKiB != NoCutoff && c.MemoryCutoffKiB < 8*c.MaxThreads:
		return fmt.Errorf("%w: memory cutoff (%d KiB) must be ≥ 8×max threads (%d KiB) or NoCutoff",
			ErrInvalidOption, c.MemoryCutoffKiB, 8*c.MaxThreads)
	}
	return nil
}
