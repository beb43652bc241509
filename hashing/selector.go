package hashing

import (
	"math"
	"math/bits"
)

// Selection is the outcome of [Select].
type Selection struct {
	// Algorithm is the chosen algorithm.
	Algorithm Algorithm

	// Params are the cost parameters for Algorithm; zero for the fallback.
	Params Params

	// MemoryLimit and UsedMemory are the inputs, in bytes.
	MemoryLimit uint64
	UsedMemory  uint64

	// AvailableBytes is MemoryLimit-UsedMemory, or 0 when usage exceeds the
	// limit.  AvailableKiB is 80% of it, in KiB.
	AvailableBytes uint64
	AvailableKiB   uint64

	// BaseMemoryKiB is the memory cost the algorithm was chosen on, before
	// the multiplier ceiling was applied.
	BaseMemoryKiB uint64

	// MemoryKiB is the final memory cost, also set for the fallback.
	MemoryKiB uint64

	// Iterations and Threads are the grown time cost and parallelism, also
	// set for the fallback.
	Iterations int
	Threads    int
}

// Select sizes the cost parameters for a hash computed now.
//
// memoryLimit is the process ceiling and usedMemory the current usage, both
// in bytes.  Select never fails: when the budget is below the cutoff, too
// small for valid Argon2 parameters, or no memory-hard algorithm is supported
// it chooses the fallback.  A nil caps
// supports nothing, which yields [DefaultAlgorithm].
func Select(cfg CostConfig, caps Capabilities, memoryLimit, usedMemory uint64) Selection {
	if caps == nil {
		caps = AlgorithmSet(nil)
	}

	var available uint64
	if memoryLimit > usedMemory {
		available = memoryLimit - usedMemory
	}
	// floor(0.8 × available / 1024) without overflow or float rounding.
	availableKiB := (available/5*4 + available%5*4/5) / 1024

	defaultMemory := nonNegative(cfg.DefaultMemoryKiB)
	base := min(availableKiB, defaultMemory)

	alg := chooseAlgorithm(caps, base, cfg.MemoryCutoffKiB)

	// Both loops test the pre-growth memory cost, so each runs to its
	// maximum or not at all.  Kept for compatibility with stored hashes.
	iterations := cfg.DefaultIterations
	for belowGrowthThreshold(base, availableKiB) && iterations < cfg.MaxIterations {
		iterations++
	}
	threads := cfg.DefaultThreads
	for belowGrowthThreshold(base, availableKiB) && threads < cfg.MaxThreads {
		threads++
	}

	ceiling := saturatingMul(defaultMemory, nonNegative(cfg.MaxMemoryMultiplier))
	memoryCost := min(availableKiB, ceiling)

	sel := Selection{
		Algorithm:      alg,
		MemoryLimit:    memoryLimit,
		UsedMemory:     usedMemory,
		AvailableBytes: available,
		AvailableKiB:   availableKiB,
		BaseMemoryKiB:  base,
		MemoryKiB:      memoryCost,
		Iterations:     iterations,
		Threads:        threads,
	}
	if alg.MemoryHard() {
		p := Params{
			MemoryKiB: uint32(min(memoryCost, math.MaxUint32)),
			Time:      uint32(min(nonNegative(iterations), math.MaxUint32)),
			Threads:   uint8(min(nonNegative(threads), math.MaxUint8)),
		}
		// Without a cutoff the budget can be too small for Argon2 at all.
		if validateArgon2Params(p) != nil {
			sel.Algorithm = fallbackAlgorithm(caps)
		} else {
			sel.Params = p
		}
	}
	return sel
}

// PreferredAlgorithm returns the most preferred algorithm in caps, or
// [DefaultAlgorithm] when caps supports none of them.
func PreferredAlgorithm(caps Capabilities) Algorithm {
	if caps == nil {
		return DefaultAlgorithm
	}
	for _, a := range preference {
		if caps.Supports(a) {
			return a
		}
	}
	return DefaultAlgorithm
}

func chooseAlgorithm(caps Capabilities, memoryCost uint64, cutoff int) Algorithm {
	if cutoff < 0 {
		return PreferredAlgorithm(caps)
	}
	fits := memoryCost >= uint64(cutoff)
	switch {
	case fits && caps.Supports(AlgorithmArgon2id):
		return AlgorithmArgon2id
	case fits && caps.Supports(AlgorithmArgon2i):
		return AlgorithmArgon2i
	default:
		return fallbackAlgorithm(caps)
	}
}

func fallbackAlgorithm(caps Capabilities) Algorithm {
	if caps.Supports(AlgorithmBcrypt) {
		return AlgorithmBcrypt
	}
	return DefaultAlgorithm
}

// belowGrowthThreshold reports memoryCost < 0.75 × availableKiB.
func belowGrowthThreshold(memoryCost, availableKiB uint64) bool {
	lhsHi, lhsLo := bits.Mul64(4, memoryCost)
	rhsHi, rhsLo := bits.Mul64(3, availableKiB)
	return lhsHi < rhsHi || (lhsHi == rhsHi && lhsLo < rhsLo)
}

func nonNegative(n int) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

func saturatingMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}
