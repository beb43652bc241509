package hashing_test

import (
	"math"
	"testing"

	"github.com/hasbyte1/go-adaptive-hashing/hashing"
)

const (
	mib = 1 << 20
	gib = 1 << 30
)

var allAlgorithms = hashing.NewAlgorithmSet(
	hashing.AlgorithmArgon2id, hashing.AlgorithmArgon2i, hashing.AlgorithmBcrypt,
)

// ──────────────────────────────────────────────────────────────────────────────
// Worked scenarios
// ──────────────────────────────────────────────────────────────────────────────

func TestSelect_128MiB(t *testing.T) {
	sel := hashing.Select(hashing.DefaultCostConfig(), allAlgorithms, 128*mib, 0)

	if sel.AvailableKiB != 104857 {
		t.Errorf("AvailableKiB = %d, want 104857", sel.AvailableKiB)
	}
	if sel.BaseMemoryKiB != 104857 {
		t.Errorf("BaseMemoryKiB = %d, want 104857", sel.BaseMemoryKiB)
	}
	if sel.Algorithm != hashing.AlgorithmArgon2id {
		t.Errorf("Algorithm = %q, want argon2id", sel.Algorithm)
	}
	want := hashing.Params{MemoryKiB: 104857, Time: 4, Threads: 4}
	if sel.Params != want {
		t.Errorf("Params = %+v, want %+v", sel.Params, want)
	}
}

func TestSelect_16MiBFallsBack(t *testing.T) {
	sel := hashing.Select(hashing.DefaultCostConfig(), allAlgorithms, 16*mib, 0)

	if sel.AvailableKiB != 13107 {
		t.Errorf("AvailableKiB = %d, want 13107", sel.AvailableKiB)
	}
	if sel.BaseMemoryKiB != 13107 {
		t.Errorf("BaseMemoryKiB = %d, want 13107", sel.BaseMemoryKiB)
	}
	if sel.Algorithm != hashing.AlgorithmBcrypt {
		t.Errorf("Algorithm = %q, want bcrypt", sel.Algorithm)
	}
	if !sel.Params.IsZero() {
		t.Errorf("fallback Params = %+v, want zero", sel.Params)
	}
}

func TestSelect_2GiBGrowsAndCaps(t *testing.T) {
	sel := hashing.Select(hashing.DefaultCostConfig(), allAlgorithms, 2*gib, 0)

	if sel.AvailableKiB != 1677721 {
		t.Errorf("AvailableKiB = %d, want 1677721", sel.AvailableKiB)
	}
	want := hashing.Params{MemoryKiB: 131072 * 3, Time: 6, Threads: 8}
	if sel.Params != want {
		t.Errorf("Params = %+v, want %+v", sel.Params, want)
	}
	if sel.BaseMemoryKiB != 131072 {
		t.Errorf("BaseMemoryKiB = %d, want 131072", sel.BaseMemoryKiB)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Budget clamping
// ──────────────────────────────────────────────────────────────────────────────

func TestSelect_UsageAtOrAboveLimit(t *testing.T) {
	for _, used := range []uint64{128 * mib, 128*mib + 1, math.MaxUint64} {
		sel := hashing.Select(hashing.DefaultCostConfig(), allAlgorithms, 128*mib, used)
		if sel.AvailableBytes != 0 || sel.AvailableKiB != 0 {
			t.Errorf("used=%d: available = %d bytes / %d KiB, want 0", used, sel.AvailableBytes, sel.AvailableKiB)
		}
		if sel.MemoryKiB != 0 || sel.BaseMemoryKiB != 0 {
			t.Errorf("used=%d: memory cost = %d/%d, want 0", used, sel.BaseMemoryKiB, sel.MemoryKiB)
		}
		if sel.Algorithm != hashing.AlgorithmBcrypt {
			t.Errorf("used=%d: Algorithm = %q, want bcrypt", used, sel.Algorithm)
		}
	}
}

func TestSelect_UsedMemoryReducesBudget(t *testing.T) {
	sel := hashing.Select(hashing.DefaultCostConfig(), allAlgorithms, 128*mib, 64*mib)
	if sel.AvailableBytes != 64*mib {
		t.Errorf("AvailableBytes = %d, want %d", sel.AvailableBytes, 64*mib)
	}
	// floor(0.8 × 67108864 / 1024) = 52428
	if sel.AvailableKiB != 52428 {
		t.Errorf("AvailableKiB = %d, want 52428", sel.AvailableKiB)
	}
}

func TestSelect_AvailableKiBMatchesFloor(t *testing.T) {
	for _, avail := range []uint64{0, 1, 1023, 1279, 1280, 1281, 5 * 1024, 999_999_999, 1 << 40} {
		want := avail * 4 / 5 / 1024
		sel := hashing.Select(hashing.DefaultCostConfig(), allAlgorithms, avail, 0)
		if sel.AvailableKiB != want {
			t.Errorf("avail=%d: AvailableKiB = %d, want %d", avail, sel.AvailableKiB, want)
		}
	}
}

func TestSelect_HugeLimitDoesNotOverflow(t *testing.T) {
	cfg := hashing.DefaultCostConfig()
	cfg.DefaultMemoryKiB = math.MaxInt
	cfg.MaxMemoryMultiplier = math.MaxInt
	sel := hashing.Select(cfg, allAlgorithms, math.MaxUint64, 0)
	if sel.Algorithm != hashing.AlgorithmArgon2id {
		t.Fatalf("Algorithm = %q, want argon2id", sel.Algorithm)
	}
	if sel.Params.MemoryKiB != math.MaxUint32 {
		t.Errorf("MemoryKiB = %d, want saturation at %d", sel.Params.MemoryKiB, uint32(math.MaxUint32))
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Algorithm choice
// ──────────────────────────────────────────────────────────────────────────────

func TestSelect_AlgorithmChoice(t *testing.T) {
	tests := []struct {
		name  string
		caps  hashing.Capabilities
		limit uint64
		want  hashing.Algorithm
	}{
		{"all, above cutoff", allAlgorithms, 128 * mib, hashing.AlgorithmArgon2id},
		{"all, below cutoff", allAlgorithms, 16 * mib, hashing.AlgorithmBcrypt},
		{"argon2i only, above cutoff", hashing.NewAlgorithmSet(hashing.AlgorithmArgon2i, hashing.AlgorithmBcrypt), 128 * mib, hashing.AlgorithmArgon2i},
		{"argon2i only, below cutoff", hashing.NewAlgorithmSet(hashing.AlgorithmArgon2i, hashing.AlgorithmBcrypt), 16 * mib, hashing.AlgorithmBcrypt},
		{"bcrypt only, above cutoff", hashing.NewAlgorithmSet(hashing.AlgorithmBcrypt), 1 * gib, hashing.AlgorithmBcrypt},
		{"nothing, above cutoff", hashing.NewAlgorithmSet(), 1 * gib, hashing.DefaultAlgorithm},
		{"nil caps", nil, 1 * gib, hashing.DefaultAlgorithm},
		{"argon2id without bcrypt, below cutoff", hashing.NewAlgorithmSet(hashing.AlgorithmArgon2id), 16 * mib, hashing.DefaultAlgorithm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := hashing.Select(hashing.DefaultCostConfig(), tt.caps, tt.limit, 0)
			if sel.Algorithm != tt.want {
				t.Errorf("Algorithm = %q, want %q", sel.Algorithm, tt.want)
			}
			if sel.Algorithm.MemoryHard() == sel.Params.IsZero() {
				t.Errorf("Params %+v inconsistent with %q", sel.Params, sel.Algorithm)
			}
		})
	}
}

func TestSelect_CutoffBoundary(t *testing.T) {
	cfg := hashing.DefaultCostConfig()
	// 0.8 × limit / 1024 == cutoff exactly when limit = cutoff × 1280.
	atCutoff := uint64(cfg.MemoryCutoffKiB) * 1280

	if sel := hashing.Select(cfg, allAlgorithms, atCutoff, 0); sel.Algorithm != hashing.AlgorithmArgon2id {
		t.Errorf("at cutoff: Algorithm = %q, want argon2id", sel.Algorithm)
	}
	if sel := hashing.Select(cfg, allAlgorithms, atCutoff-1280, 0); sel.Algorithm != hashing.AlgorithmBcrypt {
		t.Errorf("1 KiB below cutoff: Algorithm = %q, want bcrypt", sel.Algorithm)
	}
}

func TestSelect_CutoffProfiles(t *testing.T) {
	// 28 MiB budget: above the standard cutoff, below the conservative one.
	limit := uint64(28*1024) * 1280

	cfg := hashing.DefaultCostConfig()
	cfg.MemoryCutoffKiB = hashing.CutoffStandard
	if sel := hashing.Select(cfg, allAlgorithms, limit, 0); sel.Algorithm != hashing.AlgorithmArgon2id {
		t.Errorf("standard: Algorithm = %q, want argon2id", sel.Algorithm)
	}
	cfg.MemoryCutoffKiB = hashing.CutoffConservative
	if sel := hashing.Select(cfg, allAlgorithms, limit, 0); sel.Algorithm != hashing.AlgorithmBcrypt {
		t.Errorf("conservative: Algorithm = %q, want bcrypt", sel.Algorithm)
	}
}

func TestSelect_NoCutoffPicksBestAvailable(t *testing.T) {
	cfg := hashing.DefaultCostConfig()
	cfg.MemoryCutoffKiB = hashing.NoCutoff

	if sel := hashing.Select(cfg, allAlgorithms, 1*mib, 0); sel.Algorithm != hashing.AlgorithmArgon2id {
		t.Errorf("Algorithm = %q, want argon2id", sel.Algorithm)
	}
	caps := hashing.NewAlgorithmSet(hashing.AlgorithmArgon2i, hashing.AlgorithmBcrypt)
	if sel := hashing.Select(cfg, caps, 1*mib, 0); sel.Algorithm != hashing.AlgorithmArgon2i {
		t.Errorf("Algorithm = %q, want argon2i", sel.Algorithm)
	}
}

func TestSelect_NoCutoffTinyBudgetFallsBack(t *testing.T) {
	cfg := hashing.DefaultCostConfig()
	cfg.MemoryCutoffKiB = hashing.NoCutoff

	tests := []struct {
		name  string
		caps  hashing.Capabilities
		limit uint64
		used  uint64
		want  hashing.Algorithm
	}{
		// 16 KiB → 12 KiB budget, below 8 × 4 threads
		{"16K", allAlgorithms, 16 << 10, 0, hashing.AlgorithmBcrypt},
		{"used above limit", allAlgorithms, 128 * mib, 200 * mib, hashing.AlgorithmBcrypt},
		{"used equals limit", allAlgorithms, 128 * mib, 128 * mib, hashing.AlgorithmBcrypt},
		{"argon2i only", hashing.NewAlgorithmSet(hashing.AlgorithmArgon2i, hashing.AlgorithmBcrypt), 16 << 10, 0, hashing.AlgorithmBcrypt},
		{"no bcrypt", hashing.NewAlgorithmSet(hashing.AlgorithmArgon2id), 16 << 10, 0, hashing.DefaultAlgorithm},
		// 40 KiB → 32 KiB budget, exactly 8 × 4 threads
		{"argon2 minimum", allAlgorithms, 40 << 10, 0, hashing.AlgorithmArgon2id},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := hashing.Select(cfg, tt.caps, tt.limit, tt.used)
			if sel.Algorithm != tt.want {
				t.Errorf("Algorithm = %q, want %q", sel.Algorithm, tt.want)
			}
			if sel.Algorithm.MemoryHard() == sel.Params.IsZero() {
				t.Errorf("Params %+v inconsistent with %q", sel.Params, sel.Algorithm)
			}
			if sel.Algorithm.MemoryHard() && uint64(sel.Params.MemoryKiB) < 8*uint64(sel.Params.Threads) {
				t.Errorf("Params %+v below the argon2 minimum", sel.Params)
			}
		})
	}
}

func TestPreferredAlgorithm(t *testing.T) {
	tests := []struct {
		caps hashing.Capabilities
		want hashing.Algorithm
	}{
		{allAlgorithms, hashing.AlgorithmArgon2id},
		{hashing.NewAlgorithmSet(hashing.AlgorithmArgon2i, hashing.AlgorithmBcrypt), hashing.AlgorithmArgon2i},
		{hashing.NewAlgorithmSet(hashing.AlgorithmBcrypt), hashing.AlgorithmBcrypt},
		{hashing.NewAlgorithmSet(), hashing.DefaultAlgorithm},
		{nil, hashing.DefaultAlgorithm},
	}
	for _, tt := range tests {
		if got := hashing.PreferredAlgorithm(tt.caps); got != tt.want {
			t.Errorf("PreferredAlgorithm(%v) = %q, want %q", tt.caps, got, tt.want)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Growth
// ──────────────────────────────────────────────────────────────────────────────

// The growth loops compare the pre-growth memory cost with 75% of the budget,
// so iterations and threads either both reach their maximum or both stay at
// their defaults.
func TestSelect_GrowthAllOrNothing(t *testing.T) {
	cfg := hashing.DefaultCostConfig()

	tests := []struct {
		name       string
		limit      uint64
		wantGrowth bool
	}{
		// base = 104857, 0.75 × 104857 < base
		{"budget below default memory", 128 * mib, false},
		// base = 131072 = availableKiB → no headroom
		{"budget equals default memory", 160 * mib, false},
		// availableKiB = 174762, 0.75 × 174762 = 131071.5 < 131072
		{"just under threshold", 174762 * 1280, false},
		// availableKiB = 174763, 0.75 × 174763 = 131072.25 > 131072
		{"just over threshold", 174763 * 1280, true},
		{"plenty", 4 * gib, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := hashing.Select(cfg, allAlgorithms, tt.limit, 0)
			wantIter, wantThreads := cfg.DefaultIterations, cfg.DefaultThreads
			if tt.wantGrowth {
				wantIter, wantThreads = cfg.MaxIterations, cfg.MaxThreads
			}
			if sel.Iterations != wantIter || sel.Threads != wantThreads {
				t.Errorf("iterations/threads = %d/%d, want %d/%d",
					sel.Iterations, sel.Threads, wantIter, wantThreads)
			}
		})
	}
}

func TestSelect_GrowthStaysInBounds(t *testing.T) {
	configs := []hashing.CostConfig{
		hashing.DefaultCostConfig(),
		{DefaultMemoryKiB: 1024, MaxMemoryMultiplier: 2, DefaultThreads: 1, MaxThreads: 1, DefaultIterations: 2, MaxIterations: 10, MemoryCutoffKiB: 8},
		{DefaultMemoryKiB: 256 * 1024, MaxMemoryMultiplier: 4, DefaultThreads: 6, MaxThreads: 10, DefaultIterations: 5, MaxIterations: 7, MemoryCutoffKiB: 64 * 1024},
	}
	limits := []uint64{0, 1 * mib, 16 * mib, 128 * mib, 512 * mib, 2 * gib, 64 * gib}
	for _, cfg := range configs {
		for _, limit := range limits {
			for _, used := range []uint64{0, limit / 2, limit} {
				sel := hashing.Select(cfg, allAlgorithms, limit, used)
				if sel.Iterations < cfg.DefaultIterations || sel.Iterations > cfg.MaxIterations {
					t.Errorf("cfg=%+v limit=%d used=%d: iterations %d out of [%d, %d]",
						cfg, limit, used, sel.Iterations, cfg.DefaultIterations, cfg.MaxIterations)
				}
				if sel.Threads < cfg.DefaultThreads || sel.Threads > cfg.MaxThreads {
					t.Errorf("cfg=%+v limit=%d used=%d: threads %d out of [%d, %d]",
						cfg, limit, used, sel.Threads, cfg.DefaultThreads, cfg.MaxThreads)
				}
				if sel.BaseMemoryKiB > sel.MemoryKiB {
					t.Errorf("final memory %d below base %d", sel.MemoryKiB, sel.BaseMemoryKiB)
				}
				if sel.MemoryKiB > uint64(cfg.DefaultMemoryKiB*cfg.MaxMemoryMultiplier) {
					t.Errorf("final memory %d above ceiling", sel.MemoryKiB)
				}
			}
		}
	}
}

func TestSelect_FinalMemoryUsesMultiplier(t *testing.T) {
	cfg := hashing.DefaultCostConfig()
	cfg.MaxMemoryMultiplier = 2
	// availableKiB = 300000, between default (131072) and default×2 (262144).
	sel := hashing.Select(cfg, allAlgorithms, 300000*1280, 0)
	if sel.BaseMemoryKiB != 131072 {
		t.Errorf("BaseMemoryKiB = %d, want 131072", sel.BaseMemoryKiB)
	}
	if sel.Params.MemoryKiB != 262144 {
		t.Errorf("MemoryKiB = %d, want 262144", sel.Params.MemoryKiB)
	}
}
