package hashing

import "strings"

// Algorithm identifies a password-hashing algorithm.
// Using a named string type prevents accidental confusion with plain strings.
type Algorithm string

const (
	// AlgorithmArgon2id is the primary memory-hard algorithm.
	AlgorithmArgon2id Algorithm = "argon2id"
	// AlgorithmArgon2i is the secondary memory-hard algorithm, used when
	// Argon2id is not available.
	AlgorithmArgon2i Algorithm = "argon2i"
	// AlgorithmBcrypt is the fallback algorithm for small memory budgets.
	AlgorithmBcrypt Algorithm = "bcrypt"
)

// DefaultAlgorithm is chosen when none of the preferred algorithms is
// available.
const DefaultAlgorithm = AlgorithmBcrypt

// preference lists the algorithms from most to least preferred.
var preference = []Algorithm{AlgorithmArgon2id, AlgorithmArgon2i, AlgorithmBcrypt}

// MemoryHard reports whether a belongs to the Argon2 family.
func (a Algorithm) MemoryHard() bool {
	return a == AlgorithmArgon2id || a == AlgorithmArgon2i
}

func (a Algorithm) String() string { return string(a) }

// Params are the cost parameters of a memory-hard algorithm.
//
// The zero value means "no parameters": the fallback algorithm ignores
// them and Argon2 drivers substitute their configured defaults.
type Params struct {
	// MemoryKiB is the memory cost in KiB.
	MemoryKiB uint32
	// Time is the number of passes over memory (iterations).
	Time uint32
	// Threads is the degree of parallelism.
	Threads uint8
}

// IsZero reports whether p carries no parameters.
func (p Params) IsZero() bool { return p == Params{} }

// Driver hashes and verifies passwords with a single algorithm.
//
// All implementations must be safe for concurrent use by multiple goroutines.
type Driver interface {
	// Algorithm returns the algorithm implemented by this driver.
	Algorithm() Algorithm

	// Make hashes a plaintext password with the given cost parameters and
	// returns the encoded hash string.  A fresh salt is generated for every
	// call.
	Make(password string, p Params) (string, error)

	// Check verifies that password matches the previously encoded hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or
	// (false, err) if the hash is structurally invalid.
	//
	// Comparison is performed in constant time.
	Check(password, hash string) (bool, error)

	// NeedsRehash returns true when hash was produced with parameters other
	// than p.
	NeedsRehash(hash string, p Params) (bool, error)

	// Info extracts metadata from an encoded hash string without verifying it.
	Info(hash string) (HashInfo, error)
}

// HashInfo carries metadata parsed from an encoded hash string.
type HashInfo struct {
	// Algorithm is the algorithm that produced the hash.
	Algorithm Algorithm

	// Params holds algorithm-specific parameters extracted from the hash string.
	//
	// For bcrypt:
	//   "cost" → int
	//
	// For Argon2i and Argon2id:
	//   "version" → int
	//   "memory"  → uint32 (KiB)
	//   "time"    → uint32 (iterations)
	//   "threads" → uint8  (degree of parallelism)
	//   "key_len" → uint32 (output key length in bytes)
	Params map[string]any
}

// DetectAlgorithm inspects a hash string and returns the [Algorithm] that
// produced it.  It is a best-effort heuristic based on the hash prefix and
// does not verify the hash itself.
//
// The second return value is false when the hash format is not recognised.
func DetectAlgorithm(hash string) (Algorithm, bool) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return AlgorithmArgon2id, true
	case strings.HasPrefix(hash, "$argon2i$"):
		return AlgorithmArgon2i, true
	// bcrypt hashes start with $2a$, $2b$, or $2y$
	case strings.HasPrefix(hash, "$2a$"),
		strings.HasPrefix(hash, "$2b$"),
		strings.HasPrefix(hash, "$2y$"):
		return AlgorithmBcrypt, true
	default:
		return "", false
	}
}
