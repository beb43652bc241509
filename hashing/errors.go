package hashing

import (
	"errors"

	"github.com/hasbyte1/go-adaptive-hashing/memlimit"
)

// Sentinel errors returned by hashing operations.
//
// Use [errors.Is] for comparisons:
//
//	hash, err := hashing.HashPassword(ctx, password, hashing.DefaultCostConfig())
//	if errors.Is(err, hashing.ErrInvalidFormat) {
//	    // the host memory limit could not be parsed
//	}
var (
	// ErrEmptyPassword is returned by [AdaptiveHasher.HashPassword] when the
	// password is the empty string.
	ErrEmptyPassword = errors.New("hashing: password must be a non-empty string")

	// ErrHashingFailed is returned when the underlying primitive could not
	// produce or inspect a hash.  The primitive's error is wrapped.
	ErrHashingFailed = errors.New("hashing: failed to hash password")

	// ErrInvalidFormat is returned when the memory limit reported by the
	// memory source is unparsable.  It is the same value as
	// [memlimit.ErrInvalidFormat].
	ErrInvalidFormat = memlimit.ErrInvalidFormat

	// ErrInvalidHash is returned when a hash string cannot be parsed because
	// it has an unrecognised format, missing fields, or invalid encoding.
	ErrInvalidHash = errors.New("hashing: invalid or unrecognised hash string")

	// ErrInvalidOption is returned when a driver, [CostConfig], or [Params]
	// value falls outside the allowed range (e.g., a bcrypt cost above 31 or
	// zero Argon2 threads).
	ErrInvalidOption = errors.New("hashing: invalid option value")

	// ErrAlgorithmUnavailable is returned by [Registry.Driver], and indirectly
	// by [Registry.Hash], when no driver is registered for the algorithm.
	ErrAlgorithmUnavailable = errors.New("hashing: algorithm not available")

	// ErrNilDriver is returned by [Registry.Register] when a nil [Driver] is
	// supplied.
	ErrNilDriver = errors.New("hashing: driver must not be nil")

	// ErrAlgorithmMismatch is returned by a [Driver]'s Check, NeedsRehash or
	// Info method when the hash string was produced by a different algorithm.
	ErrAlgorithmMismatch = errors.New("hashing: hash was produced by a different algorithm")
)
