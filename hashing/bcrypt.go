package hashing

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is the work factor of the fallback algorithm.
	// At cost 12 a hash takes roughly 250 ms on a modern server CPU.
	DefaultBcryptCost = 12

	// BcryptMaxPasswordLen is the number of password bytes bcrypt reads.
	// Longer passwords are truncated, so every password the Argon2 drivers
	// accept can also be stored with the fallback.
	BcryptMaxPasswordLen = 72
)

// BcryptOptions configures a [BcryptDriver].
type BcryptOptions struct {
	// Cost is the bcrypt work factor (logarithmic).
	// Valid range: [bcrypt.MinCost (4), bcrypt.MaxCost (31)].
	// Default: [DefaultBcryptCost] (12).
	Cost int
}

// DefaultBcryptOptions returns BcryptOptions with [DefaultBcryptCost].
func DefaultBcryptOptions() BcryptOptions {
	return BcryptOptions{Cost: DefaultBcryptCost}
}

// BcryptDriver hashes passwords with bcrypt, the fallback algorithm used when
// the memory budget is below the cutoff or no Argon2 driver is registered.
//
// Bcrypt has no memory or parallelism knobs, so the [Params] passed to Make
// and NeedsRehash are ignored; only the configured cost matters.
//
// BcryptDriver is immutable after construction and safe for concurrent use.
type BcryptDriver struct {
	cost int
}

// NewBcryptDriver constructs a BcryptDriver.
// Returns [ErrInvalidOption] if Cost is outside [bcrypt.MinCost, bcrypt.MaxCost].
func NewBcryptDriver(opts BcryptOptions) (*BcryptDriver, error) {
	if opts.Cost < bcrypt.MinCost || opts.Cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d must be in [%d, %d]",
			ErrInvalidOption, opts.Cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptDriver{cost: opts.Cost}, nil
}

// Algorithm returns [AlgorithmBcrypt].
func (d *BcryptDriver) Algorithm() Algorithm { return AlgorithmBcrypt }

// Cost returns the configured bcrypt work factor.
func (d *BcryptDriver) Cost() int { return d.cost }

// Make hashes password with bcrypt and returns the Modular Crypt Format string
// (e.g., "$2a$12$...").
//
// Only the first [BcryptMaxPasswordLen] bytes of password are hashed.
func (d *BcryptDriver) Make(password string, _ Params) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptKey(password), d.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: generate hash: %w", err)
	}
	return string(hash), nil
}

// Check verifies that password matches the bcrypt-encoded hash.
// Returns (false, nil) on mismatch.  Like Make, it reads only the first
// [BcryptMaxPasswordLen] bytes of password.
func (d *BcryptDriver) Check(password, hash string) (bool, error) {
	if err := d.ensureBcrypt(hash); err != nil {
		return false, err
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptKey(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: bcrypt: %v", ErrInvalidHash, err)
	}
	return true, nil
}

// NeedsRehash returns true if the work factor encoded in hash differs from
// the driver's cost.
func (d *BcryptDriver) NeedsRehash(hash string, _ Params) (bool, error) {
	cost, err := d.storedCost(hash)
	if err != nil {
		return false, err
	}
	return cost != d.cost, nil
}

// Info extracts the work factor from a bcrypt hash string.
//
// Returned [HashInfo].Params:
//   - "cost" → int
func (d *BcryptDriver) Info(hash string) (HashInfo, error) {
	cost, err := d.storedCost(hash)
	if err != nil {
		return HashInfo{}, err
	}
	return HashInfo{
		Algorithm: AlgorithmBcrypt,
		Params:    map[string]any{"cost": cost},
	}, nil
}

func (d *BcryptDriver) storedCost(hash string) (int, error) {
	if err := d.ensureBcrypt(hash); err != nil {
		return 0, err
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return cost, nil
}

func (d *BcryptDriver) ensureBcrypt(hash string) error {
	alg, ok := DetectAlgorithm(hash)
	if !ok {
		return fmt.Errorf("%w: hash does not appear to be bcrypt", ErrInvalidHash)
	}
	if alg != AlgorithmBcrypt {
		return fmt.Errorf("%w: hash is %s, not bcrypt", ErrAlgorithmMismatch, alg)
	}
	return nil
}

func bcryptKey(password string) []byte {
	key := []byte(password)
	if len(key) > BcryptMaxPasswordLen {
		key = key[:BcryptMaxPasswordLen]
	}
	return key
}
