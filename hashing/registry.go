package hashing

import (
	"fmt"
	"sync"
)

// Primitive is the password-hashing backend an [AdaptiveHasher] delegates to.
// [Registry] is the implementation shipped with this package.
type Primitive interface {
	// Hash hashes password with algorithm a and cost parameters p.
	Hash(password string, a Algorithm, p Params) (string, error)

	// NeedsRehash reports whether hash differs from what Hash(_, a, p)
	// would produce.
	NeedsRehash(hash string, a Algorithm, p Params) (bool, error)

	// Verify reports whether password matches hash, whatever algorithm
	// produced it.
	Verify(password, hash string) (bool, error)
}

// Capabilities reports which algorithms can be used in this process.
type Capabilities interface {
	Supports(a Algorithm) bool
}

// AlgorithmSet is a static [Capabilities].
type AlgorithmSet map[Algorithm]struct{}

// NewAlgorithmSet returns a set holding algs.
func NewAlgorithmSet(algs ...Algorithm) AlgorithmSet {
	s := make(AlgorithmSet, len(algs))
	for _, a := range algs {
		s[a] = struct{}{}
	}
	return s
}

// Supports reports whether a is in the set.
func (s AlgorithmSet) Supports(a Algorithm) bool {
	_, ok := s[a]
	return ok
}

// Registry is a thread-safe set of [Driver]s keyed by [Algorithm].
//
// It satisfies both [Primitive] and [Capabilities]: an algorithm is available
// exactly when a driver for it has been registered.
//
// A [sync.RWMutex] serialises Register while allowing concurrent hashing.
type Registry struct {
	mu      sync.RWMutex
	drivers map[Algorithm]Driver
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[Algorithm]Driver)}
}

// NewDefaultRegistry returns a Registry with Argon2id, Argon2i, and bcrypt
// drivers using their recommended default options.
func NewDefaultRegistry() (*Registry, error) {
	bcryptD, err := NewBcryptDriver(DefaultBcryptOptions())
	if err != nil {
		return nil, fmt.Errorf("hashing: failed to create default bcrypt driver: %w", err)
	}
	argon2iD, err := NewArgon2iDriver(DefaultArgon2Options())
	if err != nil {
		return nil, fmt.Errorf("hashing: failed to create default argon2i driver: %w", err)
	}
	argon2idD, err := NewArgon2idDriver(DefaultArgon2Options())
	if err != nil {
		return nil, fmt.Errorf("hashing: failed to create default argon2id driver: %w", err)
	}

	r := NewRegistry()
	_ = r.Register(bcryptD)
	_ = r.Register(argon2iD)
	_ = r.Register(argon2idD)
	return r, nil
}

// Register adds d, replacing any driver already registered for
// d.Algorithm().
func (r *Registry) Register(d Driver) error {
	if d == nil {
		return ErrNilDriver
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.Algorithm()] = d
	return nil
}

// Driver returns the driver registered for a, or [ErrAlgorithmUnavailable].
func (r *Registry) Driver(a Algorithm) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[a]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAlgorithmUnavailable, a)
	}
	return d, nil
}

// Supports reports whether a driver is registered for a.
func (r *Registry) Supports(a Algorithm) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.drivers[a]
	return ok
}

// Algorithms returns the registered built-in algorithms in preference order
// (Argon2id, Argon2i, bcrypt).  Drivers registered under other names are not
// listed.
func (r *Registry) Algorithms() []Algorithm {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Algorithm
	for _, a := range preference {
		if _, ok := r.drivers[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Hash hashes password with the driver for a.
func (r *Registry) Hash(password string, a Algorithm, p Params) (string, error) {
	d, err := r.Driver(a)
	if err != nil {
		return "", err
	}
	return d.Make(password, p)
}

// NeedsRehash reports whether hash should be re-hashed with a and p.
//
// A hash produced by a different algorithm always needs rehashing.  Otherwise
// the driver compares the encoded parameters with p.
func (r *Registry) NeedsRehash(hash string, a Algorithm, p Params) (bool, error) {
	detected, ok := DetectAlgorithm(hash)
	if !ok {
		return false, ErrInvalidHash
	}
	if detected != a {
		return true, nil
	}
	d, err := r.Driver(detected)
	if err != nil {
		return false, err
	}
	return d.NeedsRehash(hash, p)
}

// Verify checks password against hash using the driver that produced it.
//
// Returns [ErrInvalidHash] if the hash format is unrecognised and
// [ErrAlgorithmUnavailable] if its driver is not registered.
func (r *Registry) Verify(password, hash string) (bool, error) {
	d, err := r.resolveByHash(hash)
	if err != nil {
		return false, err
	}
	return d.Check(password, hash)
}

// Info extracts metadata from hash using the driver that produced it.
func (r *Registry) Info(hash string) (HashInfo, error) {
	d, err := r.resolveByHash(hash)
	if err != nil {
		return HashInfo{}, err
	}
	return d.Info(hash)
}

func (r *Registry) resolveByHash(hash string) (Driver, error) {
	a, ok := DetectAlgorithm(hash)
	if !ok {
		return nil, ErrInvalidHash
	}
	return r.Driver(a)
}
