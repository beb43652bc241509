package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/argon2"
)

// ──────────────────────────────────────────────────────────────────────────────
// Options
// ──────────────────────────────────────────────────────────────────────────────

const (
	// DefaultArgon2Memory is the memory cost in KiB (64 MiB) used when a
	// caller hashes with zero [Params].
	DefaultArgon2Memory uint32 = 64 * 1024

	// DefaultArgon2Time is the iteration count used with zero [Params].
	DefaultArgon2Time uint32 = 3

	// DefaultArgon2Threads is the parallelism used with zero [Params].
	DefaultArgon2Threads uint8 = 2

	// DefaultArgon2KeyLen is the default output key length in bytes.
	DefaultArgon2KeyLen uint32 = 32

	// DefaultArgon2SaltLen is the default random salt length in bytes.
	DefaultArgon2SaltLen uint32 = 16

	// argon2Version is the Argon2 version encoded in hashes.
	argon2Version = argon2.Version // 0x13 = 19
)

// Argon2Options configures an [Argon2iDriver] or [Argon2idDriver].
//
// Cost parameters are supplied per call; only the output sizes and the
// fallback parameter set are fixed at construction.
type Argon2Options struct {
	// KeyLen is the length of the derived key in bytes.
	// Minimum: 4.  Default: [DefaultArgon2KeyLen] (32).
	KeyLen uint32

	// SaltLen is the length of the random salt in bytes.
	// Minimum: 8.  Default: [DefaultArgon2SaltLen] (16).
	SaltLen uint32

	// Defaults replaces zero [Params] passed to Make or NeedsRehash.
	Defaults Params
}

// DefaultArgon2Options returns Argon2Options with the recommended defaults
// (m=64 MiB, t=3, p=2, 32-byte key, 16-byte salt).
func DefaultArgon2Options() Argon2Options {
	return Argon2Options{
		KeyLen:  DefaultArgon2KeyLen,
		SaltLen: DefaultArgon2SaltLen,
		Defaults: Params{
			MemoryKiB: DefaultArgon2Memory,
			Time:      DefaultArgon2Time,
			Threads:   DefaultArgon2Threads,
		},
	}
}

func validateArgon2Options(opts Argon2Options) error {
	if opts.KeyLen < 4 {
		return fmt.Errorf("%w: argon2 key_len must be ≥ 4, got %d", ErrInvalidOption, opts.KeyLen)
	}
	if opts.SaltLen < 8 {
		return fmt.Errorf("%w: argon2 salt_len must be ≥ 8, got %d", ErrInvalidOption, opts.SaltLen)
	}
	return validateArgon2Params(opts.Defaults)
}

func validateArgon2Params(p Params) error {
	if p.Time < 1 {
		return fmt.Errorf("%w: argon2 time must be ≥ 1, got %d", ErrInvalidOption, p.Time)
	}
	if p.Threads < 1 {
		return fmt.Errorf("%w: argon2 threads must be ≥ 1, got %d", ErrInvalidOption, p.Threads)
	}
	if p.MemoryKiB < 8*uint32(p.Threads) {
		return fmt.Errorf("%w: argon2 memory (%d KiB) must be ≥ 8×threads (%d KiB)",
			ErrInvalidOption, p.MemoryKiB, 8*uint32(p.Threads))
	}
	return nil
}

// resolve returns the parameters a call actually hashes with.
func (o Argon2Options) resolve(p Params) (Params, error) {
	if p.IsZero() {
		return o.Defaults, nil
	}
	if err := validateArgon2Params(p); err != nil {
		return Params{}, err
	}
	return p, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// PHC string format helpers
// ──────────────────────────────────────────────────────────────────────────────

// argon2Params holds parameters and raw values decoded from a PHC hash string.
type argon2Params struct {
	variant Algorithm
	version uint32
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
	salt    []byte
	hash    []byte
}

// encodePHC serialises an Argon2 hash in PHC String Format:
//
//	$argon2i$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
//
// Base64 uses the standard alphabet without padding.
func encodePHC(variant Algorithm, p Params, salt, hash []byte) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		string(variant),
		argon2Version,
		p.MemoryKiB,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

// decodePHC parses an Argon2 PHC hash string and returns its components.
func decodePHC(encoded string) (*argon2Params, error) {
	// Split on "$"; the leading "$" produces an empty first element.
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5-segment PHC string, got %d segments",
			ErrInvalidHash, len(parts)-1)
	}

	var variant Algorithm
	switch parts[1] {
	case string(AlgorithmArgon2i):
		variant = AlgorithmArgon2i
	case string(AlgorithmArgon2id):
		variant = AlgorithmArgon2id
	default:
		return nil, fmt.Errorf("%w: unknown argon2 variant %q", ErrInvalidHash, parts[1])
	}

	version, err := parseKV(parts[2], "v")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	kvs, err := parseParams(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	memory, ok1 := kvs["m"]
	time, ok2 := kvs["t"]
	threads, ok3 := kvs["p"]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: missing m/t/p in parameter segment %q", ErrInvalidHash, parts[3])
	}
	if memory > 1<<32-1 || time > 1<<32-1 || threads > 255 {
		return nil, fmt.Errorf("%w: parameter out of range in %q", ErrInvalidHash, parts[3])
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt base64: %v", ErrInvalidHash, err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hash base64: %v", ErrInvalidHash, err)
	}
	if len(hash) == 0 {
		return nil, fmt.Errorf("%w: empty key segment", ErrInvalidHash)
	}

	return &argon2Params{
		variant: variant,
		version: uint32(version),
		memory:  uint32(memory),
		time:    uint32(time),
		threads: uint8(threads),
		keyLen:  uint32(len(hash)),
		salt:    salt,
		hash:    hash,
	}, nil
}

// parseKV parses a "key=value" string and returns the uint64 value.
func parseKV(s, key string) (uint64, error) {
	prefix := key + "="
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("expected %q prefix in %q", prefix, s)
	}
	return strconv.ParseUint(s[len(prefix):], 10, 64)
}

// parseParams splits "m=65536,t=3,p=2" into a map.
func parseParams(s string) (map[string]uint64, error) {
	out := make(map[string]uint64)
	for _, kv := range strings.Split(s, ",") {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed param %q", kv)
		}
		v, err := strconv.ParseUint(kv[eq+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric value in %q: %v", kv, err)
		}
		out[kv[:eq]] = v
	}
	return out, nil
}

// randomSalt returns n cryptographically random bytes.
func randomSalt(n uint32) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("argon2: generate salt: %w", err)
	}
	return b, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Argon2iDriver
// ──────────────────────────────────────────────────────────────────────────────

// Argon2iDriver hashes passwords with Argon2i.
//
// Argon2i uses data-independent memory access.  It is the secondary
// memory-hard choice, used only where Argon2id is not registered.
//
// Output format: PHC string ($argon2i$v=19$m=…,t=…,p=…$<salt>$<hash>).
//
// Argon2iDriver is immutable after construction and safe for concurrent use.
type Argon2iDriver struct {
	opts Argon2Options
}

// NewArgon2iDriver constructs an Argon2iDriver.
// Use [DefaultArgon2Options] for recommended defaults.
func NewArgon2iDriver(opts Argon2Options) (*Argon2iDriver, error) {
	if err := validateArgon2Options(opts); err != nil {
		return nil, err
	}
	return &Argon2iDriver{opts: opts}, nil
}

// Algorithm returns [AlgorithmArgon2i].
func (d *Argon2iDriver) Algorithm() Algorithm { return AlgorithmArgon2i }

// Options returns the driver configuration.
func (d *Argon2iDriver) Options() Argon2Options { return d.opts }

// Make hashes password with Argon2i and returns a PHC-formatted string.
func (d *Argon2iDriver) Make(password string, p Params) (string, error) {
	p, err := d.opts.resolve(p)
	if err != nil {
		return "", err
	}
	salt, err := randomSalt(d.opts.SaltLen)
	if err != nil {
		return "", err
	}
	key := argon2.Key([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, d.opts.KeyLen)
	return encodePHC(AlgorithmArgon2i, p, salt, key), nil
}

// Check verifies that password matches the Argon2i PHC hash.  The cost
// parameters are read from the hash itself.
func (d *Argon2iDriver) Check(password, hash string) (bool, error) {
	ph, err := d.decode(hash)
	if err != nil {
		return false, err
	}
	computed := argon2.Key([]byte(password), ph.salt, ph.time, ph.memory, ph.threads, ph.keyLen)
	return subtle.ConstantTimeCompare(computed, ph.hash) == 1, nil
}

// NeedsRehash returns true if any parameter stored in hash differs from p
// (or from the configured defaults when p is zero).
func (d *Argon2iDriver) NeedsRehash(hash string, p Params) (bool, error) {
	ph, err := d.decode(hash)
	if err != nil {
		return false, err
	}
	if p.IsZero() {
		p = d.opts.Defaults
	}
	return ph.memory != p.MemoryKiB ||
		ph.time != p.Time ||
		ph.threads != p.Threads ||
		ph.keyLen != d.opts.KeyLen, nil
}

// Info parses the PHC string and returns the encoded parameters.
func (d *Argon2iDriver) Info(hash string) (HashInfo, error) {
	ph, err := d.decode(hash)
	if err != nil {
		return HashInfo{}, err
	}
	return argon2Info(AlgorithmArgon2i, int(ph.version), Params{ph.memory, ph.time, ph.threads}, ph.keyLen), nil
}

func (d *Argon2iDriver) decode(hash string) (*argon2Params, error) {
	ph, err := decodePHC(hash)
	if err != nil {
		return nil, err
	}
	if ph.variant != AlgorithmArgon2i {
		return nil, fmt.Errorf("%w: hash is %s, not argon2i", ErrAlgorithmMismatch, ph.variant)
	}
	if ph.version != argon2Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version %d", ErrInvalidHash, ph.version)
	}
	return ph, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Argon2idDriver
// ──────────────────────────────────────────────────────────────────────────────

// Argon2idDriver hashes passwords with Argon2id, the primary memory-hard
// algorithm recommended by RFC 9106 and OWASP.
//
// Encoding and verification are delegated to github.com/alexedwards/argon2id,
// whose PHC output is interchangeable with [Argon2iDriver]'s.
//
// Argon2idDriver is immutable after construction and safe for concurrent use.
type Argon2idDriver struct {
	opts Argon2Options
}

// NewArgon2idDriver constructs an Argon2idDriver.
// Use [DefaultArgon2Options] for recommended defaults.
func NewArgon2idDriver(opts Argon2Options) (*Argon2idDriver, error) {
	if err := validateArgon2Options(opts); err != nil {
		return nil, err
	}
	return &Argon2idDriver{opts: opts}, nil
}

// Algorithm returns [AlgorithmArgon2id].
func (d *Argon2idDriver) Algorithm() Algorithm { return AlgorithmArgon2id }

// Options returns the driver configuration.
func (d *Argon2idDriver) Options() Argon2Options { return d.opts }

// Make hashes password with Argon2id and returns a PHC-formatted string.
func (d *Argon2idDriver) Make(password string, p Params) (string, error) {
	p, err := d.opts.resolve(p)
	if err != nil {
		return "", err
	}
	hash, err := argon2id.CreateHash(password, &argon2id.Params{
		Memory:      p.MemoryKiB,
		Iterations:  p.Time,
		Parallelism: p.Threads,
		SaltLength:  d.opts.SaltLen,
		KeyLength:   d.opts.KeyLen,
	})
	if err != nil {
		return "", fmt.Errorf("argon2id: generate hash: %w", err)
	}
	return hash, nil
}

// Check verifies that password matches the Argon2id PHC hash.
func (d *Argon2idDriver) Check(password, hash string) (bool, error) {
	if err := d.ensureVariant(hash); err != nil {
		return false, err
	}
	ok, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, d.mapError(err)
	}
	return ok, nil
}

// NeedsRehash returns true if any parameter stored in hash differs from p
// (or from the configured defaults when p is zero).
func (d *Argon2idDriver) NeedsRehash(hash string, p Params) (bool, error) {
	stored, err := d.decode(hash)
	if err != nil {
		return false, err
	}
	if p.IsZero() {
		p = d.opts.Defaults
	}
	return stored.Memory != p.MemoryKiB ||
		stored.Iterations != p.Time ||
		stored.Parallelism != p.Threads ||
		stored.KeyLength != d.opts.KeyLen, nil
}

// Info parses the PHC string and returns the encoded parameters.
func (d *Argon2idDriver) Info(hash string) (HashInfo, error) {
	stored, err := d.decode(hash)
	if err != nil {
		return HashInfo{}, err
	}
	p := Params{MemoryKiB: stored.Memory, Time: stored.Iterations, Threads: stored.Parallelism}
	return argon2Info(AlgorithmArgon2id, argon2Version, p, stored.KeyLength), nil
}

func (d *Argon2idDriver) decode(hash string) (*argon2id.Params, error) {
	if err := d.ensureVariant(hash); err != nil {
		return nil, err
	}
	stored, _, _, err := argon2id.DecodeHash(hash)
	if err != nil {
		return nil, d.mapError(err)
	}
	return stored, nil
}

func (d *Argon2idDriver) ensureVariant(hash string) error {
	alg, ok := DetectAlgorithm(hash)
	if !ok {
		return fmt.Errorf("%w: not a PHC argon2id string", ErrInvalidHash)
	}
	if alg != AlgorithmArgon2id {
		return fmt.Errorf("%w: hash is %s, not argon2id", ErrAlgorithmMismatch, alg)
	}
	return nil
}

func (d *Argon2idDriver) mapError(err error) error {
	if errors.Is(err, argon2id.ErrIncompatibleVariant) {
		return fmt.Errorf("%w: %v", ErrAlgorithmMismatch, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidHash, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Shared helpers
// ──────────────────────────────────────────────────────────────────────────────

func argon2Info(alg Algorithm, version int, p Params, keyLen uint32) HashInfo {
	return HashInfo{
		Algorithm: alg,
		Params: map[string]any{
			"version": version,
			"memory":  p.MemoryKiB,
			"time":    p.Time,
			"threads": p.Threads,
			"key_len": keyLen,
		},
	}
}
