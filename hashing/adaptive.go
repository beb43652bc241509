package hashing

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/text/unicode/norm"

	"github.com/hasbyte1/go-adaptive-hashing/memlimit"
)

// defaultSource is shared by every hasher built without [WithMemorySource],
// so its peak usage covers the whole process.
var defaultSource = memlimit.NewRuntimeSource()

// DefaultMemorySource returns the process-wide [memlimit.RuntimeSource] used
// when no source is configured.
func DefaultMemorySource() *memlimit.RuntimeSource { return defaultSource }

// MaxRehashAttempts bounds how many times [AdaptiveHasher.HashPassword]
// re-hashes a fresh hash that the primitive still reports as stale.
const MaxRehashAttempts = 5

// Option is a functional option for configuring an [AdaptiveHasher].
type Option func(*AdaptiveHasher)

// WithPrimitive sets the hashing backend.  Default: [NewDefaultRegistry].
// When p also implements [Capabilities] and [WithCapabilities] is not given,
// p decides which algorithms are available.
func WithPrimitive(p Primitive) Option {
	return func(h *AdaptiveHasher) { h.primitive = p }
}

// WithCapabilities overrides the set of algorithms [Select] may choose from.
func WithCapabilities(c Capabilities) Option {
	return func(h *AdaptiveHasher) { h.caps = c }
}

// WithMemorySource sets where the memory limit and usage are read from.
// Default: the process-wide source returned by [DefaultMemorySource].
func WithMemorySource(s memlimit.Source) Option {
	return func(h *AdaptiveHasher) { h.source = s }
}

// WithLogger sets the logger for debug output and warnings.
// Default: [log.Default].
func WithLogger(l *log.Logger) Option {
	return func(h *AdaptiveHasher) { h.logger = l }
}

// WithConcurrency bounds the number of hashes computed at once.  Each
// selection assumes it owns the whole memory budget, so servers hashing in
// parallel should keep n small.  n ≤ 0 means unbounded (the default).
func WithConcurrency(n int) Option {
	return func(h *AdaptiveHasher) {
		if n > 0 {
			h.slots = make(chan struct{}, n)
		} else {
			h.slots = nil
		}
	}
}

// WithNormalization applies the Unicode normalization form f to passwords
// before hashing and verifying, so that visually identical passwords typed on
// different platforms hash alike.  Hashes made with and without
// normalization are not interchangeable for non-ASCII passwords.
func WithNormalization(f norm.Form) Option {
	return func(h *AdaptiveHasher) {
		h.normalize = true
		h.form = f
	}
}

// AdaptiveHasher hashes passwords with cost parameters sized to the memory
// available at call time.
//
// Every call to [AdaptiveHasher.HashPassword] reads a fresh memory snapshot,
// runs [Select], and hands the result to the [Primitive].  No state is shared
// between calls, so an AdaptiveHasher is safe for concurrent use.
type AdaptiveHasher struct {
	cfg       CostConfig
	primitive Primitive
	caps      Capabilities
	source    memlimit.Source
	logger    *log.Logger
	slots     chan struct{}
	normalize bool
	form      norm.Form
}

// NewAdaptiveHasher validates cfg and builds an AdaptiveHasher.
func NewAdaptiveHasher(cfg CostConfig, opts ...Option) (*AdaptiveHasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &AdaptiveHasher{cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}

	if h.primitive == nil {
		r, err := NewDefaultRegistry()
		if err != nil {
			return nil, err
		}
		h.primitive = r
	}
	if h.caps == nil {
		if c, ok := h.primitive.(Capabilities); ok {
			h.caps = c
		} else {
			h.caps = NewAlgorithmSet(preference...)
		}
	}
	if h.source == nil {
		h.source = defaultSource
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	return h, nil
}

// Config returns the cost configuration.
func (h *AdaptiveHasher) Config() CostConfig { return h.cfg }

// Select reads the memory source and returns the parameters a hash made now
// would use.  It fails only when the memory limit is unparsable, with an
// error wrapping [ErrInvalidFormat].
func (h *AdaptiveHasher) Select() (Selection, error) {
	limit, err := memlimit.Resolve(h.source.MemoryLimit())
	if err != nil {
		return Selection{}, err
	}
	return Select(h.cfg, h.caps, limit, h.source.UsedMemory()), nil
}

// HashPassword hashes password with adaptively selected parameters.
//
// It returns [ErrEmptyPassword] for an empty password, an error wrapping
// [ErrInvalidFormat] when the memory limit is unparsable, and an error
// wrapping [ErrHashingFailed] when the primitive fails.  ctx only bounds the
// wait for a concurrency slot; a running hash is not interrupted.
//
// A freshly produced hash that the primitive reports as needing a rehash is
// re-hashed up to [MaxRehashAttempts] times; the last hash is returned either
// way.
func (h *AdaptiveHasher) HashPassword(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	// Snapshot only after acquiring, so it postdates the hash that held the slot.
	sel, err := h.Select()
	if err != nil {
		return "", err
	}

	pw := h.prepare(password)
	hash, err := h.primitive.Hash(pw, sel.Algorithm, sel.Params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashingFailed, err)
	}

	stale, err := h.primitive.NeedsRehash(hash, sel.Algorithm, sel.Params)
	for attempt := 0; err == nil && stale && attempt < MaxRehashAttempts; attempt++ {
		hash, err = h.primitive.Hash(pw, sel.Algorithm, sel.Params)
		if err == nil {
			stale, err = h.primitive.NeedsRehash(hash, sel.Algorithm, sel.Params)
		}
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashingFailed, err)
	}
	if stale {
		h.logger.Printf("hashing: %s hash still reports stale parameters after %d rehash attempts",
			sel.Algorithm, MaxRehashAttempts)
	}

	if h.cfg.Debug {
		h.logSelection(sel)
	}
	return hash, nil
}

// Verify reports whether password matches hash.
func (h *AdaptiveHasher) Verify(password, hash string) (bool, error) {
	return h.primitive.Verify(h.prepare(password), hash)
}

// NeedsRehash reports whether hash differs from what
// [AdaptiveHasher.HashPassword] would produce now.  Call it after a
// successful [AdaptiveHasher.Verify] and persist a new hash when it returns
// true.
//
// The answer depends on the memory situation at call time, like the
// selection itself.
func (h *AdaptiveHasher) NeedsRehash(hash string) (bool, error) {
	sel, err := h.Select()
	if err != nil {
		return false, err
	}
	return h.primitive.NeedsRehash(hash, sel.Algorithm, sel.Params)
}

func (h *AdaptiveHasher) prepare(password string) string {
	if !h.normalize {
		return password
	}
	return h.form.String(password)
}

func (h *AdaptiveHasher) acquire(ctx context.Context) error {
	if h.slots == nil {
		return ctx.Err()
	}
	select {
	case h.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *AdaptiveHasher) release() {
	if h.slots != nil {
		<-h.slots
	}
}

func (h *AdaptiveHasher) logSelection(sel Selection) {
	h.logger.Printf("hashing: memory limit=%s used=%s available=%s memory cost=%s algorithm=%s iterations=%d threads=%d",
		memlimit.Format(sel.MemoryLimit),
		memlimit.Format(sel.UsedMemory),
		memlimit.Format(sel.AvailableBytes),
		memlimit.FormatKiB(sel.MemoryKiB),
		sel.Algorithm,
		sel.Iterations,
		sel.Threads,
	)
}

// HashPassword hashes password with cfg, the default registry, and
// [DefaultMemorySource].  It is shorthand for [NewAdaptiveHasher]
// followed by [AdaptiveHasher.HashPassword].
func HashPassword(ctx context.Context, password string, cfg CostConfig) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	h, err := NewAdaptiveHasher(cfg)
	if err != nil {
		return "", err
	}
	return h.HashPassword(ctx, password)
}
