package memlimit

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned when a memory limit is neither a plain byte
// count nor a number followed by one of the K, M or G units.
var ErrInvalidFormat = errors.New("memlimit: invalid memory limit format")

const (
	// Unlimited is the limit value a runtime reports when the process has no
	// memory ceiling.
	Unlimited = "-1"

	// UnlimitedCeiling is the limit substituted for [Unlimited] by [Resolve].
	// An unbounded budget cannot size anything, so 2 GiB stands in for it.
	UnlimitedCeiling = "2G"
)

const (
	kib uint64 = 1 << 10
	mib uint64 = 1 << 20
	gib uint64 = 1 << 30
)

var unitPattern = regexp.MustCompile(`^(\d+)([KMGkmg])$`)

// Parse converts a memory limit string into a byte count.
//
// Surrounding whitespace is ignored.  A value that overflows uint64 once its
// unit is applied is reported as [ErrInvalidFormat].
func Parse(raw string) (uint64, error) {
	val := strings.TrimSpace(raw)

	if isDigits(val) {
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidFormat, val, err)
		}
		return n, nil
	}

	m := unitPattern.FindStringSubmatch(val)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, val)
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidFormat, val, err)
	}

	var unit uint64
	switch m[2] {
	case "k", "K":
		unit = kib
	case "m", "M":
		unit = mib
	case "g", "G":
		unit = gib
	}
	hi, lo := bits.Mul64(n, unit)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %q overflows a 64-bit byte count", ErrInvalidFormat, val)
	}
	return lo, nil
}

// Resolve parses raw after replacing [Unlimited] with [UnlimitedCeiling].
func Resolve(raw string) (uint64, error) {
	val := strings.TrimSpace(raw)
	if val == Unlimited {
		val = UnlimitedCeiling
	}
	return Parse(val)
}

// Format renders n using the largest unit that divides it exactly, falling
// back to a plain byte count.  Format(0) is "0".
func Format(n uint64) string {
	switch {
	case n == 0:
		return "0"
	case n%gib == 0:
		return strconv.FormatUint(n/gib, 10) + "G"
	case n%mib == 0:
		return strconv.FormatUint(n/mib, 10) + "M"
	case n%kib == 0:
		return strconv.FormatUint(n/kib, 10) + "K"
	default:
		return strconv.FormatUint(n, 10)
	}
}

// FormatKiB is Format for a KiB count, saturating at the largest
// representable byte count.
func FormatKiB(n uint64) string {
	if n > math.MaxUint64/kib {
		return strconv.FormatUint(math.MaxUint64, 10)
	}
	return Format(n * kib)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
