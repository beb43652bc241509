// Package memlimit turns human-readable memory limits into byte counts and
// reports how much memory the current process may still use.
//
// # Limit format
//
// A limit is either a plain decimal byte count or a decimal number followed by
// exactly one unit letter:
//
//	"134217728" → 134217728
//	"512K"      → 512 × 1024
//	"128M"      → 128 × 1024²
//	"2g"        → 2 × 1024³
//
// Units are case-insensitive and must follow the digits without a space.
// Anything else (signs, decimals, multi-letter units) is rejected with
// [ErrInvalidFormat].
//
// The runtime reports an unlimited process as [Unlimited] ("-1").  [Parse]
// rejects that value like any other signed number; use [Resolve], which
// substitutes [UnlimitedCeiling] first.
//
// # Sources
//
// A [Source] supplies the limit and the current usage.  [RuntimeSource] reads
// them from the Go runtime; [StaticSource] returns fixed values and is what
// tests and command-line overrides use.
package memlimit
