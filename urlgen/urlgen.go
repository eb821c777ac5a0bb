// Package urlgen generates short link identifiers.
package urlgen

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// charset defines the base-62 alphabet. Its order is significant: digits, upper case, lower case.
const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const base = uint64(len(charset))

// DefaultLength is the default length of a generated id.
const DefaultLength = 6

// MaxLength is the number of base-62 digits needed for the largest uint64.
const MaxLength = 11

// SeedLength is the number of base-62 digits in a seed. Unix millis plus the
// random offset stay below 62^7 until the year 2081.
const SeedLength = 7

// randomSpan is the exclusive upper bound of the random offset added to the clock.
const randomSpan = 1_000_000

var (
	ErrEmptyInput   = errors.New("empty base62 input")
	ErrInvalidDigit = errors.New("invalid base62 digit")
	ErrOverflow     = errors.New("base62 value overflows uint64")
)

// EncodeBase62 returns the base-62 representation of n. Zero encodes as "0".
func EncodeBase62(n uint64) string {
	if n == 0 {
		return charset[:1]
	}

	var buf [MaxLength]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = charset[n%base]
		n /= base
	}
	return string(buf[i:])
}

// DecodeBase62 parses a base-62 string produced by EncodeBase62.
func DecodeBase62(s string) (uint64, error) {
	if s == "" {
		return 0, ErrEmptyInput
	}

	var n uint64
	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(charset, s[i])
		if digit < 0 {
			return 0, ErrInvalidDigit
		}
		if n > (math.MaxUint64-uint64(digit))/base {
			return 0, ErrOverflow
		}
		n = n*base + uint64(digit)
	}
	return n, nil
}

// Generator produces candidate short link ids.
type Generator interface {
	Generate(length int) string
}

// SeedGenerator derives ids from the wall clock plus a random offset.
// It holds no mutable state and is safe for concurrent use.
type SeedGenerator struct {
	now   func() time.Time
	randn func(n int64) int64
}

// Option configures a SeedGenerator.
type Option func(*SeedGenerator)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(g *SeedGenerator) { g.now = now }
}

// WithRandom replaces the random source. randn must return a value in [0, n).
func WithRandom(randn func(n int64) int64) Option {
	return func(g *SeedGenerator) { g.randn = randn }
}

// New returns a SeedGenerator using the system clock and math/rand/v2.
func New(opts ...Option) *SeedGenerator {
	g := &SeedGenerator{
		now:   time.Now,
		randn: rand.Int64N,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate encodes unix millis plus a random offset in [0, 999999] and keeps the
// last length digits, which are the fastest changing ones. Shorter encodings are
// returned whole.
func (g *SeedGenerator) Generate(length int) string {
	if length < 1 {
		length = DefaultLength
	}

	combined := g.now().UnixMilli() + g.randn(randomSpan)
	encoded := EncodeBase62(uint64(combined))
	if len(encoded) > length {
		return encoded[len(encoded)-length:]
	}
	return encoded
}
