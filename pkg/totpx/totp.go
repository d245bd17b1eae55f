// Package totpx implements RFC 6238 time-based one-time passwords on top of
// github.com/pquerna/otp, adding strict secret normalization and a cheap
// reject path for malformed candidate codes.
package totpx

import (
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrInvalidSecret reports a secret containing characters outside the base32
// alphabet (A-Z, 2-7).
var ErrInvalidSecret = errors.New("totpx: invalid base32 secret")

// Defaults per RFC 6238 and the common authenticator apps.
const (
	DefaultPeriodSeconds = 30
	DefaultDigits        = 6
	DefaultWindow        = 1 // steps of tolerance in each direction
)

// Options tunes code generation and verification. The zero value means
// "use defaults"; Window is only meaningful for VerifyAt.
type Options struct {
	PeriodSeconds uint
	Digits        int
	Window        uint
}

func (o Options) withDefaults() Options {
	if o.PeriodSeconds == 0 {
		o.PeriodSeconds = DefaultPeriodSeconds
	}
	if o.Digits == 0 {
		o.Digits = DefaultDigits
	}
	return o
}

// NormalizeSecret uppercases the secret, strips padding, and rejects any
// character outside the 32-symbol alphabet. Secrets are case-insensitive at
// every entry point because authenticator apps disagree on presentation.
func NormalizeSecret(secret string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(secret))
	s = strings.TrimRight(s, "=")
	if s == "" {
		return "", ErrInvalidSecret
	}
	for _, c := range s {
		if (c < 'A' || c > 'Z') && (c < '2' || c > '7') {
			return "", ErrInvalidSecret
		}
	}
	return s, nil
}

// GenerateAt derives the code for the time bucket containing at. The same
// secret and bucket always produce the same code.
func GenerateAt(secret string, at time.Time, opts Options) (string, error) {
	opts = opts.withDefaults()
	normalized, err := NormalizeSecret(secret)
	if err != nil {
		return "", err
	}
	code, err := totp.GenerateCodeCustom(normalized, at, totp.ValidateOpts{
		Period:    opts.PeriodSeconds,
		Digits:    otp.Digits(opts.Digits),
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// VerifyAt reports whether code matches the secret at any step offset within
// the window around at. Candidates that are not exactly Digits numeric
// characters are rejected before any HMAC is computed.
func VerifyAt(secret, code string, at time.Time, opts Options) (bool, error) {
	opts = opts.withDefaults()
	if !plausibleCode(code, opts.Digits) {
		return false, nil
	}
	normalized, err := NormalizeSecret(secret)
	if err != nil {
		return false, err
	}

	window := opts.Window
	if window == 0 {
		window = DefaultWindow
	}

	ok, err := totp.ValidateCustom(code, normalized, at, totp.ValidateOpts{
		Period:    opts.PeriodSeconds,
		Skew:      window,
		Digits:    otp.Digits(opts.Digits),
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func plausibleCode(code string, digits int) bool {
	if len(code) != digits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
