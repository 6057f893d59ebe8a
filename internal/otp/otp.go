// Package otp derives one-time codes from a scanned setup URL
package otp

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Seed is a parsed time-based code seed from an otpauth:// setup URL.
// Codes are time-windowed, so they must be derived at the moment of
// use and never cached.
type Seed struct {
	key *otp.Key
}

// ParseSeedURL parses a previously-scanned otpauth:// setup URL.
// A parse failure is a configuration error, not a transient one: the
// user has to re-scan the setup QR code.
func ParseSeedURL(rawURL string) (*Seed, error) {
	key, err := otp.NewKeyFromURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing OTP seed URL: %w", err)
	}
	if key.Type() != "totp" {
		return nil, fmt.Errorf("OTP seed URL has type %q, want totp", key.Type())
	}
	if key.Secret() == "" {
		return nil, fmt.Errorf("OTP seed URL has no secret")
	}
	return &Seed{key: key}, nil
}

// CodeAt derives the one-time code for the given instant
func (s *Seed) CodeAt(t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(s.key.Secret(), t, totp.ValidateOpts{
		Period:    uint(s.key.Period()),
		Digits:    s.key.Digits(),
		Algorithm: s.key.Algorithm(),
	})
	if err != nil {
		return "", fmt.Errorf("deriving one-time code: %w", err)
	}
	return code, nil
}

// CurrentCode derives the code for the current time window
func (s *Seed) CurrentCode() (string, error) {
	return s.CodeAt(time.Now())
}
