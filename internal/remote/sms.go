package remote

import (
	"fmt"
	"regexp"
	"time"

	"loopremote/internal/models"
	"loopremote/internal/otp"
)

// MessageComposer is the on-device messaging surface. Compose opens an
// interactive, user-confirmed send or fails if the surface is
// unavailable. There is no delivery receipt.
type MessageComposer interface {
	Compose(recipient, body string) error
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// SMSDispatcher relays commands as plain-text messages. The protocol
// is inherently two-phase: Send composes the command string (phase 1),
// and SendOTP — triggered explicitly by the user after confirming
// phase 1 went out — composes the current one-time code (phase 2).
// Successful dispatch only means the messaging surface was reachable,
// not that the receiving device executed the command.
type SMSDispatcher struct {
	settings *models.Settings
	limiter  *BolusLimiter
	composer MessageComposer
	now      func() time.Time
}

// NewSMSDispatcher creates an SMS dispatcher using the given composer
func NewSMSDispatcher(settings *models.Settings, limiter *BolusLimiter, composer MessageComposer) *SMSDispatcher {
	return &SMSDispatcher{
		settings: settings,
		limiter:  limiter,
		composer: composer,
		now:      time.Now,
	}
}

// Send is phase 1: compose the command string to the caregiver number
func (d *SMSDispatcher) Send(cmd models.Command) (Outcome, error) {
	s := d.settings.Clone()
	if s.PhoneNumber == "" || s.OTPSeedURL == "" {
		return Outcome{}, ErrInvalidConfiguration
	}
	if !phonePattern.MatchString(s.PhoneNumber) {
		return Outcome{}, ErrInvalidPhoneNumber
	}

	if err := d.limiter.Check(cmd); err != nil {
		return Outcome{}, err
	}

	wire, err := BuildWireString(cmd)
	if err != nil {
		return Outcome{}, fmt.Errorf("encoding command: %w", err)
	}

	if err := d.composer.Compose(s.PhoneNumber, wire); err != nil {
		return Outcome{}, fmt.Errorf("%w: messaging surface unavailable: %v", ErrNetwork, err)
	}

	if err := d.limiter.Commit(cmd); err != nil {
		fmt.Printf("Error persisting bolus rate-limit clock: %v\n", err)
	}

	return Outcome{
		Transport:   models.TransportSMS,
		Description: wire,
		SentAt:      d.now(),
	}, nil
}

// SendOTP is phase 2: derive the current one-time code from the stored
// seed URL and compose it as a second message. The code is recomputed
// at the moment of use, never cached, since it is time-windowed.
func (d *SMSDispatcher) SendOTP() (Outcome, error) {
	s := d.settings.Clone()
	if s.PhoneNumber == "" || s.OTPSeedURL == "" {
		return Outcome{}, ErrInvalidConfiguration
	}
	if !phonePattern.MatchString(s.PhoneNumber) {
		return Outcome{}, ErrInvalidPhoneNumber
	}

	seed, err := otp.ParseSeedURL(s.OTPSeedURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidOTP, err)
	}

	code, err := seed.CodeAt(d.now())
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidOTP, err)
	}

	if err := d.composer.Compose(s.PhoneNumber, code); err != nil {
		return Outcome{}, fmt.Errorf("%w: messaging surface unavailable: %v", ErrNetwork, err)
	}

	return Outcome{
		Transport:   models.TransportSMS,
		Description: "one-time code",
		SentAt:      d.now(),
	}, nil
}
