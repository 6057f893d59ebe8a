package remote

import (
	"time"

	"loopremote/internal/models"
)

// Outcome describes a committed dispatch attempt. For SMS it only
// means the messaging surface was reachable, never that the receiving
// device executed the command.
type Outcome struct {
	Transport   string    `json:"transport"`
	Description string    `json:"description"` // Human-readable command text
	SentAt      time.Time `json:"sentAt"`
}

// Dispatcher delivers a validated command through one transport.
// There is no cancellation: once a transport call starts, the caller
// waits for completion or failure.
type Dispatcher interface {
	Send(cmd models.Command) (Outcome, error)
}

// BolusLimiter enforces the local cooldown between boluses. The check
// is a hard precondition evaluated before any transport activity; the
// clock only advances after a dispatcher has committed to sending
// (at-most-once accounting).
type BolusLimiter struct {
	settings *models.Settings
	save     func() error
	now      func() time.Time
}

// NewBolusLimiter creates a limiter. save persists the advanced clock;
// nil falls back to saving through the default settings location.
func NewBolusLimiter(settings *models.Settings, save func() error) *BolusLimiter {
	if save == nil {
		save = settings.Save
	}
	return &BolusLimiter{
		settings: settings,
		save:     save,
		now:      time.Now,
	}
}

// Check returns ErrBolusTooSoon if the command is a bolus inside the
// configured cooldown window. Non-bolus commands always pass.
func (l *BolusLimiter) Check(cmd models.Command) error {
	if cmd.Kind != models.CommandBolus {
		return nil
	}

	last := l.settings.LastBolusTime()
	if last.IsZero() {
		return nil
	}

	if l.now().Sub(last) < l.settings.MinBolusDelay() {
		return ErrBolusTooSoon
	}
	return nil
}

// Commit advances and persists the rate-limit clock for a bolus that
// was actually handed to the transport. A failed send must never reach
// this point.
func (l *BolusLimiter) Commit(cmd models.Command) error {
	if cmd.Kind != models.CommandBolus {
		return nil
	}

	l.settings.SetLastBolusTime(l.now())
	return l.save()
}
