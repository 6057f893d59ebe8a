package remote

import (
	"fmt"
	"time"

	"loopremote/internal/models"
)

// TreatmentPoster uploads a care-portal treatment. Implemented by the
// Nightscout client.
type TreatmentPoster interface {
	PostTreatment(t models.Treatment) error
}

// CloudDispatcher relays commands through the cloud sync channel by
// posting them as care-portal treatments; the therapy device picks
// them up on its next sync.
type CloudDispatcher struct {
	settings *models.Settings
	limiter  *BolusLimiter
	poster   TreatmentPoster
	now      func() time.Time
}

// NewCloudDispatcher creates a cloud-sync dispatcher
func NewCloudDispatcher(settings *models.Settings, limiter *BolusLimiter, poster TreatmentPoster) *CloudDispatcher {
	return &CloudDispatcher{
		settings: settings,
		limiter:  limiter,
		poster:   poster,
		now:      time.Now,
	}
}

// Send validates the command, converts it to a treatment and uploads it
func (d *CloudDispatcher) Send(cmd models.Command) (Outcome, error) {
	s := d.settings.Clone()
	if s.NightscoutURL == "" {
		return Outcome{}, ErrInvalidConfiguration
	}

	if err := d.limiter.Check(cmd); err != nil {
		return Outcome{}, err
	}

	wire, err := BuildWireString(cmd)
	if err != nil {
		return Outcome{}, fmt.Errorf("encoding command: %w", err)
	}

	treatment := d.toTreatment(cmd, wire)
	if err := d.poster.PostTreatment(treatment); err != nil {
		return Outcome{}, err
	}

	if err := d.limiter.Commit(cmd); err != nil {
		fmt.Printf("Error persisting bolus rate-limit clock: %v\n", err)
	}

	return Outcome{
		Transport:   models.TransportCloud,
		Description: wire,
		SentAt:      d.now(),
	}, nil
}

// toTreatment maps a command onto the care-portal treatment vocabulary
func (d *CloudDispatcher) toTreatment(cmd models.Command, wire string) models.Treatment {
	treatment := models.Treatment{
		CreatedAt: d.now().UTC().Format(time.RFC3339),
		EnteredBy: "loopremote",
	}

	switch cmd.Kind {
	case models.CommandBolus:
		treatment.EventType = "Correction Bolus"
		if cmd.Meal {
			treatment.EventType = "Meal Bolus"
		}
		treatment.Insulin = cmd.Amount
	case models.CommandCarbs:
		treatment.EventType = "Carb Correction"
		treatment.Carbs = cmd.Amount
		if cmd.ConsumedTime != "" {
			treatment.Notes = "consumed " + cmd.ConsumedTime
		}
	case models.CommandTarget:
		treatment.EventType = "Temporary Target"
		treatment.Reason = cmd.Action
		// STOP cancels the override: zero duration
		if cmd.Action != models.TargetStop {
			treatment.Duration = 60
		}
	default:
		// Control commands travel as announcements the device reads back
		treatment.EventType = "Announcement"
		treatment.Notes = wire
	}

	return treatment
}
