package remote

import (
	"errors"
	"testing"
	"time"

	"loopremote/internal/models"
)

type fakePoster struct {
	treatments []models.Treatment
	err        error
}

func (f *fakePoster) PostTreatment(t models.Treatment) error {
	if f.err != nil {
		return f.err
	}
	f.treatments = append(f.treatments, t)
	return nil
}

func cloudSettings() *models.Settings {
	settings := models.DefaultSettings()
	settings.RemoteTransport = models.TransportCloud
	settings.NightscoutURL = "https://ns.example.com"
	return settings
}

func newCloudDispatcher(settings *models.Settings, poster TreatmentPoster) *CloudDispatcher {
	return NewCloudDispatcher(settings, newTestLimiter(settings, time.Now()), poster)
}

func TestCloudDispatcher_TreatmentMapping(t *testing.T) {
	tests := []struct {
		name      string
		cmd       models.Command
		eventType string
		check     func(t *testing.T, tr models.Treatment)
	}{
		{"Bolus", models.NewBolus(2.5, false), "Correction Bolus", func(t *testing.T, tr models.Treatment) {
			if tr.Insulin != 2.5 {
				t.Errorf("Insulin = %f, want 2.5", tr.Insulin)
			}
		}},
		{"Meal bolus", models.NewBolus(1.5, true), "Meal Bolus", nil},
		{"Carbs", models.NewCarbs(30, "14:30"), "Carb Correction", func(t *testing.T, tr models.Treatment) {
			if tr.Carbs != 30 {
				t.Errorf("Carbs = %f, want 30", tr.Carbs)
			}
			if tr.Notes != "consumed 14:30" {
				t.Errorf("Notes = %q", tr.Notes)
			}
		}},
		{"Target", models.NewTarget(models.TargetHypo), "Temporary Target", func(t *testing.T, tr models.Treatment) {
			if tr.Duration == 0 {
				t.Error("Active override should carry a duration")
			}
		}},
		{"Target stop", models.NewTarget(models.TargetStop), "Temporary Target", func(t *testing.T, tr models.Treatment) {
			if tr.Duration != 0 {
				t.Error("STOP cancels the override with zero duration")
			}
		}},
		{"Loop start as announcement", models.NewLoop(models.LoopStart), "Announcement", func(t *testing.T, tr models.Treatment) {
			if tr.Notes != "LOOP START" {
				t.Errorf("Notes = %q, want LOOP START", tr.Notes)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{}
			dispatcher := newCloudDispatcher(cloudSettings(), poster)

			if _, err := dispatcher.Send(tt.cmd); err != nil {
				t.Fatalf("Send() error: %v", err)
			}
			if len(poster.treatments) != 1 {
				t.Fatalf("Posted %d treatments, want 1", len(poster.treatments))
			}
			tr := poster.treatments[0]
			if tr.EventType != tt.eventType {
				t.Errorf("EventType = %q, want %q", tr.EventType, tt.eventType)
			}
			if tr.EnteredBy != "loopremote" {
				t.Errorf("EnteredBy = %q", tr.EnteredBy)
			}
			if tt.check != nil {
				tt.check(t, tr)
			}
		})
	}
}

func TestCloudDispatcher_MissingConfiguration(t *testing.T) {
	settings := models.DefaultSettings() // No Nightscout URL
	dispatcher := newCloudDispatcher(settings, &fakePoster{})

	if _, err := dispatcher.Send(models.NewCarbs(30, "")); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Send() error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestCloudDispatcher_PostFailureDoesNotCommit(t *testing.T) {
	settings := cloudSettings()
	poster := &fakePoster{err: errors.New("upload failed")}
	dispatcher := newCloudDispatcher(settings, poster)

	if _, err := dispatcher.Send(models.NewBolus(1, false)); err == nil {
		t.Fatal("Send() should surface the post failure")
	}
	if !settings.LastBolusTime().IsZero() {
		t.Error("Failed upload must not advance the rate-limit clock")
	}
}
