// Package alarms raises glucose alarms and tracks the active alarm
// lifecycle: sounding, snoozed, stopped.
package alarms

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"loopremote/internal/models"
)

// Alert type constants
const (
	AlertUrgentLow  = "urgent_low"
	AlertLow        = "low"
	AlertUrgentHigh = "urgent_high"
	AlertHigh       = "high"
)

// EventType distinguishes alarm lifecycle events
type EventType int

// Alarm lifecycle events published to subscribers (the button silencer)
const (
	EventStarted EventType = iota
	EventStopped
)

// Event is published when an alarm starts or stops sounding
type Event struct {
	Type      EventType
	AlertType string
	At        time.Time
}

// Manager handles glucose alarms and notifications
type Manager struct {
	settings      *models.Settings
	lastAlertTime map[string]time.Time
	snoozedUntil  map[string]time.Time
	active        string // Alert type currently sounding, "" when silent
	events        chan Event
	notify        func(title, message string) error
	now           func() time.Time
	mu            sync.Mutex
}

// NewManager creates a new alarm manager
func NewManager(settings *models.Settings) *Manager {
	return &Manager{
		settings:      settings,
		lastAlertTime: make(map[string]time.Time),
		snoozedUntil:  make(map[string]time.Time),
		events:        make(chan Event, 8),
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		now: time.Now,
	}
}

// Events returns the alarm lifecycle event channel
func (m *Manager) Events() <-chan Event {
	return m.events
}

// UpdateSettings updates the settings reference
func (m *Manager) UpdateSettings(settings *models.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
}

// CheckAndNotify checks glucose value and raises or resolves an alarm
func (m *Manager) CheckAndNotify(status *models.GlucoseStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alertType := m.shouldAlert(status)

	// Condition cleared: stop the sounding alarm
	if alertType == "" {
		if m.active != "" {
			m.stopLocked()
		}
		return nil
	}

	// Snoozed alarms stay quiet until the snooze expires
	if until, ok := m.snoozedUntil[alertType]; ok {
		if m.now().Before(until) {
			return nil
		}
		delete(m.snoozedUntil, alertType)
	}

	// Check if we should repeat the alert
	if lastTime, ok := m.lastAlertTime[alertType]; ok {
		if m.settings.RepeatAlertMinutes > 0 {
			repeatDuration := time.Duration(m.settings.RepeatAlertMinutes) * time.Minute
			if m.now().Sub(lastTime) < repeatDuration {
				return nil
			}
		} else {
			// No repeat, only alert once per status change
			return nil
		}
	}

	title, message := m.formatNotification(status, alertType)
	if err := m.notify(title, message); err != nil {
		return err
	}

	m.lastAlertTime[alertType] = m.now()
	if m.active == "" {
		m.active = alertType
		m.emit(Event{Type: EventStarted, AlertType: alertType, At: m.now()})
	} else {
		m.active = alertType
	}
	return nil
}

// shouldAlert determines if an alert should be sounding
func (m *Manager) shouldAlert(status *models.GlucoseStatus) string {
	switch status.Status {
	case AlertUrgentLow:
		if m.settings.EnableUrgentLowAlert {
			return AlertUrgentLow
		}
	case AlertLow:
		if m.settings.EnableLowAlert {
			return AlertLow
		}
	case AlertUrgentHigh:
		if m.settings.EnableUrgentHighAlert {
			return AlertUrgentHigh
		}
	case AlertHigh:
		if m.settings.EnableHighAlert {
			return AlertHigh
		}
	}
	return ""
}

// formatNotification creates the notification title and message
func (m *Manager) formatNotification(status *models.GlucoseStatus, alertType string) (string, string) {
	var title, message string
	var valueStr string

	if m.settings.Unit == "mmol/L" {
		valueStr = fmt.Sprintf("%.1f mmol/L", status.ValueMmol)
	} else {
		valueStr = fmt.Sprintf("%d mg/dL", status.Value)
	}

	switch alertType {
	case AlertUrgentLow:
		title = "⚠️ URGENT LOW GLUCOSE"
		message = fmt.Sprintf("Glucose is critically low: %s %s", valueStr, status.Trend)
	case AlertLow:
		title = "⬇️ Low Glucose"
		message = fmt.Sprintf("Glucose is low: %s %s", valueStr, status.Trend)
	case AlertUrgentHigh:
		title = "⚠️ URGENT HIGH GLUCOSE"
		message = fmt.Sprintf("Glucose is critically high: %s %s", valueStr, status.Trend)
	case AlertHigh:
		title = "⬆️ High Glucose"
		message = fmt.Sprintf("Glucose is high: %s %s", valueStr, status.Trend)
	}

	return title, message
}

// Active returns the alert type currently sounding, or ""
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Stop silences the active alarm without snoozing it; it will fire
// again on the next repeat interval if the condition persists
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != "" {
		m.stopLocked()
	}
}

// SnoozeActive stops the active alarm and suppresses that alert type
// for the configured snooze window. Returns the snoozed alert type.
func (m *Manager) SnoozeActive() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == "" {
		return ""
	}

	minutes := m.settings.SnoozeMinutes
	if minutes <= 0 {
		minutes = 30
	}
	alertType := m.active
	m.snoozedUntil[alertType] = m.now().Add(time.Duration(minutes) * time.Minute)
	m.stopLocked()
	return alertType
}

func (m *Manager) stopLocked() {
	alertType := m.active
	m.active = ""
	m.emit(Event{Type: EventStopped, AlertType: alertType, At: m.now()})
}

// emit publishes without blocking; a slow subscriber drops events
// rather than stalling the alarm path
func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}

// ClearAlertState clears the alert state for a specific type or all types
func (m *Manager) ClearAlertState(alertType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alertType == "" {
		m.lastAlertTime = make(map[string]time.Time)
		m.snoozedUntil = make(map[string]time.Time)
	} else {
		delete(m.lastAlertTime, alertType)
		delete(m.snoozedUntil, alertType)
	}
}

// SendTestNotification sends a test notification
func (m *Manager) SendTestNotification() error {
	return m.notify("Loop Remote", "Test notification - alarms are working!")
}
