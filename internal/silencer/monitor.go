package silencer

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"loopremote/internal/alarms"
)

// Poll cadence and arming delay
const (
	pollInterval    = 100 * time.Millisecond
	activationDelay = 900 * time.Millisecond // Wait out OS ducking after alarm start
)

// VolumeSource exposes the current system output volume in [0.0, 1.0]
type VolumeSource interface {
	Volume() (float64, error)
}

// Snoozer silences and snoozes the currently active alarm
type Snoozer interface {
	SnoozeActive() string
}

// State of the monitor
type State int

// Monitor states
const (
	StateIdle       State = iota // No alarm sounding
	StateArmed                   // Alarm started, waiting out the activation delay
	StateMonitoring              // Polling and classifying
)

// Monitor drives the press classifier from a periodic volume poll,
// armed and torn down by alarm lifecycle events. Stopping the alarm
// clears all transient sample history: no classifier state survives
// across alarm episodes.
type Monitor struct {
	source  VolumeSource
	snoozer Snoozer
	events  <-chan alarms.Event
	haptic  func()

	state      State
	armedAt    time.Time
	classifier *Classifier
}

// NewMonitor creates a monitor consuming the given alarm event stream
func NewMonitor(source VolumeSource, snoozer Snoozer, events <-chan alarms.Event) *Monitor {
	return &Monitor{
		source:  source,
		snoozer: snoozer,
		events:  events,
		haptic: func() {
			// Audible tick doubles as press confirmation on desktop
			if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
				fmt.Printf("Haptic confirmation failed: %v\n", err)
			}
		},
	}
}

// Run processes alarm events and volume polls until stop is closed.
// Intended to run on its own goroutine.
func (m *Monitor) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case e, ok := <-m.events:
			if !ok {
				return
			}
			m.handleEvent(e)
		case <-ticker.C:
			m.poll(time.Now())
		}
	}
}

// State returns the current monitor state
func (m *Monitor) State() State {
	return m.state
}

// handleEvent arms the monitor on alarm start and tears it down on stop
func (m *Monitor) handleEvent(e alarms.Event) {
	switch e.Type {
	case alarms.EventStarted:
		m.state = StateArmed
		m.armedAt = e.At
		m.classifier = NewClassifier()
	case alarms.EventStopped:
		m.state = StateIdle
		m.classifier = nil
	}
}

// poll takes one volume reading and acts on an accepted press
func (m *Monitor) poll(now time.Time) {
	switch m.state {
	case StateIdle:
		return
	case StateArmed:
		if now.Sub(m.armedAt) < activationDelay {
			return
		}
		m.state = StateMonitoring
	case StateMonitoring:
	}

	value, err := m.source.Volume()
	if err != nil {
		return
	}

	if m.classifier.Observe(value, now) {
		alertType := m.snoozer.SnoozeActive()
		fmt.Printf("Volume button press detected, snoozing %s alarm\n", alertType)
		m.haptic()
	}
}
