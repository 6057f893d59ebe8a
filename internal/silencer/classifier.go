// Package silencer infers volume-button presses from the system output
// volume while an alarm is sounding, and snoozes the alarm on a press.
// The platform exposes no button event, only the absolute volume level,
// so intent is inferred from the shape of the change sequence.
package silencer

import (
	"math"
	"time"
)

// Classification thresholds. These values are empirically tuned;
// changing them changes what counts as a press.
const (
	pressThreshold = 0.02                   // Minimum delta to consider at all
	maxPressDelta  = 0.15                   // Larger deltas imply a slider drag
	pressCooldown  = 500 * time.Millisecond // Ignore changes after an accepted press
	sampleWindow   = 300 * time.Millisecond // Trailing window for discreteness check
	maxWindow      = 3                      // Window must hold fewer samples than this
	minChangeGap   = 100 * time.Millisecond // Minimum interval between presses
	jitterGap      = 50 * time.Millisecond  // Sub-gap among recent samples = slider jitter
	maxSamples     = 5                      // Bound on retained samples and deltas
)

// VolumeSample is one observed (volume, timestamp) pair
type VolumeSample struct {
	Value float64
	At    time.Time
}

// Classifier carries the transient state for a single alarm episode.
// It is discarded when the alarm stops; no state survives across
// episodes.
type Classifier struct {
	lastVolume    float64
	baselineTaken bool // First reading after alarm start consumed
	lastPress     time.Time
	samples       []VolumeSample  // Recent recorded samples, newest last
	deltas        []time.Duration // Inter-change intervals, last 5
}

// NewClassifier creates a classifier for a fresh alarm episode
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Observe feeds one volume reading and reports whether it represents a
// deliberate button press. The very first reading only establishes the
// baseline: it absorbs the OS volume-ducking shift that follows alarm
// start and is never classified.
func (c *Classifier) Observe(value float64, now time.Time) bool {
	if !c.baselineTaken {
		c.baselineTaken = true
		c.lastVolume = value
		c.record(VolumeSample{Value: value, At: now}, false)
		return false
	}

	diff := math.Abs(value - c.lastVolume)
	c.lastVolume = value

	if diff <= pressThreshold {
		return false
	}

	// Every qualifying change is recorded, accepted or not: rejected
	// changes still shape the discreteness checks for later ones.
	c.record(VolumeSample{Value: value, At: now}, true)

	if !c.lastPress.IsZero() && now.Sub(c.lastPress) < pressCooldown {
		return false
	}

	if !c.classify(diff, now) {
		return false
	}

	c.lastPress = now
	return true
}

// classify applies the press predicate; all checks must hold
func (c *Classifier) classify(diff float64, now time.Time) bool {
	// A single press moves the volume a small, bounded step
	if diff < pressThreshold || diff > maxPressDelta {
		return false
	}

	// Discrete event, not a continuous adjustment
	if c.windowCount(now) >= maxWindow {
		return false
	}

	// Presses are spaced out; rapid successive changes are a drag
	if len(c.deltas) > 0 && c.deltas[len(c.deltas)-1] < minChangeGap {
		return false
	}

	// Sub-50ms gaps among the last few samples are slider jitter
	recent := c.samples
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].At.Sub(recent[i-1].At) < jitterGap {
			return false
		}
	}

	return true
}

// record appends a sample, tracking the inter-change interval for
// qualifying changes, and bounds both histories
func (c *Classifier) record(s VolumeSample, isChange bool) {
	if isChange && len(c.samples) > 0 {
		c.deltas = append(c.deltas, s.At.Sub(c.samples[len(c.samples)-1].At))
		if len(c.deltas) > maxSamples {
			c.deltas = c.deltas[1:]
		}
	}

	c.samples = append(c.samples, s)
	if len(c.samples) > maxSamples {
		c.samples = c.samples[1:]
	}
}

// windowCount counts samples strictly inside the trailing window
func (c *Classifier) windowCount(now time.Time) int {
	count := 0
	for _, s := range c.samples {
		if now.Sub(s.At) < sampleWindow {
			count++
		}
	}
	return count
}
