package silencer

import (
	"testing"
	"time"
)

func TestClassifier_SinglePress(t *testing.T) {
	// Sequence from a physical button press: stable volume, then one
	// discrete step, samples 150ms apart
	c := NewClassifier()
	base := time.Now()

	if c.Observe(0.50, base) {
		t.Error("Baseline reading must never classify as a press")
	}
	if c.Observe(0.50, base.Add(150*time.Millisecond)) {
		t.Error("Unchanged volume must not classify as a press")
	}
	if !c.Observe(0.53, base.Add(300*time.Millisecond)) {
		t.Error("Discrete 0.03 step after 150ms gaps should classify as a press")
	}
}

func TestClassifier_SliderDragRejected(t *testing.T) {
	// 6 samples 20ms apart spanning a 0.20 total change: continuous
	// adjustment, not a press
	c := NewClassifier()
	base := time.Now()

	values := []float64{0.40, 0.44, 0.48, 0.52, 0.56, 0.60}
	for i, v := range values {
		at := base.Add(time.Duration(i) * 20 * time.Millisecond)
		if c.Observe(v, at) {
			t.Fatalf("Sample %d (%.2f) classified as press during slider drag", i, v)
		}
	}
}

func TestClassifier_LargeJumpRejected(t *testing.T) {
	c := NewClassifier()
	base := time.Now()

	c.Observe(0.20, base)
	if c.Observe(0.60, base.Add(200*time.Millisecond)) {
		t.Error("0.40 jump exceeds the single-press delta and must be rejected")
	}
}

func TestClassifier_TinyDriftIgnored(t *testing.T) {
	c := NewClassifier()
	base := time.Now()

	c.Observe(0.50, base)
	if c.Observe(0.51, base.Add(200*time.Millisecond)) {
		t.Error("0.01 drift is below the press threshold")
	}
}

func TestClassifier_CooldownAfterPress(t *testing.T) {
	c := NewClassifier()
	base := time.Now()

	c.Observe(0.50, base)
	if !c.Observe(0.53, base.Add(200*time.Millisecond)) {
		t.Fatal("First press should be accepted")
	}

	// A second change 200ms later falls inside the 500ms cooldown
	if c.Observe(0.56, base.Add(400*time.Millisecond)) {
		t.Error("Change inside the press cooldown must be ignored")
	}

	// Well past the cooldown a fresh press is accepted again
	if !c.Observe(0.59, base.Add(1200*time.Millisecond)) {
		t.Error("Press after the cooldown should be accepted")
	}
}

func TestClassifier_RapidIntervalRejected(t *testing.T) {
	c := NewClassifier()
	base := time.Now()

	c.Observe(0.50, base)
	c.Observe(0.53, base.Add(600*time.Millisecond)) // Accepted press
	// 80ms later: below the 100ms minimum inter-change interval, and
	// also inside the cooldown
	if c.Observe(0.56, base.Add(680*time.Millisecond)) {
		t.Error("Sub-100ms inter-change interval must be rejected")
	}
}

func TestClassifier_FreshEpisodeStartsClean(t *testing.T) {
	c := NewClassifier()
	base := time.Now()
	c.Observe(0.50, base)
	c.Observe(0.53, base.Add(200*time.Millisecond))

	// A new classifier (new alarm episode) has no history
	fresh := NewClassifier()
	if fresh.Observe(0.53, base.Add(400*time.Millisecond)) {
		t.Error("First reading of a fresh episode is baseline, never a press")
	}
}
