package safety

import (
	"math"
	"testing"
	"time"

	"loopremote/internal/models"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		maxBolus float64
		expected float64
	}{
		{"Under limit", 2.5, 10.0, 2.5},
		{"At limit", 10.0, 10.0, 10.0},
		{"Over limit", 15.0, 10.0, 10.0},
		{"Far over limit", 100.0, 6.0, 6.0},
		{"Negative saturates to zero", -1.0, 10.0, 0},
		{"Zero", 0, 10.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Clamp(tt.amount, tt.maxBolus)
			if result != tt.expected {
				t.Errorf("Clamp(%f, %f) = %f, want %f", tt.amount, tt.maxBolus, result, tt.expected)
			}
		})
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		increment float64
		expected  float64
	}{
		{"Already on step", 2.50, 0.05, 2.50},
		{"Rounds down", 2.53, 0.05, 2.50},
		{"Never rounds up", 2.59, 0.05, 2.55},
		{"Float noise on ratio", 0.3, 0.1, 0.3},
		{"Tenth increment", 1.27, 0.1, 1.2},
		{"Whole unit increment", 3.9, 1.0, 3.0},
		{"Quarter increment", 1.30, 0.25, 1.25},
		{"Zero amount", 0, 0.05, 0},
		{"Zero increment passes through", 2.53, 0, 2.53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Quantize(tt.amount, tt.increment)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("Quantize(%f, %f) = %f, want %f", tt.amount, tt.increment, result, tt.expected)
			}
		})
	}
}

func TestQuantize_Properties(t *testing.T) {
	increments := []float64{0.025, 0.05, 0.1, 0.5, 1.0}
	amounts := []float64{0.01, 0.3, 1.27, 2.53, 4.999, 7.77, 10.0}

	for _, inc := range increments {
		for _, amount := range amounts {
			q := Quantize(amount, inc)

			// Result is a multiple of the increment within 1e-9
			steps := q / inc
			if math.Abs(steps-math.Round(steps)) > 1e-9 {
				t.Errorf("Quantize(%f, %f) = %f is not on the step grid", amount, inc, q)
			}

			// Quantization never increases the dose
			if q > amount+1e-9 {
				t.Errorf("Quantize(%f, %f) = %f exceeds input", amount, inc, q)
			}
		}
	}
}

func TestFractionDigits(t *testing.T) {
	tests := []struct {
		increment float64
		expected  int
	}{
		{1.0, 0},
		{0.5, 1},
		{0.1, 1},
		{0.05, 2},
		{0.025, 3},
		{0.01, 2},
		{0.00001, 5},
		{0.000001, 5}, // Bounded to 5 digits
	}

	for _, tt := range tests {
		result := FractionDigits(tt.increment)
		if result != tt.expected {
			t.Errorf("FractionDigits(%f) = %d, want %d", tt.increment, result, tt.expected)
		}
	}
}

func TestClassifyRecommendation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		age      time.Duration
		expected RecommendationState
	}{
		{"4 minutes old applies directly", 4 * time.Minute, RecommendationFresh},
		{"6 minutes old needs acknowledgment", 6 * time.Minute, RecommendationWarn},
		{"12 minutes old still offered", 12 * time.Minute, RecommendationWarn},
		{"13 minutes old is hidden", 13 * time.Minute, RecommendationExpired},
		{"Just produced", 0, RecommendationFresh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyRecommendation(now.Add(-tt.age), now)
			if result != tt.expected {
				t.Errorf("ClassifyRecommendation(age %v) = %d, want %d", tt.age, result, tt.expected)
			}
		})
	}
}

func TestOfferRecommendation(t *testing.T) {
	now := time.Now()
	slot := &models.RecommendationSlot{}

	if _, _, ok := OfferRecommendation(slot, now); ok {
		t.Error("Empty slot should offer nothing")
	}

	slot.Set(models.DoseRecommendation{Units: 2.0, Time: now.Add(-4 * time.Minute)})
	rec, state, ok := OfferRecommendation(slot, now)
	if !ok || state != RecommendationFresh || rec.Units != 2.0 {
		t.Errorf("4 min recommendation: got (%v, %d, %v), want fresh offer of 2.0", rec, state, ok)
	}

	slot.Set(models.DoseRecommendation{Units: 2.0, Time: now.Add(-6 * time.Minute)})
	_, state, ok = OfferRecommendation(slot, now)
	if !ok || state != RecommendationWarn {
		t.Errorf("6 min recommendation: got (%d, %v), want warn offer", state, ok)
	}

	slot.Set(models.DoseRecommendation{Units: 2.0, Time: now.Add(-13 * time.Minute)})
	if _, _, ok := OfferRecommendation(slot, now); ok {
		t.Error("13 min recommendation should be hidden entirely")
	}
}

func TestGuard_PrepareBolus(t *testing.T) {
	settings := models.DefaultSettings()
	settings.MaxBolus = 5.0
	settings.BolusIncrement = 0.05

	guard := NewGuard(settings)

	result := guard.PrepareBolus(7.23)
	if result != 5.0 {
		t.Errorf("PrepareBolus(7.23) = %f, want clamp to 5.0", result)
	}

	result = guard.PrepareBolus(2.53)
	if math.Abs(result-2.50) > 1e-9 {
		t.Errorf("PrepareBolus(2.53) = %f, want 2.50", result)
	}

	if guard.FractionDigits() != 2 {
		t.Errorf("FractionDigits() = %d, want 2 for 0.05 increment", guard.FractionDigits())
	}
}
