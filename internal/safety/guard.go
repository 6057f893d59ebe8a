// Package safety transforms raw dose values into values that are safe
// to transmit. Clamping and quantizing never fail: out-of-range input
// silently saturates toward less insulin.
package safety

import (
	"math"
	"time"

	"loopremote/internal/models"
)

// Staleness policy for device-recommended doses. Fixed, not configurable.
const (
	warnAge = 5 * time.Minute  // Older than this requires acknowledgment
	maxAge  = 12 * time.Minute // Older than this is hidden entirely
)

// Epsilon tolerated during the floor step of quantization, to keep
// floating-point representation noise from dropping a whole increment.
const quantizeEpsilon = 1e-10

// RecommendationState classifies a device recommendation by age
type RecommendationState int

// Recommendation states, freshest first
const (
	RecommendationFresh    RecommendationState = iota // Applies directly
	RecommendationWarn                                // Offered, needs acknowledgment
	RecommendationExpired                             // Not offered at all
)

// Guard applies the configured dosage limits to bolus amounts
type Guard struct {
	settings *models.Settings
}

// NewGuard creates a safety guard reading limits from settings
func NewGuard(settings *models.Settings) *Guard {
	return &Guard{settings: settings}
}

// Clamp caps an amount at the configured maximum bolus
func (g *Guard) Clamp(amount float64) float64 {
	return Clamp(amount, g.settings.Clone().MaxBolus)
}

// Quantize rounds an amount down to the configured pump increment
func (g *Guard) Quantize(amount float64) float64 {
	return Quantize(amount, g.settings.Clone().BolusIncrement)
}

// PrepareBolus clamps then quantizes a raw dose
func (g *Guard) PrepareBolus(amount float64) float64 {
	return g.Quantize(g.Clamp(amount))
}

// FractionDigits returns the display precision for the configured increment
func (g *Guard) FractionDigits() int {
	return FractionDigits(g.settings.Clone().BolusIncrement)
}

// Clamp caps amount at maxBolus. Negative amounts saturate to zero.
func Clamp(amount, maxBolus float64) float64 {
	if amount < 0 {
		return 0
	}
	return math.Min(amount, maxBolus)
}

// Quantize rounds amount down to the nearest multiple of increment
// (never up: under-dosing is the safe direction), then re-rounds to
// the increment's natural decimal precision to strip float noise.
func Quantize(amount, increment float64) float64 {
	if increment <= 0 {
		return amount
	}

	steps := math.Floor(amount/increment + quantizeEpsilon)
	quantized := steps * increment

	pow := math.Pow(10, float64(FractionDigits(increment)))
	return math.Round(quantized*pow) / pow
}

// FractionDigits returns the number of decimal places needed to
// express increment exactly, bounded to at most 5 digits.
func FractionDigits(increment float64) int {
	for digits := 0; digits < 5; digits++ {
		scaled := increment * math.Pow(10, float64(digits))
		if math.Abs(scaled-math.Round(scaled)) < 1e-9 {
			return digits
		}
	}
	return 5
}

// ClassifyRecommendation applies the staleness policy to a device
// recommendation produced at recTime, evaluated at now.
func ClassifyRecommendation(recTime, now time.Time) RecommendationState {
	age := now.Sub(recTime)
	switch {
	case age > maxAge:
		return RecommendationExpired
	case age >= warnAge:
		return RecommendationWarn
	default:
		return RecommendationFresh
	}
}

// OfferRecommendation reads the shared recommendation slot and returns
// the dose plus its staleness classification. Expired recommendations
// are hidden: the second return is false.
func OfferRecommendation(slot *models.RecommendationSlot, now time.Time) (models.DoseRecommendation, RecommendationState, bool) {
	rec := slot.Get()
	if rec == nil {
		return models.DoseRecommendation{}, RecommendationExpired, false
	}
	state := ClassifyRecommendation(rec.Time, now)
	if state == RecommendationExpired {
		return models.DoseRecommendation{}, state, false
	}
	return *rec, state, true
}
