// Package models contains data structures used throughout the application
package models

import "time"

// GlucoseEntry represents a single glucose reading from Nightscout
type GlucoseEntry struct {
	ID        string `json:"_id"`
	SGV       int    `json:"sgv"`  // Sensor glucose value in mg/dL
	Date      int64  `json:"date"` // Unix timestamp in milliseconds
	DateStr   string `json:"dateString"`
	Trend     int    `json:"trend"`     // Trend direction (1-7)
	Direction string `json:"direction"` // Trend direction as string
	Device    string `json:"device"`
	Type      string `json:"type"`
	Mills     int64  `json:"mills"`
}

// Time returns the time of the glucose entry
func (g *GlucoseEntry) Time() time.Time {
	return time.UnixMilli(g.Date)
}

// ValueMgDL returns the glucose value in mg/dL
func (g *GlucoseEntry) ValueMgDL() int {
	return g.SGV
}

// ValueMmolL returns the glucose value in mmol/L
func (g *GlucoseEntry) ValueMmolL() float64 {
	return float64(g.SGV) / 18.0182
}

// TrendArrow returns the Unicode arrow character for the trend
func (g *GlucoseEntry) TrendArrow() string {
	arrows := map[string]string{
		"DoubleUp":          "⇈",
		"SingleUp":          "↑",
		"FortyFiveUp":       "↗",
		"Flat":              "→",
		"FortyFiveDown":     "↘",
		"SingleDown":        "↓",
		"DoubleDown":        "⇊",
		"NOT COMPUTABLE":    "?",
		"RATE OUT OF RANGE": "⚠",
	}

	if g.Direction != "" {
		if arrow, ok := arrows[g.Direction]; ok {
			return arrow
		}
	}

	// Fallback to numeric trend
	numericArrows := map[int]string{
		1: "⇈",
		2: "↑",
		3: "↗",
		4: "→",
		5: "↘",
		6: "↓",
		7: "⇊",
	}

	if arrow, ok := numericArrows[g.Trend]; ok {
		return arrow
	}

	return "-"
}

// GlucoseStatus represents the current glucose status for display
type GlucoseStatus struct {
	Value        int       `json:"value"`        // mg/dL
	ValueMmol    float64   `json:"valueMmol"`    // mmol/L
	Trend        string    `json:"trend"`        // Arrow character
	Direction    string    `json:"direction"`    // Direction string
	Time         time.Time `json:"time"`         // Reading time
	Delta        int       `json:"delta"`        // Change from previous reading
	Status       string    `json:"status"`       // "normal", "high", "low", "urgent_high", "urgent_low"
	StaleMinutes int       `json:"staleMinutes"` // Minutes since last reading
	IsStale      bool      `json:"isStale"`      // True if data is stale (>15 min)
}

// DeviceStatus represents the therapy device status uploaded to Nightscout
type DeviceStatus struct {
	ID        string     `json:"_id"`
	Device    string     `json:"device"`
	CreatedAt string     `json:"created_at"`
	Loop      LoopStatus `json:"loop"`
}

// LoopStatus contains the closed-loop controller portion of a device status
type LoopStatus struct {
	Timestamp        string      `json:"timestamp"`
	RecommendedBolus float64     `json:"recommendedBolus"`
	IOB              LoopIOB     `json:"iob"`
	COB              LoopCOB     `json:"cob"`
	Enacted          *LoopAction `json:"enacted,omitempty"`
	Suggested        *LoopAction `json:"suggested,omitempty"`
	FailureReason    string      `json:"failureReason,omitempty"`
}

// LoopIOB is insulin on board as reported by the loop
type LoopIOB struct {
	IOB       float64 `json:"iob"`
	Timestamp string  `json:"timestamp"`
}

// LoopCOB is carbs on board as reported by the loop
type LoopCOB struct {
	COB       float64 `json:"cob"`
	Timestamp string  `json:"timestamp"`
}

// LoopAction is an enacted or suggested loop adjustment
type LoopAction struct {
	Timestamp string  `json:"timestamp"`
	Rate      float64 `json:"rate"`
	Duration  float64 `json:"duration"`
	Received  bool    `json:"received"`
}

// RecommendationTime parses the loop timestamp of the recommendation.
// Returns the zero time if the timestamp is missing or unparsable.
func (l *LoopStatus) RecommendationTime() time.Time {
	if l.Timestamp == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, l.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// ServerStatus represents the Nightscout server status
type ServerStatus struct {
	Status            string `json:"status"`
	Name              string `json:"name"`
	Version           string `json:"version"`
	ServerTime        string `json:"serverTime"`
	APIEnabled        bool   `json:"apiEnabled"`
	CareportalEnabled bool   `json:"careportalEnabled"`
	Head              string `json:"head"`
}
