// Package models contains data structures used throughout the application
package models

import "time"

// Treatment represents a care-portal treatment entry. The cloud-sync
// transport posts remote commands as treatments; the poll loop reads
// recent treatments back for the history view.
type Treatment struct {
	ID        string  `json:"_id,omitempty"`
	EventType string  `json:"eventType"`
	CreatedAt string  `json:"created_at"`
	Insulin   float64 `json:"insulin,omitempty"` // Units of insulin
	Carbs     float64 `json:"carbs,omitempty"`   // Grams of carbohydrates
	Duration  float64 `json:"duration,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	EnteredBy string  `json:"enteredBy"`

	// For temp targets
	TargetTop    float64 `json:"targetTop,omitempty"`
	TargetBottom float64 `json:"targetBottom,omitempty"`

	// For profile switches
	Profile string `json:"profile,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Time returns the creation time of the treatment
func (t *Treatment) Time() time.Time {
	parsed, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// HasInsulin returns true if this treatment includes insulin
func (t *Treatment) HasInsulin() bool {
	return t.Insulin > 0
}

// HasCarbs returns true if this treatment includes carbohydrates
func (t *Treatment) HasCarbs() bool {
	return t.Carbs > 0
}
