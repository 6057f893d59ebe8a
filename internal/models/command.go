// Package models contains data structures used throughout the application
package models

import (
	"sync"
	"time"
)

// CommandKind identifies the remote command variant
type CommandKind string

// Remote command kinds
const (
	CommandBolus   CommandKind = "bolus"
	CommandCarbs   CommandKind = "carbs"
	CommandTarget  CommandKind = "target"
	CommandLoop    CommandKind = "loop"
	CommandPump    CommandKind = "pump"
	CommandProfile CommandKind = "profile"
	CommandStatus  CommandKind = "status"
	CommandBG      CommandKind = "bg"
)

// Target override actions
const (
	TargetMeal     = "MEAL"
	TargetActivity = "ACTIVITY"
	TargetHypo     = "HYPO"
	TargetStop     = "STOP"
)

// Loop actions
const (
	LoopStart  = "START"
	LoopStop   = "STOP"
	LoopStatusAction = "STATUS"
)

// Pump actions
const (
	PumpConnect    = "CONNECT"
	PumpDisconnect = "DISCONNECT"
	PumpStatus     = "STATUS"
)

// Profile actions
const (
	ProfileStatus = "STATUS"
	ProfileList   = "LIST"
	ProfileSwitch = "SWITCH"
)

// Command is a remote command to be relayed to the therapy device.
// A command is created on user action and consumed once by a
// dispatcher; it is never persisted beyond the message history log.
type Command struct {
	Kind CommandKind

	// Bolus / carbs
	Amount float64 // Units (bolus) or grams (carbs)
	Meal   bool    // Bolus is meal-related

	// Carbs
	ConsumedTime string // "HH:MM" or "H:MMAM"/"H:MMPM", optional

	// Target / loop / pump / profile
	Action string

	// Profile switch
	ProfileName string
}

// NewBolus creates a bolus command
func NewBolus(units float64, meal bool) Command {
	return Command{Kind: CommandBolus, Amount: units, Meal: meal}
}

// NewCarbs creates a carbs command. consumedTime may be empty.
func NewCarbs(grams int, consumedTime string) Command {
	return Command{Kind: CommandCarbs, Amount: float64(grams), ConsumedTime: consumedTime}
}

// NewTarget creates a temporary target override command
func NewTarget(action string) Command {
	return Command{Kind: CommandTarget, Action: action}
}

// NewLoop creates a loop control command
func NewLoop(action string) Command {
	return Command{Kind: CommandLoop, Action: action}
}

// NewPump creates a pump control command
func NewPump(action string) Command {
	return Command{Kind: CommandPump, Action: action}
}

// NewProfile creates a profile command. name is only used for SWITCH.
func NewProfile(action, name string) Command {
	return Command{Kind: CommandProfile, Action: action, ProfileName: name}
}

// DoseRecommendation is a device-suggested bolus amount with the time
// it was produced
type DoseRecommendation struct {
	Units float64
	Time  time.Time
}

// RecommendationSlot is a shared observable slot holding the most
// recent dose recommendation. A new recommendation overwrites the
// previous one; the safety guard reads it when preparing a bolus.
type RecommendationSlot struct {
	mu  sync.RWMutex
	rec *DoseRecommendation
}

// Set overwrites the slot with a new recommendation
func (r *RecommendationSlot) Set(rec DoseRecommendation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec = &rec
}

// Get returns the current recommendation, or nil if none has arrived
func (r *RecommendationSlot) Get() *DoseRecommendation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.rec == nil {
		return nil
	}
	rec := *r.rec
	return &rec
}

// Clear empties the slot
func (r *RecommendationSlot) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec = nil
}
