package remote

import (
	"fmt"
	"regexp"

	"loopremote/internal/models"
)

// The receiving device parses these strings verbatim, so the format is
// a fixed external contract: space-separated uppercase keyword followed
// by parameters.
//
//	BOLUS <amount:%.2f> [MEAL]
//	CARBS <amount:int> [HH:MM|H:MMAM/PM]
//	TARGET {MEAL|ACTIVITY|HYPO|STOP}
//	LOOP {START|STOP|STATUS}
//	PUMP {CONNECT|DISCONNECT|STATUS}
//	PROFILE {STATUS|LIST|SWITCH <name>}
//	STATUS
//	BG

var consumedTimePattern = regexp.MustCompile(`^\d{1,2}:\d{2}(AM|PM)?$`)

var (
	targetActions  = map[string]bool{models.TargetMeal: true, models.TargetActivity: true, models.TargetHypo: true, models.TargetStop: true}
	loopActions    = map[string]bool{models.LoopStart: true, models.LoopStop: true, models.LoopStatusAction: true}
	pumpActions    = map[string]bool{models.PumpConnect: true, models.PumpDisconnect: true, models.PumpStatus: true}
	profileActions = map[string]bool{models.ProfileStatus: true, models.ProfileList: true, models.ProfileSwitch: true}
)

// BuildWireString encodes a command into its on-the-wire form
func BuildWireString(cmd models.Command) (string, error) {
	switch cmd.Kind {
	case models.CommandBolus:
		if cmd.Amount <= 0 {
			return "", fmt.Errorf("bolus amount %f must be positive", cmd.Amount)
		}
		if cmd.Meal {
			return fmt.Sprintf("BOLUS %.2f MEAL", cmd.Amount), nil
		}
		return fmt.Sprintf("BOLUS %.2f", cmd.Amount), nil

	case models.CommandCarbs:
		grams := int(cmd.Amount)
		if grams <= 0 {
			return "", fmt.Errorf("carbs amount %d must be positive", grams)
		}
		if cmd.ConsumedTime == "" {
			return fmt.Sprintf("CARBS %d", grams), nil
		}
		if !consumedTimePattern.MatchString(cmd.ConsumedTime) {
			return "", fmt.Errorf("carbs time %q must be HH:MM or H:MMAM/PM", cmd.ConsumedTime)
		}
		return fmt.Sprintf("CARBS %d %s", grams, cmd.ConsumedTime), nil

	case models.CommandTarget:
		if !targetActions[cmd.Action] {
			return "", fmt.Errorf("unknown target action %q", cmd.Action)
		}
		return "TARGET " + cmd.Action, nil

	case models.CommandLoop:
		if !loopActions[cmd.Action] {
			return "", fmt.Errorf("unknown loop action %q", cmd.Action)
		}
		return "LOOP " + cmd.Action, nil

	case models.CommandPump:
		if !pumpActions[cmd.Action] {
			return "", fmt.Errorf("unknown pump action %q", cmd.Action)
		}
		return "PUMP " + cmd.Action, nil

	case models.CommandProfile:
		if !profileActions[cmd.Action] {
			return "", fmt.Errorf("unknown profile action %q", cmd.Action)
		}
		if cmd.Action == models.ProfileSwitch {
			if cmd.ProfileName == "" {
				return "", fmt.Errorf("profile switch needs a profile name")
			}
			return "PROFILE SWITCH " + cmd.ProfileName, nil
		}
		return "PROFILE " + cmd.Action, nil

	case models.CommandStatus:
		return "STATUS", nil

	case models.CommandBG:
		return "BG", nil

	default:
		return "", fmt.Errorf("unknown command kind %q", cmd.Kind)
	}
}
