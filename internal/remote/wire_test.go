package remote

import (
	"testing"

	"loopremote/internal/models"
)

func TestBuildWireString(t *testing.T) {
	tests := []struct {
		name     string
		cmd      models.Command
		expected string
	}{
		{"Bolus", models.NewBolus(2.5, false), "BOLUS 2.50"},
		{"Meal bolus", models.NewBolus(2.5, true), "BOLUS 2.50 MEAL"},
		{"Bolus two decimals", models.NewBolus(0.05, false), "BOLUS 0.05"},
		{"Carbs", models.NewCarbs(30, ""), "CARBS 30"},
		{"Carbs with 24h time", models.NewCarbs(45, "14:30"), "CARBS 45 14:30"},
		{"Carbs with 12h time", models.NewCarbs(30, "2:30PM"), "CARBS 30 2:30PM"},
		{"Target meal", models.NewTarget(models.TargetMeal), "TARGET MEAL"},
		{"Target activity", models.NewTarget(models.TargetActivity), "TARGET ACTIVITY"},
		{"Target hypo", models.NewTarget(models.TargetHypo), "TARGET HYPO"},
		{"Target stop", models.NewTarget(models.TargetStop), "TARGET STOP"},
		{"Loop start", models.NewLoop(models.LoopStart), "LOOP START"},
		{"Loop stop", models.NewLoop(models.LoopStop), "LOOP STOP"},
		{"Loop status", models.NewLoop(models.LoopStatusAction), "LOOP STATUS"},
		{"Pump connect", models.NewPump(models.PumpConnect), "PUMP CONNECT"},
		{"Pump disconnect", models.NewPump(models.PumpDisconnect), "PUMP DISCONNECT"},
		{"Profile status", models.NewProfile(models.ProfileStatus, ""), "PROFILE STATUS"},
		{"Profile list", models.NewProfile(models.ProfileList, ""), "PROFILE LIST"},
		{"Profile switch", models.NewProfile(models.ProfileSwitch, "Weekend"), "PROFILE SWITCH Weekend"},
		{"Status", models.Command{Kind: models.CommandStatus}, "STATUS"},
		{"BG", models.Command{Kind: models.CommandBG}, "BG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := BuildWireString(tt.cmd)
			if err != nil {
				t.Fatalf("BuildWireString() error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("BuildWireString() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestBuildWireString_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cmd  models.Command
	}{
		{"Zero bolus", models.NewBolus(0, false)},
		{"Negative bolus", models.NewBolus(-1, false)},
		{"Zero carbs", models.NewCarbs(0, "")},
		{"Bad carbs time", models.NewCarbs(30, "half past two")},
		{"Bad carbs time separator", models.NewCarbs(30, "14.30")},
		{"Unknown target action", models.NewTarget("SLEEP")},
		{"Unknown loop action", models.NewLoop("PAUSE")},
		{"Unknown pump action", models.NewPump("PRIME")},
		{"Profile switch without name", models.NewProfile(models.ProfileSwitch, "")},
		{"Unknown kind", models.Command{Kind: "reboot"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildWireString(tt.cmd); err == nil {
				t.Errorf("BuildWireString(%+v) should fail", tt.cmd)
			}
		})
	}
}
