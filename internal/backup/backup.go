// Package backup exports and imports settings as a portable JSON
// document, grouped into sections so partial backups from older
// versions still import cleanly.
package backup

import (
	"encoding/json"
	"fmt"
	"time"

	"loopremote/internal/models"
)

// Version is stamped into exports for forward-compatibility checks
const Version = "1.0.0"

// Document is the on-disk backup format
type Document struct {
	BackupTimestamp string            `json:"backupTimestamp"`
	AppVersion      string            `json:"appVersion"`
	Connection      ConnectionSection `json:"connection"`
	Display         DisplaySection    `json:"display"`
	Thresholds      ThresholdSection  `json:"thresholds"`
	Alarms          AlarmSection      `json:"alarms"`
	Remote          RemoteSection     `json:"remote"`
}

// ConnectionSection holds Nightscout connection settings
type ConnectionSection struct {
	NightscoutURL string `json:"nightscoutUrl"`
	APISecret     string `json:"apiSecret"`
	APIToken      string `json:"apiToken"`
	UseToken      bool   `json:"useToken"`
}

// DisplaySection holds unit and refresh settings
type DisplaySection struct {
	Unit            string `json:"unit"`
	RefreshInterval int    `json:"refreshInterval"`
}

// ThresholdSection holds the glucose range boundaries
type ThresholdSection struct {
	TargetLow  int `json:"targetLow"`
	TargetHigh int `json:"targetHigh"`
	UrgentLow  int `json:"urgentLow"`
	UrgentHigh int `json:"urgentHigh"`
}

// AlarmSection holds alarm behavior settings
type AlarmSection struct {
	EnableHighAlert       bool `json:"enableHighAlert"`
	EnableLowAlert        bool `json:"enableLowAlert"`
	EnableUrgentHighAlert bool `json:"enableUrgentHighAlert"`
	EnableUrgentLowAlert  bool `json:"enableUrgentLowAlert"`
	EnableSoundAlerts     bool `json:"enableSoundAlerts"`
	RepeatAlertMinutes    int  `json:"repeatAlertMinutes"`
	SnoozeMinutes         int  `json:"snoozeMinutes"`
}

// RemoteSection holds remote command dispatch settings. The bolus
// rate-limit clock is deliberately not exported; restoring it on
// another machine would defeat the cooldown.
type RemoteSection struct {
	RemoteTransport  string  `json:"remoteTransport"`
	PhoneNumber      string  `json:"phoneNumber"`
	PushRelayURL     string  `json:"pushRelayUrl"`
	PushDeviceToken  string  `json:"pushDeviceToken"`
	PushKeyID        string  `json:"pushKeyId"`
	PushSharedSecret string  `json:"pushSharedSecret"`
	OTPSeedURL       string  `json:"otpSeedUrl"`
	MaxBolus         float64 `json:"maxBolus"`
	MaxCarbs         float64 `json:"maxCarbs"`
	BolusIncrement   float64 `json:"bolusIncrement"`
	MinBolusDelaySec int     `json:"minBolusDelaySec"`
}

// Export serializes the settings into a backup document
func Export(settings *models.Settings) ([]byte, error) {
	snapshot := settings.Clone()

	doc := Document{
		BackupTimestamp: time.Now().UTC().Format(time.RFC3339),
		AppVersion:      Version,
		Connection: ConnectionSection{
			NightscoutURL: snapshot.NightscoutURL,
			APISecret:     snapshot.APISecret,
			APIToken:      snapshot.APIToken,
			UseToken:      snapshot.UseToken,
		},
		Display: DisplaySection{
			Unit:            snapshot.Unit,
			RefreshInterval: snapshot.RefreshInterval,
		},
		Thresholds: ThresholdSection{
			TargetLow:  snapshot.TargetLow,
			TargetHigh: snapshot.TargetHigh,
			UrgentLow:  snapshot.UrgentLow,
			UrgentHigh: snapshot.UrgentHigh,
		},
		Alarms: AlarmSection{
			EnableHighAlert:       snapshot.EnableHighAlert,
			EnableLowAlert:        snapshot.EnableLowAlert,
			EnableUrgentHighAlert: snapshot.EnableUrgentHighAlert,
			EnableUrgentLowAlert:  snapshot.EnableUrgentLowAlert,
			EnableSoundAlerts:     snapshot.EnableSoundAlerts,
			RepeatAlertMinutes:    snapshot.RepeatAlertMinutes,
			SnoozeMinutes:         snapshot.SnoozeMinutes,
		},
		Remote: RemoteSection{
			RemoteTransport:  snapshot.RemoteTransport,
			PhoneNumber:      snapshot.PhoneNumber,
			PushRelayURL:     snapshot.PushRelayURL,
			PushDeviceToken:  snapshot.PushDeviceToken,
			PushKeyID:        snapshot.PushKeyID,
			PushSharedSecret: snapshot.PushSharedSecret,
			OTPSeedURL:       snapshot.OTPSeedURL,
			MaxBolus:         snapshot.MaxBolus,
			MaxCarbs:         snapshot.MaxCarbs,
			BolusIncrement:   snapshot.BolusIncrement,
			MinBolusDelaySec: snapshot.MinBolusDelaySec,
		},
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Import merges a backup document into current settings, last write
// wins: backup values replace current ones, fields absent from the
// backup keep their current values. The rate-limit clock is preserved.
func Import(data []byte, current *models.Settings) (*models.Settings, error) {
	snapshot := current.Clone()

	// Start the document from the current values so missing fields
	// merge instead of zeroing
	doc := Document{
		Connection: ConnectionSection{
			NightscoutURL: snapshot.NightscoutURL,
			APISecret:     snapshot.APISecret,
			APIToken:      snapshot.APIToken,
			UseToken:      snapshot.UseToken,
		},
		Display: DisplaySection{
			Unit:            snapshot.Unit,
			RefreshInterval: snapshot.RefreshInterval,
		},
		Thresholds: ThresholdSection{
			TargetLow:  snapshot.TargetLow,
			TargetHigh: snapshot.TargetHigh,
			UrgentLow:  snapshot.UrgentLow,
			UrgentHigh: snapshot.UrgentHigh,
		},
		Alarms: AlarmSection{
			EnableHighAlert:       snapshot.EnableHighAlert,
			EnableLowAlert:        snapshot.EnableLowAlert,
			EnableUrgentHighAlert: snapshot.EnableUrgentHighAlert,
			EnableUrgentLowAlert:  snapshot.EnableUrgentLowAlert,
			EnableSoundAlerts:     snapshot.EnableSoundAlerts,
			RepeatAlertMinutes:    snapshot.RepeatAlertMinutes,
			SnoozeMinutes:         snapshot.SnoozeMinutes,
		},
		Remote: RemoteSection{
			RemoteTransport:  snapshot.RemoteTransport,
			PhoneNumber:      snapshot.PhoneNumber,
			PushRelayURL:     snapshot.PushRelayURL,
			PushDeviceToken:  snapshot.PushDeviceToken,
			PushKeyID:        snapshot.PushKeyID,
			PushSharedSecret: snapshot.PushSharedSecret,
			OTPSeedURL:       snapshot.OTPSeedURL,
			MaxBolus:         snapshot.MaxBolus,
			MaxCarbs:         snapshot.MaxCarbs,
			BolusIncrement:   snapshot.BolusIncrement,
			MinBolusDelaySec: snapshot.MinBolusDelaySec,
		},
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing backup: %w", err)
	}

	snapshot.NightscoutURL = doc.Connection.NightscoutURL
	snapshot.APISecret = doc.Connection.APISecret
	snapshot.APIToken = doc.Connection.APIToken
	snapshot.UseToken = doc.Connection.UseToken
	snapshot.Unit = doc.Display.Unit
	snapshot.RefreshInterval = doc.Display.RefreshInterval
	snapshot.TargetLow = doc.Thresholds.TargetLow
	snapshot.TargetHigh = doc.Thresholds.TargetHigh
	snapshot.UrgentLow = doc.Thresholds.UrgentLow
	snapshot.UrgentHigh = doc.Thresholds.UrgentHigh
	snapshot.EnableHighAlert = doc.Alarms.EnableHighAlert
	snapshot.EnableLowAlert = doc.Alarms.EnableLowAlert
	snapshot.EnableUrgentHighAlert = doc.Alarms.EnableUrgentHighAlert
	snapshot.EnableUrgentLowAlert = doc.Alarms.EnableUrgentLowAlert
	snapshot.EnableSoundAlerts = doc.Alarms.EnableSoundAlerts
	snapshot.RepeatAlertMinutes = doc.Alarms.RepeatAlertMinutes
	snapshot.SnoozeMinutes = doc.Alarms.SnoozeMinutes
	snapshot.RemoteTransport = doc.Remote.RemoteTransport
	snapshot.PhoneNumber = doc.Remote.PhoneNumber
	snapshot.PushRelayURL = doc.Remote.PushRelayURL
	snapshot.PushDeviceToken = doc.Remote.PushDeviceToken
	snapshot.PushKeyID = doc.Remote.PushKeyID
	snapshot.PushSharedSecret = doc.Remote.PushSharedSecret
	snapshot.OTPSeedURL = doc.Remote.OTPSeedURL
	snapshot.MaxBolus = doc.Remote.MaxBolus
	snapshot.MaxCarbs = doc.Remote.MaxCarbs
	snapshot.BolusIncrement = doc.Remote.BolusIncrement
	snapshot.MinBolusDelaySec = doc.Remote.MinBolusDelaySec

	return snapshot, nil
}
