// Package models contains data structures used throughout the application
package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Transport names for remote command dispatch
const (
	TransportPush  = "push"
	TransportSMS   = "sms"
	TransportCloud = "cloud"
)

// Settings contains all application settings
type Settings struct {
	mu sync.RWMutex `json:"-"`

	// Connection settings
	NightscoutURL string `json:"nightscoutUrl"`
	APISecret     string `json:"apiSecret"` // Plain API secret (will be hashed)
	APIToken      string `json:"apiToken"`  // Token-based auth
	UseToken      bool   `json:"useToken"`  // Use token instead of secret

	// Display settings
	Unit            string `json:"unit"`            // "mg/dL" or "mmol/L"
	RefreshInterval int    `json:"refreshInterval"` // Seconds (30-600)

	// Glucose thresholds (in mg/dL, converted for display)
	TargetLow  int `json:"targetLow"`
	TargetHigh int `json:"targetHigh"`
	UrgentLow  int `json:"urgentLow"`
	UrgentHigh int `json:"urgentHigh"`

	// Alarm settings
	EnableHighAlert       bool `json:"enableHighAlert"`
	EnableLowAlert        bool `json:"enableLowAlert"`
	EnableUrgentHighAlert bool `json:"enableUrgentHighAlert"`
	EnableUrgentLowAlert  bool `json:"enableUrgentLowAlert"`
	EnableSoundAlerts     bool `json:"enableSoundAlerts"`
	RepeatAlertMinutes    int  `json:"repeatAlertMinutes"` // 0 = no repeat
	SnoozeMinutes         int  `json:"snoozeMinutes"`      // Snooze length on button press

	// Remote command settings
	RemoteTransport  string  `json:"remoteTransport"`  // "push", "sms" or "cloud"
	PhoneNumber      string  `json:"phoneNumber"`      // SMS recipient (caregiver device)
	PushRelayURL     string  `json:"pushRelayUrl"`     // Push relay endpoint
	PushDeviceToken  string  `json:"pushDeviceToken"`  // Target device token
	PushKeyID        string  `json:"pushKeyId"`        // Signing key identifier
	PushSharedSecret string  `json:"pushSharedSecret"` // HS256 signing secret
	OTPSeedURL       string  `json:"otpSeedUrl"`       // Scanned otpauth:// setup URL
	MaxBolus         float64 `json:"maxBolus"`         // Units
	MaxCarbs         float64 `json:"maxCarbs"`         // Grams
	BolusIncrement   float64 `json:"bolusIncrement"`   // Pump step, units
	MinBolusDelaySec int     `json:"minBolusDelaySec"` // Cooldown between boluses
	LastBolusUnix    int64   `json:"lastBolusUnix"`    // Rate-limit clock, unix seconds
}

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		NightscoutURL:   "",
		APISecret:       "",
		APIToken:        "",
		UseToken:        false,
		Unit:            "mg/dL",
		RefreshInterval: 60, // 1 minute default

		TargetLow:  70,
		TargetHigh: 180,
		UrgentLow:  55,
		UrgentHigh: 250,

		EnableHighAlert:       true,
		EnableLowAlert:        true,
		EnableUrgentHighAlert: true,
		EnableUrgentLowAlert:  true,
		EnableSoundAlerts:     true,
		RepeatAlertMinutes:    15,
		SnoozeMinutes:         30,

		RemoteTransport:  TransportPush,
		MaxBolus:         10.0,
		MaxCarbs:         99.0,
		BolusIncrement:   0.05,
		MinBolusDelaySec: 300,
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	appDir := filepath.Join(configDir, "loopremote")
	if err := os.MkdirAll(appDir, 0750); err != nil {
		return "", err
	}

	return appDir, nil
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

// LoadFrom loads settings from the given file path
func (s *Settings) LoadFrom(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path) //nolint:gosec // Config path is controlled by the app, not user input
	if err != nil {
		if os.IsNotExist(err) {
			// Use defaults if file doesn't exist
			s.copySettingsFields(DefaultSettings())
			return nil
		}
		return err
	}

	return json.Unmarshal(data, s)
}

// Load loads settings from the default config location
func (s *Settings) Load() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return s.LoadFrom(path)
}

// SaveTo saves settings to the given file path
func (s *Settings) SaveTo(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Save saves settings to the default config location
func (s *Settings) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return s.SaveTo(path)
}

// Clone creates a copy of the settings
func (s *Settings) Clone() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Create a new Settings struct with copied values (not the mutex)
	clone := &Settings{}
	clone.copySettingsFields(s)
	return clone
}

// Update updates settings from another Settings object
func (s *Settings) Update(other *Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	s.copySettingsFields(other)
}

// copySettingsFields copies all fields from other to s, excluding the mutex
// The caller must hold the necessary locks on s and other (if other is shared)
func (s *Settings) copySettingsFields(other *Settings) {
	s.NightscoutURL = other.NightscoutURL
	s.APISecret = other.APISecret
	s.APIToken = other.APIToken
	s.UseToken = other.UseToken
	s.Unit = other.Unit
	s.RefreshInterval = other.RefreshInterval
	s.TargetLow = other.TargetLow
	s.TargetHigh = other.TargetHigh
	s.UrgentLow = other.UrgentLow
	s.UrgentHigh = other.UrgentHigh
	s.EnableHighAlert = other.EnableHighAlert
	s.EnableLowAlert = other.EnableLowAlert
	s.EnableUrgentHighAlert = other.EnableUrgentHighAlert
	s.EnableUrgentLowAlert = other.EnableUrgentLowAlert
	s.EnableSoundAlerts = other.EnableSoundAlerts
	s.RepeatAlertMinutes = other.RepeatAlertMinutes
	s.SnoozeMinutes = other.SnoozeMinutes
	s.RemoteTransport = other.RemoteTransport
	s.PhoneNumber = other.PhoneNumber
	s.PushRelayURL = other.PushRelayURL
	s.PushDeviceToken = other.PushDeviceToken
	s.PushKeyID = other.PushKeyID
	s.PushSharedSecret = other.PushSharedSecret
	s.OTPSeedURL = other.OTPSeedURL
	s.MaxBolus = other.MaxBolus
	s.MaxCarbs = other.MaxCarbs
	s.BolusIncrement = other.BolusIncrement
	s.MinBolusDelaySec = other.MinBolusDelaySec
	s.LastBolusUnix = other.LastBolusUnix
}

// IsConfigured returns true if minimum required settings are set
func (s *Settings) IsConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.NightscoutURL != ""
}

// RemoteConfigured returns true if the active transport has the
// configuration it needs to dispatch commands
func (s *Settings) RemoteConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.RemoteTransport {
	case TransportPush:
		return s.PushRelayURL != "" && s.PushDeviceToken != "" &&
			s.PushKeyID != "" && s.PushSharedSecret != ""
	case TransportSMS:
		return s.PhoneNumber != "" && s.OTPSeedURL != ""
	case TransportCloud:
		return s.NightscoutURL != ""
	default:
		return false
	}
}

// LastBolusTime returns the rate-limit clock as a time.Time
func (s *Settings) LastBolusTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.LastBolusUnix == 0 {
		return time.Time{}
	}
	return time.Unix(s.LastBolusUnix, 0)
}

// SetLastBolusTime updates the rate-limit clock
func (s *Settings) SetLastBolusTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastBolusUnix = t.Unix()
}

// MinBolusDelay returns the configured bolus cooldown as a Duration
func (s *Settings) MinBolusDelay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.MinBolusDelaySec) * time.Second
}

// GetGlucoseStatus returns the status string for a glucose value
func (s *Settings) GetGlucoseStatus(mgdl int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case mgdl <= s.UrgentLow:
		return "urgent_low"
	case mgdl <= s.TargetLow:
		return "low"
	case mgdl >= s.UrgentHigh:
		return "urgent_high"
	case mgdl >= s.TargetHigh:
		return "high"
	default:
		return "normal"
	}
}
