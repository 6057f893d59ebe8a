package silencer

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// PA_VOLUME_NORM: PulseAudio's 100% volume
const pulseVolumeNorm = 65536.0

// PulseVolumeSource reads the fallback sink volume through the
// PulseAudio D-Bus core API. PulseAudio runs its own peer-to-peer bus;
// its address is published on the session bus.
type PulseVolumeSource struct {
	conn *dbus.Conn
}

// NewPulseVolumeSource connects to the PulseAudio bus
func NewPulseVolumeSource() (*PulseVolumeSource, error) {
	session, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}

	lookup := session.Object("org.PulseAudio1", "/org/pulseaudio/server_lookup1")
	variant, err := lookup.GetProperty("org.PulseAudio.ServerLookup1.Address")
	if err != nil {
		return nil, fmt.Errorf("locating PulseAudio bus: %w", err)
	}
	address, ok := variant.Value().(string)
	if !ok || address == "" {
		return nil, fmt.Errorf("PulseAudio bus address is unavailable")
	}

	conn, err := dbus.Dial(address)
	if err != nil {
		return nil, fmt.Errorf("dialing PulseAudio bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("authenticating to PulseAudio bus: %w", err)
	}

	return &PulseVolumeSource{conn: conn}, nil
}

// Volume returns the fallback sink volume normalized to [0.0, 1.0]
func (p *PulseVolumeSource) Volume() (float64, error) {
	core := p.conn.Object("org.PulseAudio.Core1", "/org/pulseaudio/core1")
	variant, err := core.GetProperty("org.PulseAudio.Core1.FallbackSink")
	if err != nil {
		return 0, fmt.Errorf("reading fallback sink: %w", err)
	}
	sinkPath, ok := variant.Value().(dbus.ObjectPath)
	if !ok {
		return 0, fmt.Errorf("unexpected fallback sink value %v", variant.Value())
	}

	sink := p.conn.Object("org.PulseAudio.Core1", sinkPath)
	variant, err = sink.GetProperty("org.PulseAudio.Core1.Device.Volume")
	if err != nil {
		return 0, fmt.Errorf("reading sink volume: %w", err)
	}
	channels, ok := variant.Value().([]uint32)
	if !ok || len(channels) == 0 {
		return 0, fmt.Errorf("unexpected sink volume value %v", variant.Value())
	}

	var sum float64
	for _, ch := range channels {
		sum += float64(ch)
	}
	volume := sum / float64(len(channels)) / pulseVolumeNorm

	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	return volume, nil
}

// Close releases the PulseAudio bus connection
func (p *PulseVolumeSource) Close() error {
	return p.conn.Close()
}
