package remote

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	kdeConnectService  = "org.kde.kdeconnect"
	kdeConnectRoot     = "/modules/kdeconnect"
	kdeConnectDaemon   = "org.kde.kdeconnect.daemon"
	kdeConnectSMSIface = "org.kde.kdeconnect.device.telephony"
)

// KDEConnectComposer sends messages through the phone paired via KDE
// Connect. Compose hands the message to the phone's messaging app; the
// phone performs the actual send, so there is no delivery confirmation
// here either.
type KDEConnectComposer struct {
	conn *dbus.Conn
}

// NewKDEConnectComposer connects to the session bus
func NewKDEConnectComposer() (*KDEConnectComposer, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	return &KDEConnectComposer{conn: conn}, nil
}

// Compose relays the message to the first reachable paired device
func (c *KDEConnectComposer) Compose(recipient, body string) error {
	daemon := c.conn.Object(kdeConnectService, dbus.ObjectPath(kdeConnectRoot))

	var deviceIDs []string
	call := daemon.Call(kdeConnectDaemon+".devices", 0, true, true) // onlyReachable, onlyPaired
	if call.Err != nil {
		return fmt.Errorf("listing paired devices: %w", call.Err)
	}
	if err := call.Store(&deviceIDs); err != nil {
		return fmt.Errorf("reading device list: %w", err)
	}
	if len(deviceIDs) == 0 {
		return fmt.Errorf("no reachable paired device")
	}

	var lastErr error
	for _, id := range deviceIDs {
		path := dbus.ObjectPath(fmt.Sprintf("%s/devices/%s/telephony", kdeConnectRoot, id))
		device := c.conn.Object(kdeConnectService, path)

		if call := device.Call(kdeConnectSMSIface+".sendSms", 0, recipient, body); call.Err != nil {
			lastErr = call.Err
			continue
		}
		return nil
	}

	return fmt.Errorf("sending through paired devices: %w", lastErr)
}
