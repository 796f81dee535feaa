package config

import (
	"fmt"
	"time"
)

// Config is the daemon configuration file.
type Config struct {
	Version  int       `yaml:"version"`
	Identity *Identity `yaml:"identity,omitempty"`
	Daemon   *Daemon   `yaml:"daemon,omitempty"`
	// SettingsFile is the user settings document loaded at startup.
	SettingsFile string `yaml:"settings_file,omitempty"`
}

// Identity describes the module. It is not user-editable over the console.
type Identity struct {
	Device      string `yaml:"device"`
	ID          int    `yaml:"id"`
	Author      string `yaml:"author,omitempty"`
	Institution string `yaml:"institution,omitempty"`
}

// Daemon holds the runtime preferences of `puara run`.
type Daemon struct {
	Database      string        `yaml:"database,omitempty"`       // SQLite file; empty keeps settings in memory
	SerialPort    string        `yaml:"serial_port,omitempty"`    // console on a serial device
	BaudRate      int           `yaml:"baud_rate,omitempty"`
	WebSocketAddr string        `yaml:"websocket_addr,omitempty"` // console over WebSocket, e.g. ":8080"
	ReadyTimeout  time.Duration `yaml:"ready_timeout"`            // WiFi interface readiness bound
	Advertise     bool          `yaml:"advertise"`                // mDNS advertisement
	LogLevel      string        `yaml:"log_level,omitempty"`
}

// DefaultBaudRate is the serial console speed of the firmware.
const DefaultBaudRate = 115200

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Identity: &Identity{
			Device: "Puara",
			ID:     1,
		},
		Daemon: defaultDaemon(),
	}
}

func defaultDaemon() *Daemon {
	return &Daemon{
		BaudRate:     DefaultBaudRate,
		ReadyTimeout: 30 * time.Second,
		Advertise:    true,
	}
}

// DeviceName returns the module name, "<device>_<id>" with the id padded to
// three digits. It is empty when no device is set.
func (i *Identity) DeviceName() string {
	if i == nil || i.Device == "" {
		return ""
	}
	return fmt.Sprintf("%s_%03d", i.Device, i.ID)
}
