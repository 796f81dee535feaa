package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Module is a Puara module found on the network.
type Module struct {
	// Instance is the advertised service instance, the module's device
	// name (e.g. "T-Stick_042")
	Instance string

	// Hostname is the mDNS hostname (e.g. "T-Stick_042.local.")
	Hostname string

	IP   string
	Port int

	// Metadata holds the TXT record, e.g. "device=T-Stick", "version=220929"
	Metadata map[string]string

	DiscoveredAt time.Time
}

func (m *Module) String() string {
	return fmt.Sprintf("Puara module %s (%s) at %s", m.Instance, m.Hostname, m.Address())
}

// Address returns the OSC destination "host:port" of the module.
func (m *Module) Address() string {
	return net.JoinHostPort(m.IP, strconv.Itoa(m.Port))
}

// GetMetadata returns a TXT value, or "" when absent.
func (m *Module) GetMetadata(key string) string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}
