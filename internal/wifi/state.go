package wifi

import (
	"net"
	"net/netip"
)

// State is the lifecycle state of one WiFi role.
type State int

const (
	Idle State = iota
	ConfiguringRoles
	ConnectingStation
	ApEnabling
	Connected
	ApActive
	Disconnected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ConfiguringRoles:
		return "configuring_roles"
	case ConnectingStation:
		return "connecting_station"
	case ApEnabling:
		return "ap_enabling"
	case Connected:
		return "connected"
	case ApActive:
		return "ap_active"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Status is a point-in-time copy of the manager's connectivity state.
type Status struct {
	Station State
	AP      State

	StaConnected bool
	APEnabled    bool
	// APUnserved is set when the AP came up but its DHCP pool could not
	// be configured: stations can associate but get no address.
	APUnserved bool

	DeviceName string
	SSID       string

	// Addressing of each role; zero until known.
	StaIP  netip.Addr
	StaMAC net.HardwareAddr
	APIP   netip.Addr
	APMAC  net.HardwareAddr
}
