package wifi

import (
	"context"
	"net"
	"net/netip"
)

// Security is the authentication scheme of a connect request.
type Security int

const (
	SecurityNone Security = iota
	SecurityWPA2PSK
)

func (s Security) String() string {
	if s == SecurityWPA2PSK {
		return "WPA2-PSK"
	}
	return "open"
}

// Band selects the frequency band of a request.
type Band int

const (
	BandAny Band = iota
	Band2_4GHz
	Band5GHz
)

func (b Band) String() string {
	switch b {
	case Band2_4GHz:
		return "2.4GHz"
	case Band5GHz:
		return "5GHz"
	default:
		return "any"
	}
}

// Bandwidth is the channel width of a request.
type Bandwidth int

const Bandwidth20MHz Bandwidth = 20

// ChannelAny lets the radio pick a channel.
const ChannelAny = 0

// ConnectRequest is a station-role connect request.
type ConnectRequest struct {
	SSID      string
	PSK       string
	Security  Security
	Channel   int
	Band      Band
	Bandwidth Bandwidth
}

// APRequest is an access-point enable request.
type APRequest struct {
	SSID      string
	Password  string
	Security  Security
	Channel   int
	Band      Band
	Bandwidth Bandwidth
}

// Interface is a platform network interface handle. Present is false until
// the platform has brought the interface up.
type Interface struct {
	Name    string
	Present bool
	MAC     net.HardwareAddr
}

// ScanResult is one network seen by a station scan.
type ScanResult struct {
	SSID    string
	RSSI    int
	Channel int
	Band    Band
}

// EventKind identifies a WiFi lifecycle event.
type EventKind uint32

const (
	EventConnectResult EventKind = 1 << iota
	EventDisconnectResult
	EventAPEnableResult
	EventAPDisableResult
	EventAPStationConnected
	EventAPStationDisconnected
)

// EventMask is the set of events a Manager listens for.
const EventMask = EventConnectResult | EventDisconnectResult |
	EventAPEnableResult | EventAPDisableResult |
	EventAPStationConnected | EventAPStationDisconnected

func (k EventKind) String() string {
	switch k {
	case EventConnectResult:
		return "connect_result"
	case EventDisconnectResult:
		return "disconnect_result"
	case EventAPEnableResult:
		return "ap_enable_result"
	case EventAPDisableResult:
		return "ap_disable_result"
	case EventAPStationConnected:
		return "ap_sta_connected"
	case EventAPStationDisconnected:
		return "ap_sta_disconnected"
	default:
		return "unknown"
	}
}

// Event is a notification from the platform network stack. Status is the
// platform result code (0 on success). MAC is set for AP station events;
// Addr carries the station address on a successful connect result when the
// platform knows it.
type Event struct {
	Kind   EventKind
	Iface  string
	Status int
	MAC    net.HardwareAddr
	Addr   netip.Addr
}

// Driver is the platform WiFi stack.
type Driver interface {
	StationInterface() Interface
	AccessPointInterface() Interface

	Connect(ctx context.Context, iface Interface, req ConnectRequest) error
	EnableAP(ctx context.Context, iface Interface, req APRequest) error
	DisableAP(ctx context.Context, iface Interface) error

	SetGateway(ctx context.Context, iface Interface, gw netip.Addr) error
	AddAddress(ctx context.Context, iface Interface, addr netip.Addr) error
	SetNetmask(ctx context.Context, iface Interface, mask netip.Addr) error
	StartDHCPServer(ctx context.Context, iface Interface, poolStart netip.Addr) error

	// Scan returns at most max networks seen from iface.
	Scan(ctx context.Context, iface Interface, max int) ([]ScanResult, error)

	// Subscribe registers cb for the events in mask. The callback may be
	// invoked from any goroutine.
	Subscribe(mask EventKind, cb func(Event)) (unsubscribe func())
}
