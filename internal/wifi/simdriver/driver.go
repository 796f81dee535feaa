// Package simdriver is an in-process WiFi radio for running the module
// without hardware. It answers requests the way a platform stack does:
// requests return immediately and their outcome is delivered later as an
// event to subscribers.
package simdriver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"

	"github.com/puara/puara/internal/wifi"
)

// StatusAuthFailed is the event status reported for a wrong passphrase or
// an unknown network.
const StatusAuthFailed = 1

// Addressing of the simulated radio.
var (
	StationMAC     = net.HardwareAddr{0x02, 0x70, 0x75, 0x61, 0x00, 0x01}
	AccessPointMAC = net.HardwareAddr{0x02, 0x70, 0x75, 0x61, 0x00, 0x02}
	// StationAddr is the address the simulated upstream network leases.
	StationAddr = netip.MustParseAddr("192.168.137.50")
)

type subscriber struct {
	mask wifi.EventKind
	cb   func(wifi.Event)
}

// DHCPConfig is the addressing applied to the AP interface.
type DHCPConfig struct {
	Gateway   netip.Addr
	Address   netip.Addr
	Netmask   netip.Addr
	PoolStart netip.Addr
	Running   bool
}

// Driver is a simulated radio with a station and an AP interface.
type Driver struct {
	mu sync.Mutex

	sta wifi.Interface
	ap  wifi.Interface
	// polls before each interface reports present
	staDelay int
	apDelay  int

	networks map[string]string
	visible  []wifi.ScanResult

	subs   map[int]subscriber
	nextID int

	connectErr error
	enableErr  error
	disableErr error
	dhcpErr    error
	scanErr    error

	lastConnect *wifi.ConnectRequest
	lastAP      *wifi.APRequest
	dhcp        DHCPConfig
	apUp        bool
	stations    []net.HardwareAddr
}

// New returns a radio whose interfaces are present immediately.
func New() *Driver {
	return &Driver{
		sta:      wifi.Interface{Name: "wlan0", Present: true, MAC: StationMAC},
		ap:       wifi.Interface{Name: "ap0", Present: true, MAC: AccessPointMAC},
		networks: make(map[string]string),
		subs:     make(map[int]subscriber),
	}
}

// DelayInterfaces makes the station and AP interfaces absent for the given
// number of presence checks. A negative count keeps one absent forever.
func (d *Driver) DelayInterfaces(sta, ap int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staDelay, d.apDelay = sta, ap
	d.sta.Present = sta == 0
	d.ap.Present = ap == 0
}

// AddNetwork makes a network visible to scans and joinable with psk.
func (d *Driver) AddNetwork(ssid, psk string, rssi, channel int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.networks[ssid] = psk
	d.visible = append(d.visible, wifi.ScanResult{
		SSID:    ssid,
		RSSI:    rssi,
		Channel: channel,
		Band:    wifi.Band2_4GHz,
	})
}

// FailConnect makes Connect reject requests with err (nil clears).
func (d *Driver) FailConnect(err error) { d.setErr(&d.connectErr, err) }

// FailEnableAP makes EnableAP reject requests with err.
func (d *Driver) FailEnableAP(err error) { d.setErr(&d.enableErr, err) }

// FailDisableAP makes DisableAP reject requests with err.
func (d *Driver) FailDisableAP(err error) { d.setErr(&d.disableErr, err) }

// FailDHCP makes StartDHCPServer fail with err.
func (d *Driver) FailDHCP(err error) { d.setErr(&d.dhcpErr, err) }

// FailScan makes Scan fail with err.
func (d *Driver) FailScan(err error) { d.setErr(&d.scanErr, err) }

func (d *Driver) setErr(dst *error, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	*dst = err
}

func (d *Driver) StationInterface() wifi.Interface {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staDelay, d.sta.Present = tick(d.staDelay, d.sta.Present)
	return d.sta
}

func (d *Driver) AccessPointInterface() wifi.Interface {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.apDelay, d.ap.Present = tick(d.apDelay, d.ap.Present)
	return d.ap
}

func tick(delay int, present bool) (int, bool) {
	if present || delay < 0 {
		return delay, present
	}
	delay--
	return delay, delay <= 0
}

// Connect accepts the request and reports the association result: success
// when the network is known and the passphrase matches.
func (d *Driver) Connect(ctx context.Context, iface wifi.Interface, req wifi.ConnectRequest) error {
	d.mu.Lock()
	if d.connectErr != nil {
		err := d.connectErr
		d.mu.Unlock()
		return err
	}
	d.lastConnect = &req
	psk, known := d.networks[req.SSID]
	d.mu.Unlock()

	ev := wifi.Event{Kind: wifi.EventConnectResult, Iface: iface.Name, Addr: StationAddr}
	if !known || psk != req.PSK {
		ev.Status = StatusAuthFailed
		ev.Addr = netip.Addr{}
	}
	d.Emit(ev)
	return nil
}

// Disconnect drops the station association.
func (d *Driver) Disconnect() {
	d.Emit(wifi.Event{Kind: wifi.EventDisconnectResult, Iface: d.sta.Name})
}

func (d *Driver) EnableAP(ctx context.Context, iface wifi.Interface, req wifi.APRequest) error {
	d.mu.Lock()
	if d.enableErr != nil {
		err := d.enableErr
		d.mu.Unlock()
		return err
	}
	if len(req.Password) < wifi.MinPassphraseLength {
		d.mu.Unlock()
		return errors.New("passphrase too short")
	}
	d.lastAP = &req
	d.apUp = true
	d.mu.Unlock()

	d.Emit(wifi.Event{Kind: wifi.EventAPEnableResult, Iface: iface.Name})
	return nil
}

func (d *Driver) DisableAP(ctx context.Context, iface wifi.Interface) error {
	d.mu.Lock()
	if d.disableErr != nil {
		err := d.disableErr
		d.mu.Unlock()
		return err
	}
	d.apUp = false
	d.dhcp.Running = false
	d.stations = nil
	d.mu.Unlock()

	d.Emit(wifi.Event{Kind: wifi.EventAPDisableResult, Iface: iface.Name})
	return nil
}

func (d *Driver) SetGateway(ctx context.Context, iface wifi.Interface, gw netip.Addr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dhcp.Gateway = gw
	return nil
}

func (d *Driver) AddAddress(ctx context.Context, iface wifi.Interface, addr netip.Addr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dhcp.Address = addr
	return nil
}

func (d *Driver) SetNetmask(ctx context.Context, iface wifi.Interface, mask netip.Addr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dhcp.Netmask = mask
	return nil
}

func (d *Driver) StartDHCPServer(ctx context.Context, iface wifi.Interface, poolStart netip.Addr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dhcpErr != nil {
		return d.dhcpErr
	}
	if !d.apUp {
		return errors.New("access point is down")
	}
	d.dhcp.PoolStart = poolStart
	d.dhcp.Running = true
	return nil
}

// Scan reports every visible network; the simulated radio does not apply
// max itself.
func (d *Driver) Scan(ctx context.Context, iface wifi.Interface, max int) ([]wifi.ScanResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scanErr != nil {
		return nil, d.scanErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]wifi.ScanResult(nil), d.visible...), nil
}

func (d *Driver) Subscribe(mask wifi.EventKind, cb func(wifi.Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.subs[id] = subscriber{mask: mask, cb: cb}
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// Emit delivers ev to every subscriber whose mask includes it.
func (d *Driver) Emit(ev wifi.Event) {
	d.mu.Lock()
	var targets []func(wifi.Event)
	for _, s := range d.subs {
		if s.mask&ev.Kind != 0 {
			targets = append(targets, s.cb)
		}
	}
	d.mu.Unlock()

	for _, cb := range targets {
		cb(ev)
	}
}

// JoinStation simulates a client associating with the AP.
func (d *Driver) JoinStation(mac net.HardwareAddr) {
	d.mu.Lock()
	d.stations = append(d.stations, mac)
	iface := d.ap.Name
	d.mu.Unlock()
	d.Emit(wifi.Event{Kind: wifi.EventAPStationConnected, Iface: iface, MAC: mac})
}

// LeaveStation simulates a client leaving the AP.
func (d *Driver) LeaveStation(mac net.HardwareAddr) {
	d.mu.Lock()
	for i, m := range d.stations {
		if m.String() == mac.String() {
			d.stations = append(d.stations[:i], d.stations[i+1:]...)
			break
		}
	}
	iface := d.ap.Name
	d.mu.Unlock()
	d.Emit(wifi.Event{Kind: wifi.EventAPStationDisconnected, Iface: iface, MAC: mac})
}

// LastConnect returns the most recent accepted connect request.
func (d *Driver) LastConnect() (wifi.ConnectRequest, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastConnect == nil {
		return wifi.ConnectRequest{}, false
	}
	return *d.lastConnect, true
}

// LastAP returns the most recent accepted AP request.
func (d *Driver) LastAP() (wifi.APRequest, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastAP == nil {
		return wifi.APRequest{}, false
	}
	return *d.lastAP, true
}

// DHCP returns the AP addressing state.
func (d *Driver) DHCP() DHCPConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dhcp
}

// APUp reports whether the AP is enabled.
func (d *Driver) APUp() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apUp
}
