package wifi

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/puara/puara/internal/configstore"
	"github.com/puara/puara/internal/errdefs"
	"github.com/puara/puara/internal/logging"
)

const (
	// FallbackName replaces an empty device name or station SSID.
	FallbackName = "Puara"
	// FallbackAPPassword replaces an AP password the radio would reject.
	FallbackAPPassword = "password"
	// MinPassphraseLength is the shortest WPA2 passphrase the radio accepts.
	MinPassphraseLength = 8
	// MaxScanResults bounds a station scan.
	MaxScanResults = 20

	DefaultPollInterval = 100 * time.Millisecond

	dhcpPoolOffset = 10
)

var (
	APAddress = netip.MustParseAddr("192.168.4.1")
	APNetmask = netip.MustParseAddr("255.255.255.0")
)

var errAPDown = errors.New("access point went down during DHCP setup")

// ConfigSource is the part of the configuration store the manager reads.
type ConfigSource interface {
	Text(f configstore.Field) string
	Uint(f configstore.Field) uint32
	DeviceName() string
}

// Options tunes a Manager.
type Options struct {
	// ReadyTimeout bounds the wait for the station and AP interfaces.
	// Zero waits until the StartWifi context is done.
	ReadyTimeout time.Duration
	// PollInterval is how often interface presence is checked.
	PollInterval time.Duration
	// EventQueue is the capacity of the event bridge.
	EventQueue int
}

// Manager drives the station and AP roles of a WiFi radio.
type Manager struct {
	driver Driver
	cfg    ConfigSource
	opts   Options

	bridge      *Bridge
	unsubscribe func()

	mu         sync.Mutex
	status     Status
	sta        Interface
	ap         Interface
	staReq     ConnectRequest
	apReq      APRequest
	configured bool
	scan       []ScanResult
}

// NewManager creates a manager and subscribes its event bridge to the
// driver. Events delivered before Run starts are queued.
func NewManager(driver Driver, cfg ConfigSource, opts Options) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	m := &Manager{
		driver: driver,
		cfg:    cfg,
		opts:   opts,
		bridge: NewBridge(opts.EventQueue),
	}
	m.unsubscribe = driver.Subscribe(EventMask, m.bridge.Deliver)
	return m
}

// Close detaches the manager from the driver's events.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Bridge returns the manager's event bridge.
func (m *Manager) Bridge() *Bridge { return m.bridge }

// Run applies delivered events until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-m.bridge.Events():
			m.HandleEvent(ctx, ev)
		}
	}
}

// StartWifi configures both roles from the configuration store, waits for
// the interfaces and submits the station connect and AP enable requests.
// A request the platform rejects is returned as a PlatformRequest error;
// interfaces that never appear yield Unready. Neither is retried.
func (m *Manager) StartWifi(ctx context.Context) error {
	m.mu.Lock()
	m.status.Station = ConfiguringRoles
	m.status.AP = ConfiguringRoles
	m.mu.Unlock()

	staReq, apReq := m.configureRoles()

	m.mu.Lock()
	m.staReq = staReq
	m.apReq = apReq
	m.status.DeviceName = apReq.SSID
	m.status.SSID = staReq.SSID
	m.mu.Unlock()

	logging.Info("Starting WiFi config",
		zap.String("ssid", staReq.SSID),
		zap.String("device", apReq.SSID),
	)

	sta, ap, err := m.waitForInterfaces(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.sta = sta
	m.ap = ap
	m.status.StaMAC = sta.MAC
	m.status.APMAC = ap.MAC
	m.configured = true
	m.mu.Unlock()

	return errors.Join(m.StationConnect(ctx), m.APConnect(ctx))
}

// configureRoles builds the connect and AP requests, replacing values the
// radio would refuse.
func (m *Manager) configureRoles() (ConnectRequest, APRequest) {
	name := m.cfg.DeviceName()
	if name == "" {
		logging.Info("Module name unpopulated, using default name", zap.String("name", FallbackName))
		name = FallbackName
	}

	apPassword := m.cfg.Text(configstore.APPassword)
	if len(apPassword) < MinPassphraseLength {
		logging.Warn("AP password is missing or shorter than 8 characters, using default AP password; it is strongly recommended to change it",
			zap.Int("length", len(apPassword)),
		)
		apPassword = FallbackAPPassword
	}

	ssid := m.cfg.Text(configstore.DeviceSSID)
	if ssid == "" {
		logging.Warn("No blank SSID allowed, using default name", zap.String("ssid", FallbackName))
		ssid = FallbackName
	}

	sta := ConnectRequest{
		SSID:      ssid,
		PSK:       m.cfg.Text(configstore.StaPassword),
		Security:  SecurityWPA2PSK,
		Channel:   ChannelAny,
		Band:      BandAny,
		Bandwidth: Bandwidth20MHz,
	}
	ap := APRequest{
		SSID:      name,
		Password:  apPassword,
		Security:  SecurityWPA2PSK,
		Channel:   ChannelAny,
		Band:      Band2_4GHz,
		Bandwidth: Bandwidth20MHz,
	}
	return sta, ap
}

func (m *Manager) waitForInterfaces(ctx context.Context) (Interface, Interface, error) {
	if m.opts.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.ReadyTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		sta := m.driver.StationInterface()
		ap := m.driver.AccessPointInterface()
		if sta.Present && ap.Present {
			logging.Info("WiFi interfaces initialized",
				zap.String("sta", sta.Name),
				zap.String("ap", ap.Name),
			)
			return sta, ap, nil
		}

		missing := "station"
		if sta.Present {
			missing = "access point"
		}
		logging.Debug("Waiting for WiFi interface", zap.String("role", missing))

		select {
		case <-ctx.Done():
			logging.Error("WiFi interface never became present", zap.String("role", missing))
			return Interface{}, Interface{}, errdefs.NewUnreadyError(missing,
				fmt.Sprintf("interface not present: %v", ctx.Err()))
		case <-ticker.C:
		}
	}
}

// StationConnect submits the configured station connect request. The
// outcome arrives later as an event; a rejected submission leaves the
// station in ConnectingStation.
func (m *Manager) StationConnect(ctx context.Context) error {
	m.mu.Lock()
	if !m.configured {
		m.mu.Unlock()
		return errdefs.NewUnreadyError("station", "roles not configured, start WiFi first")
	}
	iface, req := m.sta, m.staReq
	m.status.Station = ConnectingStation
	m.mu.Unlock()

	if err := m.driver.Connect(ctx, iface, req); err != nil {
		logging.Error("Unable to connect", zap.String("ssid", req.SSID), zap.Error(err))
		return errdefs.NewPlatformRequestError(iface.Name, "connect request rejected", err)
	}
	logging.Info("Station connect requested",
		zap.String("ssid", req.SSID),
		zap.Stringer("security", req.Security),
	)
	return nil
}

// APConnect submits the configured AP enable request and, once accepted,
// sets up the DHCP pool. A pool failure leaves the AP enabled but unserved.
func (m *Manager) APConnect(ctx context.Context) error {
	m.mu.Lock()
	if !m.configured {
		m.mu.Unlock()
		return errdefs.NewUnreadyError("access point", "roles not configured, start WiFi first")
	}
	iface, req := m.ap, m.apReq
	m.status.AP = ApEnabling
	m.mu.Unlock()

	if err := m.driver.EnableAP(ctx, iface, req); err != nil {
		logging.Error("AP enable request failed", zap.String("ssid", req.SSID), zap.Error(err))
		return errdefs.NewPlatformRequestError(iface.Name, "AP enable request rejected", err)
	}

	m.mu.Lock()
	// A disable result may already have been applied.
	up := m.apUpLocked()
	if up {
		m.status.APEnabled = true
	}
	m.mu.Unlock()
	if !up {
		logging.Info("AP disabled before DHCP setup, skipping pool")
		return nil
	}

	err := m.startDHCPServer(ctx, iface)

	m.mu.Lock()
	up = m.apUpLocked()
	if up {
		m.status.APUnserved = err != nil
	}
	m.mu.Unlock()

	switch {
	case !up:
		logging.Info("AP disabled during DHCP setup")
	case err != nil:
		logging.Warn("AP enabled but unserved, stations will not receive addresses", zap.Error(err))
	}
	return nil
}

// apUpLocked reports whether the AP is enabling or active. m.mu must be held.
func (m *Manager) apUpLocked() bool {
	return m.status.AP == ApEnabling || m.status.AP == ApActive
}

func (m *Manager) startDHCPServer(ctx context.Context, iface Interface) error {
	if err := m.driver.SetGateway(ctx, iface, APAddress); err != nil {
		return fmt.Errorf("set gateway %s: %w", APAddress, err)
	}
	if err := m.driver.AddAddress(ctx, iface, APAddress); err != nil {
		return fmt.Errorf("unable to set IP address for AP interface: %w", err)
	}
	m.mu.Lock()
	up := m.apUpLocked()
	if up {
		m.status.APIP = APAddress
	}
	m.mu.Unlock()
	if !up {
		return errAPDown
	}
	if err := m.driver.SetNetmask(ctx, iface, APNetmask); err != nil {
		return fmt.Errorf("unable to set netmask %s for AP interface: %w", APNetmask, err)
	}
	pool := PoolStart(APAddress)
	if err := m.driver.StartDHCPServer(ctx, iface, pool); err != nil {
		return fmt.Errorf("DHCP server not started at %s: %w", pool, err)
	}
	logging.Info("DHCPv4 server started", zap.Stringer("pool_start", pool))
	return nil
}

// PoolStart returns the first DHCP pool address for an AP address.
func PoolStart(addr netip.Addr) netip.Addr {
	b := addr.As4()
	b[3] += dhcpPoolOffset
	return netip.AddrFrom4(b)
}

// APDisconnect asks the platform to disable the AP. apEnabled clears when
// the disable result event arrives.
func (m *Manager) APDisconnect(ctx context.Context) error {
	m.mu.Lock()
	iface := m.ap
	m.mu.Unlock()
	if iface.Name == "" {
		iface = m.driver.AccessPointInterface()
	}

	if err := m.driver.DisableAP(ctx, iface); err != nil {
		logging.Error("AP disable request failed", zap.Error(err))
		return errdefs.NewPlatformRequestError(iface.Name, "AP disable request rejected", err)
	}
	logging.Info("AP disable requested")
	return nil
}

// Scan runs a station scan, bounded to MaxScanResults. It may run in any
// state and does not hold the state lock while the radio scans.
func (m *Manager) Scan(ctx context.Context) ([]ScanResult, error) {
	iface := m.driver.StationInterface()
	if !iface.Present {
		return nil, errdefs.NewUnreadyError("station", "interface not present")
	}

	results, err := m.driver.Scan(ctx, iface, MaxScanResults)
	if err != nil {
		logging.Error("WiFi scan failed", zap.Error(err))
		return nil, errdefs.NewPlatformRequestError(iface.Name, "scan request rejected", err)
	}
	if len(results) > MaxScanResults {
		logging.Debug("Truncating scan results",
			zap.Int("seen", len(results)),
			zap.Int("max", MaxScanResults),
		)
		results = results[:MaxScanResults]
	}
	logging.Info("WiFi scan complete", zap.Int("networks", len(results)))

	m.mu.Lock()
	m.scan = append([]ScanResult(nil), results...)
	m.mu.Unlock()
	return results, nil
}

// ScanResults returns the results of the last successful scan.
func (m *Manager) ScanResults() []ScanResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ScanResult(nil), m.scan...)
}

// HandleEvent applies one platform event.
func (m *Manager) HandleEvent(ctx context.Context, ev Event) {
	var fields []zap.Field
	if ev.Status != 0 {
		fields = append(fields, zap.Int("status", ev.Status))
	}
	if len(ev.MAC) > 0 {
		fields = append(fields, zap.Stringer("mac", ev.MAC))
	}
	logging.LogWiFiEvent(ev.Kind.String(), ev.Iface, fields...)

	disableAP := false

	m.mu.Lock()
	switch ev.Kind {
	case EventConnectResult:
		if ev.Status != 0 {
			m.status.StaConnected = false
			m.status.StaIP = netip.Addr{}
			logging.Warn("Station connect failed", zap.String("ssid", m.staReq.SSID), zap.Int("status", ev.Status))
			break
		}
		m.status.StaConnected = true
		m.status.Station = Connected
		m.status.StaIP = ev.Addr
		logging.Info("Connected", zap.String("ssid", m.staReq.SSID), zap.Stringer("ip", ev.Addr))
		disableAP = m.status.AP == ApActive && !m.persistentAP()

	case EventDisconnectResult:
		m.status.StaConnected = false
		m.status.Station = Disconnected
		m.status.StaIP = netip.Addr{}
		logging.Info("Disconnected", zap.String("ssid", m.staReq.SSID))

	case EventAPEnableResult:
		if ev.Status != 0 {
			logging.Warn("AP enable failed", zap.Int("status", ev.Status))
			break
		}
		if m.status.AP == ApEnabling {
			m.status.AP = ApActive
		}
		logging.Info("AP mode is enabled, waiting for station to connect")
		disableAP = m.status.StaConnected && !m.persistentAP()

	case EventAPDisableResult:
		m.status.APEnabled = false
		m.status.APUnserved = false
		m.status.AP = Disconnected
		m.status.APIP = netip.Addr{}
		logging.Info("AP mode is disabled")

	case EventAPStationConnected:
		logging.Info("Station joined AP", zap.Stringer("mac", ev.MAC))

	case EventAPStationDisconnected:
		logging.Info("Station left AP", zap.Stringer("mac", ev.MAC))
	}
	m.mu.Unlock()

	if disableAP {
		logging.Info("Station connected and AP is not persistent, disabling AP")
		if err := m.APDisconnect(ctx); err != nil {
			logging.Warn("Failed to disable non-persistent AP", zap.Error(err))
		}
	}
}

func (m *Manager) persistentAP() bool {
	return m.cfg.Uint(configstore.PersistentAP) != 0
}

// IsStationConnected reports whether the station role is associated.
func (m *Manager) IsStationConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.StaConnected
}

// IsStationMode reports whether the module runs as a station only, with
// the AP down.
func (m *Manager) IsStationMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.StaConnected && !m.status.APEnabled
}

// DeviceName returns the name the AP is advertised under.
func (m *Manager) DeviceName() string {
	m.mu.Lock()
	name := m.status.DeviceName
	m.mu.Unlock()
	if name != "" {
		return name
	}
	if name = m.cfg.DeviceName(); name != "" {
		return name
	}
	return FallbackName
}

// State returns a copy of the current connectivity state.
func (m *Manager) State() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status
	st.StaMAC = slices.Clone(st.StaMAC)
	st.APMAC = slices.Clone(st.APMAC)
	return st
}

// Requests returns the effective station and AP requests built by the last
// StartWifi.
func (m *Manager) Requests() (ConnectRequest, APRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staReq, m.apReq
}
