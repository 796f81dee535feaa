package wifi_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/puara/puara/internal/configstore"
	"github.com/puara/puara/internal/errdefs"
	"github.com/puara/puara/internal/logging"
	"github.com/puara/puara/internal/wifi"
	"github.com/puara/puara/internal/wifi/simdriver"
)

func newStore(t *testing.T, device string, values map[string]configstore.Value) *configstore.Store {
	t.Helper()
	store := configstore.New(nil)
	store.SetDeviceName(device)
	for name, v := range values {
		if err := store.Set(context.Background(), name, v); err != nil {
			t.Fatalf("Set(%s) error = %v", name, err)
		}
	}
	return store
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(zap.NewNop()) })
	return logs
}

func fastOptions() wifi.Options {
	return wifi.Options{ReadyTimeout: time.Second, PollInterval: time.Millisecond}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func runManager(t *testing.T, m *wifi.Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		m.Close()
	})
}

func TestStartWifi_Fallbacks(t *testing.T) {
	logs := observeLogs(t)
	store := newStore(t, "", map[string]configstore.Value{
		"SSID":     configstore.Text(""),
		"APpasswd": configstore.Text("ab"),
	})
	drv := simdriver.New()
	m := wifi.NewManager(drv, store, fastOptions())
	defer m.Close()

	for run := 1; run <= 2; run++ {
		if err := m.StartWifi(context.Background()); err != nil {
			t.Fatalf("run %d: StartWifi() error = %v", run, err)
		}

		sta, ap := m.Requests()
		if sta.SSID != wifi.FallbackName {
			t.Errorf("run %d: station SSID = %q, want %q", run, sta.SSID, wifi.FallbackName)
		}
		if ap.Password != wifi.FallbackAPPassword {
			t.Errorf("run %d: AP password = %q, want %q", run, ap.Password, wifi.FallbackAPPassword)
		}
		if ap.SSID != wifi.FallbackName || m.DeviceName() != wifi.FallbackName {
			t.Errorf("run %d: AP SSID = %q, DeviceName() = %q", run, ap.SSID, m.DeviceName())
		}

		var warnings []observer.LoggedEntry
		for _, e := range logs.TakeAll() {
			if e.Level == zapcore.WarnLevel {
				warnings = append(warnings, e)
			}
		}
		if len(warnings) != 2 {
			t.Fatalf("run %d: got %d warnings, want 2", run, len(warnings))
		}
		if warnings[0].Message == warnings[1].Message {
			t.Errorf("run %d: warnings should be distinct, both %q", run, warnings[0].Message)
		}
	}

	// Fallbacks apply to the radio only; stored values are untouched.
	if got, _ := store.Get("APpasswd"); got != "ab" {
		t.Errorf("stored APpasswd = %q, want %q", got, "ab")
	}
}

func TestStartWifi_SubmitsRequests(t *testing.T) {
	store := newStore(t, "T-Stick_042", map[string]configstore.Value{
		"SSID":     configstore.Text("studio"),
		"password": configstore.Text("secret-psk"),
		"APpasswd": configstore.Text("longenough"),
	})
	drv := simdriver.New()
	m := wifi.NewManager(drv, store, fastOptions())
	defer m.Close()

	if err := m.StartWifi(context.Background()); err != nil {
		t.Fatalf("StartWifi() error = %v", err)
	}

	conn, ok := drv.LastConnect()
	if !ok {
		t.Fatal("no connect request submitted")
	}
	wantConn := wifi.ConnectRequest{
		SSID:      "studio",
		PSK:       "secret-psk",
		Security:  wifi.SecurityWPA2PSK,
		Channel:   wifi.ChannelAny,
		Band:      wifi.BandAny,
		Bandwidth: wifi.Bandwidth20MHz,
	}
	if conn != wantConn {
		t.Errorf("connect request = %+v, want %+v", conn, wantConn)
	}

	ap, ok := drv.LastAP()
	if !ok {
		t.Fatal("no AP request submitted")
	}
	if ap.SSID != "T-Stick_042" || ap.Password != "longenough" || ap.Band != wifi.Band2_4GHz || ap.Channel != wifi.ChannelAny {
		t.Errorf("AP request = %+v", ap)
	}

	dhcp := drv.DHCP()
	if !dhcp.Running {
		t.Fatal("DHCP server not started")
	}
	if dhcp.Gateway != netip.MustParseAddr("192.168.4.1") || dhcp.Address != netip.MustParseAddr("192.168.4.1") {
		t.Errorf("gateway/address = %s/%s", dhcp.Gateway, dhcp.Address)
	}
	if dhcp.Netmask != netip.MustParseAddr("255.255.255.0") {
		t.Errorf("netmask = %s", dhcp.Netmask)
	}
	if dhcp.PoolStart != netip.MustParseAddr("192.168.4.11") {
		t.Errorf("pool start = %s", dhcp.PoolStart)
	}

	st := m.State()
	if st.Station != wifi.ConnectingStation || st.AP != wifi.ApEnabling {
		t.Errorf("states = %s/%s, want connecting_station/ap_enabling", st.Station, st.AP)
	}
	if !st.APEnabled || st.APUnserved {
		t.Errorf("APEnabled = %v, APUnserved = %v", st.APEnabled, st.APUnserved)
	}
	if st.StaConnected {
		t.Error("station must not be connected before the result event")
	}
}

func TestStationConnect_PlatformFailure(t *testing.T) {
	store := newStore(t, "dev_001", nil)
	drv := simdriver.New()
	drv.FailConnect(errors.New("radio busy"))
	m := wifi.NewManager(drv, store, fastOptions())
	defer m.Close()

	err := m.StartWifi(context.Background())
	if !errdefs.IsPlatformRequestError(err) {
		t.Fatalf("StartWifi() error = %v, want PlatformRequest", err)
	}

	st := m.State()
	if st.Station != wifi.ConnectingStation {
		t.Errorf("station state = %s, want connecting_station", st.Station)
	}
	if !st.APEnabled {
		t.Error("AP should still be enabled when only the station request fails")
	}

	drv.FailConnect(nil)
	if err := m.StationConnect(context.Background()); err != nil {
		t.Errorf("manual retry error = %v", err)
	}
}

func TestAPConnect_Failures(t *testing.T) {
	t.Run("enable rejected", func(t *testing.T) {
		drv := simdriver.New()
		drv.FailEnableAP(errors.New("no memory"))
		m := wifi.NewManager(drv, newStore(t, "dev_001", nil), fastOptions())
		defer m.Close()

		err := m.StartWifi(context.Background())
		if !errdefs.IsPlatformRequestError(err) {
			t.Fatalf("StartWifi() error = %v, want PlatformRequest", err)
		}
		st := m.State()
		if st.APEnabled {
			t.Error("APEnabled should stay false")
		}
		if drv.DHCP().Running {
			t.Error("DHCP must not start when the AP request fails")
		}
	})

	t.Run("dhcp unavailable", func(t *testing.T) {
		drv := simdriver.New()
		drv.FailDHCP(errors.New("pool exhausted"))
		m := wifi.NewManager(drv, newStore(t, "dev_001", nil), fastOptions())
		defer m.Close()

		if err := m.StartWifi(context.Background()); err != nil {
			t.Fatalf("StartWifi() error = %v", err)
		}
		st := m.State()
		if !st.APEnabled || !st.APUnserved {
			t.Errorf("APEnabled = %v, APUnserved = %v, want enabled but unserved", st.APEnabled, st.APUnserved)
		}
	})
}

// droppingDriver disables the AP partway through DHCP setup.
type droppingDriver struct {
	*simdriver.Driver
	m      *wifi.Manager
	atStep string
}

func (d *droppingDriver) drop(ctx context.Context, step string, iface wifi.Interface) {
	if step != d.atStep {
		return
	}
	_ = d.Driver.DisableAP(ctx, iface)
	d.m.HandleEvent(ctx, wifi.Event{Kind: wifi.EventAPDisableResult, Iface: iface.Name})
}

func (d *droppingDriver) SetGateway(ctx context.Context, iface wifi.Interface, gw netip.Addr) error {
	err := d.Driver.SetGateway(ctx, iface, gw)
	d.drop(ctx, "gateway", iface)
	return err
}

func (d *droppingDriver) SetNetmask(ctx context.Context, iface wifi.Interface, mask netip.Addr) error {
	err := d.Driver.SetNetmask(ctx, iface, mask)
	d.drop(ctx, "netmask", iface)
	return err
}

func TestAPConnect_DisabledDuringDHCPSetup(t *testing.T) {
	for _, step := range []string{"gateway", "netmask"} {
		t.Run(step, func(t *testing.T) {
			drv := &droppingDriver{Driver: simdriver.New(), atStep: step}
			m := wifi.NewManager(drv, newStore(t, "dev_001", nil), fastOptions())
			defer m.Close()
			drv.m = m

			if err := m.StartWifi(context.Background()); err != nil {
				t.Fatalf("StartWifi() error = %v", err)
			}
			st := m.State()
			if st.AP != wifi.Disconnected || st.APEnabled {
				t.Errorf("AP = %s, APEnabled = %v, want disconnected", st.AP, st.APEnabled)
			}
			if st.APIP.IsValid() {
				t.Errorf("APIP = %s on a downed AP", st.APIP)
			}
			if st.APUnserved {
				t.Error("APUnserved set on a downed AP")
			}
			if drv.DHCP().Running {
				t.Error("DHCP server running on a downed AP")
			}
		})
	}
}

func TestStartWifi_ReadinessWait(t *testing.T) {
	t.Run("interfaces appear", func(t *testing.T) {
		drv := simdriver.New()
		drv.DelayInterfaces(3, 5)
		m := wifi.NewManager(drv, newStore(t, "dev_001", nil), fastOptions())
		defer m.Close()

		if err := m.StartWifi(context.Background()); err != nil {
			t.Fatalf("StartWifi() error = %v", err)
		}
		if _, ok := drv.LastConnect(); !ok {
			t.Error("connect should be submitted once interfaces are present")
		}
	})

	t.Run("ap never appears", func(t *testing.T) {
		drv := simdriver.New()
		drv.DelayInterfaces(0, -1)
		opts := fastOptions()
		opts.ReadyTimeout = 30 * time.Millisecond
		m := wifi.NewManager(drv, newStore(t, "dev_001", nil), opts)
		defer m.Close()

		err := m.StartWifi(context.Background())
		if !errdefs.IsUnready(err) {
			t.Fatalf("StartWifi() error = %v, want Unready", err)
		}
		if _, ok := drv.LastConnect(); ok {
			t.Error("no request may be issued before the interfaces are present")
		}
	})

	t.Run("zero timeout follows context", func(t *testing.T) {
		drv := simdriver.New()
		drv.DelayInterfaces(-1, -1)
		opts := fastOptions()
		opts.ReadyTimeout = 0
		m := wifi.NewManager(drv, newStore(t, "dev_001", nil), opts)
		defer m.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := m.StartWifi(ctx); !errdefs.IsUnready(err) {
			t.Fatalf("StartWifi() error = %v, want Unready", err)
		}
	})
}

func TestRequestsBeforeStart(t *testing.T) {
	m := wifi.NewManager(simdriver.New(), newStore(t, "dev_001", nil), fastOptions())
	defer m.Close()

	if err := m.StationConnect(context.Background()); !errdefs.IsUnready(err) {
		t.Errorf("StationConnect() error = %v, want Unready", err)
	}
	if err := m.APConnect(context.Background()); !errdefs.IsUnready(err) {
		t.Errorf("APConnect() error = %v, want Unready", err)
	}
}

func TestHandleEvent_StationConnectDisconnect(t *testing.T) {
	store := newStore(t, "dev_001", map[string]configstore.Value{
		"persistentAP": configstore.Number(1),
	})
	m := wifi.NewManager(simdriver.New(), store, fastOptions())
	defer m.Close()
	ctx := context.Background()
	if err := m.StartWifi(ctx); err != nil {
		t.Fatalf("StartWifi() error = %v", err)
	}

	m.HandleEvent(ctx, wifi.Event{Kind: wifi.EventConnectResult})
	if !m.IsStationConnected() {
		t.Fatal("IsStationConnected() = false after connect result")
	}
	if m.State().Station != wifi.Connected {
		t.Errorf("station state = %s", m.State().Station)
	}
	if m.IsStationMode() {
		t.Error("IsStationMode() should be false while the persistent AP is enabled")
	}

	m.HandleEvent(ctx, wifi.Event{Kind: wifi.EventDisconnectResult})
	if m.IsStationConnected() {
		t.Fatal("IsStationConnected() = true after disconnect result")
	}
	if m.State().Station != wifi.Disconnected {
		t.Errorf("station state = %s", m.State().Station)
	}
}

func TestHandleEvent_FailedConnectResult(t *testing.T) {
	m := wifi.NewManager(simdriver.New(), newStore(t, "dev_001", nil), fastOptions())
	defer m.Close()
	ctx := context.Background()
	if err := m.StartWifi(ctx); err != nil {
		t.Fatalf("StartWifi() error = %v", err)
	}

	m.HandleEvent(ctx, wifi.Event{Kind: wifi.EventConnectResult, Status: simdriver.StatusAuthFailed})
	if m.IsStationConnected() {
		t.Error("a failed connect result must not mark the station connected")
	}
	if m.State().Station != wifi.ConnectingStation {
		t.Errorf("station state = %s, want connecting_station", m.State().Station)
	}
}

func TestHandleEvent_APLifecycle(t *testing.T) {
	store := newStore(t, "dev_001", map[string]configstore.Value{
		"persistentAP": configstore.Number(1),
	})
	m := wifi.NewManager(simdriver.New(), store, fastOptions())
	defer m.Close()
	ctx := context.Background()
	if err := m.StartWifi(ctx); err != nil {
		t.Fatalf("StartWifi() error = %v", err)
	}

	m.HandleEvent(ctx, wifi.Event{Kind: wifi.EventAPEnableResult})
	st := m.State()
	if st.AP != wifi.ApActive {
		t.Errorf("AP state = %s, want ap_active", st.AP)
	}
	if !st.APEnabled {
		t.Error("APEnabled should still be set")
	}

	mac, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	before := m.State()
	m.HandleEvent(ctx, wifi.Event{Kind: wifi.EventAPStationConnected, MAC: mac})
	m.HandleEvent(ctx, wifi.Event{Kind: wifi.EventAPStationDisconnected, MAC: mac})
	if !reflect.DeepEqual(m.State(), before) {
		t.Error("AP station events must not change state")
	}

	m.HandleEvent(ctx, wifi.Event{Kind: wifi.EventAPDisableResult})
	st = m.State()
	if st.APEnabled || st.AP != wifi.Disconnected {
		t.Errorf("after disable: APEnabled = %v, AP = %s", st.APEnabled, st.AP)
	}
}

func TestRun_AppliesDeliveredEvents(t *testing.T) {
	store := newStore(t, "dev_001", map[string]configstore.Value{
		"SSID":         configstore.Text("studio"),
		"password":     configstore.Text("secret-psk"),
		"persistentAP": configstore.Number(1),
	})
	drv := simdriver.New()
	drv.AddNetwork("studio", "secret-psk", -40, 6)
	m := wifi.NewManager(drv, store, fastOptions())
	runManager(t, m)

	if err := m.StartWifi(context.Background()); err != nil {
		t.Fatalf("StartWifi() error = %v", err)
	}
	waitFor(t, "station connected", m.IsStationConnected)
	waitFor(t, "AP active", func() bool { return m.State().AP == wifi.ApActive })

	drv.Disconnect()
	waitFor(t, "station disconnected", func() bool { return !m.IsStationConnected() })
}

func TestRun_NonPersistentAPShutsDown(t *testing.T) {
	store := newStore(t, "dev_001", map[string]configstore.Value{
		"SSID":     configstore.Text("studio"),
		"password": configstore.Text("secret-psk"),
	})
	drv := simdriver.New()
	drv.AddNetwork("studio", "secret-psk", -40, 6)
	m := wifi.NewManager(drv, store, fastOptions())
	runManager(t, m)

	if err := m.StartWifi(context.Background()); err != nil {
		t.Fatalf("StartWifi() error = %v", err)
	}
	waitFor(t, "station-only mode", func() bool {
		return m.IsStationMode() && m.State().AP == wifi.Disconnected
	})
	if drv.APUp() {
		t.Error("AP should be disabled on the radio")
	}
}

func TestScan(t *testing.T) {
	drv := simdriver.New()
	for i := 0; i < 25; i++ {
		drv.AddNetwork(fmt.Sprintf("net-%02d", i), "", -30-i, 1+i%11)
	}
	m := wifi.NewManager(drv, newStore(t, "dev_001", nil), fastOptions())
	defer m.Close()

	results, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(results) != wifi.MaxScanResults {
		t.Errorf("Scan() returned %d results, want %d", len(results), wifi.MaxScanResults)
	}
	if len(m.ScanResults()) != wifi.MaxScanResults {
		t.Errorf("ScanResults() = %d entries", len(m.ScanResults()))
	}
	if m.State().Station != wifi.Idle {
		t.Error("scan must not change the connectivity state")
	}

	drv.FailScan(errors.New("busy"))
	if _, err := m.Scan(context.Background()); !errdefs.IsPlatformRequestError(err) {
		t.Errorf("Scan() error = %v, want PlatformRequest", err)
	}
	if len(m.ScanResults()) != wifi.MaxScanResults {
		t.Error("a failed scan should keep the previous results")
	}
}

func TestPoolStart(t *testing.T) {
	if got := wifi.PoolStart(netip.MustParseAddr("192.168.4.1")); got.String() != "192.168.4.11" {
		t.Errorf("PoolStart() = %s", got)
	}
}

func TestDeviceName_BeforeStart(t *testing.T) {
	m := wifi.NewManager(simdriver.New(), newStore(t, "", nil), fastOptions())
	defer m.Close()
	if got := m.DeviceName(); got != wifi.FallbackName {
		t.Errorf("DeviceName() = %q, want %q", got, wifi.FallbackName)
	}
}

func TestStatus_Addressing(t *testing.T) {
	store := newStore(t, "dev_001", map[string]configstore.Value{
		"SSID":         configstore.Text("studio"),
		"password":     configstore.Text("secret-psk"),
		"persistentAP": configstore.Number(1),
	})
	drv := simdriver.New()
	drv.AddNetwork("studio", "secret-psk", -40, 6)
	m := wifi.NewManager(drv, store, fastOptions())
	runManager(t, m)

	if err := m.StartWifi(context.Background()); err != nil {
		t.Fatalf("StartWifi() error = %v", err)
	}
	waitFor(t, "station connected", m.IsStationConnected)

	st := m.State()
	if st.StaIP != simdriver.StationAddr {
		t.Errorf("StaIP = %s, want %s", st.StaIP, simdriver.StationAddr)
	}
	if st.StaMAC.String() != simdriver.StationMAC.String() || st.APMAC.String() != simdriver.AccessPointMAC.String() {
		t.Errorf("MACs = %s/%s", st.StaMAC, st.APMAC)
	}
	if st.APIP != wifi.APAddress {
		t.Errorf("APIP = %s, want %s", st.APIP, wifi.APAddress)
	}

	// the copy is detached from the manager
	st.StaMAC[0] = 0xff
	if m.State().StaMAC[0] == 0xff {
		t.Error("State() shares the MAC buffer")
	}

	drv.Disconnect()
	waitFor(t, "station disconnected", func() bool { return !m.IsStationConnected() })
	if m.State().StaIP.IsValid() {
		t.Errorf("StaIP = %s after disconnect", m.State().StaIP)
	}
}
