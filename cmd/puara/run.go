package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/puara/puara/internal/configstore"
	"github.com/puara/puara/internal/console"
	"github.com/puara/puara/internal/discovery"
	"github.com/puara/puara/internal/logging"
	"github.com/puara/puara/internal/storage"
	"github.com/puara/puara/internal/ui"
	"github.com/puara/puara/internal/version"
	"github.com/puara/puara/internal/wifi"
	"github.com/puara/puara/internal/wifi/simdriver"
)

const (
	statusInterval  = time.Second
	shutdownTimeout = 5 * time.Second
)

// Run command flags
var (
	runEphemeral   bool
	runMonitor     bool
	runStdin       bool
	runSerial      string
	runBaud        int
	runWebSocket   string
	runNoAdvertise bool
	simNetworks    []string
	simDelay       int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the module",
	Long: `Run the module: restore the network configuration, bring up the WiFi
station and access point, advertise the module over mDNS and serve the puara
console.

The console is served on the terminal, and optionally on a serial port
(--serial) and over WebSocket at /console (--websocket). Connectivity changes
are published to every console session as framed data lines.

The radio is the in-process simulated driver. Networks it can join are given
with --sim-network; when none are given the configured SSID and password are
accepted.`,
	Example: `  # Run with the terminal console
  puara run

  # Live status view instead of the console
  puara run --monitor

  # Serve the console on a USB serial adapter and WebSocket
  puara run --serial /dev/ttyUSB0 --websocket :8080

  # Try settings without touching the database
  puara run --ephemeral --sim-network studio=secret123`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&runEphemeral, "ephemeral", false, "Keep network settings in memory only")
	runCmd.Flags().BoolVar(&runMonitor, "monitor", false, "Show the live status view (disables the terminal console)")
	runCmd.Flags().BoolVar(&runStdin, "stdin", true, "Serve the console on standard input")
	runCmd.Flags().StringVar(&runSerial, "serial", "", "Serve the console on a serial device (overrides daemon.serial_port)")
	runCmd.Flags().IntVar(&runBaud, "baud", 0, "Serial baud rate (overrides daemon.baud_rate)")
	runCmd.Flags().StringVar(&runWebSocket, "websocket", "", "Serve the console over WebSocket on this address (overrides daemon.websocket_addr)")
	runCmd.Flags().BoolVar(&runNoAdvertise, "no-advertise", false, "Do not advertise the module over mDNS")
	runCmd.Flags().StringSliceVar(&simNetworks, "sim-network", nil, "Network visible to the simulated radio, as ssid=password (repeatable)")
	runCmd.Flags().IntVar(&simDelay, "sim-delay", 0, "Presence checks before the simulated interfaces appear")

	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintBanner(version.Version)

	store, closeStore, err := bootStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	reg, settingsPath, err := loadSettings()
	if err != nil {
		return err
	}
	logging.Info("User settings loaded",
		zap.String("path", settingsPath),
		zap.Int("count", reg.Len()),
	)

	drv, err := simulatedRadio(store)
	if err != nil {
		return err
	}
	mgr := wifi.NewManager(drv, store, wifi.Options{ReadyTimeout: cfg.Daemon.ReadyTimeout})
	defer mgr.Close()

	rebootRequested := make(chan struct{}, 1)
	con := console.New(store, console.Options{
		Settings:     reg,
		SettingsFile: settingsPath,
		WiFi:         mgr,
		Reboot: func() {
			select {
			case rebootRequested <- struct{}{}:
			default:
			}
		},
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	goTask := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error("Task stopped", zap.String("task", name), zap.Error(err))
			}
		}()
	}

	goTask("events", func() error { return mgr.Run(runCtx) })
	goTask("wifi", func() error { return mgr.StartWifi(runCtx) })
	goTask("status", func() error { return publishStatus(runCtx, mgr, con) })

	if cfg.Daemon.Advertise && !runNoAdvertise {
		advertise(runCtx, mgr.DeviceName(), store)
	}

	if port := firstNonEmpty(runSerial, cfg.Daemon.SerialPort); port != "" {
		baud := runBaud
		if baud == 0 {
			baud = cfg.Daemon.BaudRate
		}
		goTask("serial", func() error { return con.ServeSerial(runCtx, port, baud) })
	}

	if addr := firstNonEmpty(runWebSocket, cfg.Daemon.WebSocketAddr); addr != "" {
		srv := console.NewServer(con, addr)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logging.Warn("WebSocket console shutdown failed", zap.Error(err))
			}
		}()
	}

	monitorDone := make(chan error, 1)
	switch {
	case runMonitor:
		go func() {
			monitorDone <- ui.RunMonitor(runCtx, mgr, ui.MonitorOptions{
				Interval: 500 * time.Millisecond,
				Scan: func() error {
					_, err := mgr.Scan(runCtx)
					return err
				},
				Version: version.Version,
			})
		}()
	case runStdin:
		// the stdin reader cannot be interrupted, so it is not waited for
		go func() {
			if err := con.Serve(runCtx, os.Stdin, cmd.OutOrStdout(), console.TransportStdio, "tty"); err != nil &&
				!errors.Is(err, context.Canceled) {
				logging.Warn("Terminal console stopped", zap.Error(err))
			}
		}()
	}

	reboot := false
	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received")
	case err := <-monitorDone:
		if err != nil {
			logging.Error("Status monitor failed", zap.Error(err))
		}
	case <-rebootRequested:
		logging.Info("Rebooting")
		reboot = true
	}

	cancel()
	wg.Wait()
	if reboot {
		closeStore()
		logging.Sync()
		return restartProcess()
	}
	return nil
}

// bootStore opens the configuration store for a run.
func bootStore(ctx context.Context) (*configstore.Store, func(), error) {
	if !runEphemeral {
		return openStore(ctx)
	}
	store := configstore.New(storage.NewMemory())
	if err := store.Restore(ctx); err != nil {
		return nil, nil, err
	}
	store.SetDeviceName(cfg.Identity.DeviceName())
	logging.Info("Network settings are kept in memory only")
	return store, func() {}, nil
}

// simulatedRadio builds the simulated driver and the networks it can see.
func simulatedRadio(store *configstore.Store) (*simdriver.Driver, error) {
	drv := simdriver.New()
	if len(simNetworks) == 0 {
		drv.AddNetwork(store.Text(configstore.DeviceSSID), store.Text(configstore.StaPassword), -50, 6)
	}
	for i, network := range simNetworks {
		ssid, psk, ok := strings.Cut(network, "=")
		if !ok || ssid == "" {
			return nil, fmt.Errorf("invalid --sim-network %q (want ssid=password)", network)
		}
		drv.AddNetwork(ssid, psk, -45-5*i, 1+5*(i%3))
	}
	if simDelay > 0 {
		drv.DelayInterfaces(simDelay, simDelay)
	}
	return drv, nil
}

func advertise(ctx context.Context, name string, store *configstore.Store) {
	txt := map[string]string{
		"device":  cfg.Identity.Device,
		"id":      strconv.Itoa(cfg.Identity.ID),
		"version": version.Version,
	}
	if cfg.Identity.Author != "" {
		txt["author"] = cfg.Identity.Author
	}
	if cfg.Identity.Institution != "" {
		txt["institution"] = cfg.Identity.Institution
	}
	if _, err := discovery.Advertise(ctx, name, int(store.Uint(configstore.LocalPort)), txt); err != nil {
		logging.Warn("mDNS advertisement unavailable", zap.Error(err))
	}
}

// publishStatus sends a data line to the console sessions whenever the
// connectivity state changes.
func publishStatus(ctx context.Context, mgr *wifi.Manager, con *console.Console) error {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	var last string
	for {
		st := mgr.State()
		line := fmt.Sprintf("station=%s ap=%s sta_connected=%t ap_enabled=%t", st.Station, st.AP, st.StaConnected, st.APEnabled)
		if line != last {
			con.Publish(line)
			last = line
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
