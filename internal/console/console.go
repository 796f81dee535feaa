package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/puara/puara/internal/configstore"
	"github.com/puara/puara/internal/logging"
	"github.com/puara/puara/internal/settings"
	"github.com/puara/puara/internal/wifi"
)

const (
	// DataStart and DataEnd frame data lines sent to a host, so a serial
	// monitor can tell them from command output.
	DataStart = "<<<"
	DataEnd   = ">>>"

	// DefaultRebootDelay is the pause between the reboot reply and the reboot.
	DefaultRebootDelay = 3 * time.Second
)

// Connectivity is the part of the WiFi manager the shell drives.
type Connectivity interface {
	StartWifi(ctx context.Context) error
	StationConnect(ctx context.Context) error
	APConnect(ctx context.Context) error
	APDisconnect(ctx context.Context) error
	Scan(ctx context.Context) ([]wifi.ScanResult, error)
	State() wifi.Status
	DeviceName() string
}

// Options configures a Console.
type Options struct {
	// Settings is the user settings registry served by "var". Nil disables it.
	Settings *settings.Registry
	// SettingsFile is where "var save" writes the registry.
	SettingsFile string
	// WiFi is the connectivity manager served by "wifi". Nil disables it.
	WiFi Connectivity
	// DeviceName answers "whoareyou" when WiFi is nil.
	DeviceName string
	// Reboot restarts the module. Nil disables "reboot".
	Reboot      func()
	RebootDelay time.Duration
}

// Console is the module's command shell. One Console serves any number of
// sessions on different transports.
type Console struct {
	store *configstore.Store
	opts  Options

	mu       sync.Mutex
	sessions map[*session]struct{}
	reboot   *time.Timer
}

// New creates a console over store.
func New(store *configstore.Store, opts Options) *Console {
	if opts.RebootDelay <= 0 {
		opts.RebootDelay = DefaultRebootDelay
	}
	return &Console{
		store:    store,
		opts:     opts,
		sessions: make(map[*session]struct{}),
	}
}

// session is one connected shell.
type session struct {
	transport string
	remote    string

	mu sync.Mutex
	w  io.Writer
}

func (s *session) writeLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, line+"\n")
	return err
}

func (c *Console) addSession(s *session) {
	c.mu.Lock()
	c.sessions[s] = struct{}{}
	n := len(c.sessions)
	c.mu.Unlock()
	logging.Info("Console session opened",
		zap.String("transport", s.transport),
		zap.String("remote", s.remote),
		zap.Int("sessions", n),
	)
}

func (c *Console) removeSession(s *session) {
	c.mu.Lock()
	delete(c.sessions, s)
	c.mu.Unlock()
	logging.Info("Console session closed",
		zap.String("transport", s.transport),
		zap.String("remote", s.remote),
	)
}

// Sessions returns the number of open sessions.
func (c *Console) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Publish sends a framed data line to every open session.
func (c *Console) Publish(data string) {
	c.mu.Lock()
	targets := make([]*session, 0, len(c.sessions))
	for s := range c.sessions {
		targets = append(targets, s)
	}
	c.mu.Unlock()

	for _, s := range targets {
		if err := s.writeLine(Frame(data)); err != nil {
			logging.Debug("Failed to publish data",
				zap.String("transport", s.transport),
				zap.String("remote", s.remote),
				zap.Error(err),
			)
		}
	}
}

// Frame wraps data in the data-line markers.
func Frame(data string) string {
	return DataStart + data + DataEnd
}

// SendData writes one framed data line to w.
func SendData(w io.Writer, data string) error {
	_, err := fmt.Fprintln(w, Frame(data))
	return err
}

// scheduleReboot runs the reboot hook after the configured delay. A second
// request while one is pending is ignored.
func (c *Console) scheduleReboot() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reboot != nil {
		return false
	}
	c.reboot = time.AfterFunc(c.opts.RebootDelay, c.opts.Reboot)
	return true
}

// CancelReboot stops a pending reboot.
func (c *Console) CancelReboot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reboot != nil {
		c.reboot.Stop()
		c.reboot = nil
	}
}

func (c *Console) deviceName() string {
	if c.opts.WiFi != nil {
		return c.opts.WiFi.DeviceName()
	}
	if c.opts.DeviceName != "" {
		return c.opts.DeviceName
	}
	if name := c.store.DeviceName(); name != "" {
		return name
	}
	return wifi.FallbackName
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n")
}
