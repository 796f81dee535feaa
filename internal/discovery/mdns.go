package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/puara/puara/internal/logging"
)

const (
	// ServiceType is the mDNS service type Puara modules advertise
	ServiceType = "_osc._udp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default browse duration
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the OSC port assumed when an entry carries none
	DefaultPort = 8000
)

// Advertiser publishes the module over mDNS until shut down.
type Advertiser struct {
	server *zeroconf.Server
	once   sync.Once
}

// Advertise registers instance as a ServiceType service on port. The
// advertisement is withdrawn when ctx is done or Shutdown is called.
func Advertise(ctx context.Context, instance string, port int, txt map[string]string) (*Advertiser, error) {
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txtRecords(txt), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("mDNS service registered",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)

	a := &Advertiser{server: server}
	go func() {
		<-ctx.Done()
		a.Shutdown()
	}()
	return a, nil
}

// Shutdown withdraws the advertisement. It is safe to call more than once.
func (a *Advertiser) Shutdown() {
	a.once.Do(func() {
		a.server.Shutdown()
		logging.Debug("mDNS service withdrawn")
	})
}

// txtRecords renders metadata as sorted "key=value" TXT strings.
func txtRecords(txt map[string]string) []string {
	records := make([]string, 0, len(txt))
	for k, v := range txt {
		records = append(records, k+"="+v)
	}
	sort.Strings(records)
	return records
}

// Scanner browses for Puara modules
type Scanner struct {
	// Timeout is the maximum time to browse
	Timeout time.Duration
}

// NewScanner creates a scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// ScanForModules returns every module seen before the timeout or ctx ends.
func (s *Scanner) ScanForModules(ctx context.Context) ([]*Module, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		modules []*Module
		seen    = make(map[string]bool)
	)
	go func() {
		for entry := range entries {
			m := parseServiceEntry(entry)
			if m == nil {
				continue
			}
			mu.Lock()
			if !seen[m.Instance] {
				seen[m.Instance] = true
				modules = append(modules, m)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(modules, func(i, j int) bool { return modules[i].Instance < modules[j].Instance })
	return append([]*Module(nil), modules...), nil
}

// WaitForModule browses until the named module appears.
func (s *Scanner) WaitForModule(ctx context.Context, instance string) (*Module, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Module, 1)
	go func() {
		for entry := range entries {
			if m := parseServiceEntry(entry); m != nil && m.Instance == instance {
				select {
				case found <- m:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case m := <-found:
		return m, nil
	case <-ctx.Done():
		select {
		case m := <-found:
			return m, nil
		default:
		}
		return nil, fmt.Errorf("module %s not found within timeout", instance)
	}
}

// parseServiceEntry converts a zeroconf entry to a Module, or nil when the
// entry has no instance name or no address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Module {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string, len(entry.Text))
	for _, txt := range entry.Text {
		k, v, _ := strings.Cut(txt, "=")
		metadata[k] = v
	}

	return &Module{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
