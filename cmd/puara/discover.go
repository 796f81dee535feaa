package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/puara/puara/internal/discovery"
	"github.com/puara/puara/internal/ui"
)

var (
	discoverTimeout time.Duration
	discoverWait    string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find Puara modules on the network",
	Long: `Browse mDNS for Puara modules (` + discovery.ServiceType + `) and list them with
their address and OSC port.`,
	Example: `  # Browse for 5 seconds (default)
  puara discover

  # Wait up to 30 seconds for one module
  puara discover --wait T-Stick_001 --timeout 30s`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", discovery.DefaultScanTimeout, "Browse duration")
	discoverCmd.Flags().StringVar(&discoverWait, "wait", "", "Stop as soon as the named module is found")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner()
	scanner.Timeout = discoverTimeout
	p := ui.NewPrinter(cmd.OutOrStdout())

	if discoverWait != "" {
		p.Println(ui.HintStyle.Render(fmt.Sprintf("Waiting for %s (timeout: %s)...", discoverWait, discoverTimeout)))
		m, err := scanner.WaitForModule(cmd.Context(), discoverWait)
		if err != nil {
			return err
		}
		p.PrintPairs(m.Instance, modulePairs(m))
		return nil
	}

	p.Println(ui.HintStyle.Render(fmt.Sprintf("Browsing for modules (timeout: %s)...", discoverTimeout)))
	modules, err := scanner.ScanForModules(cmd.Context())
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	if len(modules) == 0 {
		p.Println("No modules found.")
		p.Println(ui.HintStyle.Render("Check that the module and this computer are on the same network, or try a longer --timeout."))
		return nil
	}

	p.Println(fmt.Sprintf("Found %d module(s):", len(modules)))
	for _, m := range modules {
		p.PrintPairs(m.Instance, modulePairs(m))
	}
	return nil
}

func modulePairs(m *discovery.Module) []ui.Pair {
	pairs := []ui.Pair{
		{Key: "Host", Value: m.Hostname},
		{Key: "Address", Value: m.Address()},
	}
	for _, k := range []string{"device", "version"} {
		if v := m.GetMetadata(k); v != "" {
			pairs = append(pairs, ui.Pair{Key: k, Value: v})
		}
	}
	return pairs
}
