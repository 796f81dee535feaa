// Puara is the host-side runtime of a Puara module.
//
// It keeps the module's network configuration in a settings database,
// drives the WiFi station and access point roles, serves the puara command
// shell on the terminal, a serial port and WebSocket, and advertises the
// module over mDNS.
//
// Usage:
//
//	puara [command] [flags]
//
// See 'puara --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/puara/puara/internal/config"
	"github.com/puara/puara/internal/configstore"
	"github.com/puara/puara/internal/logging"
	"github.com/puara/puara/internal/storage"
	"github.com/puara/puara/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	dbPath     string
	logLevel   string
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "puara",
	Short: "Puara module runtime",
	Long: `Runtime and configuration tool for Puara modules.

Network settings (SSID, passwords, OSC destinations and ports) are kept in a
settings database and survive restarts. User settings are kept in a YAML
document next to the configuration file.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := logLevel
		if level == "" {
			level = os.Getenv(logging.LogLevelEnvVar)
		}
		if level == "" {
			level = cfg.Daemon.LogLevel
		}
		return logging.Initialize(level)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: OS config dir)/puara/config.yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Settings database (overrides the configuration file)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "puara %s\n", version.Full())
	},
}

// openStore opens the settings database and restores the configuration
// store from it. The returned close function releases the database.
func openStore(ctx context.Context) (*configstore.Store, func(), error) {
	path := dbPath
	if path == "" {
		var err error
		if path, err = cfg.DatabasePath(); err != nil {
			return nil, nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	closeDB := sync.OnceFunc(func() {
		if err := db.Close(); err != nil {
			logging.Warn("Failed to close settings database", zap.Error(err))
		}
	})

	store := configstore.New(db)
	if err := store.Restore(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("failed to restore settings: %w", err)
	}
	if n := db.Rejected(); n > 0 {
		logging.Warn("Some stored settings were rejected and keep their defaults",
			zap.Int("rejected", n),
			zap.String("path", path),
		)
	}
	store.SetDeviceName(cfg.Identity.DeviceName())
	return store, closeDB, nil
}
