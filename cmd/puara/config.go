package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/puara/puara/internal/config"
	"github.com/puara/puara/internal/ui"
)

var (
	initForce       bool
	initDevice      string
	initID          int
	initAuthor      string
	initInstitution string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the module identity",
	Example: `  puara config init --device T-Stick --id 42 --author "Edu Meneses" --institution IDMIL`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		c := config.NewConfig()
		c.Identity.Device = initDevice
		c.Identity.ID = initID
		c.Identity.Author = initAuthor
		c.Identity.Institution = initInstitution
		if err := c.Save(path); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess(fmt.Sprintf("Wrote %s for %s", path, c.Identity.DeviceName()))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := cfg.DatabasePath()
		if err != nil {
			return err
		}
		settingsPath, err := cfg.SettingsPath()
		if err != nil {
			return err
		}
		if dbPath != "" {
			db = dbPath
		}

		d := cfg.Daemon
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintPairs("Identity", []ui.Pair{
			{Key: "Name", Value: cfg.Identity.DeviceName()},
			{Key: "Author", Value: cfg.Identity.Author},
			{Key: "Institution", Value: cfg.Identity.Institution},
		})
		p.PrintPairs("Daemon", []ui.Pair{
			{Key: "Database", Value: db},
			{Key: "Settings", Value: settingsPath},
			{Key: "Serial", Value: fmt.Sprintf("%s @ %d", orNone(d.SerialPort), d.BaudRate)},
			{Key: "WebSocket", Value: orNone(d.WebSocketAddr)},
			{Key: "Ready timeout", Value: d.ReadyTimeout.String()},
			{Key: "Advertise", Value: fmt.Sprint(d.Advertise)},
		})
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
	configInitCmd.Flags().StringVar(&initDevice, "device", "Puara", "Device type")
	configInitCmd.Flags().IntVar(&initID, "id", 1, "Device id")
	configInitCmd.Flags().StringVar(&initAuthor, "author", "", "Module author")
	configInitCmd.Flags().StringVar(&initInstitution, "institution", "", "Institution")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
