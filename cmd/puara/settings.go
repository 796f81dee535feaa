package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/puara/puara/internal/settings"
	"github.com/puara/puara/internal/ui"
)

var importReplace bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage user settings",
	Long: `Manage the module's user settings.

User settings are named text or number values read by the module's
application code. They are kept in a YAML document, settings.yaml in the
configuration directory unless settings_file is set in config.yaml.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := loadSettings()
		if err != nil {
			return err
		}
		entries := reg.Entries()
		pairs := make([]ui.Pair, 0, len(entries))
		for _, e := range entries {
			pairs = append(pairs, ui.Pair{Key: e.Name, Value: fmt.Sprintf("%s (%s)", e.String(), e.Type)})
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintPairs(fmt.Sprintf("User settings (%d)", len(entries)), pairs)
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print one user setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := loadSettings()
		if err != nil {
			return err
		}
		e, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), e.String())
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Create or update a user setting",
	Long: `Create or update a user setting.

A value that parses as a number is stored as a number; anything else is
stored as text. Use --text to keep a numeric-looking value as text.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, path, err := loadSettings()
		if err != nil {
			return err
		}
		asText, _ := cmd.Flags().GetBool("text")

		entry := settings.TextEntry(args[0], args[1])
		if !asText {
			entry = settings.ParseEntry(args[0], args[1])
		}
		reg.Upsert(entry)

		if err := reg.WriteFile(path); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess(fmt.Sprintf("Saved %s = %s", entry.Name, entry.String()))
		return nil
	},
}

var settingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge a settings document into the user settings",
	Long: `Read a settings document and merge it into the user settings.

Entries in the file overwrite settings of the same name; other settings are
kept. With --replace the user settings become exactly the file's entries.`,
	Example: `  puara settings import tstick.yaml
  puara settings import --replace defaults.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, path, err := loadSettings()
		if err != nil {
			return err
		}
		if err := reg.ReadFile(args[0], !importReplace); err != nil {
			return err
		}
		if err := reg.WriteFile(path); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess(fmt.Sprintf("Imported %s (%d settings)", args[0], reg.Len()))
		return nil
	},
}

var settingsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the user settings as a settings document",
	Long:  `Write the user settings as a YAML settings document to file, or to standard output.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := loadSettings()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return settings.Encode(cmd.OutOrStdout(), reg.Entries())
		}
		return reg.WriteFile(args[0])
	},
}

func init() {
	settingsImportCmd.Flags().BoolVar(&importReplace, "replace", false, "Replace the user settings instead of merging")
	settingsSetCmd.Flags().Bool("text", false, "Store the value as text even if it looks like a number")

	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsImportCmd)
	settingsCmd.AddCommand(settingsExportCmd)
	rootCmd.AddCommand(settingsCmd)
}

// loadSettings reads the user settings document. A missing document is an
// empty registry.
func loadSettings() (*settings.Registry, string, error) {
	path, err := cfg.SettingsPath()
	if err != nil {
		return nil, "", err
	}
	reg := settings.NewRegistry()
	if err := reg.ReadFile(path, false); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return reg, path, nil
		}
		return nil, "", err
	}
	return reg, path, nil
}
