package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/puara/puara/internal/configstore"
	"github.com/puara/puara/internal/ui"
)

var showSecrets bool

var getCmd = &cobra.Command{
	Use:   "get [field...]",
	Short: "Print network configuration fields",
	Long: `Print the module's network configuration.

Fields are named as on the module console (SSID, password, APpasswd, oscIP1,
oscIP2, oscPORT1, oscPORT2, localPORT, persistentAP) or by their snake_case
alias (device_ssid, osc_port_1, ...). Without arguments every field is shown.
Passwords are masked unless --show-secrets is given.`,
	Example: `  # Show everything
  puara get

  # Show the OSC destination
  puara get oscIP1 oscPORT1`,
	RunE: runGet,
}

var setCmd = &cobra.Command{
	Use:   "set <field> [value]",
	Short: "Save a network configuration field",
	Long: `Validate and save one network configuration field.

Text fields hold at most 31 bytes. Ports are 0-65535 and persistentAP is 0
or 1. When the value of a password field is omitted it is read from the
terminal without echo.`,
	Example: `  # Join a different network
  puara set SSID studio
  puara set password

  # Send OSC to a second host
  puara set oscIP2 192.168.1.20
  puara set oscPORT2 9001`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSet,
}

func init() {
	getCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print password fields in clear text")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	fields := configstore.Fields()
	if len(args) > 0 {
		fields = fields[:0]
		for _, name := range args {
			f, ok := configstore.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown field %q", name)
			}
			fields = append(fields, f)
		}
	}

	pairs := make([]ui.Pair, 0, len(fields))
	for _, f := range fields {
		v := store.Text(f)
		if f.Secret() && !showSecrets {
			v = mask(v)
		}
		pairs = append(pairs, ui.Pair{Key: f.Name(), Value: v})
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintPairs("Module "+store.DeviceName(), pairs)
	return nil
}

func mask(secret string) string {
	if secret == "" {
		return "(empty)"
	}
	return "********"
}

func runSet(cmd *cobra.Command, args []string) error {
	f, ok := configstore.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown field %q", args[0])
	}

	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case f.Secret():
		v, err := ui.ReadSecret(os.Stdin, cmd.ErrOrStderr(), f.Name()+": ")
		if err != nil {
			return err
		}
		value = v
	default:
		return fmt.Errorf("missing value for %s", f.Name())
	}

	store, closeDB, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeDB()

	p := ui.NewPrinter(cmd.OutOrStdout())
	if err := store.SetField(cmd.Context(), f, configstore.Text(value)); err != nil {
		p.PrintError("Error in saving variable", err)
		return err
	}
	p.PrintSuccess("Successfully saved variable " + f.Name())
	return nil
}
