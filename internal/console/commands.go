package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/spf13/pflag"

	"github.com/puara/puara/internal/configstore"
	"github.com/puara/puara/internal/settings"
)

// fieldFlag maps a set/get option to a configuration field.
type fieldFlag struct {
	long, short string
	field       configstore.Field
	usage       string
}

var fieldFlags = []fieldFlag{
	{"ssid", "s", configstore.DeviceSSID, "network SSID"},
	{"ssid_password", "p", configstore.StaPassword, "network password"},
	{"ap_password", "a", configstore.APPassword, "access point password"},
	{"oscip1", "i", configstore.OSCIP1, "OSC IP address 1"},
	{"oscip2", "o", configstore.OSCIP2, "OSC IP address 2"},
	{"port1", "r", configstore.OSCPort1, "OSC port for IP address 1"},
	{"port2", "t", configstore.OSCPort2, "OSC port for IP address 2"},
	{"localport", "l", configstore.LocalPort, "local OSC port"},
	{"persistent", "P", configstore.PersistentAP, "keep the AP up after the station connects (0/1)"},
}

const helpText = `Commands (the "puara" prefix is optional):
  ping                     reply pong
  whoareyou                print the device name
  reboot                   reboot the module
  set [options]            save configuration fields
  get [options]            print configuration fields (all when none given)
  var list                 list user settings
  var get <name>           print a user setting
  var set <name> <value>   save a user setting
  var save                 write user settings to the settings file
  wifi status              print connectivity state
  wifi scan                scan for networks
  wifi start               configure and start both roles
  wifi sta | ap | ap-off   connect station, enable AP, disable AP
  help                     show this help

set/get options:
`

// Execute runs one command line and returns its reply.
func (c *Console) Execute(ctx context.Context, line string) string {
	args, err := splitArgs(line)
	if err != nil {
		return "Error: " + err.Error()
	}
	if len(args) > 0 && args[0] == "puara" {
		args = args[1:]
	}
	if len(args) == 0 {
		return ""
	}

	switch args[0] {
	case "ping":
		return "pong"
	case "whoareyou":
		return c.deviceName()
	case "reboot":
		return c.cmdReboot()
	case "set":
		return c.cmdSet(ctx, args[1:])
	case "get":
		return c.cmdGet(args[1:])
	case "var":
		return c.cmdVar(args[1:])
	case "wifi":
		return c.cmdWifi(ctx, args[1:])
	case "help", "-h", "--help":
		return c.help()
	default:
		return fmt.Sprintf("Unknown command: %s. Type \"help\" for a list of commands.", args[0])
	}
}

func (c *Console) help() string {
	var b strings.Builder
	b.WriteString(helpText)
	fs := newFieldFlagSet("set", true)
	fs.SetOutput(&b)
	fs.PrintDefaults()
	return strings.TrimRight(b.String(), "\n")
}

func (c *Console) cmdReboot() string {
	if c.opts.Reboot == nil {
		return "Error: reboot is not available"
	}
	if !c.scheduleReboot() {
		return "Reboot already pending"
	}
	return fmt.Sprintf("Rebooting in %s", c.opts.RebootDelay)
}

// newFieldFlagSet builds the option set for set (string values) or get
// (boolean selectors).
func newFieldFlagSet(name string, withValues bool) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, f := range fieldFlags {
		if withValues {
			fs.StringP(f.long, f.short, "", f.usage)
		} else {
			fs.BoolP(f.long, f.short, false, f.usage)
		}
	}
	return fs
}

func lookupFieldFlag(long string, short byte) (fieldFlag, bool) {
	for _, f := range fieldFlags {
		if (long != "" && f.long == long) || (short != 0 && f.short == string(short)) {
			return f, true
		}
	}
	return fieldFlag{}, false
}

// redactLine masks the values of secret field options in a command line.
func redactLine(line string) string {
	const mask = "***"
	args, err := splitArgs(line)
	if err != nil {
		return mask
	}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case strings.HasPrefix(a, "--") && len(a) > 2:
			name, _, inline := strings.Cut(a[2:], "=")
			f, ok := lookupFieldFlag(name, 0)
			if !ok {
				continue
			}
			if inline {
				if f.field.Secret() {
					args[i] = "--" + name + "=" + mask
				}
				continue
			}
			if i+1 < len(args) {
				i++
				if f.field.Secret() {
					args[i] = mask
				}
			}

		case strings.HasPrefix(a, "-") && len(a) > 1 && a[1] != '-':
			// The first known shorthand takes the rest of the cluster, or
			// the next argument, as its value.
			for j := 1; j < len(a); j++ {
				f, ok := lookupFieldFlag("", a[j])
				if !ok {
					continue
				}
				if j+1 < len(a) {
					if f.field.Secret() {
						args[i] = a[:j+1] + mask
					}
				} else if i+1 < len(args) {
					i++
					if f.field.Secret() {
						args[i] = mask
					}
				}
				break
			}
		}
	}
	return strings.Join(args, " ")
}

func (c *Console) cmdSet(ctx context.Context, args []string) string {
	fs := newFieldFlagSet("set", true)
	if err := fs.Parse(args); err != nil {
		return "Error in saving variable: " + err.Error()
	}

	type change struct {
		field configstore.Field
		value configstore.Value
	}
	var changes []change
	for _, f := range fieldFlags {
		if !fs.Changed(f.long) {
			continue
		}
		raw, _ := fs.GetString(f.long)
		v := configstore.Text(raw)
		if err := configstore.Validate(f.field, v); err != nil {
			return "Error in saving variable: " + err.Error()
		}
		changes = append(changes, change{f.field, v})
	}
	if len(changes) == 0 {
		return "Error in saving variable: no option given"
	}

	// Nothing is written unless every option passed validation.
	for _, ch := range changes {
		if err := c.store.SetField(ctx, ch.field, ch.value); err != nil {
			return "Error in saving variable: " + err.Error()
		}
	}
	return "Successfully saved variable"
}

func (c *Console) cmdGet(args []string) string {
	fs := newFieldFlagSet("get", false)
	if err := fs.Parse(args); err != nil {
		return "Error in getting variable: " + err.Error()
	}
	if fs.NArg() > 0 {
		// plain field names are accepted as well
		out := make([]string, 0, fs.NArg())
		for _, name := range fs.Args() {
			v, err := c.store.Get(name)
			if err != nil {
				return "Error in getting variable: " + err.Error()
			}
			out = append(out, name+": "+v)
		}
		return lines(out...)
	}

	var out []string
	for _, f := range fieldFlags {
		if fs.Changed(f.long) {
			out = append(out, f.field.Name()+": "+c.store.Text(f.field))
		}
	}
	if len(out) == 0 {
		for _, fv := range c.store.Snapshot() {
			out = append(out, fv.Field.Name()+": "+fv.Value)
		}
	}
	return lines(out...)
}

func (c *Console) cmdVar(args []string) string {
	reg := c.opts.Settings
	if reg == nil {
		return "Error: user settings are not available"
	}
	if len(args) == 0 {
		return "Usage: var list | var get <name> | var set <name> <value> | var save"
	}

	switch args[0] {
	case "list":
		entries := reg.Entries()
		if len(entries) == 0 {
			return "No settings"
		}
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, fmt.Sprintf("%s (%s): %s", e.Name, e.Type, e.String()))
		}
		return lines(out...)

	case "get":
		if len(args) != 2 {
			return "Usage: var get <name>"
		}
		e, err := reg.Get(args[1])
		if err != nil {
			return "Error in getting variable: " + err.Error()
		}
		return e.Name + ": " + e.String()

	case "set":
		if len(args) != 3 {
			return "Usage: var set <name> <value>"
		}
		reg.Upsert(settings.ParseEntry(args[1], args[2]))
		return "Successfully saved variable"

	case "save":
		if c.opts.SettingsFile == "" {
			return "Error in saving variable: no settings file configured"
		}
		if err := reg.WriteFile(c.opts.SettingsFile); err != nil {
			return "Error in saving variable: " + err.Error()
		}
		return "Successfully saved variable"

	default:
		return fmt.Sprintf("Unknown var command: %s", args[0])
	}
}

func (c *Console) cmdWifi(ctx context.Context, args []string) string {
	w := c.opts.WiFi
	if w == nil {
		return "Error: WiFi is not available"
	}
	sub := "status"
	if len(args) > 0 {
		sub = args[0]
	}

	var err error
	switch sub {
	case "status":
		st := w.State()
		return lines(
			"device: "+w.DeviceName(),
			"ssid: "+st.SSID,
			fmt.Sprintf("station: %s (connected: %t)", st.Station, st.StaConnected),
			fmt.Sprintf("station address: %s %s", addrOrNone(st.StaIP), st.StaMAC),
			fmt.Sprintf("ap: %s (enabled: %t, unserved: %t)", st.AP, st.APEnabled, st.APUnserved),
			fmt.Sprintf("ap address: %s %s", addrOrNone(st.APIP), st.APMAC),
		)
	case "scan":
		results, err := w.Scan(ctx)
		if err != nil {
			return "Error: " + err.Error()
		}
		out := []string{fmt.Sprintf("Total APs scanned = %d", len(results))}
		for _, r := range results {
			out = append(out, fmt.Sprintf("SSID: %s (RSSI: %d, Channel: %d)", r.SSID, r.RSSI, r.Channel))
		}
		return lines(out...)
	case "start":
		err = w.StartWifi(ctx)
	case "sta":
		err = w.StationConnect(ctx)
	case "ap":
		err = w.APConnect(ctx)
	case "ap-off":
		err = w.APDisconnect(ctx)
	default:
		return fmt.Sprintf("Unknown wifi command: %s", sub)
	}
	if err != nil {
		return "Error: " + err.Error()
	}
	return "OK"
}

func addrOrNone(a netip.Addr) string {
	if !a.IsValid() {
		return "none"
	}
	return a.String()
}

var errUnterminatedQuote = errors.New("unterminated quote")

// splitArgs splits a command line on whitespace. Double or single quotes
// group words and a backslash escapes the next character.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 || escaped {
		return nil, errUnterminatedQuote
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
