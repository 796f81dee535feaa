// Package config manages the daemon configuration file of a Puara module.
//
// The file holds the module identity (device kind, numeric id, author,
// institution) and the runtime preferences of `puara run`: where the
// settings database lives, which console transports to open, how long to
// wait for the WiFi interfaces and whether to advertise over mDNS.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/puara/config.yaml or $HOME/.config/puara/config.yaml
//   - macOS: $HOME/.config/puara/config.yaml
//   - Windows: %LOCALAPPDATA%\puara\config.yaml
//
// Network credentials are never written here; they are configuration store
// fields persisted by the storage backend.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Identity.ID = 42
//	if err := cfg.Save(""); err != nil {
//	    log.Fatal(err)
//	}
package config
