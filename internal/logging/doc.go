// Package logging provides structured logging for the Puara module.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the module: configuration writes, WiFi lifecycle
// events and console commands.
//
// # Log Levels
//
//   - Debug: persisted bytes, console commands, scan details
//   - Info: WiFi events, state transitions, startup
//   - Warn: fallbacks applied (default AP password, default SSID), rejected restores
//   - Error: rejected platform requests, persistence failures
//
// # Configuration
//
// Logging is silent unless a level is given, either explicitly or through
// the PUARA_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr so that console replies on stdout stay clean.
//
// # Secrets
//
// LogSettingWrite never logs the bytes of password fields, only their length.
package logging
