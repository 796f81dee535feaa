// Package wifi implements the module's connectivity manager.
//
// A Manager owns the station and access-point roles of a WiFi radio
// exposed by a platform Driver. StartWifi reads the network configuration
// from the configuration store, applies the fallbacks the radio needs to
// accept it, waits for both interfaces to be present and submits the
// station connect and AP enable requests.
//
// Requests are fire-and-forget. Their outcome arrives later as platform
// events, which the driver hands to a Bridge; Manager.Run drains the bridge
// and applies each event in order, so the last delivered event decides the
// current state.
package wifi
