// Package console is the module's command shell.
//
// A Console executes text commands against the configuration store, the
// user settings registry and the WiFi manager. The same Console can be
// served on standard input, a serial port and WebSocket at once; data
// lines published with Publish reach every open session framed as
// "<<<data>>>".
package console
