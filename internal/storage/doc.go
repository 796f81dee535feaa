// Package storage provides the persistence backends behind the configuration
// store.
//
// Both backends speak the same three-call protocol: RegisterHandler routes a
// namespace to a callback, LoadAll replays every stored key through the
// callbacks, and SaveOne writes one key. Keys look like "config/SSID"; the
// handler receives "SSID".
//
//   - SQLite: non-volatile, one row per key in a settings table
//   - Memory: in-process, for tests and ephemeral runs
//
// A handler that rejects an entry (for example a numeric field whose stored
// width is wrong) is logged and skipped; the rest of the load continues.
package storage
