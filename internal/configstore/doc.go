// Package configstore implements the module's typed configuration store.
//
// The store holds a fixed set of identity/network fields (station SSID and
// password, access point password, two OSC destinations and their ports, the
// local port and the persistent-AP flag). Each field has a stable name, a
// type (bounded text or unsigned integer), a default and a persistence key
// of the form "config/<name>".
//
// # Addressing
//
// Fields are looked up by name in a single table:
//
//	f, ok := configstore.Lookup("oscPORT1")   // also "osc_port_1"
//	f.PersistenceKey()                        // "config/oscPORT1"
//
// # Writes
//
// Set validates before it touches anything. Text longer than MaxTextLength is
// rejected, never truncated. Numeric fields are stored as 4-byte little-endian
// integers. The backend write happens first; only when it succeeds is the
// in-memory mirror updated.
//
//	if err := store.Set(ctx, "oscPORT1", configstore.Number(9000)); err != nil {
//	    return err // errdefs NotFound, Validation or Persistence
//	}
//
// # Restore
//
// New applies every default; Restore then replays the backend through
// LoadFromBackend, which rejects oversized text and wrongly sized numbers
// without aborting the load.
package configstore
