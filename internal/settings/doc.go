// Package settings holds the module's user-defined named settings.
//
// Unlike the fixed fields of package configstore, settings are created at
// runtime: each has a name and either a text or a numeric value. The
// registry keeps them in insertion order with a name index, so updating an
// existing name never moves it.
//
// Settings arrive in bulk from a YAML document; the YAML scalar type decides
// whether a value is numeric:
//
//	settings:
//	  - name: sensitivity
//	    value: 0.8        # number
//	  - name: label
//	    value: left hand  # text
//	  - name: channel
//	    value: "7"        # text (quoted)
//
// LoadBatch with merge=false replaces the registry; with merge=true it only
// adds and overwrites.
package settings
