// Package errdefs defines the error taxonomy shared by the Puara module core.
//
// Every error returned by the configuration store, the settings registry and
// the connectivity manager is a *ModuleError carrying one of five categories:
//
//   - NotFound: unknown field or setting name
//   - Validation: value fails a type or length constraint
//   - Persistence: the persistence backend rejected a write or read
//   - PlatformRequest: the network stack rejected a connect/enable request
//   - Unready: a network interface was not present at boot
//
// Callers classify errors with the Is* predicates, which see through
// fmt.Errorf("%w") wrapping:
//
//	if err := store.Set(ctx, "SSID", configstore.Text(ssid)); err != nil {
//	    if errdefs.IsValidationError(err) {
//	        // report to the user, nothing was changed
//	    }
//	}
//
// Validation and lookup errors never mutate state. Platform request failures
// leave the connectivity state machine where it was; there is no automatic
// retry.
package errdefs
