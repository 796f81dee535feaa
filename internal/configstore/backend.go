package configstore

import "context"

// SetHandler receives one stored entry during a restore. name has the
// namespace prefix stripped. Returning an error rejects the entry; the
// backend logs it and continues.
type SetHandler = func(name string, raw []byte) error

// Backend is the persistent key-value settings subsystem supplied by the
// platform.
type Backend interface {
	// RegisterHandler routes entries under namespace to h during LoadAll.
	RegisterHandler(namespace string, h SetHandler) error
	// LoadAll replays every stored entry into the registered handlers.
	LoadAll(ctx context.Context) error
	// SaveOne stores raw under key.
	SaveOne(ctx context.Context, key string, raw []byte) error
}
