package storage

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/puara/puara/internal/logging"
)

// SetHandler receives one stored entry during LoadAll, with the namespace
// prefix stripped from name.
type SetHandler = func(name string, raw []byte) error

// handlerSet routes keys of the form "<namespace>/<name>" to the handler
// registered for namespace.
type handlerSet struct {
	mu       sync.RWMutex
	handlers map[string]SetHandler
	rejected atomic.Int64
}

func (h *handlerSet) register(namespace string, fn SetHandler) error {
	if namespace == "" || strings.Contains(namespace, "/") {
		return fmt.Errorf("invalid namespace %q", namespace)
	}
	if fn == nil {
		return fmt.Errorf("nil handler for namespace %q", namespace)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handlers == nil {
		h.handlers = make(map[string]SetHandler)
	}
	h.handlers[namespace] = fn
	return nil
}

// dispatch hands one stored entry to its handler. Keys without a handler are
// skipped; handler rejections are logged and counted.
func (h *handlerSet) dispatch(key string, raw []byte) {
	namespace, name, ok := strings.Cut(key, "/")
	if !ok {
		return
	}

	h.mu.RLock()
	fn := h.handlers[namespace]
	h.mu.RUnlock()
	if fn == nil {
		return
	}

	if err := fn(name, raw); err != nil {
		h.rejected.Add(1)
		logging.Warn("Stored setting rejected",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
