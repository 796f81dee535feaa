package configstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/puara/puara/internal/errdefs"
	"github.com/puara/puara/internal/logging"
)

// Store is the typed configuration registry with an in-memory mirror and a
// persistence backend. Reads may run concurrently; writes (Set and Restore)
// are serialized so backend writes never interleave.
type Store struct {
	writeMu sync.Mutex

	mu         sync.RWMutex
	text       [numFields]string
	nums       [numFields]uint32
	deviceName string

	backend Backend
}

// FieldValue is one entry of a Snapshot.
type FieldValue struct {
	Field Field
	Value string
}

// New creates a store populated with every field's default. backend may be
// nil, in which case writes only update memory.
func New(backend Backend) *Store {
	s := &Store{backend: backend}
	for f := Field(0); f < numFields; f++ {
		d := fieldTable[f]
		if d.kind == KindText {
			s.text[f] = d.defText
		} else {
			s.nums[f] = d.defNum
		}
	}
	return s
}

// Restore registers the config namespace with the backend and replays the
// stored values over the defaults.
func (s *Store) Restore(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.backend.RegisterHandler(Namespace, s.LoadFromBackend); err != nil {
		return errdefs.NewPersistenceError(Namespace, "failed to register settings handler", err)
	}
	if err := s.backend.LoadAll(ctx); err != nil {
		return errdefs.NewPersistenceError(Namespace, "failed to load settings", err)
	}
	return nil
}

// Get returns the current value of the named field rendered as text.
func (s *Store) Get(name string) (string, error) {
	f, ok := Lookup(name)
	if !ok {
		return "", errdefs.NewNotFound(name)
	}
	return s.Text(f), nil
}

// GetValue returns the current value of the named field as a typed Value.
func (s *Store) GetValue(name string) (Value, error) {
	f, ok := Lookup(name)
	if !ok {
		return Value{}, errdefs.NewNotFound(name)
	}
	if f.Kind() == KindText {
		return Text(s.Text(f)), nil
	}
	return Number(float64(s.Uint(f))), nil
}

// Text returns a field's value as text; numeric fields render in decimal.
func (s *Store) Text(f Field) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if fieldTable[f].kind == KindUint {
		return strconv.FormatUint(uint64(s.nums[f]), 10)
	}
	return s.text[f]
}

// Uint returns a numeric field's value (0 for text fields).
func (s *Store) Uint(f Field) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nums[f]
}

// Set validates v against the named field and, on success, persists it under
// the field's persistence key and updates the in-memory mirror. A rejected
// value changes nothing.
func (s *Store) Set(ctx context.Context, name string, v Value) error {
	f, ok := Lookup(name)
	if !ok {
		return errdefs.NewNotFound(name)
	}
	return s.SetField(ctx, f, v)
}

// Validate reports whether v would be accepted for f, without writing it.
func Validate(f Field, v Value) error {
	if !f.valid() {
		return errdefs.NewNotFound(f.String())
	}
	_, _, _, err := encode(f, v)
	return err
}

// SetField is Set addressed by Field.
func (s *Store) SetField(ctx context.Context, f Field, v Value) error {
	if !f.valid() {
		return errdefs.NewNotFound(f.String())
	}

	text, num, raw, err := encode(f, v)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.backend != nil {
		if err := s.backend.SaveOne(ctx, f.PersistenceKey(), raw); err != nil {
			logging.Error("Failed to persist configuration field",
				zap.String("key", f.PersistenceKey()),
				zap.Error(err),
			)
			return errdefs.NewPersistenceError(f.PersistenceKey(), "write rejected", err)
		}
	}
	logging.LogSettingWrite(f.PersistenceKey(), raw, f.Secret())

	s.mu.Lock()
	if f.Kind() == KindText {
		s.text[f] = text
	} else {
		s.nums[f] = num
	}
	s.mu.Unlock()

	return nil
}

// LoadFromBackend applies one stored entry during a restore. It rejects text
// longer than the field's capacity and numeric payloads that are not exactly
// NumericWidth bytes.
func (s *Store) LoadFromBackend(name string, raw []byte) error {
	f, ok := Lookup(name)
	if !ok {
		return errdefs.NewNotFound(name)
	}

	switch f.Kind() {
	case KindText:
		// Values written by older firmware may carry one C terminator.
		if n := len(raw); n > 0 && n <= f.MaxLength()+1 && raw[n-1] == 0 {
			raw = raw[:n-1]
		}
		if len(raw) > f.MaxLength() {
			logging.Warn("Rejected stored value",
				zap.String("field", f.Name()),
				zap.Int("length", len(raw)),
				zap.Int("max", f.MaxLength()),
			)
			return errdefs.NewValidationError(f.Name(),
				fmt.Sprintf("stored value too long (max %d bytes): %d bytes", f.MaxLength(), len(raw)))
		}
		s.mu.Lock()
		s.text[f] = string(raw)
		s.mu.Unlock()

	case KindUint:
		if len(raw) != NumericWidth {
			logging.Warn("Rejected stored value",
				zap.String("field", f.Name()),
				zap.Int("length", len(raw)),
				zap.Int("want", NumericWidth),
			)
			return errdefs.NewValidationError(f.Name(),
				fmt.Sprintf("stored value must be %d bytes, got %d", NumericWidth, len(raw)))
		}
		s.mu.Lock()
		s.nums[f] = binary.LittleEndian.Uint32(raw)
		s.mu.Unlock()
	}

	if !f.Secret() {
		logging.LogRawBytes("Restored "+f.PersistenceKey(), raw)
	}
	return nil
}

// Snapshot returns every field with its current text rendering, in
// declaration order.
func (s *Store) Snapshot() []FieldValue {
	out := make([]FieldValue, 0, numFields)
	for _, f := range Fields() {
		out = append(out, FieldValue{Field: f, Value: s.Text(f)})
	}
	return out
}

// SetDeviceName sets the module's identity name (not a persisted field).
func (s *Store) SetDeviceName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceName = name
}

// DeviceName returns the module's identity name, or "" when unset.
func (s *Store) DeviceName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceName
}

// OSCIP1Ready reports whether the first OSC destination is usable.
func (s *Store) OSCIP1Ready() bool { return IsReachable(s.Text(OSCIP1)) }

// OSCIP2Ready reports whether the second OSC destination is usable.
func (s *Store) OSCIP2Ready() bool { return IsReachable(s.Text(OSCIP2)) }

// encode validates v for f and returns the mirror values and backend bytes.
func encode(f Field, v Value) (string, uint32, []byte, error) {
	switch f.Kind() {
	case KindText:
		if !v.IsText() {
			return "", 0, nil, errdefs.NewValidationError(f.Name(), "expected text, got a number")
		}
		if len(v.TextValue()) > f.MaxLength() {
			return "", 0, nil, errdefs.NewValidationError(f.Name(),
				fmt.Sprintf("value too long (max %d bytes): %d bytes", f.MaxLength(), len(v.TextValue())))
		}
		return v.TextValue(), 0, []byte(v.TextValue()), nil

	default:
		n, err := toUint(f, v)
		if err != nil {
			return "", 0, nil, err
		}
		raw := make([]byte, NumericWidth)
		binary.LittleEndian.PutUint32(raw, n)
		return "", n, raw, nil
	}
}

func toUint(f Field, v Value) (uint32, error) {
	var n float64
	if v.IsText() {
		s := strings.TrimSpace(v.TextValue())
		parsed, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, errdefs.NewValidationError(f.Name(),
				fmt.Sprintf("expected an unsigned integer, got %q", v.TextValue()))
		}
		n = float64(parsed)
	} else {
		n = v.NumberValue()
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || n < 0 {
			return 0, errdefs.NewValidationError(f.Name(),
				fmt.Sprintf("expected an unsigned integer, got %v", n))
		}
	}
	if n > float64(f.MaxValue()) {
		return 0, errdefs.NewValidationError(f.Name(),
			fmt.Sprintf("value out of range (max %d): %.0f", f.MaxValue(), n))
	}
	return uint32(n), nil
}
