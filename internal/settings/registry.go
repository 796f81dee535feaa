package settings

import (
	"math"
	"strconv"
	"sync"

	"github.com/puara/puara/internal/errdefs"
)

// Type distinguishes text settings from numeric ones.
type Type string

const (
	TypeText   Type = "text"
	TypeNumber Type = "number"
)

// Entry is one user-defined named setting.
type Entry struct {
	Name        string
	Type        Type
	TextValue   string
	NumberValue float64
}

// TextEntry builds a text setting.
func TextEntry(name, value string) Entry {
	return Entry{Name: name, Type: TypeText, TextValue: value}
}

// NumberEntry builds a numeric setting.
func NumberEntry(name string, value float64) Entry {
	return Entry{Name: name, Type: TypeNumber, NumberValue: value}
}

// ParseEntry types a raw value: a finite number token becomes numeric,
// anything else text.
func ParseEntry(name, raw string) Entry {
	if n, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return NumberEntry(name, n)
	}
	return TextEntry(name, raw)
}

// String renders the entry's value.
func (e Entry) String() string {
	if e.Type == TypeNumber {
		return strconv.FormatFloat(e.NumberValue, 'g', -1, 64)
	}
	return e.TextValue
}

// Registry is an ordered collection of settings with a name index. Setting an
// existing name overwrites it in place; a new name appends.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Upsert adds e, or replaces the entry of the same name keeping its position.
func (r *Registry) Upsert(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertLocked(e)
}

func (r *Registry) upsertLocked(e Entry) {
	if i, ok := r.index[e.Name]; ok {
		r.entries[i] = e
		return
	}
	r.index[e.Name] = len(r.entries)
	r.entries = append(r.entries, e)
}

// Get returns the named entry.
func (r *Registry) Get(name string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return Entry{}, errdefs.NewNotFound(name)
	}
	return r.entries[i], nil
}

// Number returns the numeric value of the named entry.
func (r *Registry) Number(name string) (float64, error) {
	e, err := r.Get(name)
	if err != nil {
		return 0, err
	}
	return e.NumberValue, nil
}

// Text returns the text value of the named entry.
func (r *Registry) Text(name string) (string, error) {
	e, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return e.TextValue, nil
}

// LoadBatch applies entries in order. Unless merge is set the registry is
// cleared first; with merge, entries absent from the batch survive. Duplicate
// names within the batch resolve to the last one.
func (r *Registry) LoadBatch(entries []Entry, merge bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !merge {
		r.entries = nil
		r.index = make(map[string]int, len(entries))
	}
	for _, e := range entries {
		r.upsertLocked(e)
	}
}

// Entries returns a copy of all entries in insertion order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
