package configstore_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/puara/puara/internal/configstore"
	"github.com/puara/puara/internal/errdefs"
	"github.com/puara/puara/internal/storage"
)

func TestNew_AppliesDefaults(t *testing.T) {
	store := configstore.New(nil)

	tests := []struct {
		name string
		want string
	}{
		{"SSID", "tstick_network"},
		{"password", "mappings"},
		{"APpasswd", "mappings"},
		{"oscIP1", "192.168.137.1"},
		{"oscIP2", "0.0.0.0"},
		{"oscPORT1", "8000"},
		{"oscPORT2", "8000"},
		{"localPORT", "8000"},
		{"persistentAP", "0"},
	}

	for _, tt := range tests {
		got, err := store.Get(tt.name)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Get(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSetGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := configstore.New(storage.NewMemory())

	tests := []struct {
		name  string
		value configstore.Value
		want  string
	}{
		{"SSID", configstore.Text("studio"), "studio"},
		{"device_ssid", configstore.Text("alias"), "alias"},
		{"password", configstore.Text("secret123"), "secret123"},
		{"APpasswd", configstore.Text(""), ""},
		{"oscIP2", configstore.Text("10.0.0.5"), "10.0.0.5"},
		{"oscPORT1", configstore.Number(9000), "9000"},
		{"oscPORT2", configstore.Text("9001"), "9001"},
		{"localPORT", configstore.Number(0), "0"},
		{"persistentAP", configstore.Number(1), "1"},
		{"SSID", configstore.Text(strings.Repeat("x", configstore.MaxTextLength)), strings.Repeat("x", configstore.MaxTextLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.want, func(t *testing.T) {
			if err := store.Set(ctx, tt.name, tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := store.Get(tt.name)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Get() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSet_RejectionLeavesValueUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	store := configstore.New(backend)

	if err := store.Set(ctx, "SSID", configstore.Text("before")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	writes := backend.Writes()

	tests := []struct {
		name  string
		field string
		value configstore.Value
	}{
		{"text too long", "SSID", configstore.Text(strings.Repeat("a", configstore.MaxTextLength+1))},
		{"number into text field", "SSID", configstore.Number(3)},
		{"negative port", "oscPORT1", configstore.Number(-1)},
		{"fractional port", "oscPORT1", configstore.Number(80.5)},
		{"port out of range", "oscPORT1", configstore.Number(70000)},
		{"non-numeric text into port", "oscPORT1", configstore.Text("eighty")},
		{"persistentAP out of range", "persistentAP", configstore.Number(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := configstore.Lookup(tt.field)
			if err := configstore.Validate(f, tt.value); !errdefs.IsValidationError(err) {
				t.Errorf("Validate() error = %v, want validation error", err)
			}
			before, _ := store.Get(tt.field)
			err := store.Set(ctx, tt.field, tt.value)
			if !errdefs.IsValidationError(err) {
				t.Fatalf("Set() error = %v, want validation error", err)
			}
			after, _ := store.Get(tt.field)
			if after != before {
				t.Errorf("value changed from %q to %q", before, after)
			}
		})
	}

	if backend.Writes() != writes {
		t.Errorf("rejected writes reached the backend: %d writes, want %d", backend.Writes(), writes)
	}
	raw, _ := backend.Get("config/SSID")
	if string(raw) != "before" {
		t.Errorf("persisted SSID = %q, want %q", raw, "before")
	}
}

func TestValidate_DoesNotWrite(t *testing.T) {
	backend := storage.NewMemory()
	store := configstore.New(backend)

	if err := configstore.Validate(configstore.DeviceSSID, configstore.Text("studio")); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if err := configstore.Validate(configstore.OSCPort1, configstore.Text("9000")); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if backend.Writes() != 0 {
		t.Errorf("backend writes = %d, want 0", backend.Writes())
	}
	if got := store.Text(configstore.DeviceSSID); got != "tstick_network" {
		t.Errorf("SSID = %q, want default", got)
	}
}

func TestSetGet_UnknownName(t *testing.T) {
	store := configstore.New(nil)

	if _, err := store.Get("reboot"); !errdefs.IsNotFound(err) {
		t.Errorf("Get() error = %v, want NotFound", err)
	}
	if err := store.Set(context.Background(), "bogus", configstore.Text("x")); !errdefs.IsNotFound(err) {
		t.Errorf("Set() error = %v, want NotFound", err)
	}
}

func TestSet_PersistsEncodedBytes(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	store := configstore.New(backend)

	if err := store.Set(ctx, "oscPORT1", configstore.Number(9000)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, _ := store.Get("oscPORT1")
	if got != "9000" {
		t.Errorf("Get() = %q, want 9000", got)
	}

	want := make([]byte, 4)
	binary.LittleEndian.PutUint32(want, 9000)
	raw, ok := backend.Get("config/oscPORT1")
	if !ok {
		t.Fatal("config/oscPORT1 was not persisted")
	}
	if !bytes.Equal(raw, want) {
		t.Errorf("persisted bytes = %v, want %v", raw, want)
	}

	if err := store.Set(ctx, "SSID", configstore.Text("stage")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	raw, _ = backend.Get("config/SSID")
	if string(raw) != "stage" {
		t.Errorf("persisted SSID = %q", raw)
	}
}

func TestSet_PersistenceFailureKeepsMirror(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	store := configstore.New(backend)
	backend.FailWrites(errors.New("flash busy"))

	err := store.Set(ctx, "SSID", configstore.Text("new"))
	if !errdefs.IsPersistenceError(err) {
		t.Fatalf("Set() error = %v, want persistence failure", err)
	}
	if got, _ := store.Get("SSID"); got != "tstick_network" {
		t.Errorf("Get() = %q, mirror should be unchanged", got)
	}
}

func TestLoadFromBackend(t *testing.T) {
	port := make([]byte, 4)
	binary.LittleEndian.PutUint32(port, 7000)

	tests := []struct {
		name    string
		field   string
		raw     []byte
		wantErr func(error) bool
		want    string
	}{
		{"text accepted", "SSID", []byte("lab"), nil, "lab"},
		{"text at capacity", "oscIP1", []byte(strings.Repeat("1", configstore.MaxTextLength)), nil, strings.Repeat("1", configstore.MaxTextLength)},
		{"trailing NUL stripped", "password", []byte("abc\x00"), nil, "abc"},
		{"terminated at capacity", "SSID", []byte(strings.Repeat("s", configstore.MaxTextLength) + "\x00"), nil, strings.Repeat("s", configstore.MaxTextLength)},
		{"NUL padding over capacity", "SSID", append([]byte("abc"), make([]byte, 60)...), errdefs.IsValidationError, "tstick_network"},
		{"two trailing NULs over capacity", "SSID", []byte(strings.Repeat("s", configstore.MaxTextLength) + "\x00\x00"), errdefs.IsValidationError, "tstick_network"},
		{"capacity plus one without NUL", "SSID", []byte(strings.Repeat("s", configstore.MaxTextLength+1)), errdefs.IsValidationError, "tstick_network"},
		{"text too long", "SSID", []byte(strings.Repeat("a", 40)), errdefs.IsValidationError, "tstick_network"},
		{"numeric exact width", "oscPORT2", port, nil, "7000"},
		{"numeric short", "oscPORT2", []byte{1, 2}, errdefs.IsValidationError, "8000"},
		{"numeric long", "oscPORT2", []byte{1, 2, 3, 4, 5, 6, 7, 8}, errdefs.IsValidationError, "8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := configstore.New(nil)
			err := store.LoadFromBackend(tt.field, tt.raw)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("LoadFromBackend() error = %v", err)
			}
			if tt.wantErr != nil && !tt.wantErr(err) {
				t.Fatalf("LoadFromBackend() error = %v, wrong class", err)
			}
			got, _ := store.Get(tt.field)
			if got != tt.want {
				t.Errorf("Get() = %q, want %q", got, tt.want)
			}
		})
	}

	if err := configstore.New(nil).LoadFromBackend("nope", nil); !errdefs.IsNotFound(err) {
		t.Errorf("LoadFromBackend(unknown) error = %v, want NotFound", err)
	}
}

func TestRestore_ReplaysBackendOverDefaults(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()

	first := configstore.New(backend)
	if err := first.Set(ctx, "oscIP2", configstore.Text("10.1.1.1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := first.Set(ctx, "localPORT", configstore.Number(9999)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	// Corrupt entry must be skipped without aborting the restore.
	backend.Put("config/oscPORT1", []byte{1})

	second := configstore.New(backend)
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	checks := map[string]string{
		"oscIP2":    "10.1.1.1",
		"localPORT": "9999",
		"oscPORT1":  "8000",
		"SSID":      "tstick_network",
	}
	for name, want := range checks {
		if got, _ := second.Get(name); got != want {
			t.Errorf("Get(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestIsReachable(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"0.0.0.0", false},
		{"", false},
		{"10.0.0.5", true},
		{"192.168.137.1", true},
	}
	for _, tt := range tests {
		if got := configstore.IsReachable(tt.ip); got != tt.want {
			t.Errorf("IsReachable(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}

	store := configstore.New(nil)
	if !store.OSCIP1Ready() {
		t.Error("OSCIP1Ready() should be true for the default destination")
	}
	if store.OSCIP2Ready() {
		t.Error("OSCIP2Ready() should be false for the unset destination")
	}
}

func TestFieldTable(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range configstore.Fields() {
		if seen[f.Name()] {
			t.Errorf("duplicate field name %q", f.Name())
		}
		seen[f.Name()] = true

		if f.PersistenceKey() != "config/"+f.Name() {
			t.Errorf("PersistenceKey() = %q", f.PersistenceKey())
		}
		if got, ok := configstore.Lookup(f.Alias()); !ok || got != f {
			t.Errorf("Lookup(%q) = %v, %v", f.Alias(), got, ok)
		}
	}
	if len(seen) != 9 {
		t.Errorf("got %d fields, want 9", len(seen))
	}
}

func TestGetValue(t *testing.T) {
	store := configstore.New(nil)

	v, err := store.GetValue("oscPORT1")
	if err != nil {
		t.Fatalf("GetValue() error = %v", err)
	}
	if v.IsText() || v.NumberValue() != 8000 {
		t.Errorf("GetValue(oscPORT1) = %+v", v)
	}

	v, _ = store.GetValue("SSID")
	if !v.IsText() || v.TextValue() != "tstick_network" {
		t.Errorf("GetValue(SSID) = %+v", v)
	}
}
