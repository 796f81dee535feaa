package settings

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDocument = `settings:
  - name: sensitivity
    value: 0.8
  - name: threshold
    value: 12
  - name: label
    value: left hand
  - name: channel
    value: "7"
  - name: empty
`

func TestDecode_ClassifiesBySourceType(t *testing.T) {
	entries, err := Decode(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := []Entry{
		NumberEntry("sensitivity", 0.8),
		NumberEntry("threshold", 12),
		TextEntry("label", "left hand"),
		TextEntry("channel", "7"),
		TextEntry("empty", ""),
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "settings:\n  - value: 3\n"},
		{"non-scalar value", "settings:\n  - name: a\n    value: [1, 2]\n"},
		{"malformed yaml", "settings: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.doc)); err == nil {
				t.Error("Decode() should fail")
			}
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	entries, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries", len(entries))
	}
}

func TestEncodeDecode_PreservesTypes(t *testing.T) {
	in := []Entry{
		NumberEntry("gain", 2),
		NumberEntry("ratio", 0.5),
		TextEntry("digits", "42"),
	}

	var buf bytes.Buffer
	if err := Encode(&buf, in); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestReadWriteFile_NonFiniteNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	reg := NewRegistry()
	reg.Upsert(NumberEntry("undefined", math.NaN()))
	reg.Upsert(NumberEntry("ceiling", math.Inf(1)))
	reg.Upsert(NumberEntry("floor", math.Inf(-1)))
	reg.Upsert(NumberEntry("huge", 1e300))
	if err := reg.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loaded := NewRegistry()
	if err := loaded.ReadFile(path, false); err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if n, err := loaded.Number("undefined"); err != nil || !math.IsNaN(n) {
		t.Errorf("undefined = %v, %v; want NaN", n, err)
	}
	if n, err := loaded.Number("ceiling"); err != nil || !math.IsInf(n, 1) {
		t.Errorf("ceiling = %v, %v; want +Inf", n, err)
	}
	if n, err := loaded.Number("floor"); err != nil || !math.IsInf(n, -1) {
		t.Errorf("floor = %v, %v; want -Inf", n, err)
	}
	if n, err := loaded.Number("huge"); err != nil || n != 1e300 {
		t.Errorf("huge = %v, %v; want 1e300", n, err)
	}
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "settings.yaml")

	reg := NewRegistry()
	reg.Upsert(NumberEntry("gain", 3))
	reg.Upsert(TextEntry("label", "right"))
	if err := reg.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	loaded := NewRegistry()
	loaded.Upsert(TextEntry("local", "keep"))
	if err := loaded.MergeFile(path); err != nil {
		t.Fatalf("MergeFile() error = %v", err)
	}
	if loaded.Len() != 3 {
		t.Errorf("Len() after merge = %d, want 3", loaded.Len())
	}

	if err := loaded.ReadFile(path, false); err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if loaded.Len() != 2 {
		t.Errorf("Len() after replace = %d, want 2", loaded.Len())
	}
	if g, _ := loaded.Number("gain"); g != 3 {
		t.Errorf("gain = %v, want 3", g)
	}

	if err := loaded.ReadFile(filepath.Join(dir, "missing.yaml"), true); err == nil {
		t.Error("ReadFile() on a missing file should fail")
	}
}
