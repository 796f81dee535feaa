package settings

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of the settings file:
//
//	settings:
//	  - name: sensitivity
//	    value: 0.8
type document struct {
	Settings []documentEntry `yaml:"settings"`
}

type documentEntry struct {
	Name  string    `yaml:"name"`
	Value yaml.Node `yaml:"value"`
}

// Decode parses a settings document. A value written as a YAML number
// becomes a numeric entry; anything else is kept as text with the number
// zeroed.
func Decode(r io.Reader) ([]Entry, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse settings document: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Settings))
	for i, item := range doc.Settings {
		if item.Name == "" {
			return nil, fmt.Errorf("settings[%d]: missing name", i)
		}
		entry, err := classify(item.Name, &item.Value)
		if err != nil {
			return nil, fmt.Errorf("settings[%d] (%s): %w", i, item.Name, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func classify(name string, node *yaml.Node) (Entry, error) {
	if node.Kind == 0 {
		return TextEntry(name, ""), nil
	}
	if node.Kind != yaml.ScalarNode {
		return Entry{}, fmt.Errorf("value must be a scalar")
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		var n float64
		if err := node.Decode(&n); err != nil {
			return Entry{}, fmt.Errorf("invalid number %q: %w", node.Value, err)
		}
		return NumberEntry(name, n), nil
	case "!!null":
		return TextEntry(name, ""), nil
	default:
		return TextEntry(name, node.Value), nil
	}
}

// Encode writes entries as a settings document.
func Encode(w io.Writer, entries []Entry) error {
	doc := document{Settings: make([]documentEntry, 0, len(entries))}
	for _, e := range entries {
		var node yaml.Node
		if e.Type == TypeNumber {
			node = numberNode(e.NumberValue)
		} else {
			node = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.TextValue}
		}
		doc.Settings = append(doc.Settings, documentEntry{Name: e.Name, Value: node})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return enc.Close()
}

// numberNode renders n in a form classify reads back as the same number.
func numberNode(n float64) yaml.Node {
	node := yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float"}
	switch {
	case math.IsNaN(n):
		node.Value = ".nan"
	case math.IsInf(n, 1):
		node.Value = ".inf"
	case math.IsInf(n, -1):
		node.Value = "-.inf"
	case n == math.Trunc(n) && math.Abs(n) < 1<<53:
		node.Tag = "!!int"
		node.Value = strconv.FormatInt(int64(n), 10)
	default:
		node.Value = strconv.FormatFloat(n, 'g', -1, 64)
	}
	return node
}

// ReadFile loads a settings document into r. Without merge the registry is
// replaced; with merge, existing entries not in the file survive.
func (r *Registry) ReadFile(path string, merge bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	entries, err := Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	r.LoadBatch(entries, merge)
	return nil
}

// MergeFile is ReadFile with merge set.
func (r *Registry) MergeFile(path string) error {
	return r.ReadFile(path, true)
}

// WriteFile saves the registry as a settings document. The write is atomic.
func (r *Registry) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, r.Entries()); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write temporary settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings file: %w", err)
	}
	return nil
}
