package configstore

import "strings"

// Kind is the storage type of a configuration field.
type Kind int

const (
	// KindText is a string bounded by the field's maximum byte length.
	KindText Kind = iota
	// KindUint is an unsigned 32-bit integer stored in NumericWidth bytes.
	KindUint
)

func (k Kind) String() string {
	if k == KindText {
		return "text"
	}
	return "unsigned integer"
}

const (
	// Namespace is the persistence namespace; every field persists under
	// Namespace + "/" + name.
	Namespace = "config"

	// MaxTextLength is the maximum byte length of a text field. The device
	// keeps text fields in 32-byte NUL-terminated buffers.
	MaxTextLength = 31

	// NumericWidth is the encoded width of numeric fields (little-endian uint32).
	NumericWidth = 4

	// UnsetAddress marks an OSC destination that has not been configured.
	UnsetAddress = "0.0.0.0"
)

// Field identifies one of the fixed identity/network configuration items.
type Field int

const (
	DeviceSSID Field = iota
	StaPassword
	APPassword
	OSCIP1
	OSCIP2
	OSCPort1
	OSCPort2
	LocalPort
	PersistentAP

	numFields
)

type descriptor struct {
	name     string // key used by get/set and persistence
	alias    string // snake_case alias accepted on lookup
	kind     Kind
	maxLen   int    // text only
	maxValue uint32 // numeric only
	defText  string
	defNum   uint32
	secret   bool
}

var fieldTable = [numFields]descriptor{
	DeviceSSID:   {name: "SSID", alias: "device_ssid", kind: KindText, maxLen: MaxTextLength, defText: "tstick_network"},
	StaPassword:  {name: "password", alias: "sta_password", kind: KindText, maxLen: MaxTextLength, defText: "mappings", secret: true},
	APPassword:   {name: "APpasswd", alias: "ap_password", kind: KindText, maxLen: MaxTextLength, defText: "mappings", secret: true},
	OSCIP1:       {name: "oscIP1", alias: "osc_ip_1", kind: KindText, maxLen: MaxTextLength, defText: "192.168.137.1"},
	OSCIP2:       {name: "oscIP2", alias: "osc_ip_2", kind: KindText, maxLen: MaxTextLength, defText: UnsetAddress},
	OSCPort1:     {name: "oscPORT1", alias: "osc_port_1", kind: KindUint, maxValue: 65535, defNum: 8000},
	OSCPort2:     {name: "oscPORT2", alias: "osc_port_2", kind: KindUint, maxValue: 65535, defNum: 8000},
	LocalPort:    {name: "localPORT", alias: "local_port", kind: KindUint, maxValue: 65535, defNum: 8000},
	PersistentAP: {name: "persistentAP", alias: "persistent_ap", kind: KindUint, maxValue: 1, defNum: 0},
}

var byName = func() map[string]Field {
	m := make(map[string]Field, 2*int(numFields))
	for f := Field(0); f < numFields; f++ {
		m[fieldTable[f].name] = f
		m[fieldTable[f].alias] = f
	}
	return m
}()

// Lookup resolves a field by its name ("oscPORT1") or alias ("osc_port_1").
func Lookup(name string) (Field, bool) {
	f, ok := byName[name]
	return f, ok
}

// Fields returns every configuration field in declaration order.
func Fields() []Field {
	out := make([]Field, 0, numFields)
	for f := Field(0); f < numFields; f++ {
		out = append(out, f)
	}
	return out
}

func (f Field) valid() bool { return f >= 0 && f < numFields }

// Name returns the field's stable string key.
func (f Field) Name() string { return fieldTable[f].name }

// Alias returns the snake_case alias of the field.
func (f Field) Alias() string { return fieldTable[f].alias }

// Kind returns the field's storage type.
func (f Field) Kind() Kind { return fieldTable[f].kind }

// MaxLength returns the maximum byte length of a text field, or NumericWidth
// for numeric fields.
func (f Field) MaxLength() int {
	if fieldTable[f].kind == KindUint {
		return NumericWidth
	}
	return fieldTable[f].maxLen
}

// MaxValue returns the largest value accepted by a numeric field.
func (f Field) MaxValue() uint32 { return fieldTable[f].maxValue }

// Secret reports whether the field holds a password.
func (f Field) Secret() bool { return fieldTable[f].secret }

// PersistenceKey returns the backend key, "config/<name>".
func (f Field) PersistenceKey() string { return Namespace + "/" + fieldTable[f].name }

// Default returns the field's default value.
func (f Field) Default() Value {
	d := fieldTable[f]
	if d.kind == KindText {
		return Text(d.defText)
	}
	return Number(float64(d.defNum))
}

func (f Field) String() string {
	if !f.valid() {
		return "Field(?)"
	}
	return fieldTable[f].name
}

// IsReachable reports whether ip is usable as a destination: anything except
// the empty string and UnsetAddress.
func IsReachable(ip string) bool {
	ip = strings.TrimSpace(ip)
	return ip != "" && ip != UnsetAddress
}
