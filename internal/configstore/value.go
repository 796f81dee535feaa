package configstore

import (
	"math"
	"strconv"
)

// ValueKind tags a Value as text or number.
type ValueKind int

const (
	TextValue ValueKind = iota
	NumberValue
)

// Value is the tagged variant accepted by Set.
type Value struct {
	kind   ValueKind
	text   string
	number float64
}

// Text builds a text Value.
func Text(s string) Value { return Value{kind: TextValue, text: s} }

// Number builds a numeric Value.
func Number(n float64) Value { return Value{kind: NumberValue, number: n} }

// Kind returns the value's tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsText reports whether v is a text value.
func (v Value) IsText() bool { return v.kind == TextValue }

// TextValue returns the text payload ("" for numbers).
func (v Value) TextValue() string { return v.text }

// NumberValue returns the numeric payload (0 for text).
func (v Value) NumberValue() float64 { return v.number }

// String renders the value; whole numbers print without a fraction.
func (v Value) String() string {
	if v.kind == TextValue {
		return v.text
	}
	if v.number == math.Trunc(v.number) && math.Abs(v.number) < 1e15 {
		return strconv.FormatInt(int64(v.number), 10)
	}
	return strconv.FormatFloat(v.number, 'g', -1, 64)
}
