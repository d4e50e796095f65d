package layout

import (
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for lengths used by config and renderers.
// The layout engine itself works in pixels.

// Unit represents the original unit of a length value as written in config.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitPX               // CSS pixels (96 per inch)
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Conversion constants between pt, mm and px.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
	PxToPt = 0.75
	PtToPx = 1.0 / PxToPt
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitPX:
		return "px"
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// toMM normalises to millimeters; UnitNone is reported as not convertible.
func (l Length) toMM() (float64, bool) {
	switch l.Unit {
	case UnitPX:
		return l.Value * PxToPt * PtToMm, true
	case UnitMM:
		return l.Value, true
	case UnitCM:
		return l.Value * 10, true
	case UnitIN:
		return l.Value * 25.4, true
	case UnitPT:
		return l.Value * PtToMm, true
	default:
		return l.Value, false
	}
}

// To converts this length to target unit.
func (l Length) To(target Unit) float64 {
	if l.Unit == target {
		return l.Value
	}
	mm, ok := l.toMM()
	if !ok {
		// unit-less numbers keep their value in any target
		return l.Value
	}
	switch target {
	case UnitPX:
		return mm * MmToPt * PtToPx
	case UnitPT:
		return mm * MmToPt
	case UnitCM:
		return mm / 10
	case UnitIN:
		return mm / 25.4
	default:
		return mm
	}
}

func (l Length) ToMM() float64 { return l.To(UnitMM) }
func (l Length) ToPT() float64 { return l.To(UnitPT) }
func (l Length) ToPX() float64 { return l.To(UnitPX) }

// ParseRawLengthStr parses a config length string preserving its unit.
// A bare number keeps UnitNone so callers can pick their own default unit.
func ParseRawLengthStr(value string) Length {
	v := strings.TrimSpace(value)
	if v == "" {
		return Length{Value: 0, Unit: UnitNone}
	}
	lower := strings.ToLower(v)
	unit := UnitNone
	num := lower
	for _, suf := range []struct {
		s string
		u Unit
	}{{"px", UnitPX}, {"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{Value: 0, Unit: UnitNone}
	}
	return Length{Value: f, Unit: unit}
}

// LineHeightKind distinguishes factor-based vs absolute line-height specification.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec preserves original author intent: either a factor (e.g., 1.2x) or an absolute length (e.g., 18pt).
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight accepts "1.2x", "1.2" (factor) or a length such as "14pt".
func ParseLineHeight(value string) LineHeightSpec {
	v := strings.ToLower(strings.TrimSpace(value))
	if f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64); err == nil {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: f}
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: ParseRawLengthStr(v)}
}

// Resolve computes the absolute line height in target unit using the given fontSize (which carries its unit).
func (s LineHeightSpec) Resolve(fontSize Length, target Unit) float64 {
	switch s.Kind {
	case LineHeightFactor:
		if s.Factor <= 0 {
			return fontSize.To(target) * 1.2
		}
		return fontSize.To(target) * s.Factor
	case LineHeightAbsolute:
		return s.Len.To(target)
	default:
		return fontSize.To(target) * 1.2
	}
}
