package layout

import (
	"strconv"
	"strings"
)

// Unit conversion factors to CSS pixels.
const (
	pxPerInch = 96.0
	pxPerCm   = pxPerInch / 2.54
	pxPerMm   = pxPerCm / 10
	pxPerPt   = pxPerInch / 72
	pxPerPc   = pxPerPt * 12

	// rootFontSize is the html font-size used to resolve rem units.
	rootFontSize = 16.0
)

// Length is an unresolved CSS length.
type Length struct {
	Value   float64
	Unit    string // "px", "em", "rem", "%", or "" for unitless
	Auto    bool
	Defined bool
}

// px returns a defined pixel length.
func px(v float64) Length {
	return Length{Value: v, Unit: "px", Defined: true}
}

// Resolve converts l to px. fontSize resolves em, ref resolves percentages.
// Undefined and auto lengths resolve to 0.
func (l Length) Resolve(fontSize, ref float64) float64 {
	if !l.Defined || l.Auto {
		return 0
	}
	switch l.Unit {
	case "em":
		return l.Value * fontSize
	case "rem":
		return l.Value * rootFontSize
	case "%":
		return l.Value * ref / 100
	default:
		return l.Value
	}
}

// parseLength parses a CSS length, converting absolute units to px.
func parseLength(s string) (Length, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Length{}, false
	}
	if s == "auto" {
		return Length{Auto: true, Defined: true}, true
	}

	num := s
	unit := ""
	for i, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			num, unit = s[:i], s[i:]
			break
		}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}

	switch unit {
	case "", "px":
		if unit == "" && v != 0 {
			return Length{}, false
		}
		return px(v), true
	case "pt":
		return px(v * pxPerPt), true
	case "pc":
		return px(v * pxPerPc), true
	case "in":
		return px(v * pxPerInch), true
	case "cm":
		return px(v * pxPerCm), true
	case "mm":
		return px(v * pxPerMm), true
	case "em", "rem", "%":
		return Length{Value: v, Unit: unit, Defined: true}, true
	}
	return Length{}, false
}

// parseEdges expands a 1 to 4 value shorthand (margin, padding) into
// top, right, bottom, left.
func parseEdges(s string) ([4]Length, bool) {
	var out [4]Length
	parts := strings.Fields(s)
	vals := make([]Length, 0, 4)
	for _, p := range parts {
		l, ok := parseLength(p)
		if !ok {
			return out, false
		}
		vals = append(vals, l)
	}
	switch len(vals) {
	case 1:
		out = [4]Length{vals[0], vals[0], vals[0], vals[0]}
	case 2:
		out = [4]Length{vals[0], vals[1], vals[0], vals[1]}
	case 3:
		out = [4]Length{vals[0], vals[1], vals[2], vals[1]}
	case 4:
		out = [4]Length{vals[0], vals[1], vals[2], vals[3]}
	default:
		return out, false
	}
	return out, true
}

// Color is an RGB color. The zero value with Set false means "not set".
type Color struct {
	R, G, B uint8
	Set     bool
}

// namedColors covers the CSS basic color keywords.
var namedColors = map[string]Color{
	"black":   {0, 0, 0, true},
	"white":   {255, 255, 255, true},
	"red":     {255, 0, 0, true},
	"green":   {0, 128, 0, true},
	"blue":    {0, 0, 255, true},
	"gray":    {128, 128, 128, true},
	"grey":    {128, 128, 128, true},
	"silver":  {192, 192, 192, true},
	"maroon":  {128, 0, 0, true},
	"purple":  {128, 0, 128, true},
	"fuchsia": {255, 0, 255, true},
	"lime":    {0, 255, 0, true},
	"olive":   {128, 128, 0, true},
	"yellow":  {255, 255, 0, true},
	"navy":    {0, 0, 128, true},
	"teal":    {0, 128, 128, true},
	"aqua":    {0, 255, 255, true},
	"orange":  {255, 165, 0, true},
}

// parseColor parses #rgb, #rrggbb, rgb()/rgba() and basic keywords.
// "transparent" parses to an unset color.
func parseColor(s string) (Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "transparent" {
		return Color{}, true
	}
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return Color{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return Color{}, false
		}
		return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), Set: true}, true
	}
	if (strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba(")) && strings.HasSuffix(s, ")") {
		inner := s[strings.Index(s, "(")+1 : len(s)-1]
		parts := strings.FieldsFunc(inner, func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
		if len(parts) < 3 {
			return Color{}, false
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			p := parts[i]
			scale := 1.0
			if strings.HasSuffix(p, "%") {
				p = strings.TrimSuffix(p, "%")
				scale = 2.55
			}
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return Color{}, false
			}
			rgb[i] = uint8(min(max(v*scale, 0), 255))
		}
		return Color{R: rgb[0], G: rgb[1], B: rgb[2], Set: true}, true
	}
	return Color{}, false
}
