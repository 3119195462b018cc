package overlay

import (
	"math"
	"strconv"

	"github.com/jmaupetit/md2pdf/internal/layout"
)

// Margins are the body page margins. Top and Bottom are in px, Side in cm;
// the two units are kept apart and written as is into the page rule.
type Margins struct {
	Top    float64
	Bottom float64
	Side   float64
}

// ComputeMargins derives the body margins from the measured fragment
// heights. Absent fragments measure 0; the buffer applies regardless.
func ComputeMargins(header, footer, side, buffer float64) Margins {
	return Margins{
		Top:    header + buffer,
		Bottom: footer + buffer,
		Side:   side,
	}
}

// CSS renders the margin shorthand, top right bottom left.
func (m Margins) CSS() string {
	side := formatNumber(m.Side) + "cm"
	return formatNumber(m.Top) + "px " + side + " " + formatNumber(m.Bottom) + "px " + side
}

// PageRule renders the @page rule of the body document.
func (m Margins) PageRule() string {
	return "@page {size: A4 portrait; margin: " + m.CSS() + ";}"
}

// Stylesheet returns the page rule as the first stylesheet of the body render.
func (m Margins) Stylesheet() layout.Stylesheet {
	return layout.Stylesheet{Name: PageLayoutSheetName, CSS: m.PageRule()}
}

// pxPrecision is the resolution of measured heights and emitted lengths.
const pxPrecision = 1e6

// roundPx drops float noise below a millionth of a pixel, so 65.20000000000005
// becomes 65.2.
func roundPx(v float64) float64 {
	return math.Round(v*pxPrecision) / pxPrecision
}

// formatNumber uses the shortest decimal representation of v rounded to a
// millionth: 30, 70.5.
func formatNumber(v float64) string {
	return strconv.FormatFloat(roundPx(v), 'f', -1, 64)
}
