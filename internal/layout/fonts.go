package layout

import (
	"strings"
	"sync"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

// AscentRatio approximates the ascender of the core fonts as a fraction of
// the font size. Used to place the baseline inside a line.
const AscentRatio = 0.718

// fallbackWidth is the advance used when the metrics of a font cannot be loaded,
// in thousandths of an em.
const fallbackWidth = 500

// familyAliases maps CSS family names to the PDF core font that renders them.
var familyAliases = map[string]string{
	"serif":           "Times",
	"times":           "Times",
	"times new roman": "Times",
	"georgia":         "Times",
	"garamond":        "Times",
	"cambria":         "Times",
	"sans-serif":      "Helvetica",
	"helvetica":       "Helvetica",
	"arial":           "Helvetica",
	"verdana":         "Helvetica",
	"system-ui":       "Helvetica",
	"-apple-system":   "Helvetica",
	"segoe ui":        "Helvetica",
	"roboto":          "Helvetica",
	"inter":           "Helvetica",
	"monospace":       "Courier",
	"courier":         "Courier",
	"courier new":     "Courier",
	"consolas":        "Courier",
	"menlo":           "Courier",
	"monaco":          "Courier",
	"source code pro": "Courier",
	"fira code":       "Courier",
}

// resolveFamily returns the core font for the first known name of a CSS
// font-family list.
func resolveFamily(list string) (string, bool) {
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
		if fam, ok := familyAliases[name]; ok {
			return fam, true
		}
	}
	return "", false
}

// fontKey identifies one face of a core font.
type fontKey struct {
	family       string
	bold, italic bool
}

func (k fontKey) styleString() string {
	s := ""
	if k.bold {
		s += "B"
	}
	if k.italic {
		s += "I"
	}
	return s
}

func fontKeyOf(s *Style) fontKey {
	return fontKey{family: s.FontFamily, bold: s.Bold, italic: s.Italic}
}

// metrics holds per-byte advance widths in thousandths of an em for a
// Windows-1252 encoded font.
type metrics struct {
	widths [256]float64
}

var (
	metricsMu    sync.Mutex
	metricsCache = map[fontKey]*metrics{}
)

// metricsFor returns the width table of k, loading it through fpdf on first
// use. Tables are read-only once returned.
func metricsFor(k fontKey) *metrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if m, ok := metricsCache[k]; ok {
		return m
	}

	m := &metrics{}
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont(k.family, k.styleString(), 1000)
	for i := 1; i < 256; i++ {
		m.widths[i] = pdf.GetStringWidth(string([]byte{byte(i)}))
	}
	if pdf.Err() {
		for i := range m.widths {
			m.widths[i] = fallbackWidth
		}
	}
	metricsCache[k] = m
	return m
}

// width returns the advance of an encoded string at size px.
func (m *metrics) width(encoded string, size float64) float64 {
	w := 0.0
	for i := 0; i < len(encoded); i++ {
		w += m.widths[encoded[i]]
	}
	return w * size / 1000
}

// textWidth measures UTF-8 text s in style st, in px.
func textWidth(s string, st *Style) float64 {
	return metricsFor(fontKeyOf(st)).width(EncodeText(s), st.FontSize)
}

// EncodeText converts UTF-8 text to Windows-1252, the encoding of the PDF
// core fonts. Runes outside the code page become '?'.
func EncodeText(s string) string {
	enc := charmap.Windows1252
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		if b, ok := enc.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		out = append(out, '?')
	}
	return string(out)
}
