// Package pdfout serializes laid-out box trees to PDF with fpdf.
//
// Boxes are drawn in tree order: background, borders, then text or image.
// Text uses the PDF core fonts, so glyphs outside Windows-1252 print as '?'.
package pdfout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"github.com/jmaupetit/md2pdf/internal/layout"
)

// Sentinel errors.
var (
	ErrNoPages = errors.New("document has no pages")
	ErrEmit    = errors.New("PDF emission failed")
)

// ptPerPx converts CSS pixels to PDF points.
const ptPerPx = 0.75

// DefaultCreator is written to the document information dictionary.
const DefaultCreator = "md2pdf"

// Emitter writes documents as PDF. The zero value is usable.
type Emitter struct {
	Creator string

	// CreationDate, when set, replaces the current time in the document
	// metadata and makes the output byte-for-byte reproducible.
	CreationDate time.Time
}

// Render serializes doc with a zero Emitter.
func Render(doc *layout.Document) ([]byte, error) {
	return Emitter{}.Render(doc)
}

// Write serializes doc to w with a zero Emitter.
func Write(w io.Writer, doc *layout.Document) error {
	return Emitter{}.Write(w, doc)
}

// Render returns the PDF bytes of doc.
func (e Emitter) Render(doc *layout.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes doc to w. Nothing is written when serialization fails.
func (e Emitter) Write(w io.Writer, doc *layout.Document) error {
	if doc == nil || len(doc.Pages) == 0 {
		return ErrNoPages
	}

	first := doc.Pages[0]
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: first.Width * ptPerPx, Ht: first.Height * ptPerPx},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if doc.Title != "" {
		pdf.SetTitle(doc.Title, true)
	}
	creator := e.Creator
	if creator == "" {
		creator = DefaultCreator
	}
	pdf.SetCreator(creator, true)
	if !e.CreationDate.IsZero() {
		pdf.SetCreationDate(e.CreationDate)
		pdf.SetModificationDate(e.CreationDate)
		pdf.SetCatalogSort(true)
	}

	d := &drawer{pdf: pdf, images: map[string]bool{}}
	for _, page := range doc.Pages {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: page.Width * ptPerPx, Ht: page.Height * ptPerPx})
		d.draw(page.Box)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("%w: %v", ErrEmit, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrEmit, err)
	}
	return nil
}

// drawer paints boxes on the current fpdf page.
type drawer struct {
	pdf    *fpdf.Fpdf
	images map[string]bool // registered image names
}

// draw paints root and its descendants in tree order, so later boxes
// cover earlier ones.
func (d *drawer) draw(root *layout.Box) {
	root.Walk(func(b *layout.Box) bool {
		st := b.Style
		if st == nil {
			return true
		}
		switch b.Kind {
		case layout.BlockBox:
			d.background(b, st)
			d.borders(b, st)
		case layout.TextBox:
			d.background(b, st)
			d.text(b, st)
		case layout.ImageBox:
			d.image(b)
		}
		return true
	})
}

func (d *drawer) background(b *layout.Box, st *layout.Style) {
	if !st.Background.Set || b.Width <= 0 || b.Height <= 0 {
		return
	}
	c := st.Background
	d.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
	d.pdf.Rect(b.X*ptPerPx, b.Y*ptPerPx, b.Width*ptPerPx, b.Height*ptPerPx, "F")
}

// borders fills each side as a rectangle inside the border box.
func (d *drawer) borders(b *layout.Box, st *layout.Style) {
	w := func(i int) float64 { return st.BorderWidth[i].Resolve(st.FontSize, b.Width) }
	top, right, bottom, left := w(0), w(1), w(2), w(3)
	if top <= 0 && right <= 0 && bottom <= 0 && left <= 0 {
		return
	}
	c := st.BorderColor
	if !c.Set {
		c = st.Color
	}
	d.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))

	rect := func(x, y, w, h float64) {
		if w > 0 && h > 0 {
			d.pdf.Rect(x*ptPerPx, y*ptPerPx, w*ptPerPx, h*ptPerPx, "F")
		}
	}
	rect(b.X, b.Y, b.Width, top)
	rect(b.X, b.Bottom()-bottom, b.Width, bottom)
	rect(b.X, b.Y, left, b.Height)
	rect(b.X+b.Width-right, b.Y, right, b.Height)
}

func (d *drawer) text(b *layout.Box, st *layout.Style) {
	if b.Text == "" {
		return
	}
	style := ""
	if st.Bold {
		style += "B"
	}
	if st.Italic {
		style += "I"
	}
	d.pdf.SetFont(st.FontFamily, style, st.FontSize*ptPerPx)
	d.pdf.SetTextColor(int(st.Color.R), int(st.Color.G), int(st.Color.B))

	baseline := b.Y + (b.Height-st.FontSize)/2 + layout.AscentRatio*st.FontSize
	d.pdf.Text(b.X*ptPerPx, baseline*ptPerPx, layout.EncodeText(b.Text))
}

func (d *drawer) image(b *layout.Box) {
	img := b.Image
	if img == nil || b.Width <= 0 || b.Height <= 0 {
		return
	}
	opts := fpdf.ImageOptions{ImageType: img.Format}
	if !d.images[img.Src] {
		d.pdf.RegisterImageOptionsReader(img.Src, opts, bytes.NewReader(img.Data))
		d.images[img.Src] = true
	}
	d.pdf.ImageOptions(img.Src, b.X*ptPerPx, b.Y*ptPerPx, b.Width*ptPerPx, b.Height*ptPerPx, false, opts, 0, "")
}
