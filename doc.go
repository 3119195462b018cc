// Package md2pdf converts Markdown documents to paginated PDF, with
// optional header and footer overlays repeated on every page.
//
// # Quick Start
//
//	conv, err := md2pdf.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, md2pdf.Input{
//	    Markdown: "# Hello\n\nWorld",
//	    Footer:   `<p>Page <span class="pageNumber"></span> of <span class="totalPages"></span></p>`,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("output.pdf", result.PDF, 0644)
//
// # Conversion Pipeline
//
//  1. Front matter extraction and context merge
//  2. Template substitution of the Markdown, header and footer
//  3. Markdown preprocessing and conversion via goldmark
//  4. Base document template
//  5. Header and footer measurement, body margins derived from their heights
//  6. Body layout, then per-page overlay compositing
//  7. PDF serialization
//
// Steps 5 to 7 run on the built-in flow engine by default. WithEngine("chrome")
// keeps step 5 and lets headless Chrome print the body with the fragments as
// its native header and footer templates.
//
// # Page Geometry
//
// Pages are A4 portrait. The body top margin is the header height plus the
// vertical buffer, the bottom margin the footer height plus the buffer. The
// side margin is given in centimeters and applies left and right:
//
//	conv, err := md2pdf.NewConverter(
//	    md2pdf.WithSideMargin(2.5),
//	    md2pdf.WithVerticalBuffer(20),
//	)
//
// # Templating
//
// Input.Context and the document front matter feed Go templates in the
// Markdown, header and footer. Front matter wins over Input.Context:
//
//	---
//	title: Quarterly report
//	---
//	# {{ .title }}
//
// # Parallel Processing
//
// A Converter is not safe for concurrent use. For batches, ConverterPool
// hands out one Converter per worker:
//
//	pool := md2pdf.NewConverterPool(md2pdf.ResolvePoolSize(0))
//	defer pool.Close()
//	conv := pool.Acquire()
//	defer pool.Release(conv)
package md2pdf
