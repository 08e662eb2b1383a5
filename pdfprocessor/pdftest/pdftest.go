// Package pdftest writes small text PDFs for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"
)

// Text places a single string on a page. X and Y are in points from the
// bottom-left corner.
type Text struct {
	X, Y float64
	S    string
}

// Page is the text content of one page.
type Page []Text

// Line returns a page holding each string on its own line at the left margin.
func Line(lines ...string) Page {
	page := make(Page, len(lines))
	for i, s := range lines {
		page[i] = Text{X: 50, Y: 750 - float64(i)*14, S: s}
	}
	return page
}

// Row returns text runs for one table row: cells start at the given x
// positions on baseline y.
func Row(y float64, xs []float64, cells ...string) []Text {
	texts := make([]Text, 0, len(cells))
	for i, c := range cells {
		if c == "" || i >= len(xs) {
			continue
		}
		texts = append(texts, Text{X: xs[i], Y: y, S: c})
	}
	return texts
}

// Write creates a PDF at path with one page per entry using Helvetica 10pt.
func Write(t testing.TB, path string, pages ...Page) {
	t.Helper()
	if err := os.WriteFile(path, Build(pages...), 0644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
}

// Build renders the pages to PDF bytes.
func Build(pages ...Page) []byte {
	var objects []string

	// 1 catalog, 2 page tree, 3 font, then a page and content stream pair per page
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
			strings.TrimSpace(strings.Repeat("500 ", 95))),
	)

	for i, page := range pages {
		var content strings.Builder
		for _, text := range page {
			fmt.Fprintf(&content, "BT /F1 10 Tf %.2f %.2f Td (%s) Tj ET\n", text.X, text.Y, escape(text.S))
		}
		stream := content.String()
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
