// Package tables turns a results page into tables: conversion through an
// external document service or the local layout extractor, per-table
// exports and selection of the main statement table.
package tables

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"html"
	"strings"
)

// Table is a rectangular grid of cell texts.
type Table struct {
	// Index is the 1-based position of the table in the document
	Index int

	// Page is the 1-based source page, 0 when unknown
	Page int

	Rows [][]string
}

// PageRange selects pages (1-based, inclusive) for conversion.
type PageRange struct {
	From, To int
}

// SinglePage returns a range covering one page.
func SinglePage(page int) *PageRange {
	return &PageRange{From: page, To: page}
}

// Extractor pulls tables out of a PDF. A nil pages argument means the whole document.
type Extractor interface {
	Extract(ctx context.Context, pdfPath string, pages *PageRange) ([]Table, error)
}

// Columns returns the width of the widest row.
func (t Table) Columns() int {
	n := 0
	for _, r := range t.Rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

// RowText joins the non-empty cells of row i with single spaces.
func (t Table) RowText(i int) string {
	if i < 0 || i >= len(t.Rows) {
		return ""
	}
	parts := make([]string, 0, len(t.Rows[i]))
	for _, c := range t.Rows[i] {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

// Text returns every row's text on its own line.
func (t Table) Text() string {
	lines := make([]string, len(t.Rows))
	for i := range t.Rows {
		lines[i] = t.RowText(i)
	}
	return strings.Join(lines, "\n")
}

// HTML renders the table as a plain <table> with one <td> per cell.
func (t Table) HTML() string {
	var b strings.Builder
	b.WriteString("<table>\n")
	for _, row := range t.Rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n")
	return b.String()
}

// CSV renders the table with rows padded to the same width.
func (t Table) CSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	width := t.Columns()
	for _, row := range t.Rows {
		if err := w.Write(pad(row, width)); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.String(), nil
}

// Markdown renders the table as a pipe table using the first row as header.
func (t Table) Markdown() string {
	width := t.Columns()
	if width == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range pad(cells, width) {
			c = strings.ReplaceAll(strings.TrimSpace(c), "|", `\|`)
			c = strings.ReplaceAll(c, "\n", " ")
			b.WriteString(" " + c + " |")
		}
		b.WriteString("\n")
	}

	writeRow(t.Rows[0])
	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, row := range t.Rows[1:] {
		writeRow(row)
	}
	return b.String()
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
