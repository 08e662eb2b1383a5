package excelgen

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"finparser/logging"
	"finparser/statement"
)

// SheetName is the name of the generated worksheet.
const SheetName = "Financial Statement"

const (
	headerFill  = "E0E0E0"
	sectionFill = "F0F0F0"

	borderThin   = 1
	borderDouble = 6
)

// Generator writes statements as workbooks and CSV files.
type Generator struct {
	logger *logging.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{logger: logger.Named("excelgen")}
}

// WriteExcel renders s as an .xlsx workbook.
func (g *Generator) WriteExcel(s *statement.Statement, w io.Writer) error {
	f, err := buildWorkbook(Layout(s))
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV renders s as CSV with the same rows as the workbook.
func (g *Generator) WriteCSV(s *statement.Statement, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Layout(s).Grid()); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// ExcelFile writes the workbook to path.
func (g *Generator) ExcelFile(s *statement.Statement, path string) error {
	return g.toFile(path, "excel", func(w io.Writer) error { return g.WriteExcel(s, w) })
}

// CSVFile writes the CSV rendering to path.
func (g *Generator) CSVFile(s *statement.Statement, path string) error {
	return g.toFile(path, "csv", func(w io.Writer) error { return g.WriteCSV(s, w) })
}

func (g *Generator) toFile(path, kind string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	g.logger.Info("File generated", zap.String("type", kind), zap.String("path", path))
	return nil
}

type styles struct {
	title, header, section int
	plain, value           int
	totalLabel, totalValue int
}

func thinBorders(bottom int) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: borderThin},
		{Type: "right", Color: "000000", Style: borderThin},
		{Type: "top", Color: "000000", Style: borderThin},
		{Type: "bottom", Color: "000000", Style: bottom},
	}
}

func newStyles(f *excelize.File) (*styles, error) {
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	right := &excelize.Alignment{Horizontal: "right"}
	bold := &excelize.Font{Bold: true}

	s := &styles{}
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}, Alignment: center, Fill: fill(headerFill), Border: thinBorders(borderThin)}},
		{&s.header, &excelize.Style{Font: bold, Alignment: center, Fill: fill(headerFill), Border: thinBorders(borderThin)}},
		{&s.section, &excelize.Style{Font: bold, Fill: fill(sectionFill), Border: thinBorders(borderThin)}},
		{&s.plain, &excelize.Style{Border: thinBorders(borderThin)}},
		{&s.value, &excelize.Style{Alignment: right, Border: thinBorders(borderThin)}},
		{&s.totalLabel, &excelize.Style{Font: bold, Border: thinBorders(borderDouble)}},
		{&s.totalValue, &excelize.Style{Font: bold, Alignment: right, Border: thinBorders(borderDouble)}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("failed to create style: %w", err)
		}
		*d.dst = id
	}
	return s, nil
}

func buildWorkbook(sheet *Sheet) (*excelize.File, error) {
	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f}
	last := Periods[len(Periods)-1].Column

	w.width("A", "A", 60)
	w.width("B", last, 15)
	w.style("A1", last+"47", st.plain)

	// header rows
	w.merge("B1", last+"1")
	w.set("B1", sheet.Title, st.title)
	w.set("A2", "INR Crs", st.plain)
	w.set("A3", "I. Revenue from operations", st.section)
	for _, p := range Periods {
		w.set(p.Column+"2", p.Header, st.header)
		w.set(p.Column+"3", p.Description, st.header)
	}

	for _, line := range Template {
		label := fmt.Sprintf("A%d", line.Row)
		switch line.Kind {
		case KindBlank:
			continue
		case KindHeading, KindSection:
			w.set(label, line.Label, st.section)
		case KindTotal:
			w.set(label, line.Label, st.totalLabel)
		default:
			w.set(label, line.Label, st.plain)
		}
		if !line.HasValues() {
			continue
		}

		valueStyle := st.value
		if line.Kind == KindTotal {
			valueStyle = st.totalValue
		}
		for i, p := range Periods {
			w.set(fmt.Sprintf("%s%d", p.Column, line.Row), sheet.Values[line.Row][i], valueStyle)
		}
	}

	if w.err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", w.err)
	}
	ok = true
	return f, nil
}

// sheetWriter records the first error so cell writes read as a sequence.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) set(cell string, value interface{}, style int) {
	if w.err != nil {
		return
	}
	if w.err = w.f.SetCellValue(SheetName, cell, value); w.err != nil {
		return
	}
	w.err = w.f.SetCellStyle(SheetName, cell, cell, style)
}

func (w *sheetWriter) style(from, to string, style int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(SheetName, from, to, style)
	}
}

func (w *sheetWriter) merge(from, to string) {
	if w.err == nil {
		w.err = w.f.MergeCell(SheetName, from, to)
	}
}

func (w *sheetWriter) width(from, to string, width float64) {
	if w.err == nil {
		w.err = w.f.SetColWidth(SheetName, from, to, width)
	}
}
