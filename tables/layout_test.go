package tables

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"finparser/pdfprocessor/pdftest"
)

var statementColumns = []float64{40, 80, 400, 480}

func statementPage() pdftest.Page {
	var page pdftest.Page
	page = append(page, pdftest.Text{X: 80, Y: 760, S: "Statement of Standalone Unaudited Financial Results"})
	rows := [][]string{
		{"Sr", "Particulars", "30.06.2025", "30.06.2024"},
		{"1", "Revenue from operations", "4,622.19", "4,100.00"},
		{"2", "Other income", "12.00", "10.00"},
		{"", "Expenses"},
		{"3", "Total expenses", "(1,000.00)", "900.00"},
	}
	for i, r := range rows {
		page = append(page, pdftest.Row(700-float64(i)*14, statementColumns, r...)...)
	}
	page = append(page,
		pdftest.Text{X: 40, Y: 560, S: "Notes:"},
		pdftest.Text{X: 40, Y: 546, S: "Place: Mumbai"},
		pdftest.Text{X: 40, Y: 532, S: "Date: 30 July 2025"},
	)
	return page
}

func TestLayoutExtractor_Extract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	pdftest.Write(t, path, pdftest.Line("Cover letter"), statementPage())

	e := NewLayoutExtractor(DefaultLayoutConfig(), nil)
	tables, err := e.Extract(context.Background(), path, SinglePage(2))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(tables))
	}

	want := [][]string{
		{"Sr", "Particulars", "30.06.2025", "30.06.2024"},
		{"1", "Revenue from operations", "4,622.19", "4,100.00"},
		{"2", "Other income", "12.00", "10.00"},
		{"", "Expenses", "", ""},
		{"3", "Total expenses", "(1,000.00)", "900.00"},
	}
	if !reflect.DeepEqual(tables[0].Rows, want) {
		t.Errorf("rows =\n%v\nwant\n%v", tables[0].Rows, want)
	}
	if tables[0].Page != 2 || tables[0].Index != 1 {
		t.Errorf("Page = %d Index = %d", tables[0].Page, tables[0].Index)
	}
}

func TestLayoutExtractor_NoTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "letter.pdf")
	pdftest.Write(t, path, pdftest.Line("Dear Sir", "Please find enclosed", "Regards"))

	_, err := NewLayoutExtractor(LayoutConfig{}, nil).Extract(context.Background(), path, nil)
	if !errors.Is(err, ErrNoTables) {
		t.Errorf("error = %v, want ErrNoTables", err)
	}
}

func cellsAt(texts ...any) []cell {
	var out []cell
	for i := 0; i+2 < len(texts); i += 3 {
		out = append(out, cell{text: texts[i].(string), start: texts[i+1].(float64), end: texts[i+2].(float64)})
	}
	return out
}

func TestGroupTables(t *testing.T) {
	e := NewLayoutExtractor(LayoutConfig{MaxBreakRows: 1}, nil)
	lines := [][]cell{
		cellsAt("Title", 10.0, 100.0),
		cellsAt("a", 10.0, 20.0, "1", 100.0, 120.0),
		cellsAt("caption", 10.0, 50.0),
		cellsAt("b", 10.0, 20.0, "2", 100.0, 120.0),
		cellsAt("x", 10.0, 20.0),
		cellsAt("y", 10.0, 20.0),
		cellsAt("c", 10.0, 20.0, "3", 100.0, 120.0),
	}

	grids := e.groupTables(lines)
	want := [][][]string{
		{{"a", "1"}, {"caption", ""}, {"b", "2"}},
	}
	if !reflect.DeepEqual(grids, want) {
		t.Errorf("groupTables() = %v, want %v", grids, want)
	}
}

func TestAlignColumns_WideHeader(t *testing.T) {
	lines := [][]cell{
		cellsAt("Particulars", 10.0, 60.0, "Quarter ended", 95.0, 200.0),
		cellsAt("Revenue", 10.0, 45.0, "100", 100.0, 115.0, "90", 180.0, 190.0),
		cellsAt("Tax", 10.0, 25.0, "(5)", 100.0, 115.0, "4", 185.0, 190.0),
	}
	got := alignColumns(lines)
	want := [][]string{
		{"Particulars", "Quarter ended", ""},
		{"Revenue", "100", "90"},
		{"Tax", "(5)", "4"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("alignColumns() = %v, want %v", got, want)
	}
}
