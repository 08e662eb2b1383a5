package excelgen

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"finparser/statement"
)

func sampleStatement() *statement.Statement {
	return &statement.Statement{
		CompanyName: "BRITANNIA",
		FinancialData: []statement.LineItem{
			{Particular: "Sale of products", Key: "sale_of_products", Values: map[string]string{
				"30.06.2025": "4,357.64", "31.03.2025_Y": "16,859.22",
			}},
			{Particular: "Revenue from operations", Key: "revenue_from_operations", Values: map[string]string{
				"30.06.2025": "4,622.19", "31.03.2025": "4,432.19",
			}},
			{Particular: "Exceptional items", Key: "exceptional_item_expense", Values: map[string]string{
				"30.06.2025": "(12.50)",
			}},
			{Particular: "Profit for the period", Key: "net_profit", Values: map[string]string{
				"30.06.2025": "520.1", "30.06.2024": "",
			}},
		},
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"4,357.64", 4357.64},
		{"(12.50)", -12.5},
		{"-3", -3},
		{" 1,00,000 ", 100000},
		{"", 0},
		{"   ", 0},
		{"n/a", 0},
		{"-", 0},
		{"NaN", 0},
	}
	for _, tt := range tests {
		if got := ParseNumber(tt.in); got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "-"},
		{1234.56, "1,234.56"},
		{-1234.56, "(1,234.56)"},
		{16859.22, "16,859.22"},
		{0.5, "0.50"},
		{1000000, "1,000,000.00"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTemplateRowsAreContiguous(t *testing.T) {
	for i, line := range Template {
		if line.Row != i+4 {
			t.Fatalf("Template[%d].Row = %d, want %d", i, line.Row, i+4)
		}
		if line.HasValues() && !statement.IsKnownKey(line.Key) {
			t.Errorf("row %d uses unknown key %q", line.Row, line.Key)
		}
	}
	if last := Template[len(Template)-1].Row; last != Rows {
		t.Errorf("last row = %d, want %d", last, Rows)
	}
}

func TestGrid(t *testing.T) {
	grid := Layout(sampleStatement()).Grid()

	if len(grid) != Rows {
		t.Fatalf("rows = %d, want %d", len(grid), Rows)
	}
	for i, row := range grid {
		if len(row) != 12 {
			t.Fatalf("row %d has %d cells, want 12", i+1, len(row))
		}
	}

	checks := []struct {
		row, col int
		want     string
	}{
		{1, 2, "BRITANNIA"},
		{2, 1, "INR Crs"},
		{2, 2, "Unaudited Q1"},
		{3, 3, "12M"},
		{4, 1, "Sale of goods / Income from operations Domestic"},
		{4, 2, "4,357.64"},
		{4, 3, "16,859.22"},
		{4, 4, "-"},
		{8, 2, "4,622.19"},
		{8, 4, "4,432.19"},
		{11, 2, "-"},
		{14, 1, ""},
		{14, 2, ""},
		{32, 2, "(12.50)"},
		{41, 2, "520.10"},
		{41, 7, "-"},
		{47, 1, "Price Gr%"},
	}
	for _, c := range checks {
		if got := grid[c.row-1][c.col-1]; got != c.want {
			t.Errorf("cell (%d,%d) = %q, want %q", c.row, c.col, got, c.want)
		}
	}
}

func TestLayout_DefaultTitle(t *testing.T) {
	sheet := Layout(&statement.Statement{FinancialData: []statement.LineItem{}})
	if sheet.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", sheet.Title, DefaultTitle)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := NewGenerator(nil).WriteCSV(sampleStatement(), &buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("generated CSV unreadable: %v", err)
	}
	if len(records) != Rows {
		t.Fatalf("records = %d, want %d", len(records), Rows)
	}
	if records[18][0] != "Changes in inventories of finished goods, work-in-progress and stock-in-trade" {
		t.Errorf("row 19 label = %q", records[18][0])
	}
}

func TestExcelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "britannia.xlsx")
	if err := NewGenerator(nil).ExcelFile(sampleStatement(), path); err != nil {
		t.Fatalf("ExcelFile() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	if got := f.GetSheetName(0); got != SheetName {
		t.Errorf("sheet name = %q, want %q", got, SheetName)
	}

	cells := map[string]string{
		"B1":  "BRITANNIA",
		"A2":  "INR Crs",
		"L2":  "Q1 FY 2024",
		"L3":  "3M-30th Jun 2023",
		"B4":  "4,357.64",
		"A8":  "Total Revenue",
		"B8":  "4,622.19",
		"A15": "IV. Expenses:",
		"B15": "",
		"B32": "(12.50)",
		"A43": "EBITDA",
		"B43": "-",
	}
	for cell, want := range cells {
		got, err := f.GetCellValue(SheetName, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) error = %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}

	merged, err := f.GetMergeCells(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged) != 1 || merged[0].GetStartAxis() != "B1" || merged[0].GetEndAxis() != "L1" {
		t.Errorf("merged cells = %v", merged)
	}

	width, err := f.GetColWidth(SheetName, "A")
	if err != nil || width != 60 {
		t.Errorf("column A width = %v, %v; want 60", width, err)
	}
}
