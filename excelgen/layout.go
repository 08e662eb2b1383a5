// Package excelgen renders a statement into the fixed quarterly template as
// an Excel workbook or CSV file.
package excelgen

import (
	"strings"

	"finparser/statement"
)

// DefaultTitle is used when a statement has no company name.
const DefaultTitle = "Financial Statement"

// Period is one template column.
type Period struct {
	Key         string
	Column      string
	Header      string
	Description string
}

// Periods lists the template columns in order, B through L.
var Periods = []Period{
	{"30.06.2025", "B", "Unaudited Q1", "3M-30th Jun 2025"},
	{"31.03.2025_Y", "C", "FY 2025", "12M"},
	{"31.03.2025", "D", "Q4", "3M-31st Mar 2025"},
	{"31.12.2024", "E", "Q3", "3M-31st Dec 2024"},
	{"30.09.2024", "F", "Q2", "3M-30th Sept 2024"},
	{"30.06.2024", "G", "Unaudited Q1 FY 2024", "3M-30th Jun 2024"},
	{"31.03.2024_Y", "H", "FY 2024", "12M"},
	{"31.03.2024", "I", "Q4 FY 2024", "3M-31st Mar 2024"},
	{"31.12.2023", "J", "Q3 FY 2024", "3M-31st Dec 2023"},
	{"30.09.2023", "K", "Q2 FY 2024", "3M-30th Sept 2023"},
	{"30.06.2023", "L", "Q1 FY 2024", "3M-30th Jun 2023"},
}

// Columns is the template width: the label column plus one per period.
var Columns = 1 + len(Periods)

// Rows is the last template row.
const Rows = 47

// RowKind controls how a template row is filled and styled.
type RowKind int

const (
	KindValues  RowKind = iota // label and one value per period
	KindTotal                  // values, bold with a double bottom border
	KindSection                // values under a highlighted section label
	KindHeading                // highlighted label only
	KindLabel                  // label only
	KindBlank
)

// Line is a template row below the three header rows.
type Line struct {
	Row   int
	Label string
	Key   string
	Kind  RowKind
}

// HasValues reports whether the row carries per-period values.
func (l Line) HasValues() bool {
	return l.Kind == KindValues || l.Kind == KindTotal || l.Kind == KindSection
}

// Template lists rows 4 to 47.
var Template = []Line{
	{4, "Sale of goods / Income from operations Domestic", statement.KeySaleOfGoods, KindValues},
	{5, "Sale Exports", statement.KeyExportSales, KindValues},
	{6, "Revenue from Services", statement.KeyServiceRevenue, KindValues},
	{7, "Other operating revenues", statement.KeyOtherOperatingRevenues, KindValues},
	{8, "Total Revenue", statement.KeyRevenueFromOperations, KindTotal},
	{9, "II. Other income", statement.KeyOtherIncome, KindSection},
	{10, "III. Total Income (I+II)", statement.KeyTotalIncome, KindSection},
	{11, "Sale of Goods Growth YOY", "", KindLabel},
	{12, "Total Revenue Growth YOY", "", KindLabel},
	{13, "Total Income Growth YOY", "", KindLabel},
	{14, "", "", KindBlank},
	{15, "IV. Expenses:", "", KindHeading},
	{16, "Cost of materials consumed", statement.KeyCostOfMaterials, KindValues},
	{17, "Excise duty", statement.KeyExciseDuty, KindValues},
	{18, "Purchases of stock-in-trade", statement.KeyPurchasesStockInTrade, KindValues},
	{19, "Changes in inventories of finished goods, work-in-progress and stock-in-trade", statement.KeyChangesInInventories, KindValues},
	{20, "Employee benefits expense", statement.KeyEmployeeBenefits, KindValues},
	{21, "Finance costs", statement.KeyFinanceCosts, KindValues},
	{22, "Depreciation and amortisation expense", statement.KeyDepreciation, KindValues},
	{23, "Other expenses", statement.KeyOtherExpense, KindValues},
	{24, "Advertising and promotion", statement.KeyAdvertisingExpense, KindValues},
	{25, "Others", "", KindLabel},
	{26, "Impairment", statement.KeyImpairmentLosses, KindValues},
	{27, "Provision for contingencies", "", KindLabel},
	{28, "Corporate responsibilities", "", KindLabel},
	{29, "Total expenses", statement.KeyTotalExpenses, KindTotal},
	{30, "PBT before exp items", statement.KeyProfitBeforeExceptional, KindValues},
	{31, "", "", KindBlank},
	{32, "Exceptional items Gain/(Loss)", statement.KeyExceptionalItems, KindValues},
	{33, "", "", KindBlank},
	{34, "V. Profit before tax (III-IV)", statement.KeyProfitBeforeTax, KindSection},
	{35, "%", "", KindLabel},
	{36, "", "", KindBlank},
	{37, "VI. Tax expense:", "", KindHeading},
	{38, "(i) Current tax", statement.KeyCurrentTax, KindValues},
	{39, "(ii) Deferred tax/Income Tax of Prior years", statement.KeyDeferredTax, KindValues},
	{40, "Total Tax", statement.KeyTotalTaxExpense, KindTotal},
	{41, "VII. Profit for the year (V-VI)", statement.KeyNetProfit, KindSection},
	{42, "", "", KindBlank},
	{43, "EBITDA", statement.KeyEBITDA, KindValues},
	{44, "EBITDA Margin", "", KindLabel},
	{45, "", "", KindBlank},
	{46, "Volume Gr%", "", KindLabel},
	{47, "Price Gr%", "", KindLabel},
}

// Sheet is a statement laid out on the template.
type Sheet struct {
	Title string

	// Values holds the formatted figure per template row, in period order
	Values map[int][]string
}

// Layout formats every value row of the template from s.
func Layout(s *statement.Statement) *Sheet {
	title := strings.TrimSpace(s.CompanyName)
	if title == "" {
		title = DefaultTitle
	}

	data := s.ValueMap()
	sheet := &Sheet{Title: title, Values: make(map[int][]string, len(Template))}
	for _, line := range Template {
		if !line.HasValues() {
			continue
		}
		row := make([]string, len(Periods))
		values := data[line.Key]
		for i, p := range Periods {
			row[i] = FormatNumber(ParseNumber(values[p.Key]))
		}
		sheet.Values[line.Row] = row
	}
	return sheet
}

// Grid returns all template rows, Columns cells each. Label-only rows carry
// "-" placeholders and blank rows are empty.
func (s *Sheet) Grid() [][]string {
	grid := make([][]string, 0, Rows)

	title := make([]string, Columns)
	title[1] = s.Title
	grid = append(grid, title)

	headers := []string{"INR Crs"}
	descriptions := []string{"I. Revenue from operations"}
	for _, p := range Periods {
		headers = append(headers, p.Header)
		descriptions = append(descriptions, p.Description)
	}
	grid = append(grid, headers, descriptions)

	for _, line := range Template {
		row := make([]string, Columns)
		switch {
		case line.HasValues():
			row[0] = line.Label
			copy(row[1:], s.Values[line.Row])
		case line.Kind == KindBlank:
		default:
			row[0] = line.Label
			for i := 1; i < Columns; i++ {
				row[i] = "-"
			}
		}
		grid = append(grid, row)
	}
	return grid
}
