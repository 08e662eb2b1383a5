package mapping

import (
	"errors"
	"reflect"
	"testing"

	"finparser/statement"
	"finparser/tables"
)

const testConfig = `
column_layouts:
  standard:
    label: 2
    "30.06.2025": 3
    "31.03.2025": 4
  shifted:
    label: 1
    "30.06.2025": 2
acme:
  name: ACME
  financial_data:
    - key: revenue_from_operations
      labels: ["Revenue from operations"]
      tr_number: 2
    - key: other_income
      labels: ["Other income"]
      tr_number: 0
    - key: total_income
      labels: ["Total income"]
      tr_number: 40
    - key: tax_expense
      labels: ["Total tax expense"]
      tr_number: 0
    - key: eps_basic
      labels: ["Basic"]
      tr_number: 5
      column_layout: shifted
`

func testTable() tables.Table {
	return tables.Table{Rows: [][]string{
		{"", "Particulars", "30.06.2025", "31.03.2025"},
		{"1", "Revenue from operations", "4,200.10", "4,001.00"},
		{"2", "Other income", "12.5", "(3.2)"},
		{"3", "Total income (1+2)", "4,212.60"},
		{"Basic EPS", "7.45"},
	}}
}

func newTestMapper(t *testing.T, fuzzy bool) *Mapper {
	t.Helper()
	cfg, err := ParseConfig([]byte(testConfig))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	return NewMapper(cfg, fuzzy, nil)
}

func TestMapper_RowNumbersOnly(t *testing.T) {
	m := newTestMapper(t, false)

	got, stats, err := m.Map("ACME", testTable())
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}

	if got.ExtractionMethod != statement.MethodTRNumber {
		t.Errorf("ExtractionMethod = %q, want %q", got.ExtractionMethod, statement.MethodTRNumber)
	}
	if got.CompanyName != "ACME" {
		t.Errorf("CompanyName = %q", got.CompanyName)
	}
	if stats.ByRowNumber != 2 || stats.ByLabel != 0 {
		t.Errorf("stats = %+v", stats)
	}
	wantMissing := []string{"other_income", "total_income", "tax_expense"}
	if !reflect.DeepEqual(stats.Missing, wantMissing) {
		t.Errorf("Missing = %v, want %v", stats.Missing, wantMissing)
	}

	want := []statement.LineItem{
		{
			Particular: "Revenue from operations",
			Key:        "revenue_from_operations",
			Values:     map[string]string{"30.06.2025": "4,200.10", "31.03.2025": "4,001.00"},
		},
		{
			Particular: "Basic EPS",
			Key:        "eps_basic",
			Values:     map[string]string{"30.06.2025": "7.45"},
		},
	}
	if !reflect.DeepEqual(got.FinancialData, want) {
		t.Errorf("FinancialData = %+v, want %+v", got.FinancialData, want)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("mapped statement invalid: %v", err)
	}
}

func TestMapper_FuzzyFallback(t *testing.T) {
	m := newTestMapper(t, true)

	got, stats, err := m.Map("acme", testTable())
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}

	if got.ExtractionMethod != statement.MethodMixed {
		t.Errorf("ExtractionMethod = %q, want %q", got.ExtractionMethod, statement.MethodMixed)
	}
	if stats.ByRowNumber != 2 || stats.ByLabel != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if !reflect.DeepEqual(stats.Missing, []string{"tax_expense"}) {
		t.Errorf("Missing = %v", stats.Missing)
	}

	byKey := map[string]statement.LineItem{}
	for _, item := range got.FinancialData {
		byKey[item.Key] = item
	}

	other := byKey["other_income"]
	if other.Values["31.03.2025"] != "(3.2)" {
		t.Errorf("other_income values = %v", other.Values)
	}

	// short row: the missing period column becomes an empty string
	total := byKey["total_income"]
	if total.Particular != "Total income (1+2)" {
		t.Errorf("total_income particular = %q", total.Particular)
	}
	if v, ok := total.Values["31.03.2025"]; !ok || v != "" {
		t.Errorf("total_income 31.03.2025 = %q, %v; want empty", v, ok)
	}
}

func TestMapper_ParticularFallsBackToLabel(t *testing.T) {
	m := newTestMapper(t, false)
	table := tables.Table{Rows: [][]string{
		{"", "Particulars"},
		{"1", "", "100", "90"},
	}}

	got, _, err := m.Map("ACME", table)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.FinancialData) != 1 {
		t.Fatalf("items = %d, want 1", len(got.FinancialData))
	}
	if got.FinancialData[0].Particular != "Revenue from operations" {
		t.Errorf("Particular = %q", got.FinancialData[0].Particular)
	}
}

func TestMapper_Errors(t *testing.T) {
	m := newTestMapper(t, true)

	if _, _, err := m.Map("GLOBEX", testTable()); !errors.Is(err, ErrUnknownCompany) {
		t.Errorf("unknown company error = %v", err)
	}
	if _, _, err := m.Map("ACME", tables.Table{}); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("empty table error = %v", err)
	}
}

func TestMapper_DefaultConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	m := NewMapper(cfg, false, nil)

	rows := make([][]string, 50)
	for i := range rows {
		rows[i] = []string{"", "row", "1", "2", "3", "4", "5", "6"}
	}

	for _, name := range cfg.SupportedCompanies() {
		got, _, err := m.Map(name, tables.Table{Rows: rows})
		if err != nil {
			t.Errorf("%s: Map() error = %v", name, err)
			continue
		}
		for _, item := range got.FinancialData {
			if !statement.IsKnownKey(item.Key) {
				t.Errorf("%s: key %q is not in the metric catalogue", name, item.Key)
			}
		}
	}
}

func TestLabelMatches(t *testing.T) {
	tests := []struct {
		row   string
		label string
		want  bool
	}{
		{"1 Revenue from operations", "Revenue from operations", true},
		{"REVENUE FROM OPERATIONS (NET)", "Revenue from operations", true},
		{"Purchases of stock-in-trade", "Purchases of stockintrade", true},
		{"Employee benefits expenses", "Employee benefits expense", true},
		{"Cost of materials consumed and others", "Cost of materials used", true},
		{"Other income", "Total income", false},
		{"Anything", "", false},
		{"Anything", "()", false},
	}
	for _, tt := range tests {
		if got := LabelMatches(tt.row, tt.label); got != tt.want {
			t.Errorf("LabelMatches(%q, %q) = %v, want %v", tt.row, tt.label, got, tt.want)
		}
	}
}

func TestFindMatchingRow(t *testing.T) {
	table := testTable()
	if got := FindMatchingRow(table, []string{"Missing", "Other income"}); got != 2 {
		t.Errorf("FindMatchingRow() = %d, want 2", got)
	}
	if got := FindMatchingRow(table, []string{"Exceptional items"}); got != -1 {
		t.Errorf("FindMatchingRow() = %d, want -1", got)
	}
}
