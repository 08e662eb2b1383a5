package tables

import (
	"fmt"
	"testing"
)

func rowsOf(n int, text string) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{text}
	}
	return rows
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		want  int
	}{
		{
			name:  "small table without keywords or digits",
			table: Table{Rows: rowsOf(2, "abc")},
			want:  2*2 - 30,
		},
		{
			name:  "digits only",
			table: Table{Rows: rowsOf(10, "12")},
			want:  10*2 + 20,
		},
		{
			name:  "keywords counted once each",
			table: Table{Rows: rowsOf(12, "Total income revenue")},
			// total, income, revenue
			want: 12*2 + 30,
		},
		{
			name:  "row count capped at fifty",
			table: Table{Rows: rowsOf(80, "x")},
			want:  100,
		},
		{
			name:  "profit before tax row",
			table: Table{Rows: [][]string{{"Profit / (Loss) before tax", "1,234"}}},
			// profit, loss, tax
			want: 2 + 30 + 20 - 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.table); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSelectBest(t *testing.T) {
	small := Table{Rows: rowsOf(3, "notes")}
	statement := Table{Rows: rowsOf(30, "Revenue 1,234")}

	tests := []struct {
		name       string
		tables     []Table
		wantIndex  int
		wantMethod string
	}{
		{name: "none", tables: nil, wantIndex: -1, wantMethod: SelectionDefault},
		{name: "single", tables: []Table{small}, wantIndex: 0, wantMethod: SelectionSingle},
		{name: "statement wins", tables: []Table{small, statement}, wantIndex: 1, wantMethod: SelectionHeuristic},
		{name: "tie goes to first", tables: []Table{statement, statement}, wantIndex: 0, wantMethod: SelectionHeuristic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectBest(tt.tables)
			if got.Index != tt.wantIndex || got.Method != tt.wantMethod {
				t.Errorf("SelectBest() = %+v, want index %d method %s", got, tt.wantIndex, tt.wantMethod)
			}
		})
	}
}

func ExampleSelectBest() {
	tables := []Table{
		{Index: 1, Rows: [][]string{{"Board meeting"}}},
		{Index: 2, Rows: rowsOf(20, "Total income 4,622.19")},
	}
	sel := SelectBest(tables)
	fmt.Println(tables[sel.Index].Index, sel.Method)
	// Output: 2 heuristic
}
