package tables

import (
	"strings"
	"unicode"
)

// Selection methods reported in table_info.
const (
	SelectionDefault   = "default"
	SelectionSingle    = "single_table"
	SelectionHeuristic = "heuristic"
)

var financialKeywords = []string{
	"revenue", "income", "expense", "profit", "loss", "tax",
	"total", "net", "eps", "earnings per share", "comprehensive",
	"depreciation", "amortisation", "finance cost",
}

// Selection is the outcome of SelectBest.
type Selection struct {
	// Index is 0-based into the input slice, -1 when there are no tables
	Index  int
	Score  int
	Method string
}

// Score rates how much a table looks like a results statement.
func Score(t Table) int {
	rows := len(t.Rows)
	score := min(rows, 50) * 2

	text := strings.ToLower(t.Text())
	for _, kw := range financialKeywords {
		if strings.Contains(text, kw) {
			score += 10
		}
	}
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		score += 20
	}
	if rows < 10 {
		score -= 30
	}
	return score
}

// SelectBest picks the highest scoring table; ties go to the earliest.
func SelectBest(tables []Table) Selection {
	switch len(tables) {
	case 0:
		return Selection{Index: -1, Method: SelectionDefault}
	case 1:
		return Selection{Index: 0, Score: Score(tables[0]), Method: SelectionSingle}
	}

	best := Selection{Index: 0, Score: Score(tables[0]), Method: SelectionHeuristic}
	for i := 1; i < len(tables); i++ {
		if s := Score(tables[i]); s > best.Score {
			best.Index, best.Score = i, s
		}
	}
	return best
}
