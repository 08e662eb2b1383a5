package tables

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxSpan bounds colspan and rowspan so malformed markup cannot blow up the grid.
const maxSpan = 100

// ParseHTMLTables extracts every <table> in the document as a grid.
// Cells spanning several columns or rows are repeated into each slot they cover.
func ParseHTMLTables(content string) ([]Table, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var tables []Table
	doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		// nested tables are reported on their own
		rows := parseGrid(sel)
		if len(rows) == 0 {
			return
		}
		tables = append(tables, Table{Index: len(tables) + 1, Rows: rows})
	})
	return tables, nil
}

// pending is a cell carried down into following rows by rowspan.
type pending struct {
	text      string
	remaining int
}

func parseGrid(table *goquery.Selection) [][]string {
	var grid [][]string
	carry := map[int]*pending{}

	rows := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.ParentsFiltered("table").First().IsSelection(table)
	})

	rows.Each(func(_ int, tr *goquery.Selection) {
		var row []string
		col := 0

		fillCarried := func() {
			for {
				p, ok := carry[col]
				if !ok || p.remaining == 0 {
					return
				}
				row = append(row, p.text)
				p.remaining--
				if p.remaining == 0 {
					delete(carry, col)
				}
				col++
			}
		}

		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			fillCarried()

			text := cellText(cell)
			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")
			for i := 0; i < colspan; i++ {
				row = append(row, text)
				if rowspan > 1 {
					carry[col] = &pending{text: text, remaining: rowspan - 1}
				}
				col++
			}
		})
		fillCarried()

		if len(row) > 0 {
			grid = append(grid, row)
		}
	})

	return grid
}

func cellText(cell *goquery.Selection) string {
	return strings.Join(strings.Fields(cell.Text()), " ")
}

func spanAttr(cell *goquery.Selection, name string) int {
	v, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	if n > maxSpan {
		return maxSpan
	}
	return n
}
