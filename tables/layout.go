package tables

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"finparser/logging"
)

// LayoutConfig tunes how glyph positions are grouped into cells and tables.
// Gaps are expressed as multiples of the font size.
type LayoutConfig struct {
	// WordGap is the horizontal gap above which a space is inserted
	WordGap float64

	// CellGap is the horizontal gap above which a new cell starts
	CellGap float64

	// MaxBreakRows is how many consecutive single-cell rows a table may contain
	MaxBreakRows int

	// MinRows is the fewest multi-cell rows that make a table
	MinRows int
}

// DefaultLayoutConfig returns thresholds that suit typeset result statements.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		WordGap:      0.15,
		CellGap:      1.5,
		MaxBreakRows: 2,
		MinRows:      2,
	}
}

// LayoutExtractor rebuilds tables from the positioned text of a PDF. It needs
// no external service and serves as the fallback when none is configured.
type LayoutExtractor struct {
	config LayoutConfig
	logger *logging.Logger
}

// NewLayoutExtractor creates a LayoutExtractor.
func NewLayoutExtractor(config LayoutConfig, logger *logging.Logger) *LayoutExtractor {
	defaults := DefaultLayoutConfig()
	if config.WordGap <= 0 {
		config.WordGap = defaults.WordGap
	}
	if config.CellGap <= 0 {
		config.CellGap = defaults.CellGap
	}
	if config.MaxBreakRows < 0 {
		config.MaxBreakRows = 0
	}
	if config.MinRows <= 0 {
		config.MinRows = defaults.MinRows
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LayoutExtractor{config: config, logger: logger.Named("layout")}
}

// cell is a run of text with its horizontal extent.
type cell struct {
	text       string
	start, end float64
}

// Extract returns the tables on the selected pages.
func (e *LayoutExtractor) Extract(ctx context.Context, pdfPath string, pages *PageRange) ([]Table, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	from, to := 1, r.NumPage()
	if pages != nil {
		from = max(pages.From, 1)
		to = min(pages.To, r.NumPage())
	}

	var tables []Table
	for pageNumber := from; pageNumber <= to; pageNumber++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(pageNumber)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			e.logger.Warn("Failed to read page layout", zap.Int("page", pageNumber), zap.Error(err))
			continue
		}

		lines := make([][]cell, 0, len(rows))
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })
		for _, row := range rows {
			if cells := e.splitCells(row.Content); len(cells) > 0 {
				lines = append(lines, cells)
			}
		}

		for _, grid := range e.groupTables(lines) {
			tables = append(tables, Table{Index: len(tables) + 1, Page: pageNumber, Rows: grid})
		}
	}

	e.logger.Info("Layout extraction finished",
		zap.Int("from_page", from),
		zap.Int("to_page", to),
		zap.Int("tables", len(tables)))

	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	return tables, nil
}

// splitCells merges glyphs of one baseline into cells separated by wide gaps.
func (e *LayoutExtractor) splitCells(texts pdf.TextHorizontal) []cell {
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			glyphs = append(glyphs, t)
		}
	}
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var cells []cell
	var b strings.Builder
	var cur cell
	flush := func() {
		if text := strings.Join(strings.Fields(b.String()), " "); text != "" {
			cur.text = text
			cells = append(cells, cur)
		}
		b.Reset()
	}

	for i, g := range glyphs {
		size := math.Max(g.FontSize, 1)
		if i == 0 {
			cur = cell{start: g.X, end: g.X + g.W}
		} else {
			gap := g.X - cur.end
			switch {
			case gap > e.config.CellGap*size:
				flush()
				cur = cell{start: g.X, end: g.X + g.W}
			case gap > e.config.WordGap*size:
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		cur.end = math.Max(cur.end, g.X+g.W)
	}
	if len(glyphs) > 0 {
		flush()
	}
	return cells
}

// groupTables collects runs of multi-cell lines into grids. A run may include
// up to MaxBreakRows consecutive single-cell lines, which covers section
// captions such as "Expenses" inside a statement.
func (e *LayoutExtractor) groupTables(lines [][]cell) [][][]string {
	var grids [][][]string
	var run [][]cell
	breaks := 0

	finish := func() {
		// drop trailing captions
		for len(run) > 0 && len(run[len(run)-1]) < 2 {
			run = run[:len(run)-1]
		}
		multi := 0
		for _, l := range run {
			if len(l) >= 2 {
				multi++
			}
		}
		if multi >= e.config.MinRows {
			grids = append(grids, alignColumns(run))
		}
		run = nil
		breaks = 0
	}

	for _, l := range lines {
		if len(l) >= 2 {
			run = append(run, l)
			breaks = 0
			continue
		}
		if len(run) == 0 {
			continue
		}
		breaks++
		if breaks > e.config.MaxBreakRows {
			finish()
			continue
		}
		run = append(run, l)
	}
	finish()
	return grids
}

// band is a column's horizontal extent.
type band struct {
	start, end float64
}

// alignColumns places each cell into a column band. Bands come from the rows
// with the most common cell count so that headers spanning several columns
// do not merge bands.
func alignColumns(lines [][]cell) [][]string {
	counts := map[int]int{}
	mode := 0
	for _, l := range lines {
		if len(l) < 2 {
			continue
		}
		counts[len(l)]++
		if counts[len(l)] > counts[mode] || (counts[len(l)] == counts[mode] && len(l) > mode) {
			mode = len(l)
		}
	}

	var intervals []band
	for _, l := range lines {
		if len(l) != mode {
			continue
		}
		for _, c := range l {
			intervals = append(intervals, band{c.start, c.end})
		}
	}
	bands := mergeBands(intervals)

	grid := make([][]string, len(lines))
	for i, l := range lines {
		row := make([]string, len(bands))
		for _, c := range l {
			col := nearestBand(bands, c)
			if row[col] != "" {
				row[col] += " " + c.text
			} else {
				row[col] = c.text
			}
		}
		grid[i] = row
	}
	return grid
}

func mergeBands(intervals []band) []band {
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].start < intervals[j].start })
	var merged []band
	for _, iv := range intervals {
		if n := len(merged); n > 0 && iv.start <= merged[n-1].end {
			merged[n-1].end = math.Max(merged[n-1].end, iv.end)
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

func nearestBand(bands []band, c cell) int {
	best, bestScore := 0, math.Inf(-1)
	for i, b := range bands {
		overlap := math.Min(b.end, c.end) - math.Max(b.start, c.start)
		if overlap > 0 {
			if overlap > bestScore {
				best, bestScore = i, overlap
			}
			continue
		}
		// negative distance so that any overlap wins
		dist := -math.Min(math.Abs(c.start-b.end), math.Abs(b.start-c.end))
		if bestScore <= 0 && dist > bestScore {
			best, bestScore = i, dist
		}
	}
	return best
}
