package mapping

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"finparser/logging"
	"finparser/statement"
	"finparser/tables"
)

// ErrEmptyTable is returned when there is nothing to map.
var ErrEmptyTable = errors.New("mapping: table has no rows")

// Stats summarises how the rows of a statement were located.
type Stats struct {
	ByRowNumber int
	ByLabel     int

	// Missing lists keys for which no row was found
	Missing []string
}

// Mapper extracts configured metrics from a statement table.
type Mapper struct {
	config *Config
	fuzzy  bool
	logger *logging.Logger
}

// NewMapper creates a Mapper. With fuzzy set, items whose row number is not
// usable are located by label.
func NewMapper(config *Config, fuzzy bool, logger *logging.Logger) *Mapper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mapper{config: config, fuzzy: fuzzy, logger: logger.Named("mapper")}
}

// Config returns the company configuration in use.
func (m *Mapper) Config() *Config {
	return m.config
}

// Map builds a statement for company from table. Row numbers take precedence;
// label matching marks the result "mixed". Items without a row are skipped.
func (m *Mapper) Map(company string, table tables.Table) (*statement.Statement, Stats, error) {
	var stats Stats

	cc, err := m.config.Company(company)
	if err != nil {
		return nil, stats, err
	}
	if len(table.Rows) == 0 {
		return nil, stats, ErrEmptyTable
	}

	companyLayout, err := m.config.Layout(cc.ColumnLayout)
	if err != nil {
		return nil, stats, err
	}

	result := &statement.Statement{
		CompanyName:      company,
		FinancialData:    []statement.LineItem{},
		ExtractionMethod: statement.MethodTRNumber,
	}

	for _, item := range cc.FinancialData {
		layout := companyLayout
		if item.ColumnLayout != "" {
			if layout, err = m.config.Layout(item.ColumnLayout); err != nil {
				return nil, stats, fmt.Errorf("item %s: %w", item.Key, err)
			}
		}

		rowIndex := -1
		switch {
		case item.TRNumber > 0 && item.TRNumber <= len(table.Rows):
			rowIndex = item.TRNumber - 1
			stats.ByRowNumber++
		case m.fuzzy && len(item.Labels) > 0:
			if rowIndex = FindMatchingRow(table, item.Labels); rowIndex >= 0 {
				m.logger.Debug("Fuzzy matched row",
					zap.String("key", item.Key),
					zap.Int("row", rowIndex+1))
				stats.ByLabel++
				result.ExtractionMethod = statement.MethodMixed
			}
		}

		if rowIndex < 0 {
			m.logger.Warn("Could not find row",
				zap.String("key", item.Key),
				zap.Int("tr_number", item.TRNumber),
				zap.Strings("labels", item.Labels))
			stats.Missing = append(stats.Missing, item.Key)
			continue
		}

		result.FinancialData = append(result.FinancialData, lineItem(item, layout, table.Rows[rowIndex]))
	}

	m.logger.Info("Mapped statement",
		zap.String("company", company),
		zap.Int("items", len(result.FinancialData)),
		zap.Int("by_row_number", stats.ByRowNumber),
		zap.Int("by_label", stats.ByLabel),
		zap.Int("missing", len(stats.Missing)))

	return result, stats, nil
}

func lineItem(item ItemConfig, layout ColumnLayout, cells []string) statement.LineItem {
	particular := cellAt(cells, layout.LabelColumn)
	if particular == "" {
		if len(item.Labels) > 0 {
			particular = item.Labels[0]
		} else {
			particular = item.Key
		}
	}

	values := make(map[string]string, len(layout.Periods))
	for _, p := range layout.Periods {
		values[p.Period] = cellAt(cells, p.Column)
	}

	return statement.LineItem{
		Particular: particular,
		Key:        item.Key,
		Values:     values,
	}
}

// cellAt returns the 1-based column of a row, or "" when out of range.
func cellAt(cells []string, column int) string {
	if column < 1 || column > len(cells) {
		return ""
	}
	return cells[column-1]
}
