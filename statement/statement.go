// Package statement defines the financial statement data contract shared by
// the extraction, editing and workbook stages.
package statement

import (
	"errors"
	"fmt"
	"strings"
)

// Extraction methods recorded on a Statement.
const (
	MethodTRNumber = "tr_number" // every row located by configured row number
	MethodMixed    = "mixed"     // at least one row located by fuzzy label matching
	MethodOpenAI   = "openai"
	MethodGemini   = "gemini"
	MethodManual   = "manual" // edited through the API
)

// Validation errors
var (
	ErrMissingCompany       = errors.New("statement: company_name is required")
	ErrMissingFinancialData = errors.New("statement: financial_data is required")
	ErrInvalidItem          = errors.New("statement: invalid financial_data item")
)

// Statement is one company's extracted statement.
type Statement struct {
	CompanyName      string     `json:"company_name"`
	FinancialData    []LineItem `json:"financial_data"`
	ExtractionMethod string     `json:"extraction_method,omitempty"`
	Metadata         *Metadata  `json:"metadata,omitempty"`
}

// LineItem is a single metric row. Values maps a period label such as
// "30.06.2025" or "31.03.2025_Y" to the number as printed in the report.
type LineItem struct {
	Particular string            `json:"particular"`
	Key        string            `json:"key"`
	Values     map[string]string `json:"values"`
}

// Metadata describes how a Statement was produced. Fields that do not apply
// to a given extraction path are omitted.
type Metadata struct {
	SourceFile            string  `json:"source_file,omitempty"`
	TableNumber           int     `json:"table_number,omitempty"`
	TotalTables           int     `json:"total_tables,omitempty"`
	ExtractionMethod      string  `json:"extraction_method,omitempty"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds,omitempty"`
	TargetPage            int     `json:"target_page,omitempty"`
	Model                 string  `json:"model,omitempty"`
	TokensUsed            int     `json:"tokens_used,omitempty"`
	SourceFormat          string  `json:"source_format,omitempty"`
}

// Validate checks the structural contract: a company name, a financial_data
// list, and particular, key and values on every item.
func (s *Statement) Validate() error {
	if s == nil || strings.TrimSpace(s.CompanyName) == "" {
		return ErrMissingCompany
	}
	if s.FinancialData == nil {
		return ErrMissingFinancialData
	}

	for i, item := range s.FinancialData {
		switch {
		case strings.TrimSpace(item.Particular) == "":
			return fmt.Errorf("%w: item %d missing particular", ErrInvalidItem, i)
		case strings.TrimSpace(item.Key) == "":
			return fmt.Errorf("%w: item %d missing key", ErrInvalidItem, i)
		case item.Values == nil:
			return fmt.Errorf("%w: item %d (%s) missing values", ErrInvalidItem, i, item.Key)
		}
	}

	return nil
}

// DropIncomplete removes items without a key or particular and returns them.
// Items with no values keep an empty map.
func (s *Statement) DropIncomplete() []LineItem {
	var dropped []LineItem
	kept := s.FinancialData[:0]
	for _, item := range s.FinancialData {
		if strings.TrimSpace(item.Key) == "" || strings.TrimSpace(item.Particular) == "" {
			dropped = append(dropped, item)
			continue
		}
		if item.Values == nil {
			item.Values = map[string]string{}
		}
		kept = append(kept, item)
	}
	s.FinancialData = kept
	return dropped
}

// Normalize trims whitespace from keys, labels and period names in place.
func (s *Statement) Normalize() {
	s.CompanyName = strings.TrimSpace(s.CompanyName)

	for i := range s.FinancialData {
		item := &s.FinancialData[i]
		item.Particular = strings.TrimSpace(item.Particular)
		item.Key = strings.TrimSpace(item.Key)

		if item.Values == nil {
			continue
		}
		cleaned := make(map[string]string, len(item.Values))
		for period, value := range item.Values {
			cleaned[strings.TrimSpace(period)] = strings.TrimSpace(value)
		}
		item.Values = cleaned
	}
}

// ValueMap indexes line items by canonical key. When a key appears more than
// once the last occurrence wins.
func (s *Statement) ValueMap() map[string]map[string]string {
	out := make(map[string]map[string]string, len(s.FinancialData))
	for _, item := range s.FinancialData {
		key := CanonicalKey(item.Key)
		if key == "" {
			continue
		}
		out[key] = item.Values
	}
	return out
}
