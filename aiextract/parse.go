package aiextract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"

	"finparser/statement"
)

// ErrInvalidResponse is returned when no parsing strategy yields an object.
var ErrInvalidResponse = errors.New("aiextract: response is not a JSON object")

// rawStatement tolerates numeric or null period values.
type rawStatement struct {
	CompanyName   string     `json:"company_name"`
	FinancialData *[]rawItem `json:"financial_data"`
}

type rawItem struct {
	Particular string                 `json:"particular"`
	Key        string                 `json:"key"`
	Values     map[string]interface{} `json:"values"`
}

// ParseResponse decodes a model reply into a statement. Code fences and text
// around the outermost object are ignored; malformed JSON is repaired, then
// read as Hjson as a last resort.
func ParseResponse(reply string) (*statement.Statement, error) {
	body := extractObject(stripFences(reply))
	if body == "" {
		return nil, fmt.Errorf("%w: no object found", ErrInvalidResponse)
	}

	raw, err := decode(body)
	if err != nil {
		return nil, err
	}
	if raw.FinancialData == nil {
		return nil, fmt.Errorf("%w: response missing financial_data", statement.ErrMissingFinancialData)
	}

	out := &statement.Statement{
		CompanyName:   raw.CompanyName,
		FinancialData: make([]statement.LineItem, 0, len(*raw.FinancialData)),
	}
	for _, item := range *raw.FinancialData {
		values := make(map[string]string, len(item.Values))
		for period, v := range item.Values {
			values[period] = valueString(v)
		}
		out.FinancialData = append(out.FinancialData, statement.LineItem{
			Particular: item.Particular,
			Key:        item.Key,
			Values:     values,
		})
	}
	out.Normalize()
	return out, nil
}

func decode(body string) (*rawStatement, error) {
	var raw rawStatement
	err := json.Unmarshal([]byte(body), &raw)
	if err == nil {
		return &raw, nil
	}

	if repaired, rerr := jsonrepair.RepairJSON(body); rerr == nil {
		raw = rawStatement{}
		if json.Unmarshal([]byte(repaired), &raw) == nil {
			return &raw, nil
		}
	}

	var loose interface{}
	if herr := hjson.Unmarshal([]byte(body), &loose); herr == nil {
		if data, merr := json.Marshal(loose); merr == nil {
			raw = rawStatement{}
			if json.Unmarshal(data, &raw) == nil {
				return &raw, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[3:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractObject returns the text from the first '{' to the last '}'.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 {
		return ""
	}
	if end < start {
		// truncated reply; leave it to the repair step
		return s[start:]
	}
	return s[start : end+1]
}

func valueString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
