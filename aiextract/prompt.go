package aiextract

import (
	"fmt"
	"strings"
	"unicode"

	"finparser/statement"
)

// MaxContentChars bounds the table content sent to the model.
const MaxContentChars = 30000

const systemPromptHeader = `You are a financial data extraction specialist. Your task is to extract COMPLETE structured financial data from quarterly financial statements.

EXTRACT EVERY SINGLE ROW from the table with their values for ALL periods:
`

const systemPromptFooter = `
Return ONLY a valid JSON object:
{
  "company_name": "COMPANY_NAME",
  "financial_data": [
    {
      "particular": "Sale of goods",
      "key": "sale_of_goods",
      "values": {
        "30.06.2025": "4,357.64",
        "31.03.2025": "4,218.90",
        "30.06.2024": "3,967.38",
        "31.03.2025_Y": "16,859.22"
      }
    }
  ]
}

CRITICAL RULES:
- Extract EVERY ROW from the table - do NOT skip any rows
- Extract ALL PERIODS/COLUMNS - do not skip any date columns
- Use standard date formats: DD.MM.YYYY (e.g., "30.06.2025")
- For yearly/annual periods (look for "YEAR ENDED", "FY", "12M" headers), append "_Y" suffix (e.g., "31.03.2025_Y")
- Keep commas in numbers: "4,357.64" not "4357.64"
- Negative values: use brackets "(123.45)" or minus "-123.45"
- Use EXACT key names from the list above - consistency is critical
- If a value is not available for a specific period, use empty string ""
- Do NOT include any explanatory text outside the JSON`

const userPromptTemplate = `Extract financial data from this %s table for %s:

%s

Extract all financial metrics with values for all available periods. Return ONLY the JSON object, no additional text.`

// SystemPrompt lists every catalogue key by section followed by the output
// rules.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	for _, group := range statement.Catalogue {
		fmt.Fprintf(&b, "\n**%s:**\n", group.Title)
		for _, key := range group.Keys {
			fmt.Fprintf(&b, "- %s (key: %q)\n", humanize(key), key)
		}
	}
	b.WriteString(systemPromptFooter)
	return b.String()
}

// UserPrompt embeds content, truncated to MaxContentChars characters.
func UserPrompt(format, company, content string) string {
	content, _ = truncateContent(content, MaxContentChars)
	return fmt.Sprintf(userPromptTemplate, format, company, content)
}

func truncateContent(s string, max int) (string, bool) {
	r := []rune(s)
	if len(r) <= max {
		return s, false
	}
	return string(r[:max]), true
}

// humanize turns "eps_basic" into "Eps basic".
func humanize(key string) string {
	words := strings.ReplaceAll(key, "_", " ")
	r := []rune(words)
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
