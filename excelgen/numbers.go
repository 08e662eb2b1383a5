package excelgen

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseNumber reads a reported figure. "(1,234.5)" is negative; blank or
// unparseable input is 0.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FormatNumber renders v with thousands separators and two decimals.
// Negatives are bracketed and zero is "-".
func FormatNumber(v float64) string {
	if v == 0 {
		return "-"
	}
	formatted := humanize.FormatFloat("#,###.##", math.Abs(v))
	if v < 0 {
		return "(" + formatted + ")"
	}
	return formatted
}
