package mapping

import (
	"regexp"
	"strings"

	"finparser/tables"
)

// prefixLen is how much of a label must open a row for a prefix match.
const prefixLen = 15

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// Normalize lowercases s, removes punctuation and trims surrounding space.
func Normalize(s string) string {
	return strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(s), ""))
}

// LabelMatches reports whether a normalized row text matches a label: the row
// contains the label or starts with its first 15 characters.
func LabelMatches(rowText, label string) bool {
	row := Normalize(rowText)
	l := Normalize(label)
	if l == "" {
		return false
	}
	if strings.Contains(row, l) {
		return true
	}
	return strings.HasPrefix(row, truncateRunes(l, prefixLen))
}

// FindMatchingRow returns the index of the first row matching any label, or -1.
func FindMatchingRow(t tables.Table, labels []string) int {
	for i := range t.Rows {
		text := t.RowText(i)
		for _, label := range labels {
			if LabelMatches(text, label) {
				return i
			}
		}
	}
	return -1
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
