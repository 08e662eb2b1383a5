package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive values in log output.
const RedactedPlaceholder = "[REDACTED]"

// credentialPattern matches credentials embedded in free-form strings, such
// as provider error bodies or request URLs echoed into an error message:
// OpenAI keys, Google API keys (Vision, Gemini), bearer tokens, and
// password / api_key / ?key= assignments.
var credentialPattern = regexp.MustCompile(strings.Join([]string{
	`sk-[a-zA-Z0-9_-]{20,}`,
	`AIza[a-zA-Z0-9_-]{35}`,
	`(?i:bearer\s+[a-zA-Z0-9._-]{20,})`,
	`(?i:password\s*[:=]\s*[^\s,;]{4,})`,
	`(?i:api_?key\s*[:=]\s*[^\s,;&]{8,})`,
	`(?i:key=[a-zA-Z0-9_-]{20,})`,
}, "|"))

// Field names containing any of these (case-insensitive) are always redacted.
var sensitiveFieldNames = []string{"api_key", "apikey", "password", "secret", "token", "authorization"}

// RedactSensitiveData replaces every credential found in value.
//
//	RedactSensitiveData("POST ?key=AIzaSyA...") // "POST ?[REDACTED]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	return credentialPattern.ReplaceAllString(value, RedactedPlaceholder)
}

// ContainsSensitiveData reports whether value holds a recognisable credential.
func ContainsSensitiveData(value string) bool {
	return value != "" && credentialPattern.MatchString(value)
}

// IsSensitiveField reports whether a field name implies a secret value,
// e.g. "openai_api_key" but not "company".
func IsSensitiveField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, name := range sensitiveFieldNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}
