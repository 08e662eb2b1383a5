package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookupEnv returns the trimmed value of key and whether it is non-empty.
func lookupEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// parseEnv applies parse to key's value, returning def when the variable is
// unset or parse fails.
func parseEnv[T any](key string, def T, parse func(string) (T, error)) T {
	v, ok := lookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := parse(v)
	if err != nil {
		return def
	}
	return parsed
}

// GetEnvOrDefault returns the trimmed value of key, or def when unset or blank.
func GetEnvOrDefault(key, def string) string {
	if v, ok := lookupEnv(key); ok {
		return v
	}
	return def
}

// ParseIntEnv reads key as an int.
func ParseIntEnv(key string, def int) int {
	return parseEnv(key, def, strconv.Atoi)
}

// ParseInt64Env reads key as an int64.
func ParseInt64Env(key string, def int64) int64 {
	return parseEnv(key, def, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

var boolWords = map[string]bool{
	"true": true, "1": true, "yes": true, "on": true,
	"false": false, "0": false, "no": false, "off": false,
}

// ParseBoolEnv reads key as a boolean. true/1/yes/on and false/0/no/off are
// accepted in any case; anything else yields def.
func ParseBoolEnv(key string, def bool) bool {
	v, ok := lookupEnv(key)
	if !ok {
		return def
	}
	b, known := boolWords[strings.ToLower(v)]
	if !known {
		return def
	}
	return b
}

// ParseDurationEnv reads key as a duration. A bare integer is seconds
// ("90"); Go duration strings ("2m30s") are accepted too.
func ParseDurationEnv(key string, defaultSeconds int) time.Duration {
	return parseEnv(key, time.Duration(defaultSeconds)*time.Second, func(s string) (time.Duration, error) {
		if n, err := strconv.Atoi(s); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return time.ParseDuration(s)
	})
}
