package core

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	const testKey = "FINPARSER_TEST_GET_ENV"

	tests := []struct {
		name         string
		envValue     string
		defaultValue string
		want         string
	}{
		{name: "returns env value when set", envValue: "custom_value", defaultValue: "default", want: "custom_value"},
		{name: "returns default when empty", envValue: "", defaultValue: "default", want: "default"},
		{name: "returns default when only whitespace", envValue: "   ", defaultValue: "default", want: "default"},
		{name: "trims surrounding whitespace", envValue: "  output  ", defaultValue: "default", want: "output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			if got := GetEnvOrDefault(testKey, tt.defaultValue); got != tt.want {
				t.Errorf("GetEnvOrDefault() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseIntEnv(t *testing.T) {
	const testKey = "FINPARSER_TEST_PARSE_INT"

	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{name: "valid integer", envValue: "42", want: 42},
		{name: "negative integer", envValue: "-3", want: -3},
		{name: "invalid integer", envValue: "abc", want: 7},
		{name: "empty", envValue: "", want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			if got := ParseIntEnv(testKey, 7); got != tt.want {
				t.Errorf("ParseIntEnv() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseInt64Env(t *testing.T) {
	const testKey = "FINPARSER_TEST_PARSE_INT64"

	t.Setenv(testKey, "9000000000")
	if got := ParseInt64Env(testKey, 1); got != 9000000000 {
		t.Errorf("ParseInt64Env() = %d, want 9000000000", got)
	}

	t.Setenv(testKey, "1.5")
	if got := ParseInt64Env(testKey, 1); got != 1 {
		t.Errorf("ParseInt64Env() with invalid value = %d, want default 1", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	const testKey = "FINPARSER_TEST_PARSE_BOOL"

	tests := []struct {
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"on", false, true},
		{"false", true, false},
		{"No", true, false},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			if got := ParseBoolEnv(testKey, tt.defaultValue); got != tt.want {
				t.Errorf("ParseBoolEnv(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	const testKey = "FINPARSER_TEST_PARSE_DURATION"

	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{name: "plain seconds", envValue: "90", want: 90 * time.Second},
		{name: "duration string", envValue: "2m30s", want: 150 * time.Second},
		{name: "invalid falls back", envValue: "soon", want: 30 * time.Second},
		{name: "empty falls back", envValue: "", want: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testKey, tt.envValue)
			if got := ParseDurationEnv(testKey, 30); got != tt.want {
				t.Errorf("ParseDurationEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}
