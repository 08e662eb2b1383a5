package core

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a ConfigError for callers that branch on it.
type ErrorCode = string

const (
	ErrCodeConfigFileMissing ErrorCode = "CONFIG_FILE_MISSING"
	ErrCodeInvalidValue      ErrorCode = "INVALID_VALUE"
	ErrCodeMissingAuth       ErrorCode = "MISSING_AUTH"
	ErrCodeMissingConfig     ErrorCode = "MISSING_CONFIG"
)

// ConfigError is a startup configuration problem. Message says what is
// wrong and Action tells the operator how to fix it.
type ConfigError struct {
	Code    ErrorCode
	Var     string
	Message string
	Action  string
}

func (e *ConfigError) Error() string {
	if e.Action == "" {
		return e.Message
	}
	return e.Message + ". " + e.Action
}

func envAction(name string) string {
	return "Set " + name + " in the environment or .env file"
}

// ErrConfigFileMissing reports an unreadable COMPANY_CONFIG_PATH.
func ErrConfigFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeConfigFileMissing,
		Var:     "COMPANY_CONFIG_PATH",
		Message: "Company configuration file not found: " + path,
		Action:  "Point COMPANY_CONFIG_PATH at a YAML or JSON file, or unset it to use the built-in companies",
	}
}

// ErrInvalidValue reports an environment variable whose value cannot be used.
func ErrInvalidValue(name, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Var:     name,
		Message: fmt.Sprintf("Invalid %s %q: %s", name, value, reason),
		Action:  "Fix " + name + " in the environment or .env file",
	}
}

// providerKeys names the variable holding each provider's API key.
var providerKeys = map[string]string{
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
}

// ErrMissingAuth reports a missing API key for an LLM provider or other
// external service.
func ErrMissingAuth(service string) *ConfigError {
	e := &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: "Missing authentication credentials for " + service,
	}
	if key, ok := providerKeys[service]; ok {
		e.Var = key
		e.Action = envAction(key)
	} else {
		e.Action = "Set the API key for " + service + " in the environment or .env file"
	}
	return e
}

// ErrMissingConfig reports a required variable that is unset.
func ErrMissingConfig(name string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Var:     name,
		Message: "Missing required configuration: " + name,
		Action:  envAction(name),
	}
}

// IsConfigError returns the ConfigError in err's chain, if any.
func IsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	ok := errors.As(err, &ce)
	return ce, ok
}

// GetErrorCode returns the ConfigError code in err's chain, or "".
func GetErrorCode(err error) ErrorCode {
	if ce, ok := IsConfigError(err); ok {
		return ce.Code
	}
	return ""
}
