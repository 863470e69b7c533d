package core

import (
	"errors"
	"fmt"
)

// ConfigError is a configuration problem with an instruction for fixing it.
type ConfigError struct {
	Code    string
	Message string
	Action  string
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

const (
	ErrCodeMissingAuth   = "MISSING_AUTH"
	ErrCodeMissingConfig = "MISSING_CONFIG"
	ErrCodeInvalidValue  = "INVALID_VALUE"
	ErrCodeUnknownOption = "UNKNOWN_OPTION"
)

// ErrMissingAuth reports a missing credential for an inference provider.
func ErrMissingAuth(provider string) *ConfigError {
	var action string
	switch provider {
	case ProviderHuggingFace:
		action = "Set HF_TOKEN in your .env file (create one at https://huggingface.co/settings/tokens)"
	case ProviderOpenAI, ProviderAzure:
		action = "Set OPENAI_API_KEY in your .env file"
	default:
		action = fmt.Sprintf("Set the API key for %s in your .env file", provider)
	}
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("Missing credentials for %s", provider),
		Action:  action,
	}
}

// ErrMissingConfig reports a required variable that is not set.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrInvalidValue reports a variable whose value is out of range.
func ErrInvalidValue(varName string, value interface{}, constraint string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s %v: %s", varName, value, constraint),
		Action:  fmt.Sprintf("Fix %s in your .env file", varName),
	}
}

// ErrUnknownOption reports a variable whose value is not one of the allowed options.
func ErrUnknownOption(varName, value string, allowed []string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUnknownOption,
		Message: fmt.Sprintf("Unknown %s %q", varName, value),
		Action:  fmt.Sprintf("Use one of %v", allowed),
	}
}

// IsConfigError unwraps err to a *ConfigError.
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode returns the ConfigError code of err, or "".
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
