package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces any secret found in a log field.
const RedactedPlaceholder = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(sk-[a-zA-Z0-9_-]{20,})`),            // OpenAI keys, including sk-proj-
	regexp.MustCompile(`(hf_[a-zA-Z0-9]{20,})`),              // Hugging Face access tokens
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{16,})`), // Authorization header values
	regexp.MustCompile(`(?i)((?:token|api_key|apikey|secret|password)\s*[:=]\s*[^\s,;]{8,})`),
}

// Field names that are redacted regardless of their value.
var sensitiveFieldNames = []string{
	"HF_TOKEN",
	"HUGGINGFACE_TOKEN",
	"OPENAI_API_KEY",
	"AZURE_OPENAI_KEY",
	"AUTHORIZATION",
	"API_KEY",
	"APIKEY",
	"SECRET",
	"PASSWORD",
}

// RedactSensitiveData replaces every credential-looking substring of value.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	for _, pattern := range sensitivePatterns {
		value = pattern.ReplaceAllString(value, RedactedPlaceholder)
	}
	return value
}

// IsSensitiveField reports whether a field name alone marks its value as secret.
func IsSensitiveField(fieldName string) bool {
	upper := strings.ToUpper(fieldName)
	for _, name := range sensitiveFieldNames {
		if strings.Contains(upper, name) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData reports whether value matches any credential pattern.
func ContainsSensitiveData(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
