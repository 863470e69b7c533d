package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvOrDefault returns the value of key, or defaultValue when unset or empty.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// FirstEnv returns the first non-empty value among keys.
// Used for variables with legacy aliases such as HF_TOKEN / HUGGINGFACE_TOKEN.
func FirstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// ParseIntEnv parses key as an int. Unparseable values yield defaultValue.
func ParseIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// ParseBoolEnv accepts true/1/yes/on and false/0/no/off, case-insensitively.
func ParseBoolEnv(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// ParseSecondsEnv parses key as a whole number of seconds.
func ParseSecondsEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(ParseIntEnv(key, defaultSeconds)) * time.Second
}

// ParseHoursEnv parses key as a whole number of hours.
func ParseHoursEnv(key string, defaultHours int) time.Duration {
	return time.Duration(ParseIntEnv(key, defaultHours)) * time.Hour
}
