package styles

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyTopic is returned when a prompt is requested for a blank topic.
	ErrEmptyTopic = errors.New("styles: topic cannot be empty")

	// ErrPlaceholderInTopic is returned when the topic itself contains Placeholder.
	ErrPlaceholderInTopic = errors.New("styles: topic cannot contain " + Placeholder)

	// ErrInvalidTemplate is returned by TableBuilder.Build for templates that
	// are empty or do not contain Placeholder exactly once.
	ErrInvalidTemplate = errors.New("styles: invalid template")
)

// UnknownStyleError is returned for a style key that is not in the table.
type UnknownStyleError struct {
	Key   Key
	Known []Key
}

func (e *UnknownStyleError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("styles: unknown style %q", e.Key)
	}
	names := make([]string, len(e.Known))
	for i, k := range e.Known {
		names[i] = string(k)
	}
	return fmt.Sprintf("styles: unknown style %q (available: %s)", e.Key, strings.Join(names, ", "))
}

// IsUnknownStyle reports whether err is or wraps an UnknownStyleError.
func IsUnknownStyle(err error) bool {
	var target *UnknownStyleError
	return errors.As(err, &target)
}
