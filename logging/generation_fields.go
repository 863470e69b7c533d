package logging

import (
	"time"

	"go.uber.org/zap"
)

// RetryFields describes one retry decision of the inference client.
func RetryFields(attempt, maxAttempts int, wait time.Duration, kind string) []zap.Field {
	return []zap.Field{
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", maxAttempts),
		zap.Duration("wait", wait),
		zap.String("kind", kind),
	}
}

// ImageFields describes the dimensions of an image at some pipeline stage.
func ImageFields(stage string, width, height int) []zap.Field {
	return []zap.Field{
		zap.String("stage", stage),
		zap.Int("width", width),
		zap.Int("height", height),
	}
}

// TruncatedPrompt keeps prompts readable in logs.
func TruncatedPrompt(prompt string, max int) zap.Field {
	if max > 0 && len(prompt) > max {
		prompt = prompt[:max] + "..."
	}
	return zap.String("prompt_preview", prompt)
}
