// Package imagegen turns prompts into raw images through a remote inference
// provider, retrying transient failures with a bounded linear backoff.
//
// atoms.go contains pure helpers with no dependencies.
package imagegen

import (
	"strings"
	"unicode/utf8"
)

// IsAzureEndpoint checks if the given endpoint URL is an Azure OpenAI endpoint.
//
//	IsAzureEndpoint("https://myresource.openai.azure.com")        // true
//	IsAzureEndpoint("https://myresource.cognitiveservices.azure.com") // true
//	IsAzureEndpoint("https://api.openai.com")                     // false
func IsAzureEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	lower := strings.ToLower(endpoint)
	return strings.Contains(lower, "openai.azure.com") ||
		strings.Contains(lower, "cognitiveservices.azure.com")
}

// IsLocalEndpoint checks if the given endpoint URL points at this machine or a
// private network. Image models are never served locally by this tool.
func IsLocalEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	lower := strings.ToLower(endpoint)
	return strings.Contains(lower, "localhost") ||
		strings.Contains(lower, "127.0.0.1") ||
		strings.Contains(lower, "0.0.0.0") ||
		strings.Contains(lower, "192.168.") ||
		strings.Contains(lower, "://10.")
}

// IsImageContentType reports whether a Content-Type header names an image.
func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(mediaType(contentType), "image/")
}

// IsJSONContentType reports whether a Content-Type header names JSON.
func IsJSONContentType(contentType string) bool {
	mt := mediaType(contentType)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func mediaType(contentType string) string {
	lower := strings.ToLower(contentType)
	if idx := strings.Index(lower, ";"); idx != -1 {
		lower = lower[:idx]
	}
	return strings.TrimSpace(lower)
}

// snippet shortens a response body for inclusion in error messages.
func snippet(body []byte, max int) string {
	s := strings.TrimSpace(string(body))
	if !utf8.ValidString(s) {
		return "<binary>"
	}
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
