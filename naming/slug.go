// Package naming derives output filenames from topics and writes designs to disk.
package naming

import (
	"strings"
	"time"
)

// MaxSlugLength bounds the slug part of a filename, in bytes.
const MaxSlugLength = 60

// EmptySlug replaces topics with no alphanumeric characters.
const EmptySlug = "design"

// TimestampLayout is the seconds-resolution suffix of every filename.
const TimestampLayout = "20060102_150405"

// Slugify lowercases s, collapses every run of characters outside [a-z0-9]
// into a single "-", trims leading and trailing separators and truncates to
// MaxSlugLength. Slugify(Slugify(s)) == Slugify(s) for every s.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	slug := b.String()
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	if slug == "" {
		return EmptySlug
	}
	return slug
}

// Name returns "<slug>_<YYYYMMDD_HHMMSS>" for topic at ts.
func Name(topic string, ts time.Time) string {
	return Slugify(topic) + "_" + ts.Format(TimestampLayout)
}

// FileName returns Name(topic, ts) with the .png extension.
func FileName(topic string, ts time.Time) string {
	return Name(topic, ts) + ".png"
}
