// Package trends supplies candidate topics: live Google Trends data with a
// static list to fall back on when the feed is unreachable or empty.
package trends

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"trendmerch/logging"
)

// ErrNoTopics means neither the source nor its fallback produced a topic.
var ErrNoTopics = errors.New("trends: no topics available")

// DefaultFallbackTopics are used when live trends cannot be fetched.
var DefaultFallbackTopics = []string{
	"AI Generated Art",
	"Viral Memes 2024",
	"Trending Now",
	"Just Vibing",
	"No Cap",
}

// Source lists trending search terms for a region, most popular first.
type Source interface {
	ListTrendingTopics(ctx context.Context, region string) ([]string, error)
}

// TopicSourceError records why a source could not provide topics.
type TopicSourceError struct {
	Source string
	Region string
	Err    error
}

func (e *TopicSourceError) Error() string {
	return fmt.Sprintf("trends: %s (%s): %v", e.Source, e.Region, e.Err)
}

func (e *TopicSourceError) Unwrap() error {
	return e.Err
}

// StaticSource returns a fixed list regardless of region.
type StaticSource struct {
	topics []string
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource copies topics.
func NewStaticSource(topics ...string) *StaticSource {
	return &StaticSource{topics: append([]string(nil), topics...)}
}

// DefaultStaticSource returns the built-in fallback list.
func DefaultStaticSource() *StaticSource {
	return NewStaticSource(DefaultFallbackTopics...)
}

// ListTrendingTopics returns a copy of the list.
func (s *StaticSource) ListTrendingTopics(_ context.Context, _ string) ([]string, error) {
	if len(s.topics) == 0 {
		return nil, ErrNoTopics
	}
	return append([]string(nil), s.topics...), nil
}

// FallbackSource tries Primary and uses Fallback when it fails or is empty.
type FallbackSource struct {
	Primary  Source
	Fallback Source
	logger   *logging.Logger
}

var _ Source = (*FallbackSource)(nil)

// WithFallback wraps primary. A nil fallback means DefaultStaticSource.
func WithFallback(primary, fallback Source, logger *logging.Logger) *FallbackSource {
	if fallback == nil {
		fallback = DefaultStaticSource()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FallbackSource{Primary: primary, Fallback: fallback, logger: logger.Named("trends")}
}

// ListTrendingTopics returns the primary topics, or the fallback topics with a
// warning. It fails with ErrNoTopics only when both are empty.
func (s *FallbackSource) ListTrendingTopics(ctx context.Context, region string) ([]string, error) {
	if s.Primary != nil {
		topics, err := s.Primary.ListTrendingTopics(ctx, region)
		topics = CleanTopics(topics)
		if err == nil && len(topics) > 0 {
			return topics, nil
		}
		if err == nil {
			err = ErrNoTopics
		}
		srcErr := &TopicSourceError{Source: sourceName(s.Primary), Region: region, Err: err}
		s.logger.Warn("Trend source failed, using fallback topics",
			zap.Error(srcErr))
	}

	topics, err := s.Fallback.ListTrendingTopics(ctx, region)
	topics = CleanTopics(topics)
	if err != nil || len(topics) == 0 {
		return nil, ErrNoTopics
	}
	return topics, nil
}

// CleanTopics trims whitespace and drops blank entries, keeping order.
func CleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func sourceName(s Source) string {
	switch s.(type) {
	case *GoogleTrendsSource:
		return "google-trends"
	case *StaticSource:
		return "static"
	default:
		return fmt.Sprintf("%T", s)
	}
}
