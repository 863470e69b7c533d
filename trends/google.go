package trends

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"trendmerch/logging"
)

const (
	// DefaultGoogleTrendsURL is the daily trending searches RSS feed.
	DefaultGoogleTrendsURL = "https://trends.google.com/trending/rss"
	// DefaultRegion is used when the caller passes an empty region.
	DefaultRegion = "US"

	maxFeedBytes = 4 << 20
	userAgent    = "trendmerch/1.0"
)

// GoogleTrendsConfig configures GoogleTrendsSource.
type GoogleTrendsConfig struct {
	// URL is the feed endpoint; the region is appended as ?geo=.
	URL string
	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// DefaultGoogleTrendsConfig returns the public feed with a 25s timeout.
func DefaultGoogleTrendsConfig() GoogleTrendsConfig {
	return GoogleTrendsConfig{
		URL:     DefaultGoogleTrendsURL,
		Timeout: 25 * time.Second,
	}
}

// GoogleTrendsSource reads topics from the Google Trends RSS feed.
type GoogleTrendsSource struct {
	feedURL string
	client  *http.Client
	logger  *logging.Logger
}

var _ Source = (*GoogleTrendsSource)(nil)

// NewGoogleTrendsSource creates a source from config.
func NewGoogleTrendsSource(config GoogleTrendsConfig, logger *logging.Logger) (*GoogleTrendsSource, error) {
	if config.URL == "" {
		config.URL = DefaultGoogleTrendsURL
	}
	if _, err := url.Parse(config.URL); err != nil {
		return nil, fmt.Errorf("trends: invalid feed URL %q: %w", config.URL, err)
	}
	if config.HTTPClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultGoogleTrendsConfig().Timeout
		}
		config.HTTPClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &GoogleTrendsSource{
		feedURL: config.URL,
		client:  config.HTTPClient,
		logger:  logger.Named("trends"),
	}, nil
}

// rssFeed is the subset of the feed that carries topics.
type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title         string `xml:"title"`
	ApproxTraffic string `xml:"approx_traffic"`
}

// FeedURL returns the request URL for region.
func (s *GoogleTrendsSource) FeedURL(region string) string {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	u, err := url.Parse(s.feedURL)
	if err != nil {
		return s.feedURL
	}
	q := u.Query()
	q.Set("geo", region)
	u.RawQuery = q.Encode()
	return u.String()
}

// ListTrendingTopics fetches the feed and returns item titles in feed order,
// with duplicates removed.
func (s *GoogleTrendsSource) ListTrendingTopics(ctx context.Context, region string) ([]string, error) {
	feedURL := s.FeedURL(region)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("trends: failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.1")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trends: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("trends: failed to read feed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trends: feed returned status %d", resp.StatusCode)
	}

	topics, err := ParseFeed(body)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Fetched trending topics",
		zap.String("region", region),
		zap.Int("count", len(topics)))
	return topics, nil
}

// ParseFeed extracts unique, non-blank item titles from an RSS document.
func ParseFeed(data []byte) ([]string, error) {
	var feed rssFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("trends: malformed feed: %w", err)
	}

	seen := make(map[string]bool, len(feed.Channel.Items))
	topics := make([]string, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		topics = append(topics, title)
	}
	return topics, nil
}
