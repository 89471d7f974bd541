package sources

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// entriesPerFeed bounds how many recent entries are inspected per feed.
const entriesPerFeed = 5

// RSSSource scans vendor blog feeds for entries matching the topic.
type RSSSource struct {
	feeds  []string
	client *http.Client
}

// NewRSSSource creates a feed source. A nil client uses a 10s timeout.
func NewRSSSource(feeds []string, client *http.Client) *RSSSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RSSSource{feeds: feeds, client: client}
}

// Name implements Source.
func (s *RSSSource) Name() string { return "rss" }

// Collect implements Source. A feed that fails to fetch or parse is logged
// and skipped.
func (s *RSSSource) Collect(ctx context.Context, topic string, limit int) ([]Candidate, error) {
	words := topicWords(topic)
	if len(words) == 0 {
		return nil, nil
	}

	perFeed := make([][]Candidate, len(s.feeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, feedURL := range s.feeds {
		g.Go(func() error {
			found, err := s.fetch(gctx, feedURL, words)
			if err != nil {
				zap.L().Warn("sources: feed failed", zap.String("feed", feedURL), zap.Error(err))
				return nil
			}
			perFeed[i] = found
			return nil
		})
	}
	_ = g.Wait()

	var out []Candidate
	for _, found := range perFeed {
		out = append(out, found...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *RSSSource) fetch(ctx context.Context, feedURL string, words []string) ([]Candidate, error) {
	parser := gofeed.NewParser()
	parser.Client = s.client

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "rss: parse %s", feedURL)
	}

	vendor := vendorFromURL(feedURL)
	items := feed.Items
	if len(items) > entriesPerFeed {
		items = items[:entriesPerFeed]
	}

	var out []Candidate
	for _, item := range items {
		if item == nil || !matchesTopic(item.Title, words) {
			continue
		}
		link := item.Link
		if link == "" {
			link = feedURL
		}
		summary := item.Description
		if summary == "" {
			summary = "AI automation"
		}
		product := item.Title
		if product == "" {
			product = "Unknown"
		}
		out = append(out, Candidate{
			Name:        vendor,
			ProductName: clip(product, maxProductLen),
			EvidenceURL: link,
			Capability:  clip(summary, maxCapabilityLen),
			Source:      "RSS Feed",
			Status:      "commercial",
		})
	}
	return out, nil
}
