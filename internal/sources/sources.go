// Package sources gathers candidate vendors from feeds and web search to
// enrich vendor discovery. Every source is optional: failures and timeouts
// yield no candidates rather than an error.
package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/vendor-pipeline/internal/normalize"
)

// Field limits applied to candidate text.
const (
	maxProductLen    = 100
	maxCapabilityLen = 200
)

// Candidate is a vendor suggestion from an external source.
type Candidate struct {
	Name        string `json:"vendor_name"`
	ProductName string `json:"product_name"`
	EvidenceURL string `json:"evidence_url,omitempty"`
	Capability  string `json:"capability,omitempty"`
	Source      string `json:"source"`
	Status      string `json:"status,omitempty"`
}

// Source produces candidates for a topic.
type Source interface {
	Name() string
	Collect(ctx context.Context, topic string, limit int) ([]Candidate, error)
}

// Collector fans out to every source concurrently and merges the results.
type Collector struct {
	sources []Source
	timeout time.Duration
}

// NewCollector creates a collector. A non-positive timeout defaults to 10s.
func NewCollector(timeout time.Duration, srcs ...Source) *Collector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Collector{sources: srcs, timeout: timeout}
}

// Collect queries all sources, each under its own timeout. Results keep
// source order, are de-duplicated by name and product, and are truncated
// to limit.
func (c *Collector) Collect(ctx context.Context, topic string, limit int) []Candidate {
	if c == nil || len(c.sources) == 0 || limit <= 0 {
		return nil
	}

	results := make([][]Candidate, len(c.sources))
	var g errgroup.Group
	for i, src := range c.sources {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			found, err := src.Collect(sctx, topic, limit)
			if err != nil {
				zap.L().Warn("sources: source failed",
					zap.String("source", src.Name()),
					zap.Error(err),
				)
				return nil
			}
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var out []Candidate
	for _, batch := range results {
		for _, cand := range batch {
			key := strings.ToLower(cand.Name) + "|" + strings.ToLower(cand.ProductName)
			if cand.Name == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, cand)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// Render formats candidates as a bullet list for inclusion in a prompt.
func Render(cands []Candidate) string {
	var b strings.Builder
	for _, c := range cands {
		fmt.Fprintf(&b, "- %s: %s", c.Name, c.ProductName)
		if c.EvidenceURL != "" {
			fmt.Fprintf(&b, " (%s)", c.EvidenceURL)
		}
		if c.Capability != "" {
			fmt.Fprintf(&b, ". %s", c.Capability)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// vendorFromURL derives a vendor name from the first label of a URL's host,
// ignoring a leading "www".
func vendorFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	label, _, _ := strings.Cut(host, ".")
	// Casers carry state, so each call gets its own.
	return cases.Title(language.English).String(label)
}

// topicWords returns the first two lowercased words of topic.
func topicWords(topic string) []string {
	words := strings.Fields(strings.ToLower(topic))
	if len(words) > 2 {
		words = words[:2]
	}
	return words
}

func matchesTopic(title string, words []string) bool {
	title = strings.ToLower(title)
	for _, w := range words {
		if strings.Contains(title, w) {
			return true
		}
	}
	return false
}

func clip(s string, n int) string {
	return normalize.Truncate(strings.TrimSpace(s), n)
}
