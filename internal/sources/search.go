package sources

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-pipeline/pkg/jina"
)

// SearchSource finds candidate products through web search.
type SearchSource struct {
	client jina.Client
}

// NewSearchSource creates a search-backed source.
func NewSearchSource(client jina.Client) *SearchSource {
	return &SearchSource{client: client}
}

// Name implements Source.
func (s *SearchSource) Name() string { return "search" }

// Collect implements Source.
func (s *SearchSource) Collect(ctx context.Context, topic string, limit int) ([]Candidate, error) {
	resp, err := s.client.Search(ctx, topic+" automation tool")
	if err != nil {
		return nil, eris.Wrap(err, "search: query")
	}

	var out []Candidate
	for _, r := range resp.Data {
		name := vendorFromURL(r.URL)
		if name == "" || r.Title == "" {
			continue
		}
		capability := r.Description
		if capability == "" {
			capability = r.Content
		}
		out = append(out, Candidate{
			Name:        name,
			ProductName: clip(r.Title, maxProductLen),
			EvidenceURL: r.URL,
			Capability:  clip(capability, maxCapabilityLen),
			Source:      "Web Search",
			Status:      "commercial",
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// CuratedSource returns a fixed list of widely adopted AI tooling projects.
type CuratedSource struct{}

// Name implements Source.
func (CuratedSource) Name() string { return "curated" }

// Collect implements Source.
func (CuratedSource) Collect(_ context.Context, _ string, limit int) ([]Candidate, error) {
	out := []Candidate{
		{Name: "GitHub", ProductName: "GitHub Copilot", EvidenceURL: "https://github.com/features/copilot", Source: "Curated", Status: "commercial"},
		{Name: "LangChain", ProductName: "LangChain", EvidenceURL: "https://github.com/langchain-ai/langchain", Source: "Curated", Status: "commercial"},
		{Name: "LlamaIndex", ProductName: "LlamaIndex", EvidenceURL: "https://github.com/run-llama/llama_index", Source: "Curated", Status: "commercial"},
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
