// Package match ranks stored occupations against free-text worker
// profiles. Retrieval is hybrid: vector similarity over embedded
// occupation records is fused with FTS5 keyword search using
// Reciprocal Rank Fusion.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skillweave/skillweave/embed"
	"github.com/skillweave/skillweave/store"
)

// Config holds matcher weights and defaults.
type Config struct {
	WeightVector float64
	WeightFTS    float64
	TopK         int
}

// Match is one ranked occupation candidate for a query.
type Match struct {
	Code       string   `json:"nco_code"`
	Title      string   `json:"title"`
	Division   string   `json:"division,omitempty"`
	Confidence float64  `json:"confidence"`
	Snippet    string   `json:"snippet,omitempty"`
	Methods    []string `json:"methods,omitempty"`
}

// Matcher performs hybrid occupation matching against the store.
type Matcher struct {
	store    *store.Store
	embedder embed.Provider
	cfg      Config
}

// New creates a matcher. Zero config fields fall back to equal weights
// and five results.
func New(s *store.Store, embedder embed.Provider, cfg Config) *Matcher {
	if cfg.WeightVector == 0 {
		cfg.WeightVector = 1.0
	}
	if cfg.WeightFTS == 0 {
		cfg.WeightFTS = 1.0
	}
	if cfg.TopK == 0 {
		cfg.TopK = 5
	}
	return &Matcher{store: s, embedder: embedder, cfg: cfg}
}

// EmbedText builds the text embedded for an occupation record. Title and
// division anchor the description so short queries land near the right
// records.
func EmbedText(o store.Occupation) string {
	var b strings.Builder
	b.WriteString(o.Title)
	b.WriteString(". ")
	b.WriteString(o.Description)
	if !strings.HasSuffix(o.Description, ".") {
		b.WriteString(".")
	}
	if o.Division != "" {
		b.WriteString(" Division: ")
		b.WriteString(o.Division)
		b.WriteString(".")
	}
	return b.String()
}

// maxEmbedChars caps the length of a single text sent to the embedding
// model. Occupation records are short; the cap guards against malformed
// records blowing past the model's context window.
const maxEmbedChars = 8000

// truncateForEmbed truncates text to maxEmbedChars on a word boundary.
func truncateForEmbed(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	// Cut at the last space before the limit to avoid splitting a word.
	cut := strings.LastIndex(text[:maxEmbedChars], " ")
	if cut <= 0 {
		cut = maxEmbedChars
	}
	return text[:cut]
}

// Index embeds occupation records in batches and stores the vectors.
// Individual batch failures trigger per-text fallback so a single bad
// record does not lose the whole batch.
func (m *Matcher) Index(ctx context.Context, occs []store.Occupation) error {
	const batchSize = 32
	var failed int

	for i := 0; i < len(occs); i += batchSize {
		end := i + batchSize
		if end > len(occs) {
			end = len(occs)
		}

		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			texts[j-i] = truncateForEmbed(EmbedText(occs[j]))
		}

		embeddings, err := m.embedder.Embed(ctx, texts)
		if err != nil {
			// Batch failed, fall back to embedding each text individually
			// so one bad record doesn't lose the entire batch.
			slog.Warn("match: embedding batch failed, falling back to individual",
				"batch_start", i, "batch_end", end, "error", err)
			for j, text := range texts {
				single, serr := m.embedder.Embed(ctx, []string{text})
				if serr != nil {
					slog.Warn("match: embedding single record failed",
						"nco_code", occs[i+j].Code, "error", serr)
					failed++
					continue
				}
				if len(single) == 0 || len(single[0]) == 0 {
					failed++
					continue
				}
				if serr := m.store.InsertEmbedding(ctx, occs[i+j].ID, single[0]); serr != nil {
					slog.Warn("match: storing embedding failed",
						"nco_code", occs[i+j].Code, "error", serr)
					failed++
				}
			}
			continue
		}

		for j, emb := range embeddings {
			if err := m.store.InsertEmbedding(ctx, occs[i+j].ID, emb); err != nil {
				slog.Warn("match: storing embedding failed",
					"nco_code", occs[i+j].Code, "error", err)
				failed++
			}
		}
	}

	if failed == len(occs) && len(occs) > 0 {
		return fmt.Errorf("all %d occupations failed embedding", len(occs))
	}
	if failed > 0 {
		slog.Warn("match: some embeddings failed", "failed", failed, "total", len(occs))
	}
	return nil
}

// Match runs both retrieval legs concurrently and fuses the ranked
// results. k <= 0 uses the configured TopK. An empty result with no
// leg errors means nothing in the store resembles the query.
func (m *Matcher) Match(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 {
		k = m.cfg.TopK
	}

	ftsQuery := sanitizeFTSQuery(query)

	slog.Debug("match: starting hybrid search",
		"query_len", len(query), "k", k,
		"weights", fmt.Sprintf("vec=%.1f fts=%.1f", m.cfg.WeightVector, m.cfg.WeightFTS))
	searchStart := time.Now()

	type result struct {
		results []store.SearchResult
		err     error
	}

	vecCh := make(chan result, 1)
	ftsCh := make(chan result, 1)

	// Vector search
	go func() {
		r, err := m.vectorSearch(ctx, query, k)
		vecCh <- result{r, err}
	}()

	// FTS search
	go func() {
		r, err := m.store.FTSSearch(ctx, ftsQuery, k)
		ftsCh <- result{r, err}
	}()

	vecRes := <-vecCh
	ftsRes := <-ftsCh

	if vecRes.err != nil {
		slog.Warn("match: vector search failed", "error", vecRes.err)
	}
	if ftsRes.err != nil {
		slog.Warn("match: fts search failed", "error", ftsRes.err)
	}

	slog.Debug("match: searches complete",
		"vec_results", len(vecRes.results), "fts_results", len(ftsRes.results),
		"elapsed", time.Since(searchStart).Round(time.Millisecond))

	fused, infoMap := fuseRRF(
		vecRes.results, ftsRes.results,
		m.cfg.WeightVector, m.cfg.WeightFTS,
		k,
	)

	if len(fused) == 0 {
		// If both legs failed, return the first error
		if vecRes.err != nil {
			return nil, fmt.Errorf("vector search: %w", vecRes.err)
		}
		if ftsRes.err != nil {
			return nil, fmt.Errorf("fts search: %w", ftsRes.err)
		}
	}

	queryWords := significantWords(query)
	matches := make([]Match, len(fused))
	for i, r := range fused {
		info := infoMap[r.OccupationID]
		matches[i] = Match{
			Code:       r.Code,
			Title:      r.Title,
			Division:   r.Division,
			Confidence: normalizeConfidence(r.Score, m.cfg.WeightVector, m.cfg.WeightFTS),
			Snippet:    extractSnippet(r.Description, queryWords),
			Methods:    info.Methods,
		}
	}
	return matches, nil
}

// vectorSearch generates an embedding for the query and searches vec_occupations.
func (m *Matcher) vectorSearch(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	embeddings, err := m.embedder.Embed(ctx, []string{truncateForEmbed(query)})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return m.store.VectorSearch(ctx, embeddings[0], k)
}
