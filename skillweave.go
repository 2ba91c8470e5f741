// Package skillweave turns the Government of India's NCO-2015 occupation
// classification PDFs into a queryable career dataset. It extracts
// (code, title, description) records from the two-column volume layout,
// stores them in SQLite with vector and full-text indexes, and answers
// career questions on top: semantic occupation matching, skill gap
// analysis, and transition path lookups.
package skillweave

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/skillweave/skillweave/career"
	"github.com/skillweave/skillweave/dataset"
	"github.com/skillweave/skillweave/embed"
	"github.com/skillweave/skillweave/match"
	"github.com/skillweave/skillweave/nco"
	"github.com/skillweave/skillweave/pdfdoc"
	"github.com/skillweave/skillweave/skillgap"
	"github.com/skillweave/skillweave/store"
)

// Occupation is the public record shape returned by lookups.
type Occupation struct {
	Code        string   `json:"nco_code"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Division    string   `json:"division,omitempty"`
	Skills      []string `json:"skills,omitempty"`
}

// Match is a scored occupation match with a plain-language explanation.
type Match struct {
	Code        string   `json:"nco_code"`
	Title       string   `json:"title"`
	Division    string   `json:"division,omitempty"`
	Confidence  float64  `json:"confidence"`
	Snippet     string   `json:"snippet,omitempty"`
	Methods     []string `json:"methods"`
	Explanation string   `json:"explanation"`
}

// AnalyzeRequest describes one candidate profile: free text about what
// they do (or want to do) plus the skills they already have.
type AnalyzeRequest struct {
	Text   string   `json:"text"`
	Skills []string `json:"skills,omitempty"`
	TopK   int      `json:"top_k,omitempty"`
}

// Analysis is the full career analysis for one profile.
type Analysis struct {
	Best         Match               `json:"best"`
	Related      []Match             `json:"related,omitempty"`
	Gap          skillgap.Gap        `json:"gap"`
	Coverage     float64             `json:"coverage"`
	Transitions  []career.Transition `json:"transitions,omitempty"`
	Explanations []string            `json:"explanations"`
}

// FileError records a single input file that failed during ingestion.
type FileError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	RunID     string      `json:"run_id"`
	Files     int         `json:"files"`
	Skipped   int         `json:"skipped"`
	Records   int         `json:"records"`
	Indexed   int         `json:"indexed"`
	Documents []int64     `json:"documents,omitempty"`
	Errors    []FileError `json:"errors,omitempty"`
	ElapsedMs int64       `json:"elapsed_ms"`
}

// Engine is the public API for the skillweave toolkit.
type Engine interface {
	// Ingest extracts occupation records from the given PDF files and
	// persists them. Files whose content hash is unchanged are skipped.
	// Per-file failures are recorded in the report and do not stop the
	// run; Ingest returns an error only when storage fails, embedding
	// fails, or the final dataset would be empty.
	Ingest(ctx context.Context, paths []string, opts ...IngestOption) (*IngestReport, error)

	// Match finds the occupations closest to a free-text query using
	// hybrid vector + keyword retrieval. k <= 0 uses the configured TopK.
	Match(ctx context.Context, query string, k int) ([]Match, error)

	// Analyze runs the full pipeline for one candidate profile: match,
	// skill gap against the best match, outgoing transitions, and
	// plain-language explanations.
	Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error)

	// Occupation returns a single record by NCO code, with its skills.
	Occupation(ctx context.Context, code string) (*Occupation, error)

	// Transitions returns the direct career moves recorded from code.
	Transitions(ctx context.Context, code string) ([]career.Transition, error)

	// TransitionPaths returns all simple paths between two codes within
	// maxDepth hops, shortest first.
	TransitionPaths(ctx context.Context, from, to string, maxDepth int) ([][]string, error)

	// LoadSkills replaces the skills table from a CSV or XLSX file.
	LoadSkills(ctx context.Context, path string) (int, error)

	// LoadTransitions replaces the transitions table from a CSV or XLSX file.
	LoadTransitions(ctx context.Context, path string) (int, error)

	// ExportCSV writes all stored occupations to a CSV file.
	ExportCSV(ctx context.Context, path string) (int, error)

	// ExportXLSX writes all stored occupations to an Excel workbook.
	ExportXLSX(ctx context.Context, path string) (int, error)

	// Stats reports row counts for the underlying dataset.
	Stats(ctx context.Context) (*store.DatasetStats, error)

	// Store exposes the underlying store for advanced callers.
	Store() *store.Store

	// Close releases the database. The engine is unusable afterwards.
	Close() error
}

// Option configures the engine at construction time.
type Option func(*engine)

// WithLogger sets the structured logger used by the engine. The default
// is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithEmbedder injects an embedding provider, overriding the one that
// would be built from Config.Embedding.
func WithEmbedder(p embed.Provider) Option {
	return func(e *engine) { e.embedder = p }
}

// WithStore injects an already-open store, overriding Config.DBPath.
// The engine takes ownership and closes it on Close.
func WithStore(s *store.Store) Option {
	return func(e *engine) { e.store = s }
}

// IngestOption adjusts a single Ingest call.
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	force     bool
	skipIndex bool
}

// WithForceReingest clears stored occupations and re-extracts every
// file, ignoring the content-hash skip check.
func WithForceReingest() IngestOption {
	return func(o *ingestOptions) { o.force = true }
}

// WithSkipIndex skips embedding generation after extraction. Useful when
// ingesting on a machine without access to the embedding provider; run
// Ingest again later to index the missing records.
func WithSkipIndex() IngestOption {
	return func(o *ingestOptions) { o.skipIndex = true }
}

type engine struct {
	cfg       Config
	log       *slog.Logger
	store     *store.Store
	embedder  embed.Provider
	extractor *nco.Extractor
	matcher   *match.Matcher

	mu    sync.Mutex
	graph *career.Graph // lazily built from the transitions table

	closed atomic.Bool
}

// New creates an Engine from the given configuration. Matching and
// analysis require an embedding provider, either from Config.Embedding
// or injected via WithEmbedder; without one the engine still extracts,
// stores, and exports.
func New(cfg Config, opts ...Option) (Engine, error) {
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 768
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &engine{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		s, err := store.New(cfg.resolveDBPath(), cfg.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		e.store = s
	}

	if e.embedder == nil && cfg.Embedding.Provider != "" {
		p, err := embed.NewProvider(embed.Config{
			Provider: cfg.Embedding.Provider,
			Model:    cfg.Embedding.Model,
			BaseURL:  cfg.Embedding.BaseURL,
			APIKey:   cfg.Embedding.APIKey,
			Dim:      cfg.EmbeddingDim,
		})
		if err != nil {
			e.store.Close()
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
		e.embedder = p
	}

	e.extractor = nco.NewExtractor(nco.Options{
		Limits:     cfg.Extraction.Limits,
		Classifier: cfg.Extraction.Classifier,
		Workers:    cfg.Extraction.Workers,
		Logger:     e.log,
	})

	if e.embedder != nil {
		e.matcher = match.New(e.store, e.embedder, match.Config{
			WeightVector: cfg.WeightVector,
			WeightFTS:    cfg.WeightFTS,
			TopK:         cfg.TopK,
		})
	}

	return e, nil
}

func (e *engine) guard() error {
	if e.closed.Load() {
		return ErrStoreClosed
	}
	return nil
}

func (e *engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	return e.store.Close()
}

func (e *engine) Store() *store.Store {
	return e.store
}

// --- Ingestion ---

func (e *engine) Ingest(ctx context.Context, paths []string, opts ...IngestOption) (*IngestReport, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no input files", ErrEmptyInput)
	}

	options := &ingestOptions{}
	for _, opt := range opts {
		opt(options)
	}

	runID := uuid.NewString()
	if err := e.store.InsertRun(ctx, runID, len(paths)); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}

	start := time.Now()
	report := &IngestReport{RunID: runID, Files: len(paths)}

	if options.force {
		if err := e.store.ClearOccupations(ctx); err != nil {
			return nil, fmt.Errorf("clearing occupations: %w", err)
		}
	}

	var combined []nco.Occupation
	docOf := make(map[string]int64) // code -> first source document

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			report.Errors = append(report.Errors, FileError{Path: path, Err: fmt.Errorf("resolving path: %w", err)})
			continue
		}
		filename := filepath.Base(absPath)

		hash, err := fileHash(absPath)
		if err != nil {
			e.log.Warn("ingest: unreadable file", "file", filename, "error", err)
			report.Errors = append(report.Errors, FileError{Path: path, Err: fmt.Errorf("%w: %v", ErrDocumentRead, err)})
			continue
		}

		// Skip documents already ingested with the same content.
		if !options.force {
			existing, err := e.store.GetDocumentByPath(ctx, absPath)
			if err == nil && existing.ContentHash == hash && existing.Status == "ready" {
				e.log.Info("ingest: unchanged, skipping", "file", filename, "doc_id", existing.ID)
				report.Skipped++
				report.Documents = append(report.Documents, existing.ID)
				continue
			}
		}

		docID, err := e.store.UpsertDocument(ctx, store.Document{
			Path:        absPath,
			Filename:    filename,
			ContentHash: hash,
			Status:      "processing",
		})
		if err != nil {
			report.Errors = append(report.Errors, FileError{Path: path, Err: fmt.Errorf("upserting document: %w", err)})
			continue
		}

		e.log.Info("ingest: extracting", "file", filename, "doc_id", docID)
		extractStart := time.Now()

		doc, err := pdfdoc.Open(absPath)
		if err != nil {
			e.store.UpdateDocumentStatus(ctx, docID, "error")
			e.log.Warn("ingest: open failed", "file", filename, "error", err)
			report.Errors = append(report.Errors, FileError{Path: path, Err: fmt.Errorf("%w: %v", ErrDocumentRead, err)})
			continue
		}
		pages := doc.NumPages()
		occs, err := e.extractor.Extract(ctx, doc)
		doc.Close()
		if err != nil {
			e.store.UpdateDocumentStatus(ctx, docID, "error")
			e.log.Warn("ingest: extraction failed", "file", filename, "error", err)
			report.Errors = append(report.Errors, FileError{Path: path, Err: err})
			continue
		}

		e.log.Info("ingest: extraction complete",
			"file", filename, "pages", pages, "records", len(occs),
			"elapsed", time.Since(extractStart).Round(time.Millisecond))

		e.store.UpdateDocumentCounts(ctx, docID, pages, len(occs))
		e.store.UpdateDocumentStatus(ctx, docID, "ready")
		report.Documents = append(report.Documents, docID)

		for _, o := range occs {
			if _, ok := docOf[o.Code]; !ok {
				docOf[o.Code] = docID
			}
		}
		combined = append(combined, occs...)
	}

	deduped := nco.Deduplicate(combined)

	if len(deduped) == 0 && report.Skipped == 0 {
		e.store.FinishRun(ctx, runID, 0, len(report.Errors))
		return nil, fmt.Errorf("%w: %d files yielded no valid records", ErrNoOccupations, len(paths))
	}

	if len(deduped) > 0 {
		records := make([]store.Occupation, len(deduped))
		for i, o := range deduped {
			id := docOf[o.Code]
			records[i] = store.Occupation{
				Code:        o.Code,
				Title:       o.Title,
				Description: o.Description,
				Division:    o.Division(),
				DocumentID:  &id,
			}
		}
		if _, err := e.store.UpsertOccupations(ctx, records); err != nil {
			e.store.FinishRun(ctx, runID, 0, len(report.Errors)+1)
			return nil, fmt.Errorf("storing occupations: %w", err)
		}
		report.Records = len(records)
	}

	// Embed whatever has no vector yet. This covers both the records
	// added above and any left behind by earlier WithSkipIndex runs.
	switch {
	case options.skipIndex:
		e.log.Info("ingest: indexing skipped", "run_id", runID)
	case e.matcher == nil:
		e.log.Warn("ingest: no embedding provider configured, matching index not built")
	default:
		missing, err := e.store.MissingEmbeddings(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing unembedded records: %w", err)
		}
		if len(missing) > 0 {
			e.log.Info("ingest: generating embeddings", "records", len(missing), "provider", e.embedder.Name())
			embedStart := time.Now()
			if err := e.matcher.Index(ctx, missing); err != nil {
				e.store.FinishRun(ctx, runID, report.Records, len(report.Errors)+1)
				return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
			}
			report.Indexed = len(missing)
			e.log.Info("ingest: embeddings complete",
				"records", len(missing), "elapsed", time.Since(embedStart).Round(time.Millisecond))
		}
	}

	report.ElapsedMs = time.Since(start).Milliseconds()
	if err := e.store.FinishRun(ctx, runID, report.Records, len(report.Errors)); err != nil {
		e.log.Warn("ingest: finishing run record failed", "run_id", runID, "error", err)
	}

	e.log.Info("ingest: run complete",
		"run_id", runID, "files", report.Files, "skipped", report.Skipped,
		"records", report.Records, "errors", len(report.Errors),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return report, nil
}

// --- Matching & analysis ---

func (e *engine) Match(ctx context.Context, query string, k int) ([]Match, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if e.matcher == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", ErrInvalidConfig)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyInput
	}

	raw, err := e.matcher.Match(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, query)
	}

	matches := make([]Match, len(raw))
	for i, m := range raw {
		matches[i] = Match{
			Code:        m.Code,
			Title:       m.Title,
			Division:    m.Division,
			Confidence:  m.Confidence,
			Snippet:     m.Snippet,
			Methods:     m.Methods,
			Explanation: ExplainMatch(m.Title, m.Code, m.Confidence),
		}
	}

	if err := e.store.LogMatch(ctx, store.MatchLog{
		Query:   query,
		TopCode: matches[0].Code,
		Score:   matches[0].Confidence,
		Results: len(matches),
	}); err != nil {
		e.log.Warn("match: audit log failed", "error", err)
	}

	return matches, nil
}

func (e *engine) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyInput
	}

	matches, err := e.Match(ctx, req.Text, req.TopK)
	if err != nil {
		return nil, err
	}
	best := matches[0]

	required, err := e.store.SkillsFor(ctx, best.Code)
	if err != nil {
		return nil, fmt.Errorf("loading required skills: %w", err)
	}
	gap := skillgap.Analyze(required, req.Skills)

	rows, err := e.store.TransitionsFrom(ctx, best.Code)
	if err != nil {
		return nil, fmt.Errorf("loading transitions: %w", err)
	}
	transitions := toCareerTransitions(rows)

	explanations := []string{best.Explanation, ExplainGap(best.Title, gap.Missing)}
	for _, t := range transitions {
		toTitle := t.To
		if occ, err := e.store.GetOccupation(ctx, t.To); err == nil {
			toTitle = occ.Title
		}
		explanations = append(explanations, ExplainTransition(best.Title, toTitle, t.Reason))
	}

	return &Analysis{
		Best:         best,
		Related:      matches[1:],
		Gap:          gap,
		Coverage:     gap.Coverage(),
		Transitions:  transitions,
		Explanations: explanations,
	}, nil
}

// --- Lookups ---

func (e *engine) Occupation(ctx context.Context, code string) (*Occupation, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	rec, err := e.store.GetOccupation(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
		}
		return nil, err
	}
	skills, err := e.store.SkillsFor(ctx, code)
	if err != nil {
		return nil, err
	}
	return &Occupation{
		Code:        rec.Code,
		Title:       rec.Title,
		Description: rec.Description,
		Division:    rec.Division,
		Skills:      skills,
	}, nil
}

func (e *engine) Transitions(ctx context.Context, code string) ([]career.Transition, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	rows, err := e.store.TransitionsFrom(ctx, code)
	if err != nil {
		return nil, err
	}
	return toCareerTransitions(rows), nil
}

func (e *engine) TransitionPaths(ctx context.Context, from, to string, maxDepth int) ([][]string, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	g, err := e.careerGraph(ctx)
	if err != nil {
		return nil, err
	}
	return g.Paths(from, to, maxDepth), nil
}

func (e *engine) careerGraph(ctx context.Context) (*career.Graph, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph != nil {
		return e.graph, nil
	}
	rows, err := e.store.AllTransitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading transitions: %w", err)
	}
	e.graph = career.New(toCareerTransitions(rows))
	return e.graph, nil
}

// --- Dataset I/O ---

func (e *engine) LoadSkills(ctx context.Context, path string) (int, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	skills, err := dataset.ReadSkills(path)
	if err != nil {
		return 0, fmt.Errorf("reading skills: %w", err)
	}
	n, err := e.store.ReplaceSkills(ctx, skills)
	if err != nil {
		return 0, fmt.Errorf("storing skills: %w", err)
	}
	e.log.Info("skills loaded", "file", filepath.Base(path), "rows", n)
	return n, nil
}

func (e *engine) LoadTransitions(ctx context.Context, path string) (int, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	ts, err := dataset.ReadTransitions(path)
	if err != nil {
		return 0, fmt.Errorf("reading transitions: %w", err)
	}
	rows := make([]store.Transition, len(ts))
	for i, t := range ts {
		rows[i] = store.Transition{From: t.From, To: t.To, Reason: t.Reason}
	}
	n, err := e.store.ReplaceTransitions(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("storing transitions: %w", err)
	}

	// The cached graph is stale now; rebuild on next path query.
	e.mu.Lock()
	e.graph = nil
	e.mu.Unlock()

	e.log.Info("transitions loaded", "file", filepath.Base(path), "rows", n)
	return n, nil
}

func (e *engine) ExportCSV(ctx context.Context, path string) (int, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	occs, err := e.exportRecords(ctx)
	if err != nil {
		return 0, err
	}
	if err := dataset.WriteCSVFile(path, occs); err != nil {
		return 0, fmt.Errorf("writing csv: %w", err)
	}
	return len(occs), nil
}

func (e *engine) ExportXLSX(ctx context.Context, path string) (int, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	occs, err := e.exportRecords(ctx)
	if err != nil {
		return 0, err
	}
	if err := dataset.WriteXLSX(path, occs); err != nil {
		return 0, fmt.Errorf("writing xlsx: %w", err)
	}
	return len(occs), nil
}

func (e *engine) exportRecords(ctx context.Context) ([]nco.Occupation, error) {
	rows, err := e.store.ListOccupations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing occupations: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoOccupations
	}
	occs := make([]nco.Occupation, len(rows))
	for i, r := range rows {
		occs[i] = nco.Occupation{Code: r.Code, Title: r.Title, Description: r.Description}
	}
	return occs, nil
}

func (e *engine) Stats(ctx context.Context) (*store.DatasetStats, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	return e.store.Stats(ctx)
}

// --- Helpers ---

func toCareerTransitions(rows []store.Transition) []career.Transition {
	if len(rows) == 0 {
		return nil
	}
	out := make([]career.Transition, len(rows))
	for i, t := range rows {
		out[i] = career.Transition{From: t.From, To: t.To, Reason: t.Reason}
	}
	return out
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
