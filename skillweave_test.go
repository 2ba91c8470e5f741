//go:build cgo

package skillweave

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/skillweave/skillweave/match"
	"github.com/skillweave/skillweave/store"
)

// keywordEmbedder maps texts onto fixed unit axes by keyword so that
// ranking is deterministic without a live embedding model.
type keywordEmbedder struct {
	fail bool
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, fmt.Errorf("embedder offline")
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = keywordVec(text)
	}
	return vecs, nil
}

func (e *keywordEmbedder) Dim() int { return 4 }

func (e *keywordEmbedder) Name() string { return "keyword" }

func keywordVec(text string) []float32 {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "weld"):
		return []float32{1, 0, 0, 0}
	case strings.Contains(t, "software"):
		return []float32{0, 1, 0, 0}
	case strings.Contains(t, "sales") || strings.Contains(t, "shop"):
		return []float32{0, 0, 1, 0}
	default:
		return []float32{0, 0, 0, 1}
	}
}

func newTestEngine(t *testing.T) Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "engine.db")
	cfg.EmbeddingDim = 4
	cfg.Embedding = EmbedConfig{}

	e, err := New(cfg, WithEmbedder(&keywordEmbedder{}))
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

// seedEngine loads four records and their keyword embeddings straight
// into the engine's store, standing in for a completed ingest run.
func seedEngine(t *testing.T, e Engine) {
	t.Helper()
	ctx := context.Background()
	s := e.Store()

	occs := []store.Occupation{
		{Code: "7212", Title: "Welders and Flame Cutters", Description: "Weld and cut metal parts using gas flame or electric arc.", Division: "Craft and Related Trades Workers"},
		{Code: "7213", Title: "Sheet Metal Workers", Description: "Form, install and repair articles and parts made of sheet metal.", Division: "Craft and Related Trades Workers"},
		{Code: "2512", Title: "Software Developers", Description: "Design, write and test software applications.", Division: "Professionals"},
		{Code: "5223", Title: "Shop Sales Assistants", Description: "Sell goods in retail shops and assist customers.", Division: "Service Workers and Shop & Market Sales Workers"},
	}
	ids, err := s.UpsertOccupations(ctx, occs)
	if err != nil {
		t.Fatalf("seeding occupations: %v", err)
	}
	for i, o := range occs {
		o.ID = ids[i]
		if err := s.InsertEmbedding(ctx, ids[i], keywordVec(match.EmbedText(o))); err != nil {
			t.Fatalf("seeding embedding: %v", err)
		}
	}
}

// ---

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WeightVector = -1

	_, err := New(cfg)
	if err == nil {
		t.Fatal("New() with negative weight succeeded, want error")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New() = %v, want ErrInvalidConfig", err)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "engine.db")
	cfg.Embedding.Provider = "bogus"

	if _, err := New(cfg); err == nil {
		t.Fatal("New() with unknown provider succeeded, want error")
	}
}

func TestNewDefaultsEmbeddingDim(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "engine.db")
	cfg.EmbeddingDim = 0
	cfg.Embedding = EmbedConfig{}

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()

	if dim := e.Store().EmbeddingDim(); dim != 768 {
		t.Errorf("EmbeddingDim() = %d, want 768", dim)
	}
}

// ---

func TestEngineMatch(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)
	ctx := context.Background()

	matches, err := e.Match(ctx, "welding metal", 3)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("Match() returned no results")
	}

	best := matches[0]
	if best.Code != "7212" {
		t.Errorf("top match = %s (%s), want 7212", best.Code, best.Title)
	}
	if best.Confidence <= 0.9 || best.Confidence > 1.0 {
		t.Errorf("Confidence = %v, want (0.9, 1.0] for a both-leg top hit", best.Confidence)
	}
	if len(best.Methods) == 0 {
		t.Error("Methods is empty")
	}
	if !strings.Contains(best.Explanation, "NCO 7212") {
		t.Errorf("Explanation = %q, want NCO code mentioned", best.Explanation)
	}

	var logged int
	if err := e.Store().DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM match_log").Scan(&logged); err != nil {
		t.Fatalf("counting match_log: %v", err)
	}
	if logged != 1 {
		t.Errorf("match_log rows = %d, want 1", logged)
	}
}

func TestEngineMatchEmptyQuery(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)

	if _, err := e.Match(context.Background(), "   ", 3); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Match(blank) = %v, want ErrEmptyInput", err)
	}
}

func TestEngineMatchNoProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "engine.db")
	cfg.EmbeddingDim = 4
	cfg.Embedding = EmbedConfig{}

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()

	if _, err := e.Match(context.Background(), "welding", 3); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Match() without provider = %v, want ErrInvalidConfig", err)
	}
}

func TestEngineMatchNoResults(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Match(context.Background(), "welding metal", 3)
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("Match() on empty store = %v, want ErrNoMatch", err)
	}
}

// ---

func TestEngineAnalyze(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)
	ctx := context.Background()
	s := e.Store()

	if _, err := s.ReplaceSkills(ctx, map[string][]string{
		"7212": {"gas welding", "arc welding", "metal cutting"},
	}); err != nil {
		t.Fatalf("seeding skills: %v", err)
	}
	if _, err := s.ReplaceTransitions(ctx, []store.Transition{
		{From: "7212", To: "7213", Reason: "adjacent metal trade"},
	}); err != nil {
		t.Fatalf("seeding transitions: %v", err)
	}

	a, err := e.Analyze(ctx, AnalyzeRequest{
		Text:   "I weld metal structures on construction sites",
		Skills: []string{"Gas Welding"},
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if a.Best.Code != "7212" {
		t.Fatalf("Best.Code = %s, want 7212", a.Best.Code)
	}
	if !reflect.DeepEqual(a.Gap.Matched, []string{"gas welding"}) {
		t.Errorf("Gap.Matched = %v, want [gas welding]", a.Gap.Matched)
	}
	if !reflect.DeepEqual(a.Gap.Missing, []string{"arc welding", "metal cutting"}) {
		t.Errorf("Gap.Missing = %v, want [arc welding metal cutting]", a.Gap.Missing)
	}
	if math.Abs(a.Coverage-1.0/3.0) > 1e-9 {
		t.Errorf("Coverage = %v, want 1/3", a.Coverage)
	}
	if len(a.Transitions) != 1 || a.Transitions[0].To != "7213" {
		t.Errorf("Transitions = %+v, want one edge to 7213", a.Transitions)
	}

	// One explanation per concern: match, gap, each transition.
	if len(a.Explanations) != 3 {
		t.Fatalf("len(Explanations) = %d, want 3", len(a.Explanations))
	}
	if !strings.Contains(a.Explanations[0], "NCO 7212") {
		t.Errorf("match explanation = %q", a.Explanations[0])
	}
	if !strings.Contains(a.Explanations[1], "build these skills next") {
		t.Errorf("gap explanation = %q", a.Explanations[1])
	}
	if !strings.Contains(a.Explanations[2], "Sheet Metal Workers") {
		t.Errorf("transition explanation = %q, want target title resolved", a.Explanations[2])
	}

	if len(a.Related) == 0 {
		t.Error("Related is empty, want at least the runner-up match")
	}
}

func TestEngineAnalyzeEmptyText(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.Analyze(context.Background(), AnalyzeRequest{Text: "  "}); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Analyze(blank) = %v, want ErrEmptyInput", err)
	}
}

// ---

func TestEngineOccupation(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)
	ctx := context.Background()

	if _, err := e.Store().ReplaceSkills(ctx, map[string][]string{
		"7212": {"gas welding", "arc welding"},
	}); err != nil {
		t.Fatal(err)
	}

	occ, err := e.Occupation(ctx, "7212")
	if err != nil {
		t.Fatalf("Occupation() error = %v", err)
	}
	if occ.Title != "Welders and Flame Cutters" {
		t.Errorf("Title = %q", occ.Title)
	}
	if occ.Division != "Craft and Related Trades Workers" {
		t.Errorf("Division = %q", occ.Division)
	}
	if !reflect.DeepEqual(occ.Skills, []string{"arc welding", "gas welding"}) {
		t.Errorf("Skills = %v, want sorted skill list", occ.Skills)
	}
}

func TestEngineOccupationNotFound(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)

	_, err := e.Occupation(context.Background(), "9999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Occupation(9999) = %v, want ErrNotFound", err)
	}
}

// ---

func TestEngineLoadTransitionsAndPaths(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "transitions.csv")
	csv := "from_nco,to_nco,reason\n" +
		"7212,7213,adjacent metal trade\n" +
		"7213,3115,supervisory step up\n" +
		"3115,1321,management track\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := e.LoadTransitions(ctx, path)
	if err != nil {
		t.Fatalf("LoadTransitions() error = %v", err)
	}
	if n != 3 {
		t.Errorf("LoadTransitions() = %d rows, want 3", n)
	}

	ts, err := e.Transitions(ctx, "7212")
	if err != nil {
		t.Fatalf("Transitions() error = %v", err)
	}
	if len(ts) != 1 || ts[0].To != "7213" {
		t.Errorf("Transitions(7212) = %+v", ts)
	}

	paths, err := e.TransitionPaths(ctx, "7212", "1321", 5)
	if err != nil {
		t.Fatalf("TransitionPaths() error = %v", err)
	}
	want := [][]string{{"7212", "7213", "3115", "1321"}}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("TransitionPaths() = %v, want %v", paths, want)
	}

	if paths, _ := e.TransitionPaths(ctx, "7212", "1321", 2); len(paths) != 0 {
		t.Errorf("TransitionPaths() with depth 2 = %v, want none", paths)
	}

	// Reloading replaces the table and invalidates the cached graph.
	shortcut := "from_nco,to_nco,reason\n7212,1321,direct move\n"
	if err := os.WriteFile(path, []byte(shortcut), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.LoadTransitions(ctx, path); err != nil {
		t.Fatal(err)
	}
	paths, err = e.TransitionPaths(ctx, "7212", "1321", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(paths, [][]string{{"7212", "1321"}}) {
		t.Errorf("TransitionPaths() after reload = %v, want the direct edge only", paths)
	}
}

func TestEngineLoadSkills(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "skills.csv")
	csv := "nco_code,skill\n7212,gas welding\n7212,arc welding\n2512,go\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := e.LoadSkills(ctx, path)
	if err != nil {
		t.Fatalf("LoadSkills() error = %v", err)
	}
	if n != 3 {
		t.Errorf("LoadSkills() = %d rows, want 3", n)
	}

	occ, err := e.Occupation(ctx, "2512")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(occ.Skills, []string{"go"}) {
		t.Errorf("Skills = %v, want [go]", occ.Skills)
	}
}

// ---

func TestEngineExportCSV(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)

	path := filepath.Join(t.TempDir(), "out.csv")
	n, err := e.ExportCSV(context.Background(), path)
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	if n != 4 {
		t.Errorf("ExportCSV() = %d records, want 4", n)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "nco_code,title,description\n") {
		t.Errorf("csv header = %q", strings.SplitN(content, "\n", 2)[0])
	}
	if !strings.Contains(content, "7212,Welders and Flame Cutters") {
		t.Error("csv missing seeded record")
	}
}

func TestEngineExportXLSX(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)

	path := filepath.Join(t.TempDir(), "out.xlsx")
	n, err := e.ExportXLSX(context.Background(), path)
	if err != nil {
		t.Fatalf("ExportXLSX() error = %v", err)
	}
	if n != 4 {
		t.Errorf("ExportXLSX() = %d records, want 4", n)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("xlsx file is empty")
	}
}

func TestEngineExportEmptyStore(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ExportCSV(context.Background(), filepath.Join(t.TempDir(), "out.csv"))
	if !errors.Is(err, ErrNoOccupations) {
		t.Errorf("ExportCSV() on empty store = %v, want ErrNoOccupations", err)
	}
}

// ---

func TestEngineIngestNoPaths(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.Ingest(context.Background(), nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Ingest(nil) = %v, want ErrEmptyInput", err)
	}
}

func TestEngineIngestUnreadableFile(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// A readable file that is not a PDF: the document row is recorded
	// with an error status and the run yields no records.
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := e.Ingest(ctx, []string{path})
	if !errors.Is(err, ErrNoOccupations) {
		t.Fatalf("Ingest(garbage) = %v, want ErrNoOccupations", err)
	}

	absPath, _ := filepath.Abs(path)
	doc, err := e.Store().GetDocumentByPath(ctx, absPath)
	if err != nil {
		t.Fatalf("document row not recorded: %v", err)
	}
	if doc.Status != "error" {
		t.Errorf("document status = %q, want error", doc.Status)
	}
}

func TestEngineIngestMissingFile(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Ingest(context.Background(), []string{filepath.Join(t.TempDir(), "absent.pdf")})
	if !errors.Is(err, ErrNoOccupations) {
		t.Errorf("Ingest(missing) = %v, want ErrNoOccupations", err)
	}
}

// ---

func TestEngineCloseGuards(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := e.Match(context.Background(), "welding", 3); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Match() after Close = %v, want ErrStoreClosed", err)
	}
	if _, err := e.Occupation(context.Background(), "7212"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Occupation() after Close = %v, want ErrStoreClosed", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

func TestEngineStats(t *testing.T) {
	e := newTestEngine(t)
	seedEngine(t, e)

	stats, err := e.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Occupations != 4 {
		t.Errorf("Occupations = %d, want 4", stats.Occupations)
	}
	if stats.Embeddings != 4 {
		t.Errorf("Embeddings = %d, want 4", stats.Embeddings)
	}
	if stats.Divisions["Professionals"] != 1 {
		t.Errorf("Divisions = %v, want Professionals: 1", stats.Divisions)
	}
}
