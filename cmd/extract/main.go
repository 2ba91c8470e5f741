// Command extract converts Government of India NCO-2015 occupation
// classification PDFs into a structured dataset.
//
// Usage:
//
//	go run -tags sqlite_fts5 ./cmd/extract \
//	  -out nco2015.csv \
//	  -xlsx nco2015.xlsx \
//	  ./NCO-2015-Vol-I.pdf ./NCO-2015-Vol-II-A.pdf
//
// Records can also be persisted straight into a skillweave database so
// the match and analyze APIs can serve them:
//
//	go run -tags sqlite_fts5 ./cmd/extract \
//	  -db ~/.skillweave/skillweave.db ./NCO-2015-Vol-I.pdf
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/skillweave/skillweave/dataset"
	"github.com/skillweave/skillweave/nco"
	"github.com/skillweave/skillweave/store"
)

// defaultEmbeddingDim sizes the vector table when -db creates a fresh
// database. Matches the engine default (nomic-embed-text).
const defaultEmbeddingDim = 768

// extracted pairs one input file with its records, pre-deduplication.
type extracted struct {
	path string
	occs []nco.Occupation
}

func main() {
	var (
		outPath    = flag.String("out", "occupations.csv", "Output CSV path")
		xlsxPath   = flag.String("xlsx", "", "Also write an Excel workbook to this path")
		dbPath     = flag.String("db", "", "Also persist records into a skillweave SQLite database")
		workers    = flag.Int("workers", 4, "Concurrent page reads per document (0 or 1 = sequential)")
		minDesc    = flag.Int("min-desc", 0, "Override the minimum description length (default 21)")
		sortByCode = flag.Bool("sort-by-code", false, "Sort output by NCO code instead of page order")
		verbose    = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: extract [flags] <pdf> [<pdf> ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	limits := nco.DefaultLimits()
	if *minDesc > 0 {
		limits.MinDescriptionLen = *minDesc
	}
	extractor := nco.NewExtractor(nco.Options{Limits: limits, Workers: *workers})

	ctx := context.Background()
	totalStart := time.Now()

	var (
		perFile []extracted
		failed  int
	)
	for _, path := range files {
		fmt.Fprintf(os.Stderr, "Extracting %s\n", filepath.Base(path))
		start := time.Now()
		occs, err := extractor.ExtractFile(ctx, path)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  error: %v (skipping)\n", err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %d records in %s\n", len(occs), time.Since(start).Round(time.Millisecond))
		perFile = append(perFile, extracted{path: path, occs: occs})
	}

	var all []nco.Occupation
	for _, f := range perFile {
		all = append(all, f.occs...)
	}
	all = nco.Deduplicate(all)
	if len(all) == 0 {
		log.Fatalf("no occupation records extracted from %d file(s); nothing to write", len(files))
	}

	if *sortByCode {
		sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	}

	if err := dataset.WriteCSVFile(*outPath, all); err != nil {
		log.Fatalf("writing %s: %v", *outPath, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d records to %s\n", len(all), *outPath)

	if *xlsxPath != "" {
		if err := dataset.WriteXLSX(*xlsxPath, all); err != nil {
			log.Fatalf("writing %s: %v", *xlsxPath, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d records to %s\n", len(all), *xlsxPath)
	}

	if *dbPath != "" {
		n, err := persist(ctx, *dbPath, perFile, all)
		if err != nil {
			log.Fatalf("persisting to %s: %v", *dbPath, err)
		}
		fmt.Fprintf(os.Stderr, "Persisted %d records to %s\n", n, *dbPath)
	}

	printSummary(all, limits, len(files), failed, time.Since(totalStart))
}

// persist writes document rows and the deduplicated records into a
// skillweave store. Embeddings are not generated here; an engine run
// with a configured provider indexes whatever is missing.
func persist(ctx context.Context, dbPath string, perFile []extracted, all []nco.Occupation) (int, error) {
	s, err := store.New(dbPath, defaultEmbeddingDim)
	if err != nil {
		return 0, fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	docOf := make(map[string]int64) // code -> first source document
	for _, f := range perFile {
		absPath, err := filepath.Abs(f.path)
		if err != nil {
			absPath = f.path
		}
		hash, err := fileHash(absPath)
		if err != nil {
			hash = ""
		}
		docID, err := s.UpsertDocument(ctx, store.Document{
			Path:        absPath,
			Filename:    filepath.Base(absPath),
			ContentHash: hash,
			Status:      "ready",
		})
		if err != nil {
			return 0, fmt.Errorf("upserting document: %w", err)
		}
		if err := s.UpdateDocumentCounts(ctx, docID, 0, len(f.occs)); err != nil {
			return 0, fmt.Errorf("updating document counts: %w", err)
		}
		for _, o := range f.occs {
			if _, ok := docOf[o.Code]; !ok {
				docOf[o.Code] = docID
			}
		}
	}

	records := make([]store.Occupation, len(all))
	for i, o := range all {
		rec := store.Occupation{
			Code:        o.Code,
			Title:       o.Title,
			Description: o.Description,
			Division:    o.Division(),
		}
		if id, ok := docOf[o.Code]; ok {
			rec.DocumentID = &id
		}
		records[i] = rec
	}
	if _, err := s.UpsertOccupations(ctx, records); err != nil {
		return 0, fmt.Errorf("storing occupations: %w", err)
	}
	return len(records), nil
}

// fileHash returns the hex SHA-256 of a file's contents.
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

// printSummary prints the per-division record table and description
// length statistics used to sanity-check an extraction run.
func printSummary(all []nco.Occupation, limits nco.Limits, files, failed int, elapsed time.Duration) {
	stats := nco.Summarize(all, limits)

	fmt.Println("=== Extraction Summary ===")
	fmt.Printf("  %-38s %d\n", "Files processed:", files-failed)
	if failed > 0 {
		fmt.Printf("  %-38s %d\n", "Files failed:", failed)
	}
	fmt.Printf("  %-38s %d\n", "Records (after deduplication):", stats.Total)
	fmt.Printf("  %-38s %s\n", "Elapsed:", elapsed.Round(time.Millisecond))
	fmt.Println()

	divisions := make([]string, 0, len(stats.Divisions))
	for d := range stats.Divisions {
		divisions = append(divisions, d)
	}
	sort.Strings(divisions)
	fmt.Println("  Records by division:")
	for _, d := range divisions {
		fmt.Printf("    %s  %-42s %5d\n", d, nco.DivisionName(d), stats.Divisions[d])
	}
	fmt.Println()

	fmt.Println("  Description length (bytes):")
	fmt.Printf("    %-36s %d\n", "min:", stats.MinDescriptionLen)
	fmt.Printf("    %-36s %d\n", "max:", stats.MaxDescriptionLen)
	fmt.Printf("    %-36s %.0f\n", "avg:", stats.AvgDescriptionLen)
	if stats.ShortDescriptions > 0 {
		fmt.Printf("    %-36s %d\n",
			fmt.Sprintf("below %d (check layout drift):", limits.ShortDescriptionLen),
			stats.ShortDescriptions)
	}
}
