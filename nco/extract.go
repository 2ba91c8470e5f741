package nco

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/skillweave/skillweave/pdfdoc"
)

// skipLeadingPages is the number of cover and contents pages at the start
// of every NCO-2015 volume. They carry no occupation entries and are
// always skipped.
const skipLeadingPages = 4

// Options configures an Extractor. Zero-value fields use the
// published-dataset defaults and sequential page processing.
type Options struct {
	Limits     Limits
	Classifier ClassifierConfig

	// Workers bounds concurrent page reads. Values below 2 keep
	// extraction sequential.
	Workers int

	// Logger receives page-level warnings. Nil uses slog.Default().
	Logger *slog.Logger
}

// Extractor drives the per-page pipeline: column split, line grouping,
// classification, record assembly.
type Extractor struct {
	classifier *Classifier
	limits     Limits
	workers    int
	logger     *slog.Logger
}

// NewExtractor returns an Extractor with the given options.
// Zero-value thresholds are replaced with the defaults.
func NewExtractor(opts Options) *Extractor {
	limits := opts.Limits
	if limits.MinTitleLen == 0 {
		limits.MinTitleLen = DefaultLimits().MinTitleLen
	}
	if limits.MinDescriptionLen == 0 {
		limits.MinDescriptionLen = DefaultLimits().MinDescriptionLen
	}
	if limits.ShortDescriptionLen == 0 {
		limits.ShortDescriptionLen = DefaultLimits().ShortDescriptionLen
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		classifier: NewClassifier(opts.Classifier),
		limits:     limits,
		workers:    opts.Workers,
		logger:     logger,
	}
}

// Limits returns the acceptance thresholds in effect.
func (e *Extractor) Limits() Limits { return e.limits }

// Extract pulls occupation records from every content page of an open
// document. Pages are read sequentially or in parallel depending on the
// worker count, but lines always reach the assembler in page order, so
// output is deterministic either way. Records are not deduplicated here;
// callers merge volumes first and deduplicate once.
func (e *Extractor) Extract(ctx context.Context, doc pdfdoc.Document) ([]Occupation, error) {
	total := doc.NumPages()
	if total <= skipLeadingPages {
		return nil, nil
	}

	pages := make([][]string, total+1)

	if e.workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for n := skipLeadingPages + 1; n <= total; n++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				lines, err := pageLines(doc, n)
				if err != nil {
					e.logger.Warn("skipping unreadable page", "page", n, "error", err)
					return nil
				}
				pages[n] = lines
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for n := skipLeadingPages + 1; n <= total; n++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			lines, err := pageLines(doc, n)
			if err != nil {
				e.logger.Warn("skipping unreadable page", "page", n, "error", err)
				continue
			}
			pages[n] = lines
		}
	}

	asm := NewAssembler(e.classifier, e.limits)
	for n := skipLeadingPages + 1; n <= total; n++ {
		for _, line := range pages[n] {
			asm.Feed(line)
		}
	}
	return asm.Finish(), nil
}

// ExtractFile opens path, extracts all records, and closes the document.
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]Occupation, error) {
	doc, err := pdfdoc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer doc.Close()
	return e.Extract(ctx, doc)
}

func pageLines(doc pdfdoc.Document, n int) ([]string, error) {
	p, err := doc.Page(n)
	if err != nil {
		return nil, err
	}
	return PageLines(p), nil
}
