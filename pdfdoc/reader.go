package pdfdoc

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// US Letter fallback for pages that carry no usable MediaBox.
const (
	letterWidth  = 612.0
	letterHeight = 792.0
)

// lineTolerance is the maximum baseline delta (points) for two text runs
// to be treated as the same visual line during word assembly.
const lineTolerance = 2.0

type reader struct {
	f *os.File
	r *pdf.Reader
}

// Open validates and opens a PDF for positioned-word extraction.
func Open(path string) (Document, error) {
	if err := Preflight(path); err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	return &reader{f: f, r: r}, nil
}

func (d *reader) NumPages() int { return d.r.NumPage() }

func (d *reader) Close() error { return d.f.Close() }

// Page reads page n and assembles its text runs into words. The underlying
// parser panics on malformed content streams, so recover and surface the
// failure as an error for the caller to skip.
func (d *reader) Page(n int) (pg Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading page %d: %v", n, r)
		}
	}()

	pg = Page{Number: n, Width: letterWidth, Height: letterHeight}

	p := d.r.Page(n)
	if p.V.IsNull() {
		return pg, nil
	}

	if w, h, ok := mediaBox(p); ok {
		pg.Width, pg.Height = w, h
	}

	content := p.Content()
	pg.Words = assembleWords(content.Text, pg.Height)
	return pg, nil
}

// mediaBox resolves the page dimensions, walking up the page tree for
// inherited attributes.
func mediaBox(p pdf.Page) (w, h float64, ok bool) {
	v := p.V
	for !v.IsNull() {
		if box := v.Key("MediaBox"); !box.IsNull() && box.Len() == 4 {
			w = box.Index(2).Float64() - box.Index(0).Float64()
			h = box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h, true
			}
		}
		v = v.Key("Parent")
	}
	return 0, 0, false
}

// assembleWords converts raw text runs into words. PDF content streams
// position runs bottom-up (Y grows toward the page top), so runs are first
// banded into lines by descending Y, then merged left to right within each
// band. Top is converted to top-down page space.
func assembleWords(texts []pdf.Text, pageHeight float64) []Word {
	runs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		runs = append(runs, t)
	}
	if len(runs) == 0 {
		return nil
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Y != runs[j].Y {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var words []Word
	for start := 0; start < len(runs); {
		end := start + 1
		for end < len(runs) && runs[start].Y-runs[end].Y <= lineTolerance {
			end++
		}
		line := make([]pdf.Text, end-start)
		copy(line, runs[start:end])
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		words = append(words, mergeLineRuns(line, pageHeight)...)
		start = end
	}
	return words
}

// mergeLineRuns joins adjacent runs of one line into words. A word ends at
// an explicit space run or when the horizontal gap to the next run exceeds
// the font-relative threshold.
func mergeLineRuns(line []pdf.Text, pageHeight float64) []Word {
	var words []Word
	var cur strings.Builder
	var x0, top, lastEnd float64

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			words = append(words, Word{Text: s, X0: x0, Top: top})
		}
		cur.Reset()
	}

	for _, t := range line {
		if strings.TrimSpace(t.S) == "" {
			flush()
			lastEnd = t.X + t.W
			continue
		}
		if cur.Len() > 0 && t.X-lastEnd > wordGap(t.FontSize) {
			flush()
		}
		if cur.Len() == 0 {
			x0 = t.X
			top = pageHeight - t.Y
		}
		cur.WriteString(t.S)
		lastEnd = t.X + t.W
	}
	flush()
	return words
}

// wordGap returns the horizontal gap treated as a word boundary. Scaled to
// the font size so tightly-kerned glyph runs inside a word stay joined.
func wordGap(fontSize float64) float64 {
	if fontSize <= 0 {
		return 2.0
	}
	g := fontSize * 0.25
	if g < 1.0 {
		g = 1.0
	}
	return g
}
