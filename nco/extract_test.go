package nco

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/skillweave/skillweave/pdfdoc"
)

// fakeDoc serves prebuilt pages so pipeline behavior can be tested without
// real PDF input.
type fakeDoc struct {
	total int
	pages map[int]pdfdoc.Page
	errs  map[int]error
	calls atomic.Int32
}

func (d *fakeDoc) NumPages() int { return d.total }

func (d *fakeDoc) Page(n int) (pdfdoc.Page, error) {
	d.calls.Add(1)
	if err := d.errs[n]; err != nil {
		return pdfdoc.Page{}, err
	}
	return d.pages[n], nil
}

func (d *fakeDoc) Close() error { return nil }

const (
	leftColX  = 40.0
	rightColX = 320.0
)

// contentPage lays the given lines out as positioned words, left column
// then right column.
func contentPage(n int, left, right []string) pdfdoc.Page {
	p := pdfdoc.Page{Number: n, Width: 612, Height: 792}
	p.Words = append(p.Words, columnWords(left, leftColX)...)
	p.Words = append(p.Words, columnWords(right, rightColX)...)
	return p
}

func columnWords(lines []string, x float64) []pdfdoc.Word {
	var words []pdfdoc.Word
	top := 72.0
	for _, line := range lines {
		wx := x
		for _, f := range strings.Fields(line) {
			words = append(words, pdfdoc.Word{Text: f, X0: wx, Top: top})
			wx += 20
		}
		top += 12
	}
	return words
}

func coverPage(n int) pdfdoc.Page {
	return contentPage(n, []string{
		"6999 Fake Entry",
		"Cover text that would form a record if this sheet were read.",
	}, nil)
}

func TestExtractSkipsLeadingPages(t *testing.T) {
	doc := &fakeDoc{
		total: 5,
		pages: map[int]pdfdoc.Page{
			1: coverPage(1),
			2: coverPage(2),
			3: coverPage(3),
			4: coverPage(4),
			5: contentPage(5, []string{
				"6111 Grower, Vegetable",
				"Grows vegetables in open fields and sells them at market.",
			}, nil),
		},
	}

	got, err := NewExtractor(Options{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Code != "6111" {
		t.Errorf("code = %q, want %q", got[0].Code, "6111")
	}
	if n := doc.calls.Load(); n != 1 {
		t.Errorf("read %d pages, want 1", n)
	}
}

func TestExtractAllPagesSkippable(t *testing.T) {
	doc := &fakeDoc{total: 4, pages: map[int]pdfdoc.Page{1: coverPage(1)}}

	got, err := NewExtractor(Options{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records, want 0", len(got))
	}
	if n := doc.calls.Load(); n != 0 {
		t.Errorf("read %d pages, want 0", n)
	}
}

func TestExtractColumnOrder(t *testing.T) {
	doc := &fakeDoc{
		total: 5,
		pages: map[int]pdfdoc.Page{
			5: contentPage(5,
				[]string{"6121 Dairy Farm Worker", "Tends dairy cattle and performs"},
				[]string{"milking duties on commercial farms daily."},
			),
		},
	}

	got, err := NewExtractor(Options{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	want := "Tends dairy cattle and performs milking duties on commercial farms daily."
	if got[0].Description != want {
		t.Errorf("description = %q, want %q", got[0].Description, want)
	}
}

func TestExtractParallelDeterministic(t *testing.T) {
	pages := map[int]pdfdoc.Page{}
	var wantCodes []string
	for i := 0; i < 8; i++ {
		code := fmt.Sprintf("61%02d", 22+i)
		wantCodes = append(wantCodes, code)
		pages[5+i] = contentPage(5+i, []string{
			code + " Grower, Test",
			fmt.Sprintf("Cultivates plot number %d and sells the produce at market.", i),
		}, nil)
	}
	doc := &fakeDoc{total: 12, pages: pages}

	seq, err := NewExtractor(Options{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("sequential Extract: %v", err)
	}
	if len(seq) != 8 {
		t.Fatalf("sequential: got %d records, want 8", len(seq))
	}
	for i, code := range wantCodes {
		if seq[i].Code != code {
			t.Errorf("record %d code = %q, want %q", i, seq[i].Code, code)
		}
	}

	for run := 0; run < 3; run++ {
		par, err := NewExtractor(Options{Workers: 4}).Extract(context.Background(), doc)
		if err != nil {
			t.Fatalf("parallel Extract: %v", err)
		}
		if len(par) != len(seq) {
			t.Fatalf("parallel run %d: got %d records, want %d", run, len(par), len(seq))
		}
		for i := range par {
			if par[i] != seq[i] {
				t.Errorf("parallel run %d record %d = %+v, want %+v", run, i, par[i], seq[i])
			}
		}
	}
}

func TestExtractSkipsUnreadablePage(t *testing.T) {
	doc := &fakeDoc{
		total: 7,
		pages: map[int]pdfdoc.Page{
			5: contentPage(5, []string{
				"6111 Grower, Vegetable",
				"Grows vegetables in open fields and sells them at market.",
			}, nil),
			7: contentPage(7, []string{
				"6112 Grower, Fruit",
				"Cultivates fruit trees and harvests seasonal crops for sale.",
			}, nil),
		},
		errs: map[int]error{6: errors.New("damaged content stream")},
	}

	got, err := NewExtractor(Options{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Code != "6111" || got[1].Code != "6112" {
		t.Errorf("codes = %q, %q, want 6111, 6112", got[0].Code, got[1].Code)
	}
}

func TestExtractCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := &fakeDoc{total: 6, pages: map[int]pdfdoc.Page{}}

	for _, workers := range []int{0, 4} {
		_, err := NewExtractor(Options{Workers: workers}).Extract(ctx, doc)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: err = %v, want context.Canceled", workers, err)
		}
	}
}

func TestNewExtractorDefaults(t *testing.T) {
	got := NewExtractor(Options{}).Limits()
	if got != DefaultLimits() {
		t.Errorf("zero options limits = %+v, want defaults", got)
	}

	partial := NewExtractor(Options{Limits: Limits{MinDescriptionLen: 30}}).Limits()
	if partial.MinDescriptionLen != 30 {
		t.Errorf("MinDescriptionLen = %d, want 30", partial.MinDescriptionLen)
	}
	if partial.MinTitleLen != DefaultLimits().MinTitleLen {
		t.Errorf("MinTitleLen = %d, want default", partial.MinTitleLen)
	}
}
