// Command inspect dumps how one PDF page is read: the column split, the
// grouped lines, and the classification of each line. It is the tuning
// tool for layout drift when a new NCO volume misbehaves.
//
// Usage:
//
//	go run ./cmd/inspect -page 37 ./NCO-2015-Vol-I.pdf
//	go run ./cmd/inspect -page 37 -words ./NCO-2015-Vol-I.pdf
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/skillweave/skillweave/nco"
	"github.com/skillweave/skillweave/pdfdoc"
)

func main() {
	var (
		pageNum  = flag.Int("page", 5, "Page number to inspect (1-indexed)")
		maxLines = flag.Int("max-lines", 0, "Maximum lines to print per column (0 = all)")
		words    = flag.Bool("words", false, "Also dump raw word positions")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: inspect [flags] <pdf>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	doc, err := pdfdoc.Open(path)
	if err != nil {
		log.Fatalf("opening %s: %v", path, err)
	}
	defer doc.Close()

	if *pageNum < 1 || *pageNum > doc.NumPages() {
		log.Fatalf("page %d out of range: document has %d pages", *pageNum, doc.NumPages())
	}

	page, err := doc.Page(*pageNum)
	if err != nil {
		log.Fatalf("reading page %d: %v", *pageNum, err)
	}

	fmt.Printf("=== %s page %d/%d ===\n", filepath.Base(path), *pageNum, doc.NumPages())
	fmt.Printf("size: %.0fx%.0f pt, words: %d, column split at x=%.0f\n\n",
		page.Width, page.Height, len(page.Words), page.Width/2)

	left, right := nco.SplitColumns(page)

	if *words {
		dumpWords("left", left)
		dumpWords("right", right)
	}

	classifier := nco.NewClassifier(nco.ClassifierConfig{})
	dumpLines("left column", left, classifier, *maxLines)
	dumpLines("right column", right, classifier, *maxLines)
}

func dumpWords(label string, words []pdfdoc.Word) {
	fmt.Printf("--- %s column words (%d) ---\n", label, len(words))
	for _, w := range words {
		fmt.Printf("  x=%6.1f top=%6.1f  %s\n", w.X0, w.Top, w.Text)
	}
	fmt.Println()
}

func dumpLines(label string, words []pdfdoc.Word, c *nco.Classifier, maxLines int) {
	lines := nco.GroupLines(words)
	fmt.Printf("--- %s: %d lines ---\n", label, len(lines))
	for i, line := range lines {
		if maxLines > 0 && i == maxLines {
			fmt.Printf("  ... %d more\n", len(lines)-maxLines)
			break
		}
		marker := ""
		if nco.ShouldStop(line) {
			marker = " [stop]"
		}
		fmt.Printf("  %-19s %s%s\n", "["+c.Classify(line).String()+"]", line, marker)
	}
	fmt.Println()
}
