// Package pdfdoc reads positioned words from native-text PDF files.
// Coordinates use page space in points with the origin at the top-left
// corner, so Top increases downward and X0 increases rightward.
package pdfdoc

// Word is a single word of page text with its top-left position.
type Word struct {
	Text string  `json:"text"`
	X0   float64 `json:"x0"`
	Top  float64 `json:"top"`
}

// Page holds the positioned words of one page.
type Page struct {
	Number int // 1-indexed
	Width  float64
	Height float64
	Words  []Word
}

// Document is an open PDF that yields positioned words page by page.
// Implementations must allow concurrent Page calls; extraction may read
// pages in parallel.
type Document interface {
	// NumPages returns the number of pages in the document.
	NumPages() int

	// Page reads the words of page n (1-indexed). Pages with no text
	// content return an empty word list.
	Page(n int) (Page, error)

	// Close releases the underlying file handle.
	Close() error
}
