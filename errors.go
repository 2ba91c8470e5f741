package skillweave

import "errors"

var (
	// ErrDocumentRead is returned when a source PDF cannot be opened,
	// fails structural validation, or yields no readable pages.
	ErrDocumentRead = errors.New("skillweave: document read failed")

	// ErrNoOccupations is returned when extraction produced zero valid
	// records across all input documents.
	ErrNoOccupations = errors.New("skillweave: no occupations extracted")

	// ErrEmptyInput is returned when an analysis request carries no text.
	ErrEmptyInput = errors.New("skillweave: empty input")

	// ErrNoMatch is returned when the matcher finds no occupations for a query.
	ErrNoMatch = errors.New("skillweave: no matching occupations")

	// ErrNotFound is returned when an occupation code does not exist.
	ErrNotFound = errors.New("skillweave: occupation not found")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("skillweave: embedding generation failed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("skillweave: invalid configuration")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("skillweave: store is closed")
)
