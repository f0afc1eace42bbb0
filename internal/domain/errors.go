package domain

import "errors"

var (
	// ErrInvalidChunking is returned when chunk size and overlap cannot make progress.
	ErrInvalidChunking = errors.New("invalid chunking: require chunk_size > 0 and 0 <= chunk_overlap < chunk_size")
	// ErrDimensionMismatch is returned when an embedding does not have the corpus dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrBatchCountMismatch is returned when a provider returns a different number of vectors than inputs.
	ErrBatchCountMismatch = errors.New("embedding batch count mismatch")
	// ErrEmptyDocument marks a document that has no content after cleaning.
	ErrEmptyDocument = errors.New("document is empty after cleaning")
	// ErrUnsupportedProvider is returned for unknown provider identifiers.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrEmptyAugmentation is returned when query rewriting yields no text.
	ErrEmptyAugmentation = errors.New("query augmentation returned empty text")
)
