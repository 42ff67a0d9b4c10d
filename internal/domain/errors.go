package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when an operation runs before Initialize
	// has succeeded on the client.
	ErrNotInitialized = errors.New("client not initialized")

	// ErrNoEmbedder is returned when a query or ingest needs embeddings but
	// no embedding generator is configured.
	ErrNoEmbedder = errors.New("no embedding generator configured")

	// ErrMissingAPIKey is returned when the embedding API credential is
	// absent from the environment.
	ErrMissingAPIKey = errors.New("missing embedding API key")

	// ErrLengthMismatch is returned when parallel id/document/embedding/
	// metadata slices passed to a bulk store operation differ in length.
	ErrLengthMismatch = errors.New("mismatched argument lengths")

	// ErrInvalidChunking is returned when chunking parameters cannot
	// terminate (overlap >= chunk size) or are non-positive.
	ErrInvalidChunking = errors.New("invalid chunking parameters")
)

// BackendError wraps a vector-store failure with the operation that hit it.
// Callers are expected to decide on retries themselves; the library never
// retries reads or queries.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// MalformedInputError reports unusable caller-supplied data, such as a backup
// line that does not parse. Line is zero when no position applies.
type MalformedInputError struct {
	Line   int
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed input at line %d: %s", e.Line, e.Reason)
	}
	return "malformed input: " + e.Reason
}

func (e *MalformedInputError) Unwrap() error { return e.Err }
