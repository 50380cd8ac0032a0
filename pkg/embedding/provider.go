package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoInput is returned before any request is made when there is nothing to
// embed. It is a caller mistake, not an upstream fault.
var ErrNoInput = errors.New("embedding: no texts to embed")

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	// EmbedTexts returns one vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedText embeds a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// UpstreamError carries the status and raw body of a failed upstream call so
// callers can log the actual provider response.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream returned status %d: %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Body)
}

// validateVectors enforces the provider contract: one non-empty vector per
// input text, same order.
func validateVectors(service string, texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return &UpstreamError{
			Service: service,
			Body:    fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(vectors)),
		}
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return &UpstreamError{
				Service: service,
				Body:    fmt.Sprintf("empty embedding at position %d", i),
			}
		}
	}
	return nil
}
