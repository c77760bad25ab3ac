// Package embedding provides text embedding backends for the similarity
// pre-filter.
package embedding

import "context"

// Provider generates a dense vector for the given text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
