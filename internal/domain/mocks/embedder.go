// Package mocks provides mock implementations for testing.
package mocks

import "context"

// Embedder is a mock implementation of ports.Embedder.
type Embedder struct {
	EmbeddingResult []float32
	Err             error

	// Texts records every text passed in.
	Texts []string
}

// Embed returns the configured embedding or error.
func (m *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.Texts = append(m.Texts, text)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.EmbeddingResult, nil
}

// EmbedBatch returns one configured embedding per text.
func (m *Embedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.Texts = append(m.Texts, texts...)
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.EmbeddingResult
	}
	return result, nil
}
