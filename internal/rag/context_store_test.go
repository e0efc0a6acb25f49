package rag

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestCosineSimilarityDegenerateInputs(t *testing.T) {
	assert.Zero(t, cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Zero(t, cosineSimilarity(nil, nil))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestUnavailableStoreDegrades(t *testing.T) {
	store := NewStore(nil, nil)
	sessionID := uuid.New()

	assert.False(t, store.Available())
	assert.False(t, store.Store(context.Background(), sessionID, "content", "message", nil, nil))
	assert.Empty(t, store.Search(context.Background(), "query", sessionID, 5, DefaultMinScore))
	assert.NotPanics(t, func() { store.DeleteSession(sessionID) })

	stats := store.Stats()
	assert.False(t, stats.Available)
	assert.Zero(t, stats.TotalChunks)
}

func TestNilStoreDegrades(t *testing.T) {
	var store *Store

	assert.False(t, store.Available())
	assert.Empty(t, store.Search(context.Background(), "query", uuid.New(), 5, DefaultMinScore))
}
