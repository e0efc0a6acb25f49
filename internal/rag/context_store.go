package rag

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"couple_compass_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultMinScore is the cosine-similarity floor below which search matches
// are discarded.
const DefaultMinScore = 0.70

// Embedder is the slice of the provider surface the store needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbeddingDim() int
}

// SearchResult is one retrieved chunk with its relevance scaled to 0-100.
type SearchResult struct {
	Content        string `json:"content"`
	ContentType    string `json:"content_type"`
	RelevanceScore int    `json:"relevance_score"`
}

// Stats reports the store's availability and size for diagnostics.
type Stats struct {
	Available   bool  `json:"available"`
	TotalChunks int64 `json:"total_chunks"`
	Dimension   int   `json:"dimension"`
}

// Store persists embedded conversation chunks and ranks them by cosine
// similarity, always scoped to a single session. It is an optional
// capability: built without a database or embedder it reports unavailable
// and every operation degrades to an empty result instead of failing the
// caller.
type Store struct {
	db       *gorm.DB
	embedder Embedder
}

func NewStore(db *gorm.DB, embedder Embedder) *Store {
	return &Store{db: db, embedder: embedder}
}

func (s *Store) Available() bool {
	return s != nil && s.db != nil && s.embedder != nil
}

// Store embeds content and persists it as a context chunk. Returns false
// instead of an error because context storage is always best-effort.
func (s *Store) Store(ctx context.Context, sessionID uuid.UUID, content, contentType string, sourceMessageID *uuid.UUID, metadata map[string]interface{}) bool {
	if !s.Available() {
		log.Warn().Msg("context store unavailable, skipping store")
		return false
	}

	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("failed to embed content")
		return false
	}

	encoded, err := json.Marshal(vector)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode embedding")
		return false
	}

	chunk := &models.ContextChunk{
		SessionID:       sessionID,
		Content:         content,
		Embedding:       datatypes.JSON(encoded),
		ContentType:     contentType,
		SourceMessageID: sourceMessageID,
		Metadata:        datatypes.JSONMap(metadata),
	}
	if err := s.db.Create(chunk).Error; err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to persist context chunk")
		return false
	}
	return true
}

// Search embeds the query and returns up to limit chunks of the session
// ranked by cosine similarity, dropping matches under minScore. Every
// failure path yields an empty result.
func (s *Store) Search(ctx context.Context, query string, sessionID uuid.UUID, limit int, minScore float64) []SearchResult {
	if !s.Available() {
		return nil
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		log.Warn().Err(err).Msg("failed to embed search query")
		return nil
	}

	var chunks []models.ContextChunk
	if err := s.db.Where("session_id = ?", sessionID).Find(&chunks).Error; err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to load context chunks")
		return nil
	}

	type scoredChunk struct {
		chunk models.ContextChunk
		score float64
	}
	ranked := make([]scoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		var vector []float32
		if err := json.Unmarshal(chunk.Embedding, &vector); err != nil {
			continue
		}
		score := cosineSimilarity(queryVector, vector)
		if score < minScore {
			continue
		}
		ranked = append(ranked, scoredChunk{chunk: chunk, score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]SearchResult, len(ranked))
	for i, r := range ranked {
		results[i] = SearchResult{
			Content:        r.chunk.Content,
			ContentType:    r.chunk.ContentType,
			RelevanceScore: int(math.Round(r.score * 100)),
		}
	}
	return results
}

// DeleteSession removes every chunk of a session. A session with no chunks
// is a no-op.
func (s *Store) DeleteSession(sessionID uuid.UUID) {
	if !s.Available() {
		return
	}
	if err := s.db.Where("session_id = ?", sessionID).Delete(&models.ContextChunk{}).Error; err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to delete context chunks")
	}
}

func (s *Store) Stats() Stats {
	stats := Stats{Available: s.Available()}
	if !stats.Available {
		return stats
	}
	stats.Dimension = s.embedder.EmbeddingDim()
	if err := s.db.Model(&models.ContextChunk{}).Count(&stats.TotalChunks).Error; err != nil {
		log.Error().Err(err).Msg("failed to count context chunks")
	}
	return stats
}

// cosineSimilarity returns 0 for mismatched lengths or zero-norm vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
