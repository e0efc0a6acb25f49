package provider

import (
	"context"
	"fmt"
	"strings"
)

// Roles used in generation request messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn in provider-neutral form.
type Message struct {
	Role    string
	Content string
}

type GenerationRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type GenerationResult struct {
	Text       string
	TokensUsed int
	Model      string
}

type ModerationResult struct {
	Flagged        bool
	CategoryScores map[string]float64
}

// Provider is the uniform capability surface over a generative backend.
// The backend is chosen once at startup and is immutable for the process
// lifetime.
type Provider interface {
	Name() string
	EmbeddingDim() int
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
	Moderate(ctx context.Context, text string) (*ModerationResult, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config selects and parameterizes the backend.
type Config struct {
	Backend   string
	APIKey    string
	ChatModel string
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Backend {
	case "openai", "":
		return NewOpenAIProvider(cfg)
	case "gemini":
		return NewGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown AI backend: %s", cfg.Backend)
	}
}

// moderationKeywords is the conservative fallback for backends without a
// native moderation endpoint. Matches are substring-based on lowercased
// input.
var moderationKeywords = []string{
	"kill you",
	"kill yourself",
	"kill myself",
	"want to die",
	"end my life",
	"hurt myself",
	"hurt you",
	"suicide",
	"i will hurt",
	"beat you",
	"worthless piece",
}

func moderateByKeywords(text string) *ModerationResult {
	lower := strings.ToLower(text)
	result := &ModerationResult{CategoryScores: make(map[string]float64)}
	for _, keyword := range moderationKeywords {
		if strings.Contains(lower, keyword) {
			result.Flagged = true
			result.CategoryScores[keyword] = 1.0
		}
	}
	return result
}

// estimateTokens approximates usage for backends that do not report it,
// using the common four-characters-per-token rule of thumb.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}

func zeroVector(dim int) []float32 {
	return make([]float32, dim)
}
