package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	geminiDefaultChatModel = "gemini-1.5-pro"
	geminiEmbeddingModel   = "text-embedding-004"
	geminiEmbeddingDim     = 768
)

// GeminiProvider backs the capability surface with Google's generative AI
// SDK. Gemini has no moderation endpoint, so Moderate uses the shared
// keyword heuristic, and token usage falls back to an estimate when the
// response carries no usage metadata.
type GeminiProvider struct {
	client    *genai.Client
	chatModel string
}

func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini backend requires an API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}
	model := cfg.ChatModel
	if model == "" {
		model = geminiDefaultChatModel
	}
	return &GeminiProvider{client: client, chatModel: model}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) EmbeddingDim() int {
	return geminiEmbeddingDim
}

func (p *GeminiProvider) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	model := p.client.GenerativeModel(p.chatModel)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	model.SetTemperature(float32(req.Temperature))

	system, history := geminiChatTurns(req.Messages)
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("generation request carries no user messages")
	}

	last := history[len(history)-1]
	chat := model.StartChat()
	chat.History = history[:len(history)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	if tokens == 0 {
		tokens = estimateTokens(text.String())
	}

	return &GenerationResult{
		Text:       text.String(),
		TokensUsed: tokens,
		Model:      p.chatModel,
	}, nil
}

// geminiChatTurns maps the role-tagged messages onto Gemini's shape: system
// turns become the system instruction, the rest become user/model chat
// turns. Gemini rejects histories that open with a model turn, so any
// leading assistant turns left over from history truncation are dropped.
func geminiChatTurns(messages []Message) ([]string, []*genai.Content) {
	var system []string
	var history []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	for len(history) > 0 && history[0].Role == "model" {
		history = history[1:]
	}
	return system, history
}

func (p *GeminiProvider) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	return moderateByKeywords(text), nil
}

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	em := p.client.EmbeddingModel(geminiEmbeddingModel)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return zeroVector(geminiEmbeddingDim), err
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return zeroVector(geminiEmbeddingDim), fmt.Errorf("gemini returned an empty embedding")
	}
	return resp.Embedding.Values, nil
}
