package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	openAIDefaultChatModel = "gpt-4-turbo-preview"
	openAIEmbeddingDim     = 1536
)

// OpenAIProvider backs the capability surface with the official OpenAI SDK:
// chat completions, the moderations endpoint and text-embedding-3-small
// embeddings.
type OpenAIProvider struct {
	client    *openai.Client
	chatModel string
}

func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai backend requires an API key")
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	model := cfg.ChatModel
	if model == "" {
		model = openAIDefaultChatModel
	}
	return &OpenAIProvider{client: &client, chatModel: model}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) EmbeddingDim() int {
	return openAIEmbeddingDim
}

func (p *OpenAIProvider) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.chatModel),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &GenerationResult{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: int(resp.Usage.TotalTokens),
		Model:      p.chatModel,
	}, nil
}

func (p *OpenAIProvider) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	resp, err := p.client.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return &ModerationResult{}, nil
	}

	result := resp.Results[0]
	return &ModerationResult{
		Flagged: result.Flagged,
		CategoryScores: map[string]float64{
			"harassment": result.CategoryScores.Harassment,
			"hate":       result.CategoryScores.Hate,
			"self_harm":  result.CategoryScores.SelfHarm,
			"sexual":     result.CategoryScores.Sexual,
			"violence":   result.CategoryScores.Violence,
		},
	}, nil
}

// Embed returns a zero vector alongside the error on failure so similarity
// search downstream degrades to near-zero scores instead of crashing.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModelTextEmbedding3Small,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return zeroVector(openAIEmbeddingDim), err
	}
	if len(resp.Data) == 0 {
		return zeroVector(openAIEmbeddingDim), fmt.Errorf("openai returned no embedding data")
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
