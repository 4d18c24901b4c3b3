package oracle

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"citecheck/internal/model"
)

// OpenAIProvider judges via OpenAI's chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	cfg    model.OracleConfig
}

// NewOpenAIProvider creates an OpenAI-backed oracle.
func NewOpenAIProvider(cfg model.OracleConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Judge asks the model for a relation verdict on one (entry, text) pair.
func (p *OpenAIProvider) Judge(ctx context.Context, req Request) (*Judgment, error) {
	mdl := p.cfg.Model
	if mdl == "" {
		mdl = openai.GPT4oMini
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	timeout := p.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: mdl,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		MaxTokens:   maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}
	return ParseJudgment(resp.Choices[0].Message.Content)
}
