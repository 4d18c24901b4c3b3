package oracle

import (
	"context"
	"fmt"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"citecheck/internal/model"
)

// AnthropicProvider judges via Anthropic's messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	cfg    model.OracleConfig
}

// NewAnthropicProvider creates an Anthropic-backed oracle.
func NewAnthropicProvider(cfg model.OracleConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		cfg:    cfg,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Judge asks the model for a relation verdict on one (entry, text) pair.
func (p *AnthropicProvider) Judge(ctx context.Context, req Request) (*Judgment, error) {
	mdl := p.cfg.Model
	if mdl == "" {
		mdl = string(anthropic.ModelClaude3Dot5HaikuLatest)
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 500
	}
	timeout := p.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(mdl),
		System:    systemPrompt,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(BuildPrompt(req)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == nil {
		return nil, fmt.Errorf("no response content from Anthropic")
	}
	return ParseJudgment(*resp.Content[0].Text)
}
