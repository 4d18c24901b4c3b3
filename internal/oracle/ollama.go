package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"citecheck/internal/model"
)

// OllamaProvider judges via a local Ollama server's generate API.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	cfg        model.OracleConfig
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaProvider creates an Ollama-backed oracle. No API key needed.
func NewOllamaProvider(cfg model.OracleConfig) (*OllamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second // local models are slower
	}
	return &OllamaProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

// Judge asks the model for a relation verdict on one (entry, text) pair.
func (p *OllamaProvider) Judge(ctx context.Context, req Request) (*Judgment, error) {
	mdl := p.cfg.Model
	if mdl == "" {
		mdl = "llama3.2"
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	body, err := json.Marshal(ollamaRequest{
		Model:   mdl,
		Prompt:  BuildPrompt(req),
		System:  systemPrompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: 0, NumPredict: maxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Ollama request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read Ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama returned HTTP %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var or ollamaResponse
	if err := json.Unmarshal(data, &or); err != nil {
		return nil, fmt.Errorf("parse Ollama response: %w", err)
	}
	if or.Error != "" {
		return nil, fmt.Errorf("Ollama error: %s", or.Error)
	}
	return ParseJudgment(or.Response)
}
