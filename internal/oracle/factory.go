package oracle

import (
	"fmt"
	"strings"

	"citecheck/internal/model"
)

// NewProvider builds the configured oracle provider. A disabled oracle
// returns (nil, nil).
func NewProvider(cfg model.OracleConfig) (Provider, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown oracle provider: %s (supported: openai, anthropic, ollama)", cfg.Provider)
	}
}
