package ai

import (
	"context"
	"fmt"
	"time"
)

const (
	ProviderHuggingFace = "huggingface"
	ProviderGemini      = "gemini"
)

type ProviderOptions struct {
	Name         string
	HFAPIKey     string
	HFModel      string
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration
}

// NewProvider builds the provider selected by opts.Name.
func NewProvider(ctx context.Context, opts ProviderOptions) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch opts.Name {
	case ProviderHuggingFace:
		p, err = NewHuggingFace(opts.HFAPIKey, opts.HFModel, opts.Timeout)
	case ProviderGemini:
		p, err = NewGemini(ctx, opts.GeminiAPIKey, opts.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", opts.Name)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
