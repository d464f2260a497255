package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const huggingFaceURL = "https://api-inference.huggingface.co"

// HuggingFace calls the Hugging Face text-generation inference API.
type HuggingFace struct {
	http  *resty.Client
	model string
}

func NewHuggingFace(apiKey, model string, timeout time.Duration) (*HuggingFace, error) {
	return newHuggingFace(huggingFaceURL, apiKey, model, timeout)
}

func newHuggingFace(baseURL, apiKey, model string, timeout time.Duration) (*HuggingFace, error) {
	if apiKey == "" {
		return nil, errors.New("HF_API_KEY not set")
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &HuggingFace{http: client, model: model}, nil
}

func (h *HuggingFace) Model() string { return h.model }

func (h *HuggingFace) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := h.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"inputs": prompt,
			"parameters": map[string]any{
				"max_new_tokens":   maxTokens,
				"temperature":      0.1,
				"return_full_text": false,
			},
		}).
		Post("/models/" + h.model)
	if err != nil {
		return "", fmt.Errorf("hugging face request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", errors.New("invalid Hugging Face API key")
	case http.StatusTooManyRequests:
		return "", errors.New("hugging face rate limit exceeded")
	default:
		msg := gjson.Get(resp.String(), "error").String()
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("hugging face error: %s", msg)
	}

	text := strings.TrimSpace(gjson.Get(resp.String(), "0.generated_text").String())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
