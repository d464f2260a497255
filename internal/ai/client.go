// Package ai wraps the hosted language model used to score proposals.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Provider sends a single prompt to a hosted model and returns its reply.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	Model() string
}

type Analysis struct {
	Score           int      `json:"score"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

type Health struct {
	Healthy bool   `json:"healthy"`
	Model   string `json:"model"`
	Message string `json:"message"`
}

const (
	analysisMaxTokens = 1000
	healthMaxTokens   = 10
	healthPrompt      = "Say 'OK' if you're working."
)

var ErrEmptyReply = errors.New("AI returned empty response")

type Client struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
}

func NewClient(p Provider, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{provider: p, timeout: timeout, logger: logger}
}

// Analyze asks the model to score the proposal text. Failures are returned
// as-is and never retried.
func (c *Client) Analyze(ctx context.Context, text string) (*Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("nothing to analyze")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reply, err := c.provider.Generate(ctx, analysisPrompt(text), analysisMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("analyze with %s: %w", c.provider.Model(), err)
	}
	c.logger.Debug("ai reply received", zap.String("model", c.provider.Model()), zap.Int("length", len(reply)))
	return parseAnalysis(reply)
}

// HealthCheck reports whether the model answers a trivial prompt with "OK".
func (c *Client) HealthCheck(ctx context.Context) Health {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	h := Health{Model: c.provider.Model()}
	reply, err := c.provider.Generate(ctx, healthPrompt, healthMaxTokens)
	if err != nil {
		c.logger.Warn("ai health check failed", zap.String("model", h.Model), zap.Error(err))
		h.Message = "AI service error: " + err.Error()
		return h
	}
	h.Healthy = strings.Contains(reply, "OK")
	if h.Healthy {
		h.Message = "AI service is working"
	} else {
		h.Message = "Unexpected response"
	}
	return h
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func analysisPrompt(text string) string {
	return fmt.Sprintf(`You are evaluating a vendor proposal for a procurement request.
Respond with JSON only, in this exact shape:
{
  "score": <number 0-100>,
  "summary": "<two sentence summary>",
  "strengths": ["<strength>"],
  "weaknesses": ["<weakness>"],
  "recommendations": ["<recommendation>"]
}

Proposal:
%s
`, text)
}

// parseAnalysis reads the first JSON object in reply.
func parseAnalysis(reply string) (*Analysis, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in AI reply")
	}
	body := reply[start : end+1]
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("malformed JSON in AI reply")
	}

	res := gjson.Parse(body)
	score := int(res.Get("score").Int())
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return &Analysis{
		Score:           score,
		Summary:         res.Get("summary").String(),
		Strengths:       stringList(res.Get("strengths")),
		Weaknesses:      stringList(res.Get("weaknesses")),
		Recommendations: stringList(res.Get("recommendations")),
	}, nil
}

func stringList(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
