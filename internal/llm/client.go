package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nswprep/examgen/internal/logging"
)

// Client is the per-agent wrapper around a Provider. It traces every call
// and handles the JSON post-processing model output needs.
type Client struct {
	agent    string
	provider Provider
	limiter  *RateLimiter
}

// NewClient binds a provider to an agent name for tracing.
func NewClient(agent string, provider Provider) *Client {
	return &Client{agent: agent, provider: provider}
}

// WithRateLimiter gates every call through the given limiter. Returns the
// client for chaining.
func (c *Client) WithRateLimiter(rl *RateLimiter) *Client {
	c.limiter = rl
	return c
}

// Generate sends a single-turn prompt and returns the raw text response.
func (c *Client) Generate(ctx context.Context, model, systemPrompt, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return "", err
		}
		defer c.limiter.Release()
	}
	req := &ChatRequest{
		Model:        model,
		SystemPrompt: systemPrompt,
		Messages:     []Message{{Role: "user", Content: prompt}},
	}
	start := time.Now()
	resp, err := c.provider.Chat(ctx, req)
	if err != nil {
		logging.LLMCall(c.agent, model, prompt, "", time.Since(start), err)
		return "", err
	}
	logging.LLMCall(c.agent, model, prompt, resp.Content, resp.Duration, nil)
	return resp.Content, nil
}

// GenerateJSON sends a prompt expected to yield a JSON object and decodes
// it into out, stripping markdown fences the model tends to wrap around it.
func (c *Client) GenerateJSON(ctx context.Context, model, systemPrompt, prompt string, out interface{}) error {
	text, err := c.Generate(ctx, model, systemPrompt, prompt)
	if err != nil {
		return err
	}
	cleaned := StripFences(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("model returned invalid JSON: %w (%s)", err, logging.Truncate(cleaned, 200))
	}
	return nil
}

// StripFences removes a surrounding markdown code fence from model output.
// Handles ```json ... ``` and bare ``` ... ``` wrappers, plus leading prose
// before the first brace when a fence is absent.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSpace(s)
	}
	// No fence: cut any preamble before the first JSON bracket.
	if i := strings.IndexAny(s, "{["); i > 0 {
		s = s[i:]
	}
	return strings.TrimSpace(s)
}
