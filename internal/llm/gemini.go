package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	config *ProviderConfig
	client *http.Client
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(cfg *ProviderConfig) *GeminiProvider {
	if cfg == nil {
		cfg = DefaultGeminiConfig()
	}
	defaults := DefaultGeminiConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &GeminiProvider{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string { return "gemini" }

// Available checks if the API key is configured.
func (p *GeminiProvider) Available() bool { return p.config.APIKey != "" }

// Chat sends a chat request to Gemini.
func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}

	start := time.Now()

	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	geminiReq := geminiGenerateRequest{
		Contents: []geminiContent{},
	}
	geminiReq.GenerationConfig.MaxOutputTokens = req.MaxTokens
	if geminiReq.GenerationConfig.MaxOutputTokens == 0 {
		geminiReq.GenerationConfig.MaxOutputTokens = p.config.MaxTokens
	}
	geminiReq.GenerationConfig.Temperature = req.Temperature
	if geminiReq.GenerationConfig.Temperature == 0 {
		geminiReq.GenerationConfig.Temperature = p.config.Temperature
	}

	if req.SystemPrompt != "" {
		geminiReq.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		}
	}

	for _, msg := range req.Messages {
		role := msg.Role
		// Gemini uses "user" and "model" instead of "assistant"
		if role == "assistant" {
			role = "model"
		}
		geminiReq.Contents = append(geminiReq.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.config.Endpoint, model)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Key goes in a header instead of the URL to prevent log exposure.
	httpReq.Header.Set("x-goog-api-key", p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		return nil, fmt.Errorf("Gemini error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var geminiResp geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	var content string
	candidate := geminiResp.Candidates[0]
	for _, part := range candidate.Content.Parts {
		content += part.Text
	}

	promptTokens := geminiResp.UsageMetadata.PromptTokenCount
	completionTokens := geminiResp.UsageMetadata.CandidatesTokenCount

	return &ChatResponse{
		Content:          content,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TokensUsed:       promptTokens + completionTokens,
		Duration:         time.Since(start),
		FinishReason:     candidate.FinishReason,
	}, nil
}

// Gemini API types
type geminiGenerateRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}
