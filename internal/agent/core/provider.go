package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/mohammad-safakhou/taskpilot/config"
)

// NewLLMProvider creates a language-generation provider from configuration.
func NewLLMProvider(cfg config.LLMConfig) (LLMProvider, error) {
	switch cfg.Provider {
	case "", "gemini":
		return NewGeminiProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider type: %s", cfg.Provider)
	}
}

// GeminiProvider implements LLMProvider against the Google generative
// language API. It holds no mutable state after construction and is safe to
// share across concurrent tasks.
type GeminiProvider struct {
	config config.LLMConfig
	client *http.Client
	logger *log.Logger
}

func NewGeminiProvider(cfg config.LLMConfig) *GeminiProvider {
	return &GeminiProvider{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.New(log.Writer(), "[LLM] ", log.LstdFlags),
	}
}

// Generate produces text for a prompt using the given model. An empty model
// falls back through the configured model list until one answers.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error) {
	if p.config.APIKey == "" {
		return "", fmt.Errorf("gemini API key not configured")
	}

	models := []string{model}
	if model == "" {
		models = p.config.Models
	}

	var lastErr error
	for _, m := range models {
		text, err := p.generateOnce(ctx, prompt, m, options)
		if err == nil {
			return text, nil
		}
		lastErr = err
		p.logger.Printf("model %s failed: %v", m, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (p *GeminiProvider) generateOnce(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error) {
	temperature := p.config.Temperature
	if t, ok := options["temperature"].(float64); ok {
		temperature = t
	}
	maxTokens := p.config.MaxTokens
	if mt, ok := options["max_tokens"].(int); ok {
		maxTokens = mt
	}

	genConfig := map[string]interface{}{
		"temperature":     temperature,
		"maxOutputTokens": maxTokens,
	}
	if schema, ok := options["response_schema"].(map[string]interface{}); ok {
		genConfig["responseMimeType"] = "application/json"
		genConfig["responseSchema"] = schema
	}

	body, err := json.Marshal(map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]interface{}{{"text": prompt}}},
		},
		"generationConfig": genConfig,
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	baseURL := p.config.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, model, p.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
