package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"agentos/internal/domain"
	"agentos/internal/infra/config"
	"agentos/internal/infra/tracer"

	"go.opentelemetry.io/otel/trace"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiProvider implements domain.LLMProvider for Google's Gemini API.
// It is the hosted translation backend; when no API key is configured the
// runtime downgrades to the local Ollama provider at startup.
type GeminiProvider struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiProvider creates a Gemini provider from config.
func NewGeminiProvider(cfg config.ProviderConfig, logger *slog.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", domain.ErrInvalidInput)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	name := cfg.Name
	if name == "" {
		name = domain.ProviderGemini
	}

	return &GeminiProvider{
		name:       name,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		httpClient: NewHTTPClient(cfg),
		logger:     logger.With("component", "llm.gemini"),
	}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return p.name }

// Gemini generateContent wire types.
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends a single-turn prompt to the Gemini generateContent endpoint.
func (p *GeminiProvider) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.gemini.generate",
		trace.WithAttributes(tracer.StringAttr("llm.model", p.modelFor(req))),
	)
	defer span.End()

	model := p.modelFor(req)

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, model, p.apiKey)

	respBody, err := doJSONRequest(ctx, p.httpClient, url, body, nil)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		err := fmt.Errorf("%w: gemini returned no candidates", domain.ErrProviderError)
		tracer.RecordError(span, err)
		return nil, err
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	result := &domain.GenerateResponse{
		Model: model,
		Text:  sb.String(),
	}

	tracer.SetOK(span)
	logGenerateCompleted(p.logger, p.name, result)
	return result, nil
}

func (p *GeminiProvider) modelFor(req domain.GenerateRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}
