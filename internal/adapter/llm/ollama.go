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

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaProvider implements domain.LLMProvider against a local Ollama
// server using the native /api/generate endpoint. It is the local
// translation backend and requires no API key.
type OllamaProvider struct {
	name       string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOllamaProvider creates an Ollama provider from config.
func NewOllamaProvider(cfg config.ProviderConfig, logger *slog.Logger) (*OllamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	name := cfg.Name
	if name == "" {
		name = domain.ProviderOllama
	}

	return &OllamaProvider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		httpClient: NewHTTPClient(cfg),
		logger:     logger.With("component", "llm.ollama"),
	}, nil
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string { return p.name }

// Ollama /api/generate wire types.
type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends a single-turn prompt to /api/generate with streaming off.
func (p *OllamaProvider) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.ollama.generate",
		trace.WithAttributes(tracer.StringAttr("llm.model", p.modelFor(req))),
	)
	defer span.End()

	model := p.modelFor(req)

	body, err := json.Marshal(ollamaRequest{
		Model:  model,
		Prompt: req.Prompt,
		Stream: false,
		Options: &ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := doJSONRequest(ctx, p.httpClient, p.baseURL+"/api/generate", body, nil)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	result := &domain.GenerateResponse{
		Model: resp.Model,
		Text:  resp.Response,
	}
	if result.Model == "" {
		result.Model = model
	}

	tracer.SetOK(span)
	logGenerateCompleted(p.logger, p.name, result)
	return result, nil
}

// IsHealthy reports whether the Ollama server answers /api/tags. The
// runtime uses this at startup to decide whether local translation is
// available at all.
func (p *OllamaProvider) IsHealthy(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer httpResp.Body.Close()

	return httpResp.StatusCode == http.StatusOK
}

// ListModels returns the model names known to the Ollama server.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ollama tags returned %d", domain.ErrProviderError, httpResp.StatusCode)
	}

	var resp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (p *OllamaProvider) modelFor(req domain.GenerateRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}
