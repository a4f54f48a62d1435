package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"agentos/internal/domain"
	"agentos/internal/infra/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if req.Model != "llama3.2:1b" {
			t.Errorf("model = %q, want llama3.2:1b", req.Model)
		}
		json.NewEncoder(w).Encode(ollamaResponse{
			Model:    req.Model,
			Response: `{"agent": "datetime", "command": "time"}`,
			Done:     true,
		})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(config.ProviderConfig{
		BaseURL: srv.URL,
		Model:   "llama3.2:1b",
	}, testLogger())
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}

	resp, err := p.Generate(context.Background(), domain.GenerateRequest{
		Prompt:      "what time is it",
		Temperature: 0.1,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != `{"agent": "datetime", "command": "time"}` {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.Model != "llama3.2:1b" {
		t.Errorf("model = %q", resp.Model)
	}
}

func TestOllamaGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(config.ProviderConfig{BaseURL: srv.URL, Model: "m"}, testLogger())
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}

	_, err = p.Generate(context.Background(), domain.GenerateRequest{Prompt: "x"})
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("error = %v, want ErrProviderError", err)
	}
}

func TestOllamaIsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"models":[{"name":"llama3.2:1b"}]}`))
	}))
	defer srv.Close()

	p, _ := NewOllamaProvider(config.ProviderConfig{BaseURL: srv.URL}, testLogger())
	if !p.IsHealthy(context.Background()) {
		t.Error("expected healthy")
	}

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 || models[0] != "llama3.2:1b" {
		t.Errorf("models = %v", models)
	}

	srv.Close()
	if p.IsHealthy(context.Background()) {
		t.Error("expected unhealthy after server close")
	}
}
