package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"agentos/internal/domain"
	"agentos/internal/infra/config"
)

type flakyProvider struct {
	err   error
	calls int
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.GenerateResponse{Model: "m", Text: "ok"}, nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyProvider{err: errors.New("boom")}
	p := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{
		MaxFailures: 2,
		Timeout:     time.Minute,
	}, testLogger())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := p.Generate(ctx, domain.GenerateRequest{Prompt: "x"}); err == nil {
			t.Fatal("expected error")
		}
	}

	// Third call should fail fast without reaching the provider.
	_, err := p.Generate(ctx, domain.GenerateRequest{Prompt: "x"})
	if !errors.Is(err, domain.ErrAgentUnavailable) {
		t.Errorf("error = %v, want ErrAgentUnavailable", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyProvider{}
	p := NewCircuitBreakerProvider(inner, config.CircuitBreakerConfig{MaxFailures: 3}, testLogger())

	resp, err := p.Generate(context.Background(), domain.GenerateRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("text = %q", resp.Text)
	}
	if p.Name() != "flaky" {
		t.Errorf("name = %q", p.Name())
	}
}
