package nlquery

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"agentos/internal/adapter/nlp"
	"agentos/internal/domain"
)

type stubProvider struct {
	name    string
	text    string
	err     error
	healthy bool
	calls   int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(context.Context, domain.GenerateRequest) (*domain.GenerateResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.GenerateResponse{Model: "stub", Text: s.text}, nil
}

func (s *stubProvider) IsHealthy(context.Context) bool { return s.healthy }

// stubBus records published events; subscriptions are never exercised here.
type stubBus struct {
	events []domain.Event
}

func (b *stubBus) Publish(_ context.Context, event domain.Event) { b.events = append(b.events, event) }
func (b *stubBus) Subscribe(domain.EventType, domain.EventHandler) func() {
	return func() {}
}
func (b *stubBus) SubscribeAll(domain.EventHandler) func() { return func() {} }
func (b *stubBus) Close()                                  {}

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newTestAgent(t *testing.T, opts Options) *Agent {
	t.Helper()
	if opts.Fallback == nil {
		opts.Fallback = nlp.NewFallbackTranslator(testLogger())
	}
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	if opts.Targets == nil {
		opts.Targets = func() []string {
			return []string{domain.AgentDatetime, domain.AgentTwitterBot}
		}
	}
	return New(opts)
}

func TestQueryTranslation(t *testing.T) {
	p := &stubProvider{
		name:    domain.ProviderOllama,
		text:    `{"agent": "twitterbot", "command": "status"}`,
		healthy: true,
	}
	a := newTestAgent(t, Options{
		Providers: map[string]domain.LLMProvider{domain.ProviderOllama: p},
		Active:    domain.ProviderOllama,
	})

	env := a.Process(context.Background(), "how is my twitter bot doing")
	if env.IsError() {
		t.Fatalf("query: %s", env.Message)
	}
	if env.Data["agent"] != domain.AgentTwitterBot || env.Data["command"] != "status" {
		t.Fatalf("translation data = %v", env.Data)
	}
}

func TestQueryFallsBackWithoutProvider(t *testing.T) {
	a := newTestAgent(t, Options{})

	env := a.Process(context.Background(), "add a task to buy milk")
	if env.IsError() {
		t.Fatalf("fallback query: %s", env.Message)
	}
	if env.Data["agent"] != domain.AgentDatetime {
		t.Fatalf("agent = %v, want datetime", env.Data["agent"])
	}
}

func TestModelInfo(t *testing.T) {
	p := &stubProvider{name: domain.ProviderGemini}
	a := newTestAgent(t, Options{
		Providers: map[string]domain.LLMProvider{domain.ProviderGemini: p},
		Active:    domain.ProviderGemini,
		Models:    map[string]string{domain.ProviderGemini: "gemini-2.0-flash-lite"},
	})

	env := a.Process(context.Background(), "model info")
	if env.IsError() {
		t.Fatalf("model info: %s", env.Message)
	}
	if env.Data["provider"] != domain.ProviderGemini {
		t.Fatalf("provider = %v", env.Data["provider"])
	}
	if env.Data["model"] != "gemini-2.0-flash-lite" {
		t.Fatalf("model = %v", env.Data["model"])
	}
}

func TestSetProviderSwitchesStrategy(t *testing.T) {
	gemini := &stubProvider{name: domain.ProviderGemini, text: `{"agent": "datetime", "command": "time"}`}
	ollama := &stubProvider{name: domain.ProviderOllama, text: `{"agent": "datetime", "command": "time"}`}
	prefs := nlp.NewMemoryPreferencesStore()

	a := newTestAgent(t, Options{
		Providers: map[string]domain.LLMProvider{
			domain.ProviderGemini: gemini,
			domain.ProviderOllama: ollama,
		},
		Active: domain.ProviderGemini,
		Prefs:  prefs,
	})

	if err := a.SetProvider("ollama"); err != nil {
		t.Fatalf("SetProvider: %v", err)
	}

	if _, err := a.Translate(context.Background(), "what time is it", []string{domain.AgentDatetime}); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if ollama.calls != 1 || gemini.calls != 0 {
		t.Fatalf("calls: ollama=%d gemini=%d", ollama.calls, gemini.calls)
	}

	saved, err := prefs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.Provider != domain.ProviderOllama {
		t.Fatalf("persisted provider = %q", saved.Provider)
	}
}

func TestSetProviderPublishesSwitchEvent(t *testing.T) {
	bus := &stubBus{}
	a := newTestAgent(t, Options{
		Providers: map[string]domain.LLMProvider{
			domain.ProviderOllama: &stubProvider{name: domain.ProviderOllama},
		},
		Active: domain.ProviderOllama,
		Bus:    bus,
	})

	if err := a.SetProvider("ollama"); err != nil {
		t.Fatalf("SetProvider: %v", err)
	}
	if len(bus.events) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.events))
	}
	event := bus.events[0]
	if event.Type != domain.EventProviderSwitched {
		t.Errorf("type = %q, want %q", event.Type, domain.EventProviderSwitched)
	}
	if !strings.Contains(string(event.Payload), domain.ProviderOllama) {
		t.Errorf("payload = %s", event.Payload)
	}
}

func TestSetProviderRejectsUnknown(t *testing.T) {
	a := newTestAgent(t, Options{})
	if err := a.SetProvider("gpt4"); err == nil {
		t.Fatal("expected error for unknown provider name")
	}
	if err := a.SetProvider("gemini"); err == nil {
		t.Fatal("expected error for unconfigured provider")
	}
}

func TestSetModelPersists(t *testing.T) {
	p := &stubProvider{name: domain.ProviderOllama}
	prefs := nlp.NewMemoryPreferencesStore()
	a := newTestAgent(t, Options{
		Providers: map[string]domain.LLMProvider{domain.ProviderOllama: p},
		Active:    domain.ProviderOllama,
		Prefs:     prefs,
	})

	if err := a.SetModel("llama3.2:3b"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	saved, _ := prefs.Load()
	if saved.OllamaModel != "llama3.2:3b" {
		t.Fatalf("persisted model = %q", saved.OllamaModel)
	}
	if err := a.SetModel("  "); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestPreferencesRestoredAtStartup(t *testing.T) {
	prefs := nlp.NewMemoryPreferencesStore()
	if err := prefs.Save(domain.ModelPreferences{
		Provider:    domain.ProviderOllama,
		OllamaModel: "llama3.2:3b",
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	p := &stubProvider{name: domain.ProviderOllama}
	a := newTestAgent(t, Options{
		Providers: map[string]domain.LLMProvider{domain.ProviderOllama: p},
		Active:    domain.ProviderGemini, // saved choice should win
		Prefs:     prefs,
	})

	info := a.ModelInfo()
	if info["provider"] != domain.ProviderOllama {
		t.Fatalf("provider = %v, want restored ollama", info["provider"])
	}
	if info["model"] != "llama3.2:3b" {
		t.Fatalf("model = %v", info["model"])
	}
}

func TestHealthCheck(t *testing.T) {
	p := &stubProvider{name: domain.ProviderOllama, healthy: true}
	a := newTestAgent(t, Options{
		Providers: map[string]domain.LLMProvider{domain.ProviderOllama: p},
		Active:    domain.ProviderOllama,
	})

	env := a.Process(context.Background(), "health")
	if env.IsError() {
		t.Fatalf("health: %s", env.Message)
	}

	p.healthy = false
	if env := a.Process(context.Background(), "health check"); !env.IsError() {
		t.Fatal("expected unhealthy report")
	}

	// fallback-only agents are always healthy
	bare := newTestAgent(t, Options{})
	if env := bare.Process(context.Background(), "health"); env.IsError() {
		t.Fatalf("fallback health: %s", env.Message)
	}
}

func TestHelp(t *testing.T) {
	a := newTestAgent(t, Options{})
	if env := a.Process(context.Background(), "help"); env.IsError() {
		t.Fatalf("help: %s", env.Message)
	}
}
