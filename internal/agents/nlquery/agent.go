// Package nlquery is the natural-language agent. It is the agent-shaped
// face of the translation subsystem: the router consults it as its
// Translator, and direct "natural_language ..." commands expose runtime
// model controls (provider/model switching, health checks).
package nlquery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"agentos/internal/adapter/nlp"
	"agentos/internal/domain"
)

const helpText = `Natural Language Agent Commands:
- <any free text>: translate it into an agent command
- model info: show the active provider and model
- set provider <gemini|ollama>: switch the translation backend
- set model <name>: switch the model for the active provider
- health: check whether the translation backend is reachable
- help: show this help`

// healthChecker is implemented by providers that can be pinged cheaply.
type healthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Options configures the agent.
type Options struct {
	// Providers maps provider name to backend. May be empty; translation
	// then runs on the deterministic fallback only.
	Providers map[string]domain.LLMProvider
	// Active names the starting provider. Ignored when absent from
	// Providers.
	Active string
	// Models holds the starting model per provider name. "" means the
	// provider default.
	Models map[string]string
	// Fallback is required; it is both the strategy of last resort and
	// the safety net inside every LLM translator.
	Fallback *nlp.FallbackTranslator
	// Prefs persists provider/model choices across restarts. Optional.
	Prefs domain.PreferencesStore
	// Targets supplies the translatable agent names for direct queries.
	// Optional; late-bound because the registry is built after its agents.
	Targets func() []string
	// Bus receives provider.switched events. Optional.
	Bus    domain.EventBus
	Logger *slog.Logger
}

// Agent implements both the agent contract and domain.Translator.
type Agent struct {
	mu        sync.RWMutex
	providers map[string]domain.LLMProvider
	active    string
	models    map[string]string
	strategy  domain.Translator
	fallback  *nlp.FallbackTranslator
	prefs     domain.PreferencesStore
	targets   func() []string
	bus       domain.EventBus
	logger    *slog.Logger
}

// New creates the agent, restoring any persisted provider/model choice
// that still names an available provider.
func New(opts Options) *Agent {
	a := &Agent{
		providers: opts.Providers,
		active:    opts.Active,
		models:    map[string]string{},
		fallback:  opts.Fallback,
		prefs:     opts.Prefs,
		targets:   opts.Targets,
		bus:       opts.Bus,
		logger:    opts.Logger.With("agent", domain.AgentNaturalLanguage),
	}
	for name, model := range opts.Models {
		a.models[name] = model
	}

	if a.prefs != nil {
		if saved, err := a.prefs.Load(); err == nil && saved.Valid() {
			if _, ok := a.providers[saved.Provider]; ok {
				a.active = saved.Provider
			}
			if saved.GeminiModel != "" {
				a.models[domain.ProviderGemini] = saved.GeminiModel
			}
			if saved.OllamaModel != "" {
				a.models[domain.ProviderOllama] = saved.OllamaModel
			}
		}
	}

	a.rebuildStrategy()
	return a
}

// rebuildStrategy recomputes the active translation strategy. Caller
// must not hold the lock.
func (a *Agent) rebuildStrategy() {
	a.mu.Lock()
	defer a.mu.Unlock()

	provider, ok := a.providers[a.active]
	if !ok {
		a.strategy = a.fallback
		a.logger.Warn("no active llm provider, translation uses fallback only", "wanted", a.active)
		return
	}
	a.strategy = nlp.NewLLMTranslator(provider, a.fallback, a.logger).
		WithModel(a.models[a.active])
}

// Translate delegates to the current strategy. The router uses the agent
// through this method so provider switches take effect immediately.
func (a *Agent) Translate(ctx context.Context, query string, available []string) (domain.TranslationResult, error) {
	a.mu.RLock()
	strategy := a.strategy
	a.mu.RUnlock()
	return strategy.Translate(ctx, query, available)
}

func (a *Agent) Capabilities() []string {
	return []string{
		"Translate natural language into agent commands",
		"Switch translation providers and models at runtime",
		"Report translation backend health",
	}
}

// ModelInfo returns the active provider, its model, and the set of
// configured providers.
func (a *Agent) ModelInfo() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.providers))
	for name := range a.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	model := a.models[a.active]
	if model == "" {
		model = "(provider default)"
	}
	return map[string]any{
		"provider":  a.active,
		"model":     model,
		"available": names,
	}
}

// SetProvider switches the translation backend and persists the choice.
func (a *Agent) SetProvider(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != domain.ProviderGemini && name != domain.ProviderOllama {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, name)
	}

	a.mu.Lock()
	if _, ok := a.providers[name]; !ok {
		a.mu.Unlock()
		return fmt.Errorf("%w: provider %q is not configured", domain.ErrAgentUnavailable, name)
	}
	a.active = name
	a.mu.Unlock()

	a.rebuildStrategy()
	a.savePrefs()
	a.publishSwitch(name)
	a.logger.Info("switched translation provider", "provider", name)
	return nil
}

// publishSwitch announces a provider change on the event bus.
func (a *Agent) publishSwitch(provider string) {
	if a.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"provider": provider})
	a.bus.Publish(context.Background(), domain.Event{
		Type:      domain.EventProviderSwitched,
		Timestamp: time.Now(),
		AgentID:   domain.AgentNaturalLanguage,
		Payload:   payload,
	})
}

// SetModel switches the model for the active provider and persists it.
func (a *Agent) SetModel(model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("%w: model name must not be empty", domain.ErrInvalidInput)
	}

	a.mu.Lock()
	a.models[a.active] = model
	active := a.active
	a.mu.Unlock()

	a.rebuildStrategy()
	a.savePrefs()
	a.logger.Info("switched translation model", "provider", active, "model", model)
	return nil
}

func (a *Agent) savePrefs() {
	if a.prefs == nil {
		return
	}
	a.mu.RLock()
	record := domain.ModelPreferences{
		Provider:    a.active,
		GeminiModel: a.models[domain.ProviderGemini],
		OllamaModel: a.models[domain.ProviderOllama],
	}
	a.mu.RUnlock()

	if err := a.prefs.Save(record); err != nil {
		a.logger.Warn("failed to persist model preferences", "error", err)
	}
}

// HealthCheck reports whether the active translation backend is usable.
// The fallback translator is always healthy.
func (a *Agent) HealthCheck(ctx context.Context) (healthy bool, detail string) {
	a.mu.RLock()
	provider, ok := a.providers[a.active]
	a.mu.RUnlock()

	if !ok {
		return true, "fallback translation only (no LLM provider configured)"
	}
	if hc, pingable := provider.(healthChecker); pingable {
		if hc.IsHealthy(ctx) {
			return true, fmt.Sprintf("%s reachable", provider.Name())
		}
		return false, fmt.Sprintf("%s unreachable; fallback translation remains available", provider.Name())
	}
	// Hosted providers are constructed only when credentials exist.
	return true, fmt.Sprintf("%s configured", provider.Name())
}

// Process handles direct natural_language commands. Anything that is not
// a model-control command is treated as a query to translate.
func (a *Agent) Process(ctx context.Context, command string) domain.Envelope {
	cmd := strings.TrimSpace(command)
	lower := strings.ToLower(cmd)

	switch {
	case lower == "" || lower == "help":
		return domain.Success(helpText).
			WithSpoken("I turn plain language into commands for the other agents.")
	case lower == "model info" || lower == "get model info":
		return a.handleModelInfo()
	case strings.HasPrefix(lower, "set provider "):
		return a.handleSetProvider(cmd[len("set provider "):])
	case strings.HasPrefix(lower, "set model "):
		return a.handleSetModel(cmd[len("set model "):])
	case lower == "health" || lower == "health check":
		return a.handleHealth(ctx)
	default:
		return a.handleQuery(ctx, cmd)
	}
}

func (a *Agent) handleModelInfo() domain.Envelope {
	info := a.ModelInfo()
	msg := fmt.Sprintf("Translation provider: %s, model: %s", info["provider"], info["model"])
	return domain.Success(msg).
		WithSpoken(msg).
		WithData(info)
}

func (a *Agent) handleSetProvider(name string) domain.Envelope {
	if err := a.SetProvider(name); err != nil {
		return domain.Error(fmt.Sprintf("Could not switch provider: %v", err)).
			WithSpoken("I couldn't switch to that provider.")
	}
	msg := fmt.Sprintf("Translation provider switched to %s.", strings.TrimSpace(name))
	return domain.Success(msg).WithSpoken(msg)
}

func (a *Agent) handleSetModel(model string) domain.Envelope {
	if err := a.SetModel(model); err != nil {
		return domain.Error(fmt.Sprintf("Could not switch model: %v", err)).
			WithSpoken("I couldn't switch to that model.")
	}
	msg := fmt.Sprintf("Translation model switched to %s.", strings.TrimSpace(model))
	return domain.Success(msg).WithSpoken(msg)
}

func (a *Agent) handleHealth(ctx context.Context) domain.Envelope {
	healthy, detail := a.HealthCheck(ctx)
	if !healthy {
		return domain.Error("Translation backend unhealthy: " + detail).
			WithSpoken("The translation backend looks unreachable.")
	}
	return domain.Success("Translation backend healthy: " + detail).
		WithSpoken("Translation is healthy.")
}

func (a *Agent) handleQuery(ctx context.Context, query string) domain.Envelope {
	var available []string
	if a.targets != nil {
		available = a.targets()
	}
	if len(available) == 0 {
		return domain.Error("No agents are available to handle translated commands.").
			WithSpoken("I have no agents to send that to right now.")
	}

	result, err := a.Translate(ctx, query, available)
	if err != nil || result.Empty() {
		return domain.Error("I couldn't turn that into a command.").
			WithSpoken("Sorry, I couldn't figure out what to do with that.")
	}

	msg := fmt.Sprintf("Translated to: %s %s", result.Agent, result.Command)
	return domain.Success(msg).
		WithSpoken(msg).
		WithData(map[string]any{"agent": result.Agent, "command": result.Command})
}
