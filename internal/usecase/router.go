// Package usecase contains the command-routing core: the agent registry
// and the router state machine that decides which agent services an
// incoming utterance.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"agentos/internal/domain"
	"agentos/internal/infra/tracer"
)

// RouterConfig carries the routing knobs resolved from configuration.
type RouterConfig struct {
	// NaturalLanguage enables the translation path for commands that do
	// not match direct "<agent> <command>" syntax.
	NaturalLanguage bool
	// MinTranslateWords skips translation for inputs shorter than this
	// many words, sending them straight to the content scan. Zero means
	// every unmatched input is offered to the translator.
	MinTranslateWords int
}

// Router orchestrates command dispatch: direct syntax first, then
// natural-language translation, then a content-based keyword scan with
// last-agent affinity. All routing state lives on the instance.
type Router struct {
	registry   *Registry
	translator domain.Translator
	bus        domain.EventBus
	logger     *slog.Logger
	cfg        RouterConfig

	directRules   []VoiceRule
	scanRules     []VoiceRule
	lateScanRules []VoiceRule

	// lastAgent is the volatile affinity cache for conversational
	// follow-ups. Deliberately unguarded: a race merely mis-affinitizes
	// one follow-up.
	lastAgent string
}

// NewRouter creates a router. translator may be nil when no translation
// backend is available; the router then relies on direct syntax and the
// content scan alone.
func NewRouter(registry *Registry, translator domain.Translator, bus domain.EventBus, cfg RouterConfig, logger *slog.Logger) *Router {
	return &Router{
		registry:      registry,
		translator:    translator,
		bus:           bus,
		logger:        logger.With("component", "router"),
		cfg:           cfg,
		directRules:   directVoiceRules,
		scanRules:     scanVoiceRules,
		lateScanRules: lateScanVoiceRules,
	}
}

// LastAgent returns the most recently successful agent name, or "".
func (r *Router) LastAgent() string { return r.lastAgent }

var directCommandRe = regexp.MustCompile(`^(\w+)(?:\s+(.+))?$`)

// ProcessCommand routes one command and returns its result envelope.
// No failure mode escapes as a panic or error; everything degrades into
// an error-status envelope.
func (r *Router) ProcessCommand(ctx context.Context, text string, verbose bool) (env domain.Envelope) {
	ctx, span := tracer.StartSpan(ctx, "router.process_command")
	defer span.End()

	requestID := ulid.Make().String()
	logger := r.logger.With("request_id", requestID)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic while routing command", "panic", rec)
			env = domain.Error(fmt.Sprintf("Error: %v", rec)).
				WithSpoken("Sorry, there was an error processing your command.")
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Error("Empty command").
			WithSpoken("I didn't receive any command to process.")
	}

	logger.Info("routing command", "command", text)
	publishEvent(ctx, r.bus, domain.EventCommandReceived, "", map[string]string{"command": text})

	env = r.route(ctx, logger, text, verbose, requestID)

	if env.IsError() {
		publishEvent(ctx, r.bus, domain.EventCommandFailed, env.AgentID, map[string]string{"command": text, "message": env.Message})
	} else {
		tracer.SetOK(span)
		publishEvent(ctx, r.bus, domain.EventCommandRouted, env.AgentID, map[string]string{"command": text})
	}
	return env
}

func (r *Router) route(ctx context.Context, logger *slog.Logger, text string, verbose bool, requestID string) domain.Envelope {
	if env, ok := r.tryDirect(ctx, logger, text, verbose, requestID); ok {
		return env
	}

	if r.shouldTranslate(text) {
		result, err := r.translator.Translate(ctx, text, r.registry.TranslationTargets())
		if err != nil {
			// Translators swallow their own failures; an error here is
			// unexpected but still must not break routing.
			logger.Warn("translation error", "error", err)
		}
		if !result.Empty() {
			logger.Info("translated command", "agent", result.Agent, "command", result.Command)
			publishEvent(ctx, r.bus, domain.EventCommandTranslated, result.Agent,
				map[string]string{"query": text, "command": result.Command})

			translated := result.Agent + " " + result.Command
			env := r.routeWithoutTranslation(ctx, logger, translated, verbose, requestID)
			return env.WithData(map[string]any{
				"nlp_processed":  true,
				"original_query": text,
			})
		}
	}

	return r.contentScan(ctx, logger, text, verbose, requestID)
}

// routeWithoutTranslation re-enters dispatch for an already-translated
// command. Translation is attempted exactly once per request; this path
// never consults the translator again, which prevents loops.
func (r *Router) routeWithoutTranslation(ctx context.Context, logger *slog.Logger, text string, verbose bool, requestID string) domain.Envelope {
	if env, ok := r.tryDirect(ctx, logger, text, verbose, requestID); ok {
		return env
	}
	return r.contentScan(ctx, logger, text, verbose, requestID)
}

// tryDirect handles voice-correction rules and explicit
// "<agent> <command>" syntax. ok is false when nothing matched.
func (r *Router) tryDirect(ctx context.Context, logger *slog.Logger, text string, verbose bool, requestID string) (domain.Envelope, bool) {
	lower := strings.ToLower(text)

	for _, rule := range r.directRules {
		if rule.Match(text, lower) && r.registry.Has(rule.Agent) {
			logger.Info("voice rule matched", "rule", rule.Name, "agent", rule.Agent)
			r.lastAgent = rule.Agent
			return r.dispatch(ctx, logger, rule.Agent, text, verbose, requestID), true
		}
	}

	m := directCommandRe.FindStringSubmatch(text)
	if m == nil {
		return domain.Envelope{}, false
	}

	name := strings.ToLower(m[1])
	if !r.registry.Has(name) {
		return domain.Envelope{}, false
	}

	r.lastAgent = name
	return r.dispatch(ctx, logger, name, m[2], verbose, requestID), true
}

// contentScan is the deterministic fallback path: voice rules, then
// last-agent affinity, then misheard-word rules, then round-robin over
// every agent in registration order.
func (r *Router) contentScan(ctx context.Context, logger *slog.Logger, text string, verbose bool, requestID string) domain.Envelope {
	lower := strings.ToLower(text)

	for _, rule := range r.scanRules {
		if rule.Match(text, lower) && r.registry.Has(rule.Agent) {
			logger.Info("voice rule matched", "rule", rule.Name, "agent", rule.Agent)
			r.lastAgent = rule.Agent
			return r.dispatch(ctx, logger, rule.Agent, text, verbose, requestID)
		}
	}

	if last := r.lastAgent; last != "" && r.registry.Has(last) {
		env := r.dispatch(ctx, logger, last, text, verbose, requestID)
		if !env.IsError() {
			logger.Info("affinity dispatch accepted", "agent", last)
			return env
		}
	}

	for _, rule := range r.lateScanRules {
		if rule.Match(text, lower) && r.registry.Has(rule.Agent) {
			logger.Info("voice rule matched", "rule", rule.Name, "agent", rule.Agent)
			r.lastAgent = rule.Agent
			return r.dispatch(ctx, logger, rule.Agent, text, verbose, requestID)
		}
	}

	for _, name := range r.registry.Names() {
		if name == domain.AgentNaturalLanguage {
			continue
		}
		env := r.dispatch(ctx, logger, name, text, verbose, requestID)
		if !env.IsError() {
			r.lastAgent = name
			return env
		}
	}

	return domain.Error("I'm not sure how to help with that. Please try a different command.").
		WithSpoken("I'm not sure how to help with that. Please try a different command.")
}

// dispatch runs one agent's Process with panic containment and envelope
// hygiene: status defaults to success, the agent id is filled in, and
// verbose mode attaches debug metadata without changing routing.
func (r *Router) dispatch(ctx context.Context, logger *slog.Logger, name, command string, verbose bool, requestID string) (env domain.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("agent panicked", "agent", name, "panic", rec)
			env = domain.Error(fmt.Sprintf("Agent error: %v", rec)).
				WithSpoken("Sorry, there was an error processing your request.").
				WithAgent(name)
		}
	}()

	agent, ok := r.registry.Get(name)
	if !ok {
		return domain.Error(fmt.Sprintf("Agent %q is not available", name)).WithAgent(name)
	}

	env = agent.Process(ctx, command)

	if env.Status == "" {
		env.Status = domain.StatusSuccess
	}
	if env.Message == "" && env.SpokenText != "" {
		env.Message = env.SpokenText
	}
	if env.AgentID == "" {
		env.AgentID = name
	}
	if env.SpokenText == "" && !env.IsError() {
		if s, ok := agent.(domain.ResultSummarizer); ok {
			env.SpokenText = s.SummarizeResult(env)
		}
	}

	if verbose {
		env = env.WithData(map[string]any{
			"verbose": map[string]any{
				"agent":      name,
				"request_id": requestID,
				"timestamp":  time.Now().Format(time.RFC3339),
			},
		})
	}
	return env
}

// shouldTranslate applies the pre-translation short-circuit.
func (r *Router) shouldTranslate(text string) bool {
	if !r.cfg.NaturalLanguage || r.translator == nil {
		return false
	}
	if r.cfg.MinTranslateWords > 0 && len(strings.Fields(text)) < r.cfg.MinTranslateWords {
		return false
	}
	return true
}

func publishEvent(ctx context.Context, bus domain.EventBus, typ domain.EventType, agentID string, payload any) {
	if bus == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	bus.Publish(ctx, domain.Event{
		Type:      typ,
		Timestamp: time.Now(),
		AgentID:   agentID,
		Payload:   raw,
	})
}
