package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"agentos/internal/domain"
	"agentos/internal/infra/tracer"
)

// Sampling parameters for translation calls. A low temperature and small
// token budget keep responses short and deterministic.
const (
	translateTemperature = 0.1
	translateMaxTokens   = 256
)

// LLMTranslator is the model-backed translation strategy. It works over
// any domain.LLMProvider (Gemini hosted, Ollama local); the provider is
// chosen once at startup. Every failure mode, from transport errors to
// malformed JSON to disallowed agent names, degrades into the
// deterministic fallback so a broken model never breaks routing.
type LLMTranslator struct {
	provider domain.LLMProvider
	fallback *FallbackTranslator
	logger   *slog.Logger
	// model overrides the provider's default when non-empty. Set at
	// construction; translators are rebuilt, not mutated, on model change.
	model string
}

// NewLLMTranslator creates a translator over provider with the given
// deterministic fallback.
func NewLLMTranslator(provider domain.LLMProvider, fallback *FallbackTranslator, logger *slog.Logger) *LLMTranslator {
	return &LLMTranslator{
		provider: provider,
		fallback: fallback,
		logger:   logger.With("component", "nlp.translator", "provider", provider.Name()),
	}
}

// WithModel returns the translator pinned to a specific model instead of
// the provider default.
func (t *LLMTranslator) WithModel(model string) *LLMTranslator {
	t.model = model
	return t
}

// Provider returns the underlying LLM provider.
func (t *LLMTranslator) Provider() domain.LLMProvider { return t.provider }

// Model returns the pinned model, or "" when the provider default is used.
func (t *LLMTranslator) Model() string { return t.model }

// Translate asks the model for an {agent, command} pair and validates the
// answer against the available agent set. A usable result is normalized
// before being returned; anything else defers to the fallback strategy.
func (t *LLMTranslator) Translate(ctx context.Context, query string, available []string) (domain.TranslationResult, error) {
	ctx, span := tracer.StartSpan(ctx, "nlp.translate")
	defer span.End()

	resp, err := t.provider.Generate(ctx, domain.GenerateRequest{
		Model:       t.model,
		Prompt:      buildPrompt(query, available),
		Temperature: translateTemperature,
		MaxTokens:   translateMaxTokens,
	})
	if err != nil {
		t.logger.Warn("llm translation failed, using fallback", "error", err)
		tracer.RecordError(span, fmt.Errorf("%w: %v", domain.ErrTranslationFailed, err))
		return t.fallback.Translate(ctx, query, available)
	}

	result, ok := t.parse(resp.Text, query, available)
	if !ok {
		return t.fallback.Translate(ctx, query, available)
	}

	tracer.SetOK(span)
	return result, nil
}

// parse extracts and validates the model's JSON answer. Returns ok=false
// when the response is unusable in any way; a malformed translation is
// never propagated.
func (t *LLMTranslator) parse(text, query string, available []string) (domain.TranslationResult, bool) {
	raw, ok := extractJSON(text)
	if !ok {
		t.logger.Warn("no JSON object in llm response")
		return domain.TranslationResult{}, false
	}

	var parsed struct {
		Agent   *string `json:"agent"`
		Command *string `json:"command"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.logger.Warn("failed to parse llm response JSON", "error", err)
		return domain.TranslationResult{}, false
	}

	if parsed.Agent == nil || parsed.Command == nil ||
		*parsed.Agent == "" || *parsed.Command == "" ||
		*parsed.Agent == "null" || *parsed.Command == "null" {
		return domain.TranslationResult{}, false
	}

	agent := CanonicalAgent(*parsed.Agent)
	if !slices.Contains(available, agent) {
		t.logger.Warn("llm returned unknown agent", "agent", *parsed.Agent)
		return domain.TranslationResult{}, false
	}

	return domain.TranslationResult{
		Agent:   agent,
		Command: Normalize(agent, *parsed.Command, query),
	}, true
}

// buildPrompt produces the fixed-shape translation prompt: the available
// agent list, a strict two-field JSON instruction, and the standing rule
// that task queries always go to the scheduling agent.
func buildPrompt(query string, available []string) string {
	var sb strings.Builder
	sb.WriteString("You are a command translator for AgentOS.\n")
	sb.WriteString("Available agents: ")
	sb.WriteString(strings.Join(available, ", "))
	sb.WriteString("\n\n")
	sb.WriteString("Translate the following natural language query to a specific agent command.\n")
	sb.WriteString("Return only a JSON response with the following structure:\n")
	sb.WriteString("{\n  \"agent\": \"<agent_name>\",\n  \"command\": \"<command>\"\n}\n\n")
	sb.WriteString("If the query can't be mapped to any agent, respond with:\n")
	sb.WriteString("{\n  \"agent\": null,\n  \"command\": null\n}\n\n")
	sb.WriteString("For task-related queries, such as adding tasks or reminders, always use the \"datetime\" agent.\n\n")
	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\n")
	return sb.String()
}

// extractJSON locates the first '{' through last '}' substring. Models
// sometimes wrap the JSON object in prose or code fences.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
