package domain

import "context"

// TranslationResult is the outcome of turning free text into an agent
// command. Both fields empty signals "could not translate". Transient
// per-request; never persisted.
type TranslationResult struct {
	Agent   string `json:"agent"`
	Command string `json:"command"`
}

// Empty reports whether the translation produced nothing usable.
func (r TranslationResult) Empty() bool { return r.Agent == "" || r.Command == "" }

// Translator turns free-form text into a (agent, command) pair given the
// set of currently available agent names. Implementations must swallow
// transport failures and malformed model output, returning an empty result
// instead of an error wherever a fallback could still succeed.
type Translator interface {
	Translate(ctx context.Context, query string, available []string) (TranslationResult, error)
}

// ModelPreferences is the persisted record of translation-model choices.
// A cache, not a source of truth: config defaults win when the record is
// absent or corrupt.
type ModelPreferences struct {
	Provider    string `json:"provider"`
	GeminiModel string `json:"gemini_model"`
	OllamaModel string `json:"ollama_model"`
}

// Valid reports whether the record names a known provider.
func (p ModelPreferences) Valid() bool {
	return p.Provider == ProviderGemini || p.Provider == ProviderOllama
}

// Provider identifiers for the translation LLM backends.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// PreferencesStore persists model preferences. Implementations must
// serialize writes.
type PreferencesStore interface {
	Load() (ModelPreferences, error)
	Save(prefs ModelPreferences) error
}
