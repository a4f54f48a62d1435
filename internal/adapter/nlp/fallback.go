package nlp

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"agentos/internal/domain"
)

// FallbackTranslator is the deterministic, LLM-free translation strategy.
// It runs an ordered rule cascade against the lower-cased input. Ordering
// matters: the social and publishing branches both claim the word "post",
// so the more specific social branch is checked first.
type FallbackTranslator struct {
	logger *slog.Logger
}

// NewFallbackTranslator creates the keyword-based translator.
func NewFallbackTranslator(logger *slog.Logger) *FallbackTranslator {
	return &FallbackTranslator{
		logger: logger.With("component", "nlp.fallback"),
	}
}

// staticKeywords maps remaining simple domains after the agent-specific
// branches. Iterated in order; first match wins.
var staticKeywords = []struct {
	keyword string
	agent   string
	command string
}{
	{"weather", AgentDatetime, "weather"},
	{"time", AgentDatetime, "time"},
	{"date", AgentDatetime, "date"},
	{"file", AgentFilemanage, "list"},
	{"folder", AgentFilemanage, "list"},
	{"open", AgentFilemanage, "open"},
	{"play", AgentSpotiauto, "play"},
	{"music", AgentSpotiauto, "play"},
	{"spotify", AgentSpotiauto, "status"},
}

// Translate runs the rule cascade. An empty result means nothing matched;
// it never returns an error.
func (t *FallbackTranslator) Translate(ctx context.Context, query string, available []string) (domain.TranslationResult, error) {
	queryLower := strings.ToLower(query)

	if strings.Contains(queryLower, "twitter") && slices.Contains(available, AgentTwitterBot) {
		return t.translateSocial(query, queryLower), nil
	}

	if (containsAny(queryLower, "blog", "post") || strings.Contains(queryLower, "autoblog")) &&
		slices.Contains(available, AgentAutoblog) {
		return t.translatePublishing(query, queryLower), nil
	}

	if containsAny(queryLower, "task", "todo", "reminder") && slices.Contains(available, AgentDatetime) {
		return t.translateTasks(query, queryLower), nil
	}

	for _, rule := range staticKeywords {
		if !strings.Contains(queryLower, rule.keyword) || !slices.Contains(available, rule.agent) {
			continue
		}
		return t.expandStatic(rule.agent, rule.command, query, queryLower), nil
	}

	return domain.TranslationResult{}, nil
}

func (t *FallbackTranslator) translateSocial(query, queryLower string) domain.TranslationResult {
	result := func(command string) domain.TranslationResult {
		return domain.TranslationResult{Agent: AgentTwitterBot, Command: command}
	}

	if strings.Contains(queryLower, "tweet") {
		message := query
		if _, rest, ok := strings.Cut(queryLower, "tweet"); ok && strings.TrimSpace(rest) != "" {
			message = strings.TrimSpace(rest)
		}
		return result("tweet " + message)
	}
	if containsAny(queryLower, "post", "create", "thread", "publish") && containsAny(queryLower, "blog", "thread") {
		return result("post blog thread")
	}
	if strings.Contains(queryLower, "timeline") {
		return result("timeline")
	}
	if strings.Contains(queryLower, "stop") && strings.Contains(queryLower, "monitor") {
		return result("stop monitor")
	}
	if strings.Contains(queryLower, "monitor") && strings.Contains(queryLower, "blog") {
		return result("monitor blog")
	}
	// Status is the safe default for any other social mention.
	return result("status")
}

func (t *FallbackTranslator) translatePublishing(query, queryLower string) domain.TranslationResult {
	result := func(command string) domain.TranslationResult {
		return domain.TranslationResult{Agent: AgentAutoblog, Command: command}
	}

	if containsAny(queryLower, "generate", "create", "new", "make") {
		return result("generate")
	}
	if containsAny(queryLower, "repo", "repository") {
		if _, rest, ok := strings.Cut(queryLower, "repo"); ok {
			rest = strings.TrimPrefix(rest, "sitory")
			if name := strings.TrimSpace(rest); name != "" {
				return result("blog-repo " + name)
			}
		}
		return result("help")
	}
	if strings.Contains(queryLower, "date") {
		if date := dateTokenRe.FindString(query); date != "" {
			return result("setdate " + date)
		}
		return result("help")
	}
	if containsAny(queryLower, "status", "check") {
		return result("status")
	}
	return result("help")
}

func (t *FallbackTranslator) translateTasks(query, queryLower string) domain.TranslationResult {
	result := func(command string) domain.TranslationResult {
		return domain.TranslationResult{Agent: AgentDatetime, Command: command}
	}

	if containsAny(queryLower, "add", "create", "new", "make") {
		return result(prefixOnce(query, "add "))
	}
	if containsAny(queryLower, "list", "show", "get", "what") {
		return result("list " + query)
	}
	if strings.Contains(queryLower, "help") {
		return result("help")
	}
	return result(prefixOnce(query, "add "))
}

// expandStatic splices query context into commands that take an argument:
// a filename after "open", the whole query for music playback.
func (t *FallbackTranslator) expandStatic(agent, command, query, queryLower string) domain.TranslationResult {
	switch {
	case agent == AgentFilemanage && command == "open":
		words := strings.Fields(queryLower)
		if idx := slices.Index(words, "open"); idx >= 0 && idx+1 < len(words) {
			return domain.TranslationResult{
				Agent:   agent,
				Command: command + " " + strings.Join(words[idx+1:], " "),
			}
		}
	case agent == AgentSpotiauto && command == "play":
		return domain.TranslationResult{Agent: agent, Command: command + " " + query}
	}
	return domain.TranslationResult{Agent: agent, Command: command}
}
