// Package nlp implements the natural-language translation strategies:
// an LLM-backed translator over a domain.LLMProvider and a deterministic
// keyword fallback, plus the per-agent command normalizer both share.
package nlp

import (
	"regexp"
	"strings"

	"agentos/internal/domain"
)

// Canonical agent names the normalizer knows about.
const (
	AgentDatetime   = domain.AgentDatetime
	AgentTwitterBot = domain.AgentTwitterBot
	AgentAutoblog   = domain.AgentAutoblog
	AgentFilemanage = domain.AgentFilemanage
	AgentSpotiauto  = domain.AgentSpotiauto
	AgentNatural    = domain.AgentNaturalLanguage
)

// agentAliases remaps synonym agent names an LLM may emit to the single
// canonical name. Applied before normalization; the normalizer itself
// never changes the agent.
var agentAliases = map[string]string{
	"todoist":     AgentDatetime,
	"tasks":       AgentDatetime,
	"twitter_bot": AgentTwitterBot,
	"twitter":     AgentTwitterBot,
	"blog":        AgentAutoblog,
	"spotify":     AgentSpotiauto,
}

// CanonicalAgent resolves an agent name or alias to its canonical form.
func CanonicalAgent(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := agentAliases[name]; ok {
		return canonical
	}
	return name
}

var dateTokenRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Normalize rewrites a translated command into the exact surface syntax
// the target agent expects. Producers emit free-form phrasing, so each
// agent gets a table of rewrite rules. The agent name passes through
// unchanged; only the command string is reshaped. Agents without rules
// get the command back as-is.
func Normalize(agent, command, query string) string {
	switch agent {
	case AgentDatetime:
		return normalizeDatetime(command, query)
	case AgentTwitterBot:
		return normalizeTwitterBot(command, query)
	case AgentAutoblog:
		return normalizeAutoblog(command)
	default:
		return command
	}
}

// normalizeDatetime shapes task commands. Create-flavored phrasing becomes
// "add <query>" without double-prefixing; list-flavored phrasing becomes
// "list <query>"; anything unclear defaults to add.
func normalizeDatetime(command, query string) string {
	queryLower := strings.ToLower(query)

	if containsAny(queryLower, "add", "create", "new", "remind", "task", "todo") {
		return prefixOnce(query, "add ")
	}
	if containsAny(queryLower, "list", "show", "get", "what") {
		return prefixOnce(query, "list ")
	}
	if strings.Contains(queryLower, "help") {
		return "help"
	}
	return prefixOnce(query, "add ")
}

func normalizeTwitterBot(command, query string) string {
	cmdLower := strings.ToLower(command)

	if containsAny(cmdLower, "tweet") {
		message := strings.TrimSpace(trimKeyword(command, "tweet"))
		if message == "" {
			message = query
		}
		return "tweet " + message
	}
	if containsAny(cmdLower, "post", "create", "thread", "publish") {
		return "post blog thread"
	}
	if containsAny(cmdLower, "status", "check") {
		return "status"
	}
	if strings.Contains(cmdLower, "timeline") {
		return "timeline"
	}
	if strings.Contains(cmdLower, "stop") && strings.Contains(cmdLower, "monitor") {
		return "stop monitor"
	}
	if strings.Contains(cmdLower, "monitor") {
		return "monitor blog"
	}
	if strings.Contains(cmdLower, "help") {
		return "help"
	}
	return command
}

func normalizeAutoblog(command string) string {
	cmdLower := strings.ToLower(command)

	if containsAny(cmdLower, "generate", "create", "new", "make", "post") {
		return "generate"
	}
	if containsAny(cmdLower, "repo", "repository") {
		if _, rest, ok := strings.Cut(cmdLower, "repo"); ok {
			rest = strings.TrimPrefix(rest, "sitory")
			if name := strings.TrimSpace(rest); name != "" {
				return "blog-repo " + name
			}
		}
		return "help"
	}
	if strings.Contains(cmdLower, "date") {
		if date := dateTokenRe.FindString(command); date != "" {
			return "setdate " + date
		}
		return "help"
	}
	if strings.Contains(cmdLower, "status") {
		return "status"
	}
	return "help"
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// prefixOnce prepends prefix unless s already starts with it
// (case-insensitive), so "add buy milk" never becomes "add add buy milk".
func prefixOnce(s, prefix string) string {
	if strings.HasPrefix(strings.ToLower(s), prefix) {
		return s
	}
	return prefix + s
}

// trimKeyword removes the first case-insensitive occurrence of keyword
// from s and returns the remainder after it.
func trimKeyword(s, keyword string) string {
	idx := strings.Index(strings.ToLower(s), keyword)
	if idx < 0 {
		return s
	}
	return s[idx+len(keyword):]
}
