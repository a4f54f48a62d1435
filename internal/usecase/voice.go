package usecase

import (
	"strings"

	"agentos/internal/domain"
)

// VoiceRule forces dispatch to a specific agent when its predicate
// matches the input. Speech-to-text commonly mangles certain words
// ("tweet" arrives as "treat" or "sweet"), so these rules run ahead of
// generic routing. Rules are evaluated in table order; the tables below
// are the single place this special-casing lives.
type VoiceRule struct {
	Name  string
	Agent string
	Match func(raw, lower string) bool
}

func keywordRule(name, agent string, keywords ...string) VoiceRule {
	return VoiceRule{
		Name:  name,
		Agent: agent,
		Match: func(_, lower string) bool {
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					return true
				}
			}
			return false
		},
	}
}

// directVoiceRules run before the direct "<agent> <command>" match.
// The capitalized "Twitter" check is deliberate: dictation software
// capitalizes the brand name.
var directVoiceRules = []VoiceRule{
	{
		Name:  "twitter-direct",
		Agent: domain.AgentTwitterBot,
		Match: func(raw, lower string) bool {
			return strings.Contains(raw, "Twitter") || strings.Contains(lower, "tweet")
		},
	},
}

// scanVoiceRules run at the start of the content scan, before last-agent
// affinity. The keyword list includes common misheard variants.
var scanVoiceRules = []VoiceRule{
	keywordRule("twitter-scan", domain.AgentTwitterBot,
		"tweet", "twitter", "post thread", "post blog", "create thread",
		"blog thread", "timeline", "notifications", "blog to twitter",
		"tweeter", "twit", "twitters", "tweeting", "treat", "sweet",
		"treated", "post blood", "post threat", "post blog thread",
		"post block", "blogger", "blogging", "create treat",
		"treat started", "thread started",
		"twittr", "twitr", "tuitter", "twiter",
	),
}

// lateScanVoiceRules run after affinity failed, as a narrower second
// chance before round-robin.
var lateScanVoiceRules = []VoiceRule{
	keywordRule("twitter-misheard", domain.AgentTwitterBot,
		"tweet", "twit", "threat", "treat", "sweet",
	),
}
