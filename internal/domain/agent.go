package domain

import "context"

// Canonical agent names. Translation aliases resolve to these before any
// routing decision.
const (
	AgentDatetime        = "datetime"
	AgentTwitterBot      = "twitterbot"
	AgentAutoblog        = "autoblog"
	AgentFilemanage      = "filemanage"
	AgentSpotiauto       = "spotiauto"
	AgentNaturalLanguage = "natural_language"
)

// Agent is the contract every task handler implements. Process is
// synchronous and may perform blocking I/O; it must never panic past its
// own boundary. Failures are reported as error-status envelopes.
type Agent interface {
	// Process executes one command and returns its result envelope.
	Process(ctx context.Context, input string) Envelope
	// Capabilities returns human-readable capability descriptions.
	// Pure, no side effects.
	Capabilities() []string
}

// ResultSummarizer is optionally implemented by agents that can produce a
// terse restatement of a prior result.
type ResultSummarizer interface {
	SummarizeResult(env Envelope) string
}

// AgentFactory constructs an agent instance. A factory that returns an
// error marks the agent unavailable without failing startup.
type AgentFactory func() (Agent, error)

// AgentDescriptor identifies a registered agent. Agent is nil when the
// factory failed; the name is still recorded so callers can distinguish
// "broken" from "never registered".
type AgentDescriptor struct {
	Name  string
	Agent Agent // nil = unavailable
}

// Available reports whether the agent can accept commands.
func (d AgentDescriptor) Available() bool { return d.Agent != nil }
