package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentos/internal/domain"
)

type countingTranslator struct {
	calls  int
	result domain.TranslationResult
}

func (t *countingTranslator) Translate(ctx context.Context, query string, available []string) (domain.TranslationResult, error) {
	t.calls++
	return t.result, nil
}

// errorAgent rejects every input, so the round-robin scan passes it over.
func errorAgent(name string) *fakeAgent {
	return &fakeAgent{name: name, respond: func(string) domain.Envelope {
		return domain.Error(name + " cannot handle this")
	}}
}

func newTestRouter(t *testing.T, translator domain.Translator, cfg RouterConfig, entries ...ManifestEntry) (*Router, map[string]*fakeAgent) {
	t.Helper()
	agents := make(map[string]*fakeAgent, len(entries))
	for _, e := range entries {
		a, err := e.Factory()
		if err == nil {
			if fa, ok := a.(*fakeAgent); ok {
				agents[e.Name] = fa
			}
		}
	}
	reg := NewRegistry(context.Background(), entries, nil, testLogger())
	return NewRouter(reg, translator, nil, cfg, testLogger()), agents
}

func defaultEntries() []ManifestEntry {
	return []ManifestEntry{
		entry(domain.AgentDatetime, &fakeAgent{name: domain.AgentDatetime}),
		entry(domain.AgentTwitterBot, &fakeAgent{name: domain.AgentTwitterBot}),
		entry(domain.AgentAutoblog, &fakeAgent{name: domain.AgentAutoblog}),
		entry(domain.AgentSpotiauto, &fakeAgent{name: domain.AgentSpotiauto}),
	}
}

func TestDirectDispatchSkipsTranslation(t *testing.T) {
	tr := &countingTranslator{}
	router, agents := newTestRouter(t, tr, RouterConfig{NaturalLanguage: true},
		defaultEntries()...)

	for _, name := range []string{domain.AgentDatetime, domain.AgentAutoblog, domain.AgentSpotiauto} {
		env := router.ProcessCommand(context.Background(), name+" do something", false)
		assert.Equal(t, domain.StatusSuccess, env.Status, name)
		assert.Equal(t, name, env.AgentID)
		require.Len(t, agents[name].calls, 1)
		assert.Equal(t, "do something", agents[name].calls[0])
	}

	assert.Zero(t, tr.calls, "direct dispatch must not invoke translation")
}

func TestDirectDispatchCaseInsensitive(t *testing.T) {
	router, agents := newTestRouter(t, nil, RouterConfig{}, defaultEntries()...)

	env := router.ProcessCommand(context.Background(), "Datetime time", false)
	assert.Equal(t, domain.AgentDatetime, env.AgentID)
	require.Len(t, agents[domain.AgentDatetime].calls, 1)
	assert.Equal(t, "time", agents[domain.AgentDatetime].calls[0])
}

func TestUnroutableCommandReturnsError(t *testing.T) {
	router, _ := newTestRouter(t, &countingTranslator{}, RouterConfig{NaturalLanguage: true},
		entry(domain.AgentDatetime, errorAgent(domain.AgentDatetime)),
		entry(domain.AgentSpotiauto, errorAgent(domain.AgentSpotiauto)),
	)

	env := router.ProcessCommand(context.Background(), "gibberish nobody understands", false)
	assert.Equal(t, domain.StatusError, env.Status)
	assert.NotEmpty(t, env.Message)
	assert.NotEmpty(t, env.Spoken())
}

func TestEmptyCommand(t *testing.T) {
	router, _ := newTestRouter(t, nil, RouterConfig{}, defaultEntries()...)

	env := router.ProcessCommand(context.Background(), "   ", false)
	assert.Equal(t, domain.StatusError, env.Status)
	assert.Equal(t, "Empty command", env.Message)
}

func TestTranslationPath(t *testing.T) {
	tr := &countingTranslator{result: domain.TranslationResult{
		Agent:   domain.AgentDatetime,
		Command: "add buy milk",
	}}
	router, agents := newTestRouter(t, tr, RouterConfig{NaturalLanguage: true},
		defaultEntries()...)

	env := router.ProcessCommand(context.Background(), "remember to buy milk", false)
	assert.Equal(t, domain.StatusSuccess, env.Status)
	assert.Equal(t, domain.AgentDatetime, env.AgentID)
	require.Len(t, agents[domain.AgentDatetime].calls, 1)
	assert.Equal(t, "add buy milk", agents[domain.AgentDatetime].calls[0])

	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, true, env.Data["nlp_processed"])
	assert.Equal(t, "remember to buy milk", env.Data["original_query"])
}

func TestTranslationAttemptedExactlyOnce(t *testing.T) {
	tr := &countingTranslator{} // returns empty result
	router, _ := newTestRouter(t, tr, RouterConfig{NaturalLanguage: true},
		entry(domain.AgentSpotiauto, errorAgent(domain.AgentSpotiauto)),
	)

	env := router.ProcessCommand(context.Background(), "something unresolvable", false)
	assert.Equal(t, domain.StatusError, env.Status)
	assert.Equal(t, 1, tr.calls)
}

func TestMinTranslateWordsShortCircuit(t *testing.T) {
	tr := &countingTranslator{}
	router, _ := newTestRouter(t, tr, RouterConfig{NaturalLanguage: true, MinTranslateWords: 3},
		entry(domain.AgentSpotiauto, errorAgent(domain.AgentSpotiauto)),
	)

	router.ProcessCommand(context.Background(), "hello", false)
	assert.Zero(t, tr.calls, "short input must skip translation")

	router.ProcessCommand(context.Background(), "hello there old friend", false)
	assert.Equal(t, 1, tr.calls)
}

func TestVoiceRuleForcesTwitterBot(t *testing.T) {
	tr := &countingTranslator{}
	router, agents := newTestRouter(t, tr, RouterConfig{NaturalLanguage: true},
		defaultEntries()...)

	// "tweet" is not an agent name, but the voice rule forces the
	// social agent and hands it the full text.
	env := router.ProcessCommand(context.Background(), "tweet hello world", false)
	assert.Equal(t, domain.AgentTwitterBot, env.AgentID)
	require.Len(t, agents[domain.AgentTwitterBot].calls, 1)
	assert.Equal(t, "tweet hello world", agents[domain.AgentTwitterBot].calls[0])
	assert.Zero(t, tr.calls)
	assert.Equal(t, domain.AgentTwitterBot, router.LastAgent())
}

func TestMisheardVoiceVariantRoutesToTwitterBot(t *testing.T) {
	router, agents := newTestRouter(t, nil, RouterConfig{}, defaultEntries()...)

	env := router.ProcessCommand(context.Background(), "post blood thread started", false)
	assert.Equal(t, domain.AgentTwitterBot, env.AgentID)
	assert.Len(t, agents[domain.AgentTwitterBot].calls, 1)
}

func TestLastAgentAffinity(t *testing.T) {
	datetime := &fakeAgent{name: domain.AgentDatetime}
	other := &fakeAgent{name: domain.AgentSpotiauto}
	router, _ := newTestRouter(t, nil, RouterConfig{},
		entry(domain.AgentSpotiauto, other),
		entry(domain.AgentDatetime, datetime),
	)

	env := router.ProcessCommand(context.Background(), "datetime list tasks", false)
	require.Equal(t, domain.StatusSuccess, env.Status)
	assert.Equal(t, domain.AgentDatetime, router.LastAgent())

	// The follow-up has no direct match and no translator; affinity
	// retries the scheduling agent before round-robin reaches spotiauto.
	env = router.ProcessCommand(context.Background(), "show me more", false)
	assert.Equal(t, domain.AgentDatetime, env.AgentID)
	require.Len(t, datetime.calls, 2)
	assert.Equal(t, "show me more", datetime.calls[1])
	assert.Empty(t, other.calls)
}

func TestAffinityRejectedFallsThroughToRoundRobin(t *testing.T) {
	grumpy := errorAgent(domain.AgentDatetime)
	willing := &fakeAgent{name: domain.AgentFilemanage}
	router, _ := newTestRouter(t, nil, RouterConfig{},
		entry(domain.AgentDatetime, grumpy),
		entry(domain.AgentFilemanage, willing),
	)

	// Seed affinity toward the grumpy agent. Its direct dispatch result
	// is returned as-is even though it is an error.
	env := router.ProcessCommand(context.Background(), "datetime whatever", false)
	assert.Equal(t, domain.StatusError, env.Status)

	env = router.ProcessCommand(context.Background(), "something vague", false)
	assert.Equal(t, domain.StatusSuccess, env.Status)
	assert.Equal(t, domain.AgentFilemanage, env.AgentID)
	assert.Equal(t, domain.AgentFilemanage, router.LastAgent())
}

func TestAgentPanicContained(t *testing.T) {
	panicky := &fakeAgent{name: domain.AgentDatetime, respond: func(string) domain.Envelope {
		panic("boom")
	}}
	router, _ := newTestRouter(t, nil, RouterConfig{},
		entry(domain.AgentDatetime, panicky),
	)

	env := router.ProcessCommand(context.Background(), "datetime explode", false)
	assert.Equal(t, domain.StatusError, env.Status)
	assert.Contains(t, env.Message, "boom")
	assert.Equal(t, domain.AgentDatetime, env.AgentID)
}

func TestVerboseAnnotation(t *testing.T) {
	router, _ := newTestRouter(t, nil, RouterConfig{}, defaultEntries()...)

	env := router.ProcessCommand(context.Background(), "datetime time", true)
	require.NotNil(t, env.Data)
	verbose, ok := env.Data["verbose"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, domain.AgentDatetime, verbose["agent"])
	assert.NotEmpty(t, verbose["request_id"])
	assert.NotEmpty(t, verbose["timestamp"])
}

// summarizingAgent fills in spoken text only through SummarizeResult.
type summarizingAgent struct {
	fakeAgent
}

func (s *summarizingAgent) SummarizeResult(env domain.Envelope) string {
	return "short version"
}

func TestSummarizerFillsMissingSpokenText(t *testing.T) {
	agent := &summarizingAgent{fakeAgent: fakeAgent{
		name: domain.AgentDatetime,
		respond: func(string) domain.Envelope {
			return domain.Success("a very long multi-line answer")
		},
	}}
	router, _ := newTestRouter(t, nil, RouterConfig{},
		entry(domain.AgentDatetime, agent),
	)

	env := router.ProcessCommand(context.Background(), "datetime time", false)
	assert.Equal(t, "short version", env.SpokenText)
}

func TestEnvelopeHygiene(t *testing.T) {
	bare := &fakeAgent{name: domain.AgentDatetime, respond: func(string) domain.Envelope {
		// Agent forgot status and agent id.
		return domain.Envelope{SpokenText: "it is noon"}
	}}
	router, _ := newTestRouter(t, nil, RouterConfig{},
		entry(domain.AgentDatetime, bare),
	)

	env := router.ProcessCommand(context.Background(), "datetime time", false)
	assert.Equal(t, domain.StatusSuccess, env.Status)
	assert.Equal(t, "it is noon", env.Message)
	assert.Equal(t, domain.AgentDatetime, env.AgentID)
}
