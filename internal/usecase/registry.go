package usecase

import (
	"context"
	"log/slog"

	"agentos/internal/domain"
)

// ManifestEntry binds an agent name to its factory. The manifest is the
// static, compile-time equivalent of scanning an agents directory: the
// set of loadable agents is fixed at startup.
type ManifestEntry struct {
	Name    string
	Factory domain.AgentFactory
}

// Registry holds the instantiated agents, built once at startup and
// read-only afterwards. A factory failure marks that one agent
// unavailable; it never fails registry construction.
type Registry struct {
	order  []string
	agents map[string]domain.AgentDescriptor
	logger *slog.Logger
}

// NewRegistry instantiates every agent in the manifest, in order.
// Duplicate names are rejected with a warning; the first registration
// wins. Broken factories are recorded as unavailable descriptors.
func NewRegistry(ctx context.Context, manifest []ManifestEntry, bus domain.EventBus, logger *slog.Logger) *Registry {
	r := &Registry{
		agents: make(map[string]domain.AgentDescriptor, len(manifest)),
		logger: logger.With("component", "registry"),
	}

	for _, entry := range manifest {
		if _, dup := r.agents[entry.Name]; dup {
			r.logger.Warn("duplicate agent name in manifest, ignoring", "agent", entry.Name)
			continue
		}

		desc := domain.AgentDescriptor{Name: entry.Name}
		agent, err := entry.Factory()
		if err != nil {
			r.logger.Warn("agent unavailable", "agent", entry.Name, "error", err)
			publishEvent(ctx, bus, domain.EventAgentUnavailable, entry.Name, nil)
		} else {
			desc.Agent = agent
			r.logger.Info("agent registered", "agent", entry.Name)
			publishEvent(ctx, bus, domain.EventAgentRegistered, entry.Name, nil)
		}

		r.order = append(r.order, entry.Name)
		r.agents[entry.Name] = desc
	}

	return r
}

// Get returns the agent by name. ok is false when the name is unknown or
// the agent failed to construct.
func (r *Registry) Get(name string) (domain.Agent, bool) {
	desc, ok := r.agents[name]
	if !ok || !desc.Available() {
		return nil, false
	}
	return desc.Agent, true
}

// Has reports whether name is a registered, available agent.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the available agent names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.agents[name].Available() {
			names = append(names, name)
		}
	}
	return names
}

// TranslationTargets returns the available agent names a translation may
// resolve to. The translation agent itself is excluded so a translation
// can never loop back into another translation.
func (r *Registry) TranslationTargets() []string {
	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if name == domain.AgentNaturalLanguage {
			continue
		}
		if r.agents[name].Available() {
			names = append(names, name)
		}
	}
	return names
}

// Descriptors returns every registered descriptor, available or not, in
// registration order.
func (r *Registry) Descriptors() []domain.AgentDescriptor {
	descs := make([]domain.AgentDescriptor, 0, len(r.order))
	for _, name := range r.order {
		descs = append(descs, r.agents[name])
	}
	return descs
}
