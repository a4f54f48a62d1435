package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"agentos/internal/adapter/llm"
	"agentos/internal/adapter/nlp"
	"agentos/internal/agents/autoblog"
	"agentos/internal/agents/datetime"
	"agentos/internal/agents/filemanage"
	"agentos/internal/agents/nlquery"
	"agentos/internal/agents/spotiauto"
	"agentos/internal/agents/twitterbot"
	"agentos/internal/domain"
	"agentos/internal/infra/config"
	"agentos/internal/infra/logger"
	"agentos/internal/infra/tracer"
	"agentos/internal/usecase"
	"agentos/internal/usecase/eventbus"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	flags := parseFlags()

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		if err := runREPL(flags); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch os.Args[1] {
	case "run":
		if err := runOnce(flags); err != nil {
			fmt.Fprintf(os.Stderr, "run: %v\n", err)
			os.Exit(1)
		}
	case "agents":
		if err := listAgents(flags); err != nil {
			fmt.Fprintf(os.Stderr, "agents: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'agentos --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`agentos - personal automation hub

USAGE:
    agentos [COMMAND] [FLAGS]

COMMANDS:
    run "<command>"   Execute a single command and exit
    agents            List registered agents and their status

    (no command) - Start the interactive shell

FLAGS:
    -h, --help       Show this help message
    --config PATH    Config file path (default: ./config.yaml)
    --verbose        Attach routing metadata to results

CONFIGURATION:
    Config file: ./config.yaml
    Environment: AGENTOS_* variables override config

EXAMPLES:
    agentos                          # Interactive shell
    agentos run "what time is it"    # One-shot command
    agentos run "datetime add buy milk tomorrow"
    agentos agents                   # Show agent availability`)
}

// cliFlags holds the flags shared by every subcommand.
type cliFlags struct {
	ConfigPath string
	Verbose    bool
}

// parseFlags extracts --config and --verbose from os.Args.
func parseFlags() cliFlags {
	flags := cliFlags{ConfigPath: "./config.yaml"}
	for i := 1; i < len(os.Args); i++ {
		switch {
		case os.Args[i] == "--config" && i+1 < len(os.Args):
			flags.ConfigPath = os.Args[i+1]
			i++
		case strings.HasPrefix(os.Args[i], "--config="):
			flags.ConfigPath = strings.TrimPrefix(os.Args[i], "--config=")
		case os.Args[i] == "--verbose" || os.Args[i] == "-v":
			flags.Verbose = true
		}
	}
	return flags
}

// runtime bundles everything a subcommand needs, with a teardown that
// releases it in reverse construction order.
type runtime struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *usecase.Registry
	router   *usecase.Router
	teardown func()
}

// buildRuntime wires config, logging, tracing, the event bus, the
// translation stack, every enabled agent, and the router.
func buildRuntime(ctx context.Context, flags cliFlags) (*runtime, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		closeLog()
		return nil, err
	}

	bus := eventbus.New(log)

	// Routing decisions land in the log through the bus so agents and the
	// router stay free of cross-cutting audit concerns.
	bus.SubscribeAll(func(_ context.Context, event domain.Event) {
		log.Debug("event",
			"type", string(event.Type),
			"agent", event.AgentID,
			"payload", string(event.Payload),
		)
	})

	providers, active := buildProviders(cfg, log)
	fallback := nlp.NewFallbackTranslator(log)

	var reg *usecase.Registry
	nlAgent := nlquery.New(nlquery.Options{
		Providers: providers,
		Active:    active,
		Models: map[string]string{
			domain.ProviderGemini: cfg.NLP.Gemini.Model,
			domain.ProviderOllama: cfg.NLP.Ollama.Model,
		},
		Fallback: fallback,
		Prefs:    nlp.NewFilePreferencesStore(cfg.NLP.PreferencesPath),
		Targets: func() []string {
			if reg == nil {
				return nil
			}
			return reg.TranslationTargets()
		},
		Bus:    bus,
		Logger: log,
	})

	manifest := buildManifest(cfg, nlAgent, providers[active], bus, log)
	reg = usecase.NewRegistry(ctx, manifest, bus, log)

	router := usecase.NewRouter(reg, nlAgent, bus, usecase.RouterConfig{
		NaturalLanguage:   cfg.Router.NaturalLanguage,
		MinTranslateWords: cfg.Router.MinTranslateWords,
	}, log)

	return &runtime{
		cfg:      cfg,
		log:      log,
		registry: reg,
		router:   router,
		teardown: func() {
			closeAgents(reg, log)
			bus.Close()
			if err := shutdownTracer(context.Background()); err != nil {
				log.Warn("tracer shutdown failed", "error", err)
			}
			closeLog()
		},
	}, nil
}

// buildProviders constructs the configured LLM backends. A missing Gemini
// key downgrades the active provider to Ollama at startup.
func buildProviders(cfg *config.Config, log *slog.Logger) (map[string]domain.LLMProvider, string) {
	providers := map[string]domain.LLMProvider{}
	active := cfg.NLP.Provider

	if ollama, err := llm.NewOllamaProvider(cfg.NLP.Ollama, log); err == nil {
		providers[domain.ProviderOllama] = ollama
	} else {
		log.Warn("ollama provider unavailable", "error", err)
	}

	if cfg.NLP.Gemini.APIKey != "" {
		gemini, err := llm.NewGeminiProvider(cfg.NLP.Gemini, log)
		if err != nil {
			log.Warn("gemini provider unavailable", "error", err)
		} else if cfg.NLP.CircuitBreaker.Enabled {
			providers[domain.ProviderGemini] = llm.NewCircuitBreakerProvider(gemini, cfg.NLP.CircuitBreaker, log)
		} else {
			providers[domain.ProviderGemini] = gemini
		}
	}

	if active == domain.ProviderGemini {
		if _, ok := providers[domain.ProviderGemini]; !ok {
			log.Warn("gemini not configured, downgrading translation provider to ollama")
			active = domain.ProviderOllama
		}
	}
	return providers, active
}

// closeAgents releases agents that hold resources (task database,
// background monitors).
func closeAgents(reg *usecase.Registry, log *slog.Logger) {
	for _, desc := range reg.Descriptors() {
		if !desc.Available() {
			continue
		}
		switch a := desc.Agent.(type) {
		case interface{ Close() error }:
			if err := a.Close(); err != nil {
				log.Warn("agent close failed", "agent", desc.Name, "error", err)
			}
		case interface{ Close() }:
			a.Close()
		}
	}
}

// buildManifest assembles the registry entries for every enabled agent.
// Factories that fail mark their agent unavailable without aborting
// startup. Order matters twice over: autoblog must be built before the
// twitter bot that watches it, and registration order drives the
// round-robin used for unclaimed commands.
func buildManifest(cfg *config.Config, nlAgent *nlquery.Agent, provider domain.LLMProvider, bus domain.EventBus, log *slog.Logger) []usecase.ManifestEntry {
	var manifest []usecase.ManifestEntry

	var blog *autoblog.Agent

	if cfg.Agents.Datetime.Enabled {
		manifest = append(manifest, usecase.ManifestEntry{
			Name: domain.AgentDatetime,
			Factory: func() (domain.Agent, error) {
				return datetime.New(cfg.Agents.Datetime.TaskDB, log), nil
			},
		})
	}

	if cfg.Agents.Autoblog.Enabled {
		manifest = append(manifest, usecase.ManifestEntry{
			Name: domain.AgentAutoblog,
			Factory: func() (domain.Agent, error) {
				a, err := autoblog.New(provider, cfg.Agents.Autoblog.StatePath, cfg.Agents.Autoblog.BlogDir, log)
				if err != nil {
					return nil, err
				}
				blog = a
				return a, nil
			},
		})
	}

	if cfg.Agents.TwitterBot.Enabled {
		manifest = append(manifest, usecase.ManifestEntry{
			Name: domain.AgentTwitterBot,
			Factory: func() (domain.Agent, error) {
				if cfg.Agents.TwitterBot.BearerToken == "" {
					return nil, fmt.Errorf("%w: twitter bearer token is not configured", domain.ErrAgentUnavailable)
				}
				opts := twitterbot.Options{
					Poster: twitterbot.NewHTTPPoster(
						cfg.Agents.TwitterBot.APIBaseURL,
						cfg.Agents.TwitterBot.BearerToken,
						cfg.Agents.TwitterBot.Timeout,
					),
					Bus:             bus,
					PostsPerMinute:  cfg.Agents.TwitterBot.PostsPerMinute,
					MonitorSchedule: cfg.Agents.TwitterBot.MonitorSchedule,
					Logger:          log,
				}
				if blog != nil {
					opts.Blog = blog
				}
				return twitterbot.New(opts)
			},
		})
	}

	if cfg.Agents.Filemanage.Enabled {
		manifest = append(manifest, usecase.ManifestEntry{
			Name: domain.AgentFilemanage,
			Factory: func() (domain.Agent, error) {
				return filemanage.New(cfg.Agents.Filemanage.Root, log)
			},
		})
	}

	if cfg.Agents.Spotiauto.Enabled {
		manifest = append(manifest, usecase.ManifestEntry{
			Name: domain.AgentSpotiauto,
			Factory: func() (domain.Agent, error) {
				// Playback backend is linked in by deployments that have
				// one; the agent degrades to configuration errors without.
				return spotiauto.New(nil, log), nil
			},
		})
	}

	manifest = append(manifest, usecase.ManifestEntry{
		Name:    domain.AgentNaturalLanguage,
		Factory: func() (domain.Agent, error) { return nlAgent, nil },
	})

	return manifest
}

// runOnce executes a single command and prints its result.
func runOnce(flags cliFlags) error {
	args := commandArgs()
	if len(args) == 0 {
		return fmt.Errorf("usage: agentos run \"<command>\"")
	}

	ctx := context.Background()
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}
	defer rt.teardown()

	env := rt.router.ProcessCommand(ctx, strings.Join(args, " "), flags.Verbose)
	printEnvelope(env, flags.Verbose)
	if env.IsError() {
		os.Exit(1)
	}
	return nil
}

// commandArgs returns the non-flag arguments after the subcommand.
func commandArgs() []string {
	var args []string
	for i := 2; i < len(os.Args); i++ {
		arg := os.Args[i]
		if arg == "--config" {
			i++
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		args = append(args, arg)
	}
	return args
}

// listAgents prints every registered agent with availability and
// capabilities.
func listAgents(flags cliFlags) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}
	defer rt.teardown()

	for _, desc := range rt.registry.Descriptors() {
		status := "available"
		if !desc.Available() {
			status = "unavailable"
		}
		fmt.Printf("%-18s %s\n", desc.Name, status)
		if desc.Available() {
			for _, c := range desc.Agent.Capabilities() {
				fmt.Printf("    - %s\n", c)
			}
		}
	}
	return nil
}

// runREPL starts the interactive shell.
func runREPL(flags cliFlags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, flags)
	if err != nil {
		return err
	}
	defer rt.teardown()

	fmt.Println("AgentOS interactive shell. Type 'help' for commands, 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Print("> ")
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Println()
				return nil
			}
			text := strings.TrimSpace(line)
			switch strings.ToLower(text) {
			case "":
			case "exit", "quit":
				return nil
			case "agents":
				for _, desc := range rt.registry.Descriptors() {
					status := "available"
					if !desc.Available() {
						status = "unavailable"
					}
					fmt.Printf("%-18s %s\n", desc.Name, status)
				}
			default:
				env := rt.router.ProcessCommand(ctx, text, flags.Verbose)
				printEnvelope(env, flags.Verbose)
			}
			fmt.Print("> ")
		}
	}
}

// printEnvelope renders a result for the terminal. Verbose mode also
// dumps the data payload as JSON.
func printEnvelope(env domain.Envelope, verbose bool) {
	prefix := ""
	switch env.Status {
	case domain.StatusError:
		prefix = "error: "
	case domain.StatusInfo:
		prefix = "info: "
	}
	fmt.Println(prefix + env.Message)

	if verbose && len(env.Data) > 0 {
		if out, err := json.MarshalIndent(env.Data, "", "  "); err == nil {
			fmt.Println(string(out))
		}
	}
}
