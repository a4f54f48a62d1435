package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
	Router RouterConfig `yaml:"router"`
	NLP    NLPConfig    `yaml:"nlp"`
	Agents AgentsConfig `yaml:"agents"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// RouterConfig holds command-routing settings.
type RouterConfig struct {
	// NaturalLanguage enables the LLM translation path. When false the
	// router goes straight from direct dispatch to content scan.
	NaturalLanguage bool `yaml:"natural_language"`
	// MinTranslateWords skips translation for inputs shorter than this
	// many words. 0 = always attempt translation.
	MinTranslateWords int `yaml:"min_translate_words"`
}

// NLPConfig holds natural-language translation settings.
type NLPConfig struct {
	// Provider selects the translation backend: "gemini" or "ollama".
	// Downgrades to "ollama" at startup when the Gemini key is missing.
	Provider        string               `yaml:"provider"`
	Gemini          ProviderConfig       `yaml:"gemini"`
	Ollama          ProviderConfig       `yaml:"ollama"`
	PreferencesPath string               `yaml:"preferences_path"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
}

// CircuitBreakerConfig holds circuit breaker settings for the hosted
// translation provider.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// AgentsConfig holds per-agent settings.
type AgentsConfig struct {
	DataDir    string           `yaml:"data_dir"`
	Datetime   DatetimeConfig   `yaml:"datetime"`
	TwitterBot TwitterBotConfig `yaml:"twitter_bot"`
	Autoblog   AutoblogConfig   `yaml:"autoblog"`
	Filemanage FilemanageConfig `yaml:"filemanage"`
	Spotiauto  SpotiautoConfig  `yaml:"spotiauto"`
}

// DatetimeConfig holds settings for the datetime/task agent.
type DatetimeConfig struct {
	Enabled bool   `yaml:"enabled"`
	TaskDB  string `yaml:"task_db"` // SQLite path for the local task store
}

// TwitterBotConfig holds settings for the social-posting agent.
type TwitterBotConfig struct {
	Enabled         bool          `yaml:"enabled"`
	APIBaseURL      string        `yaml:"api_base_url"`
	BearerToken     string        `yaml:"bearer_token"`
	PostsPerMinute  int           `yaml:"posts_per_minute"`
	MonitorSchedule string        `yaml:"monitor_schedule"` // cron spec for the blog watch
	Timeout         time.Duration `yaml:"timeout"`
}

// AutoblogConfig holds settings for the content-publishing agent.
type AutoblogConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StatePath string `yaml:"state_path"` // JSON record of repo/date state
	BlogDir   string `yaml:"blog_dir"`
}

// FilemanageConfig holds settings for the file management agent.
type FilemanageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Root    string `yaml:"root"` // sandbox root for list/open/organize
}

// SpotiautoConfig holds settings for the music playback agent.
type SpotiautoConfig struct {
	Enabled bool `yaml:"enabled"`
}

// defaultDataDir returns the persistent data directory under
// $HOME/.agentos/data. Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".agentos", "data")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Router: RouterConfig{
			NaturalLanguage:   true,
			MinTranslateWords: 0,
		},
		NLP: NLPConfig{
			Provider: "gemini",
			Gemini: ProviderConfig{
				Name:        "gemini",
				Model:       "gemini-2.0-flash-lite",
				ConnTimeout: 3 * time.Second,
				RespTimeout: 3 * time.Second,
			},
			Ollama: ProviderConfig{
				Name:        "ollama",
				BaseURL:     "http://localhost:11434",
				Model:       "llama3.2:1b",
				ConnTimeout: 3 * time.Second,
				RespTimeout: 3 * time.Second,
			},
			PreferencesPath: filepath.Join(dataDir, "nlp", "preferences.json"),
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 3,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Agents: AgentsConfig{
			DataDir: dataDir,
			Datetime: DatetimeConfig{
				Enabled: true,
				TaskDB:  filepath.Join(dataDir, "datetime", "tasks.db"),
			},
			TwitterBot: TwitterBotConfig{
				Enabled:         true,
				APIBaseURL:      "https://api.twitter.com/2",
				PostsPerMinute:  5,
				MonitorSchedule: "@every 5m",
				Timeout:         15 * time.Second,
			},
			Autoblog: AutoblogConfig{
				Enabled:   true,
				StatePath: filepath.Join(dataDir, "autoblog", "state.json"),
				BlogDir:   filepath.Join(dataDir, "autoblog", "posts"),
			},
			Filemanage: FilemanageConfig{
				Enabled: true,
				Root:    ".",
			},
			Spotiauto: SpotiautoConfig{
				Enabled: true,
			},
		},
	}
}

// Load reads the YAML config at path, merging file values over Defaults
// and environment overrides over both. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps AGENTOS_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTOS_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("AGENTOS_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("AGENTOS_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("AGENTOS_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("AGENTOS_ROUTER_NATURAL_LANGUAGE"); v == "false" {
		cfg.Router.NaturalLanguage = false
	}
	if v := os.Getenv("AGENTOS_ROUTER_MIN_TRANSLATE_WORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Router.MinTranslateWords = n
		}
	}
	if v := os.Getenv("AGENTOS_NLP_PROVIDER"); v != "" {
		cfg.NLP.Provider = v
	}
	if v := os.Getenv("AGENTOS_GEMINI_API_KEY"); v != "" {
		cfg.NLP.Gemini.APIKey = v
	}
	if v := os.Getenv("AGENTOS_GEMINI_MODEL"); v != "" {
		cfg.NLP.Gemini.Model = v
	}
	if v := os.Getenv("AGENTOS_OLLAMA_API_URL"); v != "" {
		cfg.NLP.Ollama.BaseURL = v
	}
	if v := os.Getenv("AGENTOS_OLLAMA_MODEL"); v != "" {
		cfg.NLP.Ollama.Model = v
	}
	if v := os.Getenv("AGENTOS_TWITTER_BEARER_TOKEN"); v != "" {
		cfg.Agents.TwitterBot.BearerToken = v
	}
	if v := os.Getenv("AGENTOS_FILEMANAGE_ROOT"); v != "" {
		cfg.Agents.Filemanage.Root = v
	}
	if v := os.Getenv("AGENTOS_DATA_DIR"); v != "" {
		cfg.Agents.DataDir = v
	}
}

// Validate checks the configuration for inconsistencies that would
// surface as confusing runtime failures.
func Validate(cfg *Config) error {
	switch cfg.NLP.Provider {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("nlp.provider must be \"gemini\" or \"ollama\", got %q", cfg.NLP.Provider)
	}

	switch cfg.Logger.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logger.format must be \"text\" or \"json\", got %q", cfg.Logger.Format)
	}

	if cfg.NLP.Ollama.BaseURL == "" {
		return fmt.Errorf("nlp.ollama.base_url must not be empty")
	}

	if cfg.Router.MinTranslateWords < 0 {
		return fmt.Errorf("router.min_translate_words must not be negative")
	}

	if cfg.Agents.TwitterBot.Enabled && cfg.Agents.TwitterBot.PostsPerMinute <= 0 {
		return fmt.Errorf("agents.twitter_bot.posts_per_minute must be positive")
	}

	return nil
}
