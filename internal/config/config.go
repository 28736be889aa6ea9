package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the dashboard configuration.
const (
	DefaultHTTPPort      = 8000
	DefaultHistoryLimit  = 50
	DefaultStoreTimeout  = 10 * time.Second
	DefaultStreamPeriod  = 5 * time.Second
	DefaultAlertInterval = 10 * time.Second

	DefaultContactsPath = "/kontakDarurat"
	DefaultCurrentPath  = "/sensorData/current"
	DefaultHistoryPath  = "/sensorData/history"
)

// Label modes for history chart labels.
const (
	LabelModeSubstring = "substring"
	LabelModeStrict    = "strict"
)

// Store backends.
const (
	BackendFirebase = "firebase"
	BackendMemory   = "memory"
)

// Config is the full dashboard configuration parsed from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Firebase FirebaseConfig `yaml:"firebase"`
	History  HistoryConfig  `yaml:"history"`
	Stream   StreamConfig   `yaml:"stream"`
	Log      LogConfig      `yaml:"log"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port for the UI, JSON API, WebSocket stream and /metrics (default 8000).
	HTTPPort int `yaml:"http_port"`

	// Auth configures API key protection for device-facing endpoints.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig controls client authentication on protected API paths.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "x-api-key".
	Header string `yaml:"header"`

	// Paths lists the URL path prefixes that require the key.
	// Defaults to ["/api/contacts"].
	Paths []string `yaml:"paths"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// FirebaseConfig selects and configures the realtime store backend.
type FirebaseConfig struct {
	// Backend is one of: firebase | memory.
	Backend string `yaml:"backend"`

	// DatabaseURL is the Realtime Database URL. Required for the firebase backend.
	DatabaseURL string `yaml:"database_url"`

	// CredentialsFile is a service account JSON file. When empty the
	// Application Default Credentials are used.
	CredentialsFile string `yaml:"credentials_file"`

	// ProjectID overrides the project detected from the credentials.
	ProjectID string `yaml:"project_id"`

	// Timeout bounds every store call.
	Timeout time.Duration `yaml:"timeout"`

	// SeedFile is a JSON document loaded into the memory backend at startup.
	SeedFile string `yaml:"seed_file"`

	Paths PathsConfig `yaml:"paths"`
}

// PathsConfig names the store locations the dashboard reads and writes.
type PathsConfig struct {
	Contacts string `yaml:"contacts"`
	Current  string `yaml:"current"`
	History  string `yaml:"history"`
}

// HistoryConfig controls the history chart endpoint.
type HistoryConfig struct {
	// Limit is how many of the most recent records are charted (default 50).
	Limit int `yaml:"limit"`

	// LabelMode is one of: substring | strict.
	LabelMode string `yaml:"label_mode"`
}

// StreamConfig controls the WebSocket live stream.
type StreamConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// SlogLevel maps Level to a slog.Level. Unknown values map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AlertsConfig holds alerting rules and delivery targets.
type AlertsConfig struct {
	// PollInterval is how often the current reading is evaluated (default 10s).
	PollInterval time.Duration   `yaml:"poll_interval"`
	Rules        []AlertRule     `yaml:"rules"`
	Webhooks     []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "heart_rate > 120", "temperature >= 38",
	// "anomalous == true", "anomaly == Jatuh".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http | telegram.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`

	// TokenEnv is the name of the environment variable that holds the
	// Telegram bot token. Used when Type == "telegram".
	TokenEnv string `yaml:"token_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Token returns the bot token resolved from the environment.
func (w WebhookConfig) Token() string {
	if w.TokenEnv == "" {
		return ""
	}
	return os.Getenv(w.TokenEnv)
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if len(cfg.Server.Auth.Paths) == 0 {
		cfg.Server.Auth.Paths = []string{"/api/contacts"}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
		},
		Firebase: FirebaseConfig{
			Backend: BackendFirebase,
			Timeout: DefaultStoreTimeout,
			Paths: PathsConfig{
				Contacts: DefaultContactsPath,
				Current:  DefaultCurrentPath,
				History:  DefaultHistoryPath,
			},
		},
		History: HistoryConfig{
			Limit:     DefaultHistoryLimit,
			LabelMode: LabelModeSubstring,
		},
		Stream: StreamConfig{Interval: DefaultStreamPeriod},
		Log:    LogConfig{Level: "info", Format: "json"},
		Alerts: AlertsConfig{PollInterval: DefaultAlertInterval},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}

	switch cfg.Firebase.Backend {
	case BackendFirebase:
		if cfg.Firebase.DatabaseURL == "" {
			return fmt.Errorf("firebase.database_url is required for the firebase backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("firebase.backend %q unknown: want firebase|memory", cfg.Firebase.Backend)
	}
	if cfg.Firebase.Timeout < 0 {
		return fmt.Errorf("firebase.timeout must not be negative")
	}
	p := cfg.Firebase.Paths
	if strings.Trim(p.Contacts, "/") == "" || strings.Trim(p.Current, "/") == "" || strings.Trim(p.History, "/") == "" {
		return fmt.Errorf("firebase.paths must not point at the database root")
	}

	if cfg.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be positive, got %d", cfg.History.Limit)
	}
	switch cfg.History.LabelMode {
	case LabelModeSubstring, LabelModeStrict:
	default:
		return fmt.Errorf("history.label_mode %q unknown: want substring|strict", cfg.History.LabelMode)
	}

	if cfg.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be positive")
	}

	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", cfg.Log.Format)
	}

	if cfg.Alerts.PollInterval <= 0 {
		return fmt.Errorf("alerts.poll_interval must be positive")
	}
	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d].name is required", i)
		}
		if len(strings.Fields(r.Condition)) != 3 {
			return fmt.Errorf("alerts.rules[%d].condition %q: want \"field op value\"", i, r.Condition)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http", "pagerduty", "telegram":
		default:
			return fmt.Errorf("alerts.webhooks[%d].type %q unknown", i, w.Type)
		}
	}
	return nil
}
