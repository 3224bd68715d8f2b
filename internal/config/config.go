package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "DESKCTL_"

var ErrInvalidConfig = errors.New("invalid config")

// Config is the process-wide system configuration.
type Config struct {
	ProductName     string   `toml:"product_name" env:"PRODUCT_NAME"`
	Version         string   `toml:"version" env:"VERSION"`
	Home            string   `toml:"home" env:"HOME_DIR"`
	FQDN            string   `toml:"fqdn" env:"FQDN"`
	SystemID        string   `toml:"system_id" env:"SYSTEM_ID"`
	Addr            string   `toml:"addr" env:"ADDR"`
	CorsOrigins     []string `toml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	DefaultLanguage string   `toml:"default_language" env:"DEFAULT_LANGUAGE"`

	Frontend     FrontendConfig     `toml:"frontend" envPrefix:"FRONTEND_"`
	Session      SessionConfig      `toml:"session" envPrefix:"SESSION_"`
	Ticket       TicketConfig       `toml:"ticket" envPrefix:"TICKET_"`
	Database     DatabaseConfig     `toml:"database" envPrefix:"DATABASE_"`
	Notification NotificationConfig `toml:"notification" envPrefix:"NOTIFICATION_"`
	HeaderMeta   HeaderMetaConfig   `toml:"header_meta" envPrefix:"HEADER_META_"`
}

type FrontendConfig struct {
	Baselink string `toml:"baselink" env:"BASELINK"`
}

type SessionConfig struct {
	Name        string   `toml:"name" env:"NAME"`
	Store       string   `toml:"store" env:"STORE"`
	UseCookie   bool     `toml:"use_cookie" env:"USE_COOKIE"`
	MaxIdleTime Duration `toml:"max_idle_time" env:"MAX_IDLE_TIME"`
}

type TicketConfig struct {
	Hook string `toml:"hook" env:"HOOK"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver" env:"DRIVER"`
	DSN    string `toml:"dsn" env:"DSN"`
}

type NotificationConfig struct {
	AgentSessionLimit AgentSessionLimitConfig `toml:"agent_session_limit" envPrefix:"AGENT_SESSION_LIMIT_"`
}

// AgentSessionLimitConfig drives the concurrent agent session notification.
type AgentSessionLimitConfig struct {
	Enabled      bool   `toml:"enabled" env:"ENABLED"`
	Limit        int    `toml:"limit" env:"LIMIT"`
	PriorWarning int    `toml:"prior_warning" env:"PRIOR_WARNING"`
	Message      string `toml:"message" env:"MESSAGE"`
}

type HeaderMetaConfig struct {
	AgentTicketSearch HeaderMetaPluginConfig `toml:"agent_ticket_search" envPrefix:"AGENT_TICKET_SEARCH_"`
}

type HeaderMetaPluginConfig struct {
	Enabled bool   `toml:"enabled" env:"ENABLED"`
	Action  string `toml:"action" env:"ACTION"`
}

// Duration decodes from TOML and env as a Go duration string.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

const (
	SessionStoreMemory   = "memory"
	SessionStoreDatabase = "database"
)

var supportedDrivers = map[string]bool{
	"sqlite":   true,
	"pgx":      true,
	"postgres": true,
}

// Default returns the built-in configuration every file overlays.
func Default() Config {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return Config{
		ProductName:     "Service Desk",
		Version:         "0.0.1",
		Home:            "/opt/deskctl",
		FQDN:            host,
		SystemID:        "10",
		Addr:            ":8080",
		CorsOrigins:     []string{"http://localhost:3000"},
		DefaultLanguage: "en",
		Frontend: FrontendConfig{
			Baselink: "/desk/index?",
		},
		Session: SessionConfig{
			Name:        "DeskSessionID",
			Store:       SessionStoreMemory,
			UseCookie:   true,
			MaxIdleTime: Duration{2 * time.Hour},
		},
		Ticket: TicketConfig{
			Hook: "Ticket#",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:deskctl.db?_pragma=busy_timeout(5000)",
		},
		Notification: NotificationConfig{
			AgentSessionLimit: AgentSessionLimitConfig{
				Enabled:      false,
				Limit:        100,
				PriorWarning: 90,
			},
		},
		HeaderMeta: HeaderMetaConfig{
			AgentTicketSearch: HeaderMetaPluginConfig{
				Enabled: true,
				Action:  "AgentTicketSearch",
			},
		},
	}
}

// Load reads a TOML file over the defaults, applies env overrides and validates.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults without touching the environment.
func Parse(data string) (Config, error) {
	cfg := Default()
	if err := decodeToml(data, "<inline>", &cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return decodeToml(string(data), path, out)
}

func decodeToml(data, source string, out *Config) error {
	meta, err := toml.Decode(data, out)
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", source, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, source, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overlays DESKCTL_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.ProductName) == "" {
		return fmt.Errorf("%w: product_name is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("%w: addr is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Frontend.Baselink) == "" {
		return fmt.Errorf("%w: frontend.baselink is required", ErrInvalidConfig)
	}
	if err := validateBaselink(cfg.Frontend.Baselink); err != nil {
		return err
	}
	if !isToken(cfg.Session.Name) {
		return fmt.Errorf("%w: invalid session.name %q", ErrInvalidConfig, cfg.Session.Name)
	}
	if cfg.Session.Store != SessionStoreMemory && cfg.Session.Store != SessionStoreDatabase {
		return fmt.Errorf("%w: session.store must be %q or %q", ErrInvalidConfig, SessionStoreMemory, SessionStoreDatabase)
	}
	if cfg.Session.MaxIdleTime.Duration <= 0 {
		return fmt.Errorf("%w: session.max_idle_time must be positive", ErrInvalidConfig)
	}
	if !supportedDrivers[cfg.Database.Driver] {
		return fmt.Errorf("%w: unsupported database.driver %q", ErrInvalidConfig, cfg.Database.Driver)
	}
	limit := cfg.Notification.AgentSessionLimit
	if limit.Limit < 0 || limit.PriorWarning < 0 {
		return fmt.Errorf("%w: agent session limits must not be negative", ErrInvalidConfig)
	}
	if limit.Limit > 0 && limit.PriorWarning > limit.Limit {
		return fmt.Errorf("%w: prior_warning %d exceeds limit %d", ErrInvalidConfig, limit.PriorWarning, limit.Limit)
	}
	return nil
}

// ReservedPaths are served by the HTTP surface itself. A baselink may not
// point at one of them or below the reserved prefixes.
var (
	ReservedPaths    = []string{"/health", "/ready", "/metrics"}
	ReservedPrefixes = []string{"/agent", "/support"}
)

// BaselinkPath is the route a baselink points at, e.g. "/desk/index?"
// becomes "/desk/index".
func BaselinkPath(baselink string) string {
	path := strings.TrimSpace(baselink)
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func validateBaselink(baselink string) error {
	path := BaselinkPath(baselink)
	if strings.ContainsAny(path, ":*") {
		return fmt.Errorf("%w: frontend.baselink path %q must not contain ':' or '*'", ErrInvalidConfig, path)
	}
	trimmed := strings.TrimRight(path, "/")
	for _, reserved := range ReservedPaths {
		if trimmed == reserved {
			return fmt.Errorf("%w: frontend.baselink path %q is reserved", ErrInvalidConfig, path)
		}
	}
	for _, prefix := range ReservedPrefixes {
		if trimmed == prefix || strings.HasPrefix(trimmed, prefix+"/") {
			return fmt.Errorf("%w: frontend.baselink path %q is under reserved %s", ErrInvalidConfig, path, prefix)
		}
	}
	return nil
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !(isAlpha || isDigit || c == '_' || c == '-') {
			return false
		}
	}
	return true
}
