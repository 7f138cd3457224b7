package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/melih-ucgun/calswitch/internal/consts"
	"github.com/melih-ucgun/calswitch/internal/crypto"
)

type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	CalendarPath string        `yaml:"calendar_path"`
	Token        string        `yaml:"token"`  // ENC[AES256:...] olabilir
	Cookie       string        `yaml:"cookie"` // ENC[AES256:...] olabilir
	Timeout      time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type NotificationsConfig struct {
	FailureTemplate string `yaml:"failure_template"`
}

type SyncConfig struct {
	RollbackOnFailure *bool `yaml:"rollback_on_failure"`
}

// Rollback reports whether failures revert to the confirmed value. Default true.
func (s SyncConfig) Rollback() bool {
	return s.RollbackOnFailure == nil || *s.RollbackOnFailure
}

type StateConfig struct {
	Path       string `yaml:"path"`
	MaxHistory int    `yaml:"max_history"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Listen    string `yaml:"listen"`
	JWTSecret string `yaml:"jwt_secret"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type WatchConfig struct {
	Schedule string `yaml:"schedule"`
}

type TwinConfig struct {
	Listen  string        `yaml:"listen"`
	Latency time.Duration `yaml:"latency"`
	Seed    []SeedEntry   `yaml:"seed"`
}

// SeedEntry is a calendar preloaded into the fake booking server.
type SeedEntry struct {
	Integration string `yaml:"integration"`
	ExternalID  string `yaml:"external_id"`
	Name        string `yaml:"name"`
	Selected    bool   `yaml:"selected"`
	Destination bool   `yaml:"destination"`
}

type Config struct {
	API           APIConfig           `yaml:"api"`
	Cache         CacheConfig         `yaml:"cache"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Sync          SyncConfig          `yaml:"sync"`
	State         StateConfig         `yaml:"state"`
	Log           LogConfig           `yaml:"log"`
	Server        ServerConfig        `yaml:"server"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Watch         WatchConfig         `yaml:"watch"`
	Twin          TwinConfig          `yaml:"twin"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "http://localhost:3000",
			CalendarPath: "/api/availability/calendar",
			Timeout:      10 * time.Second,
		},
		Cache: CacheConfig{TTL: 30 * time.Second},
		State: StateConfig{Path: consts.GetStateFilePath(), MaxHistory: 100},
		Log:   LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Listen: ":8080",
		},
		Kafka: KafkaConfig{Topic: "calswitch.invalidations"},
		Watch: WatchConfig{Schedule: "@every 1m"},
		Twin:  TwinConfig{Listen: ":3000"},
	}
}

// LoadConfig reads path on top of the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides file values with CALSWITCH_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, name string) {
		if v := strings.TrimSpace(getenv(consts.EnvPrefix + name)); v != "" {
			*dst = v
		}
	}
	set(&c.API.BaseURL, "BASE_URL")
	set(&c.API.Token, "TOKEN")
	set(&c.API.Cookie, "COOKIE")
	set(&c.Server.JWTSecret, "JWT_SECRET")
	set(&c.Log.Level, "LOG_LEVEL")
	if v := strings.TrimSpace(getenv(consts.EnvPrefix + "KAFKA_BROKERS")); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
}

// DecryptSecrets replaces encrypted credentials with their plaintext.
func (c *Config) DecryptSecrets(masterKey string) error {
	for _, field := range []struct {
		name string
		ptr  *string
	}{
		{"api.token", &c.API.Token},
		{"api.cookie", &c.API.Cookie},
		{"server.jwt_secret", &c.Server.JWTSecret},
	} {
		plain, err := crypto.Reveal(*field.ptr, masterKey)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.ptr = plain
	}
	return nil
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must not be negative")
	}
	if c.State.MaxHistory < 0 {
		return errors.New("state.max_history must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Load is the full pipeline used by the CLI: file, environment, secrets.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)

	keyPath, _ := consts.GetMasterKeyPath()
	masterKey, err := crypto.LoadMasterKey(getenv(consts.EnvPrefix+"MASTER_KEY"), keyPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.DecryptSecrets(masterKey); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
