// Package config loads the claimdesk configuration from .claimdesk/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/claimdesk/internal/core/assignment"
	"github.com/example/claimdesk/internal/core/escalation"
)

// Environment overrides, applied after the file is read.
const (
	EnvRedisAddr = "CLAIMDESK_REDIS_ADDR"
	EnvDBPath    = "CLAIMDESK_DB_PATH"
	EnvLogLevel  = "CLAIMDESK_LOG_LEVEL"
)

// Dir and File locate the config relative to the working directory.
const (
	Dir  = ".claimdesk"
	File = "config.yaml"
)

// Config is the full claimdesk configuration.
type Config struct {
	Redis        RedisConfig        `yaml:"redis"`
	Database     DatabaseConfig     `yaml:"database"`
	Log          LogConfig          `yaml:"log"`
	Levels       []escalation.Level `yaml:"levels"`
	Assignment   AssignmentConfig   `yaml:"assignment"`
	Agents       []Contact          `yaml:"agents"`
	Management   []Contact          `yaml:"management"`
	Queues       QueuesConfig       `yaml:"queues"`
	Messaging    MessagingConfig    `yaml:"messaging"`
	Conversation ConversationConfig `yaml:"conversation"`
	Worker       WorkerConfig       `yaml:"worker"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"` // Key prefix shared by all queues
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // Empty uses ~/.claimdesk/claimdesk.db
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// AssignmentConfig maps each level to the agents who work it.
type AssignmentConfig struct {
	Strategy string           `yaml:"strategy"` // random, round_robin, least_loaded
	Pools    map[int][]string `yaml:"pools"`
}

// Contact is a directory entry.
type Contact struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name,omitempty"`
	Phone   string `yaml:"phone"`
	Channel string `yaml:"channel"` // whatsapp or sms
}

type QueuesConfig struct {
	Notifications QueueConfig `yaml:"notifications"`
	Escalations   QueueConfig `yaml:"escalations"`
}

// QueueConfig holds retry and throughput settings for one queue.
type QueueConfig struct {
	Attempts     int           `yaml:"attempts"`
	Backoff      time.Duration `yaml:"backoff"`
	Concurrency  int           `yaml:"concurrency"`
	RateLimit    float64       `yaml:"rate_limit"` // Jobs per second
	LockDuration time.Duration `yaml:"lock_duration"`
}

type MessagingConfig struct {
	Provider   string        `yaml:"provider"` // log or webhook
	WebhookURL string        `yaml:"webhook_url,omitempty"`
	Token      string        `yaml:"token,omitempty"`
	Timeout    time.Duration `yaml:"timeout"`
}

type ConversationConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type WorkerConfig struct {
	MetricsAddr   string        `yaml:"metrics_addr"`   // Empty disables /metrics
	SweepInterval time.Duration `yaml:"sweep_interval"` // Zero disables the sweep
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Redis: RedisConfig{Addr: "localhost:6379", Prefix: "claimdesk"},
		Log:   LogConfig{Level: "info", Format: "json"},
		Levels: escalation.DefaultLevels(),
		Assignment: AssignmentConfig{
			Strategy: "random",
			Pools: map[int][]string{
				2: {"agent-t1-a", "agent-t1-b"},
				3: {"agent-senior-a"},
				4: {"agent-specialist-a"},
			},
		},
		Agents: []Contact{
			{ID: "agent-t1-a", Name: "Tier-1 Agent A", Phone: "+15550201", Channel: "whatsapp"},
			{ID: "agent-t1-b", Name: "Tier-1 Agent B", Phone: "+15550202", Channel: "whatsapp"},
			{ID: "agent-senior-a", Name: "Senior Adjuster", Phone: "+15550301", Channel: "whatsapp"},
			{ID: "agent-specialist-a", Name: "Fraud Specialist", Phone: "+15550401", Channel: "sms"},
		},
		Management: []Contact{
			{ID: "claims-manager", Name: "Claims Manager", Phone: "+15550901", Channel: "sms"},
		},
		Queues: QueuesConfig{
			Notifications: QueueConfig{Attempts: 3, Backoff: 2 * time.Second, Concurrency: 5, RateLimit: 10, LockDuration: 30 * time.Second},
			Escalations:   QueueConfig{Attempts: 2, Backoff: 5 * time.Second, Concurrency: 3, RateLimit: 5, LockDuration: 30 * time.Second},
		},
		Messaging:    MessagingConfig{Provider: "log", Timeout: 10 * time.Second},
		Conversation: ConversationConfig{TTL: 30 * time.Minute},
		Worker:       WorkerConfig{MetricsAddr: ":9090"},
	}
}

// Path returns the config file location under dir.
func Path(dir string) string {
	return filepath.Join(dir, Dir, File)
}

// LoadConfig reads .claimdesk/config.yaml from dir on top of the defaults,
// applies environment overrides and validates the result.
// A missing file is not an error.
func LoadConfig(dir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(dir))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to .claimdesk/config.yaml under dir.
func SaveConfig(dir string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Join(dir, Dir), 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", Dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(Path(dir), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks that the ladder is usable: levels 1-4 exist, every level
// needing confirmation has a non-empty pool, and every pooled agent can be
// reached through the directory.
func (c *Config) Validate() error {
	table, err := c.LevelTable()
	if err != nil {
		return err
	}
	if table.Max() < 4 {
		return fmt.Errorf("%w: levels 1-4 must be defined, found %d", escalation.ErrInvalidLevel, table.Max())
	}

	if _, err := assignment.New(c.Assignment.Strategy); err != nil {
		return err
	}

	known := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" || a.Phone == "" {
			return fmt.Errorf("agent entries need an id and a phone")
		}
		if err := validChannel(a.Channel); err != nil {
			return fmt.Errorf("agent %s: %w", a.ID, err)
		}
		known[a.ID] = true
	}
	for _, l := range table.Levels() {
		pool := c.Assignment.Pools[l.Level]
		if l.ConfirmationRequired && len(pool) == 0 {
			return fmt.Errorf("level %d (%s) requires confirmation but has no agent pool", l.Level, l.Name)
		}
		for _, id := range pool {
			if !known[id] {
				return fmt.Errorf("level %d pool references unknown agent %q", l.Level, id)
			}
		}
	}
	for _, m := range c.Management {
		if err := validChannel(m.Channel); err != nil {
			return fmt.Errorf("management contact %s: %w", m.ID, err)
		}
	}

	for name, q := range map[string]QueueConfig{"notifications": c.Queues.Notifications, "escalations": c.Queues.Escalations} {
		if q.Attempts < 1 || q.Concurrency < 1 || q.Backoff <= 0 || q.RateLimit < 0 {
			return fmt.Errorf("queue %s: attempts, concurrency and backoff must be positive", name)
		}
	}

	switch c.Messaging.Provider {
	case "log":
	case "webhook":
		if c.Messaging.WebhookURL == "" {
			return fmt.Errorf("messaging provider webhook needs webhook_url")
		}
	default:
		return fmt.Errorf("unknown messaging provider %q (must be log or webhook)", c.Messaging.Provider)
	}

	if c.Worker.SweepInterval < 0 {
		return fmt.Errorf("worker sweep_interval must not be negative")
	}
	return nil
}

// LevelTable builds the validated escalation ladder.
func (c *Config) LevelTable() (*escalation.LevelTable, error) {
	return escalation.NewLevelTable(c.Levels)
}

func validChannel(ch string) error {
	switch ch {
	case "", "whatsapp", "sms":
		return nil
	}
	return fmt.Errorf("invalid channel %q (must be whatsapp or sms)", ch)
}
