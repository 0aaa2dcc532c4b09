// Package config provides YAML-based configuration loading for supportline.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Operator tiers used by the escalation table.
const (
	TierAdmin     = "admin"
	TierAffiliate = "affiliate"
)

// Config is the top-level configuration, loaded from supportline.yaml.
type Config struct {
	Server        ServerConfig      `yaml:"server"`
	Database      DatabaseConfig    `yaml:"database"`
	OperatorRoles map[string]string `yaml:"operator_roles"`
	AutoReplies   []AutoReplyConfig `yaml:"auto_replies"`
	Realtime      RealtimeConfig    `yaml:"realtime"`
	Notify        NotifyConfig      `yaml:"notify"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "mysql" (default) or "sqlite"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"` // sqlite file path
}

// AutoReplyConfig seeds one keyword → reply row.
type AutoReplyConfig struct {
	Keyword string `yaml:"keyword"`
	Reply   string `yaml:"reply"`
	Active  *bool  `yaml:"active"`
}

// IsActive defaults a missing active flag to true.
func (a AutoReplyConfig) IsActive() bool {
	return a.Active == nil || *a.Active
}

// RealtimeConfig tunes the websocket hub.
type RealtimeConfig struct {
	SendBuffer   int           `yaml:"send_buffer"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PongTimeout  time.Duration `yaml:"pong_timeout"`
}

// NotifyConfig configures operator escalation alerts.
type NotifyConfig struct {
	SlackWebhookURL  string `yaml:"slack_webhook_url"`
	DiscordBotToken  string `yaml:"discord_bot_token"`
	DiscordChannelID string `yaml:"discord_channel_id"`
	DigestCron       string `yaml:"digest_cron"`
	Command          string `yaml:"command"` // local shell command run per alert
}

// DefaultOperatorRoles is the role → tier table applied when the config
// file does not provide one.
func DefaultOperatorRoles() map[string]string {
	return map[string]string{
		"superadmin": TierAdmin,
		"admin":      TierAdmin,
		"support":    TierAdmin,
		"affiliate":  TierAffiliate,
	}
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "supportline"
		}
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "supportline.db"
	}
	if len(c.OperatorRoles) == 0 {
		c.OperatorRoles = DefaultOperatorRoles()
	}
	if c.Realtime.SendBuffer == 0 {
		c.Realtime.SendBuffer = 256
	}
	if c.Realtime.WriteTimeout == 0 {
		c.Realtime.WriteTimeout = 10 * time.Second
	}
	if c.Realtime.PongTimeout == 0 {
		c.Realtime.PongTimeout = 60 * time.Second
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
	}

	roles := make([]string, 0, len(c.OperatorRoles))
	for role := range c.OperatorRoles {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		tier := c.OperatorRoles[role]
		if tier != TierAdmin && tier != TierAffiliate {
			errs = append(errs, fmt.Sprintf("operator_roles.%s: tier %q must be %s or %s", role, tier, TierAdmin, TierAffiliate))
		}
	}

	seen := make(map[string]bool)
	for i, ar := range c.AutoReplies {
		if ar.Keyword == "" {
			errs = append(errs, fmt.Sprintf("auto_replies[%d].keyword is required", i))
		}
		if ar.Reply == "" {
			errs = append(errs, fmt.Sprintf("auto_replies[%d].reply is required", i))
		}
		if ar.Keyword != "" && seen[ar.Keyword] {
			errs = append(errs, fmt.Sprintf("auto_replies[%d].keyword %q is duplicated", i, ar.Keyword))
		}
		seen[ar.Keyword] = true
	}

	if (c.Notify.DiscordBotToken == "") != (c.Notify.DiscordChannelID == "") {
		errs = append(errs, "notify.discord_bot_token and notify.discord_channel_id must be set together")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
