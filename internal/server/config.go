package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/kimserver/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Round  *RoundSettings `hcl:"round,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address       string `hcl:"address,optional"`
	Port          int    `hcl:"port,optional"`
	LogLevel      string `hcl:"log_level,optional"`
	AdminPassword string `hcl:"admin_password,optional"`
}

// RoundSettings holds the defaults a round starts with when the admin does
// not supply its own, plus the quota auto-stop grace delay.
type RoundSettings struct {
	MaxWinners   int    `hcl:"max_winners,optional"`
	WinCondition string `hcl:"win_condition,optional"`
	GraceDelayMs int    `hcl:"grace_delay_ms,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:       "localhost",
			Port:          3000,
			LogLevel:      "info",
			AdminPassword: "admin123",
		},
		Round: &RoundSettings{
			MaxWinners:   game.DefaultMaxWinners,
			WinCondition: string(game.DefaultWinCondition),
			GraceDelayMs: 1000,
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	defaults := DefaultServerConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Server.AdminPassword == "" {
		config.Server.AdminPassword = defaults.Server.AdminPassword
	}

	if config.Round == nil {
		config.Round = defaults.Round
	} else {
		if config.Round.MaxWinners == 0 {
			config.Round.MaxWinners = defaults.Round.MaxWinners
		}
		if config.Round.WinCondition == "" {
			config.Round.WinCondition = defaults.Round.WinCondition
		}
		if config.Round.GraceDelayMs == 0 {
			config.Round.GraceDelayMs = defaults.Round.GraceDelayMs
		}
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.AdminPassword == "" {
		return fmt.Errorf("admin password must not be empty")
	}

	if c.Round.MaxWinners < 1 {
		return fmt.Errorf("max winners must be positive, got %d", c.Round.MaxWinners)
	}

	if !game.WinCondition(c.Round.WinCondition).Valid() {
		return fmt.Errorf("invalid win condition %q", c.Round.WinCondition)
	}

	if c.Round.GraceDelayMs < 0 {
		return fmt.Errorf("grace delay must not be negative, got %d", c.Round.GraceDelayMs)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GraceDelay returns the quota auto-stop grace delay as a duration.
func (c *ServerConfig) GraceDelay() time.Duration {
	return time.Duration(c.Round.GraceDelayMs) * time.Millisecond
}

// DefaultSettings returns the round settings as game settings.
func (c *ServerConfig) DefaultSettings() game.Settings {
	return game.Settings{
		MaxWinners:   c.Round.MaxWinners,
		WinCondition: game.WinCondition(c.Round.WinCondition),
	}
}
