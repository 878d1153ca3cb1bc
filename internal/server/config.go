package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/game"
)

// Config is the complete server configuration.
type Config struct {
	Server Settings      `hcl:"server,block"`
	Game   *GameSettings `hcl:"game,block"`
}

// Settings contains server-level configuration.
type Settings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogDir   string `hcl:"log_dir,optional"`
}

// GameSettings overrides the room timer defaults, all in seconds except
// the millisecond AI think bounds.
type GameSettings struct {
	TurnSeconds       int `hcl:"turn_seconds,optional"`
	ClaimSeconds      int `hcl:"claim_seconds,optional"`
	AIThinkMinMillis  int `hcl:"ai_think_min_ms,optional"`
	AIThinkMaxMillis  int `hcl:"ai_think_max_ms,optional"`
	InterRoundSeconds int `hcl:"inter_round_seconds,optional"`
	EmptyRoomSeconds  int `hcl:"empty_room_seconds,optional"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: Settings{
			Address:  "0.0.0.0",
			Port:     3001,
			LogLevel: "info",
		},
	}
}

// LoadConfig reads an HCL configuration file, falling back to defaults
// when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 3001
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	return &config, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.LogLevel {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	if g := c.Game; g != nil {
		if g.TurnSeconds < 0 || g.TurnSeconds > 60 {
			return fmt.Errorf("turn_seconds must be between 0 and 60, got %d", g.TurnSeconds)
		}
		if g.AIThinkMinMillis < 0 || g.AIThinkMaxMillis < g.AIThinkMinMillis {
			return fmt.Errorf("ai think bounds are inverted: [%d, %d]", g.AIThinkMinMillis, g.AIThinkMaxMillis)
		}
	}
	return nil
}

// Addr returns the full listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TimerConfig merges the game block over the room timer defaults.
func (c *Config) TimerConfig() game.TimerConfig {
	tc := game.DefaultTimerConfig()
	g := c.Game
	if g == nil {
		return tc
	}
	if g.TurnSeconds > 0 {
		tc.TurnSeconds = g.TurnSeconds
	}
	if g.ClaimSeconds > 0 {
		tc.ClaimSeconds = g.ClaimSeconds
	}
	if g.AIThinkMinMillis > 0 {
		tc.AIThinkMin = time.Duration(g.AIThinkMinMillis) * time.Millisecond
	}
	if g.AIThinkMaxMillis > 0 {
		tc.AIThinkMax = time.Duration(g.AIThinkMaxMillis) * time.Millisecond
	}
	if g.InterRoundSeconds > 0 {
		tc.InterRoundSeconds = g.InterRoundSeconds
	}
	if g.EmptyRoomSeconds > 0 {
		tc.EmptyRoomTTL = time.Duration(g.EmptyRoomSeconds) * time.Second
	}
	return tc
}
