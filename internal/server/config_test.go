package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mahjongd.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Nil(t, cfg.Game)
	assert.Equal(t, "0.0.0.0:3001", cfg.Addr())
}

func TestLoadConfigParsesFile(t *testing.T) {
	path := writeConfig(t, `
server {
  address   = "127.0.0.1"
  port      = 4000
  log_level = "debug"
}

game {
  turn_seconds       = 20
  ai_think_min_ms    = 100
  ai_think_max_ms    = 200
  empty_room_seconds = 30
}
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:4000", cfg.Addr())
	assert.Equal(t, "debug", cfg.Server.LogLevel)

	tc := cfg.TimerConfig()
	assert.Equal(t, 20, tc.TurnSeconds)
	assert.Equal(t, 30, tc.ClaimSeconds, "unset fields keep the defaults")
	assert.Equal(t, 100*time.Millisecond, tc.AIThinkMin)
	assert.Equal(t, 200*time.Millisecond, tc.AIThinkMax)
	assert.Equal(t, 10, tc.InterRoundSeconds)
	assert.Equal(t, 30*time.Second, tc.EmptyRoomTTL)
}

func TestLoadConfigRejectsMalformedHCL(t *testing.T) {
	path := writeConfig(t, `server { port = `)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Game = &GameSettings{TurnSeconds: 61}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Game = &GameSettings{AIThinkMinMillis: 500, AIThinkMaxMillis: 100}
	assert.Error(t, cfg.Validate())
}

func TestTimerConfigWithoutGameBlock(t *testing.T) {
	cfg := DefaultConfig()
	tc := cfg.TimerConfig()
	assert.Equal(t, 30, tc.TurnSeconds)
	assert.Equal(t, 700*time.Millisecond, tc.AIThinkMin)
	assert.Equal(t, 60*time.Second, tc.EmptyRoomTTL)
}
