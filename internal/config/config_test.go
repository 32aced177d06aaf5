package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		expectedError bool
		check         func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults applied",
			env: map[string]string{
				"DB_PASSWORD": "secret",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "5432", cfg.Database.Port)
				assert.Equal(t, "switchboard", cfg.Database.Name)
				assert.Equal(t, "bots", cfg.BotsDir)
			},
		},
		{
			name: "explicit values win",
			env: map[string]string{
				"DB_PASSWORD": "secret",
				"DB_HOST":     "db.internal",
				"DB_PORT":     "15432",
				"BOTS_DIR":    "/etc/switchboard/bots",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "db.internal", cfg.Database.Host)
				assert.Equal(t, "15432", cfg.Database.Port)
				assert.Equal(t, "/etc/switchboard/bots", cfg.BotsDir)
			},
		},
		{
			name:          "missing password fails",
			env:           map[string]string{},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "BOTS_DIR"} {
				t.Setenv(key, "")
				os.Unsetenv(key)
			}
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			cfg, err := Load()

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			Name:     "switchboard",
			User:     "switchboard",
			Password: "secret",
		},
	}

	assert.Equal(t,
		"host=localhost port=5432 user=switchboard password=secret dbname=switchboard sslmode=disable",
		cfg.DSN(),
	)
}

func writeBotFile(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
	assert.NoError(t, err)
}

func TestLoadBots(t *testing.T) {
	dir := t.TempDir()
	writeBotFile(t, dir, "20-recruiting.yaml", `
name: recruiting
transport: slack
bot_token_env: RECRUITING_BOT_TOKEN
app_token_env: RECRUITING_APP_TOKEN
functions: [echo, whoami]
access:
  admins: [U100]
  open_functions: [echo]
  allow:
    whoami: [U200, U300]
`)
	writeBotFile(t, dir, "10-ops.yaml", `
name: ops
transport: telegram
bot_token_env: OPS_BOT_TOKEN
functions: [echo]
access:
  open_functions: [echo]
`)

	bots, err := LoadBots(dir)
	assert.NoError(t, err)
	assert.Len(t, bots, 2)

	// Sorted by file name, not declaration order
	assert.Equal(t, "ops", bots[0].Name)
	assert.Equal(t, "recruiting", bots[1].Name)

	assert.Equal(t, []string{"echo", "whoami"}, bots[1].Functions)
	assert.Equal(t, []string{"U100"}, bots[1].Access.Admins)
	assert.Equal(t, []string{"U200", "U300"}, bots[1].Access.Allow["whoami"])
}

func TestLoadBots_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing name",
			content: `
transport: telegram
bot_token_env: TOKEN
functions: [echo]
`,
		},
		{
			name: "unknown transport",
			content: `
name: broken
transport: carrier-pigeon
bot_token_env: TOKEN
functions: [echo]
`,
		},
		{
			name: "slack without app token env",
			content: `
name: broken
transport: slack
bot_token_env: TOKEN
functions: [echo]
`,
		},
		{
			name: "no functions",
			content: `
name: broken
transport: telegram
bot_token_env: TOKEN
functions: []
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeBotFile(t, dir, "bot.yaml", tt.content)

			_, err := LoadBots(dir)
			assert.Error(t, err)
		})
	}
}

func TestLoadBots_DuplicateNameFails(t *testing.T) {
	dir := t.TempDir()
	for _, file := range []string{"a.yaml", "b.yaml"} {
		writeBotFile(t, dir, file, `
name: same
transport: telegram
bot_token_env: TOKEN
functions: [echo]
`)
	}

	_, err := LoadBots(dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate bot name")
}

func TestLoadBots_EmptyDirFails(t *testing.T) {
	_, err := LoadBots(t.TempDir())
	assert.Error(t, err)
}
