package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"switchboard/internal/domain"

	"gopkg.in/yaml.v3"
)

// Supported transport names in bot configs.
const (
	TransportSlack    = "slack"
	TransportTelegram = "telegram"
)

// BotConfig describes one bot instance: its transport credentials, the
// ordered list of functions to load, and its access ruleset. Read once at
// startup; changes require a restart.
type BotConfig struct {
	Name        string       `yaml:"name"`
	Transport   string       `yaml:"transport"`
	BotTokenEnv string       `yaml:"bot_token_env"`
	AppTokenEnv string       `yaml:"app_token_env"`
	Functions   []string     `yaml:"functions"`
	Access      AccessConfig `yaml:"access"`
}

// AccessConfig is the permission ruleset section of a bot config.
type AccessConfig struct {
	Admins        []string            `yaml:"admins"`
	OpenFunctions []string            `yaml:"open_functions"`
	Allow         map[string][]string `yaml:"allow"`
}

// Rules converts the config section to the domain ruleset.
func (a AccessConfig) Rules() domain.AccessRules {
	return domain.AccessRules{
		Admins:        a.Admins,
		OpenFunctions: a.OpenFunctions,
		Allow:         a.Allow,
	}
}

// BotToken resolves the transport bot token from the environment.
func (b BotConfig) BotToken() string {
	return os.Getenv(b.BotTokenEnv)
}

// AppToken resolves the Slack app-level token from the environment.
func (b BotConfig) AppToken() string {
	return os.Getenv(b.AppTokenEnv)
}

// Validate checks the fields that make an instance unable to start.
func (b BotConfig) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("bot name is required")
	}
	if len(b.Functions) == 0 {
		return fmt.Errorf("bot %q lists no functions", b.Name)
	}
	switch b.Transport {
	case TransportSlack:
		if b.BotTokenEnv == "" || b.AppTokenEnv == "" {
			return fmt.Errorf("bot %q: slack transport requires bot_token_env and app_token_env", b.Name)
		}
	case TransportTelegram:
		if b.BotTokenEnv == "" {
			return fmt.Errorf("bot %q: telegram transport requires bot_token_env", b.Name)
		}
	default:
		return fmt.Errorf("bot %q: unknown transport %q", b.Name, b.Transport)
	}
	return nil
}

// LoadBots reads every *.yaml file in dir, sorted by file name so startup
// order is deterministic. Instance names must be unique: they key the shared
// database tables.
func LoadBots(dir string) ([]BotConfig, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan bots dir: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no bot configs found in %s", dir)
	}
	sort.Strings(matches)

	seen := make(map[string]bool)
	var bots []BotConfig
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var bot BotConfig
		if err := yaml.Unmarshal(data, &bot); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := bot.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if seen[bot.Name] {
			return nil, fmt.Errorf("%s: duplicate bot name %q", path, bot.Name)
		}
		seen[bot.Name] = true

		bots = append(bots, bot)
	}

	return bots, nil
}
