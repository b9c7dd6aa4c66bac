// Package config loads bot settings: defaults, then an optional YAML file,
// then HLT_* environment variables. Command-line flags are applied last by
// the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brensch/halite3/logging"
	"github.com/brensch/halite3/nav"
	"github.com/brensch/halite3/protocol"
)

type Config struct {
	Name        string `yaml:"name"`
	Seed        int64  `yaml:"seed"`
	NavAttempts int    `yaml:"nav_attempts"`

	Engine    Engine    `yaml:"engine"`
	Log       Log       `yaml:"log"`
	Record    Record    `yaml:"record"`
	Transport Transport `yaml:"transport"`

	// Playback replays a recorded transcript instead of reading stdin.
	Playback string `yaml:"playback"`
}

type Engine struct {
	ConstantsPreamble bool   `yaml:"constants_preamble"`
	PlayerOrder       string `yaml:"player_order"`
}

type Log struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

type Record struct {
	// Dir receives one parquet archive per game. Empty disables it.
	Dir string `yaml:"dir"`
	// Transcript is a zstd JSONL file of every protocol line. Empty disables it.
	Transcript string `yaml:"transcript"`
	// Index is a sqlite catalog that finished archives are added to.
	Index string `yaml:"index"`
}

type Transport struct {
	// URL of a websocket relay. Empty means stdin/stdout.
	URL            string `yaml:"url"`
	ConnectTimeout string `yaml:"connect_timeout"`
}

func Default() Config {
	return Config{
		Name:        "GoBot",
		NavAttempts: nav.DefaultAttempts,
		Engine:      Engine{PlayerOrder: protocol.OrderHandshake.String()},
		Log:         Log{Path: logging.DefaultPath, Format: "text", Level: "info"},
		Transport:   Transport{ConnectTimeout: "10s"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := validateDocument(raw); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	c.Normalize()
	return c, c.Validate()
}

// ApplyEnv overrides fields from HLT_* variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	c.Name = envOrDefault(getenv, "HLT_NAME", c.Name)
	c.Log.Path = envOrDefault(getenv, "HLT_LOG_PATH", c.Log.Path)
	c.Log.Format = envOrDefault(getenv, "HLT_LOG_FORMAT", c.Log.Format)
	c.Log.Level = envOrDefault(getenv, "HLT_LOG_LEVEL", c.Log.Level)
	c.Record.Dir = envOrDefault(getenv, "HLT_RECORD_DIR", c.Record.Dir)
	c.Record.Transcript = envOrDefault(getenv, "HLT_TRANSCRIPT", c.Record.Transcript)
	c.Record.Index = envOrDefault(getenv, "HLT_RECORD_INDEX", c.Record.Index)
	c.Transport.URL = envOrDefault(getenv, "HLT_WS_URL", c.Transport.URL)
	c.Engine.PlayerOrder = envOrDefault(getenv, "HLT_PLAYER_ORDER", c.Engine.PlayerOrder)

	var err error
	if c.Seed, err = envInt64OrDefault(getenv, "HLT_SEED", c.Seed); err != nil {
		return err
	}
	if c.NavAttempts, err = envIntOrDefault(getenv, "HLT_NAV_ATTEMPTS", c.NavAttempts); err != nil {
		return err
	}
	if c.Engine.ConstantsPreamble, err = envBoolOrDefault(getenv, "HLT_CONSTANTS_PREAMBLE", c.Engine.ConstantsPreamble); err != nil {
		return err
	}
	c.Normalize()
	return nil
}

// Normalize trims and lower-cases the enumerated fields.
func (c *Config) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Engine.PlayerOrder = strings.ToLower(strings.TrimSpace(c.Engine.PlayerOrder))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.NavAttempts <= 0 {
		c.NavAttempts = nav.DefaultAttempts
	}
}

func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if strings.ContainsAny(c.Name, "\r\n") {
		return fmt.Errorf("name must be a single line")
	}
	if _, err := protocol.ParsePlayerOrder(c.Engine.PlayerOrder); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json", "pretty":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Transport.URL != "" && c.Playback != "" {
		return fmt.Errorf("transport.url and playback are mutually exclusive")
	}
	return nil
}

// Layout is the protocol layout the engine settings describe.
func (c Config) Layout() (protocol.Layout, error) {
	order, err := protocol.ParsePlayerOrder(c.Engine.PlayerOrder)
	if err != nil {
		return protocol.Layout{}, err
	}
	return protocol.Layout{ConstantsPreamble: c.Engine.ConstantsPreamble, PlayerOrder: order}, nil
}

func envOrDefault(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envIntOrDefault(getenv func(string) string, key string, defaultValue int) (int, error) {
	value := getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envInt64OrDefault(getenv func(string) string, key string, defaultValue int64) (int64, error) {
	value := getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBoolOrDefault(getenv func(string) string, key string, defaultValue bool) (bool, error) {
	value := getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
