package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vitos/bsp_resonance/internal/strategy"
)

// supportedLevels lists every level name from the finest to the coarsest.
var supportedLevels = []string{"1m", "5m", "15m", "30m", "60m", "day", "week", "month"}

type Config struct {
	Logging struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
		File     string `yaml:"file"`
	} `yaml:"logging"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Engine struct {
		WSEndpoint  string   `yaml:"ws_endpoint"`
		Symbols     []string `yaml:"symbols"`
		ReconnectMs int      `yaml:"reconnect_ms"`
	} `yaml:"engine"`
	// Levels are ordered from the coarsest to the finest.
	Levels   []string        `yaml:"levels"`
	Strategy strategy.Config `yaml:"strategy"`
	Scanner  struct {
		Pool        []string `yaml:"pool"`
		Level       string   `yaml:"level"`
		SnapshotDir string   `yaml:"snapshot_dir"`
	} `yaml:"scanner"`
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.Logging.Level = "info"
	cfg.Logging.Encoding = "json"
	cfg.Storage.Path = "signals.db"
	cfg.Server.Port = 8080
	cfg.Engine.WSEndpoint = "ws://127.0.0.1:8765/engine"
	cfg.Engine.ReconnectMs = 5000
	cfg.Levels = []string{"day", "30m", "5m"}
	cfg.Strategy = strategy.DefaultConfig()
	cfg.Scanner.Level = "30m"
	cfg.Scanner.SnapshotDir = "snapshots"
	return cfg
}

// Load decodes the YAML file at path over the defaults and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Levels) == 0 {
		return fmt.Errorf("no levels configured")
	}
	prev := len(supportedLevels)
	for _, name := range c.Levels {
		rank := LevelRank(name)
		if rank < 0 {
			return fmt.Errorf("unsupported level %q", name)
		}
		if rank >= prev {
			return fmt.Errorf("level %q must be finer than the level before it", name)
		}
		prev = rank
	}
	if c.Scanner.Level != "" && LevelRank(c.Scanner.Level) < 0 {
		return fmt.Errorf("unsupported scanner level %q", c.Scanner.Level)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Engine.ReconnectMs < 0 {
		return fmt.Errorf("negative reconnect interval")
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	return nil
}

func (c *Config) ReconnectInterval() time.Duration {
	return time.Duration(c.Engine.ReconnectMs) * time.Millisecond
}

// LevelRank orders level names by granularity, finest first. Unknown names
// rank -1.
func LevelRank(name string) int {
	for i, l := range supportedLevels {
		if l == name {
			return i
		}
	}
	return -1
}
