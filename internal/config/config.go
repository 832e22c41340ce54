// Package config loads engine, sweep, logging and server settings.
//
// Precedence (lowest first): built-in defaults, YAML file, .env file, process environment.
// Command-line flags are applied on top by the commands themselves.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/sweep"
)

// Environment variables read by Load.
const (
	EnvConfigPath = "MC_CONFIG"
	EnvSeed       = "MC_SEED"
	EnvWorkers    = "MC_WORKERS"
	EnvLogLevel   = "MC_LOG_LEVEL"
	EnvServerAddr = "MC_SERVER_ADDR"
)

// Config is the full application configuration.
type Config struct {
	Simulation domain.SimulationParameters `yaml:"simulation"`
	Sweep      sweep.Grid                  `yaml:"sweep"`
	Engine     EngineConfig                `yaml:"engine"`
	Log        LogConfig                   `yaml:"log"`
	Server     ServerConfig                `yaml:"server"`
}

// EngineConfig controls seeding and parallelism.
type EngineConfig struct {
	Seed    uint64 `yaml:"seed"`    // 0 derives a seed from the clock
	Workers int    `yaml:"workers"` // 0 uses every CPU
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Request limits
	MaxSimulations   int `yaml:"max_simulations"`
	MaxTrades        int `yaml:"max_trades"`
	MaxSweepCells    int `yaml:"max_sweep_cells"`
	MaxStreamPaths   int `yaml:"max_stream_paths"`
	MaxResponsePaths int `yaml:"max_response_paths"`

	// AllowedOrigins for the websocket stream; empty means same host only.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Simulation: domain.SimulationParameters{
			StartingBalance: 100,
			WinProbability:  0.5,
			RewardRiskRatio: 2,
			RiskFraction:    0.02,
			TradeCount:      50,
			SimulationCount: 100,
			LiquidationPct:  1,
		},
		Sweep: sweep.DefaultGrid(),
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:             ":8080",
			ShutdownTimeout:  10 * time.Second,
			MaxSimulations:   10000,
			MaxTrades:        1000,
			MaxSweepCells:    400,
			MaxStreamPaths:   10,
			MaxResponsePaths: 100,
		},
	}
}

// Load builds the configuration. path may be empty, in which case MC_CONFIG is consulted.
// A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	// .env never overrides variables already set in the process.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrap(err, "load .env")
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvSeed)); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "incorrect %s=%q (must be an unsigned integer)", EnvSeed, v)
		}
		cfg.Engine.Seed = seed
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "incorrect %s=%q (must be an integer)", EnvWorkers, v)
		}
		cfg.Engine.Workers = workers
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	return nil
}

// Validate checks the simulation parameters, sweep grid and limits.
func (c Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return errors.Wrap(err, "simulation")
	}
	if err := c.Sweep.Validate(); err != nil {
		return errors.Wrap(err, "sweep")
	}
	if c.Engine.Workers < 0 {
		return errors.Errorf("engine.workers must be >= 0, got %d", c.Engine.Workers)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Server.MaxSimulations < 1 || c.Server.MaxTrades < 1 || c.Server.MaxSweepCells < 1 {
		return errors.New("server limits must be >= 1")
	}
	if c.Server.MaxStreamPaths < 0 {
		return errors.Errorf("server.max_stream_paths must be >= 0, got %d", c.Server.MaxStreamPaths)
	}
	if c.Server.MaxResponsePaths < 0 {
		return errors.Errorf("server.max_response_paths must be >= 0, got %d", c.Server.MaxResponsePaths)
	}
	return nil
}
