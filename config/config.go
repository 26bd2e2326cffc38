// Package config provides TOML configuration for a tokenberry deployment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for a tokenberry instance.
type Config struct {
	Chain      ChainConfig      `toml:"chain"`
	Token      TokenConfig      `toml:"token"`
	Genesis    GenesisConfig    `toml:"genesis"`
	StateStore StateStoreConfig `toml:"statestore"`
	Indexer    IndexerConfig    `toml:"indexer"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Tracing    TracingConfig    `toml:"tracing"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ChainConfig identifies the deployment.
type ChainConfig struct {
	// ChainID is the unique identifier for this deployment.
	ChainID string `toml:"chain_id"`
}

// TokenConfig contains token metadata fixed at initialization.
type TokenConfig struct {
	// Name is the token name.
	Name string `toml:"name"`

	// Symbol is the token symbol.
	Symbol string `toml:"symbol"`

	// Decimals is the number of decimals in token amounts.
	Decimals uint8 `toml:"decimals"`
}

// GenesisConfig contains the initial role assignments.
type GenesisConfig struct {
	// Owner is the hex-encoded address of the initial token owner.
	Owner string `toml:"owner"`

	// Agents are hex-encoded addresses granted the agent role at genesis.
	Agents []string `toml:"agents"`
}

// StateStoreConfig contains versioned state storage configuration.
type StateStoreConfig struct {
	// Path is the directory for persistent state. Empty means in-memory.
	Path string `toml:"path"`

	// CacheSize is the number of tree nodes to cache in memory.
	CacheSize int `toml:"cache_size"`
}

// Indexer backend names.
const (
	IndexerBackendLevelDB = "leveldb"
	IndexerBackendBadger  = "badger"
	IndexerBackendNone    = "none"
)

// IndexerConfig contains transaction indexer configuration.
type IndexerConfig struct {
	// Backend selects the indexer implementation: "leveldb", "badger",
	// or "none" to disable indexing.
	Backend string `toml:"backend"`

	// Path is the directory for the index database.
	Path string `toml:"path"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled turns on Prometheus metrics collection.
	Enabled bool `toml:"enabled"`

	// ListenAddr is the address for the metrics HTTP endpoint.
	ListenAddr string `toml:"listen_addr"`

	// Namespace is the metrics namespace prefix.
	Namespace string `toml:"namespace"`
}

// TracingConfig contains execution tracing configuration.
type TracingConfig struct {
	// Enabled turns on span collection for transaction execution.
	Enabled bool `toml:"enabled"`

	// Exporter selects where spans go: "stdout", "otlp", or "none".
	Exporter string `toml:"exporter"`

	// Endpoint is the collector address for the otlp exporter.
	Endpoint string `toml:"endpoint"`

	// SampleRate is the fraction of traces to sample, 0 to 1.
	SampleRate float64 `toml:"sample_rate"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, or error.
	Level string `toml:"level"`

	// Format is the output format: "text" or "json".
	Format string `toml:"format"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Chain: ChainConfig{
			ChainID: "tokenberry-local",
		},
		Token: TokenConfig{
			Name:     "Tokenberry",
			Symbol:   "TBR",
			Decimals: 6,
		},
		StateStore: StateStoreConfig{
			Path:      "data/state",
			CacheSize: 10000,
		},
		Indexer: IndexerConfig{
			Backend: IndexerBackendLevelDB,
			Path:    "data/index",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
			Namespace:  "tokenberry",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "stdout",
			Endpoint:   "localhost:4317",
			SampleRate: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a TOML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// WriteConfigFile writes the configuration to a TOML file.
func WriteConfigFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Chain.ChainID == "" {
		return errors.New("chain_id must not be empty")
	}
	if err := c.Token.Validate(); err != nil {
		return err
	}
	if err := c.StateStore.Validate(); err != nil {
		return err
	}
	if err := c.Indexer.Validate(); err != nil {
		return err
	}
	if err := c.Tracing.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks the tracing configuration.
func (c *TracingConfig) Validate() error {
	switch c.Exporter {
	case "stdout", "otlp", "otlp-grpc", "none", "":
	default:
		return fmt.Errorf("unknown tracing exporter %q", c.Exporter)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("tracing sample_rate must be between 0 and 1, got %g", c.SampleRate)
	}
	return nil
}

// Validate checks the token metadata.
func (c *TokenConfig) Validate() error {
	if c.Name == "" {
		return errors.New("token name must not be empty")
	}
	if c.Symbol == "" {
		return errors.New("token symbol must not be empty")
	}
	if c.Decimals > 18 {
		return fmt.Errorf("token decimals must be at most 18, got %d", c.Decimals)
	}
	return nil
}

// Validate checks the state store configuration.
func (c *StateStoreConfig) Validate() error {
	if c.CacheSize < 0 {
		return fmt.Errorf("statestore cache_size must not be negative, got %d", c.CacheSize)
	}
	return nil
}

// Validate checks the indexer configuration.
func (c *IndexerConfig) Validate() error {
	switch c.Backend {
	case IndexerBackendLevelDB, IndexerBackendBadger:
		if c.Path == "" {
			return fmt.Errorf("indexer path must not be empty for backend %q", c.Backend)
		}
		return nil
	case IndexerBackendNone, "":
		return nil
	default:
		return fmt.Errorf("unknown indexer backend %q", c.Backend)
	}
}

// Validate checks the logging configuration.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	switch c.Format {
	case "text", "json", "":
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	return nil
}

// EnsureDataDirs creates the data directories referenced by the config.
func (c *Config) EnsureDataDirs() error {
	dirs := []string{c.StateStore.Path}
	if c.Indexer.Backend == IndexerBackendLevelDB || c.Indexer.Backend == IndexerBackendBadger {
		dirs = append(dirs, c.Indexer.Path)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}
	return nil
}
