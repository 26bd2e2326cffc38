package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Chain.ChainID = "test-chain"
	cfg.Token.Symbol = "TST"
	cfg.Genesis.Owner = "0a0b"
	cfg.Indexer.Backend = IndexerBackendBadger

	require.NoError(t, WriteConfigFile(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "test-chain", loaded.Chain.ChainID)
	assert.Equal(t, "TST", loaded.Token.Symbol)
	assert.Equal(t, "0a0b", loaded.Genesis.Owner)
	assert.Equal(t, IndexerBackendBadger, loaded.Indexer.Backend)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is { not toml"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty chain id",
			mutate:  func(c *Config) { c.Chain.ChainID = "" },
			wantErr: "chain_id",
		},
		{
			name:    "empty token name",
			mutate:  func(c *Config) { c.Token.Name = "" },
			wantErr: "token name",
		},
		{
			name:    "decimals too large",
			mutate:  func(c *Config) { c.Token.Decimals = 19 },
			wantErr: "decimals",
		},
		{
			name:    "negative cache size",
			mutate:  func(c *Config) { c.StateStore.CacheSize = -1 },
			wantErr: "cache_size",
		},
		{
			name:    "unknown indexer backend",
			mutate:  func(c *Config) { c.Indexer.Backend = "sqlite" },
			wantErr: "indexer backend",
		},
		{
			name: "indexer backend without path",
			mutate: func(c *Config) {
				c.Indexer.Backend = IndexerBackendLevelDB
				c.Indexer.Path = ""
			},
			wantErr: "indexer path",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "chatty" },
			wantErr: "log level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIndexerNoneNeedsNoPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indexer.Backend = IndexerBackendNone
	cfg.Indexer.Path = ""
	require.NoError(t, cfg.Validate())
}

func TestEnsureDataDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.StateStore.Path = filepath.Join(dir, "state")
	cfg.Indexer.Path = filepath.Join(dir, "index")

	require.NoError(t, cfg.EnsureDataDirs())
	assert.DirExists(t, cfg.StateStore.Path)
	assert.DirExists(t, cfg.Indexer.Path)
}
