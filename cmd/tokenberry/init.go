package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blockberries/tokenberry/config"
)

var (
	initChainID  string
	initDataDir  string
	initOwner    string
	initAgents   []string
	initOverride bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new deployment",
	Long: `Initialize a new Tokenberry deployment with a configuration file and
data directories.

This command creates:
  - config.toml: Deployment configuration
  - data/: Data directories for state and the transaction index

The owner address controls governance; agent addresses may manage
identities and perform supervised operations. Generate addresses with
"tokenberry keys generate".

Example:
  tokenberry init --chain-id mychain --owner <hex-address>`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initChainID, "chain-id", "tokenberry-local", "chain ID for the deployment")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", ".", "directory for configuration and data")
	initCmd.Flags().StringVar(&initOwner, "owner", "", "hex-encoded address of the initial token owner (required)")
	initCmd.Flags().StringArrayVar(&initAgents, "agent", nil, "hex-encoded agent address (repeatable)")
	initCmd.Flags().BoolVar(&initOverride, "force", false, "override existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := initDataDir
	if dataDir == "" {
		dataDir = "."
	}

	configPath := filepath.Join(dataDir, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !initOverride {
		return fmt.Errorf("config.toml already exists; use --force to override")
	}

	if initOwner == "" {
		return fmt.Errorf("an owner address is required; generate one with \"tokenberry keys generate\"")
	}

	cfg := config.DefaultConfig()
	cfg.Chain.ChainID = initChainID
	cfg.Genesis.Owner = initOwner
	cfg.Genesis.Agents = initAgents
	cfg.StateStore.Path = filepath.Join(dataDir, "data", "state")
	cfg.Indexer.Path = filepath.Join(dataDir, "data", "index")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return err
	}
	if err := config.WriteConfigFile(configPath, cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("Initialized Tokenberry deployment\n")
	fmt.Printf("  Chain ID:  %s\n", initChainID)
	fmt.Printf("  Owner:     %s\n", initOwner)
	fmt.Printf("  Agents:    %d\n", len(initAgents))
	fmt.Printf("  Config:    %s\n", configPath)
	fmt.Printf("  Data dir:  %s\n", filepath.Join(dataDir, "data"))

	return nil
}
