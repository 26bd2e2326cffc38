package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blockberries/tokenberry/config"
	"github.com/blockberries/tokenberry/node"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the token engine",
	Long: `Start the Tokenberry engine with the specified configuration.

The engine runs until interrupted (Ctrl+C) or it receives a termination
signal. On a fresh data directory the chain is initialized from the
genesis section of the configuration; otherwise it resumes from the last
committed state version.

Example:
  tokenberry start --config config.toml`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := node.NewLogger(cfg.Logging)
	logger.Info("Starting Tokenberry",
		"chain_id", cfg.Chain.ChainID,
		"token", cfg.Token.Symbol,
		"version", Version,
	)

	n, err := node.NewNode(cfg, node.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}
	if err := n.Start(); err != nil {
		return fmt.Errorf("starting node: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received signal, shutting down", "signal", sig)

	if err := n.Stop(); err != nil {
		logger.Error("Error stopping node", "error", err)
		return fmt.Errorf("stopping node: %w", err)
	}

	logger.Info("Node stopped gracefully")
	return nil
}
