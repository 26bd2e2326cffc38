package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/tokenberry/abi"
	"github.com/blockberries/tokenberry/app"
	"github.com/blockberries/tokenberry/config"
	"github.com/blockberries/tokenberry/logging"
	"github.com/blockberries/tokenberry/statestore"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Inspect the committed state",
	Long: `Open the data directory and print the last committed state.

The engine must not be running; status reads the state store directly.

Example:
  tokenberry status
  tokenberry status --json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

// Status summarizes the committed state of a deployment.
type Status struct {
	ChainID      string `json:"chain_id"`
	TokenName    string `json:"token_name"`
	TokenSymbol  string `json:"token_symbol"`
	StateVersion int64  `json:"state_version"`
	AppHash      string `json:"app_hash"`
	TotalSupply  uint64 `json:"total_supply"`
	Paused       bool   `json:"paused"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.StateStore.Path == "" {
		return fmt.Errorf("state store is in-memory; nothing to inspect")
	}

	store, err := statestore.NewIAVLStore(cfg.StateStore.Path, cfg.StateStore.CacheSize)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer store.Close()

	if store.Version() == 0 {
		return fmt.Errorf("state store is empty; run \"tokenberry start\" first")
	}

	application, err := app.NewApp(cfg, store, nil, logging.NewNopLogger())
	if err != nil {
		return fmt.Errorf("creating application: %w", err)
	}
	if err := application.LoadState(); err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	info := application.Info()
	status := Status{
		ChainID:      cfg.Chain.ChainID,
		TokenName:    info.Name,
		TokenSymbol:  cfg.Token.Symbol,
		StateVersion: info.StateVersion,
		AppHash:      hex.EncodeToString(info.AppHash),
	}

	ctx := context.Background()
	if resp := application.Query(ctx, &abi.QueryRequest{Path: app.QueryTotalSupply}); resp.IsOK() {
		if err := cramberry.Unmarshal(resp.Value, &status.TotalSupply); err != nil {
			return fmt.Errorf("decoding supply: %w", err)
		}
	}
	if resp := application.Query(ctx, &abi.QueryRequest{Path: app.QueryPaused}); resp.IsOK() {
		if err := cramberry.Unmarshal(resp.Value, &status.Paused); err != nil {
			return fmt.Errorf("decoding pause state: %w", err)
		}
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling status: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Chain ID:      %s\n", status.ChainID)
	fmt.Printf("Token:         %s (%s)\n", status.TokenName, status.TokenSymbol)
	fmt.Printf("State version: %d\n", status.StateVersion)
	fmt.Printf("App hash:      %s\n", status.AppHash)
	fmt.Printf("Total supply:  %d\n", status.TotalSupply)
	fmt.Printf("Paused:        %v\n", status.Paused)

	return nil
}
