package app

import (
	"encoding/hex"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/tokenberry/config"
	"github.com/blockberries/tokenberry/types"
)

// GenesisState is the token application's genesis payload, carried opaque
// in Genesis.AppState.
type GenesisState struct {
	// Owner is the initial owner address. Required.
	Owner types.Address

	// Agents are addresses granted the agent role at genesis.
	Agents []types.Address
}

// Validate checks the genesis state.
func (g *GenesisState) Validate() error {
	if g.Owner.IsZero() {
		return fmt.Errorf("%w: genesis owner is the null address", types.ErrInvalidArgument)
	}
	for _, agent := range g.Agents {
		if agent.IsZero() {
			return fmt.Errorf("%w: genesis agent is the null address", types.ErrInvalidArgument)
		}
	}
	return nil
}

// Encode marshals the genesis state for Genesis.AppState.
func (g *GenesisState) Encode() ([]byte, error) {
	data, err := cramberry.Marshal(*g)
	if err != nil {
		return nil, fmt.Errorf("marshaling genesis state: %w", err)
	}
	return data, nil
}

// DecodeGenesisState parses Genesis.AppState.
func DecodeGenesisState(data []byte) (*GenesisState, error) {
	var g GenesisState
	if err := cramberry.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("unmarshaling genesis state: %w", err)
	}
	return &g, nil
}

// GenesisFromConfig builds the genesis state from the hex-encoded
// addresses in the configuration file.
func GenesisFromConfig(cfg *config.Config) (*GenesisState, error) {
	owner, err := parseAddress(cfg.Genesis.Owner)
	if err != nil {
		return nil, fmt.Errorf("genesis owner: %w", err)
	}
	agents := make([]types.Address, 0, len(cfg.Genesis.Agents))
	for i, raw := range cfg.Genesis.Agents {
		agent, err := parseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("genesis agent %d: %w", i, err)
		}
		agents = append(agents, agent)
	}

	g := &GenesisState{Owner: owner, Agents: agents}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func parseAddress(s string) (types.Address, error) {
	var addr types.Address
	raw, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("%w: %q is not hex", types.ErrInvalidArgument, s)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("%w: address must be %d bytes, got %d", types.ErrInvalidArgument, len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}
