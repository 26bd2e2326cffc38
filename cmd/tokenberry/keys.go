package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blockberries/tokenberry/types"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage account keys",
	Long:  `Commands for generating and inspecting account keys and addresses.`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate [output-file]",
	Short: "Generate a new account key",
	Long: `Generate a new Ed25519 keypair and its derived account address.

If no output file is specified, the key is printed to stdout. The
address is what goes into the genesis configuration and transaction
signer fields.

Example:
  tokenberry keys generate
  tokenberry keys generate owner_key.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeysGenerate,
}

var keysShowCmd = &cobra.Command{
	Use:   "show <key-file>",
	Short: "Show the address for a key file",
	Long: `Display the public key and derived account address from a key file.

Example:
  tokenberry keys show owner_key.json`,
	Args: cobra.ExactArgs(1),
	RunE: runKeysShow,
}

func init() {
	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysShowCmd)
	rootCmd.AddCommand(keysCmd)
}

// AccountKey represents an account keypair with its derived address.
type AccountKey struct {
	PrivKey string `json:"priv_key"`
	PubKey  string `json:"pub_key"`
	Address string `json:"address"`
}

func runKeysGenerate(cmd *cobra.Command, args []string) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	key := AccountKey{
		PrivKey: hex.EncodeToString(priv),
		PubKey:  hex.EncodeToString(pub),
		Address: types.DeriveAddress(pub).String(),
	}

	data, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling key: %w", err)
	}

	if len(args) == 0 {
		fmt.Println(string(data))
		fmt.Fprintf(cmd.ErrOrStderr(), "\nAddress: %s\n", key.Address)
	} else {
		outputPath := args[0]
		if err := os.WriteFile(outputPath, data, 0600); err != nil {
			return fmt.Errorf("writing key file: %w", err)
		}
		fmt.Printf("Generated key: %s\n", outputPath)
		fmt.Printf("Address: %s\n", key.Address)
	}

	return nil
}

func runKeysShow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading key file: %w", err)
	}

	var key AccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return fmt.Errorf("parsing key file: %w", err)
	}

	pubBytes, err := hex.DecodeString(key.PubKey)
	if err != nil {
		return fmt.Errorf("decoding public key: %w", err)
	}

	fmt.Printf("Public Key: %s\n", key.PubKey)
	fmt.Printf("Address:    %s\n", types.DeriveAddress(pubBytes).String())

	return nil
}
