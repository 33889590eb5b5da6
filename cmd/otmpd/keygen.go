package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxidetalis-go/otmpd/crypto"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a fresh server identity key pair",
	Long: `Generates a secp256k1 key pair and prints both halves base58-encoded.
The private key is the value expected at server.private_key in config;
the public key is what clients need to compute a shared secret with this
server during the upgrade handshake.`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	kp, err := crypto.NewKeyPair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	fmt.Printf("private_key: %s\n", kp.PrivateKeyBase58())
	fmt.Printf("public_key:  %s\n", kp.PublicKeyBase58())
	return nil
}
