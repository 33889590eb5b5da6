// Command otmpd runs the OxideTalis Messaging Protocol homeserver: the
// authentication/session substrate (crypto, noncecache, registry, events,
// chatrequest, orchestrator) wired to a persistence backend and served
// over WebSocket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "otmpd",
	Short: "OxideTalis Messaging Protocol homeserver",
	Long: `otmpd runs the OTMP homeserver core: secp256k1/HMAC signed-event
authentication, a live connection registry with ping/pong liveness, and the
whitelist/blacklist-aware chat-request state machine, backed by a pluggable
persistence layer.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (overrides environment-based lookup)")

	// Commands are registered in their respective files:
	// - serve.go: serveCmd
	// - migrate.go: migrateCmd
	// - keygen.go: keygenCmd
}
