// cmd/nexusctl — command-line client for the Guava Nexus API.
//
// It drives the full wallet-signature flow locally through the Go SDK:
// fetch a nonce, build the canonical message, sign it with a hex-encoded
// secp256k1 private key, and submit the operation. The key is read from
// --key or NEXUS_PRIVATE_KEY.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guava-nexus/nexus/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	keyHex    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nexusctl",
	Short: "Guava Nexus CLI",
	Long: `nexusctl is the command-line client for the Guava Nexus API.

It signs authorization messages locally with your wallet key and submits
hashname claims, hashroot requests and resolutions, and seed updates.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if keyHex == "" {
			keyHex = os.Getenv("NEXUS_PRIVATE_KEY")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Nexus server URL")
	rootCmd.PersistentFlags().StringVar(&keyHex, "key", "", "hex-encoded secp256k1 private key (default $NEXUS_PRIVATE_KEY)")

	rootCmd.AddCommand(addressCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(createSeedCmd)
	rootCmd.AddCommand(updateSeedCmd)
	rootCmd.AddCommand(versionCmd)
}

// newClient builds an SDK client with the configured wallet. Commands that
// only read can pass withWallet=false and run keyless.
func newClient(withWallet bool) (*client.Client, error) {
	opts := []client.Option{}
	if withWallet {
		if keyHex == "" {
			return nil, errors.New("no private key: pass --key or set NEXUS_PRIVATE_KEY")
		}
		opts = append(opts, client.WithPrivateKey(keyHex))
	}
	return client.New(serverURL, opts...)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// ── address ──────────────────────────────────────────────────────────────────

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the wallet address derived from the configured key",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		fmt.Println(c.Wallet().Address())
		return nil
	},
}

// ── claim ────────────────────────────────────────────────────────────────────

var claimCmd = &cobra.Command{
	Use:   "claim <handle>",
	Short: "Claim an unowned hashname for your wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		result, err := c.ClaimHashName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

// ── lookup ───────────────────────────────────────────────────────────────────

var lookupCmd = &cobra.Command{
	Use:   "lookup <handle>",
	Short: "Show public info for a hashname",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		hn, err := c.GetHashName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(hn)
	},
}

// ── request ──────────────────────────────────────────────────────────────────

var (
	requestSeedID   int64
	requestHashName string
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request attachment of a seed to a hashname",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		result, err := c.RequestHashRoot(cmd.Context(), requestSeedID, requestHashName)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

// ── resolve ──────────────────────────────────────────────────────────────────

var (
	resolveRequestID int64
	resolveAction    string
	resolveNote      string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Accept or reject a pending hashroot request",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		result, err := c.ResolveHashRoot(cmd.Context(), resolveRequestID, resolveAction, resolveNote)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

// ── create-seed / update-seed ────────────────────────────────────────────────

var (
	createSeedContent string
	updateSeedID      int64
	updateSeedContent string
)

var createSeedCmd = &cobra.Command{
	Use:   "create-seed",
	Short: "Create a new seed attributed to your wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		seed, err := c.CreateSeed(cmd.Context(), createSeedContent)
		if err != nil {
			return err
		}
		return printJSON(seed)
	},
}

var updateSeedCmd = &cobra.Command{
	Use:   "update-seed",
	Short: "Publish a new version of a seed you authored",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		seed, err := c.UpdateSeed(cmd.Context(), updateSeedID, updateSeedContent)
		if err != nil {
			return err
		}
		return printJSON(seed)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the nexusctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("nexusctl", version)
	},
}

func init() {
	requestCmd.Flags().Int64Var(&requestSeedID, "seed", 0, "seed id to attach")
	requestCmd.Flags().StringVar(&requestHashName, "hashname", "", "hashname handle to attach to")
	requestCmd.MarkFlagRequired("seed")     //nolint:errcheck
	requestCmd.MarkFlagRequired("hashname") //nolint:errcheck

	resolveCmd.Flags().Int64Var(&resolveRequestID, "request", 0, "request id to resolve")
	resolveCmd.Flags().StringVar(&resolveAction, "action", "", "accept or reject")
	resolveCmd.Flags().StringVar(&resolveNote, "note", "", "optional decision note")
	resolveCmd.MarkFlagRequired("request") //nolint:errcheck
	resolveCmd.MarkFlagRequired("action")  //nolint:errcheck

	createSeedCmd.Flags().StringVar(&createSeedContent, "content", "", "seed content")
	createSeedCmd.MarkFlagRequired("content") //nolint:errcheck

	updateSeedCmd.Flags().Int64Var(&updateSeedID, "seed", 0, "seed id to update")
	updateSeedCmd.Flags().StringVar(&updateSeedContent, "content", "", "new seed content")
	updateSeedCmd.MarkFlagRequired("seed")    //nolint:errcheck
	updateSeedCmd.MarkFlagRequired("content") //nolint:errcheck
}
