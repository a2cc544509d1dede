package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/streamdroplets/droplets-engine/logging"
)

var rootCmd = &cobra.Command{
	Use:           "droplets",
	Short:         "Droplets engine operator CLI",
	Long:          "Operates the droplets loyalty-metric engine: runs the ingest/snapshot daemon or drives one-shot backfill, reconciliation, and reporting commands.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagAsset string
	flagChain string
	flagFrom  uint64
	flagTo    uint64
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAsset, "asset", "", "asset symbol, e.g. A_ETH")
	rootCmd.PersistentFlags().StringVar(&flagChain, "chain", "", "chain name, e.g. ETHEREUM")
	rootCmd.PersistentFlags().Uint64Var(&flagFrom, "from", 0, "range start (block number or unix seconds, command-dependent)")
	rootCmd.PersistentFlags().Uint64Var(&flagTo, "to", 0, "range end (block number or unix seconds, command-dependent)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(backfillPricesCmd)
	rootCmd.AddCommand(backfillEventsCmd)
	rootCmd.AddCommand(recalcDropletsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statsCmd)

	logging.Init(logging.Options{JSON: os.Getenv("LOG_JSON") == "true", Level: envOr("LOG_LEVEL", "info")})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// exitCode maps an error to spec §6's CLI contract: 0 success, 1
// validation failure, 2 infra failure. Errors built in wiring.go and
// validate.go are prefixed accordingly; anything else is treated as an
// infra failure since it means something broke before a validation
// verdict was even reached.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if strings.HasPrefix(err.Error(), "validation:") {
		return 1
	}
	return 2
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
