package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/streamdroplets/droplets-engine/chainregistry"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the Reconciliation Validator over [--from, --to] on --chain",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if flagChain == "" {
		return validationErr("validate", fmt.Errorf("--chain is required"))
	}
	if flagFrom == 0 || flagTo == 0 || flagFrom > flagTo {
		return validationErr("validate", fmt.Errorf("--from and --to block numbers are required with from <= to"))
	}

	ctx := context.Background()
	comps, err := build(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	chain, ok := chainNameToID(flagChain)
	if !ok {
		return validationErr("validate", fmt.Errorf("unknown chain %q", flagChain))
	}

	result, err := comps.reconciler.Reconcile(ctx, uint64(chain), flagFrom, flagTo)
	if err != nil {
		return infraErr("validate", err)
	}

	log.Info().
		Str("run_id", result.RunID).
		Int("matched", result.Matched).
		Int("unmatched_vault", len(result.UnmatchedVault)).
		Int("unmatched_integration", len(result.UnmatchedIntegration)).
		Msg("droplets: validate complete")

	for _, v := range result.UnmatchedVault {
		log.Warn().Str("tx_hash", v.Event.TxHash).Str("address", v.Event.Address).Str("asset", v.Event.Asset).
			Str("shares_delta", v.Event.SharesDelta).Msg("validate: unmatched vault transfer")
	}
	for _, i := range result.UnmatchedIntegration {
		log.Warn().Str("tx_hash", i.Event.TxHash.Hex()).Str("protocol", i.Event.ProtocolID).
			Str("asset", i.AssetSymbol).Str("amount", i.Event.Amount.String()).Msg("validate: unmatched integration event")
	}

	if len(result.UnmatchedVault) > 0 || len(result.UnmatchedIntegration) > 0 {
		return validationErr("validate", fmt.Errorf("%d unmatched vault transfers, %d unmatched integration events",
			len(result.UnmatchedVault), len(result.UnmatchedIntegration)))
	}
	return nil
}

// chainNameToID resolves a --chain flag value (a chainregistry display
// name) back to its ChainID by scanning the known constants directly;
// config's own table is unexported, so the CLI keeps its own tiny copy
// rather than exporting config internals just for this lookup.
func chainNameToID(name string) (chainregistry.ChainID, bool) {
	for _, id := range []chainregistry.ChainID{
		chainregistry.ChainEthereum, chainregistry.ChainArbitrum, chainregistry.ChainOptimism,
		chainregistry.ChainBase, chainregistry.ChainPolygon, chainregistry.ChainAvalanche,
	} {
		if strings.EqualFold(id.String(), name) {
			return id, true
		}
	}
	return 0, false
}
