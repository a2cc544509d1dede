package reconcile

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/integrations"
	"github.com/streamdroplets/droplets-engine/money"
)

// Result is the Reconciliation Validator's output for one run: counts
// of matched pairs plus the full context of anything left unmatched on
// either side (§4.10).
type Result struct {
	RunID                string
	Matched              int
	UnmatchedVault       []VaultTransferRecord
	UnmatchedIntegration []IntegrationRecord
}

// Validator cross-checks vault transfers flagged integration_in/
// integration_out against the Integration Adapter Set's own
// deposit/withdraw/mint/burn events. It only reads; it never mutates
// canonical tables (§4.10).
type Validator struct {
	db           *dbstore.Store
	integrations *integrations.Set
}

// New builds a Validator over db and the configured adapter set.
func New(db *dbstore.Store, integrationSet *integrations.Set) *Validator {
	return &Validator{db: db, integrations: integrationSet}
}

// Reconcile runs one pass over [fromBlock, toBlock] on chainID, driving
// a ReconciliationJob through pending -> processing -> completed|failed
// (§4.10's day-job state machine, scoped to a block range here).
func (v *Validator) Reconcile(ctx context.Context, chainID, fromBlock, toBlock uint64) (*Result, error) {
	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Uint64("chain_id", chainID).Uint64("from_block", fromBlock).Uint64("to_block", toBlock).Msg("reconcile: starting run")

	if _, err := v.db.GetOrCreateReconciliationJob(ctx, chainID, fromBlock, toBlock); err != nil {
		return nil, fmt.Errorf("reconcile: get or create job: %w", err)
	}
	if err := v.db.SetReconciliationJobStatus(ctx, chainID, fromBlock, toBlock, dbstore.JobProcessing, ""); err != nil {
		return nil, fmt.Errorf("reconcile: mark processing: %w", err)
	}

	result, err := v.run(ctx, runID, chainID, fromBlock, toBlock)
	if err != nil {
		_ = v.db.SetReconciliationJobStatus(ctx, chainID, fromBlock, toBlock, dbstore.JobFailed, err.Error())
		return nil, err
	}
	if err := v.db.SetReconciliationJobStatus(ctx, chainID, fromBlock, toBlock, dbstore.JobCompleted, ""); err != nil {
		return nil, fmt.Errorf("reconcile: mark completed: %w", err)
	}
	return result, nil
}

func (v *Validator) run(ctx context.Context, runID string, chainID, fromBlock, toBlock uint64) (*Result, error) {
	vaultEvents, err := v.db.ShareEventsByClassificationInRange(ctx, chainID, fromBlock, toBlock, dbstore.ClassIntegrationIn, dbstore.ClassIntegrationOut)
	if err != nil {
		return nil, fmt.Errorf("reconcile: vault transfers: %w", err)
	}
	vaultRecords := make([]VaultTransferRecord, 0, len(vaultEvents))
	for _, e := range vaultEvents {
		dir := DirectionOut
		if e.Classification == dbstore.ClassIntegrationIn {
			dir = DirectionIn
		}
		vaultRecords = append(vaultRecords, VaultTransferRecord{Event: e, Direction: dir})
	}

	var integrationRecords []IntegrationRecord
	for _, adapter := range v.integrations.All() {
		events, err := adapter.FetchEvents(ctx, fromBlock, toBlock)
		if err != nil {
			return nil, fmt.Errorf("reconcile: fetch events %s: %w", adapter.ProtocolID(), err)
		}
		for _, ev := range events {
			integrationRecords = append(integrationRecords, IntegrationRecord{Event: ev, AssetSymbol: adapter.UnderlyingAsset()})
		}
	}

	integrationRecords = dropZeroAmount(integrationRecords)
	integrationRecords = cancelProtectedPairs(integrationRecords)

	matched, unmatchedVault, unmatchedIntegration, err := match(vaultRecords, integrationRecords)
	if err != nil {
		return nil, err
	}

	log.Info().Str("run_id", runID).Int("matched", matched).Int("unmatched_vault", len(unmatchedVault)).Int("unmatched_integration", len(unmatchedIntegration)).Msg("reconcile: run complete")

	return &Result{
		RunID:                runID,
		Matched:              matched,
		UnmatchedVault:       unmatchedVault,
		UnmatchedIntegration: unmatchedIntegration,
	}, nil
}

// match greedily pairs vault transfers against integration events,
// trying the most specific key first — (normalized_address, asset,
// |amount|) — then falling back to (tx_hash, |amount|) and tx_hash
// alone, the three modes §4.10 calls for across protocols.
func match(vaultRecords []VaultTransferRecord, integrationRecords []IntegrationRecord) (matched int, unmatchedVault []VaultTransferRecord, unmatchedIntegration []IntegrationRecord, err error) {
	byAddrAssetAmt := map[string][]int{}
	byTxAmt := map[string][]int{}
	byTx := map[string][]int{}
	consumed := make(map[int]bool)

	for i, r := range integrationRecords {
		amt := new(big.Int).Abs(r.Event.Amount)
		tx := r.Event.TxHash.Hex()
		byTx[tx] = append(byTx[tx], i)
		byTxAmt[tx+"|"+amt.String()] = append(byTxAmt[tx+"|"+amt.String()], i)
		if r.Event.Mode == integrations.MatchAddressAmount {
			addrKey := normalizeAddress(r.Event.User.Hex()) + "|" + r.Asset() + "|" + amt.String()
			byAddrAssetAmt[addrKey] = append(byAddrAssetAmt[addrKey], i)
		}
	}

	for _, vr := range vaultRecords {
		delta, perr := money.ParseAmount(vr.Event.SharesDelta)
		if perr != nil {
			return 0, nil, nil, fmt.Errorf("reconcile: parse shares delta: %w", perr)
		}
		amt := new(big.Int).Abs(delta)
		tx := vr.Event.TxHash

		if _, ok := popMatch(byAddrAssetAmt, normalizeAddress(vr.Event.Address)+"|"+vr.Event.Asset+"|"+amt.String(), consumed); ok {
			matched++
			continue
		}
		if _, ok := popMatch(byTxAmt, tx+"|"+amt.String(), consumed); ok {
			matched++
			continue
		}
		if _, ok := popMatch(byTx, tx, consumed); ok {
			matched++
			continue
		}
		unmatchedVault = append(unmatchedVault, vr)
	}

	for i, r := range integrationRecords {
		if !consumed[i] {
			unmatchedIntegration = append(unmatchedIntegration, r)
		}
	}
	return matched, unmatchedVault, unmatchedIntegration, nil
}

// popMatch returns the first not-yet-consumed index in bucket[key] and
// marks it consumed.
func popMatch(bucket map[string][]int, key string, consumed map[int]bool) (int, bool) {
	for _, idx := range bucket[key] {
		if !consumed[idx] {
			consumed[idx] = true
			return idx, true
		}
	}
	return 0, false
}
