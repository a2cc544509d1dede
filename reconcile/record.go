// Package reconcile implements the Reconciliation Validator (C12):
// pairs vault transfers classified integration_in/integration_out
// against the integration protocols' own deposit/withdraw/mint/burn
// events over a block range, surfacing anything left unmatched. It
// never writes to a canonical table (§4.10). Grounded on the teacher's
// automation/triggers.go TriggerManager: a registry of per-kind rules
// dispatched by a switch over a Condition's Type, here a switch over
// each protocol's matching Mode instead of a trigger's TriggerType.
package reconcile

import (
	"strings"

	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/integrations"
)

// Direction distinguishes which side of the vault a transfer crossed.
type Direction string

const (
	DirectionIn  Direction = "in"  // classification integration_in
	DirectionOut Direction = "out" // classification integration_out
)

// VaultTransferRecord is one vault-side ShareEvent already classified
// integration_in/integration_out, the half of a pair the Log Ingester
// already persisted.
type VaultTransferRecord struct {
	Event     dbstore.ShareEvent
	Direction Direction
}

// IntegrationRecord is one integration-protocol-side event, the other
// half of a pair. AssetSymbol is the droplet asset (e.g. "A_ETH") the
// owning adapter's UnderlyingAsset() reports, enriched at fetch time so
// matching can key on (address, asset, amount) without a second lookup.
type IntegrationRecord struct {
	Event       integrations.ProtocolEvent
	AssetSymbol string
}

// Asset returns the record's droplet asset symbol.
func (r IntegrationRecord) Asset() string { return r.AssetSymbol }

// normalizeAddress lowercases a hex address for cross-source comparison
// — the vault side stores addresses as lowercased hex strings (§3),
// while go-ethereum's common.Address.Hex() returns checksummed case.
func normalizeAddress(a string) string {
	return strings.ToLower(a)
}
