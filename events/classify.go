package events

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/dbstore"
)

// ClassifyInput carries everything the ordered rules in §4.3 need beyond
// the decoded Transfer itself: whether this chain is Chain-E, whether
// this transaction also carries an OFTSent/OFTReceived log, the vault's
// own address, and the configured integration-contract set.
type ClassifyInput struct {
	From, To         common.Address
	VaultAddress     common.Address
	IsCanonicalChain bool
	HasOFTInSameTx   bool
	IntegrationSet   map[common.Address]bool
}

func isZero(a common.Address) bool {
	return a == common.Address{}
}

var burnAddress = common.HexToAddress(dbstore.BurnAddress)

func isBurn(a common.Address) bool {
	return isZero(a) || strings.EqualFold(a.Hex(), burnAddress.Hex())
}

// Classify applies the ordered transfer-classification rules from §4.3:
//  1. from == 0x0 -> mint, unless the receiver is the vault itself (ignored).
//  2. to == 0x0 or burn address -> burn.
//  3. from/to is this contract's own address on a non-E chain, paired
//     with an OFTSent/OFTReceived in the same tx -> bridge_burn/bridge_mint.
//  4. to/from is in the integration set -> integration_out/integration_in
//     (shares leaving the user for an integration / coming back from one).
//  5. otherwise -> transfer_user.
//
// The bool return is false when the transfer must be ignored entirely
// (rule 1's vault-self-mint carve-out): callers must not persist a
// ShareEvent for it.
func Classify(in ClassifyInput) (dbstore.Classification, bool) {
	if isZero(in.From) {
		if in.To == in.VaultAddress {
			return "", false
		}
		return dbstore.ClassMint, true
	}
	if isBurn(in.To) {
		return dbstore.ClassBurnUnstake, true
	}
	if !in.IsCanonicalChain && in.HasOFTInSameTx {
		if in.From == in.VaultAddress {
			return dbstore.ClassBridgeBurn, true
		}
		if in.To == in.VaultAddress {
			return dbstore.ClassBridgeMint, true
		}
	}
	if in.IntegrationSet[in.To] {
		return dbstore.ClassIntegrationOut, true
	}
	if in.IntegrationSet[in.From] {
		return dbstore.ClassIntegrationIn, true
	}
	return dbstore.ClassTransferUser, true
}
