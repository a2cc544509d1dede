package reconcile

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/integrations"
)

func vaultEvent(address, asset, txHash, sharesDelta string, class dbstore.Classification) VaultTransferRecord {
	dir := DirectionOut
	if class == dbstore.ClassIntegrationIn {
		dir = DirectionIn
	}
	return VaultTransferRecord{
		Event: dbstore.ShareEvent{
			Address:        address,
			Asset:          asset,
			TxHash:         txHash,
			SharesDelta:    sharesDelta,
			Classification: class,
		},
		Direction: dir,
	}
}

func TestMatchByAddressAssetAmount(t *testing.T) {
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")
	vault := []VaultTransferRecord{
		vaultEvent("0x1111111111111111111111111111111111111111", "A_ETH", "0xaa", "-1000", dbstore.ClassIntegrationOut),
	}
	integration := []IntegrationRecord{
		{Event: integrations.ProtocolEvent{TxHash: common.HexToHash("0xbb"), User: user, Amount: big.NewInt(1000), Kind: integrations.EventDeposit, Mode: integrations.MatchAddressAmount}, AssetSymbol: "A_ETH"},
	}

	matched, unmatchedVault, unmatchedIntegration, err := match(vault, integration)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if matched != 1 || len(unmatchedVault) != 0 || len(unmatchedIntegration) != 0 {
		t.Errorf("matched=%d unmatchedVault=%d unmatchedIntegration=%d, want 1/0/0", matched, len(unmatchedVault), len(unmatchedIntegration))
	}
}

func TestMatchByTxHashAmountProxy(t *testing.T) {
	proxy := common.HexToAddress("0x9999999999999999999999999999999999999999")
	vault := []VaultTransferRecord{
		vaultEvent("0x1111111111111111111111111111111111111111", "A_ETH", common.HexToHash("0xcc").Hex(), "500", dbstore.ClassIntegrationIn),
	}
	integration := []IntegrationRecord{
		{Event: integrations.ProtocolEvent{TxHash: common.HexToHash("0xcc"), User: proxy, Amount: big.NewInt(500), Kind: integrations.EventDeposit, Mode: integrations.MatchTxHashAmount}, AssetSymbol: "A_ETH"},
	}

	matched, unmatchedVault, unmatchedIntegration, err := match(vault, integration)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if matched != 1 || len(unmatchedVault) != 0 || len(unmatchedIntegration) != 0 {
		t.Errorf("matched=%d unmatchedVault=%d unmatchedIntegration=%d, want 1/0/0", matched, len(unmatchedVault), len(unmatchedIntegration))
	}
}

func TestMatchByTxHashOnlyLP(t *testing.T) {
	vault := []VaultTransferRecord{
		vaultEvent("0x1111111111111111111111111111111111111111", "A_ETH", common.HexToHash("0xdd").Hex(), "-250", dbstore.ClassIntegrationOut),
	}
	integration := []IntegrationRecord{
		{Event: integrations.ProtocolEvent{TxHash: common.HexToHash("0xdd"), Amount: big.NewInt(9999), Kind: integrations.EventBurn, Mode: integrations.MatchTxHashOnly}, AssetSymbol: "A_ETH"},
	}

	matched, unmatchedVault, unmatchedIntegration, err := match(vault, integration)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if matched != 1 || len(unmatchedVault) != 0 || len(unmatchedIntegration) != 0 {
		t.Errorf("matched=%d unmatchedVault=%d unmatchedIntegration=%d, want 1/0/0", matched, len(unmatchedVault), len(unmatchedIntegration))
	}
}

func TestMatchLeavesUnmatchedBothSides(t *testing.T) {
	vault := []VaultTransferRecord{
		vaultEvent("0x1111111111111111111111111111111111111111", "A_ETH", "0xee", "-700", dbstore.ClassIntegrationOut),
	}
	integration := []IntegrationRecord{
		{Event: integrations.ProtocolEvent{TxHash: common.HexToHash("0xff"), User: common.HexToAddress("0x2222222222222222222222222222222222222222"), Amount: big.NewInt(300), Kind: integrations.EventDeposit, Mode: integrations.MatchAddressAmount}, AssetSymbol: "A_ETH"},
	}

	matched, unmatchedVault, unmatchedIntegration, err := match(vault, integration)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if matched != 0 || len(unmatchedVault) != 1 || len(unmatchedIntegration) != 1 {
		t.Errorf("matched=%d unmatchedVault=%d unmatchedIntegration=%d, want 0/1/1", matched, len(unmatchedVault), len(unmatchedIntegration))
	}
}
