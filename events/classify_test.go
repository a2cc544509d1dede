package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/dbstore"
)

var (
	vault = common.HexToAddress("0x1111111111111111111111111111111111111111")
	alice = common.HexToAddress("0x2222222222222222222222222222222222222222")
	bob   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	integ = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

func TestClassifyMint(t *testing.T) {
	class, ok := Classify(ClassifyInput{From: common.Address{}, To: alice, VaultAddress: vault})
	if !ok || class != dbstore.ClassMint {
		t.Errorf("expected mint, got %v ok=%v", class, ok)
	}
}

func TestClassifyMintToVaultIgnored(t *testing.T) {
	_, ok := Classify(ClassifyInput{From: common.Address{}, To: vault, VaultAddress: vault})
	if ok {
		t.Error("expected vault-self-mint to be ignored")
	}
}

func TestClassifyBurn(t *testing.T) {
	class, ok := Classify(ClassifyInput{From: alice, To: common.Address{}, VaultAddress: vault})
	if !ok || class != dbstore.ClassBurnUnstake {
		t.Errorf("expected burn_unstake, got %v ok=%v", class, ok)
	}
}

func TestClassifyBridge(t *testing.T) {
	class, ok := Classify(ClassifyInput{From: vault, To: alice, VaultAddress: vault, IsCanonicalChain: false, HasOFTInSameTx: true})
	if !ok || class != dbstore.ClassBridgeBurn {
		t.Errorf("expected bridge_burn, got %v ok=%v", class, ok)
	}

	class, ok = Classify(ClassifyInput{From: alice, To: vault, VaultAddress: vault, IsCanonicalChain: false, HasOFTInSameTx: true})
	if !ok || class != dbstore.ClassBridgeMint {
		t.Errorf("expected bridge_mint, got %v ok=%v", class, ok)
	}
}

func TestClassifyIntegration(t *testing.T) {
	set := map[common.Address]bool{integ: true}
	class, ok := Classify(ClassifyInput{From: alice, To: integ, VaultAddress: vault, IntegrationSet: set})
	if !ok || class != dbstore.ClassIntegrationOut {
		t.Errorf("expected integration_out, got %v ok=%v", class, ok)
	}

	class, ok = Classify(ClassifyInput{From: integ, To: alice, VaultAddress: vault, IntegrationSet: set})
	if !ok || class != dbstore.ClassIntegrationIn {
		t.Errorf("expected integration_in, got %v ok=%v", class, ok)
	}
}

func TestClassifyUserTransfer(t *testing.T) {
	class, ok := Classify(ClassifyInput{From: alice, To: bob, VaultAddress: vault})
	if !ok || class != dbstore.ClassTransferUser {
		t.Errorf("expected transfer_user, got %v ok=%v", class, ok)
	}
}

func TestClassifyRuleOrderBridgeBeforeIntegration(t *testing.T) {
	// vault address is also (incorrectly, for this test) in the integration
	// set; bridge rule must still win since it is checked first.
	set := map[common.Address]bool{vault: true}
	class, ok := Classify(ClassifyInput{From: vault, To: alice, VaultAddress: vault, IsCanonicalChain: false, HasOFTInSameTx: true, IntegrationSet: set})
	if !ok || class != dbstore.ClassBridgeBurn {
		t.Errorf("bridge rule should take priority over integration rule, got %v ok=%v", class, ok)
	}
}
