package reconcile

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/integrations"
)

func protoEvent(kind integrations.EventKind, tx string, user common.Address, amount int64) IntegrationRecord {
	return IntegrationRecord{Event: integrations.ProtocolEvent{
		TxHash: common.HexToHash(tx),
		User:   user,
		Amount: big.NewInt(amount),
		Kind:   kind,
	}}
}

func TestDropZeroAmount(t *testing.T) {
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")
	records := []IntegrationRecord{
		protoEvent(integrations.EventDeposit, "0xaa", user, 100),
		protoEvent(integrations.EventDeposit, "0xbb", user, 0),
	}
	out := dropZeroAmount(records)
	if len(out) != 1 {
		t.Fatalf("expected 1 record after dropping zero amount, got %d", len(out))
	}
}

func TestCancelProtectedPairs(t *testing.T) {
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")
	records := []IntegrationRecord{
		protoEvent(integrations.EventDepositProtected, "0xaa", user, 500),
		protoEvent(integrations.EventWithdrawProtected, "0xaa", user, 500),
		protoEvent(integrations.EventDepositProtected, "0xcc", user, 300), // no counterpart, survives
	}
	out := cancelProtectedPairs(records)
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving record, got %d", len(out))
	}
	if out[0].Event.TxHash.Hex() != common.HexToHash("0xcc").Hex() {
		t.Errorf("wrong record survived: %+v", out[0])
	}
}

func TestCancelProtectedPairsMismatchedAmountSurvives(t *testing.T) {
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")
	records := []IntegrationRecord{
		protoEvent(integrations.EventDepositProtected, "0xaa", user, 500),
		protoEvent(integrations.EventWithdrawProtected, "0xaa", user, 400),
	}
	out := cancelProtectedPairs(records)
	if len(out) != 2 {
		t.Fatalf("mismatched amounts should not cancel, got %d survivors", len(out))
	}
}
