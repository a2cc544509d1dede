package integrations

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestMulDivFloor(t *testing.T) {
	got := mulDivFloor(big.NewInt(7), big.NewInt(3), big.NewInt(2))
	if got.String() != "10" {
		t.Errorf("mulDivFloor = %s, want 10", got)
	}
	if got := mulDivFloor(big.NewInt(5), big.NewInt(1), big.NewInt(0)); got.Sign() != 0 {
		t.Errorf("division by zero should floor to 0, got %s", got)
	}
}

func TestHolderSetObserve(t *testing.T) {
	h := newHolderSet()
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")
	h.Observe(common.Address{}, alice) // mint to alice
	h.Observe(alice, bob)              // alice -> bob

	list := h.List()
	seen := map[common.Address]bool{}
	for _, a := range list {
		seen[a] = true
	}
	if !seen[alice] || !seen[bob] {
		t.Errorf("expected both alice and bob tracked as holders, got %v", list)
	}
	if len(list) != 2 {
		t.Errorf("expected exactly 2 holders, got %d", len(list))
	}
}

func TestSetRegisterAndGet(t *testing.T) {
	s := NewSet()
	pair := common.HexToAddress("0x3333333333333333333333333333333333333333")
	a := NewAMMAdapter("shadow-a_eth-weth", pair, true, "A_ETH", nil)
	s.Register(a)

	got, err := s.Get("shadow-a_eth-weth")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ProtocolID() != "shadow-a_eth-weth" {
		t.Errorf("ProtocolID = %s", got.ProtocolID())
	}

	addrs := s.ContractAddresses()
	if !addrs[pair] {
		t.Error("expected pair address in ContractAddresses()")
	}
}
