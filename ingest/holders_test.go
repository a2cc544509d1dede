package ingest

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/chainregistry"
	"github.com/streamdroplets/droplets-engine/integrations"
)

func TestNewHolderTaskTakesContractFromAdapter(t *testing.T) {
	pair := common.HexToAddress("0x4444444444444444444444444444444444444444")
	adapter := integrations.NewAMMAdapter("shadow-a_eth-weth", pair, true, "A_ETH", nil)

	task := NewHolderTask(chainregistry.ChainEthereum, adapter, 12345, nil, nil)

	if task.Contract != pair {
		t.Errorf("Contract = %s, want %s", task.Contract, pair)
	}
	if task.ChainID != uint64(chainregistry.ChainEthereum) {
		t.Errorf("ChainID = %d, want %d", task.ChainID, uint64(chainregistry.ChainEthereum))
	}
	if task.DeployBlock != 12345 {
		t.Errorf("DeployBlock = %d, want 12345", task.DeployBlock)
	}
}
