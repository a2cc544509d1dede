package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/ingest"
	"github.com/streamdroplets/droplets-engine/integrations"
	"github.com/streamdroplets/droplets-engine/rpcpool"
)

// BuildIntegrationSet resolves every configured IntegrationEnv into a
// live adapter, registers it on a fresh integrations.Set (C9), and
// returns the (chain, deploy block) pairing ingest.NewScheduler needs to
// run a holder-discovery task per adapter (§4.7).
func (c *Config) BuildIntegrationSet(rpcs *rpcpool.Manager) (*integrations.Set, []ingest.IntegrationTarget, error) {
	set := integrations.NewSet()
	var targets []ingest.IntegrationTarget
	for _, ie := range c.Integrations {
		if !common.IsHexAddress(ie.Address) {
			return nil, nil, fmt.Errorf("config: invalid address for integration %s: %q", ie.ProtocolID, ie.Address)
		}
		chainID, ok := chainNameToID[ie.Chain]
		if !ok {
			return nil, nil, fmt.Errorf("config: unknown chain %q for integration %s", ie.Chain, ie.ProtocolID)
		}
		pool, err := rpcs.For(chainID)
		if err != nil {
			return nil, nil, fmt.Errorf("config: integration %s: %w", ie.ProtocolID, err)
		}
		addr := common.HexToAddress(ie.Address)

		var adapter integrations.Adapter
		switch ie.Type {
		case "amm":
			adapter = integrations.NewAMMAdapter(ie.ProtocolID, addr, ie.XTokenIsReserve0, ie.Asset, pool)
		case "vault4626":
			adapter = integrations.NewVault4626Adapter(ie.ProtocolID, addr, ie.Asset, pool)
		case "lending_ctoken":
			adapter = integrations.NewLendingAdapter(ie.ProtocolID, addr, integrations.KindCToken, ie.Asset, pool)
		case "lending_atoken":
			adapter = integrations.NewLendingAdapter(ie.ProtocolID, addr, integrations.KindAToken, ie.Asset, pool)
		default:
			return nil, nil, fmt.Errorf("config: unknown integration type %q for %s", ie.Type, ie.ProtocolID)
		}
		set.Register(adapter)
		targets = append(targets, ingest.IntegrationTarget{Adapter: adapter, ChainID: chainID, DeployBlock: ie.DeployBlock})
	}
	return set, targets, nil
}
