package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/chainregistry"
)

// chainNameToID maps the env-key chain names this loader recognizes to
// their chainregistry.ChainID.
var chainNameToID = map[string]chainregistry.ChainID{
	"ETHEREUM":  chainregistry.ChainEthereum,
	"ARBITRUM":  chainregistry.ChainArbitrum,
	"OPTIMISM":  chainregistry.ChainOptimism,
	"BASE":      chainregistry.ChainBase,
	"POLYGON":   chainregistry.ChainPolygon,
	"AVALANCHE": chainregistry.ChainAvalanche,
}

// defaultConfirmations is used for a chain with no explicit
// {CHAIN}_CONFIRMATIONS override.
const defaultConfirmations = 12

// defaultBatchSize bounds each eth_getLogs window (spec §4.2).
const defaultBatchSize = 2000

// BuildRegistry resolves the raw env configuration into a typed
// chainregistry.Registry, validating addresses along the way.
func (c *Config) BuildRegistry() (*chainregistry.Registry, error) {
	var chains []chainregistry.Chain
	for name, id := range chainNameToID {
		conf := c.ChainConfirmations[name]
		if conf == 0 {
			conf = defaultConfirmations
		}
		chains = append(chains, chainregistry.Chain{
			ID:            id,
			Name:          name,
			Confirmations: conf,
			BatchSize:     defaultBatchSize,
			PollInterval:  "5s",
		})
	}

	var assets []*chainregistry.Asset
	for symbol, ae := range c.Assets {
		asset := &chainregistry.Asset{
			Symbol:          symbol,
			Decimals:        18,
			OFTAddresses:    make(map[chainregistry.ChainID]common.Address),
			OFTDeployBlocks: make(map[chainregistry.ChainID]uint64),
		}
		if ae.VaultAddress != "" {
			if !common.IsHexAddress(ae.VaultAddress) {
				return nil, fmt.Errorf("config: invalid vault address for %s: %q", symbol, ae.VaultAddress)
			}
			asset.VaultAddress = common.HexToAddress(ae.VaultAddress)
			asset.VaultDeployBlock = ae.VaultDeployBlock
		}
		if ae.OracleFeed != "" {
			if !common.IsHexAddress(ae.OracleFeed) {
				return nil, fmt.Errorf("config: invalid oracle feed for %s: %q", symbol, ae.OracleFeed)
			}
			asset.OracleFeed = common.HexToAddress(ae.OracleFeed)
		}
		for chainName, addr := range ae.OFTAddresses {
			id, ok := chainNameToID[chainName]
			if !ok {
				return nil, fmt.Errorf("config: unknown chain %q for asset %s OFT", chainName, symbol)
			}
			if !common.IsHexAddress(addr) {
				return nil, fmt.Errorf("config: invalid OFT address for %s on %s: %q", symbol, chainName, addr)
			}
			asset.OFTAddresses[id] = common.HexToAddress(addr)
			asset.OFTDeployBlocks[id] = ae.OFTDeployBlocks[chainName]
		}
		assets = append(assets, asset)
	}

	return chainregistry.New(chains, assets)
}

// BuildRPCURLs expands each configured chain's base URL against every
// Alchemy API key, producing the round-robin endpoint set rpcpool.Dial
// expects per chain (spec §4.1: "requests round-robin across up to
// three Alchemy API keys").
func (c *Config) BuildRPCURLs() map[chainregistry.ChainID][]string {
	out := make(map[chainregistry.ChainID][]string, len(c.ChainBaseURLs))
	for name, base := range c.ChainBaseURLs {
		id, ok := chainNameToID[name]
		if !ok {
			continue
		}
		urls := make([]string, 0, len(c.AlchemyAPIKeys))
		for _, key := range c.AlchemyAPIKeys {
			urls = append(urls, base+key)
		}
		out[id] = urls
	}
	return out
}

// ChainNames returns the display name for every configured chain, for
// rpcpool.NewManager's logging labels.
func (c *Config) ChainNames() map[chainregistry.ChainID]string {
	out := make(map[chainregistry.ChainID]string, len(chainNameToID))
	for name, id := range chainNameToID {
		out[id] = name
	}
	return out
}

// OracleFeeds builds the asset-symbol -> Chainlink aggregator map
// oracle.NewService needs, skipping stablecoins which are priced 1:1
// without a feed (§4.7 fast path).
func OracleFeeds(reg *chainregistry.Registry) map[string]common.Address {
	out := make(map[string]common.Address)
	for _, asset := range reg.Assets() {
		if asset.IsStablecoin() {
			continue
		}
		out[asset.Symbol] = asset.OracleFeed
	}
	return out
}
