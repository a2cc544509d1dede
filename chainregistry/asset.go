package chainregistry

import "github.com/ethereum/go-ethereum/common"

// Asset describes one of the four tracked vault assets (A_ETH, A_BTC,
// A_USD, A_EUR): where its shares live on Chain-E, where its OFT mirrors
// live on each satellite, and the oracle feed used to price it.
type Asset struct {
	Symbol   string // e.g. "A_ETH"
	Decimals uint8  // share-token decimals, typically 18

	// VaultAddress is the Chain-E ERC-4626-style vault contract that
	// mints/burns shares and emits RoundRolled.
	VaultAddress  common.Address
	VaultDeployBlock uint64

	// OFTAddresses maps a satellite chain to the OFT mirror contract for
	// this asset, with its own independent deployment block.
	OFTAddresses      map[ChainID]common.Address
	OFTDeployBlocks   map[ChainID]uint64

	// OracleFeed is the Chainlink aggregator address used to price this
	// asset in USD. Empty for A_USD, which is priced 1:1.
	OracleFeed common.Address
}

// IsStablecoin reports whether the asset is pegged 1 USD and therefore
// has no Chainlink feed; the oracle prices it at exactly 1.0 without an
// aggregator read.
func (a *Asset) IsStablecoin() bool {
	return a.Symbol == "A_USD"
}

// OFTAddress returns the OFT mirror address for chain id, if configured.
func (a *Asset) OFTAddress(id ChainID) (common.Address, bool) {
	addr, ok := a.OFTAddresses[id]
	return addr, ok
}
