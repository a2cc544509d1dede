// Package integrations implements the Integration Adapter Set (C9): one
// adapter per protocol answering positionsAt(block), and a registry that
// aggregates them. Grounded on the teacher's adapters/external_adapters.go
// DataAdapter interface + PriceAdapterManager registry (Register/Name,
// a map[string]DataAdapter under a mutex) — retargeted here from price
// aggregation to on-chain position reads.
package integrations

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Position is one user's derived exposure to an integration protocol at
// a block (§4.7): "iterable of (user_address, underlying_xtoken_amount)".
type Position struct {
	UserAddress            common.Address
	PositionShares         *big.Int
	UnderlyingXTokenAmount *big.Int
}

// Adapter is implemented by each protocol-specific reader.
type Adapter interface {
	ProtocolID() string
	// ContractAddress is the protocol's own share/LP token, the address
	// a holder-discovery task watches for Transfer events and the
	// address seeded into ExcludedAddress (§4.7).
	ContractAddress() common.Address
	// Holders returns every address currently tracked as a share/LP
	// holder of this protocol, sourced from Transfer events on the
	// share/LP token (§4.7).
	Holders() []common.Address
	// Observe records a Transfer(from, to) seen on this protocol's own
	// share/LP token; it is the only input Holders/PositionsAt's
	// enumeration depends on (§4.7).
	Observe(from, to common.Address)
	// PositionsAt computes each holder's underlying_xtoken_amount at
	// block using the protocol's own formula.
	PositionsAt(ctx context.Context, block uint64) ([]Position, error)
	// UnderlyingAsset is the droplet asset symbol (e.g. "A_ETH") this
	// protocol's xToken is denominated in, used to price
	// UnderlyingXTokenAmount against the right oracle feed (§4.7: "times
	// price (the underlying xToken's price)").
	UnderlyingAsset() string
	// LatestBlock returns the adapter's own chain's current block
	// number, so the position refresher can call PositionsAt at a
	// concrete height without assuming every adapter lives on Chain-E.
	LatestBlock(ctx context.Context) (uint64, error)
	// FetchEvents returns this protocol's own deposit/withdraw/mint/burn
	// log events in [fromBlock, toBlock], the integration side of the
	// Reconciliation Validator's (§4.10) vault<->integration pairing.
	FetchEvents(ctx context.Context, fromBlock, toBlock uint64) ([]ProtocolEvent, error)
}

// EventKind distinguishes the shapes of integration-protocol event the
// Reconciliation Validator must pair against vault transfers (§4.10).
type EventKind string

const (
	EventDeposit           EventKind = "deposit"
	EventWithdraw          EventKind = "withdraw"
	EventDepositProtected  EventKind = "deposit_protected"
	EventWithdrawProtected EventKind = "withdraw_protected"
	EventMint              EventKind = "mint"
	EventBurn              EventKind = "burn"
)

// MatchMode tells the Reconciliation Validator which key to pair a
// ProtocolEvent against the vault side on (§4.10): the default is
// (address, asset, |amount|), but some protocols emit a proxy address
// or no usable address at all.
type MatchMode int

const (
	// MatchAddressAmount is the default: pair on (normalized_address, asset, |amount|).
	MatchAddressAmount MatchMode = iota
	// MatchTxHashAmount pairs on (tx_hash, |amount|) — the protocol's User
	// field is a proxy contract, not the real account.
	MatchTxHashAmount
	// MatchTxHashOnly pairs on tx_hash alone — LP mint/burn cases where
	// neither address nor a single amount lines up with the vault side.
	MatchTxHashOnly
)

// ProtocolEvent is one decoded integration-side log: a deposit/withdraw
// into a 4626 vault or lending market, or a mint/burn of an AMM LP
// token. Raw, undecorated — the Reconciliation Validator applies the
// per-protocol matching rules over these, never mutating canonical
// tables (§4.10).
type ProtocolEvent struct {
	ProtocolID string
	TxHash     common.Hash
	LogIndex   uint
	User       common.Address
	Amount     *big.Int
	Kind       EventKind
	Mode       MatchMode
	Block      uint64
}

// Set is the registry of configured adapters, grounded on
// PriceAdapterManager's Register/map-of-adapters shape.
type Set struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewSet builds an empty registry.
func NewSet() *Set {
	return &Set{adapters: make(map[string]Adapter)}
}

// Register adds an adapter, keyed by its ProtocolID.
func (s *Set) Register(a Adapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapters[a.ProtocolID()] = a
}

// All returns every registered adapter.
func (s *Set) All() []Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Adapter, 0, len(s.adapters))
	for _, a := range s.adapters {
		out = append(out, a)
	}
	return out
}

// Get looks up one adapter by protocol id.
func (s *Set) Get(protocolID string) (Adapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.adapters[protocolID]
	if !ok {
		return nil, fmt.Errorf("integrations: no adapter registered for %q", protocolID)
	}
	return a, nil
}

// ContractAddresses returns every integration contract address across
// all adapters, for seeding the ExcludedAddress set (§4.7: "Every
// integration contract address is registered in ExcludedAddress").
func (s *Set) ContractAddresses() map[common.Address]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[common.Address]bool)
	for _, a := range s.adapters {
		out[a.ContractAddress()] = true
	}
	return out
}
