package integrations

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/rpcpool"
)

const pairABI = `[
	{"name":"getReserves","type":"function","stateMutability":"view","inputs":[],"outputs":[
		{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]},
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var parsedPairABI = mustParseABI(pairABI)

const pairEventABI = `[
	{"anonymous":false,"name":"Mint","type":"event","inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":false,"name":"amount0","type":"uint256"},{"indexed":false,"name":"amount1","type":"uint256"}]},
	{"anonymous":false,"name":"Burn","type":"event","inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":false,"name":"amount0","type":"uint256"},{"indexed":false,"name":"amount1","type":"uint256"},{"indexed":true,"name":"to","type":"address"}]}
]`

var parsedPairEventABI = mustParseABI(pairEventABI)

// AMMAdapter prices LP shares for a Shadow-Exchange-style constant
// product pool: `underlying = lp_shares * reserve(xToken) / totalSupply`
// (§4.7).
type AMMAdapter struct {
	protocolID string
	pair       common.Address
	// xTokenIsReserve0 selects which reserve is the tracked vault xToken.
	xTokenIsReserve0 bool
	underlyingAsset  string
	pool             *rpcpool.Pool
	*holderSet
}

// NewAMMAdapter builds an AMM LP adapter over pair, whose tracked xToken
// reserve is denominated in underlyingAsset (e.g. "A_ETH").
func NewAMMAdapter(protocolID string, pair common.Address, xTokenIsReserve0 bool, underlyingAsset string, pool *rpcpool.Pool) *AMMAdapter {
	return &AMMAdapter{protocolID: protocolID, pair: pair, xTokenIsReserve0: xTokenIsReserve0, underlyingAsset: underlyingAsset, pool: pool, holderSet: newHolderSet()}
}

func (a *AMMAdapter) ProtocolID() string              { return a.protocolID }
func (a *AMMAdapter) ContractAddress() common.Address { return a.pair }
func (a *AMMAdapter) Holders() []common.Address       { return a.List() }
func (a *AMMAdapter) UnderlyingAsset() string         { return a.underlyingAsset }

func (a *AMMAdapter) LatestBlock(ctx context.Context) (uint64, error) {
	return a.pool.BlockNumber(ctx)
}

// PositionsAt reads reserves and totalSupply once, then computes each
// holder's LP balance and underlying share.
func (a *AMMAdapter) PositionsAt(ctx context.Context, block uint64) ([]Position, error) {
	blockNum := new(big.Int).SetUint64(block)

	reserve0, reserve1, err := a.reserves(ctx, blockNum)
	if err != nil {
		return nil, err
	}
	reserveX := reserve0
	if !a.xTokenIsReserve0 {
		reserveX = reserve1
	}

	totalSupply, err := a.callUint256(ctx, "totalSupply", nil, blockNum)
	if err != nil {
		return nil, fmt.Errorf("integrations(%s): totalSupply: %w", a.protocolID, err)
	}
	if totalSupply.Sign() == 0 {
		return nil, nil
	}

	var positions []Position
	for _, holder := range a.List() {
		lpShares, err := a.callUint256(ctx, "balanceOf", []interface{}{holder}, blockNum)
		if err != nil {
			return nil, fmt.Errorf("integrations(%s): balanceOf %s: %w", a.protocolID, holder.Hex(), err)
		}
		if lpShares.Sign() == 0 {
			continue
		}
		underlying := mulDivFloor(lpShares, reserveX, totalSupply)
		positions = append(positions, Position{UserAddress: holder, PositionShares: lpShares, UnderlyingXTokenAmount: underlying})
	}
	return positions, nil
}

// FetchEvents pulls Mint/Burn LP logs in range. Per §4.10, LP mint/burn
// events are matched against vault transfers by tx_hash only: the
// sender/to fields here are the pair's own router/pool plumbing, not
// the end user, so address-based matching would never line up.
func (a *AMMAdapter) FetchEvents(ctx context.Context, fromBlock, toBlock uint64) ([]ProtocolEvent, error) {
	logs, err := a.pool.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{a.pair},
	})
	if err != nil {
		return nil, fmt.Errorf("integrations(%s): filter logs: %w", a.protocolID, err)
	}

	var out []ProtocolEvent
	for _, l := range logs {
		ev, err := parsedPairEventABI.EventByID(l.Topics[0])
		if err != nil {
			continue
		}
		switch ev.Name {
		case "Mint":
			vals, err := parsedPairEventABI.Unpack("Mint", l.Data)
			if err != nil {
				return nil, fmt.Errorf("integrations(%s): unpack Mint: %w", a.protocolID, err)
			}
			amount := vals[0].(*big.Int)
			if !a.xTokenIsReserve0 {
				amount = vals[1].(*big.Int)
			}
			out = append(out, ProtocolEvent{ProtocolID: a.protocolID, TxHash: l.TxHash, LogIndex: l.Index, Amount: amount, Kind: EventMint, Mode: MatchTxHashOnly, Block: l.BlockNumber})
		case "Burn":
			vals, err := parsedPairEventABI.Unpack("Burn", l.Data)
			if err != nil {
				return nil, fmt.Errorf("integrations(%s): unpack Burn: %w", a.protocolID, err)
			}
			amount := vals[0].(*big.Int)
			if !a.xTokenIsReserve0 {
				amount = vals[1].(*big.Int)
			}
			out = append(out, ProtocolEvent{ProtocolID: a.protocolID, TxHash: l.TxHash, LogIndex: l.Index, Amount: amount, Kind: EventBurn, Mode: MatchTxHashOnly, Block: l.BlockNumber})
		}
	}
	return out, nil
}

func (a *AMMAdapter) reserves(ctx context.Context, block *big.Int) (reserve0, reserve1 *big.Int, err error) {
	data, err := parsedPairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("integrations(%s): pack getReserves: %w", a.protocolID, err)
	}
	out, err := a.pool.CallContract(ctx, ethereum.CallMsg{To: &a.pair, Data: data}, block)
	if err != nil {
		return nil, nil, fmt.Errorf("integrations(%s): call getReserves: %w", a.protocolID, err)
	}
	vals, err := parsedPairABI.Unpack("getReserves", out)
	if err != nil {
		return nil, nil, fmt.Errorf("integrations(%s): unpack getReserves: %w", a.protocolID, err)
	}
	return vals[0].(*big.Int), vals[1].(*big.Int), nil
}

func (a *AMMAdapter) callUint256(ctx context.Context, method string, args []interface{}, block *big.Int) (*big.Int, error) {
	data, err := parsedPairABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := a.pool.CallContract(ctx, ethereum.CallMsg{To: &a.pair, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	vals, err := parsedPairABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals[0].(*big.Int), nil
}
