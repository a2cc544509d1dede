package integrations

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/money"
	"github.com/streamdroplets/droplets-engine/rpcpool"
)

const lendingABI = `[
	{"name":"exchangeRateStored","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var parsedLendingABI = mustParseABI(lendingABI)

// cTokenEventABI (Enclabs): a 4626-shaped lending market whose
// collateral transitions are internal "protected" moves rather than
// plain ERC-4626 Deposit/Withdraw (§4.10's symmetric-cancellation case).
const cTokenEventABI = `[
	{"anonymous":false,"name":"DepositProtected","type":"event","inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}]},
	{"anonymous":false,"name":"WithdrawProtected","type":"event","inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}]}
]`

var parsedCTokenEventABI = mustParseABI(cTokenEventABI)

// aTokenEventABI (Stability): the emitted user field is a proxy wallet,
// not the real account, so §4.10 matches these by (tx_hash, |amount|)
// instead of address.
const aTokenEventABI = `[
	{"anonymous":false,"name":"Deposit","type":"event","inputs":[{"indexed":true,"name":"proxy","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}]},
	{"anonymous":false,"name":"Withdraw","type":"event","inputs":[{"indexed":true,"name":"proxy","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}]}
]`

var parsedATokenEventABI = mustParseABI(aTokenEventABI)

// Kind distinguishes the two lending-market token shapes §4.7 covers.
type Kind int

const (
	// KindCToken (Enclabs): underlying = cToken_balance * exchangeRateStored / 10^18.
	KindCToken Kind = iota
	// KindAToken (Stability): underlying is 1:1 with the aToken balance.
	KindAToken
)

// LendingAdapter prices cToken/aToken balances per §4.7.
type LendingAdapter struct {
	protocolID      string
	token           common.Address
	kind            Kind
	underlyingAsset string
	pool            *rpcpool.Pool
	*holderSet
}

// NewLendingAdapter builds an adapter over token, whose balance is
// denominated (after conversion) in underlyingAsset (e.g. "A_ETH").
func NewLendingAdapter(protocolID string, token common.Address, kind Kind, underlyingAsset string, pool *rpcpool.Pool) *LendingAdapter {
	return &LendingAdapter{protocolID: protocolID, token: token, kind: kind, underlyingAsset: underlyingAsset, pool: pool, holderSet: newHolderSet()}
}

func (l *LendingAdapter) ProtocolID() string              { return l.protocolID }
func (l *LendingAdapter) ContractAddress() common.Address { return l.token }
func (l *LendingAdapter) Holders() []common.Address       { return l.List() }
func (l *LendingAdapter) UnderlyingAsset() string          { return l.underlyingAsset }

func (l *LendingAdapter) LatestBlock(ctx context.Context) (uint64, error) {
	return l.pool.BlockNumber(ctx)
}

func (l *LendingAdapter) PositionsAt(ctx context.Context, block uint64) ([]Position, error) {
	blockNum := new(big.Int).SetUint64(block)

	var exchangeRate *big.Int
	if l.kind == KindCToken {
		rate, err := l.call(ctx, "exchangeRateStored", nil, blockNum)
		if err != nil {
			return nil, fmt.Errorf("integrations(%s): exchangeRateStored: %w", l.protocolID, err)
		}
		exchangeRate = rate
	}

	var positions []Position
	for _, holder := range l.List() {
		bal, err := l.call(ctx, "balanceOf", []interface{}{holder}, blockNum)
		if err != nil {
			return nil, fmt.Errorf("integrations(%s): balanceOf %s: %w", l.protocolID, holder.Hex(), err)
		}
		if bal.Sign() == 0 {
			continue
		}

		var underlying *big.Int
		if l.kind == KindAToken {
			underlying = new(big.Int).Set(bal) // 1:1
		} else {
			underlying = money.MulDivFloor(bal, exchangeRate, money.Scale(18))
		}
		positions = append(positions, Position{UserAddress: holder, PositionShares: bal, UnderlyingXTokenAmount: underlying})
	}
	return positions, nil
}

// FetchEvents pulls this market's deposit/withdraw-shaped logs in
// range. KindCToken emits deposit_protected/withdraw_protected, cancelled
// symmetrically per (tx, user) by the validator; KindAToken emits
// deposit/withdraw under a proxy address, matched by (tx_hash, |amount|)
// instead (§4.10).
func (l *LendingAdapter) FetchEvents(ctx context.Context, fromBlock, toBlock uint64) ([]ProtocolEvent, error) {
	logs, err := l.pool.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{l.token},
	})
	if err != nil {
		return nil, fmt.Errorf("integrations(%s): filter logs: %w", l.protocolID, err)
	}

	eventABI := parsedCTokenEventABI
	depositKind, withdrawKind, mode := EventDepositProtected, EventWithdrawProtected, MatchAddressAmount
	if l.kind == KindAToken {
		eventABI = parsedATokenEventABI
		depositKind, withdrawKind, mode = EventDeposit, EventWithdraw, MatchTxHashAmount
	}

	var out []ProtocolEvent
	for _, l2 := range logs {
		ev, err := eventABI.EventByID(l2.Topics[0])
		if err != nil {
			continue
		}
		account := common.HexToAddress(l2.Topics[1].Hex())
		switch ev.Name {
		case "DepositProtected", "Deposit":
			vals, err := eventABI.Unpack(ev.Name, l2.Data)
			if err != nil {
				return nil, fmt.Errorf("integrations(%s): unpack %s: %w", l.protocolID, ev.Name, err)
			}
			out = append(out, ProtocolEvent{ProtocolID: l.protocolID, TxHash: l2.TxHash, LogIndex: l2.Index, User: account, Amount: vals[0].(*big.Int), Kind: depositKind, Mode: mode, Block: l2.BlockNumber})
		case "WithdrawProtected", "Withdraw":
			vals, err := eventABI.Unpack(ev.Name, l2.Data)
			if err != nil {
				return nil, fmt.Errorf("integrations(%s): unpack %s: %w", l.protocolID, ev.Name, err)
			}
			out = append(out, ProtocolEvent{ProtocolID: l.protocolID, TxHash: l2.TxHash, LogIndex: l2.Index, User: account, Amount: vals[0].(*big.Int), Kind: withdrawKind, Mode: mode, Block: l2.BlockNumber})
		}
	}
	return out, nil
}

func (l *LendingAdapter) call(ctx context.Context, method string, args []interface{}, block *big.Int) (*big.Int, error) {
	data, err := parsedLendingABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := l.pool.CallContract(ctx, ethereum.CallMsg{To: &l.token, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	vals, err := parsedLendingABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals[0].(*big.Int), nil
}
