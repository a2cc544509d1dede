package integrations

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/rpcpool"
)

const vault4626ABI = `[
	{"name":"totalAssets","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var parsedVault4626ABI = mustParseABI(vault4626ABI)

const vault4626EventABI = `[
	{"anonymous":false,"name":"Deposit","type":"event","inputs":[{"indexed":true,"name":"caller","type":"address"},{"indexed":true,"name":"owner","type":"address"},{"indexed":false,"name":"assets","type":"uint256"},{"indexed":false,"name":"shares","type":"uint256"}]},
	{"anonymous":false,"name":"Withdraw","type":"event","inputs":[{"indexed":true,"name":"caller","type":"address"},{"indexed":true,"name":"receiver","type":"address"},{"indexed":true,"name":"owner","type":"address"},{"indexed":false,"name":"assets","type":"uint256"},{"indexed":false,"name":"shares","type":"uint256"}]}
]`

var parsedVault4626EventABI = mustParseABI(vault4626EventABI)

// Vault4626Adapter prices ERC-4626 vault shares (Euler, Silo variants):
// `underlying = user_shares * totalAssets / totalSupply` (§4.7).
type Vault4626Adapter struct {
	protocolID      string
	vault           common.Address
	underlyingAsset string
	pool            *rpcpool.Pool
	*holderSet
}

// NewVault4626Adapter builds an adapter over vault, whose shares are
// denominated in underlyingAsset (e.g. "A_ETH").
func NewVault4626Adapter(protocolID string, vault common.Address, underlyingAsset string, pool *rpcpool.Pool) *Vault4626Adapter {
	return &Vault4626Adapter{protocolID: protocolID, vault: vault, underlyingAsset: underlyingAsset, pool: pool, holderSet: newHolderSet()}
}

func (v *Vault4626Adapter) ProtocolID() string              { return v.protocolID }
func (v *Vault4626Adapter) ContractAddress() common.Address { return v.vault }
func (v *Vault4626Adapter) Holders() []common.Address       { return v.List() }
func (v *Vault4626Adapter) UnderlyingAsset() string          { return v.underlyingAsset }

func (v *Vault4626Adapter) LatestBlock(ctx context.Context) (uint64, error) {
	return v.pool.BlockNumber(ctx)
}

func (v *Vault4626Adapter) PositionsAt(ctx context.Context, block uint64) ([]Position, error) {
	blockNum := new(big.Int).SetUint64(block)

	totalAssets, err := v.call(ctx, "totalAssets", nil, blockNum)
	if err != nil {
		return nil, fmt.Errorf("integrations(%s): totalAssets: %w", v.protocolID, err)
	}
	totalSupply, err := v.call(ctx, "totalSupply", nil, blockNum)
	if err != nil {
		return nil, fmt.Errorf("integrations(%s): totalSupply: %w", v.protocolID, err)
	}
	if totalSupply.Sign() == 0 {
		return nil, nil
	}

	var positions []Position
	for _, holder := range v.List() {
		shares, err := v.call(ctx, "balanceOf", []interface{}{holder}, blockNum)
		if err != nil {
			return nil, fmt.Errorf("integrations(%s): balanceOf %s: %w", v.protocolID, holder.Hex(), err)
		}
		if shares.Sign() == 0 {
			continue
		}
		underlying := mulDivFloor(shares, totalAssets, totalSupply)
		positions = append(positions, Position{UserAddress: holder, PositionShares: shares, UnderlyingXTokenAmount: underlying})
	}
	return positions, nil
}

// FetchEvents pulls Deposit/Withdraw logs in range, the default
// (normalized_address, asset, |amount|)-matching protocol (§4.10): the
// emitted `owner` is the real user, so no proxy or tx-hash-only rule
// applies here.
func (v *Vault4626Adapter) FetchEvents(ctx context.Context, fromBlock, toBlock uint64) ([]ProtocolEvent, error) {
	logs, err := v.pool.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{v.vault},
	})
	if err != nil {
		return nil, fmt.Errorf("integrations(%s): filter logs: %w", v.protocolID, err)
	}

	var out []ProtocolEvent
	for _, l := range logs {
		ev, err := parsedVault4626EventABI.EventByID(l.Topics[0])
		if err != nil {
			continue // unrelated log on the same contract, tolerated
		}
		switch ev.Name {
		case "Deposit":
			owner := common.HexToAddress(l.Topics[2].Hex())
			vals, err := parsedVault4626EventABI.Unpack("Deposit", l.Data)
			if err != nil {
				return nil, fmt.Errorf("integrations(%s): unpack Deposit: %w", v.protocolID, err)
			}
			out = append(out, ProtocolEvent{ProtocolID: v.protocolID, TxHash: l.TxHash, LogIndex: l.Index, User: owner, Amount: vals[0].(*big.Int), Kind: EventDeposit, Mode: MatchAddressAmount, Block: l.BlockNumber})
		case "Withdraw":
			owner := common.HexToAddress(l.Topics[3].Hex())
			vals, err := parsedVault4626EventABI.Unpack("Withdraw", l.Data)
			if err != nil {
				return nil, fmt.Errorf("integrations(%s): unpack Withdraw: %w", v.protocolID, err)
			}
			out = append(out, ProtocolEvent{ProtocolID: v.protocolID, TxHash: l.TxHash, LogIndex: l.Index, User: owner, Amount: vals[0].(*big.Int), Kind: EventWithdraw, Mode: MatchAddressAmount, Block: l.BlockNumber})
		}
	}
	return out, nil
}

func (v *Vault4626Adapter) call(ctx context.Context, method string, args []interface{}, block *big.Int) (*big.Int, error) {
	data, err := parsedVault4626ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := v.pool.CallContract(ctx, ethereum.CallMsg{To: &v.vault, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	vals, err := parsedVault4626ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals[0].(*big.Int), nil
}
