package events

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Decoded is a typed, event-specific view over one raw log, produced
// before classification and before it becomes a dbstore.ShareEvent.
type Decoded struct {
	Name     string
	Log      types.Log
	From     common.Address // Transfer
	To       common.Address // Transfer
	Value    *big.Int       // Transfer
	Account  common.Address // Stake/Unstake/Redeem/InstantUnstake
	Amount   *big.Int       // Stake/InstantUnstake
	Shares   *big.Int       // Unstake/Redeem
	Round    *big.Int       // Stake/Unstake/Redeem/RoundRolled
	PPS      *big.Int
	SharesMinted   *big.Int
	WrappedMinted  *big.Int
	WrappedBurned  *big.Int
	Yield          *big.Int
	IsYieldPositive bool
	GUID           [32]byte       // OFTSent/OFTReceived
	FromAddress    common.Address // OFTSent
	ToAddress      common.Address // OFTReceived
	AmountSentLD     *big.Int
	AmountReceivedLD *big.Int
}

// ErrUnknownEvent marks a log whose topic0 isn't in ParsedVaultABI.
// Per §7, unknown topics are "tolerated (warn + skip)", never fatal.
var ErrUnknownEvent = fmt.Errorf("events: unknown event topic")

// Decode resolves a raw log's event by its first topic and unpacks its
// fields. Returns ErrUnknownEvent for topics this ABI doesn't define.
func Decode(l types.Log) (*Decoded, error) {
	if len(l.Topics) == 0 {
		return nil, fmt.Errorf("events: log has no topics")
	}
	ev, err := ParsedVaultABI.EventByID(l.Topics[0])
	if err != nil {
		return nil, ErrUnknownEvent
	}

	d := &Decoded{Name: ev.Name, Log: l}
	switch ev.Name {
	case "Transfer":
		d.From = common.HexToAddress(l.Topics[1].Hex())
		d.To = common.HexToAddress(l.Topics[2].Hex())
		vals, err := ParsedVaultABI.Unpack("Transfer", l.Data)
		if err != nil {
			return nil, fmt.Errorf("events: unpack Transfer: %w", err)
		}
		d.Value = vals[0].(*big.Int)

	case "Stake":
		d.Account = common.HexToAddress(l.Topics[1].Hex())
		vals, err := ParsedVaultABI.Unpack("Stake", l.Data)
		if err != nil {
			return nil, fmt.Errorf("events: unpack Stake: %w", err)
		}
		d.Amount = vals[0].(*big.Int)
		d.Round = vals[1].(*big.Int)

	case "Unstake":
		d.Account = common.HexToAddress(l.Topics[1].Hex())
		vals, err := ParsedVaultABI.Unpack("Unstake", l.Data)
		if err != nil {
			return nil, fmt.Errorf("events: unpack Unstake: %w", err)
		}
		d.Shares = vals[0].(*big.Int)
		d.Round = vals[1].(*big.Int)

	case "Redeem":
		d.Account = common.HexToAddress(l.Topics[1].Hex())
		vals, err := ParsedVaultABI.Unpack("Redeem", l.Data)
		if err != nil {
			return nil, fmt.Errorf("events: unpack Redeem: %w", err)
		}
		d.Shares = vals[0].(*big.Int)
		d.Round = vals[1].(*big.Int)

	case "InstantUnstake":
		d.Account = common.HexToAddress(l.Topics[1].Hex())
		vals, err := ParsedVaultABI.Unpack("InstantUnstake", l.Data)
		if err != nil {
			return nil, fmt.Errorf("events: unpack InstantUnstake: %w", err)
		}
		d.Amount = vals[0].(*big.Int)

	case "RoundRolled":
		vals, err := ParsedVaultABI.Unpack("RoundRolled", l.Data)
		if err != nil {
			return nil, fmt.Errorf("events: unpack RoundRolled: %w", err)
		}
		d.Round = vals[0].(*big.Int)
		d.PPS = vals[1].(*big.Int)
		d.SharesMinted = vals[2].(*big.Int)
		d.WrappedMinted = vals[3].(*big.Int)
		d.WrappedBurned = vals[4].(*big.Int)
		d.Yield = vals[5].(*big.Int)
		d.IsYieldPositive = vals[6].(bool)

	case "OFTSent":
		d.GUID = l.Topics[1]
		d.FromAddress = common.HexToAddress(l.Topics[2].Hex())
		vals, err := ParsedVaultABI.Unpack("OFTSent", l.Data)
		if err != nil {
			return nil, fmt.Errorf("events: unpack OFTSent: %w", err)
		}
		d.AmountSentLD = vals[1].(*big.Int)
		d.AmountReceivedLD = vals[2].(*big.Int)

	case "OFTReceived":
		d.GUID = l.Topics[1]
		d.ToAddress = common.HexToAddress(l.Topics[2].Hex())
		vals, err := ParsedVaultABI.Unpack("OFTReceived", l.Data)
		if err != nil {
			return nil, fmt.Errorf("events: unpack OFTReceived: %w", err)
		}
		d.AmountReceivedLD = vals[1].(*big.Int)

	default:
		return nil, ErrUnknownEvent
	}

	return d, nil
}
