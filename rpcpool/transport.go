package rpcpool

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// callTimeout bounds a single RPC attempt (§5: "RPC calls carry a
// per-call deadline (default 30 s)").
const callTimeout = 30 * time.Second

// BlockNumber returns the chain's latest block number, retrying per the
// pool's backoff policy.
func (p *Pool) BlockNumber(ctx context.Context) (uint64, error) {
	var result uint64
	err := withRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		ep := p.next()
		n, err := ep.Client.BlockNumber(callCtx)
		ep.incr()
		if err != nil {
			return fmt.Errorf("rpcpool(%s): block number: %w", p.chainName, err)
		}
		result = n
		return nil
	})
	return result, err
}

// HeaderByNumber returns the block header at number, or the latest
// header if number is nil.
func (p *Pool) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var result *types.Header
	err := withRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		ep := p.next()
		h, err := ep.Client.HeaderByNumber(callCtx, number)
		ep.incr()
		if err != nil {
			return fmt.Errorf("rpcpool(%s): header by number: %w", p.chainName, err)
		}
		result = h
		return nil
	})
	return result, err
}

// FilterLogs fetches logs per query, the bounded-batch primitive the
// Log Ingester calls once per iteration (§4.2 step 4). A
// historical-depth error from the provider bubbles as ErrHistoricalDepth
// without being retried.
func (p *Pool) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var result []types.Log
	err := withRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		ep := p.next()
		logs, err := ep.Client.FilterLogs(callCtx, q)
		ep.incr()
		if err != nil {
			return fmt.Errorf("rpcpool(%s): filter logs: %w", p.chainName, err)
		}
		result = logs
		return nil
	})
	return result, err
}

// CallContract performs a historical or latest contract view-call
// (Chainlink latestRoundData/getRoundData, vault totalAssets, AMM
// reserves, and similar reads).
func (p *Pool) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var result []byte
	err := withRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		ep := p.next()
		out, err := ep.Client.CallContract(callCtx, msg, blockNumber)
		ep.incr()
		if err != nil {
			return fmt.Errorf("rpcpool(%s): call contract %s: %w", p.chainName, msg.To.Hex(), err)
		}
		result = out
		return nil
	})
	return result, err
}

// BlockByNumber fetches a full block, retrying per the pool's backoff
// policy.
func (p *Pool) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	var result *types.Block
	err := withRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()
		ep := p.next()
		b, err := ep.Client.BlockByNumber(callCtx, number)
		ep.incr()
		if err != nil {
			return fmt.Errorf("rpcpool(%s): block by number: %w", p.chainName, err)
		}
		result = b
		return nil
	})
	return result, err
}
