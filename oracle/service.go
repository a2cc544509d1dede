package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/streamdroplets/droplets-engine/chainregistry"
	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/rpcpool"
)

// chainlinkABI covers the two read methods the service calls, the same
// latestRoundData/getRoundData surface the teacher's chains/evm/adapter.go
// OracleABI constant defines for its Chainlink-shaped feed reads.
const chainlinkABI = `[
	{"name":"latestRoundData","type":"function","stateMutability":"view","inputs":[],"outputs":[
		{"name":"roundId","type":"uint80"},{"name":"answer","type":"int256"},
		{"name":"startedAt","type":"uint256"},{"name":"updatedAt","type":"uint256"},{"name":"answeredInRound","type":"uint80"}]},
	{"name":"getRoundData","type":"function","stateMutability":"view","inputs":[{"name":"_roundId","type":"uint80"}],"outputs":[
		{"name":"roundId","type":"uint80"},{"name":"answer","type":"int256"},
		{"name":"startedAt","type":"uint256"},{"name":"updatedAt","type":"uint256"},{"name":"answeredInRound","type":"uint80"}]}
]`

var parsedChainlinkABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(chainlinkABI))
	if err != nil {
		panic("oracle: invalid embedded chainlink ABI: " + err.Error())
	}
	parsedChainlinkABI = parsed
}

// priceScale is the fixed scale Chainlink USD feeds use and the scale
// every OraclePrice row is recorded with (§4.6 step 4: "scale=8").
const priceScale = 8

// cacheTolerance is the ±1h window for the cache hit check (§4.6 step 1).
const cacheTolerance = time.Hour

// Service resolves historical USD prices per asset.
type Service struct {
	db      *dbstore.Store
	pool    *rpcpool.Pool // Chain-E pool; all price reads happen against Chain-E
	cache   *blockCache
	feeds   map[string]common.Address // asset symbol -> Chainlink aggregator
}

// NewService builds the oracle service. blockCachePath backs the badger
// timestamp->block memoization; pass "" to disable it (falls back to
// always binary-searching).
func NewService(db *dbstore.Store, chainEPool *rpcpool.Pool, feeds map[string]common.Address, blockCachePath string) (*Service, error) {
	s := &Service{db: db, pool: chainEPool, feeds: feeds}
	if blockCachePath != "" {
		c, err := openBlockCache(blockCachePath)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}
	return s, nil
}

// Close releases the block cache, if one is open.
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.close()
}

// PriceAt implements §4.6's priceAt(asset, t):
//  1. cached OraclePrice within ±1h -> return it.
//  2. else binary-search Chain-E for the closest block.
//  3. read latestRoundData() on the configured aggregator at that block.
//  4. cache and return.
func (s *Service) PriceAt(ctx context.Context, asset string, t time.Time) (value *big.Int, scale uint8, err error) {
	if cached, err := s.db.NearestPrice(ctx, asset, uint64(chainregistry.ChainEthereum), t, cacheTolerance); err == nil {
		v, ok := new(big.Int).SetString(cached.PriceUSD, 10)
		if !ok {
			return nil, 0, fmt.Errorf("oracle: corrupt cached price %q", cached.PriceUSD)
		}
		return v, cached.Scale, nil
	} else if err != dbstore.ErrNotFound {
		return nil, 0, fmt.Errorf("oracle: nearest price lookup: %w", err)
	}

	var block uint64
	if s.cache != nil {
		if b, ok := s.cache.get(uint64(chainregistry.ChainEthereum), t); ok {
			block = b
		}
	}
	if block == 0 {
		b, err := findBlockByTimestamp(ctx, s.pool, t)
		if err != nil {
			return nil, 0, fmt.Errorf("oracle: price at %s: %w", asset, err)
		}
		block = b
		if s.cache != nil {
			s.cache.put(uint64(chainregistry.ChainEthereum), t, block)
		}
	}

	return s.readAndCache(ctx, asset, block, t)
}

// PriceAtBlock implements the "dedicated path that does not binary-
// search" from §4.6: it reads the given block's own Chain-E timestamp
// and resolves the price there directly.
func (s *Service) PriceAtBlock(ctx context.Context, asset string, block uint64) (value *big.Int, scale uint8, err error) {
	header, err := s.pool.HeaderByNumber(ctx, new(big.Int).SetUint64(block))
	if err != nil {
		return nil, 0, fmt.Errorf("oracle: price at block: header: %w", err)
	}
	return s.readAndCache(ctx, asset, block, time.Unix(int64(header.Time), 0).UTC())
}

func (s *Service) readAndCache(ctx context.Context, asset string, block uint64, t time.Time) (*big.Int, uint8, error) {
	if asset == "A_USD" {
		one := new(big.Int).Exp(big.NewInt(10), big.NewInt(priceScale), nil)
		if err := s.db.InsertPrice(ctx, dbstore.OraclePrice{
			Asset: asset, ChainID: uint64(chainregistry.ChainEthereum), BlockNumber: block,
			Timestamp: t, PriceUSD: one.String(), Scale: priceScale, Source: dbstore.SourceOnchain,
		}); err != nil {
			return nil, 0, fmt.Errorf("oracle: cache stablecoin price: %w", err)
		}
		return one, priceScale, nil
	}

	feed, ok := s.feeds[asset]
	if !ok {
		return nil, 0, fmt.Errorf("oracle: no price feed configured for %s", asset)
	}

	data, err := parsedChainlinkABI.Pack("latestRoundData")
	if err != nil {
		return nil, 0, fmt.Errorf("oracle: pack latestRoundData: %w", err)
	}
	out, err := s.pool.CallContract(ctx, ethereum.CallMsg{To: &feed, Data: data}, new(big.Int).SetUint64(block))
	if err != nil {
		return nil, 0, fmt.Errorf("oracle: call latestRoundData: %w", err)
	}
	vals, err := parsedChainlinkABI.Unpack("latestRoundData", out)
	if err != nil {
		return nil, 0, fmt.Errorf("oracle: unpack latestRoundData: %w", err)
	}
	answer := vals[1].(*big.Int)

	if err := s.db.InsertPrice(ctx, dbstore.OraclePrice{
		Asset: asset, ChainID: uint64(chainregistry.ChainEthereum), BlockNumber: block,
		Timestamp: t, PriceUSD: answer.String(), Scale: priceScale, Source: dbstore.SourceOnchain,
	}); err != nil {
		return nil, 0, fmt.Errorf("oracle: cache price: %w", err)
	}
	return answer, priceScale, nil
}

// Validate implements the staleness check from §4.6: "validate(asset,
// maxAgeSec) returns false if the latest cached price is older than
// maxAgeSec".
func (s *Service) Validate(ctx context.Context, asset string, maxAgeSec int64) (bool, error) {
	p, err := s.db.LatestPrice(ctx, asset, uint64(chainregistry.ChainEthereum))
	if err == dbstore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("oracle: validate: %w", err)
	}
	age := time.Since(p.Timestamp)
	return age <= time.Duration(maxAgeSec)*time.Second, nil
}
