// Package config loads the engine's runtime configuration from the
// environment (optionally via a .env file), the way the teacher's
// main.go resolved settings through a handful of getEnv() calls —
// generalized here over spf13/viper so config keys are validated,
// typed, and unit-testable instead of scattered os.Getenv calls.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	DatabaseURL string

	// AlchemyAPIKeys rotate across requests in rpcpool (spec §4.1).
	AlchemyAPIKeys []string

	// ChainBaseURLs maps a chain name (as used in env keys, e.g.
	// "ETHEREUM", "ARBITRUM") to its Alchemy base URL template.
	ChainBaseURLs map[string]string

	// ChainConfirmations maps a chain name to its required confirmation
	// depth before a block is considered "safe" to ingest.
	ChainConfirmations map[string]uint64

	// Assets holds the raw per-asset env-derived settings, keyed by
	// asset symbol (e.g. "A_ETH"). chainregistry turns these into the
	// typed Asset registry once chain ids are resolved.
	Assets map[string]AssetEnv

	DropletUSDRatio int64 // droplets per whole USD per day, default 1

	SnapshotHour   int
	SnapshotMinute int

	DropletEligibilityPolicy string // "AccrueRegardless" | "ZeroOnUnstake"

	AdminAPIKey string

	// ListenAddr is the thin read API's bind address (spec §6).
	ListenAddr string

	// OracleBlockCachePath backs oracle.Service's timestamp->block
	// badger cache; empty disables it (always binary-search).
	OracleBlockCachePath string

	// Integrations lists the Integration Adapter Set's (C9) configured
	// protocol instances (§4.7: AMM LP, ERC-4626 vault, lending market).
	Integrations []IntegrationEnv

	LogJSON  bool
	LogLevel string
}

// IntegrationEnv is one configured C9 adapter instance, named by an
// operator-chosen protocol id (e.g. "shadow_weth_ausd", "euler_a_eth").
type IntegrationEnv struct {
	ProtocolID string
	// Type selects the adapter: "amm", "vault4626", "lending_ctoken"
	// (Enclabs-shaped), or "lending_atoken" (Stability-shaped).
	Type             string
	Address          string
	Asset            string // underlying xToken symbol this position is valued in
	Chain            string
	XTokenIsReserve0 bool   // amm only: whether reserve0 is the priced asset
	DeployBlock      uint64 // first block to scan for this contract's own Transfer events
}

// AssetEnv is the raw, chain-name-keyed configuration for one asset
// before it is resolved into chainregistry.Asset.
type AssetEnv struct {
	Symbol             string
	VaultAddress       string
	VaultDeployBlock   uint64
	OFTAddresses       map[string]string // chain name -> address
	OFTDeployBlocks    map[string]uint64 // chain name -> block

	// OracleFeed is the Chainlink aggregator address for this asset, empty
	// for A_USD (priced 1:1, spec §4.7 fast path).
	OracleFeed string
}

// knownAssets and knownChains enumerate the env-key suffixes this loader
// looks for. A real deployment could make this data-driven, but the
// droplet program tracks a fixed, small set of assets and chains.
var (
	knownAssets = []string{"A_ETH", "A_BTC", "A_USD", "A_EUR"}
	knownChains = []string{"ETHEREUM", "ARBITRUM", "OPTIMISM", "BASE", "POLYGON", "AVALANCHE"}
)

// Load reads configuration from the process environment, first merging
// in a .env file if one is present (godotenv.Load is a no-op error we
// ignore, matching the teacher's startup behavior of tolerating a
// missing .env in production).
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("DROPLET_USD_RATIO", 1)
	v.SetDefault("SNAPSHOT_TIME_HOUR", 0)
	v.SetDefault("SNAPSHOT_TIME_MINUTE", 5)
	v.SetDefault("DROPLET_ELIGIBILITY_POLICY", "AccrueRegardless")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LISTEN_ADDR", ":8080")

	cfg := &Config{
		ChainBaseURLs:            make(map[string]string),
		ChainConfirmations:       make(map[string]uint64),
		Assets:                   make(map[string]AssetEnv),
		DropletUSDRatio:          v.GetInt64("DROPLET_USD_RATIO"),
		SnapshotHour:             v.GetInt("SNAPSHOT_TIME_HOUR"),
		SnapshotMinute:           v.GetInt("SNAPSHOT_TIME_MINUTE"),
		DropletEligibilityPolicy: v.GetString("DROPLET_ELIGIBILITY_POLICY"),
		AdminAPIKey:              v.GetString("ADMIN_API_KEY"),
		ListenAddr:               v.GetString("LISTEN_ADDR"),
		OracleBlockCachePath:     v.GetString("ORACLE_BLOCK_CACHE_PATH"),
		LogJSON:                  v.GetBool("LOG_JSON"),
		LogLevel:                 v.GetString("LOG_LEVEL"),
	}

	cfg.DatabaseURL = v.GetString("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}

	for i := 1; i <= 3; i++ {
		key := fmt.Sprintf("ALCHEMY_API_KEY_%d", i)
		if k := v.GetString(key); k != "" {
			cfg.AlchemyAPIKeys = append(cfg.AlchemyAPIKeys, k)
		}
	}
	if len(cfg.AlchemyAPIKeys) == 0 {
		return nil, fmt.Errorf("config: at least one ALCHEMY_API_KEY_{1..3} is required")
	}

	for _, chain := range knownChains {
		base := v.GetString(fmt.Sprintf("ALCHEMY_%s_BASE_URL", chain))
		if base != "" {
			cfg.ChainBaseURLs[chain] = base
		}
		confKey := fmt.Sprintf("%s_CONFIRMATIONS", chain)
		if v.IsSet(confKey) {
			cfg.ChainConfirmations[chain] = uint64(v.GetInt64(confKey))
		}
	}

	for _, asset := range knownAssets {
		ae := AssetEnv{
			Symbol:           asset,
			VaultAddress:     v.GetString(fmt.Sprintf("%s_VAULT_ETH", asset)),
			VaultDeployBlock: uint64(v.GetInt64(fmt.Sprintf("%s_VAULT_ETH_DEPLOY_BLOCK", asset))),
			OFTAddresses:     make(map[string]string),
			OFTDeployBlocks:  make(map[string]uint64),
			OracleFeed:       v.GetString(fmt.Sprintf("%s_ORACLE_FEED", asset)),
		}
		for _, chain := range knownChains {
			if chain == "ETHEREUM" {
				continue // ETHEREUM is Chain-E; vault shares, not an OFT mirror
			}
			addrKey := fmt.Sprintf("%s_OFT_%s", asset, chain)
			if addr := v.GetString(addrKey); addr != "" {
				ae.OFTAddresses[chain] = addr
				ae.OFTDeployBlocks[chain] = uint64(v.GetInt64(addrKey + "_DEPLOY_BLOCK"))
			}
		}
		if ae.VaultAddress != "" || len(ae.OFTAddresses) > 0 {
			cfg.Assets[asset] = ae
		}
	}
	if len(cfg.Assets) == 0 {
		return nil, fmt.Errorf("config: no asset vault/OFT addresses configured")
	}

	if cfg.DropletEligibilityPolicy != "AccrueRegardless" && cfg.DropletEligibilityPolicy != "ZeroOnUnstake" {
		return nil, fmt.Errorf("config: invalid DROPLET_ELIGIBILITY_POLICY %q", cfg.DropletEligibilityPolicy)
	}

	for _, id := range strings.Split(v.GetString("INTEGRATIONS"), ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		prefix := fmt.Sprintf("INTEGRATION_%s_", strings.ToUpper(id))
		chainName := v.GetString(prefix + "CHAIN")
		if chainName == "" {
			chainName = "ETHEREUM"
		}
		cfg.Integrations = append(cfg.Integrations, IntegrationEnv{
			ProtocolID:       id,
			Type:             v.GetString(prefix + "TYPE"),
			Address:          v.GetString(prefix + "ADDRESS"),
			Asset:            v.GetString(prefix + "ASSET"),
			Chain:            chainName,
			XTokenIsReserve0: v.GetBool(prefix + "X_IS_RESERVE0"),
			DeployBlock:      uint64(v.GetInt64(prefix + "DEPLOY_BLOCK")),
		})
	}

	return cfg, nil
}

// SnapshotTimeOfDay returns the configured daily snapshot cutoff as a
// time.Duration offset since midnight UTC, e.g. 00:05 -> 5*time.Minute.
func (c *Config) SnapshotTimeOfDay() time.Duration {
	return time.Duration(c.SnapshotHour)*time.Hour + time.Duration(c.SnapshotMinute)*time.Minute
}
