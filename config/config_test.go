package config

import (
	"os"
	"testing"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	os.Clearenv()
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadMinimalValid(t *testing.T) {
	os.Clearenv()
	setEnv(t, map[string]string{
		"DATABASE_URL":             "postgres://localhost/droplets",
		"ALCHEMY_API_KEY_1":        "key-1",
		"A_ETH_VAULT_ETH":          "0x1111111111111111111111111111111111111111",
		"A_ETH_VAULT_ETH_DEPLOY_BLOCK": "100",
		"A_ETH_OFT_ARBITRUM":       "0x2222222222222222222222222222222222222222",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AlchemyAPIKeys) != 1 {
		t.Fatalf("expected 1 API key, got %d", len(cfg.AlchemyAPIKeys))
	}
	ae, ok := cfg.Assets["A_ETH"]
	if !ok {
		t.Fatal("expected A_ETH to be configured")
	}
	if ae.VaultDeployBlock != 100 {
		t.Errorf("VaultDeployBlock = %d, want 100", ae.VaultDeployBlock)
	}
	if ae.OFTAddresses["ARBITRUM"] == "" {
		t.Error("expected ARBITRUM OFT address to be set")
	}

	reg, err := cfg.BuildRegistry()
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}
	if _, ok := reg.Asset("A_ETH"); !ok {
		t.Error("expected A_ETH in registry")
	}
	if c, ok := reg.Chain(1); !ok || c.Confirmations != defaultConfirmations {
		t.Errorf("expected default confirmations for ethereum, got %+v ok=%v", c, ok)
	}
}

func TestLoadParsesIntegrations(t *testing.T) {
	os.Clearenv()
	setEnv(t, map[string]string{
		"DATABASE_URL":                "postgres://localhost/droplets",
		"ALCHEMY_API_KEY_1":           "key-1",
		"A_ETH_VAULT_ETH":             "0x1111111111111111111111111111111111111111",
		"INTEGRATIONS":                " shadow_weth_ausd , euler_a_eth ",
		"INTEGRATION_SHADOW_WETH_AUSD_TYPE":         "amm",
		"INTEGRATION_SHADOW_WETH_AUSD_ADDRESS":      "0x3333333333333333333333333333333333333333",
		"INTEGRATION_SHADOW_WETH_AUSD_ASSET":        "A_ETH",
		"INTEGRATION_SHADOW_WETH_AUSD_CHAIN":        "ARBITRUM",
		"INTEGRATION_SHADOW_WETH_AUSD_X_IS_RESERVE0": "true",
		"INTEGRATION_SHADOW_WETH_AUSD_DEPLOY_BLOCK":  "555",
		"INTEGRATION_EULER_A_ETH_TYPE":    "vault4626",
		"INTEGRATION_EULER_A_ETH_ADDRESS": "0x4444444444444444444444444444444444444444",
		"INTEGRATION_EULER_A_ETH_ASSET":   "A_ETH",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Integrations) != 2 {
		t.Fatalf("expected 2 integrations, got %d", len(cfg.Integrations))
	}

	byID := make(map[string]IntegrationEnv)
	for _, ie := range cfg.Integrations {
		byID[ie.ProtocolID] = ie
	}

	shadow, ok := byID["shadow_weth_ausd"]
	if !ok {
		t.Fatal("expected shadow_weth_ausd to be parsed")
	}
	if shadow.Type != "amm" || shadow.Chain != "ARBITRUM" || !shadow.XTokenIsReserve0 || shadow.DeployBlock != 555 {
		t.Errorf("unexpected shadow_weth_ausd config: %+v", shadow)
	}

	euler, ok := byID["euler_a_eth"]
	if !ok {
		t.Fatal("expected euler_a_eth to be parsed")
	}
	if euler.Type != "vault4626" || euler.Chain != "ETHEREUM" {
		t.Errorf("expected euler_a_eth to default to ETHEREUM chain, got %+v", euler)
	}
}

func TestSnapshotTimeOfDay(t *testing.T) {
	c := &Config{SnapshotHour: 0, SnapshotMinute: 5}
	if got := c.SnapshotTimeOfDay(); got.Minutes() != 5 {
		t.Errorf("SnapshotTimeOfDay = %v, want 5m", got)
	}
}
