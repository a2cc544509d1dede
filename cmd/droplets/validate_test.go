package main

import (
	"testing"

	"github.com/streamdroplets/droplets-engine/chainregistry"
)

func TestChainNameToID(t *testing.T) {
	cases := []struct {
		name string
		want chainregistry.ChainID
		ok   bool
	}{
		{"ETHEREUM", chainregistry.ChainEthereum, true},
		{"ethereum", chainregistry.ChainEthereum, true},
		{"Arbitrum", chainregistry.ChainArbitrum, true},
		{"nonesuch", 0, false},
	}
	for _, c := range cases {
		got, ok := chainNameToID(c.name)
		if ok != c.ok {
			t.Errorf("chainNameToID(%q) ok = %v, want %v", c.name, ok, c.ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("chainNameToID(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}
