package rpcpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/streamdroplets/droplets-engine/chainregistry"
)

// Manager owns one Pool per chain, constructed once at startup and
// shared read-only thereafter except for each Pool's atomic counters
// (§5: "The RPC pool is shared read-only after construction except for
// the per-endpoint counters, which use atomic increments").
type Manager struct {
	mu    sync.RWMutex
	pools map[chainregistry.ChainID]*Pool
}

// NewManager dials a Pool for every (chainID, urls) pair.
func NewManager(ctx context.Context, urlsByChain map[chainregistry.ChainID][]string, names map[chainregistry.ChainID]string) (*Manager, error) {
	m := &Manager{pools: make(map[chainregistry.ChainID]*Pool, len(urlsByChain))}
	for id, urls := range urlsByChain {
		name := names[id]
		if name == "" {
			name = id.String()
		}
		p, err := Dial(ctx, name, urls)
		if err != nil {
			return nil, fmt.Errorf("rpcpool: manager dial %s: %w", name, err)
		}
		m.pools[id] = p
	}
	return m, nil
}

// For returns the Pool for a chain, or an error if unconfigured.
func (m *Manager) For(id chainregistry.ChainID) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[id]
	if !ok {
		return nil, fmt.Errorf("rpcpool: no pool configured for chain %s", id)
	}
	return p, nil
}

// Close tears down every pool.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pools {
		p.Close()
	}
}
