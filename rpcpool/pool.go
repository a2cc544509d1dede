// Package rpcpool implements the RPC Pool (C1): per-chain round-robin
// endpoint selection with a load counter, retry+backoff, and a single
// transport surface the ingester, rounds, oracle, and integrations
// packages call through. Grounded on the teacher's chains/evm/adapter.go
// EVMAdapter (ethclient.Client wrapped behind a mutex-guarded struct,
// CallContract/BlockNumber/FilterLogs usage) generalized from one
// statically configured client into a rotating pool of clients.
package rpcpool

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Endpoint is one RPC client plus its rotation counter.
type Endpoint struct {
	URL    string
	Client *ethclient.Client
	count  int64 // atomic: requests served since last reset
}

func (e *Endpoint) incr() int64 { return atomic.AddInt64(&e.count, 1) }
func (e *Endpoint) load() int64 { return atomic.LoadInt64(&e.count) }
func (e *Endpoint) reset()      { atomic.StoreInt64(&e.count, 0) }

// rotationThreshold is the per-endpoint request count after which next()
// looks for a less-loaded endpoint instead of reusing the current one.
const rotationThreshold = 50

// Pool is the per-chain endpoint rotator described in §4.1.
type Pool struct {
	mu        sync.Mutex
	endpoints []*Endpoint
	current   int
	chainName string
}

// Dial connects one ethclient per URL. At least one URL is required.
func Dial(ctx context.Context, chainName string, urls []string) (*Pool, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("rpcpool: no endpoints configured for %s", chainName)
	}
	p := &Pool{chainName: chainName}
	for _, u := range urls {
		c, err := ethclient.DialContext(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("rpcpool: dial %s: %w", redact(u), err)
		}
		p.endpoints = append(p.endpoints, &Endpoint{URL: u, Client: c})
	}

	go p.resetLoop()
	return p, nil
}

// resetLoop clears every endpoint's counter every 60s (§4.1: "A
// per-endpoint request counter resets every 60 s").
func (p *Pool) resetLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		p.mu.Lock()
		for _, e := range p.endpoints {
			e.reset()
		}
		p.mu.Unlock()
	}
}

// next returns the endpoint to use for the following call: the current
// one, unless it has crossed rotationThreshold, in which case advance to
// whichever endpoint currently has the lowest load.
func (p *Pool) next() *Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.endpoints[p.current]
	if cur.load() < rotationThreshold {
		return cur
	}

	best := p.current
	for i, e := range p.endpoints {
		if e.load() < p.endpoints[best].load() {
			best = i
		}
	}
	p.current = best
	return p.endpoints[best]
}

func redact(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		if j := strings.LastIndex(url, "/"); j > i+3 {
			return url[:i+3] + "***"
		}
	}
	return "***"
}

// Close disconnects every endpoint client.
func (p *Pool) Close() {
	for _, e := range p.endpoints {
		e.Client.Close()
	}
}

// Len reports the number of configured endpoints, mostly for tests and
// health reporting.
func (p *Pool) Len() int { return len(p.endpoints) }
