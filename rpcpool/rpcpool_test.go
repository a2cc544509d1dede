package rpcpool

import (
	"errors"
	"testing"
)

func TestIsHistoricalDepthError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("query returned more than 10000 results, block range too large"), true},
		{errors.New("request requires archive node"), true},
		{errors.New("exceed maximum block range of 2000"), true},
		{errors.New("connection refused"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := isHistoricalDepthError(tc.err); got != tc.want {
			t.Errorf("isHistoricalDepthError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestEndpointRotationThreshold(t *testing.T) {
	e := &Endpoint{URL: "a"}
	for i := 0; i < rotationThreshold-1; i++ {
		e.incr()
	}
	if e.load() >= rotationThreshold {
		t.Fatalf("load should be below threshold, got %d", e.load())
	}
	e.incr()
	if e.load() < rotationThreshold {
		t.Fatalf("load should have crossed threshold, got %d", e.load())
	}
	e.reset()
	if e.load() != 0 {
		t.Errorf("reset should zero the counter, got %d", e.load())
	}
}

func TestPoolNextPrefersLeastLoadedAfterThreshold(t *testing.T) {
	p := &Pool{
		chainName: "test",
		endpoints: []*Endpoint{
			{URL: "a"},
			{URL: "b"},
		},
	}
	for i := 0; i < rotationThreshold; i++ {
		p.endpoints[0].incr()
	}
	got := p.next()
	if got.URL != "b" {
		t.Errorf("expected rotation to endpoint b once a crosses threshold, got %s", got.URL)
	}
}

func TestRedact(t *testing.T) {
	got := redact("https://eth-mainnet.g.alchemy.com/v2/supersecretkey")
	if got != "https://***" {
		t.Errorf("redact = %q, want masked host/path", got)
	}
}
