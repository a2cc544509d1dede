package integrations

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// holderSet tracks the addresses observed to hold a protocol's share/LP
// token, maintained by Transfer events on that token (§4.7). Adapters
// embed this instead of re-deriving holders from a full chain scan.
type holderSet struct {
	mu      sync.RWMutex
	holders map[common.Address]bool
}

func newHolderSet() *holderSet {
	return &holderSet{holders: make(map[common.Address]bool)}
}

// Observe records a Transfer(from, to) on the share token: both sender
// and receiver become (or remain) holders, and no address is ever
// removed. The adapters skip holders whose balance reads as zero when
// they compute positions, so this set is intentionally permissive (true
// holders ∪ addresses that have since emptied their balance).
func (h *holderSet) Observe(from, to common.Address) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if from != (common.Address{}) {
		h.holders[from] = true
	}
	if to != (common.Address{}) {
		h.holders[to] = true
	}
}

func (h *holderSet) List() []common.Address {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]common.Address, 0, len(h.holders))
	for a := range h.holders {
		out = append(out, a)
	}
	return out
}

// mustParseABI panics on malformed embedded ABI JSON — a programmer
// error, never a runtime condition.
func mustParseABI(json string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(json))
	if err != nil {
		panic("integrations: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

// mulDivFloor computes floor(a*b/c), the shared share->underlying
// conversion formula every adapter in §4.7 uses.
func mulDivFloor(a, b, c *big.Int) *big.Int {
	if c.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(a, b)
	return num.Div(num, c)
}
