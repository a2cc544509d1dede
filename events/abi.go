// Package events decodes raw on-chain logs into typed records and
// classifies transfers per the ordered rules in §4.3 (C5). Grounded on
// the teacher's node/listener.go: a hardcoded abi.JSON ABI parsed once,
// EventByID(topic) dispatch, and Unpack into positional values.
package events

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// vaultEventABI covers the share-token events the vault and its OFT
// mirrors emit: ERC-20 Transfer plus the vault-specific lifecycle
// events and LayerZero OFT bridge events (§4.3).
const vaultEventABI = `[
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"round","type":"uint256"}],"name":"Stake","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"shares","type":"uint256"},{"indexed":false,"name":"round","type":"uint256"}],"name":"Unstake","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"shares","type":"uint256"},{"indexed":false,"name":"round","type":"uint256"}],"name":"Redeem","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"InstantUnstake","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":false,"name":"round","type":"uint256"},{"indexed":false,"name":"pps","type":"uint256"},{"indexed":false,"name":"sharesMinted","type":"uint256"},{"indexed":false,"name":"wrappedMinted","type":"uint256"},{"indexed":false,"name":"wrappedBurned","type":"uint256"},{"indexed":false,"name":"yield","type":"uint256"},{"indexed":false,"name":"isYieldPositive","type":"bool"}],"name":"RoundRolled","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"guid","type":"bytes32"},{"indexed":false,"name":"dstEid","type":"uint32"},{"indexed":true,"name":"fromAddress","type":"address"},{"indexed":false,"name":"amountSentLD","type":"uint256"},{"indexed":false,"name":"amountReceivedLD","type":"uint256"}],"name":"OFTSent","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"guid","type":"bytes32"},{"indexed":false,"name":"srcEid","type":"uint32"},{"indexed":true,"name":"toAddress","type":"address"},{"indexed":false,"name":"amountReceivedLD","type":"uint256"}],"name":"OFTReceived","type":"event"}
]`

// ParsedVaultABI is the shared, once-parsed ABI every decode call uses.
var ParsedVaultABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(vaultEventABI))
	if err != nil {
		panic("events: invalid embedded ABI: " + err.Error())
	}
	ParsedVaultABI = parsed
}
