// Package dbstore is the relational persistence layer (§3/§5): a shared
// pgxpool.Pool plus one repository-style type per entity, the way the
// teacher's storage.Store defined one method per concern over a single
// backing store. Here the backing store is Postgres via jackc/pgx/v5
// instead of a JSON file, because the spec requires a shared connection
// pool (min 2, max 10), explicit transactions, and row-level locking
// that only a real SQL driver expresses.
package dbstore

import "time"

// EventType enumerates ShareEvent.event_type (§3).
type EventType string

const (
	EventStake          EventType = "stake"
	EventUnstake        EventType = "unstake"
	EventRedeem         EventType = "redeem"
	EventInstantUnstake EventType = "instant_unstake"
	EventTransfer       EventType = "transfer"
	EventBridgeIn       EventType = "bridge_in"
	EventBridgeOut      EventType = "bridge_out"
)

// Classification enumerates ShareEvent.classification (§3, §4.3).
type Classification string

const (
	ClassMint           Classification = "mint"
	ClassBurnUnstake    Classification = "burn_unstake"
	ClassBridgeBurn     Classification = "bridge_burn"
	ClassBridgeMint     Classification = "bridge_mint"
	ClassIntegrationIn  Classification = "integration_in"
	ClassIntegrationOut Classification = "integration_out"
	ClassTransferUser   Classification = "transfer_user"
)

// PriceSource enumerates OraclePrice.source (§3).
type PriceSource string

const (
	SourceOnchain PriceSource = "onchain"
	SourceCache   PriceSource = "cache"
	SourceFallback PriceSource = "fallback"
)

// JobStatus enumerates DailyJob.status (§4.8, §4.10 state machine).
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Cursor is the persistent resume point for one (chain, contract) log
// ingestion task (C3).
type Cursor struct {
	ChainID        uint64
	ContractAddress string
	LastSafeBlock  uint64
	LastTxHash     string
	LastLogIndex   int64
	UpdatedAt      time.Time
}

// ShareEvent is one decoded, classified on-chain event (§3).
type ShareEvent struct {
	ChainID        uint64
	TxHash         string
	LogIndex       int64
	Address        string
	Asset          string
	EventType      EventType
	SharesDelta    string // decimal(78,0), signed
	Block          uint64
	Timestamp      time.Time
	RoundID        *int64
	Classification Classification
}

// Round is one PPS-bearing round on Chain-E (§3, §4.4).
type Round struct {
	Asset          string
	ChainID        uint64
	RoundID        int64
	StartBlock     uint64
	StartTs        time.Time
	EndTs          *time.Time
	PPS            string // decimal(78,0)
	PPSScale       uint8
	SharesMinted   string
	Yield          string
	IsYieldPositive bool
	TxHash         string
}

// BalanceSnapshot is the per-round opening balance for one address (§3,
// §4.5).
type BalanceSnapshot struct {
	Address             string
	Asset               string
	RoundID             int64
	SharesAtStart       string
	HadUnstakeInRound   bool
	HadTransferInRound  bool
	HadBridgeInRound    bool
}

// CurrentBalance is the live, non-negative share balance for one
// (address, asset, chain) (§3).
type CurrentBalance struct {
	Address        string
	Asset          string
	ChainID        uint64
	Shares         string // decimal(78,0), must stay >= 0
	LastUpdateBlock uint64
}

// OraclePrice is one resolved USD price observation (§3, §4.6).
type OraclePrice struct {
	Asset       string
	ChainID     uint64
	BlockNumber uint64
	Timestamp   time.Time
	PriceUSD    string // decimal(78,0)
	Scale       uint8
	Source      PriceSource
}

// IntegrationPosition is a derived per-user position in one integration
// protocol at a block (§3, §4.7).
type IntegrationPosition struct {
	ProtocolID            string
	UserAddress           string
	PositionShares        string
	UnderlyingXTokenAmount string
	USDValue              string
	BlockNumber           uint64
	Timestamp             time.Time
}

// DailyUsdSnapshot is the per-address, per-day consolidated USD value
// (§3, §4.8).
type DailyUsdSnapshot struct {
	Address        string
	SnapshotDate   time.Time
	TotalUSDValue  string
	Breakdown      map[string]string // asset -> usd value, JSON column
	HadUnstake     bool
	IsExcluded     bool
	DropletsEarned string
	SnapshotTs     time.Time
}

// DropletLedger is one idempotent ledger entry (§3, §4.9).
type DropletLedger struct {
	Address      string
	SnapshotDate time.Time
	Amount       string
	Reason       string
}

// Leaderboard is the derived per-address aggregate maintained alongside
// DropletLedger writes (§4.9).
type Leaderboard struct {
	Address           string
	TotalDroplets      string
	DaysParticipated   int64
	LastSnapshotDate   time.Time
	AverageDailyUSD    float64
}

// ExcludedAddress marks an address that never earns droplets (§3).
type ExcludedAddress struct {
	Address string
	Reason  string
}

// DailyJob is the mutex/state-machine row for one snapshot_date (§4.8,
// §4.10).
type DailyJob struct {
	SnapshotDate time.Time
	Status       JobStatus
	Error        string
	UpdatedAt    time.Time
}

// ReconciliationJob is the mutex/state-machine row for one reconciliation
// run over [from_block, to_block] on a chain (§4.10's day-job state
// machine, reused for reconciliation runs instead of calendar days since
// a run is scoped to a block range, not a date).
type ReconciliationJob struct {
	ChainID   uint64
	FromBlock uint64
	ToBlock   uint64
	Status    JobStatus
	Error     string
	UpdatedAt time.Time
}
