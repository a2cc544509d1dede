package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/streamdroplets/droplets-engine/chainregistry"
	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/money"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// dropletsForResponse is the §6 `dropletsFor(address)` contract: total
// droplets, a per-asset USD breakdown taken from the address's most
// recent daily snapshot, and the last date it was snapshotted.
type dropletsForResponse struct {
	Address          string            `json:"address"`
	TotalDroplets    string            `json:"total_droplets"`
	Breakdown        map[string]string `json:"breakdown_by_asset"`
	LastSnapshotDate string            `json:"last_snapshot_date,omitempty"`
}

func (s *Server) dropletsFor(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	ctx := r.Context()

	entries, err := s.ledger.For(ctx, address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := big.NewInt(0)
	var lastDate time.Time
	for _, e := range entries {
		amt, perr := money.ParseAmount(e.Amount)
		if perr != nil {
			writeError(w, http.StatusInternalServerError, perr.Error())
			return
		}
		total = money.Add(total, amt)
		if e.SnapshotDate.After(lastDate) {
			lastDate = e.SnapshotDate
		}
	}

	resp := dropletsForResponse{
		Address:       address,
		TotalDroplets: total.String(),
		Breakdown:     map[string]string{},
	}
	if !lastDate.IsZero() {
		resp.LastSnapshotDate = lastDate.Format(dateLayout)
		snap, serr := s.db.GetDailyUsdSnapshot(ctx, address, lastDate)
		if serr != nil && !errors.Is(serr, dbstore.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, serr.Error())
			return
		}
		if snap != nil {
			resp.Breakdown = snap.Breakdown
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// leaderboardRow is one §6 `leaderboard(limit, offset)` entry: rank is
// positional, not stored, since the underlying table is already ordered
// by total_droplets.
type leaderboardRow struct {
	Rank             int     `json:"rank"`
	Address          string  `json:"address"`
	TotalDroplets    string  `json:"total_droplets"`
	DaysParticipated int64   `json:"days_participated"`
	AverageDailyUSD  float64 `json:"average_daily_usd"`
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	rows, err := s.ledger.Leaderboard(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]leaderboardRow, len(rows))
	for i, row := range rows {
		out[i] = leaderboardRow{
			Rank:             offset + i + 1,
			Address:          row.Address,
			TotalDroplets:    row.TotalDroplets,
			DaysParticipated: row.DaysParticipated,
			AverageDailyUSD:  row.AverageDailyUSD,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// daySnapshotResponse is the §6 `daySnapshot(date)` aggregate contract.
type daySnapshotResponse struct {
	Date          string `json:"date"`
	TotalUSD      string `json:"total_usd"`
	TotalDroplets string `json:"total_droplets"`
	AddressCount  int64  `json:"address_count"`
}

func (s *Server) daySnapshot(w http.ResponseWriter, r *http.Request) {
	dateStr := mux.Vars(r)["date"]
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	totalUSD, totalDroplets, count, err := s.db.DaySnapshotAggregate(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, daySnapshotResponse{
		Date:          dateStr,
		TotalUSD:      totalUSD,
		TotalDroplets: totalDroplets,
		AddressCount:  count,
	})
}

// chainHealth is one tracked contract's cursor lag (spec §6: "per-chain
// cursor lag (latest - cursor.last_safe_block)").
type chainHealth struct {
	Chain           string `json:"chain"`
	ContractAddress string `json:"contract_address"`
	LastSafeBlock   uint64 `json:"last_safe_block"`
	LatestBlock     uint64 `json:"latest_block,omitempty"`
	LagBlocks       int64  `json:"lag_blocks,omitempty"`
	Error           string `json:"error,omitempty"`
}

// healthResponse is the §6 `health()` contract: per-chain cursor lag for
// every tracked contract, plus the most recent daily snapshot job's
// status (spec §8's "API continues to serve yesterday's data and exposes
// the failure in /health" behavior).
type healthResponse struct {
	Chains           []chainHealth `json:"chains"`
	LastSnapshotDate string        `json:"last_snapshot_date,omitempty"`
	LastSnapshotJob  string        `json:"last_snapshot_job_status"`
	LastSnapshotErr  string        `json:"last_snapshot_error,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cursors, err := s.db.ListCursors(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	chains := make([]chainHealth, 0, len(cursors))
	for _, c := range cursors {
		id := chainregistry.ChainID(c.ChainID)
		ch := chainHealth{Chain: id.String(), ContractAddress: c.ContractAddress, LastSafeBlock: c.LastSafeBlock}

		pool, perr := s.rpc.For(id)
		if perr != nil {
			ch.Error = perr.Error()
			chains = append(chains, ch)
			continue
		}
		latest, berr := pool.BlockNumber(ctx)
		if berr != nil {
			ch.Error = berr.Error()
			chains = append(chains, ch)
			continue
		}
		ch.LatestBlock = latest
		ch.LagBlocks = int64(latest) - int64(c.LastSafeBlock)
		chains = append(chains, ch)
	}

	resp := healthResponse{Chains: chains, LastSnapshotJob: string(dbstore.JobPending)}
	job, jerr := s.db.LatestDailyJob(ctx)
	switch {
	case jerr == nil:
		resp.LastSnapshotDate = job.SnapshotDate.Format(dateLayout)
		resp.LastSnapshotJob = string(job.Status)
		resp.LastSnapshotErr = job.Error
	case errors.Is(jerr, dbstore.ErrNotFound):
		resp.LastSnapshotJob = "never_run"
	default:
		writeError(w, http.StatusInternalServerError, jerr.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
