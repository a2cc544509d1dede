// Package api implements the thin HTTP read API contracted in spec §6
// (dropletsFor, leaderboard, daySnapshot, health). It is out of scope
// for the core engine's own correctness, but the engine's components
// (dbstore, droplets, rpcpool, chainregistry) are still the only things
// it talks to — no state of its own.
//
// Grounded on the teacher's api/router.go: a gorilla/mux router wired by
// one NewRouter() constructor, each endpoint a plain
// func(http.ResponseWriter, *http.Request) that encodes a JSON struct.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/streamdroplets/droplets-engine/dbstore"
	"github.com/streamdroplets/droplets-engine/droplets"
	"github.com/streamdroplets/droplets-engine/rpcpool"
)

// Server holds the read-only dependencies every handler needs.
type Server struct {
	db     *dbstore.Store
	ledger *droplets.Ledger
	rpc    *rpcpool.Manager
}

// NewServer builds a Server over the engine's store, ledger, and RPC
// manager (the latter only used by health() to read each chain's latest
// block height).
func NewServer(db *dbstore.Store, ledger *droplets.Ledger, rpc *rpcpool.Manager) *Server {
	return &Server{db: db, ledger: ledger, rpc: rpc}
}

// NewRouter wires every endpoint spec §6 contracts onto a mux.Router.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/droplets/{address}", s.dropletsFor).Methods(http.MethodGet)
	r.HandleFunc("/api/leaderboard", s.leaderboard).Methods(http.MethodGet)
	r.HandleFunc("/api/snapshots/{date}", s.daySnapshot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	return r
}
