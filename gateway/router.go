// Package gateway exposes the ledger's read surface over HTTP. All routes are
// queries; state only changes through the engine's native entry points.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hivefarm/crypto"
	"hivefarm/native/farming"
)

// FarmingReader is the engine's query surface consumed by the gateway.
type FarmingReader interface {
	PoolCount() (uint64, error)
	PoolInfo(pid uint64) (*farming.Pool, error)
	PositionOf(pid uint64, addr crypto.Address) (*farming.Position, error)
	PendingReward(pid uint64, addr crypto.Address) (*big.Int, error)
	ParamsView() (*farming.Params, error)
}

// ReferralReader is the registry's query surface consumed by the gateway.
type ReferralReader interface {
	ReferrerOf(user crypto.Address) (crypto.Address, bool, error)
	CommissionTotal(referrer crypto.Address, level uint8) (*big.Int, error)
}

// Config wires the gateway's collaborators.
type Config struct {
	Farming   FarmingReader
	Referrals ReferralReader
	Logger    *slog.Logger
}

// New builds the HTTP handler tree.
func New(cfg Config) (http.Handler, error) {
	if cfg.Farming == nil {
		return nil, errors.New("gateway: farming reader not configured")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &gateway{farming: cfg.Farming, referrals: cfg.Referrals, logger: logger}

	r := chi.NewRouter()
	r.Use(metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(sr chi.Router) {
		sr.Get("/params", g.getParams)
		sr.Get("/pools", g.listPools)
		sr.Get("/pools/{pid}", g.getPool)
		sr.Get("/pools/{pid}/positions/{address}", g.getPosition)
		sr.Get("/pools/{pid}/pending/{address}", g.getPending)
		if g.referrals != nil {
			sr.Get("/referrals/{address}", g.getReferral)
		}
	})
	return r, nil
}

type gateway struct {
	farming   FarmingReader
	referrals ReferralReader
	logger    *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func (g *gateway) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		g.logger.Error("encode response", "err", err)
	}
}

func (g *gateway) writeError(w http.ResponseWriter, status int, err error) {
	g.writeJSON(w, status, errorResponse{Error: err.Error()})
}
