package gateway

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hivefarm/crypto"
	"hivefarm/native/farming"
)

type poolResponse struct {
	PoolID uint64 `json:"poolId"`
	*farming.Pool
}

type pendingResponse struct {
	PoolID  uint64         `json:"poolId"`
	Account crypto.Address `json:"account"`
	Pending *big.Int       `json:"pending"`
}

type referralResponse struct {
	Account     crypto.Address      `json:"account"`
	Referrer    crypto.Address      `json:"referrer"`
	HasReferrer bool                `json:"hasReferrer"`
	Commissions map[string]*big.Int `json:"commissions"`
}

func (g *gateway) getParams(w http.ResponseWriter, r *http.Request) {
	params, err := g.farming.ParamsView()
	if err != nil {
		g.writeError(w, http.StatusInternalServerError, err)
		return
	}
	g.writeJSON(w, http.StatusOK, params)
}

func (g *gateway) listPools(w http.ResponseWriter, r *http.Request) {
	count, err := g.farming.PoolCount()
	if err != nil {
		g.writeError(w, http.StatusInternalServerError, err)
		return
	}
	pools := make([]poolResponse, 0, count)
	for pid := uint64(0); pid < count; pid++ {
		pool, err := g.farming.PoolInfo(pid)
		if err != nil {
			g.writeError(w, http.StatusInternalServerError, err)
			return
		}
		pools = append(pools, poolResponse{PoolID: pid, Pool: pool})
	}
	g.writeJSON(w, http.StatusOK, pools)
}

func (g *gateway) getPool(w http.ResponseWriter, r *http.Request) {
	pid, ok := g.parsePoolID(w, r)
	if !ok {
		return
	}
	pool, err := g.farming.PoolInfo(pid)
	if err != nil {
		g.writePoolError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, poolResponse{PoolID: pid, Pool: pool})
}

func (g *gateway) getPosition(w http.ResponseWriter, r *http.Request) {
	pid, ok := g.parsePoolID(w, r)
	if !ok {
		return
	}
	addr, ok := g.parseAddress(w, r)
	if !ok {
		return
	}
	pos, err := g.farming.PositionOf(pid, addr)
	if err != nil {
		g.writePoolError(w, err)
		return
	}
	if pos == nil {
		g.writeError(w, http.StatusNotFound, errors.New("position not found"))
		return
	}
	g.writeJSON(w, http.StatusOK, pos)
}

func (g *gateway) getPending(w http.ResponseWriter, r *http.Request) {
	pid, ok := g.parsePoolID(w, r)
	if !ok {
		return
	}
	addr, ok := g.parseAddress(w, r)
	if !ok {
		return
	}
	pending, err := g.farming.PendingReward(pid, addr)
	if err != nil {
		g.writePoolError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, pendingResponse{PoolID: pid, Account: addr, Pending: pending})
}

func (g *gateway) getReferral(w http.ResponseWriter, r *http.Request) {
	addr, ok := g.parseAddress(w, r)
	if !ok {
		return
	}
	referrer, has, err := g.referrals.ReferrerOf(addr)
	if err != nil {
		g.writeError(w, http.StatusInternalServerError, err)
		return
	}
	commissions := make(map[string]*big.Int, 4)
	for _, level := range []uint8{0, 1, 2, 3} {
		total, err := g.referrals.CommissionTotal(addr, level)
		if err != nil {
			g.writeError(w, http.StatusInternalServerError, err)
			return
		}
		commissions[strconv.Itoa(int(level))] = total
	}
	g.writeJSON(w, http.StatusOK, referralResponse{
		Account:     addr,
		Referrer:    referrer,
		HasReferrer: has,
		Commissions: commissions,
	})
}

func (g *gateway) parsePoolID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	pid, err := strconv.ParseUint(chi.URLParam(r, "pid"), 10, 64)
	if err != nil {
		g.writeError(w, http.StatusBadRequest, errors.New("invalid pool id"))
		return 0, false
	}
	return pid, true
}

func (g *gateway) parseAddress(w http.ResponseWriter, r *http.Request) (crypto.Address, bool) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, errors.New("invalid address"))
		return crypto.Address{}, false
	}
	return addr, true
}

func (g *gateway) writePoolError(w http.ResponseWriter, err error) {
	if errors.Is(err, farming.ErrPoolNotFound) {
		g.writeError(w, http.StatusNotFound, err)
		return
	}
	g.writeError(w, http.StatusInternalServerError, err)
}
