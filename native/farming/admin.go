package farming

import (
	"math/big"
	"strings"

	"hivefarm/core/events"
	"hivefarm/crypto"
	nativecommon "hivefarm/native/common"
)

// AddPool registers a new stake pool and returns its identifier. Duplicate
// stake tokens and fees above 10000 bps are rejected. When withSync is set
// the whole ledger is synced first so the weight change cannot retroactively
// dilute accrued rewards.
func (e *Engine) AddPool(caller crypto.Address, allocWeight uint64, token string, nftStaking bool, depositFeeBps uint64, withSync bool) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if err := e.requireOwner(caller); err != nil {
		return 0, err
	}
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		return 0, ErrInvalidToken
	}
	if depositFeeBps > maxDepositFeeBps {
		return 0, ErrDepositFeeTooHigh
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	params, err := e.ensureParams()
	if err != nil {
		return 0, err
	}

	count, err := e.state.PoolCount()
	if err != nil {
		return 0, err
	}
	for pid := uint64(0); pid < count; pid++ {
		existing, err := e.loadPool(pid)
		if err != nil {
			return 0, err
		}
		if existing.Token == token {
			return 0, ErrDuplicatePoolToken
		}
	}

	if withSync {
		if err := e.massSync(params); err != nil {
			return 0, err
		}
	}

	params.TotalAllocWeight += allocWeight
	if err := e.state.PutParams(params); err != nil {
		return 0, err
	}

	lastSync := e.height
	if params.GenesisHeight > lastSync {
		lastSync = params.GenesisHeight
	}
	pool := &Pool{
		Token:              token,
		AllocWeight:        allocWeight,
		LastSyncHeight:     lastSync,
		AccPerShare:        big.NewInt(0),
		AccPerShareSilver:  big.NewInt(0),
		AccPerShareGold:    big.NewInt(0),
		AccPerShareDiamond: big.NewInt(0),
		NFTStaking:         nftStaking,
		DepositFeeBps:      depositFeeBps,
	}
	pid, err := e.state.AppendPool(pool)
	if err != nil {
		return 0, err
	}

	e.emit(events.PoolAdded{PoolID: pid, Token: token, AllocWeight: allocWeight, NFTStaking: nftStaking, DepositFeeBps: depositFeeBps})
	return pid, nil
}

// SetPool reconfigures an existing pool, adjusting the global allocation
// weight by the delta.
func (e *Engine) SetPool(caller crypto.Address, pid uint64, allocWeight uint64, nftStaking bool, depositFeeBps uint64, withSync bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if depositFeeBps > maxDepositFeeBps {
		return ErrDepositFeeTooHigh
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	params, err := e.ensureParams()
	if err != nil {
		return err
	}

	if withSync {
		if err := e.massSync(params); err != nil {
			return err
		}
	}

	// Load after the sync; the mass sync persists fresh copies and a
	// pre-sync snapshot written back here would roll the accumulators back.
	pool, err := e.loadPool(pid)
	if err != nil {
		return err
	}

	params.TotalAllocWeight = params.TotalAllocWeight - pool.AllocWeight + allocWeight
	if err := e.state.PutParams(params); err != nil {
		return err
	}

	pool.AllocWeight = allocWeight
	pool.NFTStaking = nftStaking
	pool.DepositFeeBps = depositFeeBps
	if err := e.state.PutPool(pid, pool); err != nil {
		return err
	}

	e.emit(events.PoolUpdated{PoolID: pid, AllocWeight: allocWeight, NFTStaking: nftStaking, DepositFeeBps: depositFeeBps})
	return nil
}

// SetEmissionRate updates the global emission rate. The whole ledger is
// synced first so the new rate only applies from the current height onward.
func (e *Engine) SetEmissionRate(caller crypto.Address, rate *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if rate == nil || rate.Sign() < 0 {
		return ErrInvalidEmissionRate
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	params, err := e.ensureParams()
	if err != nil {
		return err
	}
	if err := e.massSync(params); err != nil {
		return err
	}

	previous := params.EmissionRate
	params.EmissionRate = new(big.Int).Set(rate)
	if err := e.state.PutParams(params); err != nil {
		return err
	}

	e.emit(events.EmissionRateChanged{Previous: previous, Current: new(big.Int).Set(rate)})
	return nil
}

func (e *Engine) requireOwner(caller crypto.Address) error {
	if e.owner.IsZero() || !sameAddress(caller, e.owner) {
		return ErrUnauthorized
	}
	return nil
}
