package farming

import (
	"bytes"
	"math/big"
	"strings"
	"sync"

	"hivefarm/core/events"
	"hivefarm/crypto"
	nativecommon "hivefarm/native/common"
)

const moduleName = "farming"

const (
	// nftSplitPermille is the slice of every pool accrual diverted to the
	// NFT tier cohorts.
	nftSplitPermille = 200
	// Tier ratios apply to the NFT split and sum to the whole of it.
	silverSplitPermille  = 200
	goldSplitPermille    = 300
	diamondSplitPermille = 500

	maxDepositFeeBps = 10_000
)

// TokenVault is the fungible custodian collaborator. Transfers either
// complete atomically within the calling transaction or fail the whole call.
type TokenVault interface {
	Transfer(symbol string, from, to crypto.Address, amount *big.Int) error
	BalanceOf(symbol string, holder crypto.Address) (*big.Int, error)
	Mint(symbol string, to crypto.Address, amount *big.Int) error
	TotalSupply(symbol string) (*big.Int, error)
	MaxSupply(symbol string) (*big.Int, error)
}

// NFTCustodian is the non-fungible custodian collaborator.
type NFTCustodian interface {
	Transfer(id uint64, from, to crypto.Address) error
	TierOf(id uint64) (Tier, error)
	BalanceOf(holder crypto.Address) (uint64, error)
}

// ReferralBook is the referral registry collaborator. Rates are expressed in
// permille (x/1000).
type ReferralBook interface {
	RecordEdge(user, referrer crypto.Address) error
	ReferrerOf(user crypto.Address) (crypto.Address, bool, error)
	LevelsOf(user crypto.Address) ([3]crypto.Address, error)
	Level1RateOf(referrer crypto.Address) (uint64, error)
	FixedLevel2Rate() uint64
	FixedLevel3Rate() uint64
	RecordCommission(referrer crypto.Address, amount *big.Int, level uint8) error
	DepositCommissionEnabled(referrer crypto.Address) (bool, error)
	FlatDepositCommissionRate() uint64
}

type engineState interface {
	PoolCount() (uint64, error)
	GetPool(pid uint64) (*Pool, error)
	PutPool(pid uint64, pool *Pool) error
	AppendPool(pool *Pool) (uint64, error)
	GetPosition(pid uint64, addr crypto.Address) (*Position, error)
	PutPosition(pid uint64, pos *Position) error
	GetParams() (*Params, error)
	PutParams(params *Params) error
}

// Engine orchestrates the staking ledger state transitions. All mutating
// entry points serialize through a single mutex; one mutation completes fully
// before the next begins.
type Engine struct {
	mu sync.Mutex

	state     engineState
	vault     TokenVault
	nfts      NFTCustodian
	referrals ReferralBook
	emitter   events.Emitter
	pauses    nativecommon.PauseView

	moduleAddr   crypto.Address
	feeSink      crypto.Address
	owner        crypto.Address
	rewardSymbol string
	height       uint64
}

// NewEngine constructs a farming engine bound to the ledger custody address,
// the deposit-fee sink and the reward token symbol.
func NewEngine(moduleAddr, feeSink crypto.Address, rewardSymbol string) *Engine {
	return &Engine{
		moduleAddr:   moduleAddr,
		feeSink:      feeSink,
		rewardSymbol: strings.ToUpper(strings.TrimSpace(rewardSymbol)),
		emitter:      events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetVault wires the fungible token custodian.
func (e *Engine) SetVault(vault TokenVault) { e.vault = vault }

// SetNFTCustodian wires the non-fungible custodian.
func (e *Engine) SetNFTCustodian(nfts NFTCustodian) { e.nfts = nfts }

// SetReferrals wires the referral registry.
func (e *Engine) SetReferrals(book ReferralBook) { e.referrals = book }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetOwner assigns the admin account allowed to reconfigure pools and the
// emission rate.
func (e *Engine) SetOwner(owner crypto.Address) {
	if e == nil {
		return
	}
	e.owner = owner
}

// SetBlockHeight records the height observed for subsequent accrual deltas.
// Time only advances through this setter; the engine never self-syncs.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.height = height
	e.mu.Unlock()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.vault == nil || e.nfts == nil || e.referrals == nil {
		return errNilCollaborator
	}
	return nil
}

func (e *Engine) emit(event events.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

// Deposit transfers stake tokens into custody and credits the position after
// the referral deposit commission and the pool deposit fee are skimmed, in
// that order. A zero amount settles pending rewards without changing the
// stake. The referral edge is registered on the first deposit only; the
// registry ignores later attempts.
func (e *Engine) Deposit(caller crypto.Address, pid uint64, amount *big.Int, referrer crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	params, err := e.ensureParams()
	if err != nil {
		return err
	}
	pool, err := e.loadPool(pid)
	if err != nil {
		return err
	}
	if err := e.syncPool(pid, pool, params); err != nil {
		return err
	}

	pos, err := e.ensurePosition(pid, caller)
	if err != nil {
		return err
	}

	if amount.Sign() > 0 && !referrer.IsZero() && !sameAddress(referrer, caller) {
		if err := e.referrals.RecordEdge(caller, referrer); err != nil {
			return err
		}
	}

	if err := e.settle(pid, pool, pos); err != nil {
		return err
	}

	commission := big.NewInt(0)
	fee := big.NewInt(0)
	credited := big.NewInt(0)
	if amount.Sign() > 0 {
		// Measure the actually received amount via balance delta so
		// fee-on-transfer stake tokens stay accounted exactly.
		before, err := e.vault.BalanceOf(pool.Token, e.moduleAddr)
		if err != nil {
			return err
		}
		if err := e.vault.Transfer(pool.Token, caller, e.moduleAddr, amount); err != nil {
			return err
		}
		after, err := e.vault.BalanceOf(pool.Token, e.moduleAddr)
		if err != nil {
			return err
		}
		received := new(big.Int).Sub(after, before)
		if received.Sign() < 0 {
			received = big.NewInt(0)
		}

		commission, err = e.skimDepositCommission(pool, caller, received)
		if err != nil {
			return err
		}
		afterCommission := new(big.Int).Sub(received, commission)

		fee = bpsShare(afterCommission, pool.DepositFeeBps)
		if fee.Sign() > 0 {
			if err := e.vault.Transfer(pool.Token, e.moduleAddr, e.feeSink, fee); err != nil {
				return err
			}
		}

		credited = new(big.Int).Sub(afterCommission, fee)
		pos.StakedAmount = new(big.Int).Add(pos.StakedAmount, credited)
	}

	if err := e.recomputeDebts(pool, pos); err != nil {
		return err
	}
	if err := e.state.PutPosition(pid, pos); err != nil {
		return err
	}

	e.emit(events.Deposit{PoolID: pid, Account: caller, Credited: credited, Commission: commission, Fee: fee})
	return nil
}

func (e *Engine) skimDepositCommission(pool *Pool, caller crypto.Address, received *big.Int) (*big.Int, error) {
	if received.Sign() == 0 {
		return big.NewInt(0), nil
	}
	referrer, ok, err := e.referrals.ReferrerOf(caller)
	if err != nil {
		return nil, err
	}
	if !ok || referrer.IsZero() {
		return big.NewInt(0), nil
	}
	enabled, err := e.referrals.DepositCommissionEnabled(referrer)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return big.NewInt(0), nil
	}
	commission := permilleShare(received, e.referrals.FlatDepositCommissionRate())
	if commission.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if err := e.vault.Transfer(pool.Token, e.moduleAddr, referrer, commission); err != nil {
		return nil, err
	}
	if err := e.referrals.RecordCommission(referrer, commission, 0); err != nil {
		return nil, err
	}
	return commission, nil
}

// Withdraw settles pending rewards and releases stake back to the caller. A
// zero amount acts as a pure harvest.
func (e *Engine) Withdraw(caller crypto.Address, pid uint64, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	params, err := e.ensureParams()
	if err != nil {
		return err
	}
	pool, err := e.loadPool(pid)
	if err != nil {
		return err
	}
	if err := e.syncPool(pid, pool, params); err != nil {
		return err
	}

	pos, err := e.state.GetPosition(pid, caller)
	if err != nil {
		return err
	}
	if pos == nil || normalizePosition(pos).StakedAmount.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}

	if err := e.settle(pid, pool, pos); err != nil {
		return err
	}

	if amount.Sign() > 0 {
		if err := e.vault.Transfer(pool.Token, e.moduleAddr, caller, amount); err != nil {
			return err
		}
		pos.StakedAmount = new(big.Int).Sub(pos.StakedAmount, amount)
	}

	if err := e.recomputeDebts(pool, pos); err != nil {
		return err
	}
	if err := e.state.PutPosition(pid, pos); err != nil {
		return err
	}

	e.emit(events.Withdraw{PoolID: pid, Account: caller, Amount: amount})
	return nil
}

// EmergencyWithdraw returns the whole stake without settlement, forfeiting
// any pending reward. It is the escape hatch, not a normal exit.
func (e *Engine) EmergencyWithdraw(caller crypto.Address, pid uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool(pid)
	if err != nil {
		return err
	}
	pos, err := e.state.GetPosition(pid, caller)
	if err != nil {
		return err
	}
	if pos == nil {
		return ErrInsufficientStake
	}
	normalizePosition(pos)

	amount := new(big.Int).Set(pos.StakedAmount)
	if amount.Sign() > 0 {
		if err := e.vault.Transfer(pool.Token, e.moduleAddr, caller, amount); err != nil {
			return err
		}
	}
	pos.StakedAmount = big.NewInt(0)
	pos.RewardDebt = big.NewInt(0)
	pos.NFTRewardDebt = big.NewInt(0)
	if err := e.state.PutPosition(pid, pos); err != nil {
		return err
	}

	e.emit(events.EmergencyWithdraw{PoolID: pid, Account: caller, Amount: amount})
	return nil
}

// StakeNFT locks a tier NFT into the caller's position. The pool must have
// NFT staking enabled, the caller must already hold stake, and at most one
// NFT may be locked per position.
func (e *Engine) StakeNFT(caller crypto.Address, pid uint64, nftID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if nftID == 0 {
		return ErrInvalidNFT
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	params, err := e.ensureParams()
	if err != nil {
		return err
	}
	pool, err := e.loadPool(pid)
	if err != nil {
		return err
	}
	if !pool.NFTStaking {
		return ErrNFTStakingDisabled
	}
	if err := e.syncPool(pid, pool, params); err != nil {
		return err
	}

	pos, err := e.state.GetPosition(pid, caller)
	if err != nil {
		return err
	}
	if pos == nil || normalizePosition(pos).StakedAmount.Sign() == 0 {
		return ErrNoStake
	}
	if pos.StakedNFTID != 0 {
		return ErrNFTAlreadyStaked
	}
	tier, err := e.nfts.TierOf(nftID)
	if err != nil {
		return err
	}
	if !tier.Known() {
		return ErrUnknownTier
	}

	if err := e.settle(pid, pool, pos); err != nil {
		return err
	}

	if err := e.nfts.Transfer(nftID, caller, e.moduleAddr); err != nil {
		return err
	}
	pos.StakedNFTID = nftID
	pool.adjustLocked(tier, 1)

	if err := e.recomputeDebts(pool, pos); err != nil {
		return err
	}
	if err := e.state.PutPool(pid, pool); err != nil {
		return err
	}
	if err := e.state.PutPosition(pid, pos); err != nil {
		return err
	}

	e.emit(events.NFTStaked{PoolID: pid, Account: caller, NFTID: nftID, Tier: tier.String()})
	return nil
}

// UnstakeNFT releases the caller's locked NFT back to them.
func (e *Engine) UnstakeNFT(caller crypto.Address, pid uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	params, err := e.ensureParams()
	if err != nil {
		return err
	}
	pool, err := e.loadPool(pid)
	if err != nil {
		return err
	}
	if err := e.syncPool(pid, pool, params); err != nil {
		return err
	}

	pos, err := e.state.GetPosition(pid, caller)
	if err != nil {
		return err
	}
	if pos == nil || pos.StakedNFTID == 0 {
		return ErrNoNFTStaked
	}
	normalizePosition(pos)
	nftID := pos.StakedNFTID
	tier, err := e.nfts.TierOf(nftID)
	if err != nil {
		return err
	}
	if !tier.Known() {
		return ErrUnknownTier
	}

	if err := e.settle(pid, pool, pos); err != nil {
		return err
	}

	if err := e.nfts.Transfer(nftID, e.moduleAddr, caller); err != nil {
		return err
	}
	pos.StakedNFTID = 0
	pos.NFTRewardDebt = big.NewInt(0)
	pool.adjustLocked(tier, -1)

	if err := e.recomputeDebts(pool, pos); err != nil {
		return err
	}
	if err := e.state.PutPool(pid, pool); err != nil {
		return err
	}
	if err := e.state.PutPosition(pid, pos); err != nil {
		return err
	}

	e.emit(events.NFTUnstaked{PoolID: pid, Account: caller, NFTID: nftID, Tier: tier.String()})
	return nil
}

// settle computes the position's pending reward against the current
// accumulators and disburses it. An unknown tier on a staked NFT aborts the
// whole call; the plain component is never paid without the tier component.
func (e *Engine) settle(pid uint64, pool *Pool, pos *Position) error {
	if pos == nil {
		return nil
	}
	normalizePosition(pos)
	pending, err := checkedSub(accShare(pos.StakedAmount, pool.AccPerShare), pos.RewardDebt)
	if err != nil {
		return err
	}
	if pos.StakedNFTID != 0 {
		tier, err := e.nfts.TierOf(pos.StakedNFTID)
		if err != nil {
			return err
		}
		if !tier.Known() {
			return ErrUnknownTier
		}
		tierPending, err := checkedSub(accShare(pos.StakedAmount, pool.tierAcc(tier)), pos.NFTRewardDebt)
		if err != nil {
			return err
		}
		pending.Add(pending, tierPending)
	}
	if pending.Sign() > 0 {
		return e.disburse(pid, pos.Address, pending)
	}
	return nil
}

// recomputeDebts re-baselines the position's debts against the now-current
// accumulators. Called after every stake mutation.
func (e *Engine) recomputeDebts(pool *Pool, pos *Position) error {
	pos.RewardDebt = accShare(pos.StakedAmount, pool.AccPerShare)
	if pos.StakedNFTID != 0 {
		tier, err := e.nfts.TierOf(pos.StakedNFTID)
		if err != nil {
			return err
		}
		if !tier.Known() {
			return ErrUnknownTier
		}
		pos.NFTRewardDebt = accShare(pos.StakedAmount, pool.tierAcc(tier))
	} else {
		pos.NFTRewardDebt = big.NewInt(0)
	}
	return nil
}

func (e *Engine) loadPool(pid uint64) (*Pool, error) {
	pool, err := e.state.GetPool(pid)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotFound
	}
	normalizePool(pool)
	return pool, nil
}

func (e *Engine) ensureParams() (*Params, error) {
	params, err := e.state.GetParams()
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &Params{}
	}
	if params.EmissionRate == nil {
		params.EmissionRate = big.NewInt(0)
	}
	return params, nil
}

func (e *Engine) ensurePosition(pid uint64, addr crypto.Address) (*Position, error) {
	pos, err := e.state.GetPosition(pid, addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		pos = &Position{Address: addr}
	}
	return normalizePosition(pos), nil
}

func normalizePosition(pos *Position) *Position {
	if pos.StakedAmount == nil {
		pos.StakedAmount = big.NewInt(0)
	}
	if pos.RewardDebt == nil {
		pos.RewardDebt = big.NewInt(0)
	}
	if pos.NFTRewardDebt == nil {
		pos.NFTRewardDebt = big.NewInt(0)
	}
	return pos
}

func normalizePool(pool *Pool) {
	if pool.AccPerShare == nil {
		pool.AccPerShare = big.NewInt(0)
	}
	if pool.AccPerShareSilver == nil {
		pool.AccPerShareSilver = big.NewInt(0)
	}
	if pool.AccPerShareGold == nil {
		pool.AccPerShareGold = big.NewInt(0)
	}
	if pool.AccPerShareDiamond == nil {
		pool.AccPerShareDiamond = big.NewInt(0)
	}
}

func sameAddress(a, b crypto.Address) bool {
	return bytes.Equal(a.Bytes(), b.Bytes())
}
