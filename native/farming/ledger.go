package farming

import (
	"fmt"
	"math/big"

	"hivefarm/crypto"
)

// UpdatePool applies pending accrual to a single pool. It is idempotent and
// callable any number of times; a call at or before the last sync height is a
// no-op.
func (e *Engine) UpdatePool(pid uint64) error {
	if err := e.ready(); err != nil {
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
	return e.syncPool(pid, pool, params)
}

// MassUpdatePools syncs every pool in index order. A failure in any pool
// aborts the whole call; pools are never silently skipped.
func (e *Engine) MassUpdatePools() error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	params, err := e.ensureParams()
	if err != nil {
		return err
	}
	return e.massSync(params)
}

func (e *Engine) massSync(params *Params) error {
	count, err := e.state.PoolCount()
	if err != nil {
		return err
	}
	for pid := uint64(0); pid < count; pid++ {
		pool, err := e.loadPool(pid)
		if err != nil {
			return err
		}
		if err := e.syncPool(pid, pool, params); err != nil {
			return fmt.Errorf("sync pool %d: %w", pid, err)
		}
	}
	return nil
}

// syncPool advances a pool's accumulators to the engine height. Callers hold
// the engine mutex.
func (e *Engine) syncPool(pid uint64, pool *Pool, params *Params) error {
	if e.height <= pool.LastSyncHeight {
		return nil
	}

	stakedSupply, err := e.vault.BalanceOf(pool.Token, e.moduleAddr)
	if err != nil {
		return err
	}
	// A pool with no stake or no weight accrues no reward; it only advances
	// its sync marker.
	if stakedSupply.Sign() == 0 || pool.AllocWeight == 0 || params.TotalAllocWeight == 0 {
		pool.LastSyncHeight = e.height
		return e.state.PutPool(pid, pool)
	}

	elapsed := e.height - pool.LastSyncHeight
	reward, err := e.clampedReward(params, pool, elapsed)
	if err != nil {
		return err
	}
	if reward.Sign() > 0 {
		if err := e.vault.Mint(e.rewardSymbol, e.moduleAddr, reward); err != nil {
			return err
		}
	}

	e.applyAccrual(pool, reward, stakedSupply)
	pool.LastSyncHeight = e.height
	return e.state.PutPool(pid, pool)
}

// clampedReward computes the pool's emission for the elapsed interval and
// clamps it to the reward token's remaining mintable headroom.
func (e *Engine) clampedReward(params *Params, pool *Pool, elapsed uint64) (*big.Int, error) {
	reward := new(big.Int).SetUint64(elapsed)
	reward.Mul(reward, params.EmissionRate)
	reward.Mul(reward, new(big.Int).SetUint64(pool.AllocWeight))
	reward.Quo(reward, new(big.Int).SetUint64(params.TotalAllocWeight))

	maxSupply, err := e.vault.MaxSupply(e.rewardSymbol)
	if err != nil {
		return nil, err
	}
	if maxSupply == nil || maxSupply.Sign() == 0 {
		return reward, nil
	}
	total, err := e.vault.TotalSupply(e.rewardSymbol)
	if err != nil {
		return nil, err
	}
	headroom := new(big.Int).Sub(maxSupply, total)
	if headroom.Sign() < 0 {
		return nil, ErrSupplyOverCap
	}
	if reward.Cmp(headroom) > 0 {
		reward = headroom
	}
	return reward, nil
}

// applyAccrual distributes a minted reward across the base accumulator and,
// for NFT-enabled pools, the tier accumulators. Tier slices are always carved
// out of the base remainder; a tier with no locked NFTs has no accumulator to
// credit, so its slice drops out of circulation.
func (e *Engine) applyAccrual(pool *Pool, reward, stakedSupply *big.Int) {
	if reward.Sign() == 0 {
		return
	}
	if !pool.NFTStaking {
		pool.AccPerShare = new(big.Int).Add(pool.AccPerShare, perShare(reward, stakedSupply))
		return
	}

	nftPool := permilleShare(reward, nftSplitPermille)
	silverShare := permilleShare(nftPool, silverSplitPermille)
	goldShare := permilleShare(nftPool, goldSplitPermille)
	diamondShare := permilleShare(nftPool, diamondSplitPermille)

	if pool.SilverLocked > 0 {
		pool.addTierAcc(TierSilver, perShare(silverShare, stakedSupply))
	}
	if pool.GoldLocked > 0 {
		pool.addTierAcc(TierGold, perShare(goldShare, stakedSupply))
	}
	if pool.DiamondLocked > 0 {
		pool.addTierAcc(TierDiamond, perShare(diamondShare, stakedSupply))
	}

	base := new(big.Int).Sub(reward, silverShare)
	base.Sub(base, goldShare)
	base.Sub(base, diamondShare)
	pool.AccPerShare = new(big.Int).Add(pool.AccPerShare, perShare(base, stakedSupply))
}

// PendingReward projects the reward a settlement would pay right now without
// mutating any state. The projection simulates the same accrual a sync would
// apply, so it matches a real sync-and-settle to the unit.
func (e *Engine) PendingReward(pid uint64, addr crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	params, err := e.ensureParams()
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool(pid)
	if err != nil {
		return nil, err
	}
	pos, err := e.state.GetPosition(pid, addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return big.NewInt(0), nil
	}
	normalizePosition(pos)

	acc := cloneBigInt(pool.AccPerShare)
	tierAccs := map[Tier]*big.Int{
		TierSilver:  cloneBigInt(pool.AccPerShareSilver),
		TierGold:    cloneBigInt(pool.AccPerShareGold),
		TierDiamond: cloneBigInt(pool.AccPerShareDiamond),
	}

	if e.height > pool.LastSyncHeight && pool.AllocWeight > 0 && params.TotalAllocWeight > 0 {
		stakedSupply, err := e.vault.BalanceOf(pool.Token, e.moduleAddr)
		if err != nil {
			return nil, err
		}
		if stakedSupply.Sign() > 0 {
			reward, err := e.clampedReward(params, pool, e.height-pool.LastSyncHeight)
			if err != nil {
				return nil, err
			}
			if reward.Sign() > 0 {
				if pool.NFTStaking {
					nftPool := permilleShare(reward, nftSplitPermille)
					silverShare := permilleShare(nftPool, silverSplitPermille)
					goldShare := permilleShare(nftPool, goldSplitPermille)
					diamondShare := permilleShare(nftPool, diamondSplitPermille)
					if pool.SilverLocked > 0 {
						tierAccs[TierSilver].Add(tierAccs[TierSilver], perShare(silverShare, stakedSupply))
					}
					if pool.GoldLocked > 0 {
						tierAccs[TierGold].Add(tierAccs[TierGold], perShare(goldShare, stakedSupply))
					}
					if pool.DiamondLocked > 0 {
						tierAccs[TierDiamond].Add(tierAccs[TierDiamond], perShare(diamondShare, stakedSupply))
					}
					base := new(big.Int).Sub(reward, silverShare)
					base.Sub(base, goldShare)
					base.Sub(base, diamondShare)
					acc.Add(acc, perShare(base, stakedSupply))
				} else {
					acc.Add(acc, perShare(reward, stakedSupply))
				}
			}
		}
	}

	pending, err := checkedSub(accShare(pos.StakedAmount, acc), pos.RewardDebt)
	if err != nil {
		return nil, err
	}
	if pos.StakedNFTID != 0 {
		tier, err := e.nfts.TierOf(pos.StakedNFTID)
		if err != nil {
			return nil, err
		}
		if !tier.Known() {
			return nil, ErrUnknownTier
		}
		tierPending, err := checkedSub(accShare(pos.StakedAmount, tierAccs[tier]), pos.NFTRewardDebt)
		if err != nil {
			return nil, err
		}
		pending.Add(pending, tierPending)
	}
	return pending, nil
}

// PoolCount returns the number of registered pools.
func (e *Engine) PoolCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.PoolCount()
}

// PoolInfo returns a copy of a pool's current state.
func (e *Engine) PoolInfo(pid uint64) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, err := e.loadPool(pid)
	if err != nil {
		return nil, err
	}
	out := *pool
	out.AccPerShare = cloneBigInt(pool.AccPerShare)
	out.AccPerShareSilver = cloneBigInt(pool.AccPerShareSilver)
	out.AccPerShareGold = cloneBigInt(pool.AccPerShareGold)
	out.AccPerShareDiamond = cloneBigInt(pool.AccPerShareDiamond)
	return &out, nil
}

// PositionOf returns a copy of the stored position, or nil when the account
// never deposited into the pool.
func (e *Engine) PositionOf(pid uint64, addr crypto.Address) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, err := e.state.GetPosition(pid, addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, nil
	}
	normalizePosition(pos)
	out := *pos
	out.StakedAmount = cloneBigInt(pos.StakedAmount)
	out.RewardDebt = cloneBigInt(pos.RewardDebt)
	out.NFTRewardDebt = cloneBigInt(pos.NFTRewardDebt)
	return &out, nil
}

// ParamsView returns a copy of the ledger-wide emission parameters.
func (e *Engine) ParamsView() (*Params, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	params, err := e.ensureParams()
	if err != nil {
		return nil, err
	}
	out := *params
	out.EmissionRate = cloneBigInt(params.EmissionRate)
	return &out, nil
}
