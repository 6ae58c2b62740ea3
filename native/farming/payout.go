package farming

import (
	"math/big"

	"hivefarm/core/events"
	"hivefarm/crypto"
)

// disburse pays a settled pending amount: up to three referral levels are
// skimmed first, then the remainder goes to the user. The remainder is
// computed as pending minus the sum of the individually truncated
// commissions, so rounding dust always stays with the user and
// remainder + commissions == pending holds exactly.
func (e *Engine) disburse(pid uint64, user crypto.Address, pending *big.Int) error {
	levels, err := e.referrals.LevelsOf(user)
	if err != nil {
		return err
	}

	var commissions [3]*big.Int
	total := big.NewInt(0)
	for i, referrer := range levels {
		if referrer.IsZero() {
			break
		}
		var rate uint64
		switch i {
		case 0:
			rate, err = e.referrals.Level1RateOf(referrer)
			if err != nil {
				return err
			}
		case 1:
			rate = e.referrals.FixedLevel2Rate()
		case 2:
			rate = e.referrals.FixedLevel3Rate()
		}
		commission := permilleShare(pending, rate)
		if commission.Sign() <= 0 {
			continue
		}
		commissions[i] = commission
		total.Add(total, commission)
	}

	// Misconfigured rates could push the skim past the settled amount. Abort
	// before any transfer so the conservation break cannot land silently.
	if total.Cmp(pending) > 0 {
		return ErrCommissionOverflow
	}

	for i, referrer := range levels {
		commission := commissions[i]
		if commission == nil {
			continue
		}
		if err := e.referrals.RecordCommission(referrer, commission, uint8(i+1)); err != nil {
			return err
		}
		if err := e.safeRewardTransfer(referrer, commission); err != nil {
			return err
		}
	}

	remainder := new(big.Int).Sub(pending, total)
	if err := e.safeRewardTransfer(user, remainder); err != nil {
		return err
	}

	e.emit(events.RewardPaid{
		PoolID:      pid,
		Account:     user,
		Pending:     new(big.Int).Set(pending),
		Remainder:   remainder,
		Commissions: commissions,
	})
	return nil
}

// safeRewardTransfer moves reward tokens out of custody, degrading to the
// full available balance when the requested amount exceeds it. Payouts never
// block the state transition that earned them.
func (e *Engine) safeRewardTransfer(to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	balance, err := e.vault.BalanceOf(e.rewardSymbol, e.moduleAddr)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		amount = balance
	}
	if amount.Sign() <= 0 {
		return nil
	}
	return e.vault.Transfer(e.rewardSymbol, e.moduleAddr, to, amount)
}
