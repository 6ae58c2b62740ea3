package farming

import "math/big"

var (
	rewardScale = mustBigInt("1000000000000000000") // 1e18 accumulator scale
	permille    = big.NewInt(1000)
	basisPoints = big.NewInt(10_000)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// mulDiv computes a*b/denom with truncating integer division. Truncation loss
// is accepted emission policy, not a defect.
func mulDiv(a, b, denom *big.Int) *big.Int {
	if a == nil || b == nil || denom == nil || denom.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, denom)
}

// accShare converts a stake amount and a 1e18-scaled accumulator into a
// reward amount.
func accShare(amount, acc *big.Int) *big.Int {
	return mulDiv(amount, acc, rewardScale)
}

// perShare converts a reward amount into a 1e18-scaled accumulator delta for
// the given staked supply.
func perShare(reward, supply *big.Int) *big.Int {
	return mulDiv(reward, rewardScale, supply)
}

// permilleShare returns amount*rate/1000.
func permilleShare(amount *big.Int, rate uint64) *big.Int {
	if amount == nil || rate == 0 {
		return big.NewInt(0)
	}
	return mulDiv(amount, new(big.Int).SetUint64(rate), permille)
}

// bpsShare returns amount*bps/10000.
func bpsShare(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || bps == 0 {
		return big.NewInt(0)
	}
	return mulDiv(amount, new(big.Int).SetUint64(bps), basisPoints)
}

// checkedSub returns a-b, failing when the result would be negative. Debt
// baselines exceeding accrued reward indicate corrupted accounting and must
// abort the whole call.
func checkedSub(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	out := new(big.Int).Sub(a, b)
	if out.Sign() < 0 {
		return nil, ErrDebtUnderflow
	}
	return out, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
