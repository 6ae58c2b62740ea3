package farming

import (
	"math/big"

	"hivefarm/crypto"
)

// Tier identifies the reward cohort of a staked NFT.
type Tier uint8

const (
	TierNone    Tier = 0
	TierSilver  Tier = 1
	TierGold    Tier = 2
	TierDiamond Tier = 3
)

// Known reports whether the tier is one of the three supported cohorts.
func (t Tier) Known() bool {
	return t == TierSilver || t == TierGold || t == TierDiamond
}

func (t Tier) String() string {
	switch t {
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierDiamond:
		return "diamond"
	default:
		return "unknown"
	}
}

// Pool captures the accrual state for a single stake token. Accumulators are
// cumulative reward-per-staked-unit values scaled by 1e18 and never decrease.
type Pool struct {
	// Token is the symbol of the fungible asset staked into this pool.
	Token string `json:"token"`
	// AllocWeight is the pool's share of the global emission.
	AllocWeight uint64 `json:"allocWeight"`
	// LastSyncHeight records the block height when accrual was last applied.
	LastSyncHeight uint64 `json:"lastSyncHeight"`
	// AccPerShare is the cumulative base reward per staked unit.
	AccPerShare *big.Int `json:"accPerShare"`
	// AccPerShareSilver, AccPerShareGold and AccPerShareDiamond are the
	// cumulative tier reward accumulators, active only when NFT staking is
	// enabled for the pool.
	AccPerShareSilver  *big.Int `json:"accPerShareSilver"`
	AccPerShareGold    *big.Int `json:"accPerShareGold"`
	AccPerShareDiamond *big.Int `json:"accPerShareDiamond"`
	// SilverLocked, GoldLocked and DiamondLocked count the NFTs of each tier
	// currently staked into the pool.
	SilverLocked  uint64 `json:"silverLocked"`
	GoldLocked    uint64 `json:"goldLocked"`
	DiamondLocked uint64 `json:"diamondLocked"`
	// NFTStaking gates all tier accrual and debt logic.
	NFTStaking bool `json:"nftStaking"`
	// DepositFeeBps is skimmed off gross deposits, 0-10000.
	DepositFeeBps uint64 `json:"depositFeeBps"`
}

func (p *Pool) tierAcc(t Tier) *big.Int {
	switch t {
	case TierSilver:
		return p.AccPerShareSilver
	case TierGold:
		return p.AccPerShareGold
	case TierDiamond:
		return p.AccPerShareDiamond
	}
	return big.NewInt(0)
}

func (p *Pool) addTierAcc(t Tier, delta *big.Int) {
	switch t {
	case TierSilver:
		p.AccPerShareSilver = new(big.Int).Add(p.AccPerShareSilver, delta)
	case TierGold:
		p.AccPerShareGold = new(big.Int).Add(p.AccPerShareGold, delta)
	case TierDiamond:
		p.AccPerShareDiamond = new(big.Int).Add(p.AccPerShareDiamond, delta)
	}
}

func (p *Pool) lockedCount(t Tier) uint64 {
	switch t {
	case TierSilver:
		return p.SilverLocked
	case TierGold:
		return p.GoldLocked
	case TierDiamond:
		return p.DiamondLocked
	}
	return 0
}

func (p *Pool) adjustLocked(t Tier, delta int64) {
	switch t {
	case TierSilver:
		p.SilverLocked = applyDelta(p.SilverLocked, delta)
	case TierGold:
		p.GoldLocked = applyDelta(p.GoldLocked, delta)
	case TierDiamond:
		p.DiamondLocked = applyDelta(p.DiamondLocked, delta)
	}
}

func applyDelta(count uint64, delta int64) uint64 {
	if delta >= 0 {
		return count + uint64(delta)
	}
	dec := uint64(-delta)
	if dec > count {
		return 0
	}
	return count - dec
}

// Position maintains the stake for an individual participant within a pool.
type Position struct {
	// Address is the participant's account.
	Address crypto.Address `json:"address"`
	// StakedAmount is the participant's stake balance after fees.
	StakedAmount *big.Int `json:"stakedAmount"`
	// RewardDebt is the accumulator baseline at last settlement. It is not a
	// liability, only the checkpoint subtracted to compute newly accrued
	// reward.
	RewardDebt *big.Int `json:"rewardDebt"`
	// StakedNFTID is the locked NFT identity, zero meaning none. At most one
	// NFT per position.
	StakedNFTID uint64 `json:"stakedNftId"`
	// NFTRewardDebt is the baseline for the tier accumulator matching the
	// currently staked NFT's tier.
	NFTRewardDebt *big.Int `json:"nftRewardDebt"`
}

// Params holds the ledger-wide emission configuration.
type Params struct {
	// EmissionRate is the reward-token amount emitted per block across all
	// pools.
	EmissionRate *big.Int `json:"emissionRate"`
	// GenesisHeight is the height accrual starts at; pools created earlier
	// begin syncing from it.
	GenesisHeight uint64 `json:"genesisHeight"`
	// TotalAllocWeight is the sum of allocation weights over all pools.
	TotalAllocWeight uint64 `json:"totalAllocWeight"`
}
