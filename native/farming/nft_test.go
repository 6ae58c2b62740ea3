package farming

import (
	"errors"
	"testing"

	"hivefarm/crypto"
)

func TestSilverTierBoostsSoleStaker(t *testing.T) {
	f := newFixture(t)
	f.setEmission(t, 100)
	pid := f.addPool(t, 100, "LP", true, 0)

	user := testAddr(0x10)
	f.fund("LP", user, 1_000)
	f.deposit(t, user, pid, 1_000)
	f.nfts.register(1, TierSilver, user)
	if err := f.engine.StakeNFT(user, pid, 1); err != nil {
		t.Fatalf("stake nft: %v", err)
	}

	f.engine.SetBlockHeight(10)

	// Reward 1000: the NFT split is 200, carved into 40 silver, 60 gold and
	// 100 diamond. Only the silver cohort is populated, so the user earns
	// base 800 plus the 40 silver slice; the empty gold and diamond slices
	// drop out of circulation.
	requireAmount(t, f.pending(t, pid, user), 840, "silver-boosted pending")

	f.harvest(t, user, pid)
	requireAmount(t, f.vault.balance("HIVE", user), 840, "silver-boosted harvest")
}

func TestAllTiersPopulatedDistributesFullSplit(t *testing.T) {
	f := newFixture(t)
	f.setEmission(t, 100)
	pid := f.addPool(t, 100, "LP", true, 0)

	silver := testAddr(0x10)
	gold := testAddr(0x11)
	diamond := testAddr(0x12)
	stakers := []struct {
		addr crypto.Address
		nft  uint64
		tier Tier
	}{
		{silver, 1, TierSilver},
		{gold, 2, TierGold},
		{diamond, 3, TierDiamond},
	}
	for _, s := range stakers {
		f.fund("LP", s.addr, 1_000)
		f.deposit(t, s.addr, pid, 1_000)
		f.nfts.register(s.nft, s.tier, s.addr)
		if err := f.engine.StakeNFT(s.addr, pid, s.nft); err != nil {
			t.Fatalf("stake nft %d: %v", s.nft, err)
		}
	}

	f.engine.SetBlockHeight(10)

	// Reward 1000 over 3000 staked: tier slices are 40/60/100, base 800.
	// Each staker gets a third of the base (266 after truncation) plus
	// their tier slice, itself truncated at the accumulator scale.
	requireAmount(t, f.pending(t, pid, silver), 266+13, "silver pending")
	requireAmount(t, f.pending(t, pid, gold), 266+20, "gold pending")
	requireAmount(t, f.pending(t, pid, diamond), 266+33, "diamond pending")
}

func TestStakeNFTRequiresEnabledPool(t *testing.T) {
	f := newFixture(t)
	f.setEmission(t, 10)
	pid := f.addPool(t, 100, "LP", false, 0)

	user := testAddr(0x10)
	f.fund("LP", user, 100)
	f.deposit(t, user, pid, 100)
	f.nfts.register(1, TierSilver, user)

	if err := f.engine.StakeNFT(user, pid, 1); !errors.Is(err, ErrNFTStakingDisabled) {
		t.Fatalf("got %v, want ErrNFTStakingDisabled", err)
	}
}

func TestStakeNFTRequiresExistingStake(t *testing.T) {
	f := newFixture(t)
	f.setEmission(t, 10)
	pid := f.addPool(t, 100, "LP", true, 0)

	user := testAddr(0x10)
	f.nfts.register(1, TierSilver, user)
	if err := f.engine.StakeNFT(user, pid, 1); !errors.Is(err, ErrNoStake) {
		t.Fatalf("got %v, want ErrNoStake", err)
	}
}

func TestStakeNFTRejectsSecondLock(t *testing.T) {
	f := newFixture(t)
	f.setEmission(t, 10)
	pid := f.addPool(t, 100, "LP", true, 0)

	user := testAddr(0x10)
	f.fund("LP", user, 100)
	f.deposit(t, user, pid, 100)
	f.nfts.register(1, TierSilver, user)
	f.nfts.register(2, TierGold, user)
	if err := f.engine.StakeNFT(user, pid, 1); err != nil {
		t.Fatalf("first stake: %v", err)
	}
	if err := f.engine.StakeNFT(user, pid, 2); !errors.Is(err, ErrNFTAlreadyStaked) {
		t.Fatalf("got %v, want ErrNFTAlreadyStaked", err)
	}
}

func TestStakeNFTRejectsUnknownTier(t *testing.T) {
	f := newFixture(t)
	f.setEmission(t, 10)
	pid := f.addPool(t, 100, "LP", true, 0)

	user := testAddr(0x10)
	f.fund("LP", user, 100)
	f.deposit(t, user, pid, 100)
	f.nfts.register(1, Tier(9), user)
	if err := f.engine.StakeNFT(user, pid, 1); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("got %v, want ErrUnknownTier", err)
	}
	if err := f.engine.StakeNFT(user, pid, 0); !errors.Is(err, ErrInvalidNFT) {
		t.Fatalf("got %v, want ErrInvalidNFT", err)
	}
}

func TestUnstakeNFTSettlesAndReturnsToken(t *testing.T) {
	f := newFixture(t)
	f.setEmission(t, 100)
	pid := f.addPool(t, 100, "LP", true, 0)

	user := testAddr(0x10)
	f.fund("LP", user, 1_000)
	f.deposit(t, user, pid, 1_000)
	f.nfts.register(1, TierDiamond, user)
	if err := f.engine.StakeNFT(user, pid, 1); err != nil {
		t.Fatalf("stake nft: %v", err)
	}

	f.engine.SetBlockHeight(10)
	if err := f.engine.UnstakeNFT(user, pid); err != nil {
		t.Fatalf("unstake nft: %v", err)
	}

	// Base 800 plus the 100 diamond slice settle on unstake.
	requireAmount(t, f.vault.balance("HIVE", user), 900, "settled on unstake")

	held, err := f.nfts.BalanceOf(user)
	if err != nil {
		t.Fatalf("nft balance: %v", err)
	}
	if held != 1 {
		t.Fatalf("nft not returned: balance %d", held)
	}

	pool, err := f.engine.PoolInfo(pid)
	if err != nil {
		t.Fatalf("pool info: %v", err)
	}
	if pool.DiamondLocked != 0 {
		t.Fatalf("diamond lock count: got %d, want 0", pool.DiamondLocked)
	}

	// With no lock the tier slices burn and only the base accrues.
	f.engine.SetBlockHeight(20)
	requireAmount(t, f.pending(t, pid, user), 800, "plain pending after unstake")
}

func TestUnstakeNFTWithoutLock(t *testing.T) {
	f := newFixture(t)
	f.setEmission(t, 10)
	pid := f.addPool(t, 100, "LP", true, 0)

	user := testAddr(0x10)
	f.fund("LP", user, 100)
	f.deposit(t, user, pid, 100)
	if err := f.engine.UnstakeNFT(user, pid); !errors.Is(err, ErrNoNFTStaked) {
		t.Fatalf("got %v, want ErrNoNFTStaked", err)
	}
}

func TestEmergencyWithdrawLeavesNFTLocked(t *testing.T) {
	f := newFixture(t)
	f.setEmission(t, 10)
	pid := f.addPool(t, 100, "LP", true, 0)

	user := testAddr(0x10)
	f.fund("LP", user, 100)
	f.deposit(t, user, pid, 100)
	f.nfts.register(1, TierGold, user)
	if err := f.engine.StakeNFT(user, pid, 1); err != nil {
		t.Fatalf("stake nft: %v", err)
	}

	if err := f.engine.EmergencyWithdraw(user, pid); err != nil {
		t.Fatalf("emergency withdraw: %v", err)
	}

	pos, err := f.engine.PositionOf(pid, user)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.StakedNFTID != 1 {
		t.Fatalf("nft lock: got %d, want 1", pos.StakedNFTID)
	}

	// The NFT can still be recovered through the normal unstake path.
	if err := f.engine.UnstakeNFT(user, pid); err != nil {
		t.Fatalf("unstake after emergency: %v", err)
	}
	held, err := f.nfts.BalanceOf(user)
	if err != nil {
		t.Fatalf("nft balance: %v", err)
	}
	if held != 1 {
		t.Fatalf("nft not recovered: balance %d", held)
	}
}
