package events

import (
	"math/big"
	"strconv"

	"hivefarm/core/types"
	"hivefarm/crypto"
)

const (
	// TypeFarmingPoolAdded is emitted when a new pool is registered.
	TypeFarmingPoolAdded = "farming.pool.added"
	// TypeFarmingPoolUpdated is emitted when pool parameters change.
	TypeFarmingPoolUpdated = "farming.pool.updated"
	// TypeFarmingEmissionRateChanged records an emission rate update.
	TypeFarmingEmissionRateChanged = "farming.emissionRateChanged"
	// TypeFarmingDeposit captures a stake deposit after fees.
	TypeFarmingDeposit = "farming.deposit"
	// TypeFarmingWithdraw captures a stake withdrawal.
	TypeFarmingWithdraw = "farming.withdraw"
	// TypeFarmingEmergencyWithdraw captures a settlement-bypassing exit.
	TypeFarmingEmergencyWithdraw = "farming.emergencyWithdraw"
	// TypeFarmingRewardPaid captures a settled payout with the per-level
	// commission breakdown.
	TypeFarmingRewardPaid = "farming.rewardPaid"
	// TypeFarmingNFTStaked is emitted when a tier NFT is locked into a pool.
	TypeFarmingNFTStaked = "farming.nft.staked"
	// TypeFarmingNFTUnstaked is emitted when a tier NFT is released.
	TypeFarmingNFTUnstaked = "farming.nft.unstaked"
)

// PoolAdded captures the registration of a new stake pool.
type PoolAdded struct {
	PoolID        uint64
	Token         string
	AllocWeight   uint64
	NFTStaking    bool
	DepositFeeBps uint64
}

// EventType satisfies the Event interface.
func (PoolAdded) EventType() string { return TypeFarmingPoolAdded }

// Event converts the structured payload into a broadcastable event.
func (e PoolAdded) Event() *types.Event {
	return &types.Event{Type: TypeFarmingPoolAdded, Attributes: map[string]string{
		"poolId":        strconv.FormatUint(e.PoolID, 10),
		"token":         e.Token,
		"allocWeight":   strconv.FormatUint(e.AllocWeight, 10),
		"nftStaking":    strconv.FormatBool(e.NFTStaking),
		"depositFeeBps": strconv.FormatUint(e.DepositFeeBps, 10),
	}}
}

// PoolUpdated captures a pool reconfiguration.
type PoolUpdated struct {
	PoolID        uint64
	AllocWeight   uint64
	NFTStaking    bool
	DepositFeeBps uint64
}

// EventType satisfies the Event interface.
func (PoolUpdated) EventType() string { return TypeFarmingPoolUpdated }

// Event converts the structured payload into a broadcastable event.
func (e PoolUpdated) Event() *types.Event {
	return &types.Event{Type: TypeFarmingPoolUpdated, Attributes: map[string]string{
		"poolId":        strconv.FormatUint(e.PoolID, 10),
		"allocWeight":   strconv.FormatUint(e.AllocWeight, 10),
		"nftStaking":    strconv.FormatBool(e.NFTStaking),
		"depositFeeBps": strconv.FormatUint(e.DepositFeeBps, 10),
	}}
}

// EmissionRateChanged records an emission rate update applied after a forced
// ledger sync.
type EmissionRateChanged struct {
	Previous *big.Int
	Current  *big.Int
}

// EventType satisfies the Event interface.
func (EmissionRateChanged) EventType() string { return TypeFarmingEmissionRateChanged }

// Event converts the structured payload into a broadcastable event.
func (e EmissionRateChanged) Event() *types.Event {
	return &types.Event{Type: TypeFarmingEmissionRateChanged, Attributes: map[string]string{
		"previous": formatAmount(e.Previous),
		"current":  formatAmount(e.Current),
	}}
}

// Deposit captures the credited amount of a deposit alongside the skimmed
// commission and fee.
type Deposit struct {
	PoolID     uint64
	Account    crypto.Address
	Credited   *big.Int
	Commission *big.Int
	Fee        *big.Int
}

// EventType satisfies the Event interface.
func (Deposit) EventType() string { return TypeFarmingDeposit }

// Event converts the structured payload into a broadcastable event.
func (e Deposit) Event() *types.Event {
	attrs := map[string]string{
		"poolId":   strconv.FormatUint(e.PoolID, 10),
		"addr":     addressString(e.Account),
		"credited": formatAmount(e.Credited),
	}
	if e.Commission != nil && e.Commission.Sign() > 0 {
		attrs["commission"] = e.Commission.String()
	}
	if e.Fee != nil && e.Fee.Sign() > 0 {
		attrs["fee"] = e.Fee.String()
	}
	return &types.Event{Type: TypeFarmingDeposit, Attributes: attrs}
}

// Withdraw captures a stake withdrawal.
type Withdraw struct {
	PoolID  uint64
	Account crypto.Address
	Amount  *big.Int
}

// EventType satisfies the Event interface.
func (Withdraw) EventType() string { return TypeFarmingWithdraw }

// Event converts the structured payload into a broadcastable event.
func (e Withdraw) Event() *types.Event {
	return &types.Event{Type: TypeFarmingWithdraw, Attributes: map[string]string{
		"poolId": strconv.FormatUint(e.PoolID, 10),
		"addr":   addressString(e.Account),
		"amount": formatAmount(e.Amount),
	}}
}

// EmergencyWithdraw captures an exit that forfeited pending rewards.
type EmergencyWithdraw struct {
	PoolID  uint64
	Account crypto.Address
	Amount  *big.Int
}

// EventType satisfies the Event interface.
func (EmergencyWithdraw) EventType() string { return TypeFarmingEmergencyWithdraw }

// Event converts the structured payload into a broadcastable event.
func (e EmergencyWithdraw) Event() *types.Event {
	return &types.Event{Type: TypeFarmingEmergencyWithdraw, Attributes: map[string]string{
		"poolId": strconv.FormatUint(e.PoolID, 10),
		"addr":   addressString(e.Account),
		"amount": formatAmount(e.Amount),
	}}
}

// RewardPaid captures a settled payout. Commissions lists the amounts routed
// to referral levels 1..3; absent levels are nil.
type RewardPaid struct {
	PoolID      uint64
	Account     crypto.Address
	Pending     *big.Int
	Remainder   *big.Int
	Commissions [3]*big.Int
}

// EventType satisfies the Event interface.
func (RewardPaid) EventType() string { return TypeFarmingRewardPaid }

// Event converts the structured payload into a broadcastable event.
func (e RewardPaid) Event() *types.Event {
	attrs := map[string]string{
		"poolId":    strconv.FormatUint(e.PoolID, 10),
		"addr":      addressString(e.Account),
		"pending":   formatAmount(e.Pending),
		"remainder": formatAmount(e.Remainder),
	}
	for i, c := range e.Commissions {
		if c != nil && c.Sign() > 0 {
			attrs["commissionL"+strconv.Itoa(i+1)] = c.String()
		}
	}
	return &types.Event{Type: TypeFarmingRewardPaid, Attributes: attrs}
}

// NFTStaked captures a tier NFT being locked into a pool position.
type NFTStaked struct {
	PoolID  uint64
	Account crypto.Address
	NFTID   uint64
	Tier    string
}

// EventType satisfies the Event interface.
func (NFTStaked) EventType() string { return TypeFarmingNFTStaked }

// Event converts the structured payload into a broadcastable event.
func (e NFTStaked) Event() *types.Event {
	return &types.Event{Type: TypeFarmingNFTStaked, Attributes: map[string]string{
		"poolId": strconv.FormatUint(e.PoolID, 10),
		"addr":   addressString(e.Account),
		"nftId":  strconv.FormatUint(e.NFTID, 10),
		"tier":   e.Tier,
	}}
}

// NFTUnstaked captures a tier NFT being released from a pool position.
type NFTUnstaked struct {
	PoolID  uint64
	Account crypto.Address
	NFTID   uint64
	Tier    string
}

// EventType satisfies the Event interface.
func (NFTUnstaked) EventType() string { return TypeFarmingNFTUnstaked }

// Event converts the structured payload into a broadcastable event.
func (e NFTUnstaked) Event() *types.Event {
	return &types.Event{Type: TypeFarmingNFTUnstaked, Attributes: map[string]string{
		"poolId": strconv.FormatUint(e.PoolID, 10),
		"addr":   addressString(e.Account),
		"nftId":  strconv.FormatUint(e.NFTID, 10),
		"tier":   e.Tier,
	}}
}
