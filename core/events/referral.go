package events

import (
	"math/big"
	"strconv"

	"hivefarm/core/types"
	"hivefarm/crypto"
)

const (
	// TypeReferralRecorded is emitted when a new referral edge is stored.
	TypeReferralRecorded = "referral.recorded"
	// TypeReferralCommission is emitted when a commission is credited to a
	// referrer's meter.
	TypeReferralCommission = "referral.commission"
)

// ReferralRecorded captures a newly registered referral edge.
type ReferralRecorded struct {
	User     crypto.Address
	Referrer crypto.Address
}

// EventType satisfies the Event interface.
func (ReferralRecorded) EventType() string { return TypeReferralRecorded }

// Event converts the structured payload into a broadcastable event.
func (e ReferralRecorded) Event() *types.Event {
	return &types.Event{Type: TypeReferralRecorded, Attributes: map[string]string{
		"user":     addressString(e.User),
		"referrer": addressString(e.Referrer),
	}}
}

// ReferralCommission captures a commission credit. Level 0 marks deposit
// commissions; levels 1..3 mark payout skims.
type ReferralCommission struct {
	Referrer crypto.Address
	Amount   *big.Int
	Level    uint8
}

// EventType satisfies the Event interface.
func (ReferralCommission) EventType() string { return TypeReferralCommission }

// Event converts the structured payload into a broadcastable event.
func (e ReferralCommission) Event() *types.Event {
	return &types.Event{Type: TypeReferralCommission, Attributes: map[string]string{
		"referrer": addressString(e.Referrer),
		"amount":   formatAmount(e.Amount),
		"level":    strconv.FormatUint(uint64(e.Level), 10),
	}}
}
