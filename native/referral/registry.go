package referral

import (
	"errors"
	"math/big"

	"hivefarm/core/events"
	"hivefarm/crypto"
	nativecommon "hivefarm/native/common"
)

const moduleName = "referral"

// maxRatePermille caps every commission rate at 100%.
const maxRatePermille = 1000

var (
	errNilState = errors.New("referral registry: state not configured")

	// ErrSelfReferral rejects edges pointing back at the user.
	ErrSelfReferral = errors.New("referral registry: user cannot refer themselves")
	// ErrInvalidRate rejects rates above 1000 permille.
	ErrInvalidRate = errors.New("referral registry: rate exceeds 1000 permille")
	// ErrUnauthorized gates the rate administration calls.
	ErrUnauthorized = errors.New("referral registry: caller is not the operator")
	// ErrInvalidAmount rejects nil or negative commission amounts.
	ErrInvalidAmount = errors.New("referral registry: amount must be positive")
)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Rates groups the registry-wide commission defaults. Level 1 can be
// overridden per referrer; levels 2 and 3 are fixed. All rates are permille.
type Rates struct {
	DefaultLevel1      uint64
	Level2             uint64
	Level3             uint64
	FlatDepositPermill uint64
}

// Registry records referral edges and commission meters. It backs the
// three-level payout skim and the deposit commission applied by the farming
// engine.
type Registry struct {
	st       registryState
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	operator crypto.Address
	rates    Rates
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(st registryState, rates Rates) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}, rates: rates}
}

// SetEmitter configures the event emitter used to broadcast registry
// updates. Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// SetOperator assigns the account allowed to adjust per-referrer settings.
func (r *Registry) SetOperator(operator crypto.Address) {
	if r == nil {
		return
	}
	r.operator = operator
}

type edgeRecord struct {
	Referrer []byte `json:"referrer"`
}

type rateRecord struct {
	Permille uint64 `json:"permille"`
}

type flagRecord struct {
	Enabled bool `json:"enabled"`
}

type meterRecord struct {
	Total *big.Int `json:"total"`
}

// RecordEdge stores the referral edge for a user. Existing edges are left
// untouched; re-registration is a no-op, not an error.
func (r *Registry) RecordEdge(user, referrer crypto.Address) error {
	if r == nil || r.st == nil {
		return errNilState
	}
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if user.IsZero() || referrer.IsZero() {
		return nil
	}
	if string(user.Bytes()) == string(referrer.Bytes()) {
		return ErrSelfReferral
	}
	existing := new(edgeRecord)
	found, err := r.st.KVGet(edgeKey(user), existing)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	if err := r.st.KVPut(edgeKey(user), &edgeRecord{Referrer: referrer.Bytes()}); err != nil {
		return err
	}
	r.emit(events.ReferralRecorded{User: user, Referrer: referrer})
	return nil
}

// ReferrerOf returns the registered referrer for a user, if any.
func (r *Registry) ReferrerOf(user crypto.Address) (crypto.Address, bool, error) {
	if r == nil || r.st == nil {
		return crypto.Address{}, false, errNilState
	}
	rec := new(edgeRecord)
	found, err := r.st.KVGet(edgeKey(user), rec)
	if err != nil || !found || len(rec.Referrer) != 20 {
		return crypto.Address{}, false, err
	}
	return crypto.NewAddress(crypto.HivePrefix, rec.Referrer), true, nil
}

// LevelsOf walks up to three referral edges starting from the user. Absent
// levels are zero addresses; a break in the chain ends the walk.
func (r *Registry) LevelsOf(user crypto.Address) ([3]crypto.Address, error) {
	var levels [3]crypto.Address
	if r == nil || r.st == nil {
		return levels, errNilState
	}
	current := user
	for i := 0; i < 3; i++ {
		referrer, ok, err := r.ReferrerOf(current)
		if err != nil {
			return levels, err
		}
		if !ok {
			break
		}
		levels[i] = referrer
		current = referrer
	}
	return levels, nil
}

// Level1RateOf returns the direct-referrer commission rate, falling back to
// the registry default when no override is stored.
func (r *Registry) Level1RateOf(referrer crypto.Address) (uint64, error) {
	if r == nil || r.st == nil {
		return 0, errNilState
	}
	rec := new(rateRecord)
	found, err := r.st.KVGet(level1RateKey(referrer), rec)
	if err != nil {
		return 0, err
	}
	if !found {
		return r.rates.DefaultLevel1, nil
	}
	return rec.Permille, nil
}

// SetLevel1Rate stores a per-referrer override for the direct commission
// rate.
func (r *Registry) SetLevel1Rate(caller, referrer crypto.Address, permille uint64) error {
	if r == nil || r.st == nil {
		return errNilState
	}
	if err := r.requireOperator(caller); err != nil {
		return err
	}
	if permille > maxRatePermille {
		return ErrInvalidRate
	}
	return r.st.KVPut(level1RateKey(referrer), &rateRecord{Permille: permille})
}

// FixedLevel2Rate returns the second-level commission rate.
func (r *Registry) FixedLevel2Rate() uint64 {
	if r == nil {
		return 0
	}
	return r.rates.Level2
}

// FixedLevel3Rate returns the third-level commission rate.
func (r *Registry) FixedLevel3Rate() uint64 {
	if r == nil {
		return 0
	}
	return r.rates.Level3
}

// FlatDepositCommissionRate returns the flat rate skimmed off deposits for
// referrers with the deposit commission enabled.
func (r *Registry) FlatDepositCommissionRate() uint64 {
	if r == nil {
		return 0
	}
	return r.rates.FlatDepositPermill
}

// DepositCommissionEnabled reports whether deposit commissions are switched
// on for a referrer.
func (r *Registry) DepositCommissionEnabled(referrer crypto.Address) (bool, error) {
	if r == nil || r.st == nil {
		return false, errNilState
	}
	rec := new(flagRecord)
	found, err := r.st.KVGet(depositFlagKey(referrer), rec)
	if err != nil || !found {
		return false, err
	}
	return rec.Enabled, nil
}

// SetDepositCommission toggles the deposit commission for a referrer.
func (r *Registry) SetDepositCommission(caller, referrer crypto.Address, enabled bool) error {
	if r == nil || r.st == nil {
		return errNilState
	}
	if err := r.requireOperator(caller); err != nil {
		return err
	}
	return r.st.KVPut(depositFlagKey(referrer), &flagRecord{Enabled: enabled})
}

// RecordCommission accrues a paid commission against the referrer's meter.
// Level 0 marks deposit commissions, levels 1..3 the payout skim.
func (r *Registry) RecordCommission(referrer crypto.Address, amount *big.Int, level uint8) error {
	if r == nil || r.st == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	meter := new(meterRecord)
	if _, err := r.st.KVGet(meterKey(referrer, level), meter); err != nil {
		return err
	}
	if meter.Total == nil {
		meter.Total = big.NewInt(0)
	}
	meter.Total = new(big.Int).Add(meter.Total, amount)
	if err := r.st.KVPut(meterKey(referrer, level), meter); err != nil {
		return err
	}
	r.emit(events.ReferralCommission{Referrer: referrer, Amount: new(big.Int).Set(amount), Level: level})
	return nil
}

// CommissionTotal returns the accrued commission meter for a referrer and
// level.
func (r *Registry) CommissionTotal(referrer crypto.Address, level uint8) (*big.Int, error) {
	if r == nil || r.st == nil {
		return nil, errNilState
	}
	meter := new(meterRecord)
	if _, err := r.st.KVGet(meterKey(referrer, level), meter); err != nil {
		return nil, err
	}
	if meter.Total == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(meter.Total), nil
}

func (r *Registry) requireOperator(caller crypto.Address) error {
	if r.operator.IsZero() || string(caller.Bytes()) != string(r.operator.Bytes()) {
		return ErrUnauthorized
	}
	return nil
}

func (r *Registry) emit(event events.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}
