package farming

import "errors"

var (
	errNilState        = errors.New("farming engine: state not configured")
	errNilCollaborator = errors.New("farming engine: custodian collaborators not configured")

	// ErrInvalidAmount rejects nil or negative amounts.
	ErrInvalidAmount = errors.New("farming engine: amount must be non-negative")
	// ErrPoolNotFound is returned for unknown pool identifiers.
	ErrPoolNotFound = errors.New("farming engine: pool not found")
	// ErrDuplicatePoolToken rejects registering the same stake token twice.
	ErrDuplicatePoolToken = errors.New("farming engine: stake token already registered")
	// ErrDepositFeeTooHigh rejects deposit fees above 10000 basis points.
	ErrDepositFeeTooHigh = errors.New("farming engine: deposit fee exceeds 10000 bps")
	// ErrInsufficientStake rejects withdrawals above the staked balance.
	ErrInsufficientStake = errors.New("farming engine: insufficient staked balance")
	// ErrNFTStakingDisabled rejects NFT operations on pools without tier
	// accrual.
	ErrNFTStakingDisabled = errors.New("farming engine: nft staking disabled for pool")
	// ErrNoStake rejects locking an NFT without a prior token stake.
	ErrNoStake = errors.New("farming engine: stake tokens before locking an nft")
	// ErrNFTAlreadyStaked rejects a second NFT on a position.
	ErrNFTAlreadyStaked = errors.New("farming engine: position already has a staked nft")
	// ErrNoNFTStaked rejects unstaking when no NFT is locked.
	ErrNoNFTStaked = errors.New("farming engine: no nft staked")
	// ErrUnknownTier aborts settlement when a staked NFT reports a tier
	// outside the three cohorts.
	ErrUnknownTier = errors.New("farming engine: unknown nft tier")
	// ErrUnauthorized gates the admin operations.
	ErrUnauthorized = errors.New("farming engine: caller is not the owner")
	// ErrSupplyOverCap aborts accrual when the minted supply already exceeds
	// the cap; the clamp math would underflow.
	ErrSupplyOverCap = errors.New("farming engine: reward supply exceeds max supply")
	// ErrDebtUnderflow aborts settlement when a reward debt baseline exceeds
	// the accrued reward.
	ErrDebtUnderflow = errors.New("farming engine: reward debt exceeds accrued reward")
	// ErrCommissionOverflow aborts a payout whose referral commissions sum
	// past the settled amount.
	ErrCommissionOverflow = errors.New("farming engine: referral commissions exceed settled reward")
	// ErrInvalidToken rejects empty stake token symbols.
	ErrInvalidToken = errors.New("farming engine: stake token symbol required")
	// ErrInvalidNFT rejects the zero NFT identifier, which is the "none"
	// sentinel on positions.
	ErrInvalidNFT = errors.New("farming engine: nft id must be non-zero")
	// ErrInvalidEmissionRate rejects nil or negative emission rates.
	ErrInvalidEmissionRate = errors.New("farming engine: emission rate must be non-negative")
)
