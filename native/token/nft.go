package token

import (
	"errors"

	"hivefarm/crypto"
	"hivefarm/native/farming"
)

var (
	// ErrNFTNotFound is returned for unregistered NFT identifiers.
	ErrNFTNotFound = errors.New("nft custodian: token not found")
	// ErrNFTNotOwner rejects transfers not initiated by the current owner.
	ErrNFTNotOwner = errors.New("nft custodian: sender does not own token")
	// ErrNFTExists rejects registering an identifier twice.
	ErrNFTExists = errors.New("nft custodian: token already registered")
)

type nftState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// NFTCustodian tracks ownership and tier of the non-fungible tier assets.
type NFTCustodian struct {
	st nftState
}

// NewNFTCustodian creates a custodian backed by the provided state manager.
func NewNFTCustodian(st nftState) *NFTCustodian {
	return &NFTCustodian{st: st}
}

type nftRecord struct {
	Owner []byte `json:"owner"`
	Tier  uint8  `json:"tier"`
}

type holderRecord struct {
	Count uint64 `json:"count"`
}

// Register mints a tier NFT to an owner. Tier values outside the three
// cohorts are stored as-is; TierOf reports them as unknown.
func (c *NFTCustodian) Register(id uint64, tier farming.Tier, owner crypto.Address) error {
	if c == nil || c.st == nil {
		return errNilState
	}
	existing := new(nftRecord)
	found, err := c.st.KVGet(nftKey(id), existing)
	if err != nil {
		return err
	}
	if found {
		return ErrNFTExists
	}
	if err := c.st.KVPut(nftKey(id), &nftRecord{Owner: owner.Bytes(), Tier: uint8(tier)}); err != nil {
		return err
	}
	return c.adjustHolder(owner, 1)
}

// Transfer moves an NFT between holders. Only the current owner side may
// initiate.
func (c *NFTCustodian) Transfer(id uint64, from, to crypto.Address) error {
	if c == nil || c.st == nil {
		return errNilState
	}
	rec := new(nftRecord)
	found, err := c.st.KVGet(nftKey(id), rec)
	if err != nil {
		return err
	}
	if !found {
		return ErrNFTNotFound
	}
	if string(rec.Owner) != string(from.Bytes()) {
		return ErrNFTNotOwner
	}
	rec.Owner = to.Bytes()
	if err := c.st.KVPut(nftKey(id), rec); err != nil {
		return err
	}
	if err := c.adjustHolder(from, -1); err != nil {
		return err
	}
	return c.adjustHolder(to, 1)
}

// TierOf returns the NFT's tier cohort.
func (c *NFTCustodian) TierOf(id uint64) (farming.Tier, error) {
	if c == nil || c.st == nil {
		return farming.TierNone, errNilState
	}
	rec := new(nftRecord)
	found, err := c.st.KVGet(nftKey(id), rec)
	if err != nil {
		return farming.TierNone, err
	}
	if !found {
		return farming.TierNone, ErrNFTNotFound
	}
	return farming.Tier(rec.Tier), nil
}

// BalanceOf returns the number of NFTs held by an address.
func (c *NFTCustodian) BalanceOf(holder crypto.Address) (uint64, error) {
	if c == nil || c.st == nil {
		return 0, errNilState
	}
	rec := new(holderRecord)
	if _, err := c.st.KVGet(nftHolderKey(holder), rec); err != nil {
		return 0, err
	}
	return rec.Count, nil
}

func (c *NFTCustodian) adjustHolder(addr crypto.Address, delta int64) error {
	rec := new(holderRecord)
	if _, err := c.st.KVGet(nftHolderKey(addr), rec); err != nil {
		return err
	}
	if delta >= 0 {
		rec.Count += uint64(delta)
	} else if dec := uint64(-delta); dec <= rec.Count {
		rec.Count -= dec
	} else {
		rec.Count = 0
	}
	return c.st.KVPut(nftHolderKey(addr), rec)
}
