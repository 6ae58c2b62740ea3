// Package state implements the persistence layer shared by the native
// modules: a thin JSON-over-KV mapping of pools, positions, accounts and
// registry records onto a storage.Database.
package state

import (
	"encoding/json"
	"math/big"
	"strconv"

	"hivefarm/core/types"
	"hivefarm/crypto"
	"hivefarm/native/farming"
	"hivefarm/storage"
)

// LedgerState satisfies the state interfaces consumed by the farming engine,
// the token custodians and the referral registry.
type LedgerState struct {
	db storage.Database
}

// NewLedgerState wraps a key-value database.
func NewLedgerState(db storage.Database) *LedgerState {
	return &LedgerState{db: db}
}

// --- generic KV (JSON encoded) ---

// KVGet decodes the stored value into out, reporting whether the key exists.
func (s *LedgerState) KVGet(key []byte, out interface{}) (bool, error) {
	has, err := s.db.Has(key)
	if err != nil || !has {
		return false, err
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVPut JSON-encodes the value under the key.
func (s *LedgerState) KVPut(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Put(key, raw)
}

// --- farming engine state ---

type countRecord struct {
	Count uint64 `json:"count"`
}

func poolKey(pid uint64) []byte {
	return []byte("farming/pool/" + strconv.FormatUint(pid, 10))
}

func positionKey(pid uint64, addr crypto.Address) []byte {
	key := []byte("farming/position/" + strconv.FormatUint(pid, 10) + "/")
	return append(key, addr.Bytes()...)
}

var (
	poolCountKey = []byte("farming/poolcount")
	paramsKey    = []byte("farming/params")
)

// PoolCount returns the number of registered pools.
func (s *LedgerState) PoolCount() (uint64, error) {
	rec := new(countRecord)
	if _, err := s.KVGet(poolCountKey, rec); err != nil {
		return 0, err
	}
	return rec.Count, nil
}

// GetPool loads a pool, returning nil when absent.
func (s *LedgerState) GetPool(pid uint64) (*farming.Pool, error) {
	pool := new(farming.Pool)
	found, err := s.KVGet(poolKey(pid), pool)
	if err != nil || !found {
		return nil, err
	}
	return pool, nil
}

// PutPool stores a pool under its identifier.
func (s *LedgerState) PutPool(pid uint64, pool *farming.Pool) error {
	return s.KVPut(poolKey(pid), pool)
}

// AppendPool stores a pool under the next free identifier. Pools are
// append-only and never removed.
func (s *LedgerState) AppendPool(pool *farming.Pool) (uint64, error) {
	count, err := s.PoolCount()
	if err != nil {
		return 0, err
	}
	if err := s.PutPool(count, pool); err != nil {
		return 0, err
	}
	if err := s.KVPut(poolCountKey, &countRecord{Count: count + 1}); err != nil {
		return 0, err
	}
	return count, nil
}

// GetPosition loads a position, returning nil when the account never
// deposited into the pool.
func (s *LedgerState) GetPosition(pid uint64, addr crypto.Address) (*farming.Position, error) {
	pos := new(farming.Position)
	found, err := s.KVGet(positionKey(pid, addr), pos)
	if err != nil || !found {
		return nil, err
	}
	return pos, nil
}

// PutPosition stores a position keyed by its account address. Positions are
// retained (zeroed, not deleted) after emergency withdrawals.
func (s *LedgerState) PutPosition(pid uint64, pos *farming.Position) error {
	return s.KVPut(positionKey(pid, pos.Address), pos)
}

// GetParams loads the ledger-wide emission parameters, nil when unset.
func (s *LedgerState) GetParams() (*farming.Params, error) {
	params := new(farming.Params)
	found, err := s.KVGet(paramsKey, params)
	if err != nil || !found {
		return nil, err
	}
	return params, nil
}

// PutParams stores the ledger-wide emission parameters.
func (s *LedgerState) PutParams(params *farming.Params) error {
	return s.KVPut(paramsKey, params)
}

// --- token vault state ---

func accountKey(addr crypto.Address) []byte {
	return append([]byte("account/"), addr.Bytes()...)
}

func supplyKey(symbol string) []byte {
	return []byte("token/supply/" + symbol)
}

type supplyRecord struct {
	Supply *big.Int `json:"supply"`
}

// GetAccount loads an account, returning nil when absent.
func (s *LedgerState) GetAccount(addr crypto.Address) (*types.Account, error) {
	acc := new(types.Account)
	found, err := s.KVGet(accountKey(addr), acc)
	if err != nil || !found {
		return nil, err
	}
	return acc, nil
}

// PutAccount stores an account.
func (s *LedgerState) PutAccount(addr crypto.Address, acc *types.Account) error {
	return s.KVPut(accountKey(addr), acc)
}

// GetTokenSupply loads the minted supply for a symbol, nil when never
// minted.
func (s *LedgerState) GetTokenSupply(symbol string) (*big.Int, error) {
	rec := new(supplyRecord)
	found, err := s.KVGet(supplyKey(symbol), rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.Supply, nil
}

// PutTokenSupply stores the minted supply for a symbol.
func (s *LedgerState) PutTokenSupply(symbol string, supply *big.Int) error {
	return s.KVPut(supplyKey(symbol), &supplyRecord{Supply: supply})
}
