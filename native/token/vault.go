package token

import (
	"errors"
	"math/big"
	"strings"

	"hivefarm/core/types"
	"hivefarm/crypto"
)

var (
	errNilState = errors.New("token vault: state not configured")

	// ErrInsufficientBalance rejects transfers above the holder's balance.
	ErrInsufficientBalance = errors.New("token vault: insufficient balance")
	// ErrInvalidAmount rejects nil or negative amounts.
	ErrInvalidAmount = errors.New("token vault: amount must be non-negative")
	// ErrNotMintable rejects minting a symbol without a registered supply
	// cap.
	ErrNotMintable = errors.New("token vault: token is not mintable")
	// ErrMintOverCap rejects mints that would push supply past the cap.
	ErrMintOverCap = errors.New("token vault: mint exceeds max supply")
)

type vaultState interface {
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, acc *types.Account) error
	GetTokenSupply(symbol string) (*big.Int, error)
	PutTokenSupply(symbol string, supply *big.Int) error
}

// Vault is the fungible custodian. It keeps per-address balances keyed by
// token symbol and enforces the mint cap for the reward token.
type Vault struct {
	st       vaultState
	mintable map[string]*big.Int
}

// NewVault creates a vault backed by the provided state manager.
func NewVault(st vaultState) *Vault {
	return &Vault{st: st, mintable: make(map[string]*big.Int)}
}

// RegisterMintable marks a symbol as mintable up to maxSupply. A zero cap
// means unlimited.
func (v *Vault) RegisterMintable(symbol string, maxSupply *big.Int) {
	if v == nil {
		return
	}
	symbol = normalizeSymbol(symbol)
	if maxSupply == nil {
		maxSupply = big.NewInt(0)
	}
	v.mintable[symbol] = new(big.Int).Set(maxSupply)
}

// Transfer moves an amount between two holders.
func (v *Vault) Transfer(symbol string, from, to crypto.Address, amount *big.Int) error {
	if v == nil || v.st == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	symbol = normalizeSymbol(symbol)

	fromAcc, err := v.loadAccount(from)
	if err != nil {
		return err
	}
	balance := fromAcc.Balance(symbol)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toAcc, err := v.loadAccount(to)
	if err != nil {
		return err
	}

	fromAcc.SetBalance(symbol, new(big.Int).Sub(balance, amount))
	toAcc.SetBalance(symbol, new(big.Int).Add(toAcc.Balance(symbol), amount))

	if err := v.st.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return v.st.PutAccount(to, toAcc)
}

// BalanceOf returns the holder's balance for a symbol.
func (v *Vault) BalanceOf(symbol string, holder crypto.Address) (*big.Int, error) {
	if v == nil || v.st == nil {
		return nil, errNilState
	}
	acc, err := v.loadAccount(holder)
	if err != nil {
		return nil, err
	}
	return acc.Balance(normalizeSymbol(symbol)), nil
}

// Mint issues new units of a mintable symbol. Minting past the registered
// cap fails; callers are expected to pre-clamp.
func (v *Vault) Mint(symbol string, to crypto.Address, amount *big.Int) error {
	if v == nil || v.st == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	symbol = normalizeSymbol(symbol)
	cap, ok := v.mintable[symbol]
	if !ok {
		return ErrNotMintable
	}

	supply, err := v.TotalSupply(symbol)
	if err != nil {
		return err
	}
	next := new(big.Int).Add(supply, amount)
	if cap.Sign() > 0 && next.Cmp(cap) > 0 {
		return ErrMintOverCap
	}

	acc, err := v.loadAccount(to)
	if err != nil {
		return err
	}
	acc.SetBalance(symbol, new(big.Int).Add(acc.Balance(symbol), amount))
	if err := v.st.PutAccount(to, acc); err != nil {
		return err
	}
	return v.st.PutTokenSupply(symbol, next)
}

// TotalSupply returns the minted supply for a symbol.
func (v *Vault) TotalSupply(symbol string) (*big.Int, error) {
	if v == nil || v.st == nil {
		return nil, errNilState
	}
	supply, err := v.st.GetTokenSupply(normalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(supply), nil
}

// MaxSupply returns the registered cap for a symbol, zero meaning no cap.
func (v *Vault) MaxSupply(symbol string) (*big.Int, error) {
	if v == nil {
		return nil, errNilState
	}
	cap, ok := v.mintable[normalizeSymbol(symbol)]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(cap), nil
}

func (v *Vault) loadAccount(addr crypto.Address) (*types.Account, error) {
	acc, err := v.st.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &types.Account{}
	}
	return acc, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
