package types

import "math/big"

// Account holds the fungible balances for a single address, keyed by token
// symbol. Amounts are denominated in the token's smallest unit and expressed
// as big integers to keep ledger precision exact.
type Account struct {
	Nonce    uint64              `json:"nonce"`
	Balances map[string]*big.Int `json:"balances"`
}

// Balance returns the account's balance for the given symbol, treating
// missing entries as zero.
func (a *Account) Balance(symbol string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	if v, ok := a.Balances[symbol]; ok && v != nil {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

// SetBalance records the balance for the given symbol, allocating the balance
// map on first use.
func (a *Account) SetBalance(symbol string, amount *big.Int) {
	if a == nil {
		return
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[symbol] = new(big.Int).Set(amount)
}
