package token

import (
	"errors"
	"math/big"
	"testing"

	"hivefarm/core/types"
	"hivefarm/crypto"
)

type memVaultState struct {
	accounts map[string]*types.Account
	supplies map[string]*big.Int
}

func newMemVaultState() *memVaultState {
	return &memVaultState{
		accounts: make(map[string]*types.Account),
		supplies: make(map[string]*big.Int),
	}
}

func (m *memVaultState) GetAccount(addr crypto.Address) (*types.Account, error) {
	return m.accounts[string(addr.Bytes())], nil
}

func (m *memVaultState) PutAccount(addr crypto.Address, acc *types.Account) error {
	m.accounts[string(addr.Bytes())] = acc
	return nil
}

func (m *memVaultState) GetTokenSupply(symbol string) (*big.Int, error) {
	return m.supplies[symbol], nil
}

func (m *memVaultState) PutTokenSupply(symbol string, supply *big.Int) error {
	m.supplies[symbol] = supply
	return nil
}

func testAddr(last byte) crypto.Address {
	b := make([]byte, 20)
	b[19] = last
	return crypto.NewAddress(crypto.HivePrefix, b)
}

func mustBalance(t *testing.T, v *Vault, symbol string, holder crypto.Address) *big.Int {
	t.Helper()
	bal, err := v.BalanceOf(symbol, holder)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	return bal
}

func TestVaultTransferMovesBalance(t *testing.T) {
	v := NewVault(newMemVaultState())
	alice := testAddr(0x10)
	bob := testAddr(0x11)

	v.RegisterMintable("HIVE", big.NewInt(0))
	if err := v.Mint("HIVE", alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := v.Transfer("hive", alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := mustBalance(t, v, "HIVE", alice); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("alice: got %s, want 60", got)
	}
	if got := mustBalance(t, v, "HIVE", bob); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("bob: got %s, want 40", got)
	}
}

func TestVaultTransferValidation(t *testing.T) {
	v := NewVault(newMemVaultState())
	alice := testAddr(0x10)
	bob := testAddr(0x11)

	if err := v.Transfer("HIVE", alice, bob, big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraw: got %v, want ErrInsufficientBalance", err)
	}
	if err := v.Transfer("HIVE", alice, bob, big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative: got %v, want ErrInvalidAmount", err)
	}
	if err := v.Transfer("HIVE", alice, bob, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("nil: got %v, want ErrInvalidAmount", err)
	}
	if err := v.Transfer("HIVE", alice, bob, big.NewInt(0)); err != nil {
		t.Fatalf("zero transfer: %v", err)
	}
}

func TestVaultMintEnforcesCap(t *testing.T) {
	v := NewVault(newMemVaultState())
	alice := testAddr(0x10)

	v.RegisterMintable("HIVE", big.NewInt(100))
	if err := v.Mint("HIVE", alice, big.NewInt(80)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := v.Mint("HIVE", alice, big.NewInt(21)); !errors.Is(err, ErrMintOverCap) {
		t.Fatalf("over cap: got %v, want ErrMintOverCap", err)
	}
	if err := v.Mint("HIVE", alice, big.NewInt(20)); err != nil {
		t.Fatalf("mint to cap: %v", err)
	}

	supply, err := v.TotalSupply("HIVE")
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("supply: got %s, want 100", supply)
	}
}

func TestVaultMintRequiresRegistration(t *testing.T) {
	v := NewVault(newMemVaultState())
	if err := v.Mint("LP", testAddr(0x10), big.NewInt(1)); !errors.Is(err, ErrNotMintable) {
		t.Fatalf("got %v, want ErrNotMintable", err)
	}
}

func TestVaultZeroCapMeansUnlimited(t *testing.T) {
	v := NewVault(newMemVaultState())
	alice := testAddr(0x10)

	v.RegisterMintable("HIVE", big.NewInt(0))
	if err := v.Mint("HIVE", alice, new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	max, err := v.MaxSupply("HIVE")
	if err != nil {
		t.Fatalf("max supply: %v", err)
	}
	if max.Sign() != 0 {
		t.Fatalf("max supply: got %s, want 0", max)
	}
}
