package farming

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"hivefarm/crypto"
)

func testAddr(last byte) crypto.Address {
	b := make([]byte, 20)
	b[19] = last
	return crypto.NewAddress(crypto.HivePrefix, b)
}

func addrKey(a crypto.Address) string {
	return string(a.Bytes())
}

// mockState keeps pools, positions and params in memory. Reads and writes
// exchange deep copies, matching the decode-fresh semantics of the real
// KV-backed state: a snapshot held by the engine never aliases stored state.
type mockState struct {
	pools     []*Pool
	positions map[string]*Position
	params    *Params
}

func newMockState() *mockState {
	return &mockState{positions: make(map[string]*Position)}
}

func posKey(pid uint64, addr crypto.Address) string {
	return fmt.Sprintf("%d/%s", pid, addrKey(addr))
}

func copyAmount(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func copyPool(p *Pool) *Pool {
	if p == nil {
		return nil
	}
	out := *p
	out.AccPerShare = copyAmount(p.AccPerShare)
	out.AccPerShareSilver = copyAmount(p.AccPerShareSilver)
	out.AccPerShareGold = copyAmount(p.AccPerShareGold)
	out.AccPerShareDiamond = copyAmount(p.AccPerShareDiamond)
	return &out
}

func copyPosition(p *Position) *Position {
	if p == nil {
		return nil
	}
	out := *p
	out.StakedAmount = copyAmount(p.StakedAmount)
	out.RewardDebt = copyAmount(p.RewardDebt)
	out.NFTRewardDebt = copyAmount(p.NFTRewardDebt)
	return &out
}

func copyParams(p *Params) *Params {
	if p == nil {
		return nil
	}
	out := *p
	out.EmissionRate = copyAmount(p.EmissionRate)
	return &out
}

func (m *mockState) PoolCount() (uint64, error) {
	return uint64(len(m.pools)), nil
}

func (m *mockState) GetPool(pid uint64) (*Pool, error) {
	if pid >= uint64(len(m.pools)) {
		return nil, nil
	}
	return copyPool(m.pools[pid]), nil
}

func (m *mockState) PutPool(pid uint64, pool *Pool) error {
	if pid >= uint64(len(m.pools)) {
		return errors.New("unknown pool")
	}
	m.pools[pid] = copyPool(pool)
	return nil
}

func (m *mockState) AppendPool(pool *Pool) (uint64, error) {
	m.pools = append(m.pools, copyPool(pool))
	return uint64(len(m.pools) - 1), nil
}

func (m *mockState) GetPosition(pid uint64, addr crypto.Address) (*Position, error) {
	return copyPosition(m.positions[posKey(pid, addr)]), nil
}

func (m *mockState) PutPosition(pid uint64, pos *Position) error {
	m.positions[posKey(pid, pos.Address)] = copyPosition(pos)
	return nil
}

func (m *mockState) GetParams() (*Params, error) {
	return copyParams(m.params), nil
}

func (m *mockState) PutParams(params *Params) error {
	m.params = copyParams(params)
	return nil
}

// mockVault tracks balances, supply and caps per symbol.
type mockVault struct {
	balances map[string]map[string]*big.Int
	supply   map[string]*big.Int
	caps     map[string]*big.Int
}

func newMockVault() *mockVault {
	return &mockVault{
		balances: make(map[string]map[string]*big.Int),
		supply:   make(map[string]*big.Int),
		caps:     make(map[string]*big.Int),
	}
}

func (v *mockVault) balance(symbol string, addr crypto.Address) *big.Int {
	holders, ok := v.balances[symbol]
	if !ok {
		return big.NewInt(0)
	}
	bal, ok := holders[addrKey(addr)]
	if !ok {
		return big.NewInt(0)
	}
	return bal
}

func (v *mockVault) setBalance(symbol string, addr crypto.Address, amount *big.Int) {
	holders, ok := v.balances[symbol]
	if !ok {
		holders = make(map[string]*big.Int)
		v.balances[symbol] = holders
	}
	holders[addrKey(addr)] = new(big.Int).Set(amount)
}

func (v *mockVault) Transfer(symbol string, from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("mock vault: bad amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal := v.balance(symbol, from)
	if bal.Cmp(amount) < 0 {
		return errors.New("mock vault: insufficient balance")
	}
	v.setBalance(symbol, from, new(big.Int).Sub(bal, amount))
	v.setBalance(symbol, to, new(big.Int).Add(v.balance(symbol, to), amount))
	return nil
}

func (v *mockVault) BalanceOf(symbol string, holder crypto.Address) (*big.Int, error) {
	return new(big.Int).Set(v.balance(symbol, holder)), nil
}

func (v *mockVault) Mint(symbol string, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("mock vault: bad amount")
	}
	supply, ok := v.supply[symbol]
	if !ok {
		supply = big.NewInt(0)
	}
	next := new(big.Int).Add(supply, amount)
	if cap, capped := v.caps[symbol]; capped && cap.Sign() > 0 && next.Cmp(cap) > 0 {
		return errors.New("mock vault: over cap")
	}
	v.supply[symbol] = next
	v.setBalance(symbol, to, new(big.Int).Add(v.balance(symbol, to), amount))
	return nil
}

func (v *mockVault) TotalSupply(symbol string) (*big.Int, error) {
	supply, ok := v.supply[symbol]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(supply), nil
}

func (v *mockVault) MaxSupply(symbol string) (*big.Int, error) {
	cap, ok := v.caps[symbol]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(cap), nil
}

// mockNFTs tracks tier and ownership per identifier.
type mockNFTs struct {
	tiers  map[uint64]Tier
	owners map[uint64]string
}

func newMockNFTs() *mockNFTs {
	return &mockNFTs{tiers: make(map[uint64]Tier), owners: make(map[uint64]string)}
}

func (n *mockNFTs) register(id uint64, tier Tier, owner crypto.Address) {
	n.tiers[id] = tier
	n.owners[id] = addrKey(owner)
}

func (n *mockNFTs) Transfer(id uint64, from, to crypto.Address) error {
	if n.owners[id] != addrKey(from) {
		return errors.New("mock nfts: not owner")
	}
	n.owners[id] = addrKey(to)
	return nil
}

func (n *mockNFTs) TierOf(id uint64) (Tier, error) {
	return n.tiers[id], nil
}

func (n *mockNFTs) BalanceOf(holder crypto.Address) (uint64, error) {
	var count uint64
	for _, owner := range n.owners {
		if owner == addrKey(holder) {
			count++
		}
	}
	return count, nil
}

// mockReferrals implements the registry collaborator with in-memory edges and
// meters.
type mockReferrals struct {
	edges          map[string]crypto.Address
	overrides      map[string]uint64
	depositEnabled map[string]bool
	meters         map[string]*big.Int

	defaultL1 uint64
	l2        uint64
	l3        uint64
	flat      uint64
}

func newMockReferrals() *mockReferrals {
	return &mockReferrals{
		edges:          make(map[string]crypto.Address),
		overrides:      make(map[string]uint64),
		depositEnabled: make(map[string]bool),
		meters:         make(map[string]*big.Int),
	}
}

func (r *mockReferrals) RecordEdge(user, referrer crypto.Address) error {
	if user.IsZero() || referrer.IsZero() {
		return nil
	}
	if _, ok := r.edges[addrKey(user)]; ok {
		return nil
	}
	r.edges[addrKey(user)] = referrer
	return nil
}

func (r *mockReferrals) ReferrerOf(user crypto.Address) (crypto.Address, bool, error) {
	referrer, ok := r.edges[addrKey(user)]
	return referrer, ok, nil
}

func (r *mockReferrals) LevelsOf(user crypto.Address) ([3]crypto.Address, error) {
	var levels [3]crypto.Address
	current := user
	for i := 0; i < 3; i++ {
		referrer, ok := r.edges[addrKey(current)]
		if !ok {
			break
		}
		levels[i] = referrer
		current = referrer
	}
	return levels, nil
}

func (r *mockReferrals) Level1RateOf(referrer crypto.Address) (uint64, error) {
	if rate, ok := r.overrides[addrKey(referrer)]; ok {
		return rate, nil
	}
	return r.defaultL1, nil
}

func (r *mockReferrals) FixedLevel2Rate() uint64 { return r.l2 }

func (r *mockReferrals) FixedLevel3Rate() uint64 { return r.l3 }

func (r *mockReferrals) RecordCommission(referrer crypto.Address, amount *big.Int, level uint8) error {
	key := fmt.Sprintf("%s/%d", addrKey(referrer), level)
	total, ok := r.meters[key]
	if !ok {
		total = big.NewInt(0)
	}
	r.meters[key] = new(big.Int).Add(total, amount)
	return nil
}

func (r *mockReferrals) commissionTotal(referrer crypto.Address, level uint8) *big.Int {
	total, ok := r.meters[fmt.Sprintf("%s/%d", addrKey(referrer), level)]
	if !ok {
		return big.NewInt(0)
	}
	return total
}

func (r *mockReferrals) DepositCommissionEnabled(referrer crypto.Address) (bool, error) {
	return r.depositEnabled[addrKey(referrer)], nil
}

func (r *mockReferrals) FlatDepositCommissionRate() uint64 { return r.flat }

// fixture wires an engine against the in-memory mocks.
type fixture struct {
	engine *Engine
	state  *mockState
	vault  *mockVault
	nfts   *mockNFTs
	refs   *mockReferrals

	owner  crypto.Address
	module crypto.Address
	sink   crypto.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:  newMockState(),
		vault:  newMockVault(),
		nfts:   newMockNFTs(),
		refs:   newMockReferrals(),
		owner:  testAddr(0x01),
		module: testAddr(0xAA),
		sink:   testAddr(0xFE),
	}
	f.engine = NewEngine(f.module, f.sink, "HIVE")
	f.engine.SetState(f.state)
	f.engine.SetVault(f.vault)
	f.engine.SetNFTCustodian(f.nfts)
	f.engine.SetReferrals(f.refs)
	f.engine.SetOwner(f.owner)
	return f
}

func (f *fixture) setEmission(t *testing.T, rate int64) {
	t.Helper()
	if err := f.engine.SetEmissionRate(f.owner, big.NewInt(rate)); err != nil {
		t.Fatalf("set emission rate: %v", err)
	}
}

func (f *fixture) addPool(t *testing.T, allocWeight uint64, token string, nftStaking bool, depositFeeBps uint64) uint64 {
	t.Helper()
	pid, err := f.engine.AddPool(f.owner, allocWeight, token, nftStaking, depositFeeBps, false)
	if err != nil {
		t.Fatalf("add pool: %v", err)
	}
	return pid
}

func (f *fixture) fund(symbol string, addr crypto.Address, amount int64) {
	f.vault.setBalance(symbol, addr, big.NewInt(amount))
}

func (f *fixture) deposit(t *testing.T, caller crypto.Address, pid uint64, amount int64) {
	t.Helper()
	if err := f.engine.Deposit(caller, pid, big.NewInt(amount), crypto.Address{}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func (f *fixture) harvest(t *testing.T, caller crypto.Address, pid uint64) {
	t.Helper()
	if err := f.engine.Withdraw(caller, pid, big.NewInt(0)); err != nil {
		t.Fatalf("harvest: %v", err)
	}
}

func (f *fixture) pending(t *testing.T, pid uint64, addr crypto.Address) *big.Int {
	t.Helper()
	pending, err := f.engine.PendingReward(pid, addr)
	if err != nil {
		t.Fatalf("pending reward: %v", err)
	}
	return pending
}

func requireAmount(t *testing.T, got *big.Int, want int64, label string) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s: got nil, want %d", label, want)
	}
	if got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("%s: got %s, want %d", label, got.String(), want)
	}
}
