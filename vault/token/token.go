// Package token implements a journaled in-memory fungible token ledger.
//
// The same ledger type backs the vault's base asset, the vault's shares and
// any foreign token that ends up in the vault's custody.
package token

import (
	"fmt"
	"sort"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/vault/journal"
)

var (
	// ErrInsufficientBalance is returned when an account does not hold enough tokens.
	ErrInsufficientBalance = common.NewError(common.KindBalance, "InsufficientBalance", "insufficient balance")
	// ErrInsufficientAllowance is returned when a spender's allowance is too small.
	ErrInsufficientAllowance = common.NewError(common.KindAuthorization, "InsufficientAllowance", "insufficient allowance")
	// ErrOnlyMinter is returned when someone other than the minter mints or burns.
	ErrOnlyMinter = common.NewError(common.KindAuthorization, "OnlyMinter", "caller is not the minter")
	// ErrOverflow is returned when a balance or the supply would exceed 2^256-1.
	ErrOverflow = common.NewError(common.KindBalance, "Overflow", "amount overflows")
)

// Ledger is the fungible-token surface the vault consumes.
type Ledger interface {
	Address() ethCommon.Address
	Symbol() string
	Decimals() uint8
	TotalSupply() *uint256.Int
	BalanceOf(account ethCommon.Address) *uint256.Int
	Allowance(owner, spender ethCommon.Address) *uint256.Int
	Transfer(from, to ethCommon.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to ethCommon.Address, amount *uint256.Int) error
	Approve(owner, spender ethCommon.Address, amount *uint256.Int) error
}

// Params describe a new token.
type Params struct {
	Address  ethCommon.Address
	Symbol   string
	Decimals uint8
	// Minter is the only account allowed to mint and burn.
	Minter ethCommon.Address
}

// Token is the in-memory Ledger implementation. Stored amounts are never
// mutated in place, so undo closures can keep references to old values.
type Token struct {
	params  Params
	journal *journal.Journal

	supply     *uint256.Int
	balances   map[ethCommon.Address]*uint256.Int
	allowances map[ethCommon.Address]map[ethCommon.Address]*uint256.Int
}

var _ Ledger = (*Token)(nil)

// New creates an empty token whose mutations are recorded in j.
func New(j *journal.Journal, p Params) *Token {
	return &Token{
		params:     p,
		journal:    j,
		supply:     new(uint256.Int),
		balances:   make(map[ethCommon.Address]*uint256.Int),
		allowances: make(map[ethCommon.Address]map[ethCommon.Address]*uint256.Int),
	}
}

// Address implements Ledger.
func (t *Token) Address() ethCommon.Address { return t.params.Address }

// Symbol implements Ledger.
func (t *Token) Symbol() string { return t.params.Symbol }

// Decimals implements Ledger.
func (t *Token) Decimals() uint8 { return t.params.Decimals }

// Minter returns the account allowed to mint and burn.
func (t *Token) Minter() ethCommon.Address { return t.params.Minter }

// TotalSupply implements Ledger.
func (t *Token) TotalSupply() *uint256.Int {
	return t.supply.Clone()
}

// BalanceOf implements Ledger.
func (t *Token) BalanceOf(account ethCommon.Address) *uint256.Int {
	if b, ok := t.balances[account]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

// Allowance implements Ledger.
func (t *Token) Allowance(owner, spender ethCommon.Address) *uint256.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return a.Clone()
	}
	return new(uint256.Int)
}

// Transfer implements Ledger.
func (t *Token) Transfer(from, to ethCommon.Address, amount *uint256.Int) error {
	if common.IsZeroAddress(from) || common.IsZeroAddress(to) {
		return fmt.Errorf("%s transfer: %w", t.params.Symbol, common.ErrZeroAddress)
	}
	return t.move(from, to, amount)
}

// TransferFrom implements Ledger.
func (t *Token) TransferFrom(spender, from, to ethCommon.Address, amount *uint256.Int) error {
	if common.IsZeroAddress(from) || common.IsZeroAddress(to) {
		return fmt.Errorf("%s transfer: %w", t.params.Symbol, common.ErrZeroAddress)
	}
	if err := t.SpendAllowance(from, spender, amount); err != nil {
		return err
	}
	return t.move(from, to, amount)
}

// Approve implements Ledger.
func (t *Token) Approve(owner, spender ethCommon.Address, amount *uint256.Int) error {
	if common.IsZeroAddress(owner) || common.IsZeroAddress(spender) {
		return fmt.Errorf("%s approve: %w", t.params.Symbol, common.ErrZeroAddress)
	}
	t.setAllowance(owner, spender, amount.Clone())
	return nil
}

// SpendAllowance decrements the allowance owner granted to spender. An
// allowance of 2^256-1 is infinite and is left untouched.
func (t *Token) SpendAllowance(owner, spender ethCommon.Address, amount *uint256.Int) error {
	current := t.Allowance(owner, spender)
	if current.Eq(maxUint256) {
		return nil
	}
	if current.Lt(amount) {
		return fmt.Errorf("%s: %w: spender %s has %s, needs %s",
			t.params.Symbol, ErrInsufficientAllowance, spender.Hex(), current.Dec(), amount.Dec())
	}
	t.setAllowance(owner, spender, new(uint256.Int).Sub(current, amount))
	return nil
}

// Mint creates amount tokens for to. Only the minter may call it.
func (t *Token) Mint(caller, to ethCommon.Address, amount *uint256.Int) error {
	if caller != t.params.Minter {
		return fmt.Errorf("%s mint: %w", t.params.Symbol, ErrOnlyMinter)
	}
	if common.IsZeroAddress(to) {
		return fmt.Errorf("%s mint: %w", t.params.Symbol, common.ErrZeroAddress)
	}
	supply, overflow := new(uint256.Int).AddOverflow(t.supply, amount)
	if overflow {
		return fmt.Errorf("%s mint: %w", t.params.Symbol, ErrOverflow)
	}
	// Balance cannot overflow if the supply does not.
	t.setSupply(supply)
	t.setBalance(to, new(uint256.Int).Add(t.BalanceOf(to), amount))
	return nil
}

// Burn destroys amount tokens held by from. Only the minter may call it.
func (t *Token) Burn(caller, from ethCommon.Address, amount *uint256.Int) error {
	if caller != t.params.Minter {
		return fmt.Errorf("%s burn: %w", t.params.Symbol, ErrOnlyMinter)
	}
	bal := t.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%s burn: %w: %s has %s, needs %s",
			t.params.Symbol, ErrInsufficientBalance, from.Hex(), bal.Dec(), amount.Dec())
	}
	t.setBalance(from, new(uint256.Int).Sub(bal, amount))
	t.setSupply(new(uint256.Int).Sub(t.supply, amount))
	return nil
}

// Holders returns every account with a non-zero balance, sorted.
func (t *Token) Holders() []ethCommon.Address {
	holders := make([]ethCommon.Address, 0, len(t.balances))
	for a := range t.balances {
		holders = append(holders, a)
	}
	sort.Slice(holders, func(i, j int) bool {
		return holders[i].Cmp(holders[j]) < 0
	})
	return holders
}

func (t *Token) move(from, to ethCommon.Address, amount *uint256.Int) error {
	bal := t.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%s: %w: %s has %s, needs %s",
			t.params.Symbol, ErrInsufficientBalance, from.Hex(), bal.Dec(), amount.Dec())
	}
	if from == to || amount.IsZero() {
		return nil
	}
	t.setBalance(from, new(uint256.Int).Sub(bal, amount))
	t.setBalance(to, new(uint256.Int).Add(t.BalanceOf(to), amount))
	return nil
}

func (t *Token) setSupply(v *uint256.Int) {
	prev := t.supply
	t.journal.Record(func() { t.supply = prev })
	t.supply = v
}

func (t *Token) setBalance(account ethCommon.Address, v *uint256.Int) {
	prev, had := t.balances[account]
	t.journal.Record(func() {
		if had {
			t.balances[account] = prev
		} else {
			delete(t.balances, account)
		}
	})
	if v.IsZero() {
		delete(t.balances, account)
		return
	}
	t.balances[account] = v
}

func (t *Token) setAllowance(owner, spender ethCommon.Address, v *uint256.Int) {
	prev, had := t.allowances[owner][spender]
	t.journal.Record(func() {
		if had {
			if t.allowances[owner] == nil {
				t.allowances[owner] = make(map[ethCommon.Address]*uint256.Int)
			}
			t.allowances[owner][spender] = prev
		} else if m, ok := t.allowances[owner]; ok {
			delete(m, spender)
			if len(m) == 0 {
				delete(t.allowances, owner)
			}
		}
	})
	if v.IsZero() {
		if m, ok := t.allowances[owner]; ok {
			delete(m, spender)
			if len(m) == 0 {
				delete(t.allowances, owner)
			}
		}
		return
	}
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[ethCommon.Address]*uint256.Int)
	}
	t.allowances[owner][spender] = v
}

var maxUint256 = new(uint256.Int).SetAllOne()

// MaxAllowance is the infinite allowance.
func MaxAllowance() *uint256.Int {
	return maxUint256.Clone()
}
