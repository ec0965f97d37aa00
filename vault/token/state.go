package token

import (
	"fmt"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
)

// State is a serializable copy of a token's balances and allowances.
// Amounts are base-10 strings.
type State struct {
	Supply     string                                             `json:"supply"`
	Balances   map[ethCommon.Address]string                       `json:"balances"`
	Allowances map[ethCommon.Address]map[ethCommon.Address]string `json:"allowances,omitempty"`
}

// Export returns a copy of the token's state.
func (t *Token) Export() State {
	s := State{
		Supply:     t.supply.Dec(),
		Balances:   make(map[ethCommon.Address]string, len(t.balances)),
		Allowances: make(map[ethCommon.Address]map[ethCommon.Address]string, len(t.allowances)),
	}
	for a, b := range t.balances {
		s.Balances[a] = b.Dec()
	}
	for owner, m := range t.allowances {
		s.Allowances[owner] = make(map[ethCommon.Address]string, len(m))
		for spender, v := range m {
			s.Allowances[owner][spender] = v.Dec()
		}
	}
	return s
}

// Import replaces the token's state. The replacement is journaled; an invalid
// state leaves the token untouched.
func (t *Token) Import(s State) error {
	supply, err := common.ParseAmount(s.Supply)
	if err != nil {
		return fmt.Errorf("%s supply: %w", t.params.Symbol, err)
	}
	balances := make(map[ethCommon.Address]*uint256.Int, len(s.Balances))
	sum := new(uint256.Int)
	for a, v := range s.Balances {
		b, err := common.ParseAmount(v)
		if err != nil {
			return fmt.Errorf("%s balance of %s: %w", t.params.Symbol, a.Hex(), err)
		}
		if b.IsZero() {
			continue
		}
		var overflow bool
		if sum, overflow = sum.AddOverflow(sum, b); overflow {
			return fmt.Errorf("%s balances: %w", t.params.Symbol, ErrOverflow)
		}
		balances[a] = b
	}
	if !sum.Eq(supply) {
		return fmt.Errorf("%s: balances sum to %s but supply is %s", t.params.Symbol, sum.Dec(), supply.Dec())
	}
	allowances := make(map[ethCommon.Address]map[ethCommon.Address]*uint256.Int, len(s.Allowances))
	for owner, m := range s.Allowances {
		for spender, v := range m {
			a, err := common.ParseAmount(v)
			if err != nil {
				return fmt.Errorf("%s allowance %s->%s: %w", t.params.Symbol, owner.Hex(), spender.Hex(), err)
			}
			if a.IsZero() {
				continue
			}
			if allowances[owner] == nil {
				allowances[owner] = make(map[ethCommon.Address]*uint256.Int)
			}
			allowances[owner][spender] = a
		}
	}
	prevSupply, prevBalances, prevAllowances := t.supply, t.balances, t.allowances
	t.journal.Record(func() {
		t.supply, t.balances, t.allowances = prevSupply, prevBalances, prevAllowances
	})
	t.supply, t.balances, t.allowances = supply, balances, allowances
	return nil
}
