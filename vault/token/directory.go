package token

import (
	"fmt"
	"sort"

	ethCommon "github.com/ethereum/go-ethereum/common"

	"github.com/oasisprotocol/vault/common"
)

// ErrUnknownToken is returned when looking up a token that is not registered.
var ErrUnknownToken = common.NewError(common.KindNotFound, "UnknownToken", "unknown token")

// Directory resolves token addresses to ledgers.
type Directory struct {
	tokens map[ethCommon.Address]*Token
}

// NewDirectory creates a directory holding the given tokens.
func NewDirectory(tokens ...*Token) (*Directory, error) {
	d := &Directory{tokens: make(map[ethCommon.Address]*Token)}
	for _, t := range tokens {
		if err := d.Register(t); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register adds a token. Addresses must be unique.
func (d *Directory) Register(t *Token) error {
	if _, ok := d.tokens[t.Address()]; ok {
		return fmt.Errorf("token %s (%s) already registered", t.Symbol(), t.Address().Hex())
	}
	d.tokens[t.Address()] = t
	return nil
}

// Get returns the token at addr.
func (d *Directory) Get(addr ethCommon.Address) (*Token, error) {
	t, ok := d.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr.Hex())
	}
	return t, nil
}

// All returns every registered token, sorted by address.
func (d *Directory) All() []*Token {
	all := make([]*Token, 0, len(d.tokens))
	for _, t := range d.tokens {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Address().Cmp(all[j].Address()) < 0
	})
	return all
}
