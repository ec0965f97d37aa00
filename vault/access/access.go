// Package access implements role-based access control.
package access

import (
	"fmt"
	"sort"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/vault/journal"
)

// Role identifies a capability.
type Role = ethCommon.Hash

var (
	// DefaultAdminRole administers every other role and the vault configuration.
	DefaultAdminRole = Role{}
	// RewarderRole may transfer rewards into the vault.
	RewarderRole = RoleFromName("REWARDER_ROLE")

	// ErrMissingRole is returned when an account lacks the role an operation needs.
	ErrMissingRole = common.NewError(common.KindAuthorization, "MissingRole", "account is missing role")
)

// RoleFromName derives a role id as keccak256(name).
func RoleFromName(name string) Role {
	return crypto.Keccak256Hash([]byte(name))
}

// RoleName returns a readable name for the well-known roles and the hex id
// otherwise.
func RoleName(r Role) string {
	switch r {
	case DefaultAdminRole:
		return "DEFAULT_ADMIN_ROLE"
	case RewarderRole:
		return "REWARDER_ROLE"
	default:
		return r.Hex()
	}
}

// Control stores role memberships.
type Control struct {
	journal *journal.Journal
	members map[Role]map[ethCommon.Address]struct{}
}

// New creates a Control where admin holds DefaultAdminRole.
func New(j *journal.Journal, admin ethCommon.Address) (*Control, error) {
	if common.IsZeroAddress(admin) {
		return nil, fmt.Errorf("admin: %w", common.ErrZeroAddress)
	}
	c := &Control{
		journal: j,
		members: make(map[Role]map[ethCommon.Address]struct{}),
	}
	c.set(DefaultAdminRole, admin, true)
	return c, nil
}

// HasRole reports whether account holds role.
func (c *Control) HasRole(role Role, account ethCommon.Address) bool {
	_, ok := c.members[role][account]
	return ok
}

// CheckRole returns ErrMissingRole unless account holds role.
func (c *Control) CheckRole(role Role, account ethCommon.Address) error {
	if !c.HasRole(role, account) {
		return fmt.Errorf("%w: %s lacks %s", ErrMissingRole, account.Hex(), RoleName(role))
	}
	return nil
}

// GrantRole gives role to account. The caller must be an admin. Granting a
// role that is already held is a no-op.
func (c *Control) GrantRole(caller ethCommon.Address, role Role, account ethCommon.Address) error {
	if err := c.CheckRole(DefaultAdminRole, caller); err != nil {
		return err
	}
	if common.IsZeroAddress(account) {
		return fmt.Errorf("grant %s: %w", RoleName(role), common.ErrZeroAddress)
	}
	c.set(role, account, true)
	return nil
}

// RevokeRole takes role away from account. The caller must be an admin.
func (c *Control) RevokeRole(caller ethCommon.Address, role Role, account ethCommon.Address) error {
	if err := c.CheckRole(DefaultAdminRole, caller); err != nil {
		return err
	}
	c.set(role, account, false)
	return nil
}

// RenounceRole lets account drop one of its own roles.
func (c *Control) RenounceRole(account ethCommon.Address, role Role) {
	c.set(role, account, false)
}

// Members returns the holders of role, sorted.
func (c *Control) Members(role Role) []ethCommon.Address {
	out := make([]ethCommon.Address, 0, len(c.members[role]))
	for a := range c.members[role] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// Export returns every membership, keyed by role.
func (c *Control) Export() map[Role][]ethCommon.Address {
	out := make(map[Role][]ethCommon.Address, len(c.members))
	for r := range c.members {
		if m := c.Members(r); len(m) > 0 {
			out[r] = m
		}
	}
	return out
}

// Import replaces every membership. The replacement is journaled.
func (c *Control) Import(members map[Role][]ethCommon.Address) {
	prev := c.members
	c.journal.Record(func() { c.members = prev })
	c.members = make(map[Role]map[ethCommon.Address]struct{}, len(members))
	for r, accounts := range members {
		c.members[r] = make(map[ethCommon.Address]struct{}, len(accounts))
		for _, a := range accounts {
			c.members[r][a] = struct{}{}
		}
	}
}

func (c *Control) set(role Role, account ethCommon.Address, member bool) {
	if c.HasRole(role, account) == member {
		return
	}
	c.journal.Record(func() { c.apply(role, account, !member) })
	c.apply(role, account, member)
}

func (c *Control) apply(role Role, account ethCommon.Address, member bool) {
	if member {
		if c.members[role] == nil {
			c.members[role] = make(map[ethCommon.Address]struct{})
		}
		c.members[role][account] = struct{}{}
		return
	}
	delete(c.members[role], account)
}
