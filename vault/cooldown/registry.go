// Package cooldown keeps the per-account records of assets waiting to be
// claimed after the cooldown period.
package cooldown

import (
	"fmt"
	"sort"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/vault/journal"
)

// ErrOverflow is returned when accumulating would exceed 2^256-1.
var ErrOverflow = common.NewError(common.KindBalance, "Overflow", "cooldown amount overflows")

// Mode decides what a new request does to an unclaimed record.
// It implements the pflag.Value interface.
type Mode uint8

const (
	// ModeOverwrite replaces the pending amount and restarts the timer.
	ModeOverwrite Mode = iota
	// ModeAccumulate adds to the pending amount and restarts the timer.
	ModeAccumulate
)

// String returns the string representation of a Mode.
func (m *Mode) String() string {
	switch *m {
	case ModeOverwrite:
		return "overwrite"
	case ModeAccumulate:
		return "accumulate"
	default:
		panic("cooldown: unsupported mode")
	}
}

// Set sets the Mode to the value specified by the provided string.
func (m *Mode) Set(s string) error {
	switch strings.ToLower(s) {
	case "overwrite", "":
		*m = ModeOverwrite
	case "accumulate":
		*m = ModeAccumulate
	default:
		return fmt.Errorf("cooldown: invalid mode: '%s'", s)
	}
	return nil
}

// Type returns the list of supported Modes.
func (m *Mode) Type() string {
	return "[overwrite,accumulate]"
}

// Record is an account's pending cooldown. The zero Record (zero amount) means
// no cooldown is pending.
type Record struct {
	UnlockTimestamp  uint64
	UnderlyingAmount *uint256.Int
}

// Active reports whether there is anything to claim.
func (r Record) Active() bool {
	return r.UnderlyingAmount != nil && !r.UnderlyingAmount.IsZero()
}

// Unlocked reports whether the record may be claimed at time now.
func (r Record) Unlocked(now uint64) bool {
	return now >= r.UnlockTimestamp
}

func (r Record) amount() *uint256.Int {
	if r.UnderlyingAmount == nil {
		return new(uint256.Int)
	}
	return r.UnderlyingAmount
}

// Registry maps accounts to their cooldown records.
type Registry struct {
	journal *journal.Journal
	mode    Mode

	records map[ethCommon.Address]Record
	pending *uint256.Int
}

// New creates an empty registry.
func New(j *journal.Journal, mode Mode) *Registry {
	return &Registry{
		journal: j,
		mode:    mode,
		records: make(map[ethCommon.Address]Record),
		pending: new(uint256.Int),
	}
}

// Mode returns the re-request policy.
func (r *Registry) Mode() Mode {
	return r.mode
}

// Get returns the account's record. Amounts are copies.
func (r *Registry) Get(account ethCommon.Address) Record {
	rec, ok := r.records[account]
	if !ok {
		return Record{UnderlyingAmount: new(uint256.Int)}
	}
	return Record{UnlockTimestamp: rec.UnlockTimestamp, UnderlyingAmount: rec.amount().Clone()}
}

// Start records amount for account, unlocking at unlock. In overwrite mode it
// returns the amount of the record that was replaced (zero if none).
func (r *Registry) Start(account ethCommon.Address, amount *uint256.Int, unlock uint64) (*uint256.Int, error) {
	prev := r.Get(account)
	replaced := new(uint256.Int)
	next := amount.Clone()
	if r.mode == ModeAccumulate {
		var overflow bool
		if next, overflow = next.AddOverflow(prev.amount(), amount); overflow {
			return nil, fmt.Errorf("cooldown of %s: %w", account.Hex(), ErrOverflow)
		}
	} else {
		replaced = prev.amount().Clone()
	}

	pending := new(uint256.Int).Sub(r.pending, prev.amount())
	pending, overflow := pending.AddOverflow(pending, next)
	if overflow {
		return nil, fmt.Errorf("cooldown total: %w", ErrOverflow)
	}
	r.set(account, Record{UnlockTimestamp: unlock, UnderlyingAmount: next}, pending)
	return replaced, nil
}

// Clear zeroes the account's record and returns what it held.
func (r *Registry) Clear(account ethCommon.Address) Record {
	prev := r.Get(account)
	if _, ok := r.records[account]; !ok {
		return prev
	}
	r.set(account, Record{}, new(uint256.Int).Sub(r.pending, prev.amount()))
	return prev
}

// TotalPending is the sum of all records.
func (r *Registry) TotalPending() *uint256.Int {
	return r.pending.Clone()
}

// Accounts returns every account with a record, sorted.
func (r *Registry) Accounts() []ethCommon.Address {
	out := make([]ethCommon.Address, 0, len(r.records))
	for a := range r.records {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

func (r *Registry) set(account ethCommon.Address, rec Record, pending *uint256.Int) {
	prevRec, had := r.records[account]
	prevPending := r.pending
	r.journal.Record(func() {
		if had {
			r.records[account] = prevRec
		} else {
			delete(r.records, account)
		}
		r.pending = prevPending
	})
	if rec.Active() {
		r.records[account] = rec
	} else {
		delete(r.records, account)
	}
	r.pending = pending
}

// Entry is the serialized form of one record.
type Entry struct {
	Account         ethCommon.Address `json:"account"`
	UnlockTimestamp uint64            `json:"unlock_timestamp"`
	Amount          string            `json:"amount"`
}

// Export returns every record, sorted by account.
func (r *Registry) Export() []Entry {
	out := make([]Entry, 0, len(r.records))
	for _, a := range r.Accounts() {
		rec := r.records[a]
		out = append(out, Entry{Account: a, UnlockTimestamp: rec.UnlockTimestamp, Amount: rec.amount().Dec()})
	}
	return out
}

// Import replaces every record. The replacement is journaled.
func (r *Registry) Import(entries []Entry) error {
	records := make(map[ethCommon.Address]Record, len(entries))
	pending := new(uint256.Int)
	for _, e := range entries {
		amt, err := common.ParseAmount(e.Amount)
		if err != nil {
			return fmt.Errorf("cooldown of %s: %w", e.Account.Hex(), err)
		}
		if amt.IsZero() {
			continue
		}
		var overflow bool
		if pending, overflow = pending.AddOverflow(pending, amt); overflow {
			return fmt.Errorf("cooldown total: %w", ErrOverflow)
		}
		records[e.Account] = Record{UnlockTimestamp: e.UnlockTimestamp, UnderlyingAmount: amt}
	}
	prevRecords, prevPending := r.records, r.pending
	r.journal.Record(func() { r.records, r.pending = prevRecords, prevPending })
	r.records, r.pending = records, pending
	return nil
}
