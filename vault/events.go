package vault

import (
	"math/big"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/oasisprotocol/vault/vault/access"
	"github.com/oasisprotocol/vault/vault/fee"
)

// Meta is assigned to an event when the operation that emitted it commits.
type Meta struct {
	// Seq is the event's position in the vault's total order, starting at 1.
	Seq uint64
	// Time is the unix time of the operation.
	Time uint64
}

// Event is a notification emitted by a committed vault operation.
type Event interface {
	// Name is the event's name in the vault ABI.
	Name() string
	// Args are the event's arguments in ABI order.
	Args() []interface{}
	// Account is the account the event is primarily about, if any.
	Account() ethCommon.Address
	// Meta returns the commit metadata.
	Meta() Meta

	setMeta(Meta)
}

// Listener receives committed events, in order, while the vault lock is
// held. Implementations must neither block nor call back into the vault.
type Listener interface {
	OnEvents(events []Event)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(events []Event)

// OnEvents implements Listener.
func (f ListenerFunc) OnEvents(events []Event) { f(events) }

type baseEvent struct {
	meta Meta
}

func (e *baseEvent) Meta() Meta { return e.meta }
func (e *baseEvent) setMeta(m Meta) { e.meta = m }
func (e *baseEvent) Account() ethCommon.Address { return ethCommon.Address{} }

func b(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

// DepositEvent is emitted by Deposit and Mint.
type DepositEvent struct {
	baseEvent
	Sender   ethCommon.Address
	Receiver ethCommon.Address
	Assets   *uint256.Int
	Shares   *uint256.Int
}

func (e *DepositEvent) Name() string { return "Deposit" }
func (e *DepositEvent) Account() ethCommon.Address { return e.Receiver }
func (e *DepositEvent) Args() []interface{} {
	return []interface{}{e.Sender, e.Receiver, b(e.Assets), b(e.Shares)}
}

// InstantUnstakeEvent is emitted by every exit that takes the fee path.
// Net and Fee are the realized, rounded amounts.
type InstantUnstakeEvent struct {
	baseEvent
	Sender   ethCommon.Address
	Owner    ethCommon.Address
	Receiver ethCommon.Address
	Net      *uint256.Int
	Fee      *uint256.Int
	Shares   *uint256.Int
}

func (e *InstantUnstakeEvent) Name() string { return "InstantUnstake" }
func (e *InstantUnstakeEvent) Account() ethCommon.Address { return e.Owner }
func (e *InstantUnstakeEvent) Args() []interface{} {
	return []interface{}{e.Sender, e.Owner, e.Receiver, b(e.Net), b(e.Fee), b(e.Shares)}
}

// CooldownStartedEvent is emitted when assets move into the silo.
type CooldownStartedEvent struct {
	baseEvent
	// Holder owns the cooldown record.
	Holder          ethCommon.Address
	Owner           ethCommon.Address
	Assets          *uint256.Int
	Shares          *uint256.Int
	UnlockTimestamp uint64
	// Replaced is the unclaimed amount a re-request overwrote.
	Replaced *uint256.Int
}

func (e *CooldownStartedEvent) Name() string { return "CooldownStarted" }
func (e *CooldownStartedEvent) Account() ethCommon.Address { return e.Holder }
func (e *CooldownStartedEvent) Args() []interface{} {
	return []interface{}{e.Holder, e.Owner, b(e.Assets), b(e.Shares), new(big.Int).SetUint64(e.UnlockTimestamp), b(e.Replaced)}
}

// CooldownClaimedEvent is emitted by a successful Unstake.
type CooldownClaimedEvent struct {
	baseEvent
	Holder   ethCommon.Address
	Receiver ethCommon.Address
	Assets   *uint256.Int
}

func (e *CooldownClaimedEvent) Name() string { return "CooldownClaimed" }
func (e *CooldownClaimedEvent) Account() ethCommon.Address { return e.Holder }
func (e *CooldownClaimedEvent) Args() []interface{} {
	return []interface{}{e.Holder, e.Receiver, b(e.Assets)}
}

// FeeRateChangedEvent is emitted when the fee rate changes.
type FeeRateChangedEvent struct {
	baseEvent
	Old fee.Rate
	New fee.Rate
}

func (e *FeeRateChangedEvent) Name() string { return "FeeRateChanged" }
func (e *FeeRateChangedEvent) Args() []interface{} {
	return []interface{}{uint16(e.Old), uint16(e.New)}
}

// InsuranceFundChangedEvent is emitted when the insurance fund changes.
type InsuranceFundChangedEvent struct {
	baseEvent
	Old ethCommon.Address
	New ethCommon.Address
}

func (e *InsuranceFundChangedEvent) Name() string { return "InsuranceFundChanged" }
func (e *InsuranceFundChangedEvent) Account() ethCommon.Address { return e.New }
func (e *InsuranceFundChangedEvent) Args() []interface{} {
	return []interface{}{e.Old, e.New}
}

// CooldownDurationChangedEvent is emitted by SetCooldownDuration.
type CooldownDurationChangedEvent struct {
	baseEvent
	Old uint64
	New uint64
}

func (e *CooldownDurationChangedEvent) Name() string { return "CooldownDurationChanged" }
func (e *CooldownDurationChangedEvent) Args() []interface{} {
	return []interface{}{e.Old, e.New}
}

// RewardsReceivedEvent is emitted by TransferInRewards.
type RewardsReceivedEvent struct {
	baseEvent
	Amount *uint256.Int
}

func (e *RewardsReceivedEvent) Name() string { return "RewardsReceived" }
func (e *RewardsReceivedEvent) Args() []interface{} {
	return []interface{}{b(e.Amount)}
}

// TokensRescuedEvent is emitted by RescueTokens.
type TokensRescuedEvent struct {
	baseEvent
	Token    ethCommon.Address
	Receiver ethCommon.Address
	Amount   *uint256.Int
}

func (e *TokensRescuedEvent) Name() string { return "TokensRescued" }
func (e *TokensRescuedEvent) Account() ethCommon.Address { return e.Receiver }
func (e *TokensRescuedEvent) Args() []interface{} {
	return []interface{}{e.Token, e.Receiver, b(e.Amount)}
}

// InitializedEvent is emitted once by InitializeV2.
type InitializedEvent struct {
	baseEvent
	Version uint64
}

func (e *InitializedEvent) Name() string { return "Initialized" }
func (e *InitializedEvent) Args() []interface{} {
	return []interface{}{e.Version}
}

// RoleChangedEvent is emitted when a role is granted or revoked.
type RoleChangedEvent struct {
	baseEvent
	Granted bool
	Role    access.Role
	Member  ethCommon.Address
	Sender  ethCommon.Address
}

func (e *RoleChangedEvent) Name() string {
	if e.Granted {
		return "RoleGranted"
	}
	return "RoleRevoked"
}
func (e *RoleChangedEvent) Account() ethCommon.Address { return e.Member }
func (e *RoleChangedEvent) Args() []interface{} {
	return []interface{}{[32]byte(e.Role), e.Member, e.Sender}
}
