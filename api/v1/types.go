package v1

// Amounts are base-10 strings in the token's smallest unit and addresses
// are 0x-prefixed hex. An empty receiver or owner defaults to the caller.

type DepositRequest struct {
	Caller   string `json:"caller"`
	Assets   string `json:"assets"`
	Receiver string `json:"receiver,omitempty"`
}

type MintRequest struct {
	Caller   string `json:"caller"`
	Shares   string `json:"shares"`
	Receiver string `json:"receiver,omitempty"`
}

type WithdrawRequest struct {
	Caller   string `json:"caller"`
	Assets   string `json:"assets"`
	Receiver string `json:"receiver,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

type RedeemRequest struct {
	Caller   string `json:"caller"`
	Shares   string `json:"shares"`
	Receiver string `json:"receiver,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

type CooldownAssetsRequest struct {
	Caller string `json:"caller"`
	Assets string `json:"assets"`
	Owner  string `json:"owner,omitempty"`
}

type CooldownSharesRequest struct {
	Caller string `json:"caller"`
	Shares string `json:"shares"`
	Owner  string `json:"owner,omitempty"`
}

type UnstakeRequest struct {
	Caller   string `json:"caller"`
	Receiver string `json:"receiver,omitempty"`
}

type RewardsRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

// TransferRequest moves tokens from the caller to To.
type TransferRequest struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type ApproveRequest struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type FeeRequest struct {
	Caller string `json:"caller"`
	FeeBP  uint16 `json:"fee_bp"`
}

type CooldownDurationRequest struct {
	Caller string `json:"caller"`
	// Duration is in seconds.
	Duration uint64 `json:"duration"`
}

type InsuranceFundRequest struct {
	Caller string `json:"caller"`
	Fund   string `json:"fund"`
}

type InitializeRequest struct {
	Caller string `json:"caller"`
	FeeBP  uint16 `json:"fee_bp"`
	Fund   string `json:"fund"`
}

type RescueRequest struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
	To     string `json:"to"`
}

// RoleRequest names a role either by its well-known name
// (e.g. "REWARDER_ROLE") or by its 0x-prefixed 32-byte id.
type RoleRequest struct {
	Caller  string `json:"caller"`
	Role    string `json:"role"`
	Account string `json:"account"`
}

// OperationResponse reports the amounts an operation moved. Fields an
// operation does not produce are omitted.
type OperationResponse struct {
	Assets *string `json:"assets,omitempty"`
	Shares *string `json:"shares,omitempty"`
	Fee    *string `json:"fee,omitempty"`
	// VaultSeq is the vault's event sequence number read once the operation
	// committed. Concurrent operations may already have moved it past the
	// operation's own events, so it is a lower bound for later reads only.
	VaultSeq uint64 `json:"vault_seq"`
}

type Status struct {
	Address              string `json:"address"`
	Silo                 string `json:"silo"`
	Asset                string `json:"asset"`
	AssetSymbol          string `json:"asset_symbol"`
	ShareSymbol          string `json:"share_symbol"`
	Decimals             uint8  `json:"decimals"`
	TotalAssets          string `json:"total_assets"`
	TotalAssetsFormatted string `json:"total_assets_formatted"`
	TotalShares          string `json:"total_shares"`
	Escrowed             string `json:"escrowed"`
	PendingCooldowns     string `json:"pending_cooldowns"`
	Unvested             string `json:"unvested"`
	// ExchangeRate is assets per share.
	ExchangeRate     string `json:"exchange_rate"`
	FeeBP            uint16 `json:"fee_bp"`
	CooldownDuration uint64 `json:"cooldown_duration"`
	CooldownMode     string `json:"cooldown_mode"`
	VestingPeriod    uint64 `json:"vesting_period"`
	InsuranceFund    string `json:"insurance_fund"`
	Initialized      bool   `json:"initialized"`
	Seq              uint64 `json:"seq"`
	Time             uint64 `json:"time"`
}

type Cooldown struct {
	UnlockTimestamp  uint64 `json:"unlock_timestamp"`
	UnderlyingAmount string `json:"underlying_amount"`
	Claimable        bool   `json:"claimable"`
}

type Account struct {
	Address      string    `json:"address"`
	Shares       string    `json:"shares"`
	SharesValue  string    `json:"shares_value"`
	AssetBalance string    `json:"asset_balance"`
	Cooldown     *Cooldown `json:"cooldown,omitempty"`
	MaxWithdraw  string    `json:"max_withdraw"`
	MaxRedeem    string    `json:"max_redeem"`
	Roles        []string  `json:"roles"`
}

type Conversion struct {
	Assets string  `json:"assets"`
	Shares string  `json:"shares"`
	Fee    *string `json:"fee,omitempty"`
}
