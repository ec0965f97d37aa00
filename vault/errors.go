package vault

import (
	"github.com/oasisprotocol/vault/common"
	"github.com/oasisprotocol/vault/vault/fee"
)

var (
	// ErrInvalidFee is returned for fee rates above 100%.
	ErrInvalidFee = fee.ErrInvalidFee
	// ErrFeeNotChanged is returned when setting the fee rate to its current value.
	ErrFeeNotChanged = common.NewError(common.KindValidation, "FeeNotChanged", "fee rate not changed")
	// ErrInvalidCooldown is returned for cooldown durations above MaxCooldownDuration.
	ErrInvalidCooldown = common.NewError(common.KindValidation, "InvalidCooldown", "invalid cooldown duration")
	// ErrInsuranceFundNotChanged is returned when setting the insurance fund to its current value.
	ErrInsuranceFundNotChanged = common.NewError(common.KindValidation, "InsuranceFundNotChanged", "insurance fund not changed")
	// ErrInvalidToken is returned when trying to rescue the vault's own backing asset.
	ErrInvalidToken = common.NewError(common.KindValidation, "InvalidToken", "token cannot be rescued")
	// ErrInvalidAmount is returned for amounts that are never acceptable (e.g. zero rewards).
	ErrInvalidAmount = common.NewError(common.KindValidation, "InvalidAmount", "invalid amount")
	// ErrZeroAmount is returned for zero-amount requests when they are configured to be rejected.
	ErrZeroAmount = common.NewError(common.KindValidation, "ZeroAmount", "zero amount")
	// ErrZeroShares is returned when a non-zero deposit would mint no shares.
	ErrZeroShares = common.NewError(common.KindValidation, "ZeroShares", "deposit too small to mint shares")

	// ErrInsuranceFundNotSet is returned for instant exits while no insurance fund is configured.
	ErrInsuranceFundNotSet = common.NewError(common.KindState, "InsuranceFundNotSet", "insurance fund not set")
	// ErrCooldownNotEnded is returned when claiming before the unlock time.
	ErrCooldownNotEnded = common.NewError(common.KindState, "CooldownNotEnded", "cooldown not ended")
	// ErrAlreadyInitialized is returned by a repeated InitializeV2.
	ErrAlreadyInitialized = common.NewError(common.KindState, "AlreadyInitialized", "already initialized")
	// ErrStillVesting is returned when rewards arrive before the previous batch vested.
	ErrStillVesting = common.NewError(common.KindState, "StillVesting", "rewards still vesting")
	// ErrMinSharesViolation is returned when an operation leaves a non-zero share supply below the minimum.
	ErrMinSharesViolation = common.NewError(common.KindState, "MinSharesViolation", "share supply below minimum")

	// ErrInsufficientShares is returned when an owner does not hold the shares an exit needs.
	ErrInsufficientShares = common.NewError(common.KindBalance, "InsufficientShares", "insufficient shares")
	// ErrOverflow is returned when an amount computation exceeds 2^256-1.
	ErrOverflow = common.NewError(common.KindBalance, "Overflow", "amount overflows")
)
