package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	apiCommon "github.com/oasisprotocol/vault/api/common"
	"github.com/oasisprotocol/vault/common"
	storage "github.com/oasisprotocol/vault/storage/client"
	"github.com/oasisprotocol/vault/vault/access"
	"github.com/oasisprotocol/vault/vault/fee"
)

// maxBodyBytes bounds request bodies; every request is a handful of fields.
const maxBodyBytes = 1 << 16

type handlerFunc func(r *http.Request) (interface{}, error)

// handle adapts fn to an http.HandlerFunc that renders its result as JSON.
func (h *Handler) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp, err := fn(r)
		if err != nil {
			h.logAndReply(ctx, w, r, err)
			return
		}

		body, err := json.Marshal(resp)
		if err != nil {
			h.logAndReply(ctx, w, r, fmt.Errorf("marshal response: %w", err))
			return
		}
		w.Header().Set("content-type", "application/json")
		if _, err := w.Write(body); err != nil {
			h.logger.Error("failed to write response",
				"request_id", common.RequestID(ctx),
				"error", err,
			)
		}
	}
}

func (h *Handler) logAndReply(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	logFn := h.logger.Info
	if apiCommon.HttpCodeForError(err) >= http.StatusInternalServerError {
		logFn = h.logger.Error
	}
	logFn("request failed",
		"request_id", common.RequestID(ctx),
		"endpoint", r.URL.Path,
		"code", common.CodeOf(err),
		"error", err,
	)
	apiCommon.ReplyWithError(w, err)
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: body: %v", apiCommon.ErrBadRequest, err)
	}
	return nil
}

func parseAddress(field, s string) (ethCommon.Address, error) {
	a, err := common.ParseAddress(s)
	if err != nil {
		return a, fmt.Errorf("%s: %w", field, err)
	}
	return a, nil
}

// parseOptionalAddress returns def if s is empty.
func parseOptionalAddress(field, s string, def ethCommon.Address) (ethCommon.Address, error) {
	if s == "" {
		return def, nil
	}
	return parseAddress(field, s)
}

func parseAmount(field, s string) (*uint256.Int, error) {
	a, err := common.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return a, nil
}

func parseRole(s string) (access.Role, error) {
	switch {
	case s == "":
		return access.Role{}, fmt.Errorf("%w: role: empty", apiCommon.ErrBadRequest)
	case s == access.RoleName(access.DefaultAdminRole):
		return access.DefaultAdminRole, nil
	case strings.HasPrefix(s, "0x"):
		b, err := hexutil.Decode(s)
		if err != nil || len(b) != ethCommon.HashLength {
			return access.Role{}, fmt.Errorf("%w: role: '%s' is not a 32-byte id", apiCommon.ErrBadRequest, s)
		}
		return ethCommon.BytesToHash(b), nil
	default:
		return access.RoleFromName(s), nil
	}
}

func str(x *uint256.Int) *string {
	s := x.Dec()
	return &s
}

// done builds the response of a completed operation.
func (h *Handler) done(assets, shares, charged *uint256.Int) *OperationResponse {
	resp := &OperationResponse{VaultSeq: h.vault.Status().Seq}
	if assets != nil {
		resp.Assets = str(assets)
	}
	if shares != nil {
		resp.Shares = str(shares)
	}
	if charged != nil {
		resp.Fee = str(charged)
	}
	return resp
}

// GetStatus returns the vault's configuration and totals.
func (h *Handler) GetStatus(r *http.Request) (interface{}, error) {
	s := h.vault.Status()
	rate, err := common.Ratio(s.TotalAssets, s.TotalShares)
	if err != nil {
		return nil, err
	}
	mode := s.CooldownMode
	return &Status{
		Address:              s.Address.Hex(),
		Silo:                 s.Silo.Hex(),
		Asset:                s.Asset.Hex(),
		AssetSymbol:          s.AssetSymbol,
		ShareSymbol:          s.ShareSymbol,
		Decimals:             s.Decimals,
		TotalAssets:          s.TotalAssets.Dec(),
		TotalAssetsFormatted: common.FormatUnits(s.TotalAssets, s.Decimals),
		TotalShares:          s.TotalShares.Dec(),
		Escrowed:             s.Escrowed.Dec(),
		PendingCooldowns:     s.PendingCooldowns.Dec(),
		Unvested:             s.Unvested.Dec(),
		ExchangeRate:         rate,
		FeeBP:                uint16(s.FeeRate),
		CooldownDuration:     s.CooldownDuration,
		CooldownMode:         mode.String(),
		VestingPeriod:        s.VestingPeriod,
		InsuranceFund:        s.InsuranceFund.Hex(),
		Initialized:          s.InitializedV2,
		Seq:                  s.Seq,
		Time:                 s.Time,
	}, nil
}

func (h *Handler) Deposit(r *http.Request) (interface{}, error) {
	var req DepositRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	receiver, err := parseOptionalAddress("receiver", req.Receiver, caller)
	if err != nil {
		return nil, err
	}
	assets, err := parseAmount("assets", req.Assets)
	if err != nil {
		return nil, err
	}
	shares, err := h.vault.Deposit(caller, assets, receiver)
	if err != nil {
		return nil, err
	}
	return h.done(assets, shares, nil), nil
}

func (h *Handler) Mint(r *http.Request) (interface{}, error) {
	var req MintRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	receiver, err := parseOptionalAddress("receiver", req.Receiver, caller)
	if err != nil {
		return nil, err
	}
	shares, err := parseAmount("shares", req.Shares)
	if err != nil {
		return nil, err
	}
	assets, err := h.vault.Mint(caller, shares, receiver)
	if err != nil {
		return nil, err
	}
	return h.done(assets, shares, nil), nil
}

func (h *Handler) Withdraw(r *http.Request) (interface{}, error) {
	var req WithdrawRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	receiver, err := parseOptionalAddress("receiver", req.Receiver, caller)
	if err != nil {
		return nil, err
	}
	owner, err := parseOptionalAddress("owner", req.Owner, caller)
	if err != nil {
		return nil, err
	}
	assets, err := parseAmount("assets", req.Assets)
	if err != nil {
		return nil, err
	}
	shares, err := h.vault.Withdraw(caller, assets, receiver, owner)
	if err != nil {
		return nil, err
	}
	return h.done(assets, shares, nil), nil
}

func (h *Handler) Redeem(r *http.Request) (interface{}, error) {
	var req RedeemRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	receiver, err := parseOptionalAddress("receiver", req.Receiver, caller)
	if err != nil {
		return nil, err
	}
	owner, err := parseOptionalAddress("owner", req.Owner, caller)
	if err != nil {
		return nil, err
	}
	shares, err := parseAmount("shares", req.Shares)
	if err != nil {
		return nil, err
	}
	net, err := h.vault.Redeem(caller, shares, receiver, owner)
	if err != nil {
		return nil, err
	}
	return h.done(net, shares, nil), nil
}

func (h *Handler) CooldownAssets(r *http.Request) (interface{}, error) {
	var req CooldownAssetsRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	owner, err := parseOptionalAddress("owner", req.Owner, caller)
	if err != nil {
		return nil, err
	}
	assets, err := parseAmount("assets", req.Assets)
	if err != nil {
		return nil, err
	}
	shares, err := h.vault.CooldownAssets(caller, assets, owner)
	if err != nil {
		return nil, err
	}
	return h.done(assets, shares, nil), nil
}

func (h *Handler) CooldownShares(r *http.Request) (interface{}, error) {
	var req CooldownSharesRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	owner, err := parseOptionalAddress("owner", req.Owner, caller)
	if err != nil {
		return nil, err
	}
	shares, err := parseAmount("shares", req.Shares)
	if err != nil {
		return nil, err
	}
	assets, err := h.vault.CooldownShares(caller, shares, owner)
	if err != nil {
		return nil, err
	}
	return h.done(assets, shares, nil), nil
}

func (h *Handler) Unstake(r *http.Request) (interface{}, error) {
	var req UnstakeRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	receiver, err := parseOptionalAddress("receiver", req.Receiver, caller)
	if err != nil {
		return nil, err
	}
	assets, err := h.vault.Unstake(caller, receiver)
	if err != nil {
		return nil, err
	}
	return h.done(assets, nil, nil), nil
}

func (h *Handler) TransferInRewards(r *http.Request) (interface{}, error) {
	var req RewardsRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	if err := h.vault.TransferInRewards(caller, amount); err != nil {
		return nil, err
	}
	return h.done(amount, nil, nil), nil
}

func (h *Handler) TransferShares(r *http.Request) (interface{}, error) {
	var req TransferRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	if err := h.vault.TransferShares(caller, to, amount); err != nil {
		return nil, err
	}
	return h.done(nil, amount, nil), nil
}

func (h *Handler) ApproveShares(r *http.Request) (interface{}, error) {
	var req ApproveRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddress("spender", req.Spender)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	if err := h.vault.ApproveShares(caller, spender, amount); err != nil {
		return nil, err
	}
	return h.done(nil, amount, nil), nil
}

func (h *Handler) ApproveAsset(r *http.Request) (interface{}, error) {
	var req ApproveRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddress("spender", req.Spender)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	asset := h.vault.Asset()
	if err := h.vault.Apply("asset_approve", func() error {
		return asset.Approve(caller, spender, amount)
	}); err != nil {
		return nil, err
	}
	return h.done(amount, nil, nil), nil
}

// MintAsset mints the base asset; only the asset's minter may call it.
func (h *Handler) MintAsset(r *http.Request) (interface{}, error) {
	var req TransferRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	asset, err := h.vault.Tokens().Get(h.vault.Asset().Address())
	if err != nil {
		return nil, err
	}
	if err := h.vault.Apply("asset_mint", func() error {
		return asset.Mint(caller, to, amount)
	}); err != nil {
		return nil, err
	}
	return h.done(amount, nil, nil), nil
}

func (h *Handler) SetFeeRate(r *http.Request) (interface{}, error) {
	var req FeeRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	if err := h.vault.SetFeeRate(caller, fee.Rate(req.FeeBP)); err != nil {
		return nil, err
	}
	return h.done(nil, nil, nil), nil
}

func (h *Handler) SetCooldownDuration(r *http.Request) (interface{}, error) {
	var req CooldownDurationRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	if err := h.vault.SetCooldownDuration(caller, req.Duration); err != nil {
		return nil, err
	}
	return h.done(nil, nil, nil), nil
}

func (h *Handler) SetInsuranceFund(r *http.Request) (interface{}, error) {
	var req InsuranceFundRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	fund, err := parseAddress("fund", req.Fund)
	if err != nil {
		return nil, err
	}
	if err := h.vault.SetInsuranceFund(caller, fund); err != nil {
		return nil, err
	}
	return h.done(nil, nil, nil), nil
}

func (h *Handler) InitializeV2(r *http.Request) (interface{}, error) {
	var req InitializeRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	fund, err := parseAddress("fund", req.Fund)
	if err != nil {
		return nil, err
	}
	if err := h.vault.InitializeV2(caller, fee.Rate(req.FeeBP), fund); err != nil {
		return nil, err
	}
	return h.done(nil, nil, nil), nil
}

func (h *Handler) RescueTokens(r *http.Request) (interface{}, error) {
	var req RescueRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	token, err := parseAddress("token", req.Token)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	if err := h.vault.RescueTokens(caller, token, amount, to); err != nil {
		return nil, err
	}
	return h.done(amount, nil, nil), nil
}

func (h *Handler) parseRoleRequest(r *http.Request) (caller ethCommon.Address, role access.Role, account ethCommon.Address, err error) {
	var req RoleRequest
	if err = decodeBody(r, &req); err != nil {
		return
	}
	if caller, err = parseAddress("caller", req.Caller); err != nil {
		return
	}
	if account, err = parseAddress("account", req.Account); err != nil {
		return
	}
	role, err = parseRole(req.Role)
	return
}

func (h *Handler) GrantRole(r *http.Request) (interface{}, error) {
	caller, role, account, err := h.parseRoleRequest(r)
	if err != nil {
		return nil, err
	}
	if err := h.vault.GrantRole(caller, role, account); err != nil {
		return nil, err
	}
	return h.done(nil, nil, nil), nil
}

func (h *Handler) RevokeRole(r *http.Request) (interface{}, error) {
	caller, role, account, err := h.parseRoleRequest(r)
	if err != nil {
		return nil, err
	}
	if err := h.vault.RevokeRole(caller, role, account); err != nil {
		return nil, err
	}
	return h.done(nil, nil, nil), nil
}

// GetAccount returns an account's position in the vault.
func (h *Handler) GetAccount(r *http.Request) (interface{}, error) {
	account, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		return nil, err
	}
	shares := h.vault.SharesOf(account)
	value, err := h.vault.ConvertToAssets(shares)
	if err != nil {
		return nil, err
	}
	maxWithdraw, err := h.vault.MaxWithdraw(account)
	if err != nil {
		return nil, err
	}
	resp := &Account{
		Address:      account.Hex(),
		Shares:       shares.Dec(),
		SharesValue:  value.Dec(),
		AssetBalance: h.vault.AssetBalanceOf(account).Dec(),
		MaxWithdraw:  maxWithdraw.Dec(),
		MaxRedeem:    h.vault.MaxRedeem(account).Dec(),
		Roles:        []string{},
	}
	if rec := h.vault.CooldownOf(account); rec.Active() {
		resp.Cooldown = &Cooldown{
			UnlockTimestamp:  rec.UnlockTimestamp,
			UnderlyingAmount: rec.UnderlyingAmount.Dec(),
			Claimable:        rec.Unlocked(h.vault.Status().Time),
		}
	}
	for _, role := range []access.Role{access.DefaultAdminRole, access.RewarderRole} {
		if h.vault.HasRole(role, account) {
			resp.Roles = append(resp.Roles, access.RoleName(role))
		}
	}
	return resp, nil
}

func queryAmount(r *http.Request, key string) (*uint256.Int, error) {
	return parseAmount(key, r.URL.Query().Get(key))
}

func (h *Handler) ConvertToShares(r *http.Request) (interface{}, error) {
	assets, err := queryAmount(r, "assets")
	if err != nil {
		return nil, err
	}
	shares, err := h.vault.ConvertToShares(assets)
	if err != nil {
		return nil, err
	}
	return &Conversion{Assets: assets.Dec(), Shares: shares.Dec()}, nil
}

func (h *Handler) ConvertToAssets(r *http.Request) (interface{}, error) {
	shares, err := queryAmount(r, "shares")
	if err != nil {
		return nil, err
	}
	assets, err := h.vault.ConvertToAssets(shares)
	if err != nil {
		return nil, err
	}
	return &Conversion{Assets: assets.Dec(), Shares: shares.Dec()}, nil
}

// Preview simulates deposit, mint, withdraw or redeem of ?amount= at the
// current exchange rate.
func (h *Handler) Preview(r *http.Request) (interface{}, error) {
	amount, err := queryAmount(r, "amount")
	if err != nil {
		return nil, err
	}
	switch op := chi.URLParam(r, "op"); op {
	case "deposit":
		shares, err := h.vault.PreviewDeposit(amount)
		if err != nil {
			return nil, err
		}
		return &Conversion{Assets: amount.Dec(), Shares: shares.Dec()}, nil
	case "mint":
		assets, err := h.vault.PreviewMint(amount)
		if err != nil {
			return nil, err
		}
		return &Conversion{Assets: assets.Dec(), Shares: amount.Dec()}, nil
	case "withdraw":
		shares, err := h.vault.PreviewWithdraw(amount)
		if err != nil {
			return nil, err
		}
		return &Conversion{Assets: amount.Dec(), Shares: shares.Dec()}, nil
	case "redeem":
		net, charged, err := h.vault.PreviewRedeem(amount)
		if err != nil {
			return nil, err
		}
		return &Conversion{Assets: net.Dec(), Shares: amount.Dec(), Fee: str(charged)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation '%s'", apiCommon.ErrBadRequest, op)
	}
}

func (h *Handler) requireHistory() error {
	if h.history == nil {
		return fmt.Errorf("%w: no event store configured", apiCommon.ErrUnavailable)
	}
	return nil
}

// ListEvents lists recorded events, newest first.
func (h *Handler) ListEvents(r *http.Request) (interface{}, error) {
	if err := h.requireHistory(); err != nil {
		return nil, err
	}
	p, err := apiCommon.NewPagination(r)
	if err != nil {
		return nil, err
	}
	filter := storage.EventFilter{Limit: p.Limit, Offset: p.Offset}
	q := r.URL.Query()
	if v := q.Get("account"); v != "" {
		a, err := parseAddress("account", v)
		if err != nil {
			return nil, err
		}
		hex := a.Hex()
		filter.Account = &hex
	}
	if v := q.Get("name"); v != "" {
		filter.Name = &v
	}
	if v := q.Get("after"); v != "" {
		after, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: after: %v", apiCommon.ErrBadRequest, err)
		}
		filter.After = &after
	}
	return h.history.Events(r.Context(), filter)
}

func (h *Handler) GetEvent(r *http.Request) (interface{}, error) {
	if err := h.requireHistory(); err != nil {
		return nil, err
	}
	seq, err := strconv.ParseUint(chi.URLParam(r, "seq"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: seq: %v", apiCommon.ErrBadRequest, err)
	}
	return h.history.Event(r.Context(), seq)
}

// GetRecordedCooldown returns the cooldown of an account as recorded in
// the event store.
func (h *Handler) GetRecordedCooldown(r *http.Request) (interface{}, error) {
	if err := h.requireHistory(); err != nil {
		return nil, err
	}
	account, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		return nil, err
	}
	return h.history.Cooldown(r.Context(), account.Hex())
}
