package v1

import (
	"github.com/go-chi/chi/v5"

	"github.com/oasisprotocol/vault/log"
	storage "github.com/oasisprotocol/vault/storage/client"
	"github.com/oasisprotocol/vault/vault"
)

const (
	moduleName = "api_v1"
)

// Handler is the vault V1 API handler.
type Handler struct {
	vault   *vault.Vault
	history *storage.StorageClient
	logger  *log.Logger
}

// NewHandler creates a new V1 API handler. history may be nil.
func NewHandler(v *vault.Vault, history *storage.StorageClient, l *log.Logger) *Handler {
	return &Handler{
		vault:   v,
		history: history,
		logger:  l.WithModule(moduleName),
	}
}

// Name implements the APIHandler interface.
func (h *Handler) Name() string {
	return moduleName
}

// RegisterRoutes implements the APIHandler interface.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", h.handle(h.GetStatus))

		// Staking.
		r.Post("/deposit", h.handle(h.Deposit))
		r.Post("/mint", h.handle(h.Mint))
		r.Post("/withdraw", h.handle(h.Withdraw))
		r.Post("/redeem", h.handle(h.Redeem))
		r.Route("/cooldown", func(r chi.Router) {
			r.Post("/assets", h.handle(h.CooldownAssets))
			r.Post("/shares", h.handle(h.CooldownShares))
		})
		r.Post("/unstake", h.handle(h.Unstake))
		r.Post("/rewards", h.handle(h.TransferInRewards))

		// Ledgers.
		r.Route("/shares", func(r chi.Router) {
			r.Post("/transfer", h.handle(h.TransferShares))
			r.Post("/approve", h.handle(h.ApproveShares))
		})
		r.Route("/asset", func(r chi.Router) {
			r.Post("/approve", h.handle(h.ApproveAsset))
			r.Post("/mint", h.handle(h.MintAsset))
		})

		// Admin.
		r.Route("/admin", func(r chi.Router) {
			r.Post("/fee", h.handle(h.SetFeeRate))
			r.Post("/cooldown", h.handle(h.SetCooldownDuration))
			r.Post("/insurance-fund", h.handle(h.SetInsuranceFund))
			r.Post("/initialize", h.handle(h.InitializeV2))
			r.Post("/rescue", h.handle(h.RescueTokens))
			r.Post("/roles/grant", h.handle(h.GrantRole))
			r.Post("/roles/revoke", h.handle(h.RevokeRole))
		})

		// Queries.
		r.Get("/accounts/{address}", h.handle(h.GetAccount))
		r.Get("/convert/to-shares", h.handle(h.ConvertToShares))
		r.Get("/convert/to-assets", h.handle(h.ConvertToAssets))
		r.Get("/preview/{op}", h.handle(h.Preview))

		// History.
		r.Get("/events", h.handle(h.ListEvents))
		r.Get("/events/{seq}", h.handle(h.GetEvent))
		r.Get("/cooldowns/{address}", h.handle(h.GetRecordedCooldown))
	})
}
