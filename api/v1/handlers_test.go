package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	apiCommon "github.com/oasisprotocol/vault/api/common"
	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/vault"
	"github.com/oasisprotocol/vault/vault/journal"
	"github.com/oasisprotocol/vault/vault/token"
)

const week = 7 * 24 * 60 * 60

var (
	vaultAddr = ethCommon.HexToAddress("0x00000000000000000000000000000000000000a1")
	siloAddr  = ethCommon.HexToAddress("0x00000000000000000000000000000000000000a2")
	assetAddr = ethCommon.HexToAddress("0x00000000000000000000000000000000000000a3")
	admin     = ethCommon.HexToAddress("0x00000000000000000000000000000000000000b1")
	minter    = ethCommon.HexToAddress("0x00000000000000000000000000000000000000b2")
	insurance = ethCommon.HexToAddress("0x00000000000000000000000000000000000000b3")
	alice     = ethCommon.HexToAddress("0x00000000000000000000000000000000000000c1")
	bob       = ethCommon.HexToAddress("0x00000000000000000000000000000000000000c2")
)

type testClock struct {
	now uint64
}

func (c *testClock) Now() uint64 { return c.now }

type server struct {
	t      *testing.T
	router chi.Router
	clock  *testClock
}

func newServer(t *testing.T) *server {
	j := journal.New()
	asset := token.New(j, token.Params{Address: assetAddr, Symbol: "USDe", Decimals: 6, Minter: minter})
	dir, err := token.NewDirectory(asset)
	require.NoError(t, err)
	clock := &testClock{now: 1_700_000_000}
	v, err := vault.New(vault.Config{
		Address:          vaultAddr,
		SiloAddress:      siloAddr,
		Admin:            admin,
		CooldownDuration: week,
	}, vault.Deps{Journal: j, Asset: asset, Tokens: dir, Clock: clock})
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(v, nil, log.NewNopLogger()).RegisterRoutes(r)
	return &server{t: t, router: r, clock: clock}
}

// do sends a request and decodes the JSON response into out, returning the status.
func (s *server) do(method, path string, body interface{}, out interface{}) int {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (s *server) post(path string, body interface{}) (*OperationResponse, *apiCommon.ErrorResponse, int) {
	var raw json.RawMessage
	code := s.do(http.MethodPost, path, body, &raw)
	if code != http.StatusOK {
		var e apiCommon.ErrorResponse
		require.NoError(s.t, json.Unmarshal(raw, &e))
		return nil, &e, code
	}
	var resp OperationResponse
	require.NoError(s.t, json.Unmarshal(raw, &resp))
	return &resp, nil, code
}

func (s *server) mustPost(path string, body interface{}) *OperationResponse {
	resp, e, code := s.post(path, body)
	require.Equal(s.t, http.StatusOK, code, "%s: %+v", path, e)
	return resp
}

func (s *server) fund(account ethCommon.Address, amount string) {
	s.mustPost("/v1/asset/mint", TransferRequest{Caller: minter.Hex(), To: account.Hex(), Amount: amount})
	s.mustPost("/v1/asset/approve", ApproveRequest{Caller: account.Hex(), Spender: vaultAddr.Hex(), Amount: amount})
}

func TestDepositAndRedeem(t *testing.T) {
	s := newServer(t)
	s.fund(alice, "1000")

	resp := s.mustPost("/v1/deposit", DepositRequest{Caller: alice.Hex(), Assets: "1000"})
	require.Equal(t, "1000", *resp.Shares)
	require.Equal(t, uint64(1), resp.VaultSeq, "the deposit is the first event")

	// Instant exits need an insurance fund.
	_, e, code := s.post("/v1/redeem", RedeemRequest{Caller: alice.Hex(), Shares: "200"})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "InsuranceFundNotSet", e.Code)

	s.mustPost("/v1/admin/initialize", InitializeRequest{Caller: admin.Hex(), FeeBP: 50, Fund: insurance.Hex()})
	resp = s.mustPost("/v1/redeem", RedeemRequest{Caller: alice.Hex(), Shares: "200"})
	require.Equal(t, "199", *resp.Assets)

	var status Status
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/status", nil, &status))
	require.Equal(t, "800", status.TotalAssets)
	require.Equal(t, "800", status.TotalShares)
	require.Equal(t, "0.000800", status.TotalAssetsFormatted)
	require.NotEmpty(t, status.ExchangeRate)
	require.Equal(t, uint16(50), status.FeeBP)
	require.True(t, status.Initialized)
	require.Equal(t, "overwrite", status.CooldownMode)
	require.Equal(t, resp.VaultSeq, status.Seq)

	var account Account
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/accounts/"+insurance.Hex(), nil, &account))
	require.Equal(t, "1", account.AssetBalance)
}

func TestCooldownFlow(t *testing.T) {
	s := newServer(t)
	s.fund(alice, "1000")
	s.mustPost("/v1/deposit", DepositRequest{Caller: alice.Hex(), Assets: "1000"})

	resp := s.mustPost("/v1/cooldown/shares", CooldownSharesRequest{Caller: alice.Hex(), Shares: "400"})
	require.Equal(t, "400", *resp.Assets)

	var account Account
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/accounts/"+alice.Hex(), nil, &account))
	require.Equal(t, "600", account.Shares)
	require.NotNil(t, account.Cooldown)
	require.Equal(t, "400", account.Cooldown.UnderlyingAmount)
	require.False(t, account.Cooldown.Claimable)

	_, e, code := s.post("/v1/unstake", UnstakeRequest{Caller: alice.Hex(), Receiver: bob.Hex()})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "CooldownNotEnded", e.Code)

	s.clock.now += week
	resp = s.mustPost("/v1/unstake", UnstakeRequest{Caller: alice.Hex(), Receiver: bob.Hex()})
	require.Equal(t, "400", *resp.Assets)

	account = Account{}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/accounts/"+bob.Hex(), nil, &account))
	require.Equal(t, "400", account.AssetBalance)
	require.Nil(t, account.Cooldown)
}

func TestAdminAuthorization(t *testing.T) {
	s := newServer(t)

	_, e, code := s.post("/v1/admin/fee", FeeRequest{Caller: alice.Hex(), FeeBP: 10})
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "MissingRole", e.Code)

	_, e, code = s.post("/v1/admin/fee", FeeRequest{Caller: admin.Hex(), FeeBP: 10001})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "InvalidFee", e.Code)

	s.mustPost("/v1/admin/roles/grant", RoleRequest{Caller: admin.Hex(), Role: "REWARDER_ROLE", Account: bob.Hex()})
	var account Account
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/accounts/"+bob.Hex(), nil, &account))
	require.Equal(t, []string{"REWARDER_ROLE"}, account.Roles)

	s.mustPost("/v1/admin/roles/revoke", RoleRequest{
		Caller:  admin.Hex(),
		Role:    "0xbeec13769b5f410b0584f69811bfd923818456d5edcf426b0e31cf90eed7a3f6",
		Account: bob.Hex(),
	})
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/accounts/"+bob.Hex(), nil, &account))
	require.Empty(t, account.Roles)
}

func TestBadRequests(t *testing.T) {
	s := newServer(t)

	for _, tc := range []struct {
		name string
		path string
		body interface{}
	}{
		{"bad caller", "/v1/deposit", DepositRequest{Caller: "nope", Assets: "1"}},
		{"bad amount", "/v1/deposit", DepositRequest{Caller: alice.Hex(), Assets: "-1"}},
		{"unknown field", "/v1/deposit", map[string]string{"caller": alice.Hex(), "asets": "1"}},
		{"bad role", "/v1/admin/roles/grant", RoleRequest{Caller: admin.Hex(), Role: "0x12", Account: bob.Hex()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, e, code := s.post(tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, code)
			require.NotEmpty(t, e.Msg)
		})
	}

	var e apiCommon.ErrorResponse
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/preview/borrow?amount=1", nil, &e))
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/accounts/0x1234", nil, &e))
	require.Equal(t, "InvalidAddress", e.Code)
}

func TestPreviewAndConvert(t *testing.T) {
	s := newServer(t)
	s.fund(alice, "1000")
	s.mustPost("/v1/deposit", DepositRequest{Caller: alice.Hex(), Assets: "1000"})
	s.mustPost("/v1/admin/initialize", InitializeRequest{Caller: admin.Hex(), FeeBP: 50, Fund: insurance.Hex()})

	var c Conversion
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/preview/redeem?amount=200", nil, &c))
	require.Equal(t, "199", c.Assets)
	require.Equal(t, "1", *c.Fee)

	c = Conversion{}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/convert/to-shares?assets=10", nil, &c))
	require.Equal(t, "10", c.Shares)
	require.Nil(t, c.Fee)
}

func TestHistoryUnavailable(t *testing.T) {
	s := newServer(t)
	var e apiCommon.ErrorResponse
	require.Equal(t, http.StatusNotImplemented, s.do(http.MethodGet, "/v1/events", nil, &e))
	require.Equal(t, http.StatusNotImplemented, s.do(http.MethodGet, "/v1/events/1", nil, &e))
}
