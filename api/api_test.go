package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/vault/log"
	"github.com/oasisprotocol/vault/metrics"
	"github.com/oasisprotocol/vault/vault"
	"github.com/oasisprotocol/vault/vault/journal"
	"github.com/oasisprotocol/vault/vault/token"
)

func TestNormalizeEndpoint(t *testing.T) {
	require.Equal(t, "/v1/accounts/*", normalizeEndpoint("/v1/accounts/0x00000000000000000000000000000000000000c1"))
	require.Equal(t, "/v1/events/*", normalizeEndpoint("/v1/events/42"))
	require.Equal(t, "/v1/preview/redeem", normalizeEndpoint("/v1/preview/redeem"))
}

func TestBinQueryLatency(t *testing.T) {
	require.Equal(t, "<100ms", binQueryLatency(0))
	require.Equal(t, ">1000ms", binQueryLatency(1<<40))
}

func TestMetricsMiddlewareRecordsStatus(t *testing.T) {
	m := metrics.NewDefaultRequestMetrics("api_test")
	h := MetricsMiddleware(m, log.NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing") {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/missing", nil))

	require.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter("/v1/status", "success", "")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter("/v1/missing", "failure_4xx", "Not Found")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.InFlight()))
}

func TestRouter(t *testing.T) {
	j := journal.New()
	asset := token.New(j, token.Params{
		Address:  ethCommon.HexToAddress("0xa3"),
		Symbol:   "USDe",
		Decimals: 18,
		Minter:   ethCommon.HexToAddress("0xb2"),
	})
	v, err := vault.New(vault.Config{
		Address:     ethCommon.HexToAddress("0xa1"),
		SiloAddress: ethCommon.HexToAddress("0xa2"),
		Admin:       ethCommon.HexToAddress("0xb1"),
	}, vault.Deps{Journal: j, Asset: asset})
	require.NoError(t, err)
	router := NewVaultAPI(v, nil, Options{CORSOrigins: []string{"https://app.example"}}, log.NewNopLogger()).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"share_symbol":"sUSDe"`)

	// CORS preflight for a state-changing request.
	req := httptest.NewRequest(http.MethodOptions, "/v1/deposit", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/status", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
