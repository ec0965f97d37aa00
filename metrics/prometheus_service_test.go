package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/vault/log"
)

func TestPullServiceHandler(t *testing.T) {
	vm := NewDefaultVaultMetrics("pull_test")
	vm.Operations("deposit", OperationStatusSuccess).Inc()

	s, err := NewPullService("127.0.0.1:0", log.NewNopLogger())
	require.NoError(t, err)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `pull_test_operations{operation="deposit",status="success"} 1`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
