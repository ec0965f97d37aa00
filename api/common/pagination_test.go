package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	for _, tc := range []struct {
		name  string
		query string
		want  Pagination
		err   bool
	}{
		{name: "defaults", query: "", want: Pagination{Limit: DefaultLimit, Offset: DefaultOffset}},
		{name: "explicit", query: "?limit=10&offset=20", want: Pagination{Limit: 10, Offset: 20}},
		{name: "clamped", query: "?limit=100000000000&offset=20", want: Pagination{Limit: MaximumLimit, Offset: 20}},
		{name: "other params ignored", query: "?account=0x01&name=Deposit", want: Pagination{Limit: DefaultLimit}},
		{name: "bad limit", query: "?limit=nonsense", err: true},
		{name: "negative offset", query: "?offset=-1", err: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPagination(httptest.NewRequest("GET", "/v1/events"+tc.query, nil))
			if tc.err {
				require.ErrorIs(t, err, ErrBadRequest)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, p)
		})
	}
}
