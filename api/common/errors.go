package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oasisprotocol/vault/common"
)

var (
	// ErrBadRequest is returned when the provided HTTP request
	// is malformed.
	ErrBadRequest = common.NewError(common.KindValidation, "BadRequest", "invalid request parameters")
	// ErrUnavailable is returned for endpoints whose backing service is not
	// configured, e.g. history without a database.
	ErrUnavailable = errors.New("endpoint not available")
)

// ErrorResponse is a JSON error.
type ErrorResponse struct {
	Code string `json:"code,omitempty"`
	Msg  string `json:"msg"`
}

// HttpCodeForError maps an error to the HTTP status it is reported with.
func HttpCodeForError(err error) int {
	if errors.Is(err, ErrUnavailable) {
		return http.StatusNotImplemented
	}
	switch common.KindOf(err) {
	case common.KindAuthorization:
		return http.StatusForbidden
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindState:
		return http.StatusConflict
	case common.KindBalance:
		return http.StatusUnprocessableEntity
	case common.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ReplyWithError replies to an HTTP request with an error
// as JSON.
func ReplyWithError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(HttpCodeForError(err))

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Code: common.CodeOf(err),
		Msg:  err.Error(),
	})
}
