package common

import (
	"errors"
)

// Kind classifies an error so that callers (and the API layer) can react to
// a whole family of failures without matching every sentinel.
type Kind uint8

const (
	// KindUnknown is the kind of any error that is not an *Error.
	KindUnknown Kind = iota
	// KindAuthorization: caller lacks a role, ownership or allowance.
	KindAuthorization
	// KindValidation: malformed or out-of-range input, or a no-op resubmission.
	KindValidation
	// KindState: the request is well-formed but not allowed in the current state.
	KindState
	// KindBalance: insufficient balance or arithmetic overflow.
	KindBalance
	// KindNotFound: the referenced item does not exist.
	KindNotFound
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindBalance:
		return "balance"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a classified error with a stable machine-readable code.
type Error struct {
	kind Kind
	code string
	msg  string
}

// NewError creates a new classified error.
func NewError(kind Kind, code string, msg string) *Error {
	return &Error{kind: kind, code: code, msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

// Kind returns the kind of the error.
func (e *Error) Kind() Kind {
	return e.kind
}

// Code returns the stable code of the error, e.g. "InsuranceFundNotSet".
func (e *Error) Code() string {
	return e.code
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}
