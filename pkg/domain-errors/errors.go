// Package domainerrors defines coded domain errors shared across services,
// handlers, and stores. Services create them, handlers translate them into
// HTTP responses via ToHTTPStatus.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies a class of domain failure. Codes are stable strings that
// double as wire-level error identifiers in JSON envelopes.
type Code string

const (
	// Generic codes.
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal_error"
	CodeTimeout      Code = "timeout"

	// Issuance codes.
	CodeSaleInactive        Code = "sale_inactive"
	CodeSupplyExceeded      Code = "supply_exceeded"
	CodeInvalidQuantity     Code = "invalid_quantity"
	CodeInsufficientPayment Code = "insufficient_payment"
	CodeBootstrapClosed     Code = "bootstrap_closed"
	CodeUnknownUnit         Code = "unknown_unit"

	// Fund ledger codes.
	CodeNothingToSettle   Code = "nothing_to_settle"
	CodeNothingToWithdraw Code = "nothing_to_withdraw"
	CodeTransferFailed    Code = "transfer_failed"
)

// Error is a coded domain error. It optionally wraps a cause so callers can
// unwrap to infrastructure errors while services match on the code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a human-readable message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in the domain layer.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to an HTTP status. Unknown codes map
// to 500 so new codes fail safe rather than leaking as 200s.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidQuantity:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound, CodeUnknownUnit:
		return http.StatusNotFound
	case CodeInsufficientPayment:
		return http.StatusPaymentRequired
	case CodeSaleInactive, CodeSupplyExceeded, CodeBootstrapClosed,
		CodeNothingToSettle, CodeNothingToWithdraw:
		return http.StatusConflict
	case CodeTransferFailed:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
