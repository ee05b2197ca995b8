package billing

import (
	"errors"
	"net/http"
)

// ErrorKind classifies billing failures by who has to act on them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindAuthenticity
	KindGateway
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthenticity:
		return "authenticity"
	case KindGateway:
		return "gateway"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// Machine-readable error codes returned to clients.
const (
	CodeInvalidPayload       = "invalid_payload"
	CodeMissingCorrelation   = "missing_correlation"
	CodeUnknownUser          = "unknown_user"
	CodeUnknownMembership    = "unknown_membership"
	CodeMembershipNotFound   = "membership_not_found"
	CodeInvalidPrice         = "invalid_price"
	CodeInvalidSignature     = "invalid_signature"
	CodeCardDeclined         = "card_declined"
	CodeRateLimited          = "rate_limited"
	CodeInvalidRequest       = "invalid_request"
	CodeAuthenticationFailed = "authentication_failed"
	CodeGatewayUnavailable   = "gateway_unavailable"
	CodePersistenceFailed    = "persistence_failed"
	CodeInternal             = "internal_error"
)

var gatewayStatus = map[string]int{
	CodeCardDeclined:         http.StatusPaymentRequired,
	CodeRateLimited:          http.StatusTooManyRequests,
	CodeInvalidRequest:       http.StatusBadRequest,
	CodeAuthenticationFailed: http.StatusBadGateway,
	CodeGatewayUnavailable:   http.StatusServiceUnavailable,
}

// Error is the error type returned by the billing service.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func newError(kind ErrorKind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status code a handler should answer with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthenticity:
		return http.StatusBadRequest
	case KindGateway:
		if status, ok := gatewayStatus[e.Code]; ok {
			return status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	if be, ok := AsError(err); ok {
		return be.Kind
	}
	return KindInternal
}

// HTTPStatus maps any error to a status code; nil maps to 200.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if be, ok := AsError(err); ok {
		return be.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Code returns the client-facing code of err.
func Code(err error) string {
	if be, ok := AsError(err); ok {
		return be.Code
	}
	return CodeInternal
}
