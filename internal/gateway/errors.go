package gateway

import "fmt"

// Code is the gateway's error taxonomy (spec §7), surfaced verbatim in
// error.code on the wire.
type Code string

const (
	CodeInvalidPayload       Code = "INVALID_PAYLOAD"
	CodeAuthenticationFailed Code = "AUTHENTICATION_FAILED"
	CodeTokenExpired         Code = "TOKEN_EXPIRED"
	CodeInvalidCollection    Code = "INVALID_COLLECTION"
	CodeForbidden            Code = "FORBIDDEN"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is a taxonomy-coded gateway error. It wraps an underlying cause the
// way internal/shared/errors.AppError does, but carries the wire-facing
// Code instead of an HTTP status, plus the inbound message type (Origin)
// the error frame should echo as its "type" field.
type Error struct {
	Code    Code
	Message string
	Origin  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a tagged gateway error.
func NewError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func InvalidPayload(message string, err error) *Error {
	return NewError(CodeInvalidPayload, message, err)
}

func AuthenticationFailed(message string, err error) *Error {
	return NewError(CodeAuthenticationFailed, message, err)
}

func TokenExpired() *Error {
	return NewError(CodeTokenExpired, "access token has expired", nil)
}

func InvalidCollection(collection string) *Error {
	return NewError(CodeInvalidCollection, fmt.Sprintf("collection %q is not accessible", collection), nil)
}

func Forbidden(message string) *Error {
	return NewError(CodeForbidden, message, nil)
}

func Internal(err error) *Error {
	return NewError(CodeInternal, "internal server error", err)
}

// WithOrigin returns a copy of e tagged with the inbound message type that
// produced it, so ToFrame can echo {type: "<original>"} per spec §6.
func (e *Error) WithOrigin(origin string) *Error {
	clone := *e
	clone.Origin = origin
	return &clone
}

// ToFrame renders the error as the wire error envelope:
// { type, status: "error", error: {code, message}, uid? }.
func (e *Error) ToFrame(uid string) OutboundMessage {
	origin := e.Origin
	if origin == "" {
		origin = TypeError
	}
	return OutboundMessage{
		Type:   origin,
		UID:    uid,
		Status: "error",
		Error: &ErrorBody{
			Code:    string(e.Code),
			Message: e.Message,
		},
	}
}
