package closedown

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/closedown/pkg/linkhub"
)

// ErrCodeUnknown is the code of every error that did not carry a code from
// the service or the authority: missing input, network failures, malformed
// responses.
const ErrCodeUnknown int64 = -99999999

// ============================================================================
// Error - the one error type returned by Checker methods
// ============================================================================

// Error is returned by every Checker operation that fails. Code is either the
// code the lookup service or the authority reported, or ErrCodeUnknown.
type Error struct {
	// Code is the service error code, or ErrCodeUnknown
	Code int64 `json:"code"`

	// Message is a human-readable description of the error
	Message string `json:"message"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("closedown: [%d] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying failure (a *linkhub.Error, a net error,
// context.Canceled, ...) to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.cause }

// NewError creates an Error with the given code and message.
func NewError(code int64, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Is matches another *Error with the same code and message, so copies of
// the predefined errors still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// clone returns a copy the caller is free to modify.
func (e *Error) clone() *Error {
	c := *e
	return &c
}

// AsError reports whether err is, or wraps, an *Error and returns it.
func AsError(err error) (*Error, bool) {
	var cdErr *Error
	if errors.As(err, &cdErr) {
		return cdErr, true
	}
	return nil, false
}

// ============================================================================
// Predefined input errors
// ============================================================================

var (
	// ErrMissingCorpNum is matched (errors.Is) by the error CheckCorpNum returns
	// when no number was given. Callers receive a copy.
	ErrMissingCorpNum = &Error{
		Code:    ErrCodeUnknown,
		Message: "no corp number to check was provided",
	}

	// ErrMissingCorpNums is matched by the error CheckCorpNums returns when
	// the list is empty. Callers receive a copy.
	ErrMissingCorpNums = &Error{
		Code:    ErrCodeUnknown,
		Message: "no list of corp numbers to check was provided",
	}
)

// ============================================================================
// Translation helpers
// ============================================================================

// wrapError turns an arbitrary failure into an Error with ErrCodeUnknown.
// An *Error anywhere in the chain is returned as is.
func wrapError(err error) *Error {
	if cdErr, ok := AsError(err); ok {
		return cdErr
	}
	return &Error{Code: ErrCodeUnknown, Message: err.Error(), cause: err}
}

// wrapAuthorityError copies an authority failure's code and message.
func wrapAuthorityError(err error) *Error {
	var lhErr *linkhub.Error
	if errors.As(err, &lhErr) {
		return &Error{Code: lhErr.Code, Message: lhErr.Message, cause: err}
	}
	return wrapError(err)
}

// errorResponse is the body the lookup service sends with a failed request.
type errorResponse struct {
	Code    *int64 `json:"code"`
	Message string `json:"message"`
}

// parseErrorResponse converts a non-2xx response body into an Error. The
// body's code and message are used verbatim when present. A body with a
// message but no code keeps the message under ErrCodeUnknown.
func parseErrorResponse(resp *http.Response, body []byte) *Error {
	if len(body) > 0 {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return &Error{
				Code:    ErrCodeUnknown,
				Message: fmt.Sprintf("HTTP %d: undecodable error body: %v", resp.StatusCode, err),
				cause:   err,
			}
		}
		switch {
		case errResp.Code != nil:
			return &Error{Code: *errResp.Code, Message: errResp.Message}
		case errResp.Message != "":
			return &Error{Code: ErrCodeUnknown, Message: errResp.Message}
		}
	}

	return &Error{
		Code:    ErrCodeUnknown,
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
