package linkhub

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrCodeUnknown is the code carried by every failure that did not come with
// a server-provided code: network errors, undecodable bodies, bad input.
const ErrCodeUnknown int64 = -99999999

// Error is a failure reported by, or while talking to, the Linkhub authority.
type Error struct {
	// Code is the authority's numeric error code, or ErrCodeUnknown.
	Code int64 `json:"code"`

	// Message is a human-readable description of the error
	Message string `json:"message"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("linkhub: [%d] %s", e.Code, e.Message)
}

// Unwrap returns the transport error behind a sentinel-coded Error, if any.
func (e *Error) Unwrap() error { return e.cause }

// NewError creates an Error with the given code and message.
func NewError(code int64, message string) *Error {
	return &Error{Code: code, Message: message}
}

// wrapError turns any failure into an Error with ErrCodeUnknown, keeping
// the original for errors.Is/As. An *Error passes through untouched.
func wrapError(err error) *Error {
	var lhErr *Error
	if errors.As(err, &lhErr) {
		return lhErr
	}
	return &Error{Code: ErrCodeUnknown, Message: err.Error(), cause: err}
}

// errorResponse is the body the authority sends with a failed request.
type errorResponse struct {
	Code    *int64 `json:"code"`
	Message string `json:"message"`
}

// parseErrorResponse decodes a {code, message} error body. A message without
// a code keeps the message under ErrCodeUnknown. Bodies that are empty or not
// of that shape fall back to ErrCodeUnknown with the status text.
func parseErrorResponse(resp *http.Response, body []byte) *Error {
	if len(body) > 0 {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			switch {
			case errResp.Code != nil:
				return &Error{Code: *errResp.Code, Message: errResp.Message}
			case errResp.Message != "":
				return &Error{Code: ErrCodeUnknown, Message: errResp.Message}
			}
		}
	}

	return &Error{
		Code:    ErrCodeUnknown,
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
