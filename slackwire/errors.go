package slackwire

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/slackwire-go/slackwire/api"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	// API Errors (from Web API "error" fields)
	ErrorUnknown ErrorCode = iota
	ErrorNotAuthed
	ErrorInvalidAuth
	ErrorAccountInactive
	ErrorChannelNotFound
	ErrorNotInChannel
	ErrorUserNotFound
	ErrorMsgTooLong
	ErrorRateLimited
	ErrorInternalServer

	// Client-side Errors
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorSerialization
	ErrorUnroutable
	ErrorOpenChannel
	ErrorFetch
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorNotAuthed:
		return "not_authed"
	case ErrorInvalidAuth:
		return "invalid_auth"
	case ErrorAccountInactive:
		return "account_inactive"
	case ErrorChannelNotFound:
		return "channel_not_found"
	case ErrorNotInChannel:
		return "not_in_channel"
	case ErrorUserNotFound:
		return "user_not_found"
	case ErrorMsgTooLong:
		return "msg_too_long"
	case ErrorRateLimited:
		return "ratelimited"
	case ErrorInternalServer:
		return "internal_error"
	case ErrorConnection:
		return "connection_error"
	case ErrorDisconnected:
		return "disconnected"
	case ErrorTimeout:
		return "timeout"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorUnroutable:
		return "unroutable"
	case ErrorOpenChannel:
		return "open_channel"
	case ErrorFetch:
		return "fetch_error"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ParseErrorCode converts a Web API error string to ErrorCode.
func ParseErrorCode(code string) ErrorCode {
	switch code {
	case "not_authed":
		return ErrorNotAuthed
	case "invalid_auth", "token_revoked", "token_expired":
		return ErrorInvalidAuth
	case "account_inactive":
		return ErrorAccountInactive
	case "channel_not_found":
		return ErrorChannelNotFound
	case "not_in_channel":
		return ErrorNotInChannel
	case "user_not_found":
		return ErrorUserNotFound
	case "msg_too_long":
		return ErrorMsgTooLong
	case "ratelimited", "rate_limited":
		return ErrorRateLimited
	case "internal_error", "fatal_error":
		return ErrorInternalServer
	default:
		return ErrorUnknown
	}
}

// SlackError is a structured error with code and context.
type SlackError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *SlackError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *SlackError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface for error comparison.
func (e *SlackError) Is(target error) bool {
	t, ok := target.(*SlackError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new SlackError with the given code and message.
func NewError(code ErrorCode, message string) *SlackError {
	return &SlackError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a SlackError.
func WrapError(code ErrorCode, message string, err error) *SlackError {
	return &SlackError{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// FromAPIError converts a Web API error to SlackError.
func FromAPIError(e *api.Error) *SlackError {
	if e == nil {
		return nil
	}
	return &SlackError{
		Code:    ParseErrorCode(e.Code),
		Message: e.Code,
		Wrapped: e,
	}
}

// FromProtocolError converts an RTM error frame to SlackError.
func FromProtocolError(e *Error) *SlackError {
	if e == nil {
		return NewError(ErrorUnknown, "error frame without details")
	}
	return &SlackError{
		Code:    ErrorUnknown,
		Message: e.Msg,
		Wrapped: e,
	}
}

// fromCallError classifies an error returned by an APICaller.
func fromCallError(err error) *SlackError {
	if err == nil {
		return nil
	}
	var se *SlackError
	if errors.As(err, &se) {
		return se
	}
	var ae *api.Error
	if errors.As(err, &ae) {
		return FromAPIError(ae)
	}
	return WrapError(ErrorConnection, err.Error(), err)
}

// IsAPIError checks if an error was reported by the Web API.
func IsAPIError(err error) bool {
	if err == nil {
		return false
	}
	var se *SlackError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code >= ErrorNotAuthed && se.Code <= ErrorInternalServer
}

// IsConnectionError checks if an error is a connection-related error.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var se *SlackError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == ErrorConnection || se.Code == ErrorDisconnected || se.Code == ErrorTimeout
}
