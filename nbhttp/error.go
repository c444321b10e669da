// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"errors"
	"fmt"

	"github.com/valyala/fasthttp"
)

// ErrProtocol matches every *ProtocolError with errors.Is.
var ErrProtocol = errors.New("http protocol error")

// ProtocolError reports malformed or oversized input. The connection should
// be closed, nothing is retried.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "http: " + e.Reason }

// Is .
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

var (
	// ErrStartLineTooLong .
	ErrStartLineTooLong = &ProtocolError{Reason: "start line too long"}

	// ErrHeadersTooLong .
	ErrHeadersTooLong = &ProtocolError{Reason: "headers too long"}

	// ErrBodyTooLong .
	ErrBodyTooLong = &ProtocolError{Reason: "body too long"}

	// ErrClosedPrematurely .
	ErrClosedPrematurely = &ProtocolError{Reason: "connection closed prematurely"}

	// ErrInvalidStartLine .
	ErrInvalidStartLine = &ProtocolError{Reason: "invalid start line"}

	// ErrInvalidHeader .
	ErrInvalidHeader = &ProtocolError{Reason: "invalid header"}

	// ErrInvalidHTTPVersion .
	ErrInvalidHTTPVersion = &ProtocolError{Reason: "invalid HTTP version"}

	// ErrVersionNotSupported .
	ErrVersionNotSupported = &ProtocolError{Reason: "HTTP version not supported"}

	// ErrInvalidHTTPStatusCode .
	ErrInvalidHTTPStatusCode = &ProtocolError{Reason: "invalid HTTP status code"}

	// ErrInvalidMethod .
	ErrInvalidMethod = &ProtocolError{Reason: "invalid HTTP method"}

	// ErrUnfinishedMessage .
	ErrUnfinishedMessage = &ProtocolError{Reason: "parser did not consume the full message"}
)

var (
	// ErrNoStartLine .
	ErrNoStartLine = errors.New("message has no start line")

	// ErrIncompleteWrite .
	ErrIncompleteWrite = errors.New("message was not sent completely")
)

// tooLong wraps a length sentinel with the configured limit.
func tooLong(sentinel *ProtocolError, limit int) error {
	return fmt.Errorf("%w: limit is %d bytes", sentinel, limit)
}

// DecodeError is returned when a body codec rejects a message body.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "http: decoding message body: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusError is an HTTP error a server answers with, carrying the status
// code of the response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Code, fasthttp.StatusMessage(e.Code))
	}
	return fmt.Sprintf("%d %s: %s", e.Code, fasthttp.StatusMessage(e.Code), e.Message)
}

// Reason returns the standard reason phrase of the code.
func (e *StatusError) Reason() string {
	return fasthttp.StatusMessage(e.Code)
}

// NewStatusError .
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}

// BadRequest .
func BadRequest(message string) *StatusError {
	return NewStatusError(StatusBadRequest, message)
}

// Forbidden .
func Forbidden(message string) *StatusError {
	return NewStatusError(StatusForbidden, message)
}

// NotFound .
func NotFound(message string) *StatusError {
	return NewStatusError(StatusNotFound, message)
}

// Gone .
func Gone(message string) *StatusError {
	return NewStatusError(StatusGone, message)
}

// LengthRequired .
func LengthRequired(message string) *StatusError {
	return NewStatusError(StatusLengthRequired, message)
}

// InternalError .
func InternalError(message string) *StatusError {
	return NewStatusError(StatusInternalServerError, message)
}

// NotImplemented .
func NotImplemented(message string) *StatusError {
	return NewStatusError(StatusNotImplemented, message)
}

// ServiceUnavailable .
func ServiceUnavailable(message string) *StatusError {
	return NewStatusError(StatusServiceUnavailable, message)
}

// VersionNotSupported .
func VersionNotSupported(message string) *StatusError {
	return NewStatusError(StatusVersionNotSupported, message)
}
