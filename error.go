// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nodehttp

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a readiness wait expires. The handle may
	// still be usable, the caller decides.
	ErrTimeout = errors.New("socket operation timed out")

	// ErrShutdownTimeout is returned when a shutdown is requested without a
	// positive timeout.
	ErrShutdownTimeout = errors.New("shutdown requires a timeout")

	// ErrInvalidOperation .
	ErrInvalidOperation = errors.New("invalid socket operation")
)

// TLS retry signals. A Handle backed by a TLS session returns these when the
// session cannot make progress until the transport becomes readable or
// writable. They are not failures.
var (
	ErrWantRead   = errors.New("tls: want read")
	ErrWantWrite  = errors.New("tls: want write")
	ErrWantLookup = errors.New("tls: want x509 lookup")
)

// UnexpectedEOF is the message a TLS Handle attaches to a SyscallError when
// the peer closed the transport in the middle of a record.
const UnexpectedEOF = "Unexpected EOF"

// SyscallError is a low-level transport fault reported by the TLS layer.
// Code is the errno, or -1 when the fault has no errno.
type SyscallError struct {
	Code int
	Msg  string
}

func (e *SyscallError) Error() string {
	return fmt.Sprintf("tls syscall error (%d): %s", e.Code, e.Msg)
}

// IsUnexpectedEOF reports whether the fault is the peer vanishing mid-record.
func (e *SyscallError) IsUnexpectedEOF() bool {
	return e.Code == -1 && e.Msg == UnexpectedEOF
}

// TLSError is any other fault raised by the TLS layer.
type TLSError struct {
	Err error
}

func (e *TLSError) Error() string { return "tls error: " + e.Err.Error() }

func (e *TLSError) Unwrap() error { return e.Err }

// IOError is a transport fault. The handle is most likely unusable.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }

// ShutdownError is a fatal failure of the final shutdown step.
type ShutdownError struct {
	Err error
}

func (e *ShutdownError) Error() string {
	if errors.Is(e.Err, ErrTimeout) {
		return "timeout while shutting down connection"
	}
	return "error while shutting down connection: " + e.Err.Error()
}

func (e *ShutdownError) Unwrap() error { return e.Err }
