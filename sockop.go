// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nodehttp

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

type sockOp int8

const (
	opSend sockOp = iota
	opRecv
	opShutdown
)

func (op sockOp) String() string {
	switch op {
	case opSend:
		return "send"
	case opRecv:
		return "recv"
	case opShutdown:
		return "shutdown"
	}
	return "unknown"
}

// waitState is what a TLS retry signal asked the next iteration to poll for.
type waitState int8

const (
	waitIdle waitState = iota
	waitReadable
	waitWritable
)

func (s waitState) event() Event {
	switch s {
	case waitReadable:
		return EventRead | EventPri
	case waitWritable:
		return EventWrite
	}
	return 0
}

// Operator turns the non-blocking Handle contract into blocking calls with
// a timeout. It is the only place that knows about readiness polling and TLS
// retry signals. An Operator holds no shared state and can be created per
// connection.
type Operator struct {
	waiter Waiter
}

// NewOperator .
func NewOperator(w Waiter) *Operator {
	return &Operator{waiter: w}
}

// Send writes as much of b as the handle accepts and returns the count.
func (o *Operator) Send(ctx context.Context, h Handle, b []byte, timeout time.Duration) (int, error) {
	return o.operate(ctx, h, opSend, b, 0, timeout)
}

// Recv reads at most len(b) bytes. Zero bytes with a nil error is an orderly
// end of stream.
func (o *Operator) Recv(ctx context.Context, h Handle, b []byte, timeout time.Duration) (int, error) {
	return o.operate(ctx, h, opRecv, b, 0, timeout)
}

// Shutdown shuts the handle down. The timeout is only used if the handle
// asks for readiness, as a TLS close does, but it must be positive.
func (o *Operator) Shutdown(ctx context.Context, h Handle, how int, timeout time.Duration) error {
	if timeout <= 0 {
		return ErrShutdownTimeout
	}
	_, err := o.operate(ctx, h, opShutdown, nil, how, timeout)
	return err
}

// Flush pushes out bytes a Buffered handle accepted but has not transmitted.
func (o *Operator) Flush(ctx context.Context, h Handle, timeout time.Duration) error {
	bh, ok := h.(Buffered)
	if !ok {
		return nil
	}
	for pending := bh.Buffered(); pending > 0; {
		if _, err := o.Send(ctx, h, nil, timeout); err != nil {
			return err
		}
		left := bh.Buffered()
		if left >= pending {
			return &IOError{Op: opSend.String(), Err: io.ErrShortWrite}
		}
		pending = left
	}
	return nil
}

func (o *Operator) operate(ctx context.Context, h Handle, op sockOp, b []byte, how int, timeout time.Duration) (int, error) {
	var want Event
	switch op {
	case opSend:
		want = EventWrite
	case opRecv:
		want = EventRead | EventPri
	case opShutdown:
	default:
		return 0, ErrInvalidOperation
	}

	// A shutdown waits only when asked to, a receive on a readahead handle
	// starts with an attempt.
	attemptFirst := op == opShutdown || (op == opRecv && readsAhead(h))

	state := waitIdle
	for first := true; ; first = false {
		if state != waitIdle || !(attemptFirst && (first || op == opShutdown)) {
			awaited := want
			if state != waitIdle {
				awaited = state.event()
			}

			got, ok, err := o.waiter.Wait(ctx, h, awaited, timeout)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return 0, err
				}
				return 0, &IOError{Op: op.String(), Err: err}
			}
			if !ok {
				return 0, ErrTimeout
			}

			if op == opRecv && !got.Has(EventRead) && got.Has(EventHup|EventInvalid|EventErr) {
				return 0, nil
			}

			// An error condition goes on to the attempt, which reports it.
			if !got.Has(awaited) && !got.Has(EventErr|EventHup|EventInvalid) {
				continue
			}
		}

		state = waitIdle

		n, err := attempt(h, op, b, how)
		if err == nil {
			return n, nil
		}

		switch {
		case errors.Is(err, ErrWantWrite):
			state = waitWritable
			continue
		case errors.Is(err, ErrWantRead):
			state = waitReadable
			continue
		case errors.Is(err, ErrWantLookup):
			continue
		}

		var se *SyscallError
		if errors.As(err, &se) {
			if op == opSend && len(b) == 0 {
				return 0, nil
			}
			if op == opRecv && se.IsUnexpectedEOF() {
				return 0, nil
			}
			return 0, &IOError{Op: op.String(), Err: se}
		}

		var te *TLSError
		if errors.As(err, &te) {
			return 0, &IOError{Op: op.String(), Err: te}
		}

		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			continue
		}

		return 0, &IOError{Op: op.String(), Err: err}
	}
}

func readsAhead(h Handle) bool {
	ra, ok := h.(Readahead)
	return ok && ra.Readahead()
}

func attempt(h Handle, op sockOp, b []byte, how int) (int, error) {
	switch op {
	case opSend:
		return h.Send(b)
	case opRecv:
		return h.Recv(b)
	default:
		return 0, h.Shutdown(how)
	}
}
