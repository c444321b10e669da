// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tls

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lesismal/nodehttp/mempool"
	"golang.org/x/sys/unix"
)

// errWouldBlock is what the transport reports to the TLS session when the
// socket is not ready. It is a temporary net.Error so the session keeps its
// partial record and does not latch the error.
var errWouldBlock net.Error = wouldBlock{}

type wouldBlock struct{}

func (wouldBlock) Error() string   { return "resource temporarily unavailable" }
func (wouldBlock) Timeout() bool   { return true }
func (wouldBlock) Temporary() bool { return true }

// transport is the net.Conn the TLS session runs on. It blocks like the
// wrapped connection until setNonBlocking is called. From then on reads fail
// with errWouldBlock instead of waiting, and writes only queue ciphertext
// which flush pushes out.
type transport struct {
	conn net.Conn
	rc   syscall.RawConn

	nonblock int32
	pending  []byte
	werr     error
}

func newTransport(conn net.Conn, rc syscall.RawConn) *transport {
	return &transport{conn: conn, rc: rc}
}

func (t *transport) setNonBlocking() {
	atomic.StoreInt32(&t.nonblock, 1)
}

func (t *transport) nonBlocking() bool {
	return atomic.LoadInt32(&t.nonblock) == 1
}

func (t *transport) Read(b []byte) (int, error) {
	if !t.nonBlocking() {
		return t.conn.Read(b)
	}
	var n int
	var err error
	cerr := t.rc.Read(func(fd uintptr) bool {
		n, err = unix.Read(int(fd), b)
		return true
	})
	if cerr != nil {
		return 0, cerr
	}
	if n < 0 {
		n = 0
	}
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return 0, errWouldBlock
	case err != nil:
		return 0, err
	case n == 0 && len(b) > 0:
		return 0, io.EOF
	}
	return n, nil
}

// Write never fails for lack of readiness once non-blocking, because the
// TLS session latches every write error.
func (t *transport) Write(b []byte) (int, error) {
	if !t.nonBlocking() {
		return t.conn.Write(b)
	}
	if t.werr != nil {
		return 0, t.werr
	}
	t.pending = mempool.Append(t.pending, b...)
	if err := t.flush(); err != nil && err != errWouldBlock {
		return 0, err
	}
	return len(b), nil
}

// flush writes queued ciphertext until done or the socket is full.
func (t *transport) flush() error {
	if t.werr != nil {
		return t.werr
	}
	for len(t.pending) > 0 {
		var n int
		var err error
		cerr := t.rc.Write(func(fd uintptr) bool {
			n, err = unix.Write(int(fd), t.pending)
			return true
		})
		if cerr != nil {
			err = cerr
		}
		if n > 0 {
			left := copy(t.pending, t.pending[n:])
			t.pending = t.pending[:left]
		}
		switch {
		case err == nil:
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			return errWouldBlock
		default:
			t.werr = err
			return err
		}
	}
	return nil
}

func (t *transport) buffered() int {
	return len(t.pending)
}

func (t *transport) release() {
	if t.pending != nil {
		mempool.Free(t.pending)
		t.pending = nil
	}
}

func (t *transport) Close() error {
	return t.conn.Close()
}

func (t *transport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *transport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

// Deadlines only apply to the blocking handshake. The session sets write
// deadlines around close_notify, which would otherwise stay on the socket.
func (t *transport) SetDeadline(d time.Time) error {
	if t.nonBlocking() {
		return nil
	}
	return t.conn.SetDeadline(d)
}

func (t *transport) SetReadDeadline(d time.Time) error {
	if t.nonBlocking() {
		return nil
	}
	return t.conn.SetReadDeadline(d)
}

func (t *transport) SetWriteDeadline(d time.Time) error {
	if t.nonBlocking() {
		return nil
	}
	return t.conn.SetWriteDeadline(d)
}
