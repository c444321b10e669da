// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tls

import (
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/lesismal/llib/std/crypto/tls"
	"github.com/lesismal/nodehttp"
	"golang.org/x/sys/unix"
)

// Config .
type Config = tls.Config

// Certificate .
type Certificate = tls.Certificate

// MaxBuffered is how much unsent ciphertext a Conn queues before Send
// reports ErrWantWrite.
const MaxBuffered = 256 * 1024

// ReadBufferSize is the record read buffer of a session.
const ReadBufferSize = 16 * 1024

// Conn is a nodehttp.Handle running a TLS session on a socket. The handshake
// is done blocking, records are then sent and received without blocking and
// lack of readiness is reported as nodehttp.ErrWantRead or
// nodehttp.ErrWantWrite.
type Conn struct {
	conn *tls.Conn
	tr   *transport

	closeSent bool
}

// Server runs the server handshake on conn.
func Server(conn net.Conn, config *Config, timeout time.Duration) (*Conn, error) {
	return handshake(conn, config, false, timeout)
}

// Client runs the client handshake on conn.
func Client(conn net.Conn, config *Config, timeout time.Duration) (*Conn, error) {
	return handshake(conn, config, true, timeout)
}

// Dial connects to addr and runs the client handshake. The timeout covers
// both.
func Dial(network, addr string, config *Config, timeout time.Duration) (*Conn, error) {
	conn, err := net.DialTimeout(network, addr, timeout)
	if err != nil {
		return nil, err
	}
	c, err := Client(conn, config, timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func handshake(conn net.Conn, config *Config, isClient bool, timeout time.Duration) (*Conn, error) {
	rc, err := nodehttp.RawConn(conn)
	if err != nil {
		return nil, err
	}
	tr := newTransport(conn, rc)
	tlsConn := tls.NewConn(tr, config, isClient, false, ReadBufferSize)

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
		defer conn.SetDeadline(time.Time{})
	}
	if err := tlsConn.Handshake(); err != nil {
		return nil, &nodehttp.TLSError{Err: err}
	}

	tr.setNonBlocking()
	return &Conn{conn: tlsConn, tr: tr}, nil
}

// ConnectionState .
func (c *Conn) ConnectionState() tls.ConnectionState {
	return c.conn.ConnectionState()
}

// NetConn returns the underlying connection.
func (c *Conn) NetConn() net.Conn {
	return c.tr.conn
}

// SyscallConn .
func (c *Conn) SyscallConn() (syscall.RawConn, error) {
	return c.tr.rc, nil
}

// Buffered returns the number of encrypted bytes not yet on the wire.
func (c *Conn) Buffered() int {
	return c.tr.buffered()
}

// Send encrypts b. Sending an empty b only pushes out queued records.
func (c *Conn) Send(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, c.flush()
	}
	if c.tr.buffered() >= MaxBuffered {
		if err := c.flush(); err != nil {
			return 0, err
		}
	}
	n, err := c.conn.Write(b)
	if err != nil {
		return n, mapError(err)
	}
	if err := c.flush(); err != nil && !errors.Is(err, nodehttp.ErrWantWrite) {
		return n, err
	}
	return n, nil
}

func (c *Conn) flush() error {
	err := c.tr.flush()
	switch {
	case err == nil:
		return nil
	case err == errWouldBlock:
		return nodehttp.ErrWantWrite
	}
	// A failing flush must not look like the benign empty-send fault.
	return &nodehttp.TLSError{Err: err}
}

// Recv decrypts into b. A close_notify from the peer reads as 0, nil.
func (c *Conn) Recv(b []byte) (int, error) {
	n, err := c.conn.Read(b)
	if n > 0 {
		return n, nil
	}
	if err == nil {
		return 0, nodehttp.ErrWantRead
	}
	return 0, mapError(err)
}

// Readahead reports that records already read from the socket may hold
// more plaintext than the last Recv returned.
func (c *Conn) Readahead() bool {
	return true
}

// Shutdown sends close_notify once, then shuts the socket down as how says.
func (c *Conn) Shutdown(how int) error {
	if !c.closeSent && (how == nodehttp.ShutWrite || how == nodehttp.ShutReadWrite) {
		c.closeSent = true
		if err := c.conn.CloseWrite(); err != nil && !isWouldBlock(err) {
			return mapError(err)
		}
	}
	if err := c.flush(); err != nil {
		return err
	}

	var err error
	cerr := c.tr.rc.Control(func(fd uintptr) {
		err = unix.Shutdown(int(fd), how)
	})
	if cerr != nil {
		return cerr
	}
	if errors.Is(err, unix.ENOTCONN) {
		return nil
	}
	return err
}

// Close closes the socket without a close_notify.
func (c *Conn) Close() error {
	c.tr.release()
	return c.tr.Close()
}

func isWouldBlock(err error) bool {
	var ne net.Error
	return err == errWouldBlock || (errors.As(err, &ne) && ne.Timeout())
}

func mapError(err error) error {
	if isWouldBlock(err) {
		return nodehttp.ErrWantRead
	}
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &nodehttp.SyscallError{Code: -1, Msg: nodehttp.UnexpectedEOF}
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &nodehttp.SyscallError{Code: int(errno), Msg: errno.Error()}
	}
	return &nodehttp.TLSError{Err: err}
}
