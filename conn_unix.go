// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly
// +build linux darwin netbsd freebsd openbsd dragonfly

package nodehttp

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrRawConnUnsupported is returned for connections without a descriptor.
var ErrRawConnUnsupported = errors.New("RawConn Unsupported")

// Socket is the plain Handle: raw non-blocking syscalls on the descriptor of
// a net.Conn. The descriptor stays owned by the net.Conn.
type Socket struct {
	conn net.Conn
	rc   syscall.RawConn
}

// NewSocket wraps conn, which must expose its descriptor.
func NewSocket(conn net.Conn) (*Socket, error) {
	rc, err := RawConn(conn)
	if err != nil {
		return nil, err
	}
	return &Socket{conn: conn, rc: rc}, nil
}

// RawConn returns the raw descriptor access of conn.
func RawConn(conn net.Conn) (syscall.RawConn, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, ErrRawConnUnsupported
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, ErrRawConnUnsupported
	}
	return rc, nil
}

// Conn returns the wrapped connection.
func (s *Socket) Conn() net.Conn {
	return s.conn
}

// SyscallConn .
func (s *Socket) SyscallConn() (syscall.RawConn, error) {
	return s.rc, nil
}

// Send .
func (s *Socket) Send(b []byte) (int, error) {
	var n int
	var err error
	cerr := s.rc.Write(func(fd uintptr) bool {
		n, err = unix.Write(int(fd), b)
		return true
	})
	if cerr != nil {
		return 0, cerr
	}
	if n < 0 {
		n = 0
	}
	return n, err
}

// Recv .
func (s *Socket) Recv(b []byte) (int, error) {
	var n int
	var err error
	cerr := s.rc.Read(func(fd uintptr) bool {
		n, err = unix.Read(int(fd), b)
		return true
	})
	if cerr != nil {
		return 0, cerr
	}
	if n < 0 {
		n = 0
	}
	return n, err
}

// Shutdown .
func (s *Socket) Shutdown(how int) error {
	var err error
	cerr := s.rc.Control(func(fd uintptr) {
		err = unix.Shutdown(int(fd), how)
	})
	if cerr != nil {
		return cerr
	}
	return err
}

// Close .
func (s *Socket) Close() error {
	return s.conn.Close()
}
