// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nodehttp

import "golang.org/x/sys/unix"

// Shutdown directions.
const (
	ShutRead      = unix.SHUT_RD
	ShutWrite     = unix.SHUT_WR
	ShutReadWrite = unix.SHUT_RDWR
)

// Handle is a non-blocking byte stream.
//
// Send and Recv never block: a plain socket reports unix.EAGAIN, a TLS
// session reports ErrWantRead, ErrWantWrite or ErrWantLookup. Recv returning
// 0 with a nil error means the peer closed the stream.
type Handle interface {
	Pollable
	Send(b []byte) (int, error)
	Recv(b []byte) (int, error)
	Shutdown(how int) error
	Close() error
}

// Buffered is implemented by handles that may hold accepted but not yet
// transmitted bytes. Sending an empty payload pushes them out.
type Buffered interface {
	Buffered() int
}

// Readahead is implemented by handles that keep received input in buffers of
// their own, as a TLS session does. That input does not make the socket
// readable, so a receive on such a handle is attempted before polling.
type Readahead interface {
	Readahead() bool
}
