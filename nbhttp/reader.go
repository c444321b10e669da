// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"context"
	"time"

	"github.com/lesismal/nodehttp"
	"github.com/lesismal/nodehttp/logging"
)

// Reader receives one message per Read call from a handle.
type Reader struct {
	op   *nodehttp.Operator
	conf Config
	line StartLineParser

	// RequestMethod is the method of the request the next response answers.
	RequestMethod string

	peerWillClose bool
}

// NewReader .
func NewReader(op *nodehttp.Operator, line StartLineParser, conf Config) *Reader {
	return &Reader{op: op, conf: conf.withDefaults(), line: line}
}

// NewRequestReader returns a Reader for the server side of a connection.
func NewRequestReader(op *nodehttp.Operator, conf Config) *Reader {
	return NewReader(op, RequestLineParser{}, conf)
}

// NewResponseReader returns a Reader for the client side of a connection.
func NewResponseReader(op *nodehttp.Operator, conf Config) *Reader {
	return NewReader(op, StatusLineParser{}, conf)
}

// PeerWillClose reports whether the peer announced, explicitly or by the
// framing of the last message, that it closes the connection.
func (r *Reader) PeerWillClose() bool {
	return r.peerWillClose
}

// Read receives a complete message into msg and returns it. A nil msg is
// allocated. The timeout applies to every single receive.
func (r *Reader) Read(ctx context.Context, h nodehttp.Handle, msg *Message, timeout time.Duration) (*Message, error) {
	if msg == nil {
		msg = &Message{}
	}
	msg.DecodedBody = nil

	p := NewParser(msg, r.line, r.conf)
	p.SetRequestMethod(r.RequestMethod)
	defer p.release()

	alloc := r.conf.Allocator
	chunk := alloc.Malloc(r.conf.ChunkSize)
	defer alloc.Free(chunk)

	buf := alloc.Malloc(0)
	defer func() { alloc.Free(buf) }()

	eof := false
	for !p.Complete() {
		n, err := r.op.Recv(ctx, h, chunk, timeout)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			buf = alloc.Append(buf, chunk[:n]...)
		} else {
			eof = true
		}

		rest, err := p.Parse(buf, eof)
		if err != nil {
			return nil, err
		}
		buf = compact(buf, rest)

		if eof && (p.state == stateStartLine || p.state == stateHeaders) {
			return nil, ErrClosedPrematurely
		}
	}

	rest, err := p.Parse(buf, true)
	if err != nil {
		return nil, err
	}
	buf = compact(buf, rest)
	if !p.Complete() || len(buf) > 0 {
		return nil, ErrUnfinishedMessage
	}

	r.peerWillClose = p.PeerWillClose()
	p.finish()

	if len(msg.Body) > 0 {
		v, err := r.conf.Codec.Decode(msg.Body)
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		msg.DecodedBody = v
		if v != nil {
			logging.Debug("message body: %v", v)
		}
	}

	return msg, nil
}

// compact moves rest, a tail of buf, to the front of buf.
func compact(buf, rest []byte) []byte {
	n := copy(buf, rest)
	return buf[:n]
}
