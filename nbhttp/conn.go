// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"context"
	"time"

	"github.com/lesismal/nodehttp"
)

// Conn drives request/response exchanges over a single handle. A Conn is
// used by one goroutine at a time.
type Conn struct {
	Handle nodehttp.Handle

	// Per-operation timeouts, zero waits indefinitely. Close needs a
	// positive WriteTimeout to shut the handle down.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CloseTimeout time.Duration

	poller *nodehttp.Poller
	op     *nodehttp.Operator
	conf   Config

	reader *Reader
	writer *Writer

	// method of the last request, for the body rule of the response.
	method string
}

// NewConn .
func NewConn(h nodehttp.Handle, conf Config) (*Conn, error) {
	poller, err := nodehttp.NewPoller()
	if err != nil {
		return nil, err
	}
	op := nodehttp.NewOperator(poller)
	conf = conf.withDefaults()
	return &Conn{
		Handle: h,
		poller: poller,
		op:     op,
		conf:   conf,
		writer: NewWriter(op, conf),
	}, nil
}

// WriteRequest sends a request.
func (c *Conn) WriteRequest(ctx context.Context, req *Message) error {
	c.writer.HasBody = nil
	if rl := req.RequestLine(); rl != nil {
		c.method = rl.Method
	}
	return c.writer.Write(ctx, c.Handle, req, c.WriteTimeout)
}

// ReadResponse receives the response to the last request.
func (c *Conn) ReadResponse(ctx context.Context) (*Message, error) {
	if c.reader == nil {
		c.reader = NewResponseReader(c.op, c.conf)
	}
	c.reader.RequestMethod = c.method
	return c.reader.Read(ctx, c.Handle, nil, c.ReadTimeout)
}

// Do sends req and receives its response.
func (c *Conn) Do(ctx context.Context, req *Message) (*Message, error) {
	if err := c.WriteRequest(ctx, req); err != nil {
		return nil, err
	}
	return c.ReadResponse(ctx)
}

// ReadRequest receives the next request.
func (c *Conn) ReadRequest(ctx context.Context) (*Message, error) {
	if c.reader == nil {
		c.reader = NewRequestReader(c.op, c.conf)
	}
	req, err := c.reader.Read(ctx, c.Handle, nil, c.ReadTimeout)
	if err != nil {
		return nil, err
	}
	c.method = req.RequestLine().Method
	return req, nil
}

// SetTimeouts sets the read, write and close timeouts.
func (c *Conn) SetTimeouts(readTimeout, writeTimeout, closeTimeout time.Duration) {
	c.ReadTimeout = readTimeout
	c.WriteTimeout = writeTimeout
	c.CloseTimeout = closeTimeout
}

// WriteResponse sends the response to the last request read. The body is
// left out where the request method or the status code forbid one. An empty
// response that may carry a body announces Content-Length: 0, otherwise the
// peer would read it until the connection closes.
func (c *Conn) WriteResponse(ctx context.Context, resp *Message) error {
	method := c.method
	if sl := resp.StatusLine(); sl != nil && len(resp.Body) == 0 && ResponseHasBody(method, sl.Code) {
		if resp.Header == nil {
			resp.Header = NewHeader()
		}
		if _, ok := resp.Header.Lookup(HeaderContentLength); !ok {
			resp.Header.Set(HeaderContentLength, "0")
		}
	}
	c.writer.HasBody = func(msg *Message) bool {
		sl := msg.StatusLine()
		if sl == nil {
			return len(msg.Body) > 0
		}
		return len(msg.Body) > 0 && ResponseHasBody(method, sl.Code)
	}
	return c.writer.Write(ctx, c.Handle, resp, c.WriteTimeout)
}

// PeerWillClose reports what the last message read announced.
func (c *Conn) PeerWillClose() bool {
	return c.reader != nil && c.reader.PeerWillClose()
}

// Close shuts the handle down and closes it. Unless force is set, a peer
// expected to close is given CloseTimeout to do so first.
func (c *Conn) Close(ctx context.Context, force bool) error {
	err := c.op.ShutdownConn(ctx, c.Handle, c.CloseTimeout, c.WriteTimeout, c.PeerWillClose(), force)
	if cerr := c.Handle.Close(); err == nil {
		err = cerr
	}
	c.poller.Close()
	return err
}
