// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"context"
	"fmt"
	"time"

	"github.com/lesismal/nodehttp"
	"github.com/lesismal/nodehttp/logging"
	"github.com/valyala/fasthttp"
	"golang.org/x/net/http/httpguts"
)

// Writer serializes messages and sends them through an Operator.
type Writer struct {
	op   *nodehttp.Operator
	conf Config

	// HasBody decides whether the body is transmitted. The default sends
	// any non-empty body. A response to HEAD computes Content-Length but
	// must not carry the body.
	HasBody func(msg *Message) bool
}

// NewWriter .
func NewWriter(op *nodehttp.Operator, conf Config) *Writer {
	return &Writer{op: op, conf: conf.withDefaults()}
}

// Write sends msg on h. On success every byte has been sent. Content-Length
// is set on msg when it has a body.
func (w *Writer) Write(ctx context.Context, h nodehttp.Handle, msg *Message, timeout time.Duration) error {
	if msg.StartLine == nil {
		return ErrNoStartLine
	}
	if msg.Header == nil {
		msg.Header = NewHeader()
	}

	// RFC 2616 section 4.3: a message body is only allowed when signalled
	// by Content-Length or Transfer-Encoding. Chunked encoding is not used.
	if len(msg.Body) > 0 {
		msg.Header.Set(HeaderContentLength, string(fasthttp.AppendUint(nil, len(msg.Body))))
	}

	buf, err := w.format(msg)
	if err != nil {
		return err
	}
	defer w.conf.Allocator.Free(buf)

	pos, end := 0, len(buf)
	for pos < end {
		chunk := buf[pos:]
		if len(chunk) > w.conf.ChunkSize {
			chunk = chunk[:w.conf.ChunkSize]
		}
		sent, err := w.op.Send(ctx, h, chunk, timeout)
		if err != nil {
			return err
		}
		pos += sent
	}
	if pos != end {
		return ErrIncompleteWrite
	}

	return w.op.Flush(ctx, h, timeout)
}

func (w *Writer) hasBody(msg *Message) bool {
	if w.HasBody != nil {
		return w.HasBody(msg)
	}
	return len(msg.Body) > 0
}

func (w *Writer) format(msg *Message) ([]byte, error) {
	alloc := w.conf.Allocator
	buf := alloc.Malloc(0)

	buf = alloc.AppendString(buf, msg.StartLine.String())
	buf = alloc.AppendString(buf, crlf)

	// HTTP/0.9 has no headers.
	if msg.StartLine.Proto() != HTTP09 {
		var err error
		msg.Header.Range(func(name, value string) bool {
			if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
				err = fmt.Errorf("invalid header field %q", name)
				return false
			}
			buf = alloc.AppendString(buf, name)
			buf = alloc.AppendString(buf, ": ")
			buf = alloc.AppendString(buf, value)
			buf = alloc.AppendString(buf, crlf)
			return true
		})
		if err != nil {
			alloc.Free(buf)
			return nil, err
		}
	}

	buf = alloc.AppendString(buf, crlf)

	if w.hasBody(msg) {
		buf = alloc.Append(buf, msg.Body...)
	} else if len(msg.Body) > 0 {
		logging.Warn("ignoring message body")
	}

	return buf, nil
}

// ResponseHasBody reports whether a response with code, answering a request
// with method, may carry a body.
func ResponseHasBody(method string, code int) bool {
	if method == MethodHead {
		return false
	}
	if code >= 100 && code < 200 {
		return false
	}
	return code != StatusNoContent && code != StatusNotModified
}
