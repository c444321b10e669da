// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"
)

// Parser incrementally rebuilds one message from the bytes of a stream. It
// is owned by a single read and is not safe for concurrent use.
type Parser struct {
	msg  *Message
	line StartLineParser
	conf Config

	// method of the request a response answers, it decides whether the
	// response carries a body.
	method string

	state         int8
	headerLen     int
	body          []byte
	contentLength int
	peerWillClose bool
}

// NewParser returns a parser filling msg. conf limits are applied as given,
// a zero limit is unlimited.
func NewParser(msg *Message, line StartLineParser, conf Config) *Parser {
	conf = conf.withDefaults()
	return &Parser{
		msg:           msg,
		line:          line,
		conf:          conf,
		state:         stateStartLine,
		body:          conf.Allocator.Malloc(0),
		contentLength: -1,
	}
}

// SetRequestMethod tells a response parser the method of the request it
// answers. A response to HEAD has no body.
func (p *Parser) SetRequestMethod(method string) {
	p.method = method
}

// Complete .
func (p *Parser) Complete() bool {
	return p.state == stateComplete
}

// PeerWillClose reports whether the peer is expected to close the
// connection after this message. Only meaningful once the headers are parsed.
func (p *Parser) PeerWillClose() bool {
	return p.peerWillClose
}

// ContentLength returns the announced body length, or -1 if unknown.
func (p *Parser) ContentLength() int {
	return p.contentLength
}

// Parse consumes what it can from buf and returns the unconsumed rest. eof
// tells that no more data will arrive.
func (p *Parser) Parse(buf []byte, eof bool) ([]byte, error) {
	if p.state == stateStartLine {
		for {
			idx := bytes.Index(buf, []byte(crlf))

			// RFC 2616 section 4.1: servers SHOULD ignore any empty line(s)
			// received where a Request-Line is expected.
			if idx == 0 {
				buf = buf[2:]
				continue
			}

			if idx > 0 {
				if err := p.checkStartLineLength(idx); err != nil {
					return buf, err
				}
				line := string(buf[:idx])
				buf = buf[idx+2:]

				startLine, err := p.line.ParseStartLine(line)
				if err != nil {
					return buf, err
				}
				p.msg.StartLine = startLine
				p.state = stateHeaders

				// An HTTP/0.9 request is the request line alone.
				if p.isRequest() && startLine.Proto() == HTTP09 {
					if p.msg.Header == nil {
						p.msg.Header = NewHeader()
					}
					p.contentLength = 0
					p.peerWillClose = true
					p.state = stateBody
				}
			} else if err := p.checkStartLineLength(len(buf)); err != nil {
				return buf, err
			}
			break
		}
	}

	if p.state == stateHeaders {
		block, rest, ok := cutHeaders(buf)
		if ok {
			if err := p.checkHeaderLength(p.headerLen + len(block)); err != nil {
				return buf, err
			}
			p.headerLen += len(block)
			buf = rest

			if err := p.parseHeaders(string(block)); err != nil {
				return buf, err
			}
			p.state = stateBody
		} else if err := p.checkHeaderLength(len(buf)); err != nil {
			return buf, err
		}
	}

	if p.state == stateBody {
		if p.conf.MaxBodyLength > 0 && len(p.body)+len(buf) > p.conf.MaxBodyLength {
			return buf, tooLong(ErrBodyTooLong, p.conf.MaxBodyLength)
		}
		p.body = p.conf.Allocator.Append(p.body, buf...)
		buf = buf[:0]

		// RFC 2616 section 4.4: without Content-Length a response body ends
		// when the server closes the connection. Closing cannot end a request
		// body.
		switch {
		case eof:
			p.state = stateComplete
		case p.contentLength >= 0 && len(p.body) >= p.contentLength:
			p.state = stateComplete
		case p.contentLength < 0 && p.isRequest():
			p.state = stateComplete
		}
	}

	return buf, nil
}

func (p *Parser) isRequest() bool {
	_, ok := p.msg.StartLine.(*RequestLine)
	return ok
}

// bodyAllowed reports whether the message may carry a body at all.
func (p *Parser) bodyAllowed() bool {
	if sl, ok := p.msg.StartLine.(*StatusLine); ok {
		return ResponseHasBody(p.method, sl.Code)
	}
	return true
}

// cutHeaders splits buf after the empty line ending the header block. The
// block keeps the CRLF of its last line. A message without header lines has
// its empty line right at the start of buf.
func cutHeaders(buf []byte) (block, rest []byte, ok bool) {
	if bytes.HasPrefix(buf, []byte(crlf)) {
		return buf[:0], buf[2:], true
	}
	idx := bytes.Index(buf, []byte(headerTail))
	if idx < 0 {
		return nil, buf, false
	}
	return buf[:idx+2], buf[idx+4:], true
}

func (p *Parser) checkStartLineLength(n int) error {
	if max := p.conf.MaxStartLineLength; max > 0 && n > max {
		return tooLong(ErrStartLineTooLong, max)
	}
	return nil
}

func (p *Parser) checkHeaderLength(n int) error {
	if max := p.conf.MaxHeaderLength; max > 0 && n > max {
		return tooLong(ErrHeadersTooLong, max)
	}
	return nil
}

func (p *Parser) parseHeaders(block string) error {
	if p.msg.Header == nil {
		p.msg.Header = NewHeader()
	} else {
		p.msg.Header.Reset()
	}
	if err := parseHeaderBlock(block, p.msg.Header); err != nil {
		return fmt.Errorf("%w in %s", err, stateName(p.state))
	}

	p.peerWillClose = p.willPeerClose()

	p.contentLength = -1
	v, ok := p.msg.Header.Lookup(HeaderContentLength)
	switch {
	case !p.bodyAllowed():
		p.contentLength = 0
	case !ok && p.isRequest():
		p.contentLength = 0
	case ok:
		if n, err := fasthttp.ParseUint([]byte(strings.TrimSpace(v))); err == nil {
			p.contentLength = n
		}
	}

	// Nothing but the connection closing can delimit a body of unknown
	// length.
	if p.contentLength < 0 {
		p.peerWillClose = true
	}
	return nil
}

func (p *Parser) willPeerClose() bool {
	connection := strings.ToLower(p.msg.Header.Get(HeaderConnection))

	// RFC 2616 section 14.10: "Connection: close" in either the request or
	// the response ends persistence. HTTP/1.1 is persistent by default.
	if p.msg.StartLine.Proto() == HTTP11 {
		return strings.Contains(connection, "close")
	}

	// Older versions announce persistence with Keep-Alive.
	if p.msg.Header.Get(HeaderKeepAlive) != "" {
		return false
	}

	// Some servers answer with "Connection: Keep-Alive", which was meant to
	// be sent by the client.
	if strings.Contains(connection, "keep-alive") {
		return false
	}

	return true
}

// finish moves the body into the message. The parser must not be used
// afterwards.
func (p *Parser) finish() {
	if len(p.body) > 0 {
		p.msg.Body = append([]byte(nil), p.body...)
	} else {
		p.msg.Body = nil
	}
	p.conf.Allocator.Free(p.body)
	p.body = nil
}

// release returns the parser's buffers without touching the message.
func (p *Parser) release() {
	if p.body != nil {
		p.conf.Allocator.Free(p.body)
		p.body = nil
	}
}
