// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

// Message is an HTTP message. DecodedBody is only set by a Reader, after
// Body is complete.
type Message struct {
	StartLine   StartLine
	Header      *Header
	Body        []byte
	DecodedBody interface{}
}

// NewMessage .
func NewMessage(startLine StartLine) *Message {
	return &Message{StartLine: startLine, Header: NewHeader()}
}

// NewRequest .
func NewRequest(method, path string, version Version) *Message {
	return NewMessage(&RequestLine{Method: method, Path: path, Version: version})
}

// NewResponse .
func NewResponse(version Version, code int, reason string) *Message {
	return NewMessage(&StatusLine{Version: version, Code: code, Reason: reason})
}

// SetBody encodes v with codec into the body and sets Content-Type.
func (m *Message) SetBody(codec Codec, v interface{}) error {
	data, err := codec.Encode(v)
	if err != nil {
		return err
	}
	if m.Header == nil {
		m.Header = NewHeader()
	}
	m.Body = data
	m.Header.Set(HeaderContentType, codec.ContentType())
	return nil
}

// RequestLine returns the start line as a request line, or nil.
func (m *Message) RequestLine() *RequestLine {
	l, _ := m.StartLine.(*RequestLine)
	return l
}

// StatusLine returns the start line as a status line, or nil.
func (m *Message) StatusLine() *StatusLine {
	l, _ := m.StartLine.(*StatusLine)
	return l
}
