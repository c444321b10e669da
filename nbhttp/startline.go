// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an HTTP protocol version.
type Version int8

// Versions.
const (
	HTTP09 Version = iota
	HTTP10
	HTTP11
)

func (v Version) String() string {
	switch v {
	case HTTP09:
		return "HTTP/0.9"
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	}
	return "HTTP/?"
}

// ParseVersion parses "HTTP/x.y". HTTP/1.y with y > 1 is treated as HTTP/1.1,
// major versions other than 0 and 1 are not supported.
func ParseVersion(s string) (Version, error) {
	if !strings.HasPrefix(s, "HTTP/") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHTTPVersion, s)
	}
	majorStr, minorStr, ok := strings.Cut(s[len("HTTP/"):], ".")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHTTPVersion, s)
	}
	major, err1 := strconv.ParseUint(majorStr, 10, 16)
	minor, err2 := strconv.ParseUint(minorStr, 10, 16)
	if err1 != nil || err2 != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHTTPVersion, s)
	}

	switch {
	case major == 0 && minor == 9:
		return HTTP09, nil
	case major == 1 && minor == 0:
		return HTTP10, nil
	case major == 1:
		return HTTP11, nil
	case major >= 2:
		return 0, fmt.Errorf("%w: %q", ErrVersionNotSupported, s)
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidHTTPVersion, s)
}

// StartLine is the first line of a message.
type StartLine interface {
	fmt.Stringer
	Proto() Version
}

// RequestLine is the start line of a request.
type RequestLine struct {
	Method  string
	Path    string
	Version Version
}

func (l *RequestLine) String() string {
	return l.Method + " " + l.Path + " " + l.Version.String()
}

// Proto .
func (l *RequestLine) Proto() Version { return l.Version }

// StatusLine is the start line of a response.
type StatusLine struct {
	Version Version
	Code    int
	Reason  string
}

func (l *StatusLine) String() string {
	return l.Version.String() + " " + strconv.Itoa(l.Code) + " " + l.Reason
}

// Proto .
func (l *StatusLine) Proto() Version { return l.Version }

// StartLineParser parses the start line grammar of one message direction.
type StartLineParser interface {
	ParseStartLine(line string) (StartLine, error)
}

// RequestLineParser parses client-to-server start lines.
type RequestLineParser struct{}

// ParseStartLine accepts "METHOD PATH HTTP/x.y" and the HTTP/0.9 simple
// request form "GET PATH".
func (RequestLineParser) ParseStartLine(line string) (StartLine, error) {
	words := strings.Fields(line)
	switch len(words) {
	case 3:
		if !validMethod(words[0]) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, words[0])
		}
		version, err := ParseVersion(words[2])
		if err != nil {
			return nil, err
		}
		return &RequestLine{Method: words[0], Path: words[1], Version: version}, nil
	case 2:
		if words[0] != MethodGet {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, words[0])
		}
		return &RequestLine{Method: words[0], Path: words[1], Version: HTTP09}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidStartLine, line)
}

// StatusLineParser parses server-to-client start lines.
type StatusLineParser struct{}

// ParseStartLine accepts "HTTP/x.y CODE [REASON]".
func (StatusLineParser) ParseStartLine(line string) (StartLine, error) {
	words := splitFields(line, 3)
	if len(words) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartLine, line)
	}

	version, err := ParseVersion(words[0])
	if err != nil {
		return nil, err
	}

	if len(words[1]) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHTTPStatusCode, words[1])
	}
	code, err := strconv.Atoi(words[1])
	if err != nil || code < 100 || code > 999 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHTTPStatusCode, words[1])
	}

	reason := ""
	if len(words) == 3 {
		reason = words[2]
	}
	return &StatusLine{Version: version, Code: code, Reason: reason}, nil
}

// splitFields splits s around runs of whitespace into at most n fields. The
// last field keeps the remainder of s after its leading whitespace.
func splitFields(s string, n int) []string {
	var fields []string
	for len(fields) < n-1 {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return fields
		}
		i := strings.IndexAny(s, " \t")
		if i < 0 {
			return append(fields, s)
		}
		fields = append(fields, s[:i])
		s = s[i:]
	}
	s = strings.TrimLeft(s, " \t")
	if s != "" {
		fields = append(fields, s)
	}
	return fields
}

func validMethod(m string) bool {
	if m == "" {
		return false
	}
	for i := 0; i < len(m); i++ {
		c := m[i]
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
