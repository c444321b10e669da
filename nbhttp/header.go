// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

type headerField struct {
	name  string
	value string
}

// Header is an ordered set of header fields with case-insensitive names.
// Setting an existing name replaces its value in place, so the last value
// wins for repeated names.
type Header struct {
	fields []headerField
}

// NewHeader .
func NewHeader() *Header {
	return &Header{}
}

func (h *Header) index(name string) int {
	for i := range h.fields {
		if strings.EqualFold(h.fields[i].name, name) {
			return i
		}
	}
	return -1
}

// Get returns the value of name, or "" if absent.
func (h *Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// Lookup .
func (h *Header) Lookup(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	if i := h.index(name); i >= 0 {
		return h.fields[i].value, true
	}
	return "", false
}

// Has .
func (h *Header) Has(name string) bool {
	_, ok := h.Lookup(name)
	return ok
}

// Set .
func (h *Header) Set(name, value string) {
	if i := h.index(name); i >= 0 {
		h.fields[i].value = value
		return
	}
	h.fields = append(h.fields, headerField{name: name, value: value})
}

// Del .
func (h *Header) Del(name string) {
	if i := h.index(name); i >= 0 {
		h.fields = append(h.fields[:i], h.fields[i+1:]...)
	}
}

// Len .
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Range calls f for every field in order until f returns false.
func (h *Header) Range(f func(name, value string) bool) {
	if h == nil {
		return
	}
	for _, field := range h.fields {
		if !f(field.name, field.value) {
			return
		}
	}
}

// Clone .
func (h *Header) Clone() *Header {
	if h == nil {
		return nil
	}
	return &Header{fields: append([]headerField(nil), h.fields...)}
}

// Reset removes every field.
func (h *Header) Reset() {
	h.fields = h.fields[:0]
}

// parseHeaderBlock parses the header lines of a message, the block between
// the start line and the empty line. Lines beginning with a space or tab
// continue the previous field.
func parseHeaderBlock(block string, h *Header) error {
	last := -1
	for len(block) > 0 {
		var line string
		if i := strings.IndexByte(block, '\n'); i >= 0 {
			line, block = block[:i], block[i+1:]
		} else {
			line, block = block, ""
		}
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			if last < 0 {
				return ErrInvalidHeader
			}
			cont := strings.Trim(line, " \t")
			if !httpguts.ValidHeaderFieldValue(cont) {
				return ErrInvalidHeader
			}
			if h.fields[last].value == "" {
				h.fields[last].value = cont
			} else if cont != "" {
				h.fields[last].value += " " + cont
			}
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return ErrInvalidHeader
		}
		name := strings.TrimRight(line[:colon], " \t")
		value := strings.Trim(line[colon+1:], " \t")
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return ErrInvalidHeader
		}

		h.Set(name, value)
		last = h.index(name)
	}
	return nil
}
