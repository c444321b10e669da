// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Codec translates between message body bytes and application values.
type Codec interface {
	ContentType() string
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte) (interface{}, error)
}

// JSONCodec is the default body codec.
type JSONCodec struct{}

// ContentType .
func (JSONCodec) ContentType() string { return "application/json" }

// Encode .
func (JSONCodec) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Decode decodes exactly one JSON value. Numbers are kept as json.Number.
func (JSONCodec) Decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid character after top-level value")
	}
	return v, nil
}
