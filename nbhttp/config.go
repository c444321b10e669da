// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

import (
	"github.com/lesismal/nodehttp/mempool"
)

// DefaultChunkSize is the send and receive quantum.
const DefaultChunkSize = 32 * 1024

// Config holds the per-connection framing limits. Zero values take the
// defaults, a zero limit means unlimited.
type Config struct {
	// ChunkSize is the most bytes handed to one send or receive.
	ChunkSize int

	MaxStartLineLength int
	MaxHeaderLength    int
	MaxBodyLength      int

	// Codec decodes received bodies, JSONCodec by default.
	Codec Codec

	Allocator mempool.Allocator
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Codec == nil {
		c.Codec = JSONCodec{}
	}
	if c.Allocator == nil {
		c.Allocator = mempool.DefaultMemPool
	}
	return c
}
