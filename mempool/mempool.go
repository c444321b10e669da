// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mempool

import (
	"sync"
)

// Allocator hands out byte buffers for socket reads and message assembly.
type Allocator interface {
	Malloc(size int) []byte
	Realloc(buf []byte, size int) []byte
	Append(buf []byte, more ...byte) []byte
	AppendString(buf []byte, more string) []byte
	Free(buf []byte)
}

// DefaultMemPool .
var DefaultMemPool = New(32*1024, 1024*1024)

// MemPool recycles buffers up to freeSize bytes through a sync.Pool. Larger
// buffers are left to the garbage collector.
type MemPool struct {
	bufSize  int
	freeSize int
	pool     *sync.Pool
}

// New .
func New(bufSize, freeSize int) Allocator {
	if bufSize <= 0 {
		bufSize = 64
	}
	if freeSize <= 0 {
		freeSize = 64 * 1024
	}
	if freeSize < bufSize {
		freeSize = bufSize
	}

	mp := &MemPool{
		bufSize:  bufSize,
		freeSize: freeSize,
		pool:     &sync.Pool{},
	}
	mp.pool.New = func() interface{} {
		buf := make([]byte, bufSize)
		return &buf
	}

	return mp
}

// Malloc .
func (mp *MemPool) Malloc(size int) []byte {
	if size > mp.freeSize {
		return make([]byte, size)
	}
	pbuf := mp.pool.Get().(*[]byte)
	if cap(*pbuf) < size {
		*pbuf = make([]byte, size)
	}
	return (*pbuf)[:size]
}

// Realloc .
func (mp *MemPool) Realloc(buf []byte, size int) []byte {
	if size <= cap(buf) {
		return buf[:size]
	}
	newBuf := mp.Malloc(size)
	copy(newBuf, buf)
	mp.Free(buf)
	return newBuf
}

// Append .
func (mp *MemPool) Append(buf []byte, more ...byte) []byte {
	if len(buf)+len(more) <= cap(buf) {
		return append(buf, more...)
	}
	return append(mp.grow(buf, len(more)), more...)
}

// AppendString .
func (mp *MemPool) AppendString(buf []byte, more string) []byte {
	if len(buf)+len(more) <= cap(buf) {
		return append(buf, more...)
	}
	return append(mp.grow(buf, len(more)), more...)
}

// grow returns buf with room for n more bytes, doubling its capacity at
// least.
func (mp *MemPool) grow(buf []byte, n int) []byte {
	newCap := 2 * cap(buf)
	if newCap < len(buf)+n {
		newCap = len(buf) + n
	}
	newBuf := mp.Malloc(newCap)[:len(buf)]
	copy(newBuf, buf)
	mp.Free(buf)
	return newBuf
}

// Free .
func (mp *MemPool) Free(buf []byte) {
	if cap(buf) == 0 || cap(buf) > mp.freeSize {
		return
	}
	buf = buf[:cap(buf)]
	mp.pool.Put(&buf)
}

// Malloc .
func Malloc(size int) []byte {
	return DefaultMemPool.Malloc(size)
}

// Realloc .
func Realloc(buf []byte, size int) []byte {
	return DefaultMemPool.Realloc(buf, size)
}

// Append .
func Append(buf []byte, more ...byte) []byte {
	return DefaultMemPool.Append(buf, more...)
}

// AppendString .
func AppendString(buf []byte, more string) []byte {
	return DefaultMemPool.AppendString(buf, more)
}

// Free .
func Free(buf []byte) {
	DefaultMemPool.Free(buf)
}
