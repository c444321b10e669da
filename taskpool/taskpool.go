// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package taskpool

import (
	"errors"
	"sync"
	"sync/atomic"
)

const (
	runningFlag = iota
	closedFlag
)

// ErrStopped is returned by Go after Stop.
var ErrStopped = errors.New("taskpool stopped")

// TaskPool runs tasks on at most maxConcurrent goroutines, one of them the
// dispatcher draining the queue. Tasks beyond
// that wait in a bounded queue, Go blocks while the queue is full. A server
// hands every accepted connection to Go, each task owning its connection
// from the first request to the close.
type TaskPool struct {
	concurrent    int64
	maxConcurrent int64
	closed        int64
	chQueue       chan func()
	chClose       chan struct{}
	wg            sync.WaitGroup
}

// Go runs f on a pool goroutine.
func (tp *TaskPool) Go(f func()) error {
	if f == nil {
		return nil
	}
	if tp.isClosed() {
		return ErrStopped
	}

	if atomic.AddInt64(&tp.concurrent, 1) <= tp.maxConcurrent {
		tp.wg.Add(1)
		go func() {
			defer func() {
				atomic.AddInt64(&tp.concurrent, -1)
				tp.wg.Done()
			}()
			call(f)
			for {
				select {
				case f = <-tp.chQueue:
					call(f)
				default:
					return
				}
			}
		}()
		return nil
	}

	atomic.AddInt64(&tp.concurrent, -1)
	select {
	case tp.chQueue <- f:
		return nil
	case <-tp.chClose:
		return ErrStopped
	}
}

// Running returns the number of busy goroutines.
func (tp *TaskPool) Running() int {
	return int(atomic.LoadInt64(&tp.concurrent))
}

func (tp *TaskPool) isClosed() bool {
	return atomic.LoadInt64(&tp.closed) == closedFlag
}

func (tp *TaskPool) setClosed() bool {
	return atomic.CompareAndSwapInt64(&tp.closed, runningFlag, closedFlag)
}

// Stop rejects new tasks and waits for the running ones. Queued tasks are
// still run.
func (tp *TaskPool) Stop() {
	if !tp.setClosed() {
		return
	}
	close(tp.chClose)
	tp.wg.Wait()
}

// New .
func New(maxConcurrent int, queueSize int) *TaskPool {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	tp := &TaskPool{
		maxConcurrent: int64(maxConcurrent - 1),
		chQueue:       make(chan func(), queueSize),
		chClose:       make(chan struct{}),
	}

	tp.wg.Add(1)
	go func() {
		defer tp.wg.Done()
		for {
			select {
			case f := <-tp.chQueue:
				call(f)
			case <-tp.chClose:
				for {
					select {
					case f := <-tp.chQueue:
						call(f)
					default:
						return
					}
				}
			}
		}
	}()
	return tp
}
