// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package lmux

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lesismal/nodehttp/logging"
)

type event struct {
	err  error
	conn net.Conn
}

// ListenerMux dispatches the connections accepted on one listener: while
// fewer than maxOnline of them are open they go to the primary listener,
// the others to the overflow listener.
type ListenerMux struct {
	ln        net.Listener
	online    int32
	maxOnline int32

	primary  *ChanListener
	overflow *ChanListener

	shutdown  int32
	chClose   chan struct{}
	closeOnce sync.Once
}

// New returns a ListenerMux for ln.
func New(ln net.Listener, maxOnline int) *ListenerMux {
	lm := &ListenerMux{
		ln:        ln,
		maxOnline: int32(maxOnline),
		chClose:   make(chan struct{}),
	}
	lm.primary = &ChanListener{addr: ln.Addr(), chEvent: make(chan event, 1024), chClose: lm.chClose}
	lm.overflow = &ChanListener{addr: ln.Addr(), chEvent: make(chan event, 1024), chClose: lm.chClose}
	return lm
}

// Listeners returns the primary and the overflow listener.
func (lm *ListenerMux) Listeners() (*ChanListener, *ChanListener) {
	return lm.primary, lm.overflow
}

// Online returns the number of open primary connections.
func (lm *ListenerMux) Online() int {
	return int(atomic.LoadInt32(&lm.online))
}

// Start accepts and dispatches connections until Stop.
func (lm *ListenerMux) Start() {
	go func() {
		for atomic.LoadInt32(&lm.shutdown) == 0 {
			c, err := lm.ln.Accept()
			if err != nil {
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					logging.Error("Accept failed: timeout error, retrying...")
					time.Sleep(time.Second / 20)
					continue
				}
				if atomic.LoadInt32(&lm.shutdown) == 0 {
					logging.Error("Accept failed: %v, exit...", err)
				}
				lm.Stop()
				return
			}

			if atomic.AddInt32(&lm.online, 1) <= lm.maxOnline {
				lm.primary.push(event{conn: &trackedConn{Conn: c, done: lm.decrease}})
			} else {
				atomic.AddInt32(&lm.online, -1)
				lm.overflow.push(event{conn: c})
			}
		}
	}()
}

// Stop closes the listener, Accept of both listeners returns net.ErrClosed.
func (lm *ListenerMux) Stop() {
	lm.closeOnce.Do(func() {
		atomic.StoreInt32(&lm.shutdown, 1)
		lm.ln.Close()
		close(lm.chClose)
	})
}

func (lm *ListenerMux) decrease() {
	atomic.AddInt32(&lm.online, -1)
}

// trackedConn gives its slot back on the first Close.
type trackedConn struct {
	net.Conn
	once sync.Once
	done func()
}

func (c *trackedConn) Close() error {
	c.once.Do(c.done)
	return c.Conn.Close()
}

// ChanListener is a net.Listener fed by a ListenerMux.
type ChanListener struct {
	addr    net.Addr
	chEvent chan event
	chClose chan struct{}
}

func (l *ChanListener) push(e event) {
	select {
	case l.chEvent <- e:
	case <-l.chClose:
		e.conn.Close()
	}
}

// Accept .
func (l *ChanListener) Accept() (net.Conn, error) {
	select {
	case e := <-l.chEvent:
		return e.conn, e.err
	case <-l.chClose:
		return nil, net.ErrClosed
	}
}

// Close does nothing, ListenerMux.Stop closes both listeners.
func (l *ChanListener) Close() error {
	return nil
}

// Addr .
func (l *ChanListener) Addr() net.Addr {
	return l.addr
}
