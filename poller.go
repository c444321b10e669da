// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nodehttp

import (
	"context"
	"errors"
	"syscall"
	"time"
)

// DefaultPollInterval bounds a single blocking wait so that cancellation and
// a concurrent Close are noticed.
const DefaultPollInterval = 100 * time.Millisecond

// Pollable is anything whose underlying descriptor can be waited on.
type Pollable interface {
	SyscallConn() (syscall.RawConn, error)
}

// Waiter blocks until a handle satisfies a readiness condition.
//
// Wait returns ok=false when timeout elapses. A zero or negative timeout
// waits indefinitely.
type Waiter interface {
	Wait(ctx context.Context, h Pollable, ev Event, timeout time.Duration) (got Event, ok bool, err error)
}

var errNilPollable = errors.New("nil pollable")

// Poller implements Waiter for socket descriptors. A Poller holds no state
// shared with other connections and is meant to be used by one at a time.
type Poller struct {
	// Interval is the longest single system wait, 0 means DefaultPollInterval.
	Interval time.Duration

	sys sysPoller
}

// NewPoller .
func NewPoller() (*Poller, error) {
	p := &Poller{}
	if err := p.sys.open(); err != nil {
		return nil, err
	}
	return p, nil
}

// Close releases the system resources held by the poller.
func (p *Poller) Close() error {
	return p.sys.close()
}

// Wait registers interest in ev plus EventExceptional on h and blocks until
// one of them occurs, the timeout elapses or ctx is done. The registration is
// dropped before Wait returns on every path.
func (p *Poller) Wait(ctx context.Context, h Pollable, ev Event, timeout time.Duration) (Event, bool, error) {
	if h == nil {
		return 0, false, errNilPollable
	}
	rc, err := h.SyscallConn()
	if err != nil {
		return 0, false, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	check := ev | EventExceptional
	for {
		slice := interval
		if !deadline.IsZero() {
			remain := time.Until(deadline)
			if remain <= 0 {
				return 0, false, nil
			}
			if remain < slice {
				slice = remain
			}
		}

		var got Event
		var werr error
		cerr := rc.Control(func(fd uintptr) {
			got, werr = p.sys.wait(int(fd), check, slice)
		})
		if cerr != nil {
			return 0, false, cerr
		}
		if werr != nil {
			return 0, false, werr
		}
		if got&check != 0 {
			return got, true, nil
		}

		select {
		case <-ctx.Done():
			return 0, false, ctx.Err()
		default:
		}
	}
}

func durationToMsec(d time.Duration) int {
	msec := int(d / time.Millisecond)
	if d%time.Millisecond != 0 {
		msec++
	}
	return msec
}
