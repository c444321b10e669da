// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build darwin || netbsd || freebsd || openbsd || dragonfly
// +build darwin netbsd freebsd openbsd dragonfly

package nodehttp

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// poll(2) keeps no kernel-side registration, the descriptor is only
// referenced for the duration of one call.
type sysPoller struct{}

func (p *sysPoller) open() error { return nil }

func (p *sysPoller) close() error { return nil }

func (p *sysPoller) wait(fd int, ev Event, d time.Duration) (Event, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: toPoll(ev)}}
	msec := durationToMsec(d)
	for {
		n, err := unix.Poll(fds, msec)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, nil
		}
		return fromPoll(fds[0].Revents), nil
	}
}

func toPoll(ev Event) int16 {
	var e int16
	if ev&EventRead != 0 {
		e |= unix.POLLIN
	}
	if ev&EventPri != 0 {
		e |= unix.POLLPRI
	}
	if ev&EventWrite != 0 {
		e |= unix.POLLOUT
	}
	return e
}

func fromPoll(e int16) Event {
	var ev Event
	if e&unix.POLLIN != 0 {
		ev |= EventRead
	}
	if e&unix.POLLPRI != 0 {
		ev |= EventPri
	}
	if e&unix.POLLOUT != 0 {
		ev |= EventWrite
	}
	if e&unix.POLLERR != 0 {
		ev |= EventErr
	}
	if e&unix.POLLHUP != 0 {
		ev |= EventHup
	}
	if e&unix.POLLNVAL != 0 {
		ev |= EventInvalid
	}
	return ev
}
