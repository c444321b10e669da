// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build linux
// +build linux

package nodehttp

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

type sysPoller struct {
	epfd   int
	opened bool
	events [1]unix.EpollEvent
}

func (p *sysPoller) open() error {
	if p.opened {
		return nil
	}
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = fd
	p.opened = true
	return nil
}

func (p *sysPoller) close() error {
	if !p.opened {
		return nil
	}
	p.opened = false
	return unix.Close(p.epfd)
}

func (p *sysPoller) wait(fd int, ev Event, d time.Duration) (Event, error) {
	if err := p.open(); err != nil {
		return 0, err
	}

	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: toEpoll(ev),
		Fd:     int32(fd),
	})
	if err != nil {
		if errors.Is(err, unix.EBADF) {
			return EventInvalid, nil
		}
		return 0, err
	}
	defer unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)

	msec := durationToMsec(d)
	for {
		n, err := unix.EpollWait(p.epfd, p.events[:], msec)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, nil
		}
		return fromEpoll(p.events[0].Events), nil
	}
}

func toEpoll(ev Event) uint32 {
	var e uint32
	if ev&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if ev&EventPri != 0 {
		e |= unix.EPOLLPRI
	}
	if ev&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	// EPOLLERR and EPOLLHUP are always reported.
	return e
}

func fromEpoll(e uint32) Event {
	var ev Event
	if e&unix.EPOLLIN != 0 {
		ev |= EventRead
	}
	if e&unix.EPOLLPRI != 0 {
		ev |= EventPri
	}
	if e&unix.EPOLLOUT != 0 {
		ev |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		ev |= EventErr
	}
	if e&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		ev |= EventHup
	}
	return ev
}
