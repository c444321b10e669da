// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nodehttp

import "strings"

// Event is a set of readiness conditions on a socket.
type Event uint32

const (
	EventRead Event = 1 << iota
	EventPri
	EventWrite
	EventErr
	EventHup
	EventInvalid
)

// EventExceptional is always waited for, whatever the caller asked.
const EventExceptional = EventPri | EventErr | EventHup | EventInvalid

// Has reports whether e shares any condition with other.
func (e Event) Has(other Event) bool {
	return e&other != 0
}

func (e Event) String() string {
	if e == 0 {
		return "none"
	}
	names := []string{}
	for _, v := range []struct {
		ev   Event
		name string
	}{
		{EventRead, "read"},
		{EventPri, "pri"},
		{EventWrite, "write"},
		{EventErr, "err"},
		{EventHup, "hup"},
		{EventInvalid, "invalid"},
	} {
		if e&v.ev != 0 {
			names = append(names, v.name)
		}
	}
	return strings.Join(names, "|")
}
