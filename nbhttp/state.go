// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nbhttp

// parser states, strictly forward-moving.
const (
	stateStartLine int8 = iota
	stateHeaders
	stateBody
	stateComplete
)

var stateNames = [...]string{
	stateStartLine: "start-line",
	stateHeaders:   "headers",
	stateBody:      "entity-body",
	stateComplete:  "complete",
}

func stateName(s int8) string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
