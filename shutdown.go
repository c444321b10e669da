// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package nodehttp

import (
	"context"
	"time"

	"github.com/lesismal/nodehttp/logging"
)

// Shutdown closes both directions of h.
//
// When peerWillClose is set and force is not, the peer is first given
// closeTimeout to close its side, so that our shutdown does not race data it
// still has in flight. Failures of that wait are ignored. The shutdown itself
// uses writeTimeout and any failure of it is returned as a *ShutdownError.
func (o *Operator) ShutdownConn(ctx context.Context, h Handle, closeTimeout, writeTimeout time.Duration, peerWillClose, force bool) error {
	if peerWillClose && !force {
		var b [1]byte
		n, err := o.Recv(ctx, h, b[:], closeTimeout)
		switch {
		case err != nil:
			logging.Debug("wait for peer close failed: %v", err)
		case n == 0:
			logging.Debug("peer closed connection")
		default:
			logging.Debug("peer sent data while expected to close")
		}
	}

	if err := o.Shutdown(ctx, h, ShutReadWrite, writeTimeout); err != nil {
		return &ShutdownError{Err: err}
	}
	return nil
}

// Shutdown runs the shutdown sequence on h with a fresh Poller.
func Shutdown(ctx context.Context, h Handle, closeTimeout, writeTimeout time.Duration, peerWillClose, force bool) error {
	p, err := NewPoller()
	if err != nil {
		return &ShutdownError{Err: &IOError{Op: "poller", Err: err}}
	}
	defer p.Close()
	return NewOperator(p).ShutdownConn(ctx, h, closeTimeout, writeTimeout, peerWillClose, force)
}
