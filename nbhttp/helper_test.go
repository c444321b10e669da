package nbhttp

import (
	"net"
	"os"
	"testing"

	"github.com/lesismal/nodehttp"
	"golang.org/x/sys/unix"
)

func fileConn(t *testing.T, fd int, name string) net.Conn {
	f := os.NewFile(uintptr(fd), name)
	defer f.Close()
	c, err := net.FileConn(f)
	if err != nil {
		t.Fatalf("FileConn failed: %v", err)
	}
	return c
}

// socketPair returns a Socket and the raw connection of its peer.
func socketPair(t *testing.T) (*nodehttp.Socket, *net.UnixConn) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair failed: %v", err)
	}
	local := fileConn(t, fds[0], "local")
	peer := fileConn(t, fds[1], "peer")
	s, err := nodehttp.NewSocket(local)
	if err != nil {
		t.Fatalf("NewSocket failed: %v", err)
	}
	t.Cleanup(func() {
		local.Close()
		peer.Close()
	})
	return s, peer.(*net.UnixConn)
}

// handlePair returns both ends of a stream as Sockets.
func handlePair(t *testing.T) (*nodehttp.Socket, *nodehttp.Socket) {
	a, peer := socketPair(t)
	b, err := nodehttp.NewSocket(peer)
	if err != nil {
		t.Fatalf("NewSocket failed: %v", err)
	}
	return a, b
}

func newOperator(t *testing.T) *nodehttp.Operator {
	p, err := nodehttp.NewPoller()
	if err != nil {
		t.Fatalf("NewPoller failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return nodehttp.NewOperator(p)
}
