package nodehttp

import (
	"context"
	"errors"
	"io"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

type waitResult struct {
	ev  Event
	ok  bool
	err error
}

// fakeWaiter replays scripted readiness results and records what was awaited.
type fakeWaiter struct {
	results []waitResult
	awaited []Event
}

func (w *fakeWaiter) Wait(ctx context.Context, h Pollable, ev Event, timeout time.Duration) (Event, bool, error) {
	w.awaited = append(w.awaited, ev)
	if len(w.results) == 0 {
		return 0, false, nil
	}
	r := w.results[0]
	w.results = w.results[1:]
	return r.ev, r.ok, r.err
}

type attemptResult struct {
	n   int
	err error
}

// fakeHandle replays scripted attempt results.
type fakeHandle struct {
	results  []attemptResult
	calls    int
	shutHow  int
	buffered int
}

func (h *fakeHandle) SyscallConn() (syscall.RawConn, error) { return nil, nil }

func (h *fakeHandle) next() (int, error) {
	h.calls++
	if len(h.results) == 0 {
		return 0, errors.New("unexpected attempt")
	}
	r := h.results[0]
	h.results = h.results[1:]
	return r.n, r.err
}

func (h *fakeHandle) Send(b []byte) (int, error) {
	n, err := h.next()
	if err == nil && len(b) == 0 && h.buffered > 0 {
		h.buffered -= n
	}
	return n, err
}

func (h *fakeHandle) Recv(b []byte) (int, error) { return h.next() }

func (h *fakeHandle) Shutdown(how int) error {
	h.shutHow = how
	_, err := h.next()
	return err
}

func (h *fakeHandle) Close() error { return nil }

type bufferedHandle struct {
	*fakeHandle
}

func (h bufferedHandle) Buffered() int { return h.buffered }

var (
	readable = waitResult{ev: EventRead, ok: true}
	writable = waitResult{ev: EventWrite, ok: true}
)

func TestOperatorRecv(t *testing.T) {
	w := &fakeWaiter{results: []waitResult{readable}}
	h := &fakeHandle{results: []attemptResult{{n: 5}}}
	n, err := NewOperator(w).Recv(context.Background(), h, make([]byte, 8), time.Second)
	if err != nil || n != 5 {
		t.Fatalf("Recv: n=%d err=%v", n, err)
	}
	if w.awaited[0] != EventRead|EventPri {
		t.Fatalf("awaited %v", w.awaited[0])
	}
}

func TestOperatorTimeout(t *testing.T) {
	w := &fakeWaiter{results: []waitResult{{ok: false}}}
	h := &fakeHandle{}
	_, err := NewOperator(w).Send(context.Background(), h, []byte("x"), time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("got %v", err)
	}
	if h.calls != 0 {
		t.Fatalf("attempted %d times after timeout", h.calls)
	}
}

func TestOperatorHangupIsEOF(t *testing.T) {
	w := &fakeWaiter{results: []waitResult{{ev: EventHup, ok: true}}}
	h := &fakeHandle{}
	n, err := NewOperator(w).Recv(context.Background(), h, make([]byte, 8), time.Second)
	if n != 0 || err != nil {
		t.Fatalf("Recv: n=%d err=%v", n, err)
	}
	if h.calls != 0 {
		t.Fatalf("attempted %d times on hangup", h.calls)
	}
}

func TestOperatorTLSRetrySignals(t *testing.T) {
	w := &fakeWaiter{results: []waitResult{writable, readable, writable, writable}}
	h := &fakeHandle{results: []attemptResult{
		{err: ErrWantRead},
		{err: ErrWantWrite},
		{err: ErrWantLookup},
		{n: 3},
	}}
	n, err := NewOperator(w).Send(context.Background(), h, []byte("abc"), time.Second)
	if err != nil || n != 3 {
		t.Fatalf("Send: n=%d err=%v", n, err)
	}
	want := []Event{EventWrite, EventRead | EventPri, EventWrite, EventWrite}
	for i, ev := range want {
		if w.awaited[i] != ev {
			t.Fatalf("wait %d: got %v, want %v", i, w.awaited[i], ev)
		}
	}
}

func TestOperatorMismatchedEventRetries(t *testing.T) {
	w := &fakeWaiter{results: []waitResult{{ev: EventPri, ok: true}, writable}}
	h := &fakeHandle{results: []attemptResult{{n: 1}}}
	n, err := NewOperator(w).Send(context.Background(), h, []byte("a"), time.Second)
	if err != nil || n != 1 || h.calls != 1 {
		t.Fatalf("Send: n=%d err=%v calls=%d", n, err, h.calls)
	}
}

func TestOperatorEAGAINAbsorbed(t *testing.T) {
	w := &fakeWaiter{results: []waitResult{readable, readable, readable}}
	h := &fakeHandle{results: []attemptResult{{err: unix.EAGAIN}, {err: unix.EINTR}, {n: 2}}}
	n, err := NewOperator(w).Recv(context.Background(), h, make([]byte, 8), time.Second)
	if err != nil || n != 2 {
		t.Fatalf("Recv: n=%d err=%v", n, err)
	}
}

func TestOperatorSyscallErrors(t *testing.T) {
	op := NewOperator(&fakeWaiter{results: []waitResult{writable}})
	h := &fakeHandle{results: []attemptResult{{err: &SyscallError{Code: 32, Msg: "broken pipe"}}}}
	if n, err := op.Send(context.Background(), h, nil, time.Second); n != 0 || err != nil {
		t.Fatalf("empty Send: n=%d err=%v", n, err)
	}

	op = NewOperator(&fakeWaiter{results: []waitResult{readable}})
	h = &fakeHandle{results: []attemptResult{{err: &SyscallError{Code: -1, Msg: UnexpectedEOF}}}}
	if n, err := op.Recv(context.Background(), h, make([]byte, 8), time.Second); n != 0 || err != nil {
		t.Fatalf("unexpected EOF Recv: n=%d err=%v", n, err)
	}

	op = NewOperator(&fakeWaiter{results: []waitResult{readable}})
	h = &fakeHandle{results: []attemptResult{{err: &SyscallError{Code: 104, Msg: "connection reset"}}}}
	_, err := op.Recv(context.Background(), h, make([]byte, 8), time.Second)
	var ioe *IOError
	if !errors.As(err, &ioe) || ioe.Op != "recv" {
		t.Fatalf("got %v", err)
	}

	op = NewOperator(&fakeWaiter{results: []waitResult{readable}})
	h = &fakeHandle{results: []attemptResult{{err: &TLSError{Err: errors.New("bad record mac")}}}}
	_, err = op.Recv(context.Background(), h, make([]byte, 8), time.Second)
	var te *TLSError
	if !errors.As(err, &ioe) || !errors.As(err, &te) {
		t.Fatalf("got %v", err)
	}
}

func TestOperatorContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	op := NewOperator(&fakeWaiter{results: []waitResult{{err: context.Canceled}}})
	_, err := op.Recv(ctx, &fakeHandle{}, make([]byte, 1), 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}

func TestOperatorShutdown(t *testing.T) {
	w := &fakeWaiter{}
	h := &fakeHandle{results: []attemptResult{{}}}
	op := NewOperator(w)

	if err := op.Shutdown(context.Background(), h, ShutReadWrite, 0); !errors.Is(err, ErrShutdownTimeout) {
		t.Fatalf("got %v", err)
	}
	if err := op.Shutdown(context.Background(), h, ShutReadWrite, time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if len(w.awaited) != 0 {
		t.Fatalf("plain shutdown waited %v", w.awaited)
	}
	if h.shutHow != ShutReadWrite {
		t.Fatalf("how = %d", h.shutHow)
	}

	// A TLS close_notify that cannot be sent yet waits for writability.
	w = &fakeWaiter{results: []waitResult{writable}}
	h = &fakeHandle{results: []attemptResult{{err: ErrWantWrite}, {}}}
	if err := NewOperator(w).Shutdown(context.Background(), h, ShutReadWrite, time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if len(w.awaited) != 1 || w.awaited[0] != EventWrite {
		t.Fatalf("awaited %v", w.awaited)
	}
}

func TestOperatorFlush(t *testing.T) {
	fh := &fakeHandle{buffered: 10, results: []attemptResult{{n: 6}, {n: 4}}}
	w := &fakeWaiter{results: []waitResult{writable, writable}}
	if err := NewOperator(w).Flush(context.Background(), bufferedHandle{fh}, time.Second); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if fh.buffered != 0 {
		t.Fatalf("buffered = %d", fh.buffered)
	}

	fh = &fakeHandle{buffered: 10, results: []attemptResult{{n: 0}}}
	w = &fakeWaiter{results: []waitResult{writable}}
	err := NewOperator(w).Flush(context.Background(), bufferedHandle{fh}, time.Second)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("got %v", err)
	}
}

type readaheadHandle struct {
	*fakeHandle
}

func (h readaheadHandle) Readahead() bool { return true }

func TestOperatorReadaheadRecv(t *testing.T) {
	// Input already decoded by the handle is returned without a wait.
	w := &fakeWaiter{}
	h := readaheadHandle{&fakeHandle{results: []attemptResult{{n: 5}}}}
	n, err := NewOperator(w).Recv(context.Background(), h, make([]byte, 8), time.Second)
	if err != nil || n != 5 {
		t.Fatalf("Recv: n=%d err=%v", n, err)
	}
	if len(w.awaited) != 0 {
		t.Fatalf("waited for %v", w.awaited)
	}

	// Without buffered input the handle asks for readability.
	w = &fakeWaiter{results: []waitResult{readable}}
	h = readaheadHandle{&fakeHandle{results: []attemptResult{{err: ErrWantRead}, {n: 3}}}}
	n, err = NewOperator(w).Recv(context.Background(), h, make([]byte, 8), time.Second)
	if err != nil || n != 3 {
		t.Fatalf("Recv: n=%d err=%v", n, err)
	}
	if len(w.awaited) != 1 || w.awaited[0] != EventRead|EventPri {
		t.Fatalf("awaited %v", w.awaited)
	}

	// Only the first attempt skips the wait.
	w = &fakeWaiter{results: []waitResult{{ok: false}}}
	h = readaheadHandle{&fakeHandle{results: []attemptResult{{err: unix.EAGAIN}}}}
	_, err = NewOperator(w).Recv(context.Background(), h, make([]byte, 8), time.Millisecond)
	if !errors.Is(err, ErrTimeout) || h.calls != 1 {
		t.Fatalf("Recv: calls=%d err=%v", h.calls, err)
	}
}
