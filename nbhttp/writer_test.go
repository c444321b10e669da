package nbhttp

import (
	"context"
	"io"
	"reflect"
	"strconv"
	"testing"

	"github.com/lesismal/nodehttp"
)

func TestWriteRequest(t *testing.T) {
	s, peer := socketPair(t)
	w := NewWriter(newOperator(t), Config{ChunkSize: 7})

	msg := NewRequest(MethodPut, "/2/instances", HTTP11)
	msg.Header.Set(HeaderHost, "localhost")
	if err := msg.SetBody(JSONCodec{}, map[string]int{"a": 1}); err != nil {
		t.Fatalf("SetBody failed: %v", err)
	}

	if err := w.Write(context.Background(), s, msg, testTimeout); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	s.Shutdown(nodehttp.ShutWrite)

	data, err := io.ReadAll(peer)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	want := "PUT /2/instances HTTP/1.1\r\n" +
		"Host: localhost\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 7\r\n" +
		"\r\n" +
		`{"a":1}`
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}

func TestWriteResponseWithoutBody(t *testing.T) {
	s, peer := socketPair(t)
	w := NewWriter(newOperator(t), Config{})
	w.HasBody = func(msg *Message) bool {
		return ResponseHasBody(MethodHead, msg.StatusLine().Code)
	}

	msg := NewResponse(HTTP11, StatusOK, "OK")
	msg.Body = []byte("hello")
	if err := w.Write(context.Background(), s, msg, testTimeout); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	s.Shutdown(nodehttp.ShutWrite)

	data, _ := io.ReadAll(peer)
	want := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n"
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}

func TestWriteNoStartLine(t *testing.T) {
	s, _ := socketPair(t)
	w := NewWriter(newOperator(t), Config{})
	if err := w.Write(context.Background(), s, &Message{}, testTimeout); err != ErrNoStartLine {
		t.Fatalf("got %v", err)
	}
}

func TestResponseHasBody(t *testing.T) {
	cases := []struct {
		method string
		code   int
		want   bool
	}{
		{MethodGet, 200, true},
		{MethodHead, 200, false},
		{MethodGet, 101, false},
		{MethodGet, 204, false},
		{MethodGet, 304, false},
		{MethodPost, 404, true},
	}
	for _, c := range cases {
		if got := ResponseHasBody(c.method, c.code); got != c.want {
			t.Fatalf("%s %d: got %v", c.method, c.code, got)
		}
	}
}

func TestWriteReadLoopback(t *testing.T) {
	a, b := handlePair(t)
	w := NewWriter(newOperator(t), Config{})
	r := NewResponseReader(newOperator(t), Config{})

	msg := NewResponse(HTTP11, StatusOK, "OK")
	body := map[string]interface{}{"name": "inst1", "tags": []interface{}{"a", "b"}}
	if err := msg.SetBody(JSONCodec{}, body); err != nil {
		t.Fatalf("SetBody failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Write(context.Background(), a, msg, testTimeout)
	}()

	got, err := r.Read(context.Background(), b, nil, testTimeout)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if got.Header.Get(HeaderContentLength) != strconv.Itoa(len(msg.Body)) {
		t.Fatalf("Content-Length: %q", got.Header.Get(HeaderContentLength))
	}
	want, _ := JSONCodec{}.Decode(msg.Body)
	if !reflect.DeepEqual(got.DecodedBody, want) {
		t.Fatalf("decoded body: %#v, want %#v", got.DecodedBody, want)
	}
}
