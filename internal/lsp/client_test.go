package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"
)

// pipeServer feeds canned framed responses back to whatever the client
// writes, echoing back a result keyed by the request's id.
type pipeServer struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newPipeServer() (io.ReadWriter, *pipeServer) {
	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()
	srv := &pipeServer{r: serverR, w: serverW}
	return &rwPair{r: clientR, w: clientW}, srv
}

type rwPair struct {
	r io.Reader
	w io.Writer
}

func (p *rwPair) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *rwPair) Write(b []byte) (int, error) { return p.w.Write(b) }

func writeFramed(w io.Writer, payload []byte) error {
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(payload))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func TestClientSendRequestRoundTrip(t *testing.T) {
	clientSide, srv := newPipeServer()

	go func() {
		buf := make([]byte, 4096)
		n, err := srv.r.Read(buf)
		if err != nil {
			return
		}
		_ = buf[:n] // request bytes, not parsed: this test only checks response plumbing
		go io.Copy(io.Discard, srv.r)

		resp, _ := json.Marshal(rpcMessage{
			JSONRPC: "2.0",
			ID:      idPtr(1),
			Result:  json.RawMessage(`{"ok":true}`),
		})
		writeFramed(srv.w, resp)
	}()

	client := NewClient("test", clientSide, clientSide, nil)
	result, err := client.SendRequest(context.Background(), "initialize", map[string]any{"foo": "bar"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(result, []byte("true")) {
		t.Fatalf("got %s", result)
	}
}

func TestClientSendRequestTimeoutOnNoResponse(t *testing.T) {
	clientSide, srv := newPipeServer()
	go io.Copy(io.Discard, srv.r)
	client := NewClient("test", clientSide, clientSide, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.SendRequest(ctx, "textDocument/hover", map[string]any{})
	if err == nil {
		t.Fatal("expected error when context deadline exceeded before any response")
	}
}

func TestClientNotificationDelivered(t *testing.T) {
	clientSide, srv := newPipeServer()

	received := make(chan string, 1)
	client := NewClient("test", clientSide, clientSide, func(method string, params json.RawMessage) {
		received <- method
	})
	_ = client

	notif, _ := json.Marshal(rpcMessage{JSONRPC: "2.0", Method: "textDocument/publishDiagnostics", Params: json.RawMessage(`{}`)})
	writeFramed(srv.w, notif)

	select {
	case m := <-received:
		if m != "textDocument/publishDiagnostics" {
			t.Fatalf("got %q", m)
		}
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
}

func idPtr(v int64) *int64 { return &v }
