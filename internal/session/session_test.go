package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/coder/websocket"
)

// fakeConn is an in-memory wsConn stand-in; Read/Write are unused by
// the dispatch-level tests below, but must satisfy the interface.
type fakeConn struct{}

func (fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	<-ctx.Done()
	return 0, nil, ctx.Err()
}
func (fakeConn) Write(ctx context.Context, typ websocket.MessageType, data []byte) error { return nil }
func (fakeConn) Close(code websocket.StatusCode, reason string) error                    { return nil }

func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}
	return NewSession(ws, fakeConn{}), root
}

func TestDispatchGetDirectory(t *testing.T) {
	sess, _ := newTestSession(t)
	env := struct {
		Type string `json:"type"`
		Path string `json:"path"`
	}{Type: TypeGetDirectory}
	raw, _ := json.Marshal(env)

	resp, typ := sess.dispatch(raw)
	if typ != TypeGetDirectory {
		t.Fatalf("got type %q", typ)
	}
	content, ok := resp.(outDirectoryContent)
	if !ok {
		t.Fatalf("unexpected response type %T", resp)
	}
	found := false
	for _, n := range content.Content {
		if n.Name == "a.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a.txt in directory listing, got %+v", content.Content)
	}
}

func TestDispatchOpenFileAndCloseFileNoReply(t *testing.T) {
	sess, _ := newTestSession(t)

	openEnv := struct {
		Type string `json:"type"`
		Path string `json:"path"`
	}{Type: TypeOpenFile, Path: "a.txt"}
	raw, _ := json.Marshal(openEnv)

	resp, typ := sess.dispatch(raw)
	if typ != TypeOpenFile {
		t.Fatalf("got type %q", typ)
	}
	doc, ok := resp.(outDocumentContent)
	if !ok {
		t.Fatalf("unexpected response type %T", resp)
	}
	if doc.Content != "hello\n" || doc.Version != 0 {
		t.Fatalf("unexpected doc %+v", doc)
	}

	closeEnv := struct {
		Type string `json:"type"`
		Path string `json:"path"`
	}{Type: TypeCloseFile, Path: "a.txt"}
	raw, _ = json.Marshal(closeEnv)

	_, typ = sess.dispatch(raw)
	if typ != typeSuccess {
		t.Fatalf("expected internal no-reply sentinel, got %q", typ)
	}
}

func TestDispatchUnknownTypeYieldsError(t *testing.T) {
	sess, _ := newTestSession(t)
	raw, _ := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: "NotARealType"})

	resp, typ := sess.dispatch(raw)
	if typ != TypeError {
		t.Fatalf("expected error type, got %q", typ)
	}
	if _, ok := resp.(outError); !ok {
		t.Fatalf("expected outError, got %T", resp)
	}
}

func TestDispatchOutsideWorkspaceYieldsError(t *testing.T) {
	sess, _ := newTestSession(t)
	raw, _ := json.Marshal(struct {
		Type string `json:"type"`
		Path string `json:"path"`
	}{Type: TypeOpenFile, Path: "../../etc/passwd"})

	resp, typ := sess.dispatch(raw)
	if typ != TypeError {
		t.Fatalf("expected error type for path escape, got %q", typ)
	}
	if _, ok := resp.(outError); !ok {
		t.Fatalf("expected outError, got %T", resp)
	}
}
