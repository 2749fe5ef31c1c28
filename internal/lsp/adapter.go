package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ehrlich-b/wscode/internal/apierr"
	"github.com/ehrlich-b/wscode/internal/config"
	"github.com/ehrlich-b/wscode/internal/logger"
)

// Position is a 0-based line, UTF-16-code-unit character position, as
// used by the wire protocol and forwarded verbatim into LSP params.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type session struct {
	name   string
	cmd    *exec.Cmd
	client *Client
}

// Adapter resolves a file extension to a configured server name,
// lazily spawns and initializes that server's child process on first
// use, and exposes position-based requests plus the three
// lifecycle notifications.
type Adapter struct {
	workspaceRoot string
	extensionMap  map[string]string
	configs       map[string]config.LspServerConfig

	mu      sync.Mutex
	active  map[string]*session
}

func NewAdapter(workspaceRoot string, servers []config.LspServerConfig) *Adapter {
	a := &Adapter{
		workspaceRoot: workspaceRoot,
		extensionMap:  make(map[string]string),
		configs:       make(map[string]config.LspServerConfig),
		active:        make(map[string]*session),
	}
	for _, sc := range servers {
		a.configs[sc.Name] = sc
		for _, ext := range sc.FileExtensions {
			a.extensionMap[strings.TrimPrefix(ext, ".")] = sc.Name
		}
	}
	return a
}

func (a *Adapter) serverNameFor(path string) (string, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	name, ok := a.extensionMap[ext]
	return name, ok
}

// getServer resolves the server for path, returning the existing
// session, a freshly initialized one, or (nil, nil) if no server is
// configured for this extension — a non-fatal condition.
func (a *Adapter) getServer(path string) (*session, error) {
	name, ok := a.serverNameFor(path)
	if !ok {
		return nil, nil
	}

	a.mu.Lock()
	if s, ok := a.active[name]; ok {
		a.mu.Unlock()
		return s, nil
	}
	a.mu.Unlock()

	s, err := a.initializeServer(name)
	if err != nil {
		logger.Warn("lsp: failed to start server", "server", name, "err", err)
		return nil, nil
	}

	a.mu.Lock()
	a.active[name] = s
	a.mu.Unlock()
	return s, nil
}

func (a *Adapter) initializeServer(name string) (*session, error) {
	sc, ok := a.configs[name]
	if !ok {
		return nil, fmt.Errorf("no configuration for server %q", name)
	}

	cmd := exec.Command(sc.ServerPath, sc.ServerArgs...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	go drainStderr(name, stderr)

	client := NewClient(name, stdin, stdout, func(method string, params json.RawMessage) {
		if method == "textDocument/publishDiagnostics" {
			logger.Debug("lsp: diagnostics", "server", name, "params", string(params))
			return
		}
		logger.Debug("lsp: notification", "server", name, "method", method)
	})

	workspaceURI := "file://" + filepath.ToSlash(a.workspaceRoot)
	if u, err := url.Parse(workspaceURI); err == nil {
		workspaceURI = u.String()
	}

	params := map[string]any{
		"processId": os.Getpid(),
		"clientInfo": map[string]any{
			"name":    "wscode",
			"version": "0.1.0",
		},
		"locale": "en-us",
		"trace":  "verbose",
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"completion": map[string]any{},
				"hover":      map[string]any{},
				"definition": map[string]any{},
			},
		},
		"workspaceFolders": []map[string]any{
			{"uri": workspaceURI, "name": filepath.Base(a.workspaceRoot)},
		},
	}
	if sc.InitOptions != nil {
		params["initializationOptions"] = sc.InitOptions
	}

	ctx := context.Background()
	result, err := client.SendRequest(ctx, "initialize", params)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}
	client.SetCapabilities(result)

	// Best-effort; failure to notify "initialized" does not abort
	// the session.
	if err := client.SendNotification("initialized", map[string]any{}); err != nil {
		logger.Warn("lsp: initialized notification failed", "server", name, "err", err)
	}

	return &session{name: name, cmd: cmd, client: client}, nil
}

func drainStderr(name string, r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			logger.Debug("lsp: stderr", "server", name, "line", string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

func fileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

func (a *Adapter) NotifyOpened(path, languageID, text string) {
	s, err := a.getServer(path)
	if err != nil || s == nil {
		return
	}
	_ = s.client.SendNotification("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{
			"uri":        fileURI(path),
			"languageId": languageID,
			"version":    1,
			"text":       text,
		},
	})
}

func (a *Adapter) NotifyChanged(path string, version int64, text string) {
	s, err := a.getServer(path)
	if err != nil || s == nil {
		return
	}
	_ = s.client.SendNotification("textDocument/didChange", map[string]any{
		"textDocument": map[string]any{
			"uri":     fileURI(path),
			"version": version,
		},
		"contentChanges": []map[string]any{{"text": text}},
	})
}

func (a *Adapter) NotifySaved(path, text string) {
	s, err := a.getServer(path)
	if err != nil || s == nil {
		return
	}
	_ = s.client.SendNotification("textDocument/didSave", map[string]any{
		"textDocument": map[string]any{"uri": fileURI(path)},
		"text":         text,
	})
}

func (a *Adapter) sendPositionRequest(ctx context.Context, method, path string, pos Position) (json.RawMessage, error) {
	s, err := a.getServer(path)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apierr.New(apierr.NoServerForExt, path)
	}
	return s.client.SendRequest(ctx, method, map[string]any{
		"textDocument": map[string]any{"uri": fileURI(path)},
		"position":     pos,
	})
}

func (a *Adapter) Completion(ctx context.Context, path string, pos Position) (json.RawMessage, error) {
	return a.sendPositionRequest(ctx, "textDocument/completion", path, pos)
}

func (a *Adapter) Hover(ctx context.Context, path string, pos Position) (json.RawMessage, error) {
	return a.sendPositionRequest(ctx, "textDocument/hover", path, pos)
}

func (a *Adapter) Definition(ctx context.Context, path string, pos Position) (json.RawMessage, error) {
	return a.sendPositionRequest(ctx, "textDocument/definition", path, pos)
}

// LanguageIDFor maps a file extension to an LSP languageId.
func LanguageIDFor(path string) string {
	switch strings.TrimPrefix(filepath.Ext(path), ".") {
	case "go":
		return "go"
	case "py":
		return "python"
	case "js":
		return "javascript"
	case "ts":
		return "typescript"
	case "rs":
		return "rust"
	default:
		return "plaintext"
	}
}
