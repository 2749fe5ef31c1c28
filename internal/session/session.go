package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coder/websocket"

	"github.com/ehrlich-b/wscode/internal/apierr"
	"github.com/ehrlich-b/wscode/internal/document"
	"github.com/ehrlich-b/wscode/internal/logger"
	"github.com/ehrlich-b/wscode/internal/lsp"
	"github.com/ehrlich-b/wscode/internal/search"
	"github.com/ehrlich-b/wscode/internal/terminal"
	"github.com/ehrlich-b/wscode/internal/workspace"
)

type lspPositionFunc func(ctx context.Context, path string, pos lsp.Position) (json.RawMessage, error)

// wsConn is the subset of *websocket.Conn the session needs, narrowed
// to an interface so the fan-in loop can be driven by a fake in tests.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

const (
	fsEventBufferCap = 100
	fsFlushTimeout   = 100 * time.Millisecond
	writeTimeout     = 10 * time.Second
)

// Session owns one accepted connection's fair fan-in loop: it merges
// inbound requests with three independent producer buses (filesystem
// watcher, terminal, search) and serializes everything back onto a
// single outbound writer.
type Session struct {
	ws   *Workspace
	conn wsConn

	searcher *search.Searcher

	inbound chan []byte
	readErr chan error
}

func NewSession(ws *Workspace, conn wsConn) *Session {
	return &Session{
		ws:       ws,
		conn:     conn,
		searcher: search.NewSearcher(ws.Jail.Root(), ws.Settings.MaxSearchResultsPerBatch),
		inbound:  make(chan []byte, 16),
		readErr:  make(chan error, 1),
	}
}

// Run drives the fair select loop until the connection closes, the
// context is cancelled, or a write fails.
func (s *Session) Run(ctx context.Context) error {
	fsSub := s.ws.Watcher.Subscribe()
	defer s.ws.Watcher.Unsubscribe(fsSub)
	termSub := s.ws.Term.Subscribe()
	defer s.ws.Term.Unsubscribe(termSub)
	searchSub := s.searcher.Subscribe()
	defer s.searcher.Unsubscribe(searchSub)

	go s.readLoop(ctx)

	var fsBuffer []workspace.FileEvent
	flushTimer := time.NewTimer(fsFlushTimeout)
	defer flushTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-s.readErr:
			return err

		case raw := <-s.inbound:
			resp, typ := s.dispatch(raw)
			if typ == typeSuccess {
				continue
			}
			if err := s.write(ctx, resp); err != nil {
				return err
			}

		case ev := <-fsSub.C():
			fsBuffer = append(fsBuffer, ev)
			if len(fsBuffer) >= fsEventBufferCap {
				if err := s.flushFSEvents(ctx, &fsBuffer); err != nil {
					return err
				}
				flushTimer.Reset(fsFlushTimeout)
			}

		case <-flushTimer.C:
			if len(fsBuffer) > 0 {
				if err := s.flushFSEvents(ctx, &fsBuffer); err != nil {
					return err
				}
			}
			flushTimer.Reset(fsFlushTimeout)

		case ev := <-termSub.C():
			if err := s.forwardTerminalEvent(ctx, ev); err != nil {
				return err
			}

		case ev := <-searchSub.C():
			if err := s.forwardSearchEvent(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (s *Session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			s.readErr <- err
			return
		}
		select {
		case s.inbound <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) flushFSEvents(ctx context.Context, buf *[]workspace.FileEvent) error {
	events := *buf
	*buf = nil
	return s.write(ctx, outFileSystemEvents{Type: TypeFileSystemEvents, Events: events})
}

func (s *Session) forwardTerminalEvent(ctx context.Context, ev terminal.Event) error {
	switch ev.Kind {
	case terminal.EventOutput:
		return s.write(ctx, outTerminalOutput{Type: TypeTerminalOutput, TerminalID: ev.ID, Data: ev.Data})
	case terminal.EventError:
		return s.write(ctx, outTerminalError{Type: TypeTerminalError, TerminalID: ev.ID, Error: ev.Error})
	}
	return nil
}

func (s *Session) forwardSearchEvent(ctx context.Context, ev search.Event) error {
	if ev.Err != nil {
		return s.write(ctx, outError{Type: TypeError, Message: apierr.Message(ev.Err)})
	}
	return s.write(ctx, outSearchResults{Type: TypeSearchResults, SearchID: ev.SearchID, Items: ev.Items, IsComplete: ev.IsComplete})
}

func (s *Session) write(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return s.conn.Write(wctx, websocket.MessageText, data)
}

// dispatch decodes the envelope, routes by type, and returns the
// response payload to write plus the envelope type that was
// dispatched (used only to detect the internal-only "no reply"
// sentinel).
func (s *Session) dispatch(raw []byte) (any, string) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return outError{Type: TypeError, Message: "malformed message"}, TypeError
	}

	resp, err := s.handle(env.Type, raw)
	if err != nil {
		return outError{Type: TypeError, Message: apierr.Message(err)}, TypeError
	}
	if resp == nil {
		return nil, typeSuccess
	}
	return resp, env.Type
}

func (s *Session) handle(typ string, raw []byte) (any, error) {
	switch typ {
	case TypeGetDirectory:
		var m msgGetDirectory
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return s.getDirectory(m.Path, false)

	case TypeRefreshDirectory:
		var m msgRefreshDirectory
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return s.getDirectory(m.Path, true)

	case TypeOpenFile:
		var m msgOpenFile
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return s.openFile(m.Path)

	case TypeCloseFile:
		var m msgCloseFile
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		path, err := s.ws.Jail.Resolve(m.Path)
		if err != nil {
			return nil, err
		}
		s.ws.Docs.CloseFile(path)
		return nil, nil // Success{} — no reply

	case TypeChangeFile:
		var m msgChangeFile
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return s.changeFile(m)

	case TypeSaveFile:
		var m msgSaveFile
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return s.saveFile(m)

	case TypeCompletion:
		return s.positionRequest(raw, s.ws.LSP.Completion, func(v json.RawMessage) any {
			return outCompletionResponse{Type: TypeCompletionResponse, Completions: v}
		})
	case TypeHover:
		return s.positionRequest(raw, s.ws.LSP.Hover, func(v json.RawMessage) any {
			return outHoverResponse{Type: TypeHoverResponse, Hover: v}
		})
	case TypeDefinition:
		return s.positionRequest(raw, s.ws.LSP.Definition, func(v json.RawMessage) any {
			return outDefinitionResponse{Type: TypeDefinitionResponse, Locations: v}
		})

	case TypeCreateTerminal:
		var m msgCreateTerminal
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		id, err := s.ws.Term.Create(m.Cols, m.Rows, s.ws.Jail.Root())
		if err != nil {
			return nil, err
		}
		return outTerminalCreated{Type: TypeTerminalCreated, TerminalID: id}, nil

	case TypeResizeTerminal:
		var m msgResizeTerminal
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		if err := s.ws.Term.Resize(m.ID, m.Cols, m.Rows); err != nil {
			return nil, err
		}
		return nil, nil

	case TypeWriteTerminal:
		var m msgWriteTerminal
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		if err := s.ws.Term.Write(m.ID, m.Data); err != nil {
			return nil, err
		}
		return nil, nil

	case TypeCloseTerminal:
		var m msgCloseTerminal
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		if err := s.ws.Term.Close(m.ID); err != nil {
			return nil, err
		}
		return outTerminalClosed{Type: TypeTerminalClosed, ID: m.ID}, nil

	case TypeSearch:
		var m msgSearch
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		s.searcher.Start(m.ID, m.Query, m.SearchFilenameOnly)
		return nil, nil

	case TypeCancelSearch:
		s.searcher.Cancel()
		return nil, nil

	default:
		return nil, errors.New("unknown message type: " + typ)
	}
}

func (s *Session) getDirectory(path string, refresh bool) (any, error) {
	resolved, err := s.ws.Jail.Resolve(path)
	if err != nil {
		return nil, err
	}
	var nodes []*workspace.FileNode
	if refresh {
		nodes, err = s.ws.Dirs.RefreshDirectory(resolved)
	} else {
		nodes, err = s.ws.Dirs.LoadDirectory(resolved)
	}
	if err != nil {
		return nil, apierr.New(apierr.NotFound, resolved)
	}
	return outDirectoryContent{Type: TypeDirectoryContent, Path: resolved, Content: nodes}, nil
}

func (s *Session) openFile(path string) (any, error) {
	resolved, err := s.ws.Jail.Resolve(path)
	if err != nil {
		return nil, err
	}
	content, meta, version, err := s.ws.Docs.OpenFile(resolved)
	if err != nil {
		return nil, err
	}
	s.ws.LSP.NotifyOpened(resolved, lsp.LanguageIDFor(resolved), content)
	return outDocumentContent{Type: TypeDocumentContent, Path: resolved, Content: content, Metadata: meta, Version: version}, nil
}

func (s *Session) changeFile(m msgChangeFile) (any, error) {
	path, err := s.ws.Jail.Resolve(m.Document.Path)
	if err != nil {
		return nil, err
	}
	vdoc := document.VersionedDocument{Path: path, Version: m.Document.Version}
	result, err := s.ws.Docs.ChangeDocument(vdoc, m.Changes)
	if err != nil {
		return nil, err
	}
	if content, _, err := s.ws.Docs.GetDocumentContent(path); err == nil {
		s.ws.LSP.NotifyChanged(path, result.Version, content)
	}
	return outChangeSuccess{Type: TypeChangeSuccess, Document: result}, nil
}

func (s *Session) saveFile(m msgSaveFile) (any, error) {
	path, err := s.ws.Jail.Resolve(m.Document.Path)
	if err != nil {
		return nil, err
	}
	vdoc := document.VersionedDocument{Path: path, Version: m.Document.Version}
	result, err := s.ws.Docs.SaveDocument(vdoc)
	if err != nil {
		return nil, err
	}
	if content, _, err := s.ws.Docs.GetDocumentContent(path); err == nil {
		s.ws.LSP.NotifySaved(path, content)
	}
	return outSaveSuccess{Type: TypeSaveSuccess, Document: result}, nil
}

func (s *Session) positionRequest(raw []byte, call lspPositionFunc, wrap func(json.RawMessage) any) (any, error) {
	var m msgPositionRequest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	path, err := s.ws.Jail.Resolve(m.Path)
	if err != nil {
		return nil, err
	}
	result, err := call(context.Background(), path, m.Position)
	if err != nil {
		if apiErr, ok := err.(*apierr.Error); ok && apiErr.Code == apierr.NoServerForExt {
			logger.Debug("lsp: no server for extension", "path", path)
			return wrap(nil), nil
		}
		return nil, err
	}
	return wrap(result), nil
}
