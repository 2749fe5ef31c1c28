// Package session implements the session multiplexer: the
// per-connection fair fan-in loop merging inbound client requests with
// asynchronous pushes from the watcher, terminal, and search buses,
// and the typed message envelopes that cross the wire.
package session

import (
	"encoding/json"

	"github.com/ehrlich-b/wscode/internal/document"
	"github.com/ehrlich-b/wscode/internal/lsp"
	"github.com/ehrlich-b/wscode/internal/search"
	"github.com/ehrlich-b/wscode/internal/workspace"
)

// Message type tags, both directions.
const (
	TypeGetDirectory     = "GetDirectory"
	TypeRefreshDirectory = "RefreshDirectory"
	TypeOpenFile         = "OpenFile"
	TypeCloseFile        = "CloseFile"
	TypeChangeFile       = "ChangeFile"
	TypeSaveFile         = "SaveFile"
	TypeCompletion       = "Completion"
	TypeHover            = "Hover"
	TypeDefinition       = "Definition"
	TypeCreateTerminal   = "CreateTerminal"
	TypeResizeTerminal   = "ResizeTerminal"
	TypeWriteTerminal    = "WriteTerminal"
	TypeCloseTerminal    = "CloseTerminal"
	TypeSearch           = "Search"
	TypeCancelSearch     = "CancelSearch"

	TypeDirectoryContent   = "DirectoryContent"
	TypeFileSystemEvents   = "FileSystemEvents"
	TypeDocumentContent    = "DocumentContent"
	TypeChangeSuccess      = "ChangeSuccess"
	TypeSaveSuccess        = "SaveSuccess"
	TypeCompletionResponse = "CompletionResponse"
	TypeHoverResponse      = "HoverResponse"
	TypeDefinitionResponse = "DefinitionResponse"
	TypeTerminalCreated    = "TerminalCreated"
	TypeTerminalOutput     = "TerminalOutput"
	TypeTerminalClosed     = "TerminalClosed"
	TypeTerminalError      = "TerminalError"
	TypeSearchResults      = "SearchResults"
	TypeError              = "Error"

	// typeSuccess is reserved for internal "no reply needed"
	// signalling and must never be written to the wire.
	typeSuccess = "Success"
)

// Envelope is the common tag every client message carries.
type Envelope struct {
	Type string `json:"type"`
}

// Inbound message payloads.

type msgGetDirectory struct {
	Path string `json:"path"`
}

type msgRefreshDirectory struct {
	Path string `json:"path"`
}

type msgOpenFile struct {
	Path string `json:"path"`
}

type msgCloseFile struct {
	Path string `json:"path"`
}

type msgChangeFile struct {
	Document document.VersionedDocument `json:"document"`
	Changes  []document.DiffChange      `json:"changes"`
}

type msgSaveFile struct {
	Document document.VersionedDocument `json:"document"`
}

type msgPositionRequest struct {
	Path     string       `json:"path"`
	Position lsp.Position `json:"position"`
}

type msgCreateTerminal struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

type msgResizeTerminal struct {
	ID   string `json:"id"`
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

type msgWriteTerminal struct {
	ID   string `json:"id"`
	Data []byte `json:"data"`
}

type msgCloseTerminal struct {
	ID string `json:"id"`
}

type msgSearch struct {
	ID                string `json:"id"`
	Query             string `json:"query"`
	SearchFilenameOnly bool  `json:"search_filename_only"`
}

type msgCancelSearch struct {
	ID string `json:"id"`
}

// Outbound message payloads.

type outDirectoryContent struct {
	Type    string               `json:"type"`
	Path    string               `json:"path"`
	Content []*workspace.FileNode `json:"content"`
}

type outFileSystemEvents struct {
	Type   string               `json:"type"`
	Events []workspace.FileEvent `json:"events"`
}

type outDocumentContent struct {
	Type     string            `json:"type"`
	Path     string            `json:"path"`
	Content  string            `json:"content"`
	Metadata document.Metadata `json:"metadata"`
	Version  int64             `json:"version"`
}

type outChangeSuccess struct {
	Type     string                     `json:"type"`
	Document document.VersionedDocument `json:"document"`
}

type outSaveSuccess struct {
	Type     string                     `json:"type"`
	Document document.VersionedDocument `json:"document"`
}

type outCompletionResponse struct {
	Type        string          `json:"type"`
	Completions json.RawMessage `json:"completions"`
}

type outHoverResponse struct {
	Type  string          `json:"type"`
	Hover json.RawMessage `json:"hover"`
}

type outDefinitionResponse struct {
	Type      string          `json:"type"`
	Locations json.RawMessage `json:"locations"`
}

type outTerminalCreated struct {
	Type       string `json:"type"`
	TerminalID string `json:"terminal_id"`
}

type outTerminalOutput struct {
	Type       string `json:"type"`
	TerminalID string `json:"terminal_id"`
	Data       []byte `json:"data"`
}

type outTerminalClosed struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type outTerminalError struct {
	Type       string `json:"type"`
	TerminalID string `json:"terminal_id"`
	Error      string `json:"error"`
}

type outSearchResults struct {
	Type       string               `json:"type"`
	SearchID   string               `json:"search_id"`
	Items      []search.ResultItem  `json:"items"`
	IsComplete bool                 `json:"is_complete"`
}

type outError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
