// Package apierr defines the error taxonomy surfaced to clients as a
// typed, stringly-coded Error message. Every error the session
// multiplexer returns on the wire is constructed from here so the
// client sees a stable code rather than an ad-hoc message.
package apierr

import "fmt"

type Code string

const (
	OutsideWorkspace   Code = "OutsideWorkspace"
	NotFound           Code = "NotFound"
	NotAFile           Code = "NotAFile"
	NotReadable        Code = "NotReadable"
	NotOpen            Code = "NotOpen"
	VersionConflict    Code = "VersionConflict"
	InvalidChange      Code = "InvalidChange"
	FileTooLarge       Code = "FileTooLarge"
	CannotReadBinary   Code = "CannotReadBinary"
	CannotReadSymlink  Code = "CannotReadSymlink"
	NoServerForExt     Code = "NoServerForExtension"
	LspTimeout         Code = "LspTimeout"
	LspChannelClosed   Code = "LspChannelClosed"
	LspError           Code = "LspError"
	TerminalNotFound   Code = "TerminalNotFound"
	PtyAllocationFailed Code = "PtyAllocationFailed"
	WriterUnavailable  Code = "WriterUnavailable"
	IndexingFailed     Code = "IndexingFailed"
)

// Error is a typed backend error carrying a stable code plus a
// human-readable detail string.
type Error struct {
	Code   Code
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func New(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Message renders the error the way it appears on the client channel's
// Error{message} frame.
func Message(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Error()
	}
	return err.Error()
}
