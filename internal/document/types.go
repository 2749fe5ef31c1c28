// Package document implements the versioned document model: open/
// change/save lifecycle, encoding and line-ending detection, and the
// byte-bounded LRU content cache.
package document

import "time"

type FileType string

const (
	FileTypeText    FileType = "Text"
	FileTypeBinary  FileType = "Binary"
	FileTypeSymlink FileType = "SymLink"
	FileTypeUnknown FileType = "Unknown"
)

type LineEnding string

const (
	LineEndingLF    LineEnding = "LF"
	LineEndingCRLF  LineEnding = "CRLF"
	LineEndingMixed LineEnding = "Mixed"
)

// Encoding is the detected byte encoding of a document, paired with a
// confidence score. Hard-coded to 0.9 since the detector never reports
// its own figure.
type Encoding struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Metadata describes a document's on-disk and content-derived
// properties.
type Metadata struct {
	Size        int64      `json:"size"`
	IsDirectory bool       `json:"is_directory"`
	IsSymlink   bool       `json:"is_symlink"`
	CreatedAt   int64      `json:"created_at"`
	ModifiedAt  int64      `json:"modified_at"`
	Readonly    bool       `json:"readonly"`
	FileType    FileType   `json:"file_type"`
	Encoding    Encoding   `json:"encoding"`
	LineEnding  LineEnding `json:"line_ending"`
}

// State tracks a single opened document's lifecycle, independent of
// whether its content is currently cached.
type State struct {
	IsOpen                 bool
	Version                int64
	LastModificationEpochS int64
	IsDirty                bool
}

// VersionedDocument names a document path and a version number — the
// client's proposed next version on a change/save request, or the
// server's resulting version in a response.
type VersionedDocument struct {
	Path    string `json:"path"`
	Version int64  `json:"version"`
}

// DiffChange is one run in a change sequence. Exactly one of
// Added/Removed may be true; both false means "unchanged".
type DiffChange struct {
	Value   string `json:"value"`
	Added   bool   `json:"added"`
	Removed bool   `json:"removed"`
}

func nowEpochS() int64 { return time.Now().Unix() }
