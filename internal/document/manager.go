package document

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ehrlich-b/wscode/internal/apierr"
	"github.com/ehrlich-b/wscode/internal/logger"
)

const MaxFileSize = 10 * 1 << 20 // 10 MiB

// Manager owns the document lifecycle: open/change/save/close, the
// DocumentState table, and the byte-bounded content LRU.
type Manager struct {
	cache *lruCache

	mu     sync.Mutex
	states map[string]*State
}

func NewManager(cacheBudgetBytes int64) *Manager {
	if cacheBudgetBytes <= 0 {
		cacheBudgetBytes = 1 << 20
	}
	return &Manager{
		cache:  newLRUCache(cacheBudgetBytes),
		states: make(map[string]*State),
	}
}

// OpenFile reads, classifies, and decodes a file on first open,
// returning its content, metadata, and version (0 on first open).
func (m *Manager) OpenFile(path string) (string, Metadata, int64, error) {
	m.mu.Lock()
	if st, ok := m.states[path]; ok {
		m.mu.Unlock()
		content, meta, err := m.GetDocumentContent(path)
		if err != nil {
			return "", Metadata{}, 0, err
		}
		return content, meta, st.Version, nil
	}
	m.mu.Unlock()

	content, meta, err := m.readDecodeAndMaybeCache(path)
	if err != nil {
		return "", Metadata{}, 0, err
	}

	m.mu.Lock()
	m.states[path] = &State{IsOpen: true, Version: 0, LastModificationEpochS: nowEpochS()}
	m.mu.Unlock()

	return content, meta, 0, nil
}

// GetDocumentContent returns cached content if present, else reads,
// decodes, and caches it.
func (m *Manager) GetDocumentContent(path string) (string, Metadata, error) {
	if entry, ok := m.cache.get(path); ok {
		return entry.content, entry.metadata, nil
	}
	return m.readDecodeAndMaybeCache(path)
}

func (m *Manager) readDecodeAndMaybeCache(path string) (string, Metadata, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", Metadata{}, apierr.New(apierr.NotFound, path)
	}
	isSymlink := info.Mode()&os.ModeSymlink != 0
	if isSymlink {
		return "", Metadata{}, apierr.New(apierr.CannotReadSymlink, path)
	}
	if info.IsDir() {
		return "", Metadata{}, apierr.New(apierr.NotAFile, path)
	}
	if info.Size() > MaxFileSize {
		return "", Metadata{}, apierr.New(apierr.FileTooLarge, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", Metadata{}, apierr.New(apierr.NotReadable, path)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, _ := f.Read(head)
	head = head[:n]
	ft := detectFileType(head, isSymlink)
	if ft == FileTypeBinary {
		return "", Metadata{}, apierr.New(apierr.CannotReadBinary, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", Metadata{}, apierr.New(apierr.NotReadable, path)
	}

	text, enc, _ := detectAndDecode(raw)
	if strings.Count(text, "�") > bytes.Count(raw, []byte("�")) {
		logger.Warn("document: decode inserted replacement characters", "path", path, "encoding", enc.Label)
	}
	lineEnding := detectLineEnding(text)

	meta := Metadata{
		Size:        info.Size(),
		IsDirectory: false,
		IsSymlink:   false,
		ModifiedAt:  info.ModTime().Unix(),
		Readonly:    info.Mode().Perm()&0o200 == 0,
		FileType:    FileTypeText,
		Encoding:    enc,
		LineEnding:  lineEnding,
	}

	m.cache.put(path, text, meta)
	return text, meta, nil
}

// ChangeDocument applies an edit to an open document, adopting the
// client's proposed version on success — the server does not
// increment its own counter.
func (m *Manager) ChangeDocument(vdoc VersionedDocument, changes []DiffChange) (VersionedDocument, error) {
	m.mu.Lock()
	st, ok := m.states[vdoc.Path]
	if !ok {
		m.mu.Unlock()
		return VersionedDocument{}, apierr.New(apierr.NotOpen, vdoc.Path)
	}
	if vdoc.Version <= st.Version {
		m.mu.Unlock()
		return VersionedDocument{}, apierr.New(apierr.VersionConflict, vdoc.Path)
	}
	m.mu.Unlock()

	current, _, err := m.GetDocumentContent(vdoc.Path)
	if err != nil {
		return VersionedDocument{}, err
	}

	newText, err := applyChanges(current, changes)
	if err != nil {
		return VersionedDocument{}, err
	}

	info, statErr := os.Stat(vdoc.Path)
	meta := Metadata{FileType: FileTypeText, LineEnding: detectLineEnding(newText)}
	if statErr == nil {
		meta.Size = int64(len(newText))
		meta.ModifiedAt = info.ModTime().Unix()
		meta.Readonly = info.Mode().Perm()&0o200 == 0
	} else {
		meta.Size = int64(len(newText))
	}

	m.cache.invalidate(vdoc.Path)
	m.cache.put(vdoc.Path, newText, meta)

	m.mu.Lock()
	st.Version = vdoc.Version
	st.IsDirty = true
	st.LastModificationEpochS = time.Now().Unix()
	resultVersion := st.Version
	m.mu.Unlock()

	return VersionedDocument{Path: vdoc.Path, Version: resultVersion}, nil
}

// SaveDocument writes the cached content to disk. The document must
// have been read through the manager first — save does not read from
// disk on the caller's behalf.
func (m *Manager) SaveDocument(vdoc VersionedDocument) (VersionedDocument, error) {
	m.mu.Lock()
	st, ok := m.states[vdoc.Path]
	if !ok {
		m.mu.Unlock()
		return VersionedDocument{}, apierr.New(apierr.NotOpen, vdoc.Path)
	}
	if vdoc.Version <= st.Version {
		m.mu.Unlock()
		return VersionedDocument{}, apierr.New(apierr.VersionConflict, vdoc.Path)
	}
	m.mu.Unlock()

	entry, ok := m.cache.get(vdoc.Path)
	if !ok {
		return VersionedDocument{}, apierr.New(apierr.NotOpen, "document content not found in cache")
	}

	if err := os.WriteFile(vdoc.Path, []byte(entry.content), 0o644); err != nil {
		return VersionedDocument{}, apierr.New(apierr.NotReadable, err.Error())
	}

	m.mu.Lock()
	st.IsDirty = false
	version := st.Version
	m.mu.Unlock()

	return VersionedDocument{Path: vdoc.Path, Version: version}, nil
}

// CloseFile flips a document's is_open flag. This never fails — it is
// best-effort by design.
func (m *Manager) CloseFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[path]; ok {
		st.IsOpen = false
	}
}

// InvalidateCache drops a path's cached content, used by the watcher
// wiring when an external change touches an open document.
func (m *Manager) InvalidateCache(path string) {
	m.cache.invalidate(path)
}

func (m *Manager) State(path string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[path]
	if !ok {
		return State{}, false
	}
	return *st, true
}
