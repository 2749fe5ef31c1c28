// Package search implements the incremental fuzzy searcher: a single
// active query per session, cold-start vs hot-continuation re-parse,
// and bounded streamed result batches. The matcher itself is
// github.com/sahilm/fuzzy, a stateless one-shot matcher; the cold/hot
// state machine and streaming poller are a thin stateful wrapper
// around it — the adapter, not the matcher, distinguishes "refines"
// from "replaces".
package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/unicode/norm"

	"github.com/ehrlich-b/wscode/internal/apierr"
	"github.com/ehrlich-b/wscode/internal/bus"
)

type Mode string

const (
	ModeFilename Mode = "Filename"
	ModeContent  Mode = "Content"
)

const (
	PollInterval    = 100 * time.Millisecond
	WallClockLimit  = 10 * time.Second
	DefaultBatchCap = 50
)

var ignoredDirs = map[string]bool{".git": true, "node_modules": true, "target": true}

// ResultItem is one match, shaped for both Filename and Content modes.
type ResultItem struct {
	Path       string `json:"path"`
	LineNumber int    `json:"line_number,omitempty"`
	Content    string `json:"content"`
}

// Event is what the session multiplexer receives off the search bus.
type Event struct {
	SearchID   string
	Items      []ResultItem
	IsComplete bool
	Err        error
}

// row is one candidate: Filename rows are keyed by path, Content rows
// by line text.
type row struct {
	key  string
	item ResultItem
}

type rowSource []row

func (s rowSource) String(i int) string { return s[i].key }
func (s rowSource) Len() int            { return len(s) }

// Searcher runs at most one active search per instance (one instance
// is owned per session by the multiplexer).
type Searcher struct {
	workspaceRoot string
	batchCap      int
	events        *bus.Bus[Event]

	mu         sync.Mutex
	lastQuery  string
	lastMode   Mode
	hasPrior   bool
	rows       rowSource
	lastResult []row // result set of the previous query, for hot continuation

	cancel context.CancelFunc
}

func NewSearcher(workspaceRoot string, batchCap int) *Searcher {
	if batchCap <= 0 {
		batchCap = DefaultBatchCap
	}
	return &Searcher{
		workspaceRoot: workspaceRoot,
		batchCap:      batchCap,
		events:        bus.New[Event](bus.DefaultCapacity),
	}
}

func (s *Searcher) Subscribe() *bus.Subscription[Event] { return s.events.Subscribe() }
func (s *Searcher) Unsubscribe(sub *bus.Subscription[Event]) { s.events.Unsubscribe(sub) }

// Start begins (or restarts) the single active search for this
// searcher instance, selecting cold-start vs hot-continuation, and
// streams batched results onto the event bus until complete,
// cancelled, or the 10s wall-clock limit expires.
func (s *Searcher) Start(searchID, query string, filenameOnly bool) {
	mode := ModeContent
	if filenameOnly {
		mode = ModeFilename
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	coldStart := !s.hasPrior || mode != s.lastMode
	hotContinuation := !coldStart && strings.HasPrefix(query, s.lastQuery)

	var candidateRows rowSource
	switch {
	case coldStart:
		rows, err := indexWorkspace(s.workspaceRoot, mode)
		if err != nil {
			s.mu.Unlock()
			s.events.Publish(Event{SearchID: searchID, Err: apierr.New(apierr.IndexingFailed, err.Error())})
			return
		}
		s.rows = rows
		candidateRows = rows
	case hotContinuation:
		candidateRows = make(rowSource, len(s.lastResult))
		copy(candidateRows, s.lastResult)
	default:
		candidateRows = s.rows
	}

	s.lastQuery = query
	s.lastMode = mode
	s.hasPrior = true
	s.mu.Unlock()

	go s.run(ctx, searchID, query, candidateRows)
}

func (s *Searcher) run(ctx context.Context, searchID, query string, candidates rowSource) {
	matches := matchAll(query, candidates)

	s.mu.Lock()
	result := make([]row, 0, len(matches))
	for _, m := range matches {
		result = append(result, candidates[m.Index])
	}
	s.lastResult = result
	s.mu.Unlock()

	deadline := time.NewTimer(WallClockLimit)
	defer deadline.Stop()
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			s.emitBatch(searchID, result, sent, true)
			return
		case <-ticker.C:
			end := sent + s.batchCap
			if end >= len(result) {
				end = len(result)
				s.emitBatch(searchID, result, sent, true)
				return
			}
			s.emitBatch(searchID, result, sent, false)
			sent = end
		}
	}
}

func (s *Searcher) emitBatch(searchID string, result []row, from int, final bool) {
	to := from + s.batchCap
	if to > len(result) {
		to = len(result)
	}
	items := make([]ResultItem, 0, to-from)
	for _, r := range result[from:to] {
		items = append(items, r.item)
	}
	s.events.Publish(Event{SearchID: searchID, Items: items, IsComplete: final})
}

// Cancel stops the active search, if any.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.hasPrior = false
	s.lastQuery = ""
}

func matchAll(query string, rows rowSource) fuzzy.Matches {
	q := query
	if containsNonASCII(q) {
		q = norm.NFC.String(q)
	}
	if !hasUpper(q) {
		return fuzzy.Find(strings.ToLower(q), lowerSource(rows))
	}
	return fuzzy.Find(q, rows)
}

type lowerSource rowSource

func (s lowerSource) String(i int) string { return strings.ToLower(rowSource(s)[i].key) }
func (s lowerSource) Len() int            { return len(s) }

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func containsNonASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	return false
}

func indexWorkspace(root string, mode Mode) (rowSource, error) {
	var rows rowSource
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if mode == ModeFilename {
			rows = append(rows, row{key: rel, item: ResultItem{Path: rel}})
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > 1<<20 {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			rows = append(rows, row{key: line, item: ResultItem{Path: rel, LineNumber: i + 1, Content: line}})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if mode == ModeFilename {
		for i := range rows {
			rows[i].item.Content = rows[i].item.Path
		}
	}
	return rows, nil
}
