package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/ehrlich-b/wscode/internal/logger"
)

// FileNode is one entry in a directory listing, optionally carrying
// its own loaded children when the client has explicitly recursed
// into it.
type FileNode struct {
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	IsDirectory bool        `json:"is_directory"`
	SizeBytes   int64       `json:"size_bytes"`
	Children    []*FileNode `json:"children,omitempty"`
	IsLoaded    bool        `json:"is_loaded"`
}

// DirectoryCache maps an absolute directory path to its shallow
// listing. Entries are invalidated by the watcher when their contents
// change, and otherwise live indefinitely.
type DirectoryCache struct {
	root string

	mu    sync.RWMutex
	byDir map[string][]*FileNode
}

func NewDirectoryCache(root string) *DirectoryCache {
	return &DirectoryCache{root: root, byDir: make(map[string][]*FileNode)}
}

// LoadDirectory returns the cached listing if present, else reads the
// directory from disk and caches the result.
func (c *DirectoryCache) LoadDirectory(path string) ([]*FileNode, error) {
	c.mu.RLock()
	if nodes, ok := c.byDir[path]; ok {
		c.mu.RUnlock()
		return nodes, nil
	}
	c.mu.RUnlock()
	return c.RefreshDirectory(path)
}

// RefreshDirectory always re-reads the directory and overwrites any
// cached listing.
func (c *DirectoryCache) RefreshDirectory(path string) ([]*FileNode, error) {
	nodes, err := readDirShallow(path)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.byDir[path] = nodes
	c.mu.Unlock()

	var total int64
	for _, n := range nodes {
		total += n.SizeBytes
	}
	logger.Debug("directory: refreshed", "path", path, "entries", len(nodes), "size", humanize.Bytes(uint64(total)))
	return nodes, nil
}

// Invalidate removes a cached listing so the next load re-reads it.
func (c *DirectoryCache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.byDir, path)
	c.mu.Unlock()
}

// RootNode returns the root FileNode with its immediate children loaded.
func (c *DirectoryCache) RootNode() (*FileNode, error) {
	children, err := c.LoadDirectory(c.root)
	if err != nil {
		return nil, err
	}
	return &FileNode{
		Name:        filepath.Base(c.root),
		Path:        c.root,
		IsDirectory: true,
		Children:    children,
		IsLoaded:    true,
	}, nil
}

func readDirShallow(path string) ([]*FileNode, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	nodes := make([]*FileNode, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// Entry vanished between readdir and stat; skip it rather
			// than fail the whole listing.
			continue
		}
		nodes = append(nodes, &FileNode{
			Name:        e.Name(),
			Path:        filepath.Join(path, e.Name()),
			IsDirectory: e.IsDir(),
			SizeBytes:   info.Size(),
			IsLoaded:    false,
		})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].IsDirectory != nodes[j].IsDirectory {
			return nodes[i].IsDirectory
		}
		return nodes[i].Name < nodes[j].Name
	})
	return nodes, nil
}
