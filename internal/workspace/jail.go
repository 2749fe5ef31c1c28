// Package workspace implements the workspace jail, the directory
// listing cache, and the recursive filesystem watcher + event
// batcher.
package workspace

import (
	"path/filepath"
	"strings"

	"github.com/ehrlich-b/wscode/internal/apierr"
)

// Jail canonicalizes and bounds every path handed to the core to a
// single root directory.
type Jail struct {
	root string
}

func NewJail(root string) (*Jail, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &Jail{root: canon}, nil
}

// Root returns the canonical workspace root.
func (j *Jail) Root() string { return j.root }

// Resolve joins a relative path with the workspace root (or uses it
// directly if already absolute), canonicalizes it, and rejects the
// result unless it is the root itself or a descendant of it. An empty
// input resolves to the root.
func (j *Jail) Resolve(p string) (string, error) {
	if p == "" {
		return j.root, nil
	}
	var candidate string
	if filepath.IsAbs(p) {
		candidate = filepath.Clean(p)
	} else {
		candidate = filepath.Join(j.root, p)
	}
	return j.canonicalizeAndValidate(candidate)
}

// Validate checks that an already-absolute path is a descendant of
// the workspace root, resolving symlinks along the way.
func (j *Jail) Validate(abs string) (string, error) {
	return j.canonicalizeAndValidate(abs)
}

func (j *Jail) canonicalizeAndValidate(candidate string) (string, error) {
	canon, err := resolveSymlinksBestEffort(candidate)
	if err != nil {
		return "", err
	}
	if !isDescendant(j.root, canon) {
		return "", apierr.New(apierr.OutsideWorkspace, candidate)
	}
	return canon, nil
}

// resolveSymlinksBestEffort canonicalizes as much of the path as
// exists on disk, falling back to lexical cleaning for components
// that don't exist yet (e.g. a file about to be created).
func resolveSymlinksBestEffort(p string) (string, error) {
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real, nil
	}
	dir := filepath.Dir(p)
	base := filepath.Base(p)
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(real, base), nil
	}
	return filepath.Clean(p), nil
}

func isDescendant(root, candidate string) bool {
	if candidate == root {
		return true
	}
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
