package search

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"alpha.go":          "package alpha\nfunc Alpha() {}\n",
		"beta.go":           "package beta\nfunc Beta() {}\n",
		"sub/gamma.go":      "package gamma\n",
		"node_modules/x.js": "should be ignored\n",
	}
	for rel, content := range files {
		full := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func collectUntilComplete(t *testing.T, sub interface {
	C() <-chan Event
}, searchID string) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	var all Event
	all.SearchID = searchID
	for {
		select {
		case ev := <-sub.C():
			if ev.Err != nil {
				return ev
			}
			all.Items = append(all.Items, ev.Items...)
			if ev.IsComplete {
				all.IsComplete = true
				return all
			}
		case <-deadline:
			t.Fatal("timed out waiting for search completion")
		}
	}
}

func TestSearcherFilenameColdStart(t *testing.T) {
	root := setupWorkspace(t)
	s := NewSearcher(root, 50)
	sub := s.Subscribe()
	defer s.Unsubscribe(sub)

	s.Start("s1", "alpha", true)
	result := collectUntilComplete(t, sub, "s1")
	if !result.IsComplete {
		t.Fatal("expected completion")
	}
	found := false
	for _, it := range result.Items {
		if it.Path == "alpha.go" {
			found = true
		}
		if filepath.Base(it.Path) == "x.js" {
			t.Fatal("node_modules should have been excluded from the index")
		}
	}
	if !found {
		t.Fatalf("expected alpha.go in results, got %+v", result.Items)
	}
}

func TestSearcherHotContinuationNarrowsPriorResults(t *testing.T) {
	root := setupWorkspace(t)
	s := NewSearcher(root, 50)
	sub := s.Subscribe()
	defer s.Unsubscribe(sub)

	s.Start("s1", "a", true)
	collectUntilComplete(t, sub, "s1")

	// Prefix-extension of "a" is a hot continuation: it must not error
	// and must still surface alpha.go, a subset-of-prior-results query.
	s.Start("s2", "al", true)
	result := collectUntilComplete(t, sub, "s2")
	found := false
	for _, it := range result.Items {
		if it.Path == "alpha.go" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected alpha.go to survive hot continuation, got %+v", result.Items)
	}
}

func TestSearcherModeSwitchForcesColdStart(t *testing.T) {
	root := setupWorkspace(t)
	s := NewSearcher(root, 50)
	sub := s.Subscribe()
	defer s.Unsubscribe(sub)

	s.Start("s1", "alpha", true)
	collectUntilComplete(t, sub, "s1")

	// Switching to content mode must re-index rather than reuse the
	// filename-mode row set.
	s.Start("s2", "package", false)
	result := collectUntilComplete(t, sub, "s2")
	if len(result.Items) == 0 {
		t.Fatal("expected content-mode matches after mode switch")
	}
}

func TestHasUpperAndNonASCII(t *testing.T) {
	if hasUpper("lowercase") {
		t.Fatal("expected no uppercase")
	}
	if !hasUpper("Mixed") {
		t.Fatal("expected uppercase detected")
	}
	if containsNonASCII("ascii only") {
		t.Fatal("expected pure ASCII")
	}
	if !containsNonASCII("café") {
		t.Fatal("expected non-ASCII detected")
	}
}
