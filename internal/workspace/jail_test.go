package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ehrlich-b/wscode/internal/apierr"
)

func TestJailResolveEmptyIsRoot(t *testing.T) {
	dir := t.TempDir()
	jail, err := NewJail(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := jail.Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if got != jail.Root() {
		t.Fatalf("got %q, want %q", got, jail.Root())
	}
}

func TestJailResolveRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	jail, err := NewJail(dir)
	if err != nil {
		t.Fatal(err)
	}
	_, err = jail.Resolve("../outside")
	if err == nil {
		t.Fatal("expected OutsideWorkspace error")
	}
	apiErr, ok := err.(*apierr.Error)
	if !ok || apiErr.Code != apierr.OutsideWorkspace {
		t.Fatalf("expected OutsideWorkspace, got %v", err)
	}
}

func TestJailResolveDescendant(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	jail, err := NewJail(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := jail.Resolve("sub")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(jail.Root(), "sub")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
