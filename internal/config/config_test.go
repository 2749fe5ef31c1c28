package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManagerLoadAppliesDefaultsWithNoFiles(t *testing.T) {
	workspace := t.TempDir()
	userDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userDir)

	m := NewManager()
	if err := m.Load(workspace); err != nil {
		t.Fatal(err)
	}
	got := m.Get()
	if got.Theme != "default" || got.CacheBudgetBytes != 1<<20 || got.MaxSearchResultsPerBatch != 50 {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestManagerProjectOverridesUser(t *testing.T) {
	workspace := t.TempDir()
	userConfigHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userConfigHome)

	userDir := filepath.Join(userConfigHome, "wscode")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(userDir, "settings.yaml"), []byte("theme: solarized\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	projectDir := ProjectSettingsDir(workspace)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "settings.yaml"), []byte("theme: midnight\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.Load(workspace); err != nil {
		t.Fatal(err)
	}
	got := m.Get()
	if got.Theme != "midnight" {
		t.Fatalf("expected project theme to win, got %q", got.Theme)
	}
}

func TestManagerLspServersFullyReplaced(t *testing.T) {
	workspace := t.TempDir()
	userConfigHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userConfigHome)

	userDir := filepath.Join(userConfigHome, "wscode")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	userYAML := "lsp_servers:\n  - name: gopls\n    file_extensions: [\".go\"]\n    server_path: gopls\n"
	if err := os.WriteFile(filepath.Join(userDir, "settings.yaml"), []byte(userYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	projectDir := ProjectSettingsDir(workspace)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}
	projectYAML := "lsp_servers:\n  - name: rust-analyzer\n    file_extensions: [\".rs\"]\n    server_path: rust-analyzer\n"
	if err := os.WriteFile(filepath.Join(projectDir, "settings.yaml"), []byte(projectYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.Load(workspace); err != nil {
		t.Fatal(err)
	}
	got := m.Get()
	if len(got.LspServers) != 1 || got.LspServers[0].Name != "rust-analyzer" {
		t.Fatalf("expected project lsp_servers to fully replace user list, got %+v", got.LspServers)
	}
}
