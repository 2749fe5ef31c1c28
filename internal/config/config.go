// Package config loads and merges the backend's settings: a
// user-level file and a project-level file layered on top of it,
// project values winning over user values.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const settingsFileName = "settings.yaml"

// LspServerConfig describes one configured language server.
type LspServerConfig struct {
	Name            string         `yaml:"name"`
	FileExtensions  []string       `yaml:"file_extensions"`
	ServerPath      string         `yaml:"server_path"`
	ServerArgs      []string       `yaml:"server_args,omitempty"`
	InitOptions     map[string]any `yaml:"init_options,omitempty"`
}

// Settings is the merged configuration surface for one running backend.
type Settings struct {
	Theme                    string            `yaml:"theme,omitempty"`
	LspServers               []LspServerConfig `yaml:"lsp_servers,omitempty"`
	CacheBudgetBytes         int64             `yaml:"cache_budget_bytes,omitempty"`
	MaxSearchResultsPerBatch int               `yaml:"max_search_results_per_batch,omitempty"`
}

func defaults() Settings {
	return Settings{
		Theme:                    "default",
		CacheBudgetBytes:         1 << 20, // 1 MiB
		MaxSearchResultsPerBatch: 50,
	}
}

// Manager loads and merges user and project settings, project values
// winning over user values.
type Manager struct {
	user    Settings
	project Settings
	merged  Settings
}

func NewManager() *Manager {
	return &Manager{user: Settings{}, project: Settings{}, merged: defaults()}
}

// Load reads the user-level settings file and the project-level settings
// file under workspaceRoot/.wscode, then merges them. A missing file at
// either location is not an error — it simply contributes no overrides.
func (m *Manager) Load(workspaceRoot string) error {
	userDir, err := UserConfigDir()
	if err != nil {
		return err
	}
	if err := loadYAML(filepath.Join(userDir, settingsFileName), &m.user); err != nil {
		return err
	}
	if err := loadYAML(filepath.Join(ProjectSettingsDir(workspaceRoot), settingsFileName), &m.project); err != nil {
		return err
	}
	m.merge()
	return nil
}

func loadYAML(path string, out *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, out)
}

func (m *Manager) merge() {
	merged := defaults()
	if m.user.Theme != "" {
		merged.Theme = m.user.Theme
	}
	if m.project.Theme != "" {
		merged.Theme = m.project.Theme
	}
	if m.user.CacheBudgetBytes != 0 {
		merged.CacheBudgetBytes = m.user.CacheBudgetBytes
	}
	if m.project.CacheBudgetBytes != 0 {
		merged.CacheBudgetBytes = m.project.CacheBudgetBytes
	}
	if m.user.MaxSearchResultsPerBatch != 0 {
		merged.MaxSearchResultsPerBatch = m.user.MaxSearchResultsPerBatch
	}
	if m.project.MaxSearchResultsPerBatch != 0 {
		merged.MaxSearchResultsPerBatch = m.project.MaxSearchResultsPerBatch
	}
	// LSP servers: project list fully replaces user list when present,
	// otherwise the user list is used. There is no per-entry merge.
	merged.LspServers = m.user.LspServers
	if len(m.project.LspServers) > 0 {
		merged.LspServers = m.project.LspServers
	}
	m.merged = merged
}

func (m *Manager) Get() Settings {
	return m.merged
}
