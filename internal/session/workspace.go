package session

import (
	"github.com/ehrlich-b/wscode/internal/config"
	"github.com/ehrlich-b/wscode/internal/document"
	"github.com/ehrlich-b/wscode/internal/logger"
	"github.com/ehrlich-b/wscode/internal/lsp"
	"github.com/ehrlich-b/wscode/internal/terminal"
	"github.com/ehrlich-b/wscode/internal/workspace"
)

// Workspace is the process-global handle referenced by every session:
// the directory manager, document manager, watcher, LSP adapter, and
// terminal broker are singletons, each guarding its own state behind
// its own locks rather than one global lock.
type Workspace struct {
	Jail     *workspace.Jail
	Dirs     *workspace.DirectoryCache
	Watcher  *workspace.Watcher
	Docs     *document.Manager
	LSP      *lsp.Adapter
	Term     *terminal.Broker
	Settings config.Settings
}

func NewWorkspace(root string) (*Workspace, error) {
	jail, err := workspace.NewJail(root)
	if err != nil {
		return nil, err
	}

	mgr := config.NewManager()
	if err := mgr.Load(jail.Root()); err != nil {
		logger.Warn("settings: load failed, using defaults", "err", err)
	}
	settings := mgr.Get()

	dirs := workspace.NewDirectoryCache(jail.Root())
	if _, err := dirs.RootNode(); err != nil {
		return nil, err
	}

	watcher, err := workspace.NewWatcher(jail.Root(), dirs)
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(); err != nil {
		return nil, err
	}

	docs := document.NewManager(settings.CacheBudgetBytes)
	lspAdapter := lsp.NewAdapter(jail.Root(), settings.LspServers)
	term := terminal.NewBroker()

	w := &Workspace{
		Jail:     jail,
		Dirs:     dirs,
		Watcher:  watcher,
		Docs:     docs,
		LSP:      lspAdapter,
		Term:     term,
		Settings: settings,
	}

	go w.watchInvalidation()
	return w, nil
}

// watchInvalidation keeps the document cache consistent with external
// filesystem changes: any event touching a path with cached content
// drops that content, forcing a re-read on next access.
func (w *Workspace) watchInvalidation() {
	sub := w.Watcher.Subscribe()
	defer w.Watcher.Unsubscribe(sub)
	for ev := range sub.C() {
		w.Docs.InvalidateCache(ev.Path)
	}
}
