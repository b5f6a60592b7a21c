package graft

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
)

type Config struct {
	ConfigPath string
	Root       string
	DryRun     bool
	Atomic     bool
	Undo       bool
	Redo       bool
	Verbose    bool
	UseNvim    bool
}

type ProgressUpdate func(current, total int)

type App struct {
	cfg              *Config
	stateManager     *StateManager
	pathResolver     *PathResolver
	sourceProvider   *SourceProvider
	fileManager      *FileManager
	nvim             *NvimManager
	progressCallback ProgressUpdate
}

type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string { return e.Err.Error() }

func NewApp(cfg *Config) (*App, error) {
	pr, err := NewPathResolver(cfg.Root)
	if err != nil {
		return nil, err
	}

	sm, err := NewStateManager(pr.Root())
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:            cfg,
		stateManager:   sm,
		pathResolver:   pr,
		sourceProvider: NewSourceProvider(),
		fileManager:    NewFileManager(),
	}

	if cfg.UseNvim {
		nm, err := NewNvimManager()
		if err != nil {
			return nil, fmt.Errorf("connecting to nvim: %w", err)
		}
		a.nvim = nm
	}
	return a, nil
}

func (a *App) SetProgressCallback(cb ProgressUpdate) { a.progressCallback = cb }

func (a *App) Close() {
	if a.nvim != nil {
		a.nvim.Close()
	}
}

func (a *App) Execute() (summary Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastRun()
	case a.cfg.Redo:
		return a.redoLastRun()
	default:
		return a.runCatalog()
	}
}

func (a *App) loadCatalog() (*Catalog, error) {
	if a.cfg.ConfigPath != "" {
		return LoadCatalog(a.cfg.ConfigPath)
	}

	content, err := a.sourceProvider.GetContent()
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("no configuration: pass --config or pipe a playbook")
	}
	return ParsePlaybook(content)
}

type job struct {
	path     string
	rewriter *Rewriter
}

func (a *App) buildJobs(catalog *Catalog) ([]job, error) {
	var jobs []job
	for _, b := range catalog.Batches {
		files, err := ResolveFiles(a.pathResolver.Root(), b.Pattern)
		if err != nil {
			return nil, err
		}
		slog.Debug("batch resolved", "batch", b.Name, "pattern", b.Pattern, "files", len(files))
		rw := NewRewriter(b.Rules)
		for _, f := range files {
			jobs = append(jobs, job{path: f, rewriter: rw})
		}
	}
	for _, p := range catalog.Patches {
		jobs = append(jobs, job{path: a.pathResolver.Resolve(p.File), rewriter: NewRewriter([]Rule{p})})
	}
	return jobs, nil
}

// RunCatalog processes every job sequentially: read, transform in memory,
// and write back only when the content changed. In atomic mode all writes
// are deferred until every file transformed without error.
func (a *App) runCatalog() (Summary, error) {
	catalog, err := a.loadCatalog()
	if err != nil {
		return Summary{}, err
	}
	return a.applyCatalog(catalog)
}

func (a *App) applyCatalog(catalog *Catalog) (Summary, error) {
	jobs, err := a.buildJobs(catalog)
	if err != nil {
		return Summary{}, err
	}
	if len(jobs) == 0 {
		return Summary{Message: "Nothing to do"}, nil
	}

	var summary Summary
	oldHashes := make(map[string]string)
	staged := make(map[string]string)
	var stagedOrder []string

	for i, j := range jobs {
		input, ok := staged[j.path]
		if !ok {
			data, err := os.ReadFile(j.path)
			if err != nil {
				return Summary{}, fmt.Errorf("reading %s: %w", j.path, err)
			}
			input = string(data)
		}

		out, changed := j.rewriter.Rewrite(j.path, input)
		if changed {
			summary.Modified = append(summary.Modified, j.path)
			switch {
			case a.cfg.DryRun:
				// verdict only
			case a.cfg.Atomic:
				if _, seen := staged[j.path]; !seen {
					stagedOrder = append(stagedOrder, j.path)
				}
				staged[j.path] = out
			default:
				a.backupFileState(j.path, oldHashes)
				if err := a.writeChange(FileChange{Path: j.path, Content: out}); err != nil {
					return Summary{}, err
				}
			}
		} else {
			summary.Unchanged = append(summary.Unchanged, j.path)
		}
		a.reportProgress(i+1, len(jobs))
	}

	if a.cfg.Atomic && !a.cfg.DryRun {
		for _, path := range stagedOrder {
			a.backupFileState(path, oldHashes)
			if err := a.writeChange(FileChange{Path: path, Content: staged[path]}); err != nil {
				return Summary{}, err
			}
		}
	}

	if !a.cfg.DryRun && len(summary.Modified) > 0 {
		ops := a.stateManager.CreateOperations(dedup(summary.Modified), oldHashes)
		a.stateManager.Write(ops)
	}

	if a.cfg.DryRun {
		summary.Message = "Dry run"
	}

	// Overlapping batches can visit the same file twice; the report keeps
	// one verdict per path, with changed winning over unchanged.
	summary.Modified = dedup(summary.Modified)
	summary.Unchanged = subtract(dedup(summary.Unchanged), summary.Modified)

	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

func (a *App) writeChange(c FileChange) error {
	if a.nvim != nil {
		return a.nvim.ApplyChange(c)
	}
	return a.fileManager.WriteChange(c)
}

func (a *App) backupFileState(path string, hashes map[string]string) {
	if _, ok := hashes[path]; ok {
		return // already backed up
	}
	h, _ := GetFileSHA256(path)
	hashes[path] = h
	if h != "" {
		if content, err := os.ReadFile(path); err == nil {
			_ = WriteBlob(a.stateManager.StateDir, h, content)
		}
	}
}

func (a *App) reportProgress(current, total int) {
	if a.progressCallback != nil {
		a.progressCallback(current, total)
	}
}

func (a *App) undoLastRun() (Summary, error) {
	ops := a.stateManager.GetOperationsToUndo()
	if len(ops) == 0 {
		return Summary{Message: "No undo"}, nil
	}
	s := a.fileManager.Undo(ops, a.stateManager.StateDir)
	s.Message = "Undone"
	a.relativizeSummaryPaths(&s)
	return s, nil
}

func (a *App) redoLastRun() (Summary, error) {
	ops := a.stateManager.GetOperationsToRedo()
	if len(ops) == 0 {
		return Summary{Message: "No redo"}, nil
	}
	s := a.fileManager.Redo(ops, a.stateManager.StateDir)
	s.Message = "Redone"
	a.relativizeSummaryPaths(&s)
	return s, nil
}

func dedup(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	var out []string
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func subtract(paths, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, p := range remove {
		drop[p] = struct{}{}
	}
	var out []string
	for _, p := range paths {
		if _, ok := drop[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func (a *App) relativizeSummaryPaths(s *Summary) {
	relList := func(paths []string) []string {
		var res []string
		for _, p := range paths {
			if r, err := filepath.Rel(a.pathResolver.Root(), p); err == nil {
				res = append(res, r)
			} else {
				res = append(res, p)
			}
		}
		return res
	}
	s.Modified = relList(s.Modified)
	s.Unchanged = relList(s.Unchanged)
	s.Failed = relList(s.Failed)
}
