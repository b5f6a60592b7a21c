package graft

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	stateDirName   = ".graft"
	stateFileName  = "states.graft"
	BlobsDir       = "blobs"
	entrySeparator = "\n===\n"
	opSeparator    = "\n---\n"
	none           = "-"
)

// Operation records one in-place file modification: the content hash before
// and after the write. graft never creates, renames, or deletes files, so
// modify is the only action.
type Operation struct {
	Timestamp      int64
	Path           string
	OldContentHash string
	ContentHash    string
}

type HistoryEntry struct {
	Operations []Operation
}

type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// StateManager persists run history under .graft/ at the git root so a run
// can be undone or redone later.
type StateManager struct {
	statePath string
	state     *State
	StateDir  string
}

func findGitRoot(dir string) string {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return dir
	}
	return strings.TrimSpace(string(out))
}

// NewStateManager anchors the history at the git root of the mutated tree,
// falling back to the tree root itself outside a repository.
func NewStateManager(root string) (*StateManager, error) {
	dir := filepath.Join(findGitRoot(root), stateDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	m := &StateManager{statePath: filepath.Join(dir, stateFileName), StateDir: dir}
	m.state = &State{CurrentIndex: -1, History: []HistoryEntry{}}
	_ = m.load()
	return m, nil
}

func (m *StateManager) load() error {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		return err
	}

	blocks := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), entrySeparator)
	if len(blocks) == 0 {
		return nil
	}

	idx, _ := strconv.Atoi(strings.TrimSpace(blocks[0]))
	m.state = &State{CurrentIndex: idx, History: []HistoryEntry{}}

	for _, b := range blocks[1:] {
		entry := HistoryEntry{}
		ops := strings.Split(strings.TrimSpace(b), opSeparator)
		for _, opBlock := range ops {
			lines := strings.Split(strings.TrimSpace(opBlock), "\n")
			if len(lines) < 4 {
				continue
			}

			val := func(s string) string {
				s = strings.TrimSpace(s)
				if s == none {
					return ""
				}
				return s
			}

			op := Operation{
				Timestamp:      parseTimestamp(lines[0]),
				Path:           val(lines[1]),
				OldContentHash: val(lines[2]),
				ContentHash:    val(lines[3]),
			}
			entry.Operations = append(entry.Operations, op)
		}
		m.state.History = append(m.state.History, entry)
	}
	return nil
}

func parseTimestamp(s string) int64 {
	ts, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return ts
}

func (m *StateManager) save() {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", m.state.CurrentIndex)
	for _, e := range m.state.History {
		b.WriteString(entrySeparator)

		placeholder := func(s string) string {
			if s == "" {
				return none
			}
			return s
		}

		for i, op := range e.Operations {
			fmt.Fprintf(&b, "%d\n%s\n%s\n%s", op.Timestamp, placeholder(op.Path), placeholder(op.OldContentHash), placeholder(op.ContentHash))
			if i < len(e.Operations)-1 {
				b.WriteString(opSeparator)
			}
		}
	}
	_ = os.WriteFile(m.statePath, []byte(b.String()), 0644)
}

// Sync drops history entries that no longer match the files on disk, e.g.
// after the tree was edited by hand since the recorded run.
func (m *StateManager) Sync() {
	if m.state.CurrentIndex < 0 {
		return
	}

	for i := m.state.CurrentIndex; i >= 0; i-- {
		if m.matchState(i) {
			if i < m.state.CurrentIndex {
				m.state.History = m.state.History[:i+1]
				m.state.CurrentIndex = i
				m.save()
			}
			return
		}
	}

	m.state.History = []HistoryEntry{}
	m.state.CurrentIndex = -1
	m.save()
}

func (m *StateManager) matchState(idx int) bool {
	if idx < 0 || idx >= len(m.state.History) {
		return false
	}

	entry := m.state.History[idx]
	for _, op := range entry.Operations {
		currentHash, err := GetFileSHA256(op.Path)
		if err != nil || currentHash != op.ContentHash {
			return false
		}
	}
	return true
}

func (m *StateManager) Write(ops []Operation) {
	m.Sync()
	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, HistoryEntry{Operations: ops})
	m.state.CurrentIndex++
	m.save()
}

func (m *StateManager) GetOperationsToUndo() []Operation {
	if m.state.CurrentIndex < 0 {
		return nil
	}
	ops := m.state.History[m.state.CurrentIndex].Operations
	m.state.CurrentIndex--
	m.save()
	return ops
}

func (m *StateManager) GetOperationsToRedo() []Operation {
	if m.state.CurrentIndex+1 >= len(m.state.History) {
		return nil
	}
	m.state.CurrentIndex++
	ops := m.state.History[m.state.CurrentIndex].Operations
	m.save()
	return ops
}

// CreateOperations snapshots the rewritten files: oldHashes holds the
// pre-write hash per path (the prior content blob is stored when the file
// is backed up), and the new on-disk content is hashed and stored here.
func (m *StateManager) CreateOperations(updated []string, oldHashes map[string]string) []Operation {
	var ops []Operation
	now := time.Now().UTC().Unix()
	for _, f := range updated {
		currentHash, _ := GetFileSHA256(f)
		if currentHash != "" {
			content, _ := os.ReadFile(f)
			_ = WriteBlob(m.StateDir, currentHash, content)
		}

		ops = append(ops, Operation{
			Timestamp:      now,
			Path:           f,
			OldContentHash: oldHashes[f],
			ContentHash:    currentHash,
		})
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })
	return ops
}
