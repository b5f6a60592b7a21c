package graft

import (
	"fmt"
	"os"
)

type FileManager struct{}

func NewFileManager() *FileManager {
	return &FileManager{}
}

// WriteChange overwrites one file with its rewritten content. A write
// failure is fatal to the run, so the error propagates.
func (m *FileManager) WriteChange(change FileChange) error {
	if err := os.WriteFile(change.Path, []byte(change.Content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", change.Path, err)
	}
	return nil
}

// Undo restores the pre-run content of every operation whose on-disk hash
// still matches the recorded post-run hash. Files edited since the run are
// reported as failed rather than clobbered.
func (m *FileManager) Undo(ops []Operation, stateDir string) Summary {
	var s Summary
	for _, op := range ops {
		if !m.restore(op.Path, op.ContentHash, op.OldContentHash, stateDir) {
			s.Failed = append(s.Failed, op.Path)
			continue
		}
		s.Modified = append(s.Modified, op.Path)
	}
	return s
}

// Redo re-applies the recorded post-run content, guarded by the pre-run
// hash the same way Undo is guarded by the post-run hash.
func (m *FileManager) Redo(ops []Operation, stateDir string) Summary {
	var s Summary
	for _, op := range ops {
		if !m.restore(op.Path, op.OldContentHash, op.ContentHash, stateDir) {
			s.Failed = append(s.Failed, op.Path)
			continue
		}
		s.Modified = append(s.Modified, op.Path)
	}
	return s
}

func (m *FileManager) restore(path, expectHash, targetHash, stateDir string) bool {
	actualHash, err := GetFileSHA256(path)
	if err != nil || actualHash != expectHash {
		return false
	}

	content, err := ReadBlob(stateDir, targetHash)
	if err != nil {
		return false
	}

	return os.WriteFile(path, content, 0644) == nil
}
