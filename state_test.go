package graft

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedOperation(t *testing.T, root, name, oldContent, newContent string) Operation {
	t.Helper()

	path := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(path, []byte(newContent), 0644))

	oldHash := shaOf(t, oldContent)
	newHash := shaOf(t, newContent)

	stateDir := filepath.Join(root, stateDirName)
	require.NoError(t, WriteBlob(stateDir, oldHash, []byte(oldContent)))
	require.NoError(t, WriteBlob(stateDir, newHash, []byte(newContent)))

	return Operation{Path: path, OldContentHash: oldHash, ContentHash: newHash}
}

func shaOf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tmp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	hash, err := GetFileSHA256(path)
	require.NoError(t, err)
	return hash
}

func TestStateManagerPersistence(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sm, err := NewStateManager(root)
	require.NoError(t, err)

	op := seedOperation(t, root, "a.go", "old", "new")
	sm.Write([]Operation{op})

	// A fresh manager reloads the persisted history.
	sm2, err := NewStateManager(root)
	require.NoError(t, err)

	ops := sm2.GetOperationsToUndo()
	require.Len(t, ops, 1)
	require.Equal(t, op.Path, ops[0].Path)
	require.Equal(t, op.OldContentHash, ops[0].OldContentHash)
	require.Equal(t, op.ContentHash, ops[0].ContentHash)

	require.Empty(t, sm2.GetOperationsToUndo(), "history is exhausted after one undo")
}

func TestStateManagerUndoRedoCursor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sm, err := NewStateManager(root)
	require.NoError(t, err)

	op := seedOperation(t, root, "a.go", "old", "new")
	sm.Write([]Operation{op})

	require.Empty(t, sm.GetOperationsToRedo(), "nothing to redo at the head")
	require.Len(t, sm.GetOperationsToUndo(), 1)
	require.Len(t, sm.GetOperationsToRedo(), 1)
}

func TestStateManagerWriteDropsRedoTail(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sm, err := NewStateManager(root)
	require.NoError(t, err)

	first := seedOperation(t, root, "a.go", "v0", "v1")
	sm.Write([]Operation{first})
	require.Len(t, sm.GetOperationsToUndo(), 1)

	// Restore the old content so the new entry records a fresh run.
	require.NoError(t, os.WriteFile(first.Path, []byte("v0"), 0644))
	second := seedOperation(t, root, "a.go", "v0", "v2")
	sm.Write([]Operation{second})

	ops := sm.GetOperationsToUndo()
	require.Len(t, ops, 1)
	require.Equal(t, second.ContentHash, ops[0].ContentHash, "the stale redo tail is gone")
	require.Empty(t, sm.GetOperationsToUndo())
}

func TestStateManagerSyncDropsHandEditedEntry(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sm, err := NewStateManager(root)
	require.NoError(t, err)

	op := seedOperation(t, root, "a.go", "old", "new")
	sm.Write([]Operation{op})

	require.NoError(t, os.WriteFile(op.Path, []byte("edited by hand"), 0644))
	sm.Sync()

	require.Empty(t, sm.GetOperationsToUndo())
}
