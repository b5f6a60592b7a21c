package graft

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/neovim/go-client/nvim"
)

const undoDir = "~/.local/state/nvim/undo/"

// NvimManager applies rewritten contents through a Neovim instance so open
// buffers pick the change up and the editor's own undo history records it.
// It attaches to $NVIM_LISTEN_ADDRESS when set, otherwise it starts a
// headless instance of its own.
type NvimManager struct {
	v             *nvim.Nvim
	isSelfStarted bool
	cmd           *exec.Cmd
	socketPath    string
}

func NewNvimManager() (*NvimManager, error) {
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		v, err := nvim.Dial(addr)
		if err == nil {
			return &NvimManager{v: v}, nil
		}
	}

	tmpDir, err := os.MkdirTemp("", "graft-nvim-")
	if err != nil {
		return nil, err
	}
	socketPath := filepath.Join(tmpDir, "nvim.sock")

	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socketPath)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	for i := 0; i < 20; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	v, err := nvim.Dial(socketPath)
	if err != nil {
		cmd.Process.Kill()
		return nil, err
	}

	m := &NvimManager{v: v, isSelfStarted: true, cmd: cmd, socketPath: socketPath}
	m.configureTempInstance()
	return m, nil
}

func (m *NvimManager) configureTempInstance() {
	home, _ := os.UserHomeDir()
	expandedUndoDir := strings.Replace(undoDir, "~", home, 1)
	os.MkdirAll(expandedUndoDir, 0755)

	b := m.v.NewBatch()
	b.Command("set undofile")
	b.Command(fmt.Sprintf("set undodir=%s", expandedUndoDir))
	b.Command("set noswapfile")
	b.Execute()
}

func (m *NvimManager) Close() {
	if m.v != nil {
		m.v.Close()
	}
	if m.isSelfStarted && m.cmd != nil && m.cmd.Process != nil {
		m.cmd.Process.Kill()
		m.cmd.Wait()
		os.RemoveAll(filepath.Dir(m.socketPath))
	}
}

// ApplyChange replaces the buffer for the file and writes it out, keeping
// the same write-per-file semantics as the plain filesystem path.
func (m *NvimManager) ApplyChange(change FileChange) error {
	absPath, err := filepath.Abs(change.Path)
	if err != nil {
		return err
	}

	lines := strings.Split(strings.TrimSuffix(change.Content, "\n"), "\n")
	byteContent := make([][]byte, len(lines))
	for i, s := range lines {
		byteContent[i] = []byte(s)
	}

	b := m.v.NewBatch()
	b.Command(fmt.Sprintf("edit %s", absPath))
	b.SetBufferLines(0, 0, -1, true, byteContent)
	b.Command("write")

	if err := b.Execute(); err != nil {
		return fmt.Errorf("writing %s via nvim: %w", change.Path, err)
	}
	return nil
}
