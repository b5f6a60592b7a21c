package graft

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	modifiedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	unchangedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	totalStyle     = lipgloss.NewStyle().Bold(true)
)

type spinner struct {
	frames []string
	index  int
}

func newSpinner() spinner      { return spinner{frames: []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}} }
func (s *spinner) tick()       { s.index = (s.index + 1) % len(s.frames) }
func (s spinner) View() string { return s.frames[s.index] }

type tickMsg time.Time

type progressMsg struct {
	current, total int
}

type doneMsg struct {
	summary Summary
	err     error
}

type tuiModel struct {
	spinner    spinner
	cur, total int
	done       bool
	summary    Summary
	err        error
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m tuiModel) Init() tea.Cmd { return tick() }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.spinner.tick()
		return m, tick()
	case progressMsg:
		m.cur, m.total = msg.current, msg.total
		return m, nil
	case doneMsg:
		m.done = true
		m.summary, m.err = msg.summary, msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = fmt.Errorf("aborted")
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Processing... %d/%d", m.spinner.View(), m.cur, m.total)
}

type TUI struct {
	app         *App
	noAnimation bool
	verbose     bool
}

func NewTUI(app *App, noAnimation, verbose bool) *TUI {
	return &TUI{app: app, noAnimation: noAnimation, verbose: verbose}
}

func (t *TUI) Run() error {
	if t.noAnimation {
		summary, err := t.app.Execute()
		if err == nil {
			fmt.Print(FormatSummary(summary, t.verbose))
		}
		return err
	}

	p := tea.NewProgram(tuiModel{spinner: newSpinner()})

	t.app.SetProgressCallback(func(c, tot int) {
		p.Send(progressMsg{current: c, total: tot})
	})

	go func() {
		s, err := t.app.Execute()
		p.Send(doneMsg{summary: s, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}

	m := final.(tuiModel)
	if m.err != nil {
		return m.err
	}
	fmt.Print(FormatSummary(m.summary, t.verbose))
	return nil
}

// FormatSummary renders one line per updated file and a trailing total
// count. Unchanged files are listed only in verbose mode.
func FormatSummary(s Summary, verbose bool) string {
	var b strings.Builder
	if s.Message != "" {
		b.WriteString(headerStyle.Render(s.Message) + "\n\n")
	}

	renderList := func(title string, style lipgloss.Style, list []string) {
		if len(list) == 0 {
			return
		}
		b.WriteString(style.Render(title) + "\n")
		for _, f := range list {
			b.WriteString(fmt.Sprintf("  %s\n", f))
		}
	}

	renderList("Updated:", modifiedStyle, s.Modified)
	if verbose {
		renderList("Unchanged:", unchangedStyle, s.Unchanged)
	}
	renderList("Failed:", errorStyle, s.Failed)

	b.WriteString(totalStyle.Render(fmt.Sprintf("Total: %d files updated", len(s.Modified))) + "\n")
	return b.String()
}
