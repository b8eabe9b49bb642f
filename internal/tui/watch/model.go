// Package watch is a terminal monitor over the storage index: recent
// classified items and per-category totals, refreshed continuously.
package watch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/savenote/savenote/internal/domain"
	"github.com/savenote/savenote/internal/storage"
)

const (
	refreshInterval = 2 * time.Second
	maxRows         = 20
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("240"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Width(10)
	senderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type refreshMsg struct {
	entries []storage.Entry
	counts  map[domain.Category]int
	err     error
}

type tickMsg time.Time

// Model is the BubbleTea model for the watch TUI.
type Model struct {
	index   *storage.Index
	spinner spinner.Model

	entries []storage.Entry
	counts  map[domain.Category]int
	lastErr error
	width   int
}

// New creates a watch model over an open storage index.
func New(index *storage.Index) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{index: index, spinner: sp}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.refresh,
		tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
	)
}

func (m Model) refresh() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	entries, err := m.index.Recent(ctx, maxRows)
	if err != nil {
		return refreshMsg{err: err}
	}
	counts, err := m.index.CategoryCounts(ctx)
	if err != nil {
		return refreshMsg{err: err}
	}
	return refreshMsg{entries: entries, counts: counts}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refresh
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		return m, tea.Batch(
			m.refresh,
			tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		)

	case refreshMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.entries = msg.entries
			m.counts = msg.counts
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("savenote") + " " + m.spinner.View() + "\n\n")
	b.WriteString(m.countsLine() + "\n\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-16s %-20s %s", "CATEGORY", "SENDER", "FILED", "CONTENT")) + "\n")

	if len(m.entries) == 0 {
		b.WriteString(helpStyle.Render("no items yet") + "\n")
	}
	for _, e := range m.entries {
		b.WriteString(fmt.Sprintf("%s %s %-20s %s\n",
			categoryStyle.Render(string(e.Category)),
			senderStyle.Render(truncate(e.Sender, 16)),
			e.ProcessedAt.Local().Format("2006-01-02 15:04:05"),
			truncate(e.Original, contentWidth(m.width)),
		))
	}

	if m.lastErr != nil {
		b.WriteString("\n" + errStyle.Render("error: "+m.lastErr.Error()) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("r refresh • q quit"))
	return b.String()
}

func (m Model) countsLine() string {
	if len(m.counts) == 0 {
		return helpStyle.Render("empty index")
	}

	cats := make([]domain.Category, 0, len(m.counts))
	for c := range m.counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, fmt.Sprintf("%s %d", c, m.counts[c]))
	}
	return strings.Join(parts, "  ")
}

func contentWidth(total int) int {
	w := total - 50
	if w < 20 {
		w = 40
	}
	return w
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// Run starts the TUI and blocks until the user quits.
func Run(index *storage.Index) error {
	p := tea.NewProgram(New(index), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
