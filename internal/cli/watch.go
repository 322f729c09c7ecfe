package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lecture-downloader/internal/model"
	"lecture-downloader/internal/runstate"
)

var (
	watchTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("211"))
	watchNameStyle   = lipgloss.NewStyle().Bold(true)
	watchStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	watchFooterStyle = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

type watchTickMsg time.Time

type watchRecordsMsg map[string]model.ProgressRecord

type watchModel struct {
	store   runstate.ProgressStore
	bar     progress.Model
	names   []string
	records map[string]model.ProgressRecord
	width   int
}

func newWatchModel(store runstate.ProgressStore) watchModel {
	return watchModel{
		store:   store,
		bar:     progress.New(progress.WithDefaultGradient()),
		records: map[string]model.ProgressRecord{},
	}
}

// runWatch renders the shared progress store as a live terminal view. It is a
// pure reader: quitting it never touches a running batch.
func runWatch(store runstate.ProgressStore) error {
	p := tea.NewProgram(newWatchModel(store))
	_, err := p.Run()
	return err
}

func watchTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return watchTickMsg(t) })
}

func (m watchModel) refresh() tea.Msg {
	records, err := m.store.Snapshot()
	if err != nil {
		return watchRecordsMsg{}
	}
	return watchRecordsMsg(records)
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.refresh, watchTick())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := msg.Width - 60
		if barWidth < 10 {
			barWidth = 10
		}
		m.bar.Width = barWidth

	case watchTickMsg:
		return m, tea.Batch(m.refresh, watchTick())

	case watchRecordsMsg:
		m.records = msg
		m.names = m.names[:0]
		for name := range m.records {
			m.names = append(m.names, name)
		}
		sort.Strings(m.names)
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(watchTitleStyle.Render("lecture-downloader progress"))
	b.WriteString("\n\n")

	if len(m.names) == 0 {
		b.WriteString("no downloads in progress\n")
	}
	completed := 0
	for _, name := range m.names {
		rec := m.records[name]
		if rec.Status == model.ProgressCompleted {
			completed++
		}
		b.WriteString(watchNameStyle.Render(name))
		b.WriteString("\n")
		b.WriteString(m.bar.ViewAs(float64(rec.Percentage) / 100))
		b.WriteString(watchStatusStyle.Render(fmt.Sprintf("  %s %d/%d @ %.1f seg/s", rec.Status, rec.Current, rec.Total, rec.Rate)))
		b.WriteString("\n")
	}
	if len(m.names) > 0 {
		b.WriteString(fmt.Sprintf("\n%d of %d completed", completed, len(m.names)))
	}
	b.WriteString(watchFooterStyle.Render("\npress q to quit"))
	b.WriteString("\n")
	return b.String()
}
