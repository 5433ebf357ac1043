package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// refreshInterval is how often the dashboard re-polls the
// Control-Plane API, matching the daemon's own DETECT_INTERVAL (spec
// §4.3) so a new suggestion is visible within one detector tick.
const refreshInterval = 10 * time.Second

var (
	watchStyleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	watchStyleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	watchStyleAmber  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	watchStyleHeader = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.NormalBorder(), false, false, true, false).
				BorderForeground(lipgloss.Color("8"))
)

// newWatchCommand builds `deskloopctl watch`: a live bubbletea
// dashboard of recent actions, pending suggestions, and app-usage
// totals, modeled on the teacher's bubbleChatUI
// (cmd/alex/tui_bubbletea.go) — a bordered header, a scrollable
// viewport body, and a periodic tea.Tick instead of an agent event
// stream driving updates.
func newWatchCommand(newC func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard of recent activity and pending suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := newWatchModel(newC())
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

type watchTickMsg struct{}

type watchDataMsg struct {
	actions   []Action
	pending   []Suggestion
	usage     Usage
	activity  CurrentActivity
	saved     TimeSaved
	fetchedAt time.Time
	err       error
}

type watchModel struct {
	client   *client
	viewport viewport.Model
	renderer *glamour.TermRenderer
	width    int
	height   int
	data     watchDataMsg
}

func newWatchModel(c *client) *watchModel {
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(88),
	)
	return &watchModel{client: c, viewport: viewport.New(0, 0), renderer: renderer}
}

// renderPattern renders a suggestion's pattern_description through
// glamour (the teacher's cmd/markdown.go "notty" style, chosen because
// it renders inside a bubbletea viewport rather than to a raw tty), and
// falls back to the plain string if the renderer failed to construct.
func (m *watchModel) renderPattern(s string) string {
	if m.renderer == nil {
		return s
	}
	out, err := m.renderer.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tickAfter(refreshInterval))
}

func tickAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return watchTickMsg{} })
}

func (m *watchModel) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var data watchDataMsg
		data.fetchedAt = time.Now()

		if actions, err := m.client.RecentActions(ctx, 60); err == nil {
			data.actions = actions
		} else {
			data.err = err
		}
		if pending, err := m.client.PendingSuggestions(ctx); err == nil {
			data.pending = pending
		}
		if usage, err := m.client.AppUsageToday(ctx); err == nil {
			data.usage = usage
		}
		if activity, err := m.client.CurrentActivity(ctx); err == nil {
			data.activity = activity
		}
		if saved, err := m.client.TimeSaved(ctx); err == nil {
			data.saved = saved
		}
		return data
	}
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 2
		m.viewport.SetContent(m.render())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case watchTickMsg:
		return m, tea.Batch(m.fetch(), tickAfter(refreshInterval))

	case watchDataMsg:
		m.data = msg
		m.viewport.SetContent(m.render())
		return m, nil
	}
	return m, nil
}

func (m *watchModel) View() string {
	header := watchStyleHeader.Render(watchStyleTitle.Render("deskloop") + "  " +
		watchStyleDim.Render("q quit · r refresh · updated "+m.data.fetchedAt.Format(time.Kitchen)))
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View())
}

func (m *watchModel) render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n\n", watchStyleTitle.Render("Time saved:"), m.data.saved.Display)

	fmt.Fprintf(&b, "%s %s (%d recent actions)\n\n",
		watchStyleTitle.Render("Current app:"), orDash(m.data.activity.CurrentApp), m.data.activity.RecentActions)

	b.WriteString(watchStyleTitle.Render("Pending suggestions") + "\n")
	if len(m.data.pending) == 0 {
		b.WriteString(watchStyleDim.Render("  (none)") + "\n")
	}
	for _, s := range m.data.pending {
		fmt.Fprintf(&b, "  %s  %s\n", watchStyleAmber.Render(s.SuggestionID), m.renderPattern(s.PatternDescription))
	}
	b.WriteString("\n")

	b.WriteString(watchStyleTitle.Render("Today's app usage") + "\n")
	b.WriteString(renderUsageBars(m.data.usage))
	b.WriteString("\n")

	b.WriteString(watchStyleTitle.Render("Recent actions (last 60s)") + "\n")
	if len(m.data.actions) == 0 {
		b.WriteString(watchStyleDim.Render("  (none)") + "\n")
	}
	for i := len(m.data.actions) - 1; i >= 0; i-- {
		a := m.data.actions[i]
		fmt.Fprintf(&b, "  %s  %-16s %s\n", a.Timestamp.Format("15:04:05"), a.Type, watchStyleDim.Render(string(a.Source)))
	}

	if m.data.err != nil {
		fmt.Fprintf(&b, "\n%s\n", lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("error: "+m.data.err.Error()))
	}
	return b.String()
}

const usageBarWidth = 30

func renderUsageBars(u Usage) string {
	if len(u.Usage) == 0 {
		return watchStyleDim.Render("  (no usage yet today)") + "\n"
	}
	var b strings.Builder
	var max int64 = 1
	for _, secs := range u.Usage {
		if secs > max {
			max = secs
		}
	}
	for app, secs := range u.Usage {
		filled := int(float64(secs) / float64(max) * usageBarWidth)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", usageBarWidth-filled)
		fmt.Fprintf(&b, "  %-20s %s %s\n", app, bar, (time.Duration(secs) * time.Second).String())
	}
	return b.String()
}
