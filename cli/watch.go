package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/history"
	"github.com/yllada/goras/monitor"
	"github.com/yllada/goras/ras"
)

const maxWatchEvents = 5

func (a *App) newWatchCmd() *cobra.Command {
	var (
		record   bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow connections and their statistics live",
		Long: `Follow connections and their statistics live.

On a terminal this opens a full-screen view; press q to quit. Otherwise
one line is printed per connect, disconnect or state change.

With --record every poll is stored in the history database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.enumerator()
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = a.config.PollInterval
			}

			mcfg := monitor.DefaultConfig()
			mcfg.Interval = interval
			m := monitor.New(e, mcfg, a.logger)

			if record {
				store, err := a.openHistory()
				if err != nil {
					return err
				}
				defer store.Close()
				m.SetOnPoll(recordPoll(cmd.Context(), store, a.logger))
			}

			a.keepRotatingLogs(cmd.Context())
			out := cmd.OutOrStdout()
			if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				return runInteractiveWatch(cmd.Context(), m, out)
			}
			return runPlainWatch(cmd.Context(), m, out)
		},
	}

	cmd.Flags().BoolVar(&record, "record", false, "Store statistics samples in the history database")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default from config)")
	return cmd
}

// recordPoll returns a poll callback storing one sample per connection with
// statistics.
func recordPoll(ctx context.Context, store *history.Store, logger common.Logger) func([]monitor.Tracked) {
	return func(snapshot []monitor.Tracked) {
		samples := make([]history.Sample, 0, len(snapshot))
		for _, t := range snapshot {
			if t.Statistics == nil {
				continue
			}
			samples = append(samples, history.NewSample(t.Conn, t.Statistics, t.LastCheck))
		}
		if err := store.Record(ctx, samples...); err != nil && ctx.Err() == nil {
			logger.Warn("Failed to record history: %v", err)
		}
	}
}

// runPlainWatch prints one line per event until ctx is done.
func runPlainWatch(ctx context.Context, m *monitor.Monitor, out io.Writer) error {
	m.SetOnEvent(func(e monitor.Event) {
		fmt.Fprintln(out, formatEvent(e))
	})
	m.Start()
	defer m.Stop()

	<-ctx.Done()
	return nil
}

func formatEvent(e monitor.Event) string {
	line := fmt.Sprintf("%s  %-12s  %s (%s)", e.Time.Format(time.RFC3339), e.Type, e.EntryName, e.Handle)
	switch e.Type {
	case monitor.EventStateChanged:
		line += fmt.Sprintf("  %s -> %s", e.OldState, e.NewState)
	case monitor.EventConnected:
		line += "  " + e.NewState.String()
	}
	return line
}

// runInteractiveWatch runs the full-screen view until the user quits or
// ctx is done.
func runInteractiveWatch(ctx context.Context, m *monitor.Monitor, out io.Writer) error {
	p := tea.NewProgram(newWatchModel(), tea.WithContext(ctx), tea.WithOutput(out), tea.WithAltScreen())
	m.SetOnEvent(func(e monitor.Event) { p.Send(eventMsg(e)) })
	m.SetOnPoll(chainPoll(m, func(s []monitor.Tracked) { p.Send(snapshotMsg(s)) }))
	m.Start()
	defer m.Stop()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// chainPoll keeps a poll callback set earlier (the history recorder) and
// adds next.
func chainPoll(m *monitor.Monitor, next func([]monitor.Tracked)) func([]monitor.Tracked) {
	prev := m.OnPoll()
	if prev == nil {
		return next
	}
	return func(s []monitor.Tracked) {
		prev(s)
		next(s)
	}
}

type snapshotMsg []monitor.Tracked

type eventMsg monitor.Event

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	eventStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// watchModel is the bubbletea model of the watch view.
type watchModel struct {
	table    table.Model
	spinner  spinner.Model
	events   []string
	polls    int
	lastPoll time.Time
	quitting bool
}

func newWatchModel() watchModel {
	columns := []table.Column{
		{Title: "HANDLE", Width: 10},
		{Title: "ENTRY", Width: 24},
		{Title: "STATE", Width: 14},
		{Title: "RECEIVED", Width: 11},
		{Title: "SENT", Width: 11},
		{Title: "ERRORS", Width: 7},
		{Title: "UPTIME", Width: 12},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := spinner.New()
	s.Spinner = spinner.Dot
	return watchModel{table: t, spinner: s}
}

// Init implements tea.Model.
func (w watchModel) Init() tea.Cmd {
	return w.spinner.Tick
}

// Update implements tea.Model.
func (w watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			w.quitting = true
			return w, tea.Quit
		}

	case tea.WindowSizeMsg:
		h := msg.Height - 8 - maxWatchEvents
		if h < 3 {
			h = 3
		}
		w.table.SetHeight(h)
		return w, nil

	case snapshotMsg:
		w.table.SetRows(snapshotRows(msg))
		w.polls++
		w.lastPoll = time.Now()
		return w, nil

	case eventMsg:
		w.events = append(w.events, formatEvent(monitor.Event(msg)))
		if len(w.events) > maxWatchEvents {
			w.events = w.events[len(w.events)-maxWatchEvents:]
		}
		return w, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd
	}

	var cmd tea.Cmd
	w.table, cmd = w.table.Update(msg)
	return w, cmd
}

// View implements tea.Model.
func (w watchModel) View() string {
	if w.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(common.AppName + " watch"))
	b.WriteString(" ")
	b.WriteString(w.spinner.View())
	if w.polls > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" %d connection(s), updated %s", len(w.table.Rows()), w.lastPoll.Format("15:04:05"))))
	}
	b.WriteString("\n\n")
	b.WriteString(w.table.View())
	b.WriteString("\n\n")
	for _, e := range w.events {
		b.WriteString(eventStyle.Render(e))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("[↑/↓ to scroll, q to quit]"))
	return b.String()
}

func snapshotRows(snapshot []monitor.Tracked) []table.Row {
	rows := make([]table.Row, 0, len(snapshot))
	for _, t := range snapshot {
		state := "unknown"
		if t.Status != nil {
			state = t.Status.State.String()
		}
		if t.ConsecutiveFails > 0 {
			state = "unreachable"
		}
		stats := t.Statistics
		if stats == nil {
			stats = &ras.ConnectionStatistics{}
		}
		rows = append(rows, table.Row{
			t.Conn.Handle().String(),
			t.Conn.EntryName(),
			state,
			formatBytes(stats.BytesReceived),
			formatBytes(stats.BytesTransmitted),
			fmt.Sprintf("%d", stats.TotalErrors()),
			formatDuration(stats.ConnectionDuration),
		})
	}
	return rows
}
