package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/yllada/goras/ras"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(16)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// connectionView is the JSON and table form of a connection.
type connectionView struct {
	Handle        string         `json:"handle"`
	EntryName     string         `json:"entry_name"`
	Device        string         `json:"device"`
	DeviceType    ras.DeviceType `json:"device_type"`
	PhoneBookPath string         `json:"phone_book_path"`
	EntryID       uuid.UUID      `json:"entry_id"`
	CorrelationID uuid.UUID      `json:"correlation_id"`
	SessionID     string         `json:"session_id,omitempty"`
	Options       string         `json:"options"`
	State         string         `json:"state"`
}

func newConnectionView(c *ras.Connection, status *ras.ConnectionStatus) connectionView {
	v := connectionView{
		Handle:        c.Handle().String(),
		EntryName:     c.EntryName(),
		Device:        c.Device().Name,
		DeviceType:    c.Device().Type,
		PhoneBookPath: c.PhoneBookPath(),
		EntryID:       c.EntryID(),
		CorrelationID: c.CorrelationID(),
		Options:       c.Options().String(),
		State:         "unknown",
	}
	if !c.SessionID().IsZero() {
		v.SessionID = c.SessionID().String()
	}
	if status != nil {
		v.State = status.State.String()
	}
	return v
}

// statisticsView is the JSON form of the statistics of one connection.
type statisticsView struct {
	Handle    string `json:"handle"`
	EntryName string `json:"entry_name"`
	*ras.ConnectionStatistics
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable renders rows below a bold header.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderRow(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render() + "\n"
}

// renderFields renders label/value pairs, one per line.
func renderFields(fields [][2]string) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(labelStyle.Render(f[0]))
		b.WriteString(f[1])
		b.WriteString("\n")
	}
	return b.String()
}

func renderState(s ras.ConnectionState) string {
	switch s {
	case ras.StateConnected:
		return okStyle.Render(s.String())
	case ras.StateDisconnected:
		return errStyle.Render(s.String())
	default:
		return s.String()
	}
}

func formatBytes(n uint64) string {
	return humanize.IBytes(n)
}

func formatSpeed(bps uint64) string {
	if bps == 0 {
		return "-"
	}
	return humanize.SIWithDigits(float64(bps), 1, "bps")
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

func formatIP(ip net.IP) string {
	if len(ip) == 0 {
		return "-"
	}
	return ip.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
