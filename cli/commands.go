package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/ras"
)

func (a *App) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the active connections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.enumerator(); err != nil {
				return err
			}
			conns, err := ras.EnumerateConnections()
			if err != nil {
				return fmt.Errorf("failed to enumerate connections: %w", err)
			}

			views := make([]connectionView, 0, len(conns))
			for _, c := range conns {
				status, err := c.GetStatus()
				if err != nil && !errors.Is(err, ras.ErrConnectionTerminated) {
					a.logger.Warn("Status of %s unavailable: %v", c, err)
				}
				views = append(views, newConnectionView(c, status))
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return writeJSON(out, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(out, "No active connections.")
				return nil
			}

			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Handle, v.EntryName, v.Device, v.DeviceType.String(), v.State})
			}
			fmt.Fprint(out, renderTable([]string{"HANDLE", "ENTRY", "DEVICE", "TYPE", "STATE"}, rows))
			return nil
		},
	}
}

func (a *App) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <entry|handle>",
		Short: "Show the status of a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.find(args[0])
			if err != nil {
				return err
			}
			status, err := conn.GetStatus()
			if err != nil {
				return fmt.Errorf("failed to get status of %s: %w", conn, err)
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return writeJSON(out, struct {
					Connection connectionView        `json:"connection"`
					Status     *ras.ConnectionStatus `json:"status"`
				}{newConnectionView(conn, status), status})
			}

			v := newConnectionView(conn, status)
			fields := [][2]string{
				{"Entry", v.EntryName},
				{"Handle", v.Handle},
				{"State", renderState(status.State)},
				{"Device", conn.Device().String()},
				{"Phone book", v.PhoneBookPath},
				{"Entry ID", v.EntryID.String()},
				{"Options", v.Options},
				{"Phone number", orDash(status.PhoneNumber)},
				{"Local endpoint", formatIP(status.LocalEndpoint)},
				{"Remote endpoint", formatIP(status.RemoteEndpoint)},
			}
			if v.SessionID != "" {
				fields = append(fields, [2]string{"Session", v.SessionID})
			}
			if status.ErrorCode != 0 {
				fields = append(fields, [2]string{"Error", errStyle.Render(fmt.Sprintf("%s (%d)", status.ErrorMessage, status.ErrorCode))})
			}
			fmt.Fprint(out, renderFields(fields))
			return nil
		},
	}
}

func (a *App) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [entry|handle]",
		Short: "Show link statistics of one or all connections",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.enumerator()
			if err != nil {
				return err
			}

			var conns []*ras.Connection
			if len(args) == 1 {
				c, err := e.FindConnection(args[0])
				if err != nil {
					return err
				}
				conns = []*ras.Connection{c}
			} else if conns, err = e.Connections(); err != nil {
				return fmt.Errorf("failed to enumerate connections: %w", err)
			}

			views := make([]statisticsView, 0, len(conns))
			for _, c := range conns {
				stats, err := c.GetStatistics()
				if err != nil {
					if len(args) == 0 && errors.Is(err, ras.ErrConnectionTerminated) {
						continue
					}
					return fmt.Errorf("failed to get statistics of %s: %w", c, err)
				}
				views = append(views, statisticsView{Handle: c.Handle().String(), EntryName: c.EntryName(), ConnectionStatistics: stats})
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return writeJSON(out, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(out, "No active connections.")
				return nil
			}

			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{
					v.EntryName,
					formatBytes(v.BytesReceived),
					formatBytes(v.BytesTransmitted),
					fmt.Sprintf("%d", v.TotalErrors()),
					formatSpeed(v.LinkSpeed),
					formatDuration(v.ConnectionDuration),
				})
			}
			fmt.Fprint(out, renderTable([]string{"ENTRY", "RECEIVED", "SENT", "ERRORS", "SPEED", "UPTIME"}, rows))
			return nil
		},
	}
}

func (a *App) newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <entry|handle>",
		Short: "Reset the statistics counters of a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.find(args[0])
			if err != nil {
				return err
			}
			if err := conn.ClearStatistics(); err != nil {
				return fmt.Errorf("failed to clear statistics of %s: %w", conn, err)
			}
			a.logger.Info("Statistics cleared for %s", conn)
			cmd.Printf("✓ Statistics cleared for %s\n", conn.EntryName())
			return nil
		},
	}
}

func (a *App) newHangUpCmd() *cobra.Command {
	var (
		keepReferences bool
		timeout        time.Duration
	)

	cmd := &cobra.Command{
		Use:     "hangup <entry|handle>",
		Aliases: []string{"disconnect"},
		Short:   "Hang up a connection",
		Long: `Hang up a connection and wait until it is gone.

By default every reference to the connection is closed. With
--keep-references only this process's reference is released, which leaves
the connection up when other applications still hold it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.find(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			cmd.Printf("Hanging up %s...\n", conn.EntryName())
			if err := conn.DisconnectWithReferences(ctx, !keepReferences); err != nil {
				if errors.Is(err, common.ErrCancelled) {
					return fmt.Errorf("hang-up of %s did not complete: %w", conn.EntryName(), err)
				}
				return fmt.Errorf("failed to hang up %s: %w", conn.EntryName(), err)
			}
			a.logger.Info("Hung up %s", conn)
			cmd.Printf("✓ Disconnected from %s\n", conn.EntryName())
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepReferences, "keep-references", false, "Release only this process's reference")
	cmd.Flags().DurationVar(&timeout, "timeout", common.HangUpTimeout, "Give up waiting after this long (0 waits forever)")
	return cmd
}
