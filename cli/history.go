package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yllada/goras/history"
)

func (a *App) openHistory() (*history.Store, error) {
	path, err := a.config.ResolveHistoryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate history database: %w", err)
	}
	return history.Open(path, a.logger)
}

func (a *App) newHistoryCmd() *cobra.Command {
	var (
		since time.Duration
		limit int
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history [entry]",
		Short: "Show recorded statistics samples",
		Long: `Show statistics samples recorded by 'watch --record' or
'exporter --record', oldest first.

--prune deletes samples older than the given age instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if prune > 0 {
				n, err := store.Prune(cmd.Context(), time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Pruned %d sample(s)\n", n)
				return nil
			}

			q := history.Query{Limit: limit}
			if len(args) == 1 {
				q.EntryName = args[0]
			}
			if since > 0 {
				q.Since = time.Now().Add(-since)
			}
			samples, err := store.Samples(cmd.Context(), q)
			if err != nil {
				return err
			}

			if a.jsonOutput() {
				if samples == nil {
					samples = []history.Sample{}
				}
				return writeJSON(out, samples)
			}
			if len(samples) == 0 {
				fmt.Fprintln(out, "No samples recorded.")
				return nil
			}

			rows := make([][]string, 0, len(samples))
			for _, s := range samples {
				rows = append(rows, []string{
					s.Time.Local().Format("2006-01-02 15:04:05"),
					s.EntryName,
					formatBytes(s.BytesReceived),
					formatBytes(s.BytesTransmitted),
					fmt.Sprintf("%d", s.Errors),
					formatDuration(s.Duration),
				})
			}
			fmt.Fprint(out, renderTable([]string{"TIME", "ENTRY", "RECEIVED", "SENT", "ERRORS", "UPTIME"}, rows))
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "Only show samples newer than this age (e.g. 1h)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Show at most this many of the newest samples (0 for all)")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete samples older than this age")
	return cmd
}
