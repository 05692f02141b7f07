// Package history shows the audit snapshots of deleted or merged entries.
package history

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nessita/cgem/cmd/root"
	"github.com/nessita/cgem/internal/dateutils"
)

// Cmd represents the history command.
var Cmd = &cobra.Command{
	Use:   "history <entry-id>",
	Short: "Show the audit snapshots taken for an entry",
	Long: `Show the snapshots recorded when an entry was deleted or merged away.
Snapshots keep the entry's data and the reason it was removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entry id %q", args[0])
	}

	snapshots, err := root.DB.HistoryForEntry(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(snapshots) == 0 {
		fmt.Fprintln(out, "no history")
		return nil
	}
	for _, snapshot := range snapshots {
		sign := ""
		if !snapshot.IsIncome {
			sign = "-"
		}
		fmt.Fprintf(out, "%s\t%s\t%s (%s%s, by %s on %s)\n",
			dateutils.ToISODate(snapshot.RecordedAt), snapshot.Reason,
			snapshot.What, sign, snapshot.Amount.StringFixed(2),
			snapshot.Who, dateutils.ToISODate(snapshot.When))
	}
	return nil
}
