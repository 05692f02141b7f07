// Package merge collapses a set of entries into one.
package merge

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nessita/cgem/cmd/root"
	"github.com/nessita/cgem/internal/dateutils"
	"github.com/nessita/cgem/internal/merge"
)

var (
	whatOverride string
	whenOverride string
)

// Cmd represents the merge command.
var Cmd = &cobra.Command{
	Use:   "merge <entry-id> <entry-id> [entry-id...]",
	Short: "Merge entries of one book and account into a single entry",
	Long: `Merge two or more entries into one. The entries must belong to one
book, one account and one country. Signed amounts are added, tags are
combined, and the sources are deleted with a history snapshot, all in one
transaction. With --dry-run the merged entry is shown and nothing changes.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

func init() {
	Cmd.Flags().StringVar(&whatOverride, "what", "", "Description for the merged entry (default: combined descriptions)")
	Cmd.Flags().StringVar(&whenOverride, "when", "", "Date for the merged entry (default: first entry's date)")
}

func runMerge(cmd *cobra.Command, args []string) error {
	book, err := root.RequireBook(cmd)
	if err != nil {
		return err
	}

	ids := make([]int64, len(args))
	for i, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entry id %q", arg)
		}
		ids[i] = id
	}

	entries, err := root.DB.EntriesByID(cmd.Context(), book, ids)
	if err != nil {
		return err
	}

	opts := merge.Options{
		Who:    root.SharedFlags.Who,
		What:   whatOverride,
		DryRun: root.SharedFlags.DryRun,
	}
	if whenOverride != "" {
		var when time.Time
		when, _, err = dateutils.ParseDate(whenOverride)
		if err != nil {
			return err
		}
		opts.When = &when
	}

	merged, err := merge.Merge(cmd.Context(), root.DB, entries, opts, root.Log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.DryRun {
		fmt.Fprintf(out, "would merge %d entries into: %s\n", len(entries), merged.String())
		return nil
	}
	fmt.Fprintf(out, "merged %d entries into: %s\n", len(entries), merged.String())
	return nil
}
