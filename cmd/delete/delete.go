// Package deletecmd removes entries from a book, snapshotting each into
// the history table first.
package deletecmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nessita/cgem/cmd/root"
	"github.com/nessita/cgem/internal/models"
	"github.com/nessita/cgem/internal/store"
)

// Cmd represents the delete command.
var Cmd = &cobra.Command{
	Use:   "delete <entry-id> [entry-id...]",
	Short: "Delete entries, keeping a history snapshot of each",
	Long: `Delete one or more entries from a book. Each entry is snapshotted into
the history table before removal, so "cgem history" can still show what
was deleted. With --dry-run the entries are listed and nothing changes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	// Resolving first both validates the ids against the book and keeps
	// the entries around for reporting after they are gone.
	entries, err := root.DB.EntriesByID(cmd.Context(), book, ids)
	if err != nil {
		return err
	}

	err = root.DB.WithTx(cmd.Context(), func(tx store.Tx) error {
		if err := tx.DeleteEntries(ids, models.HistoryDelete); err != nil {
			return err
		}
		if root.SharedFlags.DryRun {
			return store.ErrRollback
		}
		return nil
	})

	out := cmd.OutOrStdout()
	if errors.Is(err, store.ErrRollback) {
		for _, entry := range entries {
			fmt.Fprintf(out, "would delete %d\t%s\n", entry.ID, entry.String())
		}
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fmt.Fprintf(out, "deleted %d\t%s\n", entry.ID, entry.String())
	}
	return nil
}
