// Package export writes a book's entries to a CSV file.
package export

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nessita/cgem/cmd/root"
	"github.com/nessita/cgem/internal/export"
	"github.com/nessita/cgem/internal/store"
)

var (
	accountSlug string
	tags        []string
	year        int
	month       int
	outputFile  string
)

// Cmd represents the export command.
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export a book's entries as CSV",
	Long: `Export a book's entries as CSV with signed amounts and ISO dates,
optionally filtered by account, tags, year or month.`,
	RunE: runExport,
}

func init() {
	Cmd.Flags().StringVarP(&accountSlug, "account", "a", "", "Restrict to one account (slug)")
	Cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Restrict to entries carrying all given tags")
	Cmd.Flags().IntVarP(&year, "year", "y", 0, "Restrict to one year")
	Cmd.Flags().IntVarP(&month, "month", "m", 0, "Restrict to one month (1-12, requires --year)")
	Cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output CSV file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	book, err := root.RequireBook(cmd)
	if err != nil {
		return err
	}
	if month != 0 && year == 0 {
		return fmt.Errorf("--month requires --year")
	}

	filter := store.EntryFilter{
		Tags:  tags,
		Year:  year,
		Month: time.Month(month),
	}
	if accountSlug != "" {
		account, err := root.RequireAccount(accountSlug)
		if err != nil {
			return err
		}
		filter.Account = account
	}

	entries, err := root.DB.ListEntries(cmd.Context(), book, filter)
	if err != nil {
		return err
	}

	delimiter := root.Cfg.DelimiterRune()
	if outputFile == "" {
		return export.WriteEntries(cmd.OutOrStdout(), entries, delimiter, root.Log)
	}
	if err := export.WriteEntriesToFile(entries, outputFile, delimiter, root.Log); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries to %s\n", len(entries), outputFile)
	return nil
}
