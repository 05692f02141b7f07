// Package list prints a book's entries.
package list

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nessita/cgem/cmd/root"
	"github.com/nessita/cgem/internal/store"
)

var (
	accountSlug string
	tags        []string
	year        int
	month       int
	who         string
)

// Cmd represents the list command.
var Cmd = &cobra.Command{
	Use:   "list",
	Short: "List a book's entries",
	Long: `List a book's entries, newest first, optionally filtered by account,
tags, year, month or user.`,
	RunE: runList,
}

func init() {
	Cmd.Flags().StringVarP(&accountSlug, "account", "a", "", "Restrict to one account (slug)")
	Cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Restrict to entries carrying all given tags")
	Cmd.Flags().IntVarP(&year, "year", "y", 0, "Restrict to one year")
	Cmd.Flags().IntVarP(&month, "month", "m", 0, "Restrict to one month (1-12, requires --year)")
	Cmd.Flags().StringVar(&who, "user", "", "Restrict to entries created by one user")
}

func runList(cmd *cobra.Command, args []string) error {
	book, err := root.RequireBook(cmd)
	if err != nil {
		return err
	}
	if month != 0 && (month < 1 || month > 12) {
		return fmt.Errorf("invalid month %d", month)
	}
	if month != 0 && year == 0 {
		return fmt.Errorf("--month requires --year")
	}

	filter := store.EntryFilter{
		Tags:  tags,
		Year:  year,
		Month: time.Month(month),
		Who:   who,
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

	out := cmd.OutOrStdout()
	for _, entry := range entries {
		fmt.Fprintf(out, "%d\t%s\n", entry.ID, entry.String())
	}
	fmt.Fprintf(out, "%d entries\n", len(entries))
	return nil
}
