// Package balance reports account and book balances.
package balance

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nessita/cgem/cmd/root"
	"github.com/nessita/cgem/internal/balance"
	"github.com/nessita/cgem/internal/dateutils"
	"github.com/nessita/cgem/internal/store"
)

var (
	accountSlug string
	startStr    string
	endStr      string
	monthly     bool
)

// Cmd represents the balance command.
var Cmd = &cobra.Command{
	Use:   "balance",
	Short: "Compute the balance of a book over a date range",
	Long: `Compute income, expense and net result for a book's entries,
optionally restricted to one account and a date range, with a
per-calendar-month breakdown.`,
	RunE: runBalance,
}

func init() {
	Cmd.Flags().StringVarP(&accountSlug, "account", "a", "", "Restrict to one account (slug)")
	Cmd.Flags().StringVar(&startStr, "start", "", "Range start date (inclusive)")
	Cmd.Flags().StringVar(&endStr, "end", "", "Range end date (inclusive)")
	Cmd.Flags().BoolVarP(&monthly, "monthly", "m", false, "Show a per-month breakdown")
}

func runBalance(cmd *cobra.Command, args []string) error {
	book, err := root.RequireBook(cmd)
	if err != nil {
		return err
	}

	filter := store.EntryFilter{}
	if accountSlug != "" {
		account, err := root.RequireAccount(accountSlug)
		if err != nil {
			return err
		}
		filter.Account = account
	}

	start, err := parseDateFlag(startStr)
	if err != nil {
		return err
	}
	end, err := parseDateFlag(endStr)
	if err != nil {
		return err
	}

	entries, err := root.DB.ListEntries(cmd.Context(), book, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if monthly {
		breakdown, err := balance.Monthly(entries, start, end)
		if err != nil {
			return err
		}
		if breakdown == nil {
			fmt.Fprintln(out, "no entries")
			return nil
		}
		for _, month := range breakdown.Months {
			printBalance(out, month)
		}
		fmt.Fprintln(out, "total:")
		printBalance(out, breakdown.Complete)
		return nil
	}

	result, err := balance.Calculate(entries, start, end)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Fprintln(out, "no entries")
		return nil
	}
	printBalance(out, result)
	return nil
}

func printBalance(out io.Writer, b *balance.Balance) {
	fmt.Fprintf(out, "%s .. %s  income %s  expense %s  result %s\n",
		dateutils.ToISODate(b.Start), dateutils.ToISODate(b.End),
		b.Income.StringFixed(2), b.Expense.StringFixed(2), b.Result.StringFixed(2))
}

func parseDateFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, _, err := dateutils.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
