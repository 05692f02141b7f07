// Package transfer records a movement of money between two accounts.
package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/nessita/cgem/cmd/root"
	"github.com/nessita/cgem/internal/dateutils"
	"github.com/nessita/cgem/internal/models"
	"github.com/nessita/cgem/internal/store"
)

var (
	fromSlug  string
	toSlug    string
	amountStr string
	whenStr   string
	what      string
	country   string
)

// Cmd represents the transfer command.
var Cmd = &cobra.Command{
	Use:   "transfer",
	Short: "Record a transfer between two accounts",
	Long: `Record a transfer between two accounts of one book: an expense entry
on the source account and a matching income entry on the target account,
created atomically. With --dry-run nothing is persisted.`,
	RunE: runTransfer,
}

func init() {
	Cmd.Flags().StringVar(&fromSlug, "from", "", "Source account (slug)")
	Cmd.Flags().StringVar(&toSlug, "to", "", "Target account (slug)")
	Cmd.Flags().StringVar(&amountStr, "amount", "", "Amount to transfer")
	Cmd.Flags().StringVar(&whenStr, "when", "", "Transfer date (default: today)")
	Cmd.Flags().StringVar(&what, "what", "", "Description (default: derived from the accounts)")
	Cmd.Flags().StringVar(&country, "country", "", "Country code for both entries")
}

func runTransfer(cmd *cobra.Command, args []string) error {
	book, err := root.RequireBook(cmd)
	if err != nil {
		return err
	}
	who, err := root.RequireWho()
	if err != nil {
		return err
	}
	source, err := root.RequireAccount(fromSlug)
	if err != nil {
		return err
	}
	target, err := root.RequireAccount(toSlug)
	if err != nil {
		return err
	}
	if source.Slug == target.Slug {
		return fmt.Errorf("source and target accounts must differ")
	}

	if country == "" {
		return fmt.Errorf("--country is required")
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}

	now := time.Now()
	when := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if whenStr != "" {
		when, _, err = dateutils.ParseDate(whenStr)
		if err != nil {
			return err
		}
	}
	if what == "" {
		what = fmt.Sprintf("Transfer from %s to %s", source.Name, target.Name)
	}

	outgoing := &models.EntryPayload{
		Book:     book,
		Account:  source,
		Who:      who,
		When:     when,
		What:     what,
		Amount:   amount,
		IsIncome: false,
		Tags:     []string{"transfer"},
		Country:  country,
	}
	incoming := &models.EntryPayload{
		Book:     book,
		Account:  target,
		Who:      who,
		When:     when,
		What:     what,
		Amount:   amount,
		IsIncome: true,
		Tags:     []string{"transfer"},
		Country:  country,
	}

	var created []*models.Entry
	err = root.DB.WithTx(cmd.Context(), func(tx store.Tx) error {
		for _, payload := range []*models.EntryPayload{outgoing, incoming} {
			entry, err := tx.CreateEntry(payload)
			if err != nil {
				return err
			}
			created = append(created, entry)
		}
		if root.SharedFlags.DryRun {
			return store.ErrRollback
		}
		return nil
	})
	out := cmd.OutOrStdout()
	if errors.Is(err, store.ErrRollback) {
		fmt.Fprintf(out, "would transfer %s from %s to %s\n",
			amount.StringFixed(2), source.Slug, target.Slug)
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range created {
		fmt.Fprintf(out, "%s\n", entry.String())
	}
	return nil
}
