// Package add records a single entry by hand.
package add

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
	accountSlug string
	whenStr     string
	what        string
	amountStr   string
	isIncome    bool
	tags        []string
	country     string
	notes       string
)

// Cmd represents the add command.
var Cmd = &cobra.Command{
	Use:   "add",
	Short: "Record a single entry by hand",
	Long: `Record one entry without going through a statement import: an expense
by default, an income with --income. The entry is validated and checked
against the uniqueness rules like any imported one. With --dry-run the
entry is shown and nothing is persisted.`,
	RunE: runAdd,
}

func init() {
	Cmd.Flags().StringVarP(&accountSlug, "account", "a", "", "Account the entry belongs to (slug)")
	Cmd.Flags().StringVar(&whenStr, "when", "", "Entry date (default: today)")
	Cmd.Flags().StringVar(&what, "what", "", "Description")
	Cmd.Flags().StringVar(&amountStr, "amount", "", "Amount (positive)")
	Cmd.Flags().BoolVar(&isIncome, "income", false, "Record an income instead of an expense")
	Cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag for the entry (repeatable)")
	Cmd.Flags().StringVar(&country, "country", "", "Country code (default: the account parser's country)")
	Cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
}

func runAdd(cmd *cobra.Command, args []string) error {
	book, err := root.RequireBook(cmd)
	if err != nil {
		return err
	}
	who, err := root.RequireWho()
	if err != nil {
		return err
	}
	account, err := root.RequireAccount(accountSlug)
	if err != nil {
		return err
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
	if country == "" && account.ParserConfig != nil {
		country = account.ParserConfig.Country
	}

	payload := &models.EntryPayload{
		Book:     book,
		Account:  account,
		Who:      who,
		When:     when,
		What:     what,
		Amount:   amount,
		IsIncome: isIncome,
		Tags:     tags,
		Country:  country,
		Notes:    notes,
	}

	var created *models.Entry
	err = root.DB.WithTx(cmd.Context(), func(tx store.Tx) error {
		entry, err := tx.CreateEntry(payload)
		if err != nil {
			return err
		}
		created = entry
		if root.SharedFlags.DryRun {
			return store.ErrRollback
		}
		return nil
	})

	out := cmd.OutOrStdout()
	if errors.Is(err, store.ErrRollback) {
		candidate := models.Entry{EntryPayload: *payload}
		fmt.Fprintf(out, "would add: %s\n", candidate.String())
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", created.String())
	return nil
}
