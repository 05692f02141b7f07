// Package merge collapses a set of entries of one book/account/country into
// a single replacement entry, atomically.
package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nessita/cgem/internal/logging"
	"github.com/nessita/cgem/internal/models"
	"github.com/nessita/cgem/internal/store"
)

// ValidationError reports a merge precondition violation. No mutation has
// happened when one is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Options override the derived fields of the merged entry. Zero values keep
// the defaults: who/when from the first entry, what from the combined
// descriptions.
type Options struct {
	When   *time.Time
	Who    string
	What   string
	DryRun bool
}

// Merge validates the entries, builds the replacement entry, creates it and
// deletes the sources inside one transaction. With DryRun set, the same
// sequence runs and is then rolled back, returning the would-be merged
// entry without mutating anything. A failing creation (e.g. a uniqueness
// collision) rolls back the source deletions too: a failed merge never
// loses the originals.
func Merge(ctx context.Context, st store.Transactor, entries []*models.Entry, opts Options, logger logging.Logger) (*models.Entry, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if err := validate(entries); err != nil {
		return nil, err
	}

	payload := buildPayload(entries, opts)
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	var merged *models.Entry
	err := st.WithTx(ctx, func(tx store.Tx) error {
		entry, err := tx.CreateEntry(payload)
		if err != nil {
			return err
		}
		merged = entry
		if err := tx.DeleteEntries(ids, models.HistoryMerge); err != nil {
			return err
		}
		if opts.DryRun {
			return store.ErrRollback
		}
		return nil
	})
	if errors.Is(err, store.ErrRollback) {
		return &models.Entry{EntryPayload: *payload}, nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("merged entries",
		logging.Field{Key: "sources", Value: len(entries)},
		logging.Field{Key: "entry", Value: merged.String()})
	return merged, nil
}

// validate enforces the merge preconditions: at least two entries, all of
// one book, one account and one country. Violations name the sorted
// distinct offending values.
func validate(entries []*models.Entry) error {
	if len(entries) < 2 {
		return &ValidationError{Msg: fmt.Sprintf(
			"need at least 2 entries to merge, got %d", len(entries))}
	}

	books := distinct(entries, func(e *models.Entry) string { return e.Book.Slug })
	if len(books) > 1 {
		return &ValidationError{Msg: fmt.Sprintf(
			"can not merge entries from different books: %s", strings.Join(books, ", "))}
	}
	accounts := distinct(entries, func(e *models.Entry) string { return e.Account.Slug })
	if len(accounts) > 1 {
		return &ValidationError{Msg: fmt.Sprintf(
			"can not merge entries from different accounts: %s", strings.Join(accounts, ", "))}
	}
	countries := distinct(entries, func(e *models.Entry) string { return e.Country })
	if len(countries) > 1 {
		return &ValidationError{Msg: fmt.Sprintf(
			"can not merge entries from different countries: %s", strings.Join(countries, ", "))}
	}
	return nil
}

// buildPayload derives the replacement entry: signed amounts added, tags
// union preserving first-seen order, notes listing every source entry.
func buildPayload(entries []*models.Entry, opts Options) *models.EntryPayload {
	first := entries[0]

	total := decimal.Zero
	var tags []string
	seenTags := make(map[string]bool)
	var notes []string
	for _, e := range entries {
		total = total.Add(e.Money())
		for _, tag := range e.Tags {
			if !seenTags[tag] {
				seenTags[tag] = true
				tags = append(tags, tag)
			}
		}
		notes = append(notes, e.String())
	}

	who := opts.Who
	if who == "" {
		who = first.Who
	}
	when := first.When
	if opts.When != nil {
		when = *opts.When
	}
	what := opts.What
	if what == "" {
		what = combinedWhat(entries)
	}

	return &models.EntryPayload{
		Book:     first.Book,
		Account:  first.Account,
		Who:      who,
		When:     when,
		What:     what,
		Amount:   total.Abs(),
		IsIncome: total.IsPositive(),
		Tags:     tags,
		Country:  first.Country,
		Notes:    strings.Join(notes, "\n"),
	}
}

// combinedWhat renders each entry as "what signedAmount", de-duplicates and
// sorts the renderings, and joins them with " | ".
func combinedWhat(entries []*models.Entry) string {
	seen := make(map[string]bool)
	var parts []string
	for _, e := range entries {
		part := fmt.Sprintf("%s %s", e.What, e.Money().StringFixed(2))
		if !seen[part] {
			seen[part] = true
			parts = append(parts, part)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, " | ")
}

// distinct returns the sorted distinct values of key over the entries.
func distinct(entries []*models.Entry, key func(*models.Entry) string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, e := range entries {
		v := key(e)
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values
}
