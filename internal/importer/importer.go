// Package importer implements the CSV statement import engine: a row-by-row
// scan over a bank export that extracts entry candidates, resolves tags,
// folds deferred rows, generates transfer entries and persists everything
// through the store's transactional contract, collecting structured per-row
// errors instead of aborting on bad input.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/nessita/cgem/internal/amount"
	"github.com/nessita/cgem/internal/dateutils"
	"github.com/nessita/cgem/internal/logging"
	"github.com/nessita/cgem/internal/models"
	"github.com/nessita/cgem/internal/store"
	"github.com/nessita/cgem/internal/tagger"
)

// deferState tracks the deferred-row protocol. At most one row may be
// buffered at a time; a second deferred row is a fatal data-shape error.
type deferState int

const (
	stateIdle deferState = iota
	stateAwaitingMerge
)

// Result is the outcome of one import run: the entries that were created
// (or, in a dry run, would have been created) and one error record per
// failed row.
type Result struct {
	Entries []*models.Entry
	Errors  []ErrorRecord
}

// Engine drives the import of one account's CSV exports. It is synchronous
// and single-use per Parse call; separate invocations for different
// accounts may run concurrently, coordinated only through the store.
type Engine struct {
	// DefaultTag is applied when no tag rule matches a description.
	DefaultTag string

	account    *models.Account
	config     *models.ParserConfig
	normalizer amount.Normalizer
	resolver   *tagger.Resolver
	store      store.Transactor
	logger     logging.Logger
	source     string
}

// New builds an import engine for the given account, which must carry a
// parser configuration. The account's tag rules are compiled eagerly so a
// bad rule fails the construction, not the import.
func New(account *models.Account, st store.Transactor, logger logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if account.ParserConfig == nil {
		return nil, fmt.Errorf("account %q has no parser config", account.Slug)
	}
	config := account.ParserConfig
	if n := len(config.Amount); n != 1 && n != 2 {
		return nil, fmt.Errorf("parser config %q: amount must be one column or an [expense, income] pair, got %d columns",
			config.Name, n)
	}

	resolver, err := tagger.NewResolver(account.Rules, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		DefaultTag: models.DefaultTag,
		account:    account,
		config:     config,
		normalizer: amount.Normalizer{
			DecimalPoint: config.DecimalPoint,
			ThousandsSep: config.ThousandsSep,
		},
		resolver: resolver,
		store:    st,
		logger:   logger,
	}, nil
}

// Parse scans the CSV stream and imports its rows into the given book on
// behalf of who. Row-level failures become error records and the scan
// continues; only a broken deferred-row protocol or an unreadable stream
// aborts the run. With dryRun set, the full validation and
// transfer-generation logic executes but every transaction is rolled back.
func (e *Engine) Parse(ctx context.Context, r io.Reader, book *models.Book, who string, dryRun bool) (*Result, error) {
	e.source = streamName(r)
	log := e.logger.WithFields(
		logging.Field{Key: "account", Value: e.account.Slug},
		logging.Field{Key: "book", Value: book.Slug},
		logging.Field{Key: "source", Value: e.source},
		logging.Field{Key: "dry_run", Value: dryRun},
	)
	log.Info("starting CSV import")

	reader := csv.NewReader(r)
	reader.Comma = e.config.DelimiterRune()
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	result := &Result{}
	state := stateIdle
	var pending *models.EntryPayload
	ignored := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}

		if ignored < e.config.IgnoreRows {
			log.Debug("ignoring leading row", logging.Field{Key: "row", Value: row})
			ignored++
			continue
		}
		if blankRow(row) {
			continue
		}

		payload, err := e.extract(row, book, who)
		if err != nil {
			result.addError(err, row, nil)
			continue
		}

		if e.config.Deferred(payload.What) {
			if state == stateAwaitingMerge {
				return nil, fmt.Errorf("%w: %q while %q is pending",
					ErrDeferredOverlap, payload.What, pending.What)
			}
			state = stateAwaitingMerge
			pending = payload
			log.Debug("deferring row", logging.Field{Key: "what", Value: payload.What})
			continue
		}

		if state == stateAwaitingMerge {
			err := foldDeferred(payload, pending)
			state = stateIdle
			pending = nil
			if err != nil {
				result.addError(err, row, payload)
				continue
			}
		}

		entry, err := e.makeEntry(ctx, payload, dryRun)
		if err != nil {
			result.addError(err, nil, payload)
			continue
		}
		result.Entries = append(result.Entries, entry)
	}

	if state == stateAwaitingMerge {
		result.addError(fmt.Errorf("deferred row %q was never merged", pending.What), nil, pending)
		log.Warn("deferred row left pending at end of statement",
			logging.Field{Key: "what", Value: pending.What},
			logging.Field{Key: "amount", Value: pending.Amount.String()})
	}

	log.Info("CSV import finished",
		logging.Field{Key: "entries", Value: len(result.Entries)},
		logging.Field{Key: "errors", Value: len(result.Errors)})
	return result, nil
}

// foldDeferred merges a buffered deferred row into the payload that follows
// it: the amounts are added and the notes describe both rows. Direction and
// date of the two rows must agree.
func foldDeferred(payload, pending *models.EntryPayload) error {
	if payload.IsIncome != pending.IsIncome {
		return fmt.Errorf("deferred row %q direction does not match %q",
			pending.What, payload.What)
	}
	if !dateutils.SameDay(payload.When, pending.When) {
		return fmt.Errorf("deferred row %q dated %s does not match %q dated %s",
			pending.What, pending.When.Format(models.DateFormat),
			payload.What, payload.When.Format(models.DateFormat))
	}
	payload.Notes = fmt.Sprintf("%s %s + %s %s",
		payload.What, payload.Amount, pending.What, pending.Amount)
	payload.Amount = payload.Amount.Add(pending.Amount)
	return nil
}

// makeEntry validates and persists one payload, plus the mirrored transfer
// entries of any matched rule that names a transfer account, inside one
// transaction. A dry run executes the same sequence and then discards the
// transaction via the rollback sentinel.
func (e *Engine) makeEntry(ctx context.Context, payload *models.EntryPayload, dryRun bool) (*models.Entry, error) {
	var created *models.Entry
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		entry, err := tx.CreateEntry(payload)
		if err != nil {
			return err
		}
		created = entry

		for _, match := range e.resolver.TagsFor(payload.What) {
			if match.Transfer == nil {
				continue
			}
			mirrored := *payload
			mirrored.Account = match.Transfer
			mirrored.IsIncome = !payload.IsIncome
			mirrored.Tags = append([]string{}, payload.Tags...)
			if _, err := tx.CreateEntry(&mirrored); err != nil {
				return fmt.Errorf("transfer to %q: %w", match.Transfer.Slug, err)
			}
			e.logger.Debug("created transfer entry",
				logging.Field{Key: "what", Value: payload.What},
				logging.Field{Key: "target", Value: match.Transfer.Slug})
		}

		if dryRun {
			return store.ErrRollback
		}
		return nil
	})
	if errors.Is(err, store.ErrRollback) {
		// Dry run: hand back the candidate without a persisted id.
		return &models.Entry{EntryPayload: *payload}, nil
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *Result) addError(err error, row []string, payload *models.EntryPayload) {
	r.Errors = append(r.Errors, ErrorRecord{
		Kind:    classify(err),
		Message: err.Error(),
		Row:     row,
		Payload: payload,
	})
}

// blankRow reports whether every field of the row is empty.
func blankRow(row []string) bool {
	for _, field := range row {
		if field != "" {
			return false
		}
	}
	return true
}

// streamName extracts a display name from the reader when it has one
// (*os.File does), for the "source:" suffix in entry notes.
func streamName(r io.Reader) string {
	if named, ok := r.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "stream with no name"
}
