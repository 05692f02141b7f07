// Package store persists ledger data. It exposes the small transactional
// contract the import and merge engines rely on ("validate and persist one
// entry", "delete entries by id") plus lookup operations for books,
// accounts and entries.
//
// Two implementations exist: SQLite for the real application, and an
// in-memory store with the same uniqueness and transaction semantics for
// tests and previews.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nessita/cgem/internal/models"
)

// ErrDuplicateEntry reports a violation of the entry uniqueness invariant
// (book, account, when, what, amount, is_income). Statement re-imports rely
// on this being distinguishable from other failures.
var ErrDuplicateEntry = errors.New("there is already an entry for this data")

// ErrRollback is the sentinel returned by transactional callbacks that want
// their work discarded. Dry runs compute their full result and then return
// ErrRollback so nothing is persisted.
var ErrRollback = errors.New("rollback requested")

// ErrNotFound reports a missing book, account or entry.
var ErrNotFound = errors.New("not found")

// Tx is the unit-of-work handle passed to transactional callbacks. All
// operations on a Tx commit or roll back together.
type Tx interface {
	// CreateEntry validates the payload against the entry invariants and
	// persists it. It returns ErrDuplicateEntry (wrapped) when the payload
	// collides with the uniqueness invariant, or a *models.ValidationError
	// when the payload is invalid.
	CreateEntry(p *models.EntryPayload) (*models.Entry, error)

	// DeleteEntries removes the given entries, snapshotting each into the
	// history table with the given reason first.
	DeleteEntries(ids []int64, reason models.HistoryReason) error
}

// Transactor runs a callback inside one commit-or-rollback boundary.
type Transactor interface {
	// WithTx begins a transaction, runs fn, and commits when fn returns
	// nil. Any error from fn rolls the transaction back and is returned
	// unchanged, ErrRollback included.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// EntryFilter narrows ListEntries results. Zero values mean "no filter".
type EntryFilter struct {
	Account *models.Account
	Tags    []string
	Year    int
	Month   time.Month
	Who     string
	Start   *time.Time
	End     *time.Time
}

// Store is the full persistence surface used by the CLI layer.
type Store interface {
	Transactor

	SaveBook(ctx context.Context, b *models.Book) error
	BookBySlug(ctx context.Context, slug string) (*models.Book, error)

	SaveAccount(ctx context.Context, a *models.Account) error
	AccountBySlug(ctx context.Context, slug string) (*models.Account, error)

	// ListEntries returns the book's entries matching the filter, ordered
	// by descending date then by who.
	ListEntries(ctx context.Context, book *models.Book, f EntryFilter) ([]*models.Entry, error)

	// EntriesByID resolves a set of entry ids within one book.
	EntriesByID(ctx context.Context, book *models.Book, ids []int64) ([]*models.Entry, error)

	// RecordImportBatch appends an audit record for one import run.
	RecordImportBatch(ctx context.Context, b *ImportBatch) error

	// HistoryForEntry returns the audit snapshots taken for an entry.
	HistoryForEntry(ctx context.Context, entryID int64) ([]*models.EntryHistory, error)
}

// ImportBatch is the audit record of one import run.
type ImportBatch struct {
	ID        string
	Source    string
	Book      string
	Account   string
	DryRun    bool
	Entries   int
	Errors    int
	CreatedAt time.Time
}

// matchesFilter is the shared filter predicate used by both implementations.
func matchesFilter(e *models.Entry, f EntryFilter) bool {
	if f.Account != nil && e.Account.Slug != f.Account.Slug {
		return false
	}
	if f.Who != "" && e.Who != f.Who {
		return false
	}
	if f.Year != 0 && e.When.Year() != f.Year {
		return false
	}
	if f.Month != 0 && e.When.Month() != f.Month {
		return false
	}
	if f.Start != nil && e.When.Before(*f.Start) {
		return false
	}
	if f.End != nil && e.When.After(*f.End) {
		return false
	}
	for _, want := range f.Tags {
		found := false
		for _, tag := range e.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
