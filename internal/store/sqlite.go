package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/nessita/cgem/internal/logging"
	"github.com/nessita/cgem/internal/models"
)

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS books (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	slug  TEXT NOT NULL UNIQUE,
	name  TEXT NOT NULL,
	users TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS accounts (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	slug     TEXT NOT NULL UNIQUE,
	name     TEXT NOT NULL,
	currency TEXT NOT NULL,
	users    TEXT NOT NULL DEFAULT '',
	active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id    INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	account_id INTEGER NOT NULL REFERENCES accounts(id),
	who        TEXT NOT NULL,
	when_date  TEXT NOT NULL,
	what       TEXT NOT NULL,
	amount     TEXT NOT NULL,
	is_income  INTEGER NOT NULL,
	tags       TEXT NOT NULL,
	country    TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	UNIQUE(book_id, account_id, when_date, what, amount, is_income)
);

CREATE TABLE IF NOT EXISTS entry_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_id    INTEGER NOT NULL,
	reason      TEXT NOT NULL,
	who         TEXT NOT NULL,
	when_date   TEXT NOT NULL,
	what        TEXT NOT NULL,
	amount      TEXT NOT NULL,
	is_income   INTEGER NOT NULL,
	tags        TEXT NOT NULL,
	country     TEXT NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS import_batches (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	book        TEXT NOT NULL,
	account     TEXT NOT NULL,
	dry_run     INTEGER NOT NULL,
	entry_count INTEGER NOT NULL,
	error_count INTEGER NOT NULL,
	created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_entries_when ON entries(when_date);
CREATE INDEX IF NOT EXISTS idx_entries_book ON entries(book_id);
CREATE INDEX IF NOT EXISTS idx_history_entry ON entry_history(entry_id);
`

// SQLite is the Store implementation backed by a SQLite database file.
type SQLite struct {
	db     *sql.DB
	logger logging.Logger
}

var _ Store = (*SQLite)(nil)

// Open opens (or creates) the SQLite database at path and ensures the
// schema is at the current version.
func Open(path string, logger logging.Logger) (*SQLite, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	logger.Debug("database ready", logging.Field{Key: "path", Value: path})
	return &SQLite{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	ver, err := currentSchemaVersion(db)
	if err != nil {
		return err
	}
	if ver >= schemaVersion {
		return nil
	}
	if _, err := db.Exec(schemaV1); err != nil {
		return err
	}
	if _, err := db.Exec("DELETE FROM schema_meta"); err != nil {
		return err
	}
	_, err = db.Exec("INSERT INTO schema_meta (version) VALUES (?)", schemaVersion)
	return err
}

func currentSchemaVersion(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_meta'
	`).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var ver int
	err = db.QueryRow("SELECT version FROM schema_meta LIMIT 1").Scan(&ver)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return ver, err
}

// WithTx implements Transactor. The callback's error, ErrRollback included,
// rolls the transaction back and is returned to the caller unchanged.
func (s *SQLite) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) CreateEntry(p *models.EntryPayload) (*models.Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	res, err := t.tx.Exec(`
		INSERT INTO entries
			(book_id, account_id, who, when_date, what, amount, is_income, tags, country, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Book.ID, p.Account.ID, p.Who, p.When.Format(models.DateFormat), p.What,
		p.Amount.StringFixed(2), boolToInt(p.IsIncome),
		models.JoinTags(p.Tags), p.Country, p.Notes)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, p.Key())
		}
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("entry id: %w", err)
	}
	return &models.Entry{ID: id, EntryPayload: *p}, nil
}

func (t *sqliteTx) DeleteEntries(ids []int64, reason models.HistoryReason) error {
	for _, id := range ids {
		e, err := scanEntryRow(t.tx.QueryRow(`
			SELECT who, when_date, what, amount, is_income, tags, country, notes
			FROM entries WHERE id = ?
		`, id))
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: entry %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("load entry %d: %w", id, err)
		}

		_, err = t.tx.Exec(`
			INSERT INTO entry_history
				(entry_id, reason, who, when_date, what, amount, is_income, tags, country, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, string(reason), e.Who, e.When.Format(models.DateFormat), e.What,
			e.Amount.StringFixed(2), boolToInt(e.IsIncome),
			models.JoinTags(e.Tags), e.Country, e.Notes)
		if err != nil {
			return fmt.Errorf("record history for entry %d: %w", id, err)
		}

		if _, err := t.tx.Exec("DELETE FROM entries WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete entry %d: %w", id, err)
		}
	}
	return nil
}

// SaveBook upserts the book by slug and fills in its id.
func (s *SQLite) SaveBook(ctx context.Context, b *models.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (slug, name, users) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET name = excluded.name, users = excluded.users
	`, b.Slug, b.Name, strings.Join(b.Users, ","))
	if err != nil {
		return fmt.Errorf("save book: %w", err)
	}
	return s.db.QueryRowContext(ctx,
		"SELECT id FROM books WHERE slug = ?", b.Slug).Scan(&b.ID)
}

// BookBySlug loads a book, returning ErrNotFound when it does not exist.
func (s *SQLite) BookBySlug(ctx context.Context, slug string) (*models.Book, error) {
	var b models.Book
	var users string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, slug, name, users FROM books WHERE slug = ?", slug).
		Scan(&b.ID, &b.Slug, &b.Name, &users)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: book %q", ErrNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("load book %q: %w", slug, err)
	}
	b.Users = models.SplitTags(users)
	return &b, nil
}

// SaveAccount upserts the account identity by slug and fills in its id.
// Parser configuration and tag rules are reference data kept outside the
// database; only the identity columns are stored.
func (s *SQLite) SaveAccount(ctx context.Context, a *models.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (slug, name, currency, users, active) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name, currency = excluded.currency,
			users = excluded.users, active = excluded.active
	`, a.Slug, a.Name, a.Currency, strings.Join(a.Users, ","), boolToInt(a.Active))
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return s.db.QueryRowContext(ctx,
		"SELECT id FROM accounts WHERE slug = ?", a.Slug).Scan(&a.ID)
}

// AccountBySlug loads an account's identity, returning ErrNotFound when it
// does not exist.
func (s *SQLite) AccountBySlug(ctx context.Context, slug string) (*models.Account, error) {
	var a models.Account
	var users string
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, currency, users, active
		FROM accounts WHERE slug = ?
	`, slug).Scan(&a.ID, &a.Slug, &a.Name, &a.Currency, &users, &active)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: account %q", ErrNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("load account %q: %w", slug, err)
	}
	a.Users = models.SplitTags(users)
	a.Active = active != 0
	return &a, nil
}

// ListEntries returns the book's entries matching the filter, ordered by
// descending date then by who.
func (s *SQLite) ListEntries(ctx context.Context, book *models.Book, f EntryFilter) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.who, e.when_date, e.what, e.amount, e.is_income,
		       e.tags, e.country, e.notes,
		       a.id, a.slug, a.name, a.currency, a.users, a.active
		FROM entries e JOIN accounts a ON a.id = e.account_id
		WHERE e.book_id = ?
		ORDER BY e.when_date DESC, e.who ASC
	`, book.ID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows, book)
		if err != nil {
			return nil, err
		}
		if matchesFilter(e, f) {
			entries = append(entries, e)
		}
	}
	return entries, rows.Err()
}

// EntriesByID resolves entry ids within one book, returning ErrNotFound if
// any id is missing.
func (s *SQLite) EntriesByID(ctx context.Context, book *models.Book, ids []int64) ([]*models.Entry, error) {
	entries := make([]*models.Entry, 0, len(ids))
	for _, id := range ids {
		rows, err := s.db.QueryContext(ctx, `
			SELECT e.id, e.who, e.when_date, e.what, e.amount, e.is_income,
			       e.tags, e.country, e.notes,
			       a.id, a.slug, a.name, a.currency, a.users, a.active
			FROM entries e JOIN accounts a ON a.id = e.account_id
			WHERE e.book_id = ? AND e.id = ?
		`, book.ID, id)
		if err != nil {
			return nil, fmt.Errorf("load entry %d: %w", id, err)
		}
		if !rows.Next() {
			rows.Close()
			return nil, fmt.Errorf("%w: entry %d", ErrNotFound, id)
		}
		e, err := scanEntry(rows, book)
		rows.Close()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// RecordImportBatch appends the audit record of one import run.
func (s *SQLite) RecordImportBatch(ctx context.Context, b *ImportBatch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_batches (id, source, book, account, dry_run, entry_count, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Source, b.Book, b.Account, boolToInt(b.DryRun), b.Entries, b.Errors)
	if err != nil {
		return fmt.Errorf("record import batch: %w", err)
	}
	return nil
}

// HistoryForEntry returns the audit snapshots taken for an entry, oldest
// first.
func (s *SQLite) HistoryForEntry(ctx context.Context, entryID int64) ([]*models.EntryHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, reason, who, when_date, what, amount, is_income,
		       tags, country, notes, recorded_at
		FROM entry_history WHERE entry_id = ? ORDER BY id ASC
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var history []*models.EntryHistory
	for rows.Next() {
		var h models.EntryHistory
		var when, amount, tags, reason, recorded string
		var isIncome int
		err := rows.Scan(&h.ID, &h.EntryID, &reason, &h.Who, &when, &h.What,
			&amount, &isIncome, &tags, &h.Country, &h.Notes, &recorded)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.Reason = models.HistoryReason(reason)
		if h.When, err = time.Parse(models.DateFormat, when); err != nil {
			return nil, fmt.Errorf("history date: %w", err)
		}
		if h.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("history amount: %w", err)
		}
		h.IsIncome = isIncome != 0
		h.Tags = models.SplitTags(tags)
		if h.RecordedAt, err = time.Parse("2006-01-02 15:04:05", recorded); err != nil {
			h.RecordedAt = time.Time{}
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEntryRow reads the payload columns of a single-entry query.
func scanEntryRow(row rowScanner) (*models.EntryPayload, error) {
	var p models.EntryPayload
	var when, amount, tags string
	var isIncome int
	err := row.Scan(&p.Who, &when, &p.What, &amount, &isIncome, &tags, &p.Country, &p.Notes)
	if err != nil {
		return nil, err
	}
	if p.When, err = time.Parse(models.DateFormat, when); err != nil {
		return nil, fmt.Errorf("entry date: %w", err)
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("entry amount: %w", err)
	}
	p.IsIncome = isIncome != 0
	p.Tags = models.SplitTags(tags)
	return &p, nil
}

// scanEntry reads a joined entry+account row.
func scanEntry(rows *sql.Rows, book *models.Book) (*models.Entry, error) {
	var e models.Entry
	var a models.Account
	var when, amount, tags, users string
	var isIncome, active int

	err := rows.Scan(&e.ID, &e.Who, &when, &e.What, &amount, &isIncome,
		&tags, &e.Country, &e.Notes,
		&a.ID, &a.Slug, &a.Name, &a.Currency, &users, &active)
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	if e.When, err = time.Parse(models.DateFormat, when); err != nil {
		return nil, fmt.Errorf("entry date: %w", err)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("entry amount: %w", err)
	}
	e.IsIncome = isIncome != 0
	e.Tags = models.SplitTags(tags)
	a.Users = models.SplitTags(users)
	a.Active = active != 0
	e.Book = book
	e.Account = &a
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
