package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nessita/cgem/internal/models"
)

// Memory is an in-memory Store with the same uniqueness and transaction
// semantics as the SQLite implementation. It backs tests and previews.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	books   map[string]*models.Book
	entries map[int64]*models.Entry
	keys    map[string]int64
	history []*models.EntryHistory
	batches []*ImportBatch
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		books:   make(map[string]*models.Book),
		entries: make(map[int64]*models.Entry),
		keys:    make(map[string]int64),
	}
}

// WithTx implements Transactor by staging all mutations and applying them
// only when fn returns nil. Any error, ErrRollback included, discards the
// staged state.
func (m *Memory) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		entries: make(map[int64]*models.Entry, len(m.entries)),
		keys:    make(map[string]int64, len(m.keys)),
		nextID:  m.nextID,
	}
	for id, e := range m.entries {
		tx.entries[id] = e
	}
	for k, id := range m.keys {
		tx.keys[k] = id
	}

	if err := fn(tx); err != nil {
		return err
	}

	m.entries = tx.entries
	m.keys = tx.keys
	m.nextID = tx.nextID
	m.history = append(m.history, tx.history...)
	return nil
}

type memTx struct {
	entries map[int64]*models.Entry
	keys    map[string]int64
	history []*models.EntryHistory
	nextID  int64
}

func (t *memTx) CreateEntry(p *models.EntryPayload) (*models.Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	key := p.Key()
	if _, exists := t.keys[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, key)
	}

	t.nextID++
	entry := &models.Entry{ID: t.nextID, EntryPayload: *p}
	entry.Tags = append([]string{}, p.Tags...)
	t.entries[entry.ID] = entry
	t.keys[key] = entry.ID
	return entry, nil
}

func (t *memTx) DeleteEntries(ids []int64, reason models.HistoryReason) error {
	for _, id := range ids {
		e, ok := t.entries[id]
		if !ok {
			return fmt.Errorf("%w: entry %d", ErrNotFound, id)
		}
		h := models.NewHistory(e, reason)
		h.RecordedAt = time.Now()
		t.history = append(t.history, h)
		delete(t.entries, id)
		delete(t.keys, e.Key())
	}
	return nil
}

// SaveBook registers the book, assigning an id on first save.
func (m *Memory) SaveBook(ctx context.Context, b *models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.books[b.Slug]; ok {
		b.ID = existing.ID
	} else {
		m.nextID++
		b.ID = m.nextID
	}
	m.books[b.Slug] = b
	return nil
}

func (m *Memory) BookBySlug(ctx context.Context, slug string) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[slug]
	if !ok {
		return nil, fmt.Errorf("%w: book %q", ErrNotFound, slug)
	}
	return b, nil
}

// SaveAccount assigns an id on first save. The in-memory store keeps the
// full account object, parser configuration included.
func (m *Memory) SaveAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		m.nextID++
		a.ID = m.nextID
	}
	return nil
}

func (m *Memory) AccountBySlug(ctx context.Context, slug string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Account != nil && e.Account.Slug == slug {
			return e.Account, nil
		}
	}
	return nil, fmt.Errorf("%w: account %q", ErrNotFound, slug)
}

func (m *Memory) ListEntries(ctx context.Context, book *models.Book, f EntryFilter) ([]*models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []*models.Entry
	for _, e := range m.entries {
		if e.Book.Slug != book.Slug {
			continue
		}
		if matchesFilter(e, f) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].When.Equal(entries[j].When) {
			return entries[i].When.After(entries[j].When)
		}
		if entries[i].Who != entries[j].Who {
			return entries[i].Who < entries[j].Who
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

func (m *Memory) EntriesByID(ctx context.Context, book *models.Book, ids []int64) ([]*models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]*models.Entry, 0, len(ids))
	for _, id := range ids {
		e, ok := m.entries[id]
		if !ok || e.Book.Slug != book.Slug {
			return nil, fmt.Errorf("%w: entry %d", ErrNotFound, id)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (m *Memory) RecordImportBatch(ctx context.Context, b *ImportBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, b)
	return nil
}

func (m *Memory) HistoryForEntry(ctx context.Context, entryID int64) ([]*models.EntryHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var history []*models.EntryHistory
	for _, h := range m.history {
		if h.EntryID == entryID {
			history = append(history, h)
		}
	}
	return history, nil
}

// Batches returns the recorded import batches. Test helper.
func (m *Memory) Batches() []*ImportBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ImportBatch{}, m.batches...)
}

// History returns every recorded snapshot. Test helper.
func (m *Memory) History() []*models.EntryHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.EntryHistory{}, m.history...)
}
