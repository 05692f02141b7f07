// Package models defines the core data types of the ledger: books, accounts,
// parser configurations, tag rules and entries.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currencies supported by account configuration.
var Currencies = []string{"ARS", "EUR", "USD", "UYU", "GBP"}

// DefaultTag is applied to imported entries when no tag rule matches.
const DefaultTag = "imported"

// DateFormat is the canonical date rendering used in entry listings and notes.
const DateFormat = "2006-01-02"

// Book is a named ledger grouping entries for one purpose or household.
type Book struct {
	ID    int64
	Slug  string
	Name  string
	Users []string
}

func (b *Book) String() string {
	return b.Name
}

// Account is a money source/destination. It carries the CSV decoding
// configuration and the tagging rules used when importing statements.
// Accounts are reference data: the import and merge engines look them up
// but never mutate them.
type Account struct {
	ID       int64
	Slug     string
	Name     string
	Currency string
	Users    []string
	Active   bool

	// ParserConfig describes how to decode this account's CSV exports.
	// Nil when the account does not support statement imports.
	ParserConfig *ParserConfig

	// Rules are the ordered tag rules evaluated against imported
	// descriptions.
	Rules []TagRegex
}

func (a *Account) String() string {
	if len(a.Users) == 1 {
		return fmt.Sprintf("%s %s %s", a.Currency, a.Users[0], a.Name)
	}
	return fmt.Sprintf("%s shared %s", a.Currency, a.Name)
}

// ParserConfig describes how to decode one bank's CSV export format.
// All column references are zero-based indexes into the raw row.
type ParserConfig struct {
	// Name identifies the format (e.g. "bna", "sco", "wfg").
	Name string `yaml:"name"`

	// When lists the candidate date columns, tried in order until one is
	// non-empty.
	When []int `yaml:"when"`

	// What lists the description columns; non-empty values are concatenated.
	What []int `yaml:"what"`

	// Amount is either a single signed column, or an [expense, income]
	// pair for two-column layouts.
	Amount []int `yaml:"amount"`

	// Notes lists extra columns folded into the entry notes.
	Notes []int `yaml:"notes"`

	// DateFormat is the Go reference layout of the When columns.
	DateFormat string `yaml:"date_format"`

	// DecimalPoint and ThousandsSep describe the numeric locale of the
	// amount columns.
	DecimalPoint string `yaml:"decimal_point"`
	ThousandsSep string `yaml:"thousands_sep"`

	// IgnoreRows is the number of leading rows (headers, disclaimers) to
	// skip before data begins.
	IgnoreRows int `yaml:"ignore_rows"`

	// Delimiter is the CSV field separator. Empty means comma.
	Delimiter string `yaml:"delimiter"`

	// Country is the 2-letter country code stamped on imported entries.
	Country string `yaml:"country"`

	// DeferProcessing lists description values whose row must be buffered
	// and folded into the row that follows (e.g. separate service-fee rows).
	DeferProcessing []string `yaml:"defer_processing"`
}

// DelimiterRune returns the configured delimiter as a rune, defaulting to ','.
func (c *ParserConfig) DelimiterRune() rune {
	if c.Delimiter == "" {
		return ','
	}
	return []rune(c.Delimiter)[0]
}

// Deferred reports whether rows with the given description must be buffered
// and merged with the next row.
func (c *ParserConfig) Deferred(what string) bool {
	for _, d := range c.DeferProcessing {
		if d == what {
			return true
		}
	}
	return false
}

// TagRegex is one tagging rule: a pattern matched against the extracted
// description, the tag it applies, and an optional transfer target account
// for entries that represent money moving between two accounts.
type TagRegex struct {
	Regex string
	Tag   string

	// Transfer, when set, is the account that receives the mirrored entry.
	Transfer *Account
}

// Entry is one signed monetary transaction record in a book.
type Entry struct {
	ID int64
	EntryPayload
}

// EntryPayload carries the fields of an entry candidate before persistence.
// The import engine produces payloads; the store validates and persists them.
type EntryPayload struct {
	Book     *Book
	Account  *Account
	Who      string
	When     time.Time
	What     string
	Amount   decimal.Decimal
	IsIncome bool
	Tags     []string
	Country  string
	Notes    string
}

// Money returns the signed view of the amount: positive for income,
// negative for expense. Aggregation and merge work on this view.
func (p *EntryPayload) Money() decimal.Decimal {
	if p.IsIncome {
		return p.Amount
	}
	return p.Amount.Neg()
}

// Key is the uniqueness key of an entry: (book, account, when, what,
// amount, is_income). Re-importing a statement produces payloads with keys
// already present, which the store rejects as duplicates.
func (p *EntryPayload) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%t",
		p.Book.Slug, p.Account.Slug, p.When.Format(DateFormat),
		p.What, p.Amount.StringFixed(2), p.IsIncome)
}

func (p *EntryPayload) String() string {
	return fmt.Sprintf("%s (%s %s, by %s on %s)",
		p.What, p.Account.Currency, p.Amount.StringFixed(2),
		p.Who, p.When.Format(DateFormat))
}

// HistoryReason records why an entry snapshot was taken.
type HistoryReason string

const (
	HistoryDelete HistoryReason = "delete"
	HistoryMerge  HistoryReason = "merge"
)

// EntryHistory is a best-effort, append-only snapshot of an entry taken
// immediately before deletion. It is written by the store and never read
// by the core engines.
type EntryHistory struct {
	ID         int64
	EntryID    int64
	Reason     HistoryReason
	Who        string
	When       time.Time
	What       string
	Amount     decimal.Decimal
	IsIncome   bool
	Tags       []string
	Country    string
	Notes      string
	RecordedAt time.Time
}

// NewHistory snapshots an entry for the audit trail.
func NewHistory(e *Entry, reason HistoryReason) *EntryHistory {
	return &EntryHistory{
		EntryID:  e.ID,
		Reason:   reason,
		Who:      e.Who,
		When:     e.When,
		What:     e.What,
		Amount:   e.Amount,
		IsIncome: e.IsIncome,
		Tags:     append([]string{}, e.Tags...),
		Country:  e.Country,
		Notes:    e.Notes,
	}
}

// JoinTags renders an ordered tag set in its storage form.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// SplitTags parses the storage form of a tag set.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
