package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nessita/cgem/internal/amount"
	"github.com/nessita/cgem/internal/models"
)

// cell returns the trimmed value of column i, or an empty string when the
// row is too short. Bank exports pad rows inconsistently, so a missing
// trailing column is not an error by itself.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// concatColumns joins the non-empty values of the given columns with " | ".
func concatColumns(row []string, indexes []int, extra ...string) string {
	var parts []string
	for _, i := range indexes {
		if v := cell(row, i); v != "" {
			parts = append(parts, v)
		}
	}
	parts = append(parts, extra...)
	return strings.Join(parts, " | ")
}

// findWhen tries the configured date columns in order and parses the first
// non-empty one with the configured layout.
func (e *Engine) findWhen(row []string) (time.Time, error) {
	for _, i := range e.config.When {
		value := cell(row, i)
		if value == "" {
			continue
		}
		when, err := time.Parse(e.config.DateFormat, value)
		if err != nil {
			return time.Time{}, &ExtractError{Field: "when", Tried: e.config.When, Row: row, Err: err}
		}
		return when, nil
	}
	return time.Time{}, &ExtractError{Field: "when", Tried: e.config.When, Row: row}
}

// findWhat concatenates the configured description columns; an empty result
// is an error because the description is part of the uniqueness key.
func (e *Engine) findWhat(row []string) (string, error) {
	what := concatColumns(row, e.config.What)
	if what == "" {
		return "", &ExtractError{Field: "what", Tried: e.config.What, Row: row}
	}
	return what, nil
}

// findAmount parses the amount column(s): a single signed column, or an
// [expense, income] pair combined into income minus |expense|.
func (e *Engine) findAmount(row []string) (decimal.Decimal, error) {
	if len(e.config.Amount) == 1 {
		return e.normalizer.Parse(cell(row, e.config.Amount[0]))
	}
	expense, err := e.normalizer.Parse(cell(row, e.config.Amount[0]))
	if err != nil {
		return decimal.Zero, err
	}
	income, err := e.normalizer.Parse(cell(row, e.config.Amount[1]))
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Signed(expense, income), nil
}

// extract builds an entry candidate from one raw CSV row.
func (e *Engine) extract(row []string, book *models.Book, who string) (*models.EntryPayload, error) {
	signed, err := e.findAmount(row)
	if err != nil {
		return nil, err
	}
	what, err := e.findWhat(row)
	if err != nil {
		return nil, err
	}
	when, err := e.findWhen(row)
	if err != nil {
		return nil, err
	}

	tags := e.resolver.Tags(what)
	if len(tags) == 0 {
		tags = []string{e.DefaultTag}
	}

	return &models.EntryPayload{
		Book:     book,
		Account:  e.account,
		Who:      who,
		When:     when,
		What:     what,
		Amount:   signed.Abs(),
		IsIncome: signed.IsPositive(),
		Tags:     tags,
		Country:  e.config.Country,
		Notes:    concatColumns(row, e.config.Notes, fmt.Sprintf("source: %s", e.source)),
	}, nil
}
