package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// minAmount is the smallest amount an entry may carry.
var minAmount = decimal.RequireFromString("0.01")

// ValidationError collects per-field validation failures of an entry payload.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, " | ")
}

// Validate checks the payload against the entry invariants: a book and an
// account, a date, a non-empty description, a positive amount, at least one
// tag and a 2-letter country code. It returns a *ValidationError listing
// every violation, or nil when the payload is acceptable.
func (p *EntryPayload) Validate() error {
	var problems []string

	if p.Book == nil {
		problems = append(problems, "book: entry must belong to a book")
	}
	if p.Account == nil {
		problems = append(problems, "account: entry must have an account")
	}
	if p.Who == "" {
		problems = append(problems, "who: this field is required")
	}
	if p.When.IsZero() {
		problems = append(problems, "when: this field is required")
	}
	if strings.TrimSpace(p.What) == "" {
		problems = append(problems, "what: this field is required")
	}
	if p.Amount.LessThan(minAmount) {
		problems = append(problems, fmt.Sprintf(
			"amount: ensure this value is at least 0.01 (got %s)", p.Amount))
	}
	if len(p.Tags) == 0 {
		problems = append(problems, "tags: missing tags, choose at least one")
	}
	for _, tag := range p.Tags {
		if strings.TrimSpace(tag) == "" {
			problems = append(problems, "tags: empty tag not allowed")
			break
		}
	}
	if len(p.Country) != 2 || p.Country != strings.ToUpper(p.Country) {
		problems = append(problems, fmt.Sprintf(
			"country: must be a 2-letter uppercase code (got %q)", p.Country))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
