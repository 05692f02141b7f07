// Package balance aggregates signed entry amounts over date ranges and
// produces per-calendar-month breakdowns with a built-in additivity check.
package balance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nessita/cgem/internal/dateutils"
	"github.com/nessita/cgem/internal/models"
)

// Balance holds the income/expense/net totals of a date range.
type Balance struct {
	Start   time.Time
	End     time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
	Result  decimal.Decimal
}

// Breakdown is a complete-range balance plus one balance per calendar-month
// sub-range.
type Breakdown struct {
	Complete *Balance
	Months   []*Balance
}

// InvariantError reports the monthly additivity check failing: the sum of
// the month results diverging from the complete result. It indicates a
// bucketing bug, never bad input.
type InvariantError struct {
	Complete decimal.Decimal
	Summed   decimal.Decimal
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("monthly breakdown does not add up: months sum to %s, complete result is %s",
		e.Summed, e.Complete)
}

// Calculate aggregates the entries falling inside [start, end] (inclusive).
// Nil start/end default to the earliest/latest entry date. It returns nil
// when there are no entries at all: absence of a balance, not a zero one.
func Calculate(entries []*models.Entry, start, end *time.Time) (*Balance, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	from, to := entries[0].When, entries[0].When
	for _, e := range entries[1:] {
		if e.When.Before(from) {
			from = e.When
		}
		if e.When.After(to) {
			to = e.When
		}
	}
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	if from.After(to) {
		return nil, fmt.Errorf("start %s is after end %s",
			from.Format(models.DateFormat), to.Format(models.DateFormat))
	}

	b := &Balance{Start: from, End: to, Income: decimal.Zero, Expense: decimal.Zero}
	for _, e := range entries {
		if e.When.Before(from) || e.When.After(to) {
			continue
		}
		if e.IsIncome {
			b.Income = b.Income.Add(e.Amount)
		} else {
			b.Expense = b.Expense.Add(e.Amount)
		}
	}
	b.Result = b.Income.Sub(b.Expense)
	return b, nil
}

// Monthly partitions the range into calendar-month-aligned sub-ranges (the
// first from start to the end of its month, the last from the start of its
// month to end) and balances each. The month results must add up exactly to
// the complete result; a divergence returns an *InvariantError.
func Monthly(entries []*models.Entry, start, end *time.Time) (*Breakdown, error) {
	complete, err := Calculate(entries, start, end)
	if err != nil {
		return nil, err
	}
	if complete == nil {
		return nil, nil
	}

	breakdown := &Breakdown{Complete: complete}
	summed := decimal.Zero
	for cursor := complete.Start; !cursor.After(complete.End); cursor = dateutils.StartOfNextMonth(cursor) {
		bucketEnd := dateutils.EndOfMonth(cursor)
		if bucketEnd.After(complete.End) {
			bucketEnd = complete.End
		}
		month, err := Calculate(entries, &cursor, &bucketEnd)
		if err != nil {
			return nil, err
		}
		breakdown.Months = append(breakdown.Months, month)
		summed = summed.Add(month.Result)
	}

	if !summed.Equal(complete.Result) {
		return nil, &InvariantError{Complete: complete.Result, Summed: summed}
	}
	return breakdown, nil
}
