// Package amount converts locale-formatted numeric strings from bank CSV
// exports into exact decimal values.
package amount

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// junk matches every character that cannot appear in a normalized amount.
var junk = regexp.MustCompile(`[^\d\-.]`)

// NormalizeError reports a value that survived normalization but still does
// not parse as a decimal. This is assertion-grade: it means the parser
// configuration does not match the file, not that the row is merely odd.
type NormalizeError struct {
	Value   string
	Cleaned string
	Err     error
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("can not convert %q to decimal (normalized from %q): %v",
		e.Cleaned, e.Value, e.Err)
}

func (e *NormalizeError) Unwrap() error {
	return e.Err
}

// Normalizer decodes amounts formatted with a specific locale convention,
// e.g. DecimalPoint "," and ThousandsSep "." for "1.234,56".
type Normalizer struct {
	DecimalPoint string
	ThousandsSep string
}

// Parse converts a raw amount string into a decimal. An empty value parses
// as zero, matching how banks leave the unused column blank in two-column
// (debit/credit) layouts.
func (n Normalizer) Parse(value string) (decimal.Decimal, error) {
	cleaned := "0"
	if value != "" {
		cleaned = value
		if n.ThousandsSep != "" {
			cleaned = strings.ReplaceAll(cleaned, n.ThousandsSep, "")
		}
		if n.DecimalPoint != "" && n.DecimalPoint != "." {
			cleaned = strings.ReplaceAll(cleaned, n.DecimalPoint, ".")
		}
		cleaned = junk.ReplaceAllString(cleaned, "")
	}

	result, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &NormalizeError{Value: value, Cleaned: cleaned, Err: err}
	}
	return result, nil
}

// Signed combines a two-column (expense, income) pair into one signed
// amount: income minus the absolute expense.
func Signed(expense, income decimal.Decimal) decimal.Decimal {
	return income.Sub(expense.Abs())
}
