package importer

import (
	"errors"
	"fmt"

	"github.com/nessita/cgem/internal/amount"
	"github.com/nessita/cgem/internal/models"
	"github.com/nessita/cgem/internal/store"
)

// Error record kinds, used to classify per-row failures in import results.
// Duplicate entries get their own kind so overlapping re-imports can be
// told apart from genuinely bad rows.
const (
	KindParse      = "ParseError"
	KindValidation = "ValidationError"
	KindDuplicate  = "DuplicateEntryError"
	KindRow        = "RowError"
)

// ErrDeferredOverlap reports a second deferred row arriving while one is
// already buffered. This breaks the deferred-row protocol and indicates a
// wrong parser configuration, so the whole import is aborted.
var ErrDeferredOverlap = errors.New("deferred row already pending, data shape does not match parser config")

// ExtractError reports a row from which a required field could not be
// extracted.
type ExtractError struct {
	Field string
	Tried []int
	Row   []string
	Err   error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not usable (tried columns %v) in row %q: %v",
			e.Field, e.Tried, e.Row, e.Err)
	}
	return fmt.Sprintf("%s not found (tried columns %v) in row %q", e.Field, e.Tried, e.Row)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// ErrorRecord is one structured per-row failure in an import result.
type ErrorRecord struct {
	// Kind is one of the Kind* constants.
	Kind string

	// Message is the human-readable failure description.
	Message string

	// Row holds the raw CSV fields when the failure happened before a
	// payload could be built.
	Row []string

	// Payload holds the extracted entry candidate when the failure
	// happened at validation or persistence time.
	Payload *models.EntryPayload
}

// classify maps an error to its record kind.
func classify(err error) string {
	var extractErr *ExtractError
	var normalizeErr *amount.NormalizeError
	var validationErr *models.ValidationError

	switch {
	case errors.Is(err, store.ErrDuplicateEntry):
		return KindDuplicate
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &normalizeErr), errors.As(err, &extractErr):
		return KindParse
	default:
		return KindRow
	}
}
