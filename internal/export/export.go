// Package export writes ledger entries out as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/nessita/cgem/internal/logging"
	"github.com/nessita/cgem/internal/models"
)

// Row is the CSV shape of an entry. Amounts are signed, dates ISO.
type Row struct {
	ID       int64  `csv:"id"`
	Book     string `csv:"book"`
	Account  string `csv:"account"`
	Currency string `csv:"currency"`
	Who      string `csv:"who"`
	When     string `csv:"when"`
	What     string `csv:"what"`
	Amount   string `csv:"amount"`
	Tags     string `csv:"tags"`
	Country  string `csv:"country"`
	Notes    string `csv:"notes"`
}

func rowFromEntry(e *models.Entry) Row {
	return Row{
		ID:       e.ID,
		Book:     e.Book.Slug,
		Account:  e.Account.Slug,
		Currency: e.Account.Currency,
		Who:      e.Who,
		When:     e.When.Format(models.DateFormat),
		What:     e.What,
		Amount:   e.Money().StringFixed(2),
		Tags:     models.JoinTags(e.Tags),
		Country:  e.Country,
		Notes:    e.Notes,
	}
}

// WriteEntries writes entries as CSV to w with the given delimiter.
func WriteEntries(w io.Writer, entries []*models.Entry, delimiter rune, logger logging.Logger) error {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if entries == nil {
		return fmt.Errorf("cannot write nil entries to CSV")
	}

	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = rowFromEntry(e)
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		logger.WithError(err).Error("failed to marshal entries to CSV")
		return fmt.Errorf("error writing CSV data: %w", err)
	}

	logger.Debug("wrote entries to CSV", logging.Field{Key: "count", Value: len(rows)})
	return nil
}

// WriteEntriesToFile writes entries to csvFile, creating parent
// directories as needed.
func WriteEntriesToFile(entries []*models.Entry, csvFile string, delimiter rune, logger logging.Logger) error {
	if logger == nil {
		logger = logging.GetLogger()
	}

	dir := filepath.Dir(csvFile)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	file, err := os.Create(csvFile)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("failed to close file")
		}
	}()

	if err := WriteEntries(file, entries, delimiter, logger); err != nil {
		return err
	}

	logger.Info("exported entries",
		logging.Field{Key: "file", Value: csvFile},
		logging.Field{Key: "count", Value: len(entries)})
	return nil
}
