// Package importcmd handles bank statement CSV import.
package importcmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nessita/cgem/cmd/root"
	"github.com/nessita/cgem/internal/importer"
	"github.com/nessita/cgem/internal/logging"
	"github.com/nessita/cgem/internal/store"
)

var (
	accountSlug string
	inputFile   string
)

// Cmd represents the import command.
var Cmd = &cobra.Command{
	Use:   "import",
	Short: "Import a bank statement CSV into a book",
	Long: `Import a bank statement CSV into a book, one entry per data row.

Rows are parsed with the account's parser configuration, tagged by the
account's rules, and de-duplicated against existing entries. Rows that
fail keep the import going; each failure is reported with its data.
With --dry-run the parsed entries are shown and nothing is persisted.`,
	RunE: runImport,
}

func init() {
	Cmd.Flags().StringVarP(&accountSlug, "account", "a", "", "Account the statement belongs to (slug)")
	Cmd.Flags().StringVarP(&inputFile, "file", "f", "", "Statement CSV file to import")
}

func runImport(cmd *cobra.Command, args []string) error {
	book, err := root.RequireBook(cmd)
	if err != nil {
		return err
	}
	account, err := root.RequireAccount(accountSlug)
	if err != nil {
		return err
	}
	who, err := root.RequireWho()
	if err != nil {
		return err
	}
	if inputFile == "" {
		return fmt.Errorf("--file is required")
	}

	engine, err := importer.New(account, root.DB, root.Log)
	if err != nil {
		return err
	}
	engine.DefaultTag = root.Cfg.Import.DefaultTag

	f, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("opening statement: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			root.Log.WithError(err).Warn("failed to close statement file")
		}
	}()

	result, err := engine.Parse(cmd.Context(), f, book, who, root.SharedFlags.DryRun)
	if err != nil {
		return err
	}

	batch := &store.ImportBatch{
		ID:      uuid.NewString(),
		Source:  inputFile,
		Book:    book.Slug,
		Account: account.Slug,
		DryRun:  root.SharedFlags.DryRun,
		Entries: len(result.Entries),
		Errors:  len(result.Errors),
	}
	if err := root.DB.RecordImportBatch(cmd.Context(), batch); err != nil {
		return err
	}

	root.Log.Info("import finished",
		logging.Field{Key: "batch", Value: batch.ID},
		logging.Field{Key: "entries", Value: len(result.Entries)},
		logging.Field{Key: "errors", Value: len(result.Errors)},
		logging.Field{Key: "dry_run", Value: root.SharedFlags.DryRun})

	out := cmd.OutOrStdout()
	for _, entry := range result.Entries {
		fmt.Fprintf(out, "%s\n", entry.String())
	}
	for _, record := range result.Errors {
		fmt.Fprintf(out, "error: %s: %s (row %v)\n", record.Kind, record.Message, record.Row)
	}
	fmt.Fprintf(out, "%d entries, %d errors\n", len(result.Entries), len(result.Errors))
	return nil
}
