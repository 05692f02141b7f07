// Package accounts shows the configured reference data and can rewrite
// the accounts file in normalized form.
package accounts

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nessita/cgem/cmd/root"
	"github.com/nessita/cgem/internal/refdata"
)

var write bool

// Cmd represents the accounts command.
var Cmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the configured books and accounts",
	Long: `List the books and accounts from the accounts file, with each account's
parser configuration and tag rule count. With --write the file is
rewritten in normalized form: builtin parser names are expanded into
their full configurations and formatting is canonicalized.`,
	RunE: runAccounts,
}

func init() {
	Cmd.Flags().BoolVar(&write, "write", false, "Rewrite the accounts file in normalized form")
}

func runAccounts(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	for i := range root.Refs.Books {
		book := &root.Refs.Books[i]
		fmt.Fprintf(out, "book %s: %s\n", book.Slug, book.Name)
	}
	for _, account := range root.Refs.Accounts {
		parser := "none"
		if account.ParserConfig != nil {
			parser = account.ParserConfig.Name
			if parser == "" {
				parser = "custom"
			}
		}
		status := "active"
		if !account.Active {
			status = "inactive"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\tparser=%s\trules=%d\t%s\n",
			account.Slug, account.Currency, account.Name, parser, len(account.Rules), status)
	}

	if !write {
		return nil
	}
	refStore := refdata.NewRefStore(root.Cfg.Accounts.File, root.Log)
	if err := refStore.Save(root.Refs); err != nil {
		return err
	}
	fmt.Fprintf(out, "accounts file rewritten\n")
	return nil
}
