// Package root contains the root command for the application.
package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nessita/cgem/internal/config"
	"github.com/nessita/cgem/internal/logging"
	"github.com/nessita/cgem/internal/models"
	"github.com/nessita/cgem/internal/refdata"
	"github.com/nessita/cgem/internal/store"
)

// CommonFlags represents the flags that are shared by multiple commands.
type CommonFlags struct {
	Book   string
	Who    string
	DryRun bool
}

var (
	// Log is the shared logger instance for commands.
	Log = logging.GetLogger()

	// Cfg is the loaded application configuration.
	Cfg *config.Config

	// DB is the entry store opened for this invocation.
	DB *store.SQLite

	// Refs is the resolved book and account reference data.
	Refs *refdata.Set

	// SharedFlags holds flag values shared across commands.
	SharedFlags = CommonFlags{}

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "cgem",
		Short: "A ledger tool to import bank statements, compute balances and merge entries.",
		Long: `cgem keeps books of dated money movements. It imports bank statement
CSV files using per-account parser configurations, tags and de-duplicates
the resulting entries, computes balances with monthly breakdowns, and
merges related entries into one.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Init registers the persistent flags shared by all commands.
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Book, "book", "b", "", "Book to operate on (slug)")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Who, "who", "w", "", "Acting user recorded on created entries")
	Cmd.PersistentFlags().BoolVarP(&SharedFlags.DryRun, "dry-run", "n", false, "Compute the result without persisting anything")
}

// setup loads configuration, configures logging, opens the entry store and
// seeds it with the reference data.
func setup(cmd *cobra.Command, args []string) error {
	config.LoadEnv()

	var err error
	Cfg, err = config.InitializeConfig()
	if err != nil {
		return err
	}
	Log = config.ConfigureLogging(Cfg)

	DB, err = store.Open(Cfg.Database.Path, Log)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", Cfg.Database.Path, err)
	}

	refStore := refdata.NewRefStore(Cfg.Accounts.File, Log)
	Refs, err = refStore.Load()
	if err != nil {
		return err
	}
	if err := refStore.Seed(cmd.Context(), DB, Refs); err != nil {
		return err
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	if DB == nil {
		return
	}
	if err := DB.Close(); err != nil {
		Log.WithError(err).Warn("failed to close database")
	}
}

// RequireBook resolves the --book flag against the store.
func RequireBook(cmd *cobra.Command) (*models.Book, error) {
	if SharedFlags.Book == "" {
		return nil, fmt.Errorf("--book is required")
	}
	book, err := DB.BookBySlug(cmd.Context(), SharedFlags.Book)
	if err != nil {
		return nil, fmt.Errorf("book %q: %w", SharedFlags.Book, err)
	}
	return book, nil
}

// RequireAccount resolves an account slug against the reference data, which
// carries the parser configuration and tagging rules the store does not.
func RequireAccount(slug string) (*models.Account, error) {
	if slug == "" {
		return nil, fmt.Errorf("--account is required")
	}
	account := Refs.AccountBySlug(slug)
	if account == nil {
		return nil, fmt.Errorf("account %q: %w", slug, store.ErrNotFound)
	}
	if !account.Active {
		return nil, fmt.Errorf("account %q is inactive", slug)
	}
	return account, nil
}

// RequireWho resolves the --who flag.
func RequireWho() (string, error) {
	if SharedFlags.Who == "" {
		return "", fmt.Errorf("--who is required")
	}
	return SharedFlags.Who, nil
}
