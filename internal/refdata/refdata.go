// Package refdata loads the books and accounts the engine works against
// from a YAML file, including each account's parser configuration and
// tagging rules.
package refdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nessita/cgem/internal/importer"
	"github.com/nessita/cgem/internal/logging"
	"github.com/nessita/cgem/internal/models"
	"github.com/nessita/cgem/internal/store"
)

// accountYAML is the on-disk shape of an account. The parser is either the
// name of a builtin configuration or an inline parser_config block; rules
// may name another account slug as a transfer target.
type accountYAML struct {
	Slug         string               `yaml:"slug"`
	Name         string               `yaml:"name"`
	Currency     string               `yaml:"currency"`
	Users        []string             `yaml:"users,omitempty"`
	Active       *bool                `yaml:"active,omitempty"`
	Parser       string               `yaml:"parser,omitempty"`
	ParserConfig *models.ParserConfig `yaml:"parser_config,omitempty"`
	Rules        []ruleYAML           `yaml:"rules,omitempty"`
}

type ruleYAML struct {
	Regex    string `yaml:"regex"`
	Tag      string `yaml:"tag"`
	Transfer string `yaml:"transfer,omitempty"`
}

type fileYAML struct {
	Books    []models.Book `yaml:"books"`
	Accounts []accountYAML `yaml:"accounts"`
}

// Set is the resolved reference data: transfer slugs replaced with account
// pointers and parser names expanded to full configurations.
type Set struct {
	Books    []models.Book
	Accounts []*models.Account
}

// BookBySlug returns the named book, or nil.
func (s *Set) BookBySlug(slug string) *models.Book {
	for i := range s.Books {
		if s.Books[i].Slug == slug {
			return &s.Books[i]
		}
	}
	return nil
}

// AccountBySlug returns the named account, or nil.
func (s *Set) AccountBySlug(slug string) *models.Account {
	for _, a := range s.Accounts {
		if a.Slug == slug {
			return a
		}
	}
	return nil
}

// RefStore manages loading and saving of reference data.
type RefStore struct {
	AccountsFile string

	logger logging.Logger
}

// NewRefStore creates a store for the given accounts file. An empty
// filename falls back to accounts.yaml found via the standard locations.
func NewRefStore(accountsFile string, logger logging.Logger) *RefStore {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &RefStore{AccountsFile: accountsFile, logger: logger}
}

// FindConfigFile looks for a configuration file in standard locations.
func (s *RefStore) FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,                          // Current directory
		filepath.Join("config", filename), // ./config/ directory
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	// If still not found, check in user's home directory under .config/cgem/
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".config", "cgem", filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

// Load reads and resolves the accounts file. A missing file yields an
// empty set, not an error, so a fresh install can still run.
func (s *RefStore) Load() (*Set, error) {
	filename := s.AccountsFile
	if filename == "" {
		filename = "accounts.yaml"
	}

	filePath, err := s.FindConfigFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("accounts file not found", logging.Field{Key: "file", Value: filename})
			return &Set{}, nil
		}
		return nil, fmt.Errorf("error resolving accounts file: %w", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading accounts file: %w", err)
	}

	set, err := Parse(data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("loaded reference data",
		logging.Field{Key: "file", Value: filePath},
		logging.Field{Key: "books", Value: len(set.Books)},
		logging.Field{Key: "accounts", Value: len(set.Accounts)})
	return set, nil
}

// Parse resolves raw YAML into a Set. Currencies must be supported, parser
// names must be builtin configurations, and transfer targets must name
// another account in the file.
func Parse(data []byte) (*Set, error) {
	var file fileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing accounts file: %w", err)
	}

	set := &Set{Books: file.Books}
	for _, raw := range file.Accounts {
		if !slices.Contains(models.Currencies, raw.Currency) {
			return nil, fmt.Errorf("account %q: unknown currency %q (supported: %s)",
				raw.Slug, raw.Currency, strings.Join(models.Currencies, ", "))
		}
		account := &models.Account{
			Slug:     raw.Slug,
			Name:     raw.Name,
			Currency: raw.Currency,
			Users:    raw.Users,
			Active:   raw.Active == nil || *raw.Active,
		}
		switch {
		case raw.ParserConfig != nil:
			account.ParserConfig = raw.ParserConfig
		case raw.Parser != "":
			config, err := importer.BuiltinConfig(raw.Parser)
			if err != nil {
				return nil, fmt.Errorf("account %q: %w", raw.Slug, err)
			}
			account.ParserConfig = config
		}
		set.Accounts = append(set.Accounts, account)
	}

	// Second pass so rules can point at accounts declared later in the file.
	for i, raw := range file.Accounts {
		for _, rule := range raw.Rules {
			tagRule := models.TagRegex{Regex: rule.Regex, Tag: rule.Tag}
			if rule.Transfer != "" {
				target := set.AccountBySlug(rule.Transfer)
				if target == nil {
					return nil, fmt.Errorf("account %q: rule %q: unknown transfer account %q",
						raw.Slug, rule.Regex, rule.Transfer)
				}
				if target.Slug == raw.Slug {
					return nil, fmt.Errorf("account %q: rule %q: transfer target is the account itself",
						raw.Slug, rule.Regex)
				}
				tagRule.Transfer = target
			}
			set.Accounts[i].Rules = append(set.Accounts[i].Rules, tagRule)
		}
	}
	return set, nil
}

// Seed upserts the reference data into the entry store so imported entries
// can reference persistent book and account rows.
func (s *RefStore) Seed(ctx context.Context, st store.Store, set *Set) error {
	for i := range set.Books {
		if err := st.SaveBook(ctx, &set.Books[i]); err != nil {
			return fmt.Errorf("error saving book %q: %w", set.Books[i].Slug, err)
		}
	}
	for _, account := range set.Accounts {
		if err := st.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("error saving account %q: %w", account.Slug, err)
		}
	}
	return nil
}

// Save writes the set back to the accounts file, creating parent
// directories as needed. Resolved pointers are flattened back to slugs.
func (s *RefStore) Save(set *Set) error {
	filename := s.AccountsFile
	if filename == "" {
		filename = "accounts.yaml"
	}

	filePath, err := s.FindConfigFile(filename)
	if err != nil && err != os.ErrNotExist {
		return fmt.Errorf("error resolving accounts file: %w", err)
	}
	if err == os.ErrNotExist {
		filePath = filename
	}

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
	}

	file := fileYAML{Books: set.Books}
	for _, account := range set.Accounts {
		raw := accountYAML{
			Slug:         account.Slug,
			Name:         account.Name,
			Currency:     account.Currency,
			Users:        account.Users,
			ParserConfig: account.ParserConfig,
		}
		if !account.Active {
			active := false
			raw.Active = &active
		}
		for _, rule := range account.Rules {
			r := ruleYAML{Regex: rule.Regex, Tag: rule.Tag}
			if rule.Transfer != nil {
				r.Transfer = rule.Transfer.Slug
			}
			raw.Rules = append(raw.Rules, r)
		}
		file.Accounts = append(file.Accounts, raw)
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("error marshaling accounts: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("error writing accounts file: %w", err)
	}

	s.logger.Debug("saved reference data",
		logging.Field{Key: "file", Value: filePath},
		logging.Field{Key: "accounts", Value: len(set.Accounts)})
	return nil
}
