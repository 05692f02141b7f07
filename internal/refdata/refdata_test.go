package refdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nessita/cgem/internal/store"
)

const sampleYAML = `
books:
  - slug: family
    name: Family ledger
    users: [naty, marc]
accounts:
  - slug: bna-checking
    name: BNA checking
    currency: ARS
    users: [naty]
    parser: bna
    rules:
      - regex: "RENT"
        tag: housing
        transfer: landlord
      - regex: "SUPERMERCADO"
        tag: food
  - slug: landlord
    name: Landlord settlement
    currency: ARS
  - slug: custom
    name: Custom bank
    currency: USD
    active: false
    parser_config:
      name: custom
      when: [0]
      what: [2]
      amount: [3, 4]
      date_format: "02/01/2006"
      country: US
`

func TestParseResolvesEverything(t *testing.T) {
	set, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.Len(t, set.Books, 1)
	assert.Equal(t, []string{"naty", "marc"}, set.Books[0].Users)

	require.Len(t, set.Accounts, 3)

	bna := set.AccountBySlug("bna-checking")
	require.NotNil(t, bna)
	assert.True(t, bna.Active, "active defaults to true")
	require.NotNil(t, bna.ParserConfig)
	assert.Equal(t, "bna", bna.ParserConfig.Name)
	assert.Equal(t, "AR", bna.ParserConfig.Country)

	require.Len(t, bna.Rules, 2)
	require.NotNil(t, bna.Rules[0].Transfer)
	assert.Same(t, set.AccountBySlug("landlord"), bna.Rules[0].Transfer)
	assert.Nil(t, bna.Rules[1].Transfer)

	custom := set.AccountBySlug("custom")
	require.NotNil(t, custom)
	assert.False(t, custom.Active)
	require.NotNil(t, custom.ParserConfig)
	assert.Equal(t, []int{3, 4}, custom.ParserConfig.Amount)

	assert.Nil(t, set.AccountBySlug("nope"))
	assert.Nil(t, set.BookBySlug("nope"))
}

func TestParseUnknownParser(t *testing.T) {
	_, err := Parse([]byte(`
accounts:
  - slug: a
    name: A
    currency: USD
    parser: does-not-exist
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist")
}

func TestParseUnknownCurrency(t *testing.T) {
	_, err := Parse([]byte(`
accounts:
  - slug: a
    name: A
    currency: XRP
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown currency "XRP"`)
	assert.Contains(t, err.Error(), "USD")
}

func TestParseUnknownTransferTarget(t *testing.T) {
	_, err := Parse([]byte(`
accounts:
  - slug: a
    name: A
    currency: USD
    rules:
      - regex: "RENT"
        tag: housing
        transfer: nobody
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody")
}

func TestParseSelfTransfer(t *testing.T) {
	_, err := Parse([]byte(`
accounts:
  - slug: a
    name: A
    currency: USD
    rules:
      - regex: "RENT"
        tag: housing
        transfer: a
`))
	assert.Error(t, err)
}

func TestLoadMissingFileIsEmptySet(t *testing.T) {
	s := NewRefStore(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	set, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, set.Books)
	assert.Empty(t, set.Accounts)
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0600))

	s := NewRefStore(path, nil)
	set, err := s.Load()
	require.NoError(t, err)

	require.NoError(t, s.Save(set))

	reloaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, reloaded.Accounts, 3)

	bna := reloaded.AccountBySlug("bna-checking")
	require.NotNil(t, bna)
	require.Len(t, bna.Rules, 2)
	assert.Equal(t, "landlord", bna.Rules[0].Transfer.Slug)
	assert.False(t, reloaded.AccountBySlug("custom").Active)
}

func TestSeedAssignsIDs(t *testing.T) {
	set, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	s := NewRefStore("", nil)
	mem := store.NewMemory()
	require.NoError(t, s.Seed(context.Background(), mem, set))

	assert.NotZero(t, set.Books[0].ID)
	for _, account := range set.Accounts {
		assert.NotZero(t, account.ID, "account %s", account.Slug)
	}

	book, err := mem.BookBySlug(context.Background(), "family")
	require.NoError(t, err)
	assert.Equal(t, set.Books[0].ID, book.ID)
}
