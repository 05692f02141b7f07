package accounts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nessita/cgem/cmd/accounts"
)

func TestAccountsCommandMetadata(t *testing.T) {
	assert.Equal(t, "accounts", accounts.Cmd.Use)
	assert.Contains(t, accounts.Cmd.Short, "books and accounts")
	assert.Contains(t, accounts.Cmd.Long, "normalized")
	assert.NotNil(t, accounts.Cmd.RunE)
}

func TestAccountsCommandFlags(t *testing.T) {
	assert.NotNil(t, accounts.Cmd.Flags().Lookup("write"))
}
