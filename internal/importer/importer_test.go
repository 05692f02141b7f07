package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nessita/cgem/internal/models"
	"github.com/nessita/cgem/internal/store"
)

func setup(t *testing.T, account *models.Account) (*store.Memory, *models.Book, *Engine) {
	t.Helper()
	s := store.NewMemory()
	ctx := context.Background()

	book := &models.Book{Slug: "family", Name: "Family"}
	require.NoError(t, s.SaveBook(ctx, book))
	require.NoError(t, s.SaveAccount(ctx, account))

	engine, err := New(account, s, nil)
	require.NoError(t, err)
	return s, book, engine
}

func bnaAccount(t *testing.T) *models.Account {
	t.Helper()
	config, err := BuiltinConfig("bna")
	require.NoError(t, err)
	return &models.Account{Slug: "bna", Name: "BNA", Currency: "ARS", Active: true, ParserConfig: config}
}

func TestParseSingleColumnAmounts(t *testing.T) {
	s, book, engine := setup(t, bnaAccount(t))

	data := `Fecha,Descripcion,Importe
15/03/2024,SUPERMERCADO DIA,-1250.50
16/03/2024,SUELDO MARZO,"350,000.00"
`
	result, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Entries, 2)

	grocery := result.Entries[0]
	assert.Equal(t, "SUPERMERCADO DIA", grocery.What)
	assert.False(t, grocery.IsIncome)
	assert.True(t, grocery.Amount.Equal(decimal.RequireFromString("1250.5")))
	assert.Equal(t, "2024-03-15", grocery.When.Format(models.DateFormat))
	assert.Equal(t, "AR", grocery.Country)
	assert.Equal(t, []string{models.DefaultTag}, grocery.Tags)

	salary := result.Entries[1]
	assert.True(t, salary.IsIncome)
	assert.True(t, salary.Amount.Equal(decimal.RequireFromString("350000")))

	persisted, err := s.ListEntries(context.Background(), book, store.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestParseTwoColumnAmounts(t *testing.T) {
	config, err := BuiltinConfig("sco")
	require.NoError(t, err)
	account := &models.Account{Slug: "sco", Name: "Santander", Currency: "UYU", Active: true, ParserConfig: config}
	_, book, engine := setup(t, account)

	// Columns: seq, date, reference, description, blank, debit, credit.
	data := `seq,fecha,ref,concepto,x,debito,credito
1,05/02/2024,REF1,COMPRA TIENDA,,"1.234,56",
2,06/02/2024,REF2,DEPOSITO,,,"2.500,00"
`
	result, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Entries, 2)

	expense := result.Entries[0]
	assert.False(t, expense.IsIncome)
	assert.True(t, expense.Amount.Equal(decimal.RequireFromString("1234.56")),
		"got %s", expense.Amount)
	assert.Contains(t, expense.Notes, "REF1")

	income := result.Entries[1]
	assert.True(t, income.IsIncome)
	assert.True(t, income.Amount.Equal(decimal.RequireFromString("2500")))
}

func TestParseDeferredRowFoldsIntoNext(t *testing.T) {
	config, err := BuiltinConfig("wfg")
	require.NoError(t, err)
	account := &models.Account{Slug: "wfg", Name: "Wells Fargo", Currency: "USD", Active: true, ParserConfig: config}
	_, book, engine := setup(t, account)

	data := `03/15/2024,-5.00,*,,INTERNATIONAL PURCHASE TRANSACTION FEE
03/15/2024,-40.00,*,,PURCHASE INTL BOOKSTORE
`
	result, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Entries, 1, "fee row folds into the purchase row")

	entry := result.Entries[0]
	assert.True(t, entry.Amount.Equal(decimal.RequireFromString("45")))
	assert.False(t, entry.IsIncome)
	assert.Equal(t, "PURCHASE INTL BOOKSTORE", entry.What)
	assert.Contains(t, entry.Notes, "PURCHASE INTL BOOKSTORE")
	assert.Contains(t, entry.Notes, "INTERNATIONAL PURCHASE TRANSACTION FEE")
}

func TestParseSecondDeferredRowAborts(t *testing.T) {
	config, err := BuiltinConfig("wfg")
	require.NoError(t, err)
	account := &models.Account{Slug: "wfg", Name: "Wells Fargo", Currency: "USD", Active: true, ParserConfig: config}
	_, book, engine := setup(t, account)

	data := `03/15/2024,-5.00,*,,INTERNATIONAL PURCHASE TRANSACTION FEE
03/15/2024,-3.50,*,,NON-WELLS FARGO ATM TRANSACTION FEE
03/15/2024,-40.00,*,,PURCHASE INTL BOOKSTORE
`
	_, err = engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	assert.ErrorIs(t, err, ErrDeferredOverlap)
}

func TestParseDeferredDirectionMismatchIsRowError(t *testing.T) {
	config, err := BuiltinConfig("wfg")
	require.NoError(t, err)
	account := &models.Account{Slug: "wfg", Name: "Wells Fargo", Currency: "USD", Active: true, ParserConfig: config}
	_, book, engine := setup(t, account)

	// An expense fee followed by an income row cannot fold; the pending
	// state clears and the rest of the statement still imports.
	data := `03/15/2024,-5.00,*,,INTERNATIONAL PURCHASE TRANSACTION FEE
03/15/2024,40.00,*,,REFUND INTL BOOKSTORE
03/16/2024,-30.00,*,,PURCHASE GROCERY
`
	result, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, KindRow, result.Errors[0].Kind)
	assert.Contains(t, result.Errors[0].Message, "INTERNATIONAL PURCHASE TRANSACTION FEE")
	assert.Contains(t, result.Errors[0].Message, "REFUND INTL BOOKSTORE")

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "PURCHASE GROCERY", result.Entries[0].What)
	assert.True(t, result.Entries[0].Amount.Equal(decimal.RequireFromString("30")),
		"no leftover fee folds into the later row")
}

func TestParseDeferredDateMismatchIsRowError(t *testing.T) {
	config, err := BuiltinConfig("wfg")
	require.NoError(t, err)
	account := &models.Account{Slug: "wfg", Name: "Wells Fargo", Currency: "USD", Active: true, ParserConfig: config}
	_, book, engine := setup(t, account)

	data := `03/15/2024,-5.00,*,,INTERNATIONAL PURCHASE TRANSACTION FEE
03/16/2024,-40.00,*,,PURCHASE INTL BOOKSTORE
03/16/2024,-30.00,*,,PURCHASE GROCERY
`
	result, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, KindRow, result.Errors[0].Kind)
	assert.Contains(t, result.Errors[0].Message, "2024-03-15")
	assert.Contains(t, result.Errors[0].Message, "2024-03-16")
	require.NotNil(t, result.Errors[0].Payload)
	assert.Equal(t, "PURCHASE INTL BOOKSTORE", result.Errors[0].Payload.What)

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "PURCHASE GROCERY", result.Entries[0].What)
	assert.True(t, result.Entries[0].Amount.Equal(decimal.RequireFromString("30")))
}

func TestParseDeferredRowPendingAtEOF(t *testing.T) {
	config, err := BuiltinConfig("wfg")
	require.NoError(t, err)
	account := &models.Account{Slug: "wfg", Name: "Wells Fargo", Currency: "USD", Active: true, ParserConfig: config}
	_, book, engine := setup(t, account)

	data := `03/15/2024,-40.00,*,,PURCHASE INTL BOOKSTORE
03/15/2024,-5.00,*,,INTERNATIONAL PURCHASE TRANSACTION FEE
`
	result, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	// The statement ends with the fee still buffered; it surfaces as an
	// error record instead of vanishing from the report.
	require.Len(t, result.Errors, 1)
	assert.Equal(t, KindRow, result.Errors[0].Kind)
	assert.Contains(t, result.Errors[0].Message, "never merged")
	require.NotNil(t, result.Errors[0].Payload)
	assert.Equal(t, "INTERNATIONAL PURCHASE TRANSACTION FEE", result.Errors[0].Payload.What)
}

func TestParseRowErrorsDoNotStopImport(t *testing.T) {
	_, book, engine := setup(t, bnaAccount(t))

	data := `Fecha,Descripcion,Importe
15/03/2024,GOOD ROW,-10.00
not-a-date,BAD DATE,-10.00
16/03/2024,,-10.00
17/03/2024,BAD AMOUNT,pending
18/03/2024,ANOTHER GOOD ROW,-20.00
`
	result, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)
	require.Len(t, result.Errors, 3)
	for _, record := range result.Errors {
		assert.Equal(t, KindParse, record.Kind)
		assert.NotEmpty(t, record.Message)
		assert.NotEmpty(t, record.Row, "failed rows keep their data for reporting")
	}
}

func TestParseReimportReportsDuplicates(t *testing.T) {
	_, book, engine := setup(t, bnaAccount(t))

	data := `Fecha,Descripcion,Importe
15/03/2024,SUPERMERCADO DIA,-1250.50
16/03/2024,FARMACIA,-89.90
`
	first, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	assert.Len(t, first.Entries, 2)
	assert.Empty(t, first.Errors)

	second, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	assert.Empty(t, second.Entries, "re-import creates nothing")
	require.Len(t, second.Errors, 2)
	for _, record := range second.Errors {
		assert.Equal(t, KindDuplicate, record.Kind)
		assert.NotNil(t, record.Payload)
	}
}

func TestParseOverlappingStatement(t *testing.T) {
	s, book, engine := setup(t, bnaAccount(t))
	ctx := context.Background()

	march := `Fecha,Descripcion,Importe
15/03/2024,SUPERMERCADO DIA,-1250.50
30/03/2024,FARMACIA,-89.90
`
	// The next export overlaps the tail of the previous one.
	overlap := `Fecha,Descripcion,Importe
30/03/2024,FARMACIA,-89.90
02/04/2024,PANADERIA,-15.00
`
	_, err := engine.Parse(ctx, strings.NewReader(march), book, "naty", false)
	require.NoError(t, err)

	result, err := engine.Parse(ctx, strings.NewReader(overlap), book, "naty", false)
	require.NoError(t, err)
	assert.Len(t, result.Entries, 1, "only the genuinely new row imports")
	require.Len(t, result.Errors, 1)
	assert.Equal(t, KindDuplicate, result.Errors[0].Kind)

	persisted, err := s.ListEntries(ctx, book, store.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, persisted, 3)
}

func TestParseDryRunPersistsNothing(t *testing.T) {
	s, book, engine := setup(t, bnaAccount(t))
	ctx := context.Background()

	data := `Fecha,Descripcion,Importe
15/03/2024,SUPERMERCADO DIA,-1250.50
`
	result, err := engine.Parse(ctx, strings.NewReader(data), book, "naty", true)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Zero(t, result.Entries[0].ID, "dry run entries have no persisted id")

	persisted, err := s.ListEntries(ctx, book, store.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, persisted)

	// A real import afterwards succeeds: the dry run reserved nothing.
	again, err := engine.Parse(ctx, strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	assert.Len(t, again.Entries, 1)
	assert.NotZero(t, again.Entries[0].ID)
}

func TestParseTagRules(t *testing.T) {
	account := bnaAccount(t)
	account.Rules = []models.TagRegex{
		{Regex: "SUPERMERCADO", Tag: "food"},
	}
	_, book, engine := setup(t, account)

	data := `Fecha,Descripcion,Importe
15/03/2024,SUPERMERCADO DIA,-1250.50
16/03/2024,LIBRERIA,-300.00
`
	result, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, []string{"food"}, result.Entries[0].Tags)
	assert.Equal(t, []string{models.DefaultTag}, result.Entries[1].Tags)
}

func TestParseTransferRuleCreatesMirroredEntry(t *testing.T) {
	landlord := &models.Account{Slug: "landlord", Name: "Landlord", Currency: "ARS", Active: true}
	account := bnaAccount(t)
	account.Rules = []models.TagRegex{
		{Regex: "RENT", Tag: "housing", Transfer: landlord},
	}
	s, book, engine := setup(t, account)
	require.NoError(t, s.SaveAccount(context.Background(), landlord))

	data := `Fecha,Descripcion,Importe
01/03/2024,RENT MARCH,-50000.00
`
	result, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Entries, 1)

	persisted, err := s.ListEntries(context.Background(), book, store.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, persisted, 2, "the rule creates the mirrored entry too")

	var mirror *models.Entry
	for _, e := range persisted {
		if e.Account.Slug == "landlord" {
			mirror = e
		}
	}
	require.NotNil(t, mirror)
	assert.True(t, mirror.IsIncome, "mirrored entry flips direction")
	assert.True(t, mirror.Amount.Equal(decimal.RequireFromString("50000")))
	assert.Equal(t, "RENT MARCH", mirror.What)
}

func TestParseSkipsConfiguredAndBlankRows(t *testing.T) {
	_, book, engine := setup(t, bnaAccount(t))

	data := `Resumen de cuenta - no es un encabezado CSV
15/03/2024,SUPERMERCADO DIA,-1250.50
,,
16/03/2024,FARMACIA,-89.90
`
	result, err := engine.Parse(context.Background(), strings.NewReader(data), book, "naty", false)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Entries, 2)
}

func TestNewRejectsBadConfigs(t *testing.T) {
	s := store.NewMemory()

	_, err := New(&models.Account{Slug: "none"}, s, nil)
	assert.Error(t, err, "account without parser config")

	_, err = New(&models.Account{
		Slug:         "bad",
		ParserConfig: &models.ParserConfig{Amount: []int{1, 2, 3}},
	}, s, nil)
	assert.Error(t, err, "amount must be 1 or 2 columns")

	_, err = New(&models.Account{
		Slug:         "badrule",
		ParserConfig: &models.ParserConfig{Amount: []int{1}},
		Rules:        []models.TagRegex{{Regex: "([", Tag: "broken"}},
	}, s, nil)
	assert.Error(t, err, "bad tag rule pattern")
}

func TestBuiltinNames(t *testing.T) {
	assert.Equal(t, []string{"bna", "sco", "wfg"}, BuiltinNames())

	_, err := BuiltinConfig("nope")
	assert.Error(t, err)

	// Callers get a copy, not the shared instance.
	config, err := BuiltinConfig("bna")
	require.NoError(t, err)
	config.Country = "XX"
	fresh, err := BuiltinConfig("bna")
	require.NoError(t, err)
	assert.Equal(t, "AR", fresh.Country)
}
