package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRecordsEntries(t *testing.T) {
	m := NewMock()
	m.Info("hello", Field{Key: "k", Value: 1})
	m.Warn("careful")

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, "k", entries[0].Fields[0].Key)
	assert.Equal(t, "WARN", entries[1].Level)
}

func TestMockDerivedLoggersShareSink(t *testing.T) {
	m := NewMock()
	err := errors.New("boom")

	m.WithError(err).Error("failed")
	m.WithField("account", "checking").WithFields(Field{Key: "row", Value: 3}).Debug("row skipped")

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, err, entries[0].Error)
	require.Len(t, entries[1].Fields, 2)
	assert.Equal(t, "account", entries[1].Fields[0].Key)
	assert.Equal(t, "row", entries[1].Fields[1].Key)
}

func TestGetLoggerNeverNil(t *testing.T) {
	assert.NotNil(t, GetLogger())
}

func TestSetDefault(t *testing.T) {
	original := GetLogger()
	defer SetDefault(original)

	m := NewMock()
	SetDefault(m)
	assert.Same(t, Logger(m), GetLogger())
}

func TestLogrusAdapterUnknownLevelFallsBack(t *testing.T) {
	logger := NewLogrusAdapter("nonsense", "text")
	require.NotNil(t, logger)
	// Logging through it must not panic.
	logger.WithField("k", "v").Info("still works")
}
