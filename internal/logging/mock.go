package logging

// MockLogger captures log entries for verification in tests. Loggers
// derived via WithError/WithField/WithFields record into the same sink, so
// tests always inspect the root MockLogger.
type MockLogger struct {
	sink          *[]LogEntry
	pendingError  error
	pendingFields []Field
}

// LogEntry is a single entry captured by MockLogger.
type LogEntry struct {
	Level   string
	Message string
	Fields  []Field
	Error   error
}

// NewMock creates an empty mock logger.
func NewMock() *MockLogger {
	return &MockLogger{sink: &[]LogEntry{}}
}

// Entries returns everything recorded so far, including entries logged
// through derived loggers.
func (m *MockLogger) Entries() []LogEntry {
	return *m.sink
}

func (m *MockLogger) record(level, msg string, fields []Field) {
	*m.sink = append(*m.sink, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  append(append([]Field{}, m.pendingFields...), fields...),
		Error:   m.pendingError,
	})
}

func (m *MockLogger) Debug(msg string, fields ...Field) { m.record("DEBUG", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...Field)  { m.record("INFO", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...Field)  { m.record("WARN", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...Field) { m.record("ERROR", msg, fields) }

// WithError returns a logger that attaches err to subsequent entries.
func (m *MockLogger) WithError(err error) Logger {
	return &MockLogger{sink: m.sink, pendingError: err, pendingFields: m.pendingFields}
}

func (m *MockLogger) WithField(key string, value interface{}) Logger {
	return m.WithFields(Field{Key: key, Value: value})
}

func (m *MockLogger) WithFields(fields ...Field) Logger {
	return &MockLogger{
		sink:          m.sink,
		pendingError:  m.pendingError,
		pendingFields: append(append([]Field{}, m.pendingFields...), fields...),
	}
}
