package logging

import (
	"context"
	"maps"
	"sync"
)

// Entry is one record captured by MemoryLogger
type Entry struct {
	Level   Level
	Message string
	Err     error
	Fields  Fields
}

// MemoryLogger keeps entries in memory. Loggers derived through WithFields
// share the parent's entry list.
type MemoryLogger struct {
	store  *memoryStore
	fields Fields
	level  Level
}

type memoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryLogger creates an empty in-memory logger at DebugLevel
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{store: &memoryStore{}, fields: Fields{}, level: DebugLevel}
}

// Entries returns a snapshot of everything logged so far
func (m *MemoryLogger) Entries() []Entry {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := make([]Entry, len(m.store.entries))
	copy(out, m.store.entries)
	return out
}

// Count returns how many entries carry the given message
func (m *MemoryLogger) Count(msg string) int {
	n := 0
	for _, e := range m.Entries() {
		if e.Message == msg {
			n++
		}
	}
	return n
}

func (m *MemoryLogger) record(level Level, err error, msg string, fields ...Fields) {
	if level < m.level {
		return
	}
	all := make(Fields)
	maps.Copy(all, m.fields)
	for _, f := range fields {
		maps.Copy(all, f)
	}

	m.store.mu.Lock()
	m.store.entries = append(m.store.entries, Entry{Level: level, Message: msg, Err: err, Fields: all})
	m.store.mu.Unlock()
}

func (m *MemoryLogger) Debug(msg string, fields ...Fields) { m.record(DebugLevel, nil, msg, fields...) }
func (m *MemoryLogger) Info(msg string, fields ...Fields)  { m.record(InfoLevel, nil, msg, fields...) }
func (m *MemoryLogger) Warn(msg string, fields ...Fields)  { m.record(WarnLevel, nil, msg, fields...) }

func (m *MemoryLogger) Error(err error, msg string, fields ...Fields) {
	m.record(ErrorLevel, err, msg, fields...)
}

// Fatal records the entry without exiting
func (m *MemoryLogger) Fatal(err error, msg string, fields ...Fields) {
	m.record(FatalLevel, err, msg, fields...)
}

func (m *MemoryLogger) WithFields(fields Fields) Logger {
	merged := make(Fields)
	maps.Copy(merged, m.fields)
	maps.Copy(merged, fields)
	return &MemoryLogger{store: m.store, fields: merged, level: m.level}
}

func (m *MemoryLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := fieldsFromContext(ctx); ok {
		return m.WithFields(fields)
	}
	return m
}

func (m *MemoryLogger) SetLevel(level Level) {
	m.level = level
}
