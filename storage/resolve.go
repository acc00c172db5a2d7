package storage

import (
	"log/slog"
)

// Resolve picks the checkpoint store. An empty path selects the in-process
// store. Otherwise SQLite is tried first; if it cannot be opened the
// in-process store is used and a warning is logged. The returned close
// function is never nil.
func Resolve(path string) (ConversationStorage, func() error) {
	if path == "" {
		slog.Debug("using in-memory checkpoint store")
		return NewInMemoryStorage(), func() error { return nil }
	}

	store, err := OpenSqlite(path)
	if err != nil {
		slog.Warn("falling back to in-memory checkpoint store", "path", path, "error", err)
		return NewInMemoryStorage(), func() error { return nil }
	}

	slog.Debug("using sqlite checkpoint store", "path", path)
	return store, store.Close
}
