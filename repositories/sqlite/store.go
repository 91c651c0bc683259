// Package sqlite provides an embedded document store on the pure Go SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/upb/waqf-policy-engine/repositories/sqldoc"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		doc_key TEXT NOT NULL,
		data TEXT NOT NULL CHECK (json_valid(data)),
		version INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (collection, doc_key)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_performed_by
		ON documents(collection, json_extract(data, '$.performedBy'));
	CREATE INDEX IF NOT EXISTS idx_documents_role
		ON documents(collection, json_extract(data, '$.role'));
`

// Dialect is the SQLite flavour of the document table
var Dialect = sqldoc.Dialect{
	Name: "sqlite",
	Bind: func(int) string {
		return "?"
	},
	TextField: func(path string) string {
		return "CAST(json_extract(data, " + path + ") AS TEXT)"
	},
	NumberField: func(path string) string {
		return "CAST(json_extract(data, " + path + ") AS REAL)"
	},
	FieldPath: func(field string) string {
		return "$." + field
	},
	OrderColumn:            "rowid",
	Schema:                 schema,
	Isolation:              sql.LevelDefault,
	IsUniqueViolation:      messageContains("UNIQUE constraint failed"),
	IsSerializationFailure: messageContains("database is locked", "SQLITE_BUSY"),
}

func messageContains(fragments ...string) func(error) bool {
	return func(err error) bool {
		if err == nil {
			return false
		}
		msg := err.Error()
		for _, f := range fragments {
			if strings.Contains(msg, f) {
				return true
			}
		}
		return false
	}
}

// Open opens (creating if needed) the database file and ensures the schema
func Open(ctx context.Context, path string, logger *zap.Logger) (*sqldoc.Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection keeps transactions serialised.
	db.SetMaxOpenConns(1)

	repo := sqldoc.NewRepository(db, Dialect, logger)
	if err := repo.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("sqlite document store opened", zap.String("path", path))
	return repo, nil
}
