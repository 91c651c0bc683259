// Package sqldoc stores documents in a single SQL table, one row per
// (collection, key), with the entity JSON in a data column. Engines differ
// only in placeholders, JSON extraction and error classification.
package sqldoc

import (
	"database/sql"
	"regexp"
)

// Dialect describes the engine-specific parts of the documents table
type Dialect struct {
	// Name identifies the engine in logs
	Name string

	// Bind returns the placeholder for the n-th (1-based) argument
	Bind func(n int) string

	// TextField returns an expression extracting a top-level field as text.
	// path is a placeholder bound to FieldPath(field).
	TextField func(path string) string

	// NumberField returns an expression extracting a top-level field as a number
	NumberField func(path string) string

	// FieldPath converts a field name into the value bound for path
	FieldPath func(field string) string

	// OrderColumn preserves insertion order
	OrderColumn string

	// Schema creates the documents table and its indexes
	Schema string

	// Isolation is the level used for InTransaction
	Isolation sql.IsolationLevel

	// IsUniqueViolation reports a primary key collision on insert
	IsUniqueViolation func(err error) bool

	// IsSerializationFailure reports a transaction aborted by a concurrent writer
	IsSerializationFailure func(err error) bool
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidFieldName reports whether name can be used as a filter field
func ValidFieldName(name string) bool {
	return fieldNamePattern.MatchString(name)
}
