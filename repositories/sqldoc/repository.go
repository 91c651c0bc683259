package sqldoc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/services"
	"go.uber.org/zap"
)

// Repository implements repositories.DocumentStore over database/sql
type Repository struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
	nowFn   func() time.Time
}

var (
	_ repositories.DocumentStore      = (*Repository)(nil)
	_ repositories.TransactionManager = (*Repository)(nil)
)

// NewRepository creates a document repository on an open connection pool
func NewRepository(db *sql.DB, dialect Dialect, logger *zap.Logger) *Repository {
	return &Repository{
		db:      db,
		dialect: dialect,
		logger:  logger,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// InitSchema creates the documents table if needed
func (r *Repository) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.Schema); err != nil {
		return fmt.Errorf("failed to initialize %s schema: %w", r.dialect.Name, err)
	}
	r.logger.Info("document schema initialized", zap.String("dialect", r.dialect.Name))
	return nil
}

// Get retrieves a document by key
func (r *Repository) Get(ctx context.Context, collection, key string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT doc_key, data, version, created_at, updated_at
		FROM documents
		WHERE collection = %s AND doc_key = %s`,
		r.dialect.Bind(1), r.dialect.Bind(2))

	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, collection, key)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrDocumentNotFound
	}
	if err != nil {
		return nil, services.WrapStoreError(fmt.Sprintf("get %s/%s", collection, key), err)
	}
	return doc, nil
}

// List retrieves documents matching the filter in insertion order
func (r *Repository) List(ctx context.Context, collection string, filter repositories.ListFilter) ([]*models.Document, error) {
	query, args, err := r.buildListQuery(collection, filter)
	if err != nil {
		return nil, err
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.WrapStoreError("list "+collection, err)
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, services.WrapStoreError("scan "+collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, services.WrapStoreError("list "+collection, err)
	}
	return docs, nil
}

func (r *Repository) buildListQuery(collection string, filter repositories.ListFilter) (string, []interface{}, error) {
	var (
		b    strings.Builder
		args = []interface{}{collection}
	)
	b.WriteString("SELECT doc_key, data, version, created_at, updated_at FROM documents WHERE collection = ")
	b.WriteString(r.dialect.Bind(1))

	bind := func(v interface{}) string {
		args = append(args, v)
		return r.dialect.Bind(len(args))
	}

	for _, field := range sortedKeys(filter.Equals) {
		if !ValidFieldName(field) {
			return "", nil, services.NewViolationError(services.Violationf(
				services.ErrorTypeStructuralInvalid, field, "invalid filter field %q", field))
		}
		path := bind(r.dialect.FieldPath(field))
		fmt.Fprintf(&b, " AND %s = %s", r.dialect.TextField(path), bind(filter.Equals[field]))
	}
	for _, field := range sortedKeys(filter.AtLeast) {
		if !ValidFieldName(field) {
			return "", nil, services.NewViolationError(services.Violationf(
				services.ErrorTypeStructuralInvalid, field, "invalid filter field %q", field))
		}
		path := bind(r.dialect.FieldPath(field))
		fmt.Fprintf(&b, " AND %s >= %s", r.dialect.NumberField(path), bind(filter.AtLeast[field]))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(r.dialect.OrderColumn)
	return b.String(), args, nil
}

// Put inserts a document at version zero or updates it at its current version
func (r *Repository) Put(ctx context.Context, collection string, doc *models.Document) (*models.Document, error) {
	now := r.nowFn()
	stored := doc.Clone()
	stored.Version = doc.Version + 1
	stored.UpdatedAt = now

	exec := getExecutor(ctx, r.db)
	if doc.Version == 0 {
		query := fmt.Sprintf(`
			INSERT INTO documents (collection, doc_key, data, version, created_at, updated_at)
			VALUES (%s, %s, %s, %s, %s, %s)`,
			r.dialect.Bind(1), r.dialect.Bind(2), r.dialect.Bind(3),
			r.dialect.Bind(4), r.dialect.Bind(5), r.dialect.Bind(6))

		_, err := exec.ExecContext(ctx, query,
			collection, doc.Key, string(doc.Data), stored.Version, now.UnixNano(), now.UnixNano())
		if err != nil {
			return nil, r.classify(fmt.Sprintf("insert %s/%s", collection, doc.Key), err)
		}
		stored.CreatedAt = now
	} else {
		query := fmt.Sprintf(`
			UPDATE documents
			SET data = %s, version = %s, updated_at = %s
			WHERE collection = %s AND doc_key = %s AND version = %s
			RETURNING created_at`,
			r.dialect.Bind(1), r.dialect.Bind(2), r.dialect.Bind(3),
			r.dialect.Bind(4), r.dialect.Bind(5), r.dialect.Bind(6))

		var createdAt int64
		err := exec.QueryRowContext(ctx, query,
			string(doc.Data), stored.Version, now.UnixNano(), collection, doc.Key, doc.Version).Scan(&createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrConcurrentUpdate
		}
		if err != nil {
			return nil, r.classify(fmt.Sprintf("update %s/%s", collection, doc.Key), err)
		}
		stored.CreatedAt = time.Unix(0, createdAt).UTC()
	}

	r.logger.Debug("document stored",
		zap.String("dialect", r.dialect.Name),
		zap.String("collection", collection),
		zap.String("key", doc.Key),
		zap.Int64("version", stored.Version))

	return stored, nil
}

// Delete removes a document; a non-zero version must match
func (r *Repository) Delete(ctx context.Context, collection, key string, version int64) error {
	query := fmt.Sprintf(`DELETE FROM documents WHERE collection = %s AND doc_key = %s`,
		r.dialect.Bind(1), r.dialect.Bind(2))
	args := []interface{}{collection, key}
	if version != 0 {
		query += fmt.Sprintf(" AND version = %s", r.dialect.Bind(3))
		args = append(args, version)
	}

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return r.classify(fmt.Sprintf("delete %s/%s", collection, key), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return services.WrapStoreError("delete "+collection, err)
	}
	if affected > 0 {
		return nil
	}
	if version == 0 {
		return services.ErrDocumentNotFound
	}
	if _, err := r.Get(ctx, collection, key); err != nil {
		return err
	}
	return services.ErrConcurrentUpdate
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.db.PingContext(ctx); err != nil {
		return services.WrapStoreError("database health check failed", err)
	}
	return nil
}

// Close closes the connection pool
func (r *Repository) Close() error {
	r.logger.Info("closing database connection", zap.String("dialect", r.dialect.Name))
	return r.db.Close()
}

func (r *Repository) classify(op string, err error) error {
	switch {
	case r.dialect.IsUniqueViolation != nil && r.dialect.IsUniqueViolation(err):
		return services.ErrConcurrentUpdate
	case r.dialect.IsSerializationFailure != nil && r.dialect.IsSerializationFailure(err):
		return services.ErrConcurrentUpdate
	default:
		return services.WrapStoreError(op, err)
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc                  models.Document
		data                 []byte
		createdAt, updatedAt int64
	)
	if err := row.Scan(&doc.Key, &data, &doc.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	doc.Data = data
	doc.CreatedAt = time.Unix(0, createdAt).UTC()
	doc.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &doc, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
