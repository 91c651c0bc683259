package memory

import (
	"context"
	"sync"
	"time"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/services"
	"go.uber.org/zap"
)

type txContextKey struct{}

// undoEntry records the state one write replaced. removedAt is the key's
// position in the insertion order when the write was a delete, else -1.
type undoEntry struct {
	collection string
	key        string
	prev       *models.Document
	removedAt  int
	created    bool
}

// txLog is the undo log of one transaction
type txLog struct {
	store   *Store
	entries []undoEntry
}

type collection struct {
	docs  map[string]*models.Document
	order []string
}

// remove deletes key and returns its former position in the order, or -1
func (c *collection) remove(key string) int {
	delete(c.docs, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return i
		}
	}
	return -1
}

func (c *collection) insertAt(i int, key string) {
	if i > len(c.order) {
		i = len(c.order)
	}
	c.order = append(c.order, "")
	copy(c.order[i+1:], c.order[i:])
	c.order[i] = key
}

// Store is an in-process DocumentStore. Documents are cloned on the way in and
// out so callers never share memory with the store. Transactions are
// serialised and roll back by replaying their undo log, so a rollback touches
// only the keys the transaction wrote.
type Store struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	collections map[string]*collection
	nowFn       func() time.Time
	logger      *zap.Logger
}

// NewStore creates an empty in-memory store
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		collections: make(map[string]*collection),
		nowFn:       func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

var (
	_ repositories.DocumentStore      = (*Store)(nil)
	_ repositories.TransactionManager = (*Store)(nil)
)

// Get retrieves a document by key
func (s *Store) Get(ctx context.Context, coll, key string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.WrapStoreError("get "+coll, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[coll]
	if !ok {
		return nil, services.ErrDocumentNotFound
	}
	doc, ok := c.docs[key]
	if !ok {
		return nil, services.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

// List retrieves matching documents in insertion order
func (s *Store) List(ctx context.Context, coll string, filter repositories.ListFilter) ([]*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.WrapStoreError("list "+coll, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[coll]
	if !ok {
		return []*models.Document{}, nil
	}
	out := make([]*models.Document, 0, len(c.order))
	for _, key := range c.order {
		doc := c.docs[key]
		match, err := filter.Matches(doc)
		if err != nil {
			return nil, services.WrapStoreError("list "+coll, err)
		}
		if match {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

// Put creates or replaces a document after checking its version
func (s *Store) Put(ctx context.Context, coll string, doc *models.Document) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.WrapStoreError("put "+coll, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, found := s.collections[coll]
	if !found {
		c = &collection{docs: make(map[string]*models.Document)}
		s.collections[coll] = c
	}

	now := s.nowFn()
	stored := doc.Clone()
	existing, exists := c.docs[doc.Key]
	switch {
	case exists && existing.Version != doc.Version:
		return nil, services.ErrConcurrentUpdate
	case !exists && doc.Version != 0:
		return nil, services.ErrConcurrentUpdate
	case exists:
		stored.CreatedAt = existing.CreatedAt
	default:
		stored.CreatedAt = now
		c.order = append(c.order, doc.Key)
	}
	stored.Version = doc.Version + 1
	stored.UpdatedAt = now
	c.docs[doc.Key] = stored
	s.record(ctx, undoEntry{collection: coll, key: doc.Key, prev: existing, removedAt: -1, created: !found})

	s.logger.Debug("document stored",
		zap.String("collection", coll),
		zap.String("key", doc.Key),
		zap.Int64("version", stored.Version))

	return stored.Clone(), nil
}

// Delete removes a document
func (s *Store) Delete(ctx context.Context, coll, key string, version int64) error {
	if err := ctx.Err(); err != nil {
		return services.WrapStoreError("delete "+coll, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[coll]
	if !ok {
		return services.ErrDocumentNotFound
	}
	existing, ok := c.docs[key]
	if !ok {
		return services.ErrDocumentNotFound
	}
	if version != 0 && existing.Version != version {
		return services.ErrConcurrentUpdate
	}
	at := c.remove(key)
	s.record(ctx, undoEntry{collection: coll, key: key, prev: existing, removedAt: at})
	return nil
}

// record appends to the undo log of the transaction in ctx, if any.
// Callers hold mu.
func (s *Store) record(ctx context.Context, entry undoEntry) {
	log, ok := ctx.Value(txContextKey{}).(*txLog)
	if !ok || log.store != s {
		return
	}
	log.entries = append(log.entries, entry)
}

// InTransaction runs fn with exclusive access to transactional writers and
// undoes its writes if fn fails. Nested calls join the outer transaction.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if log, ok := ctx.Value(txContextKey{}).(*txLog); ok && log.store == s {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	log := &txLog{store: s}
	if err := fn(context.WithValue(ctx, txContextKey{}, log)); err != nil {
		s.rollback(log)
		s.logger.Debug("transaction rolled back",
			zap.Int("writes", len(log.entries)),
			zap.Error(err))
		return err
	}
	return nil
}

// rollback replays the undo log newest first
func (s *Store) rollback(log *txLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(log.entries) - 1; i >= 0; i-- {
		e := log.entries[i]
		c, ok := s.collections[e.collection]
		if !ok {
			continue
		}
		switch {
		case e.removedAt >= 0:
			c.docs[e.key] = e.prev
			c.insertAt(e.removedAt, e.key)
		case e.prev == nil:
			c.remove(e.key)
		default:
			c.docs[e.key] = e.prev
		}
		if e.created && len(c.docs) == 0 {
			delete(s.collections, e.collection)
		}
	}
}

// Ping always succeeds for the in-memory store
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for the in-memory store
func (s *Store) Close() error {
	return nil
}
