// Package documents is the guarded write pipeline: every mutation is asserted
// by the policy engine, committed to the store, then handed to the reactors.
package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/upb/waqf-policy-engine/internal/shared"
	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/services/policy"
	"go.uber.org/zap"
)

// WriteInput is a proposed create or update
type WriteInput struct {
	Collection string
	Key        string
	Data       json.RawMessage
	// Version is the version the caller last read. Zero skips the check.
	Version int64
	Caller  string
	Headers map[string]string
}

// DeleteInput is a proposed delete
type DeleteInput struct {
	Collection string
	Key        string
	Version    int64
	Caller     string
	Headers    map[string]string
}

// Service runs mutations through the policy engine
type Service struct {
	store  repositories.DocumentStore
	engine *policy.Engine
	logger *zap.Logger
}

// NewService creates a new Service instance
func NewService(store repositories.DocumentStore, engine *policy.Engine, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		engine: engine,
		logger: logger,
	}
}

// Governs reports whether the collection has a policy
func (s *Service) Governs(collection string) bool {
	return s.engine.Handles(collection)
}

// Get reads a single document
func (s *Service) Get(ctx context.Context, collection, key string) (*models.Document, error) {
	return s.store.Get(ctx, collection, key)
}

// List reads the documents of a collection matching the filter
func (s *Service) List(ctx context.Context, collection string, filter repositories.ListFilter) ([]*models.Document, error) {
	return s.store.List(ctx, collection, filter)
}

// Write asserts and commits a document, then runs the reactors. When a
// reactor fails the committed document is returned with a reactor_failed
// error; nothing is rolled back.
func (s *Service) Write(ctx context.Context, in WriteInput) (*models.Document, error) {
	if err := checkInput(in.Collection, in.Key, in.Caller); err != nil {
		return nil, err
	}
	if err := checkData(in.Data); err != nil {
		return nil, err
	}
	ctx = shared.WithHeaders(ctx, in.Headers)

	var previous *models.Document
	stored, err := services.WithTransactionResult(ctx, s.store, func(ctx context.Context) (*models.Document, error) {
		req, err := s.writeRequest(ctx, in)
		if err != nil {
			return nil, err
		}
		if err := s.engine.AssertWrite(ctx, req); err != nil {
			return nil, err
		}
		previous = req.Previous
		return s.store.Put(ctx, in.Collection, req.Proposed)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document written",
		zap.String("collection", in.Collection),
		zap.String("key", in.Key),
		zap.Int64("version", stored.Version),
		zap.String("caller", in.Caller))

	err = s.engine.OnCommitted(ctx, &policy.CommitEvent{
		Collection: in.Collection,
		Key:        in.Key,
		Operation:  policy.OperationWrite,
		Document:   stored.Clone(),
		Previous:   previous,
		Caller:     in.Caller,
	})
	if err != nil {
		return stored, services.WrapReactorError(in.Collection, err)
	}
	return stored, nil
}

// Delete asserts and removes a document, then runs the reactors
func (s *Service) Delete(ctx context.Context, in DeleteInput) error {
	if err := checkInput(in.Collection, in.Key, in.Caller); err != nil {
		return err
	}
	ctx = shared.WithHeaders(ctx, in.Headers)

	current, err := services.WithTransactionResult(ctx, s.store, func(ctx context.Context) (*models.Document, error) {
		req, err := s.deleteRequest(ctx, in)
		if err != nil {
			return nil, err
		}
		if err := s.engine.AssertDelete(ctx, req); err != nil {
			return nil, err
		}
		if err := s.store.Delete(ctx, in.Collection, in.Key, req.Current.Version); err != nil {
			return nil, err
		}
		return req.Current, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("document deleted",
		zap.String("collection", in.Collection),
		zap.String("key", in.Key),
		zap.String("caller", in.Caller))

	err = s.engine.OnCommitted(ctx, &policy.CommitEvent{
		Collection: in.Collection,
		Key:        in.Key,
		Operation:  policy.OperationDelete,
		Previous:   current,
		Caller:     in.Caller,
	})
	if err != nil {
		return services.WrapReactorError(in.Collection, err)
	}
	return nil
}

// AssertWrite runs the write checks without committing anything
func (s *Service) AssertWrite(ctx context.Context, in WriteInput) error {
	if err := checkInput(in.Collection, in.Key, in.Caller); err != nil {
		return err
	}
	if err := checkData(in.Data); err != nil {
		return err
	}
	req, err := s.writeRequest(ctx, in)
	if err != nil {
		return err
	}
	return s.engine.AssertWrite(ctx, req)
}

// AssertDelete runs the delete checks without removing anything
func (s *Service) AssertDelete(ctx context.Context, in DeleteInput) error {
	if err := checkInput(in.Collection, in.Key, in.Caller); err != nil {
		return err
	}
	req, err := s.deleteRequest(ctx, in)
	if err != nil {
		return err
	}
	return s.engine.AssertDelete(ctx, req)
}

// Append writes a new document built from record. Audit records reach the
// store this way, so they pass the same assertions as any other write. The
// headers of the originating request, if any, are carried along.
func (s *Service) Append(ctx context.Context, collection, key string, record interface{}, caller string) error {
	doc, err := models.NewDocument(key, record)
	if err != nil {
		return services.WrapInternal("encode "+collection+" record", err)
	}
	_, err = s.Write(ctx, WriteInput{
		Collection: collection,
		Key:        key,
		Data:       doc.Data,
		Caller:     caller,
		Headers:    shared.HeadersFromContext(ctx),
	})
	return err
}

func (s *Service) writeRequest(ctx context.Context, in WriteInput) (*policy.WriteRequest, error) {
	previous, err := s.current(ctx, in.Collection, in.Key)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(in.Version, previous); err != nil {
		return nil, err
	}

	proposed := &models.Document{Key: in.Key, Data: in.Data}
	if previous != nil {
		proposed.Version = previous.Version
	}
	return &policy.WriteRequest{
		Collection: in.Collection,
		Key:        in.Key,
		Proposed:   proposed,
		Previous:   previous,
		Caller:     in.Caller,
		Headers:    in.Headers,
	}, nil
}

func (s *Service) deleteRequest(ctx context.Context, in DeleteInput) (*policy.DeleteRequest, error) {
	current, err := s.current(ctx, in.Collection, in.Key)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, services.ErrDocumentNotFound
	}
	if err := checkVersion(in.Version, current); err != nil {
		return nil, err
	}
	return &policy.DeleteRequest{
		Collection: in.Collection,
		Key:        in.Key,
		Current:    current,
		Caller:     in.Caller,
		Headers:    in.Headers,
	}, nil
}

// current returns the stored document, or nil when there is none
func (s *Service) current(ctx context.Context, collection, key string) (*models.Document, error) {
	doc, err := s.store.Get(ctx, collection, key)
	if err != nil {
		if services.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, services.WrapStoreError("get "+collection, err)
	}
	return doc, nil
}

func checkVersion(expected int64, current *models.Document) error {
	if expected == 0 {
		return nil
	}
	if current == nil || current.Version != expected {
		return services.ErrConcurrentUpdate
	}
	return nil
}

func checkInput(collection, key, caller string) error {
	switch {
	case strings.TrimSpace(collection) == "":
		return services.NewViolationError(services.NewViolation(services.ErrorTypeStructuralInvalid, "collection", "collection is required"))
	case strings.TrimSpace(key) == "":
		return services.NewViolationError(services.NewViolation(services.ErrorTypeStructuralInvalid, "key", "key is required"))
	case strings.TrimSpace(caller) == "":
		return services.ErrUnauthorized
	}
	return nil
}

func checkData(data json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return services.NewViolationError(services.NewViolation(services.ErrorTypeStructuralInvalid, "data", "document data must be a JSON object"))
	}
	return nil
}
