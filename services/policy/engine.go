// Package policy is the dispatcher of the write policy engine. Hooks are
// registered per collection: pre-commit checks that must all pass, and
// post-commit reactors that run for their side effects.
package policy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/upb/waqf-policy-engine/internal/observability"
	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
	"go.uber.org/zap"
)

// Operation names a kind of mutation
type Operation string

const (
	OperationWrite  Operation = "write"
	OperationDelete Operation = "delete"
)

// WriteRequest is a proposed create or update
type WriteRequest struct {
	Collection string
	Key        string
	Proposed   *models.Document
	Previous   *models.Document // nil on create
	Caller     string
	Headers    map[string]string
}

// IsCreate reports whether no prior version exists
func (r *WriteRequest) IsCreate() bool {
	return r.Previous == nil
}

// DeleteRequest is a proposed delete of an existing document
type DeleteRequest struct {
	Collection string
	Key        string
	Current    *models.Document
	Caller     string
	Headers    map[string]string
}

// CommitEvent describes a mutation the store has accepted
type CommitEvent struct {
	Collection string
	Key        string
	Operation  Operation
	Document   *models.Document // nil after a delete
	Previous   *models.Document // nil after a create
	Caller     string
}

// WriteCheck inspects a proposed write. Violations reject the write; an
// error means the check itself could not run.
type WriteCheck func(ctx context.Context, req *WriteRequest) ([]services.Violation, error)

// DeleteCheck inspects a proposed delete
type DeleteCheck func(ctx context.Context, req *DeleteRequest) ([]services.Violation, error)

// Reactor runs after a commit
type Reactor func(ctx context.Context, ev *CommitEvent) error

type hookSet struct {
	writes   []WriteCheck
	deletes  []DeleteCheck
	reactors []Reactor
}

// Engine routes mutations to the hooks registered for their collection
type Engine struct {
	mu      sync.RWMutex
	hooks   map[string]*hookSet
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewEngine creates an engine with no hooks. metrics may be nil.
func NewEngine(metrics *observability.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		hooks:   make(map[string]*hookSet),
		metrics: metrics,
		logger:  logger,
	}
}

func (e *Engine) set(collection string) *hookSet {
	hs, ok := e.hooks[collection]
	if !ok {
		hs = &hookSet{}
		e.hooks[collection] = hs
	}
	return hs
}

// OnWrite appends pre-commit write checks for the collections
func (e *Engine) OnWrite(collections []string, checks ...WriteCheck) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range collections {
		hs := e.set(c)
		hs.writes = append(hs.writes, checks...)
	}
}

// OnDelete appends pre-commit delete checks for the collections
func (e *Engine) OnDelete(collections []string, checks ...DeleteCheck) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range collections {
		hs := e.set(c)
		hs.deletes = append(hs.deletes, checks...)
	}
}

// OnCommit appends post-commit reactors for the collections
func (e *Engine) OnCommit(collections []string, reactors ...Reactor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range collections {
		hs := e.set(c)
		hs.reactors = append(hs.reactors, reactors...)
	}
}

// Handles reports whether any hook is registered for the collection
func (e *Engine) Handles(collection string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.hooks[collection]
	return ok
}

// Collections returns the collections with registered hooks
func (e *Engine) Collections() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.hooks))
	for c := range e.hooks {
		out = append(out, c)
	}
	return out
}

func (e *Engine) snapshot(collection string) hookSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	hs, ok := e.hooks[collection]
	if !ok {
		return hookSet{}
	}
	return hookSet{
		writes:   append([]WriteCheck(nil), hs.writes...),
		deletes:  append([]DeleteCheck(nil), hs.deletes...),
		reactors: append([]Reactor(nil), hs.reactors...),
	}
}

// AssertWrite runs the collection's write checks in registration order and
// returns the first rejection unchanged.
func (e *Engine) AssertWrite(ctx context.Context, req *WriteRequest) (err error) {
	start := time.Now()
	defer func() { e.observe(req.Collection, OperationWrite, req.Key, req.Caller, err, start) }()

	for _, check := range e.snapshot(req.Collection).writes {
		violations, cerr := check(ctx, req)
		if cerr != nil {
			return checkFailure("assert "+req.Collection+" write", cerr)
		}
		if len(violations) > 0 {
			return services.NewViolationError(violations...)
		}
	}
	return nil
}

// AssertDelete runs the collection's delete checks in registration order
func (e *Engine) AssertDelete(ctx context.Context, req *DeleteRequest) (err error) {
	start := time.Now()
	defer func() { e.observe(req.Collection, OperationDelete, req.Key, req.Caller, err, start) }()

	for _, check := range e.snapshot(req.Collection).deletes {
		violations, cerr := check(ctx, req)
		if cerr != nil {
			return checkFailure("assert "+req.Collection+" delete", cerr)
		}
		if len(violations) > 0 {
			return services.NewViolationError(violations...)
		}
	}
	return nil
}

// OnCommitted runs every reactor of the collection. All reactors run even
// when one fails; the failures are joined into the returned error.
func (e *Engine) OnCommitted(ctx context.Context, ev *CommitEvent) error {
	var errs []error
	for _, react := range e.snapshot(ev.Collection).reactors {
		if err := react(ctx, ev); err != nil {
			e.logger.Error("post-commit reactor failed",
				zap.String("collection", ev.Collection),
				zap.String("key", ev.Key),
				zap.String("operation", string(ev.Operation)),
				zap.Error(err))
			e.metrics.ReactorFailed(ev.Collection)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checkFailure keeps classified errors and treats anything else as a store failure
func checkFailure(op string, err error) error {
	if services.GetErrorType(err) != "" {
		return err
	}
	return services.WrapStoreError(op, err)
}

func (e *Engine) observe(collection string, op Operation, key, caller string, err error, start time.Time) {
	e.metrics.ObserveDecision(collection, string(op), err, time.Since(start))

	fields := []zap.Field{
		zap.String("collection", collection),
		zap.String("operation", string(op)),
		zap.String("key", key),
		zap.String("caller", caller),
	}
	switch {
	case err == nil:
		e.logger.Debug("mutation accepted", fields...)
	case services.IsPolicyRejection(err):
		e.logger.Info("mutation rejected", append(fields, zap.String("reason", err.Error()))...)
	default:
		e.logger.Error("policy check failed", append(fields, zap.Error(err))...)
	}
}
