// Package invariant enforces the rules that span several documents: role
// headcounts, approval quorums, audit rate limits, and the time and device
// gates.
//
// Every check here reads the store and then decides. Nothing makes the read
// atomic with the write it gates unless the caller runs both inside a store
// transaction; without one, concurrent writers can each observe a count
// before the other's write and both pass.
package invariant

import (
	"context"

	"github.com/upb/waqf-policy-engine/config"
	"github.com/upb/waqf-policy-engine/internal/shared"
	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/services"
	"go.uber.org/zap"
)

// Reader is the read side of the document store
type Reader interface {
	Get(ctx context.Context, collection, key string) (*models.Document, error)
	List(ctx context.Context, collection string, filter repositories.ListFilter) ([]*models.Document, error)
}

// Checker runs the cross-document checks
type Checker struct {
	store  Reader
	clock  shared.Clock
	cfg    config.PolicyConfig
	logger *zap.Logger
}

// NewChecker creates a new Checker instance
func NewChecker(store Reader, clock shared.Clock, cfg config.PolicyConfig, logger *zap.Logger) *Checker {
	return &Checker{
		store:  store,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Config returns the limits the checker enforces
func (c *Checker) Config() config.PolicyConfig {
	return c.cfg
}

// LoadAdmin reads and decodes an admin record. It returns nil, nil when the
// admin does not exist.
func (c *Checker) LoadAdmin(ctx context.Context, key string) (*models.AdminUser, error) {
	doc, err := c.store.Get(ctx, models.CollectionAdmins, key)
	if err != nil {
		if services.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, services.WrapStoreError("load admin "+key, err)
	}

	var admin models.AdminUser
	if err := doc.Decode(&admin); err != nil {
		// An undecodable record grants nothing.
		c.logger.Warn("stored admin record cannot be decoded",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, nil
	}
	return &admin, nil
}

func (c *Checker) list(ctx context.Context, collection string, filter repositories.ListFilter) ([]*models.Document, error) {
	docs, err := c.store.List(ctx, collection, filter)
	if err != nil {
		return nil, services.WrapStoreError("list "+collection, err)
	}
	return docs, nil
}

// Store returns the reader the checker queries
func (c *Checker) Store() Reader {
	return c.store
}
