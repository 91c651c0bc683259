package invariant

import (
	"context"
	"time"

	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/services"
	"go.uber.org/zap"
)

// RateLimitResult represents the outcome of an audit rate check
type RateLimitResult struct {
	Allowed bool
	Recent  int
	Limit   int
	ResetAt time.Time
}

// CheckAuditRate counts the performer's audit records in collection within
// the trailing window. Accepting one more must keep the count within the limit.
func (c *Checker) CheckAuditRate(ctx context.Context, collection, performer string) (*RateLimitResult, error) {
	now := c.clock.Now()
	cutoff := now.Add(-c.cfg.AuditRateWindow)

	docs, err := c.list(ctx, collection,
		repositories.Where("performedBy", performer).Since("timestamp", cutoff.UnixMilli()))
	if err != nil {
		return nil, err
	}

	result := &RateLimitResult{
		Allowed: len(docs)+1 <= c.cfg.AuditRateLimit,
		Recent:  len(docs),
		Limit:   c.cfg.AuditRateLimit,
		ResetAt: now.Add(c.cfg.AuditRateWindow),
	}
	return result, nil
}

// AuditTimestamp rejects an audit record whose timestamp is further than the
// configured skew from now. The rate window counts records by timestamp.
func (c *Checker) AuditTimestamp(timestamp int64) []services.Violation {
	now := c.clock.Now()
	at := time.UnixMilli(timestamp)
	skew := c.cfg.AuditClockSkew
	if !at.Before(now.Add(-skew)) && !at.After(now.Add(skew)) {
		return nil
	}
	return []services.Violation{
		services.Violationf(services.ErrorTypeStructuralInvalid, "timestamp",
			"timestamp must be within %s of the current time", skew),
	}
}

// AuditRate rejects an audit record from a performer who has exceeded the
// limit. Collections not configured for rate limiting always pass.
func (c *Checker) AuditRate(ctx context.Context, collection, performer string) ([]services.Violation, error) {
	if !c.cfg.RateLimitApplies(collection) {
		return nil, nil
	}

	result, err := c.CheckAuditRate(ctx, collection, performer)
	if err != nil {
		return nil, err
	}
	if result.Allowed {
		return nil, nil
	}

	c.logger.Warn("audit rate limit exceeded",
		zap.String("collection", collection),
		zap.String("performer", performer),
		zap.Int("recent", result.Recent),
	)
	return []services.Violation{
		services.Violationf(services.ErrorTypeRateLimited, "performedBy",
			"too many audit actions - possible abuse (%d in the last %s, limit %d)",
			result.Recent, c.cfg.AuditRateWindow, result.Limit),
	}, nil
}
