package postgres

import (
	"context"

	"github.com/upb/waqf-policy-engine/config"
	"github.com/upb/waqf-policy-engine/repositories/sqldoc"
	"go.uber.org/zap"
)

// Open connects to PostgreSQL, ensures the schema and returns the document store
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*sqldoc.Repository, error) {
	db, err := NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo := sqldoc.NewRepository(db, Dialect, logger)
	if err := repo.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}
