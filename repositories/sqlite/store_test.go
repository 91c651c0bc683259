package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/repositories/sqldoc"
	"github.com/upb/waqf-policy-engine/services"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *sqldoc.Repository {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "policy.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func put(t *testing.T, repo *sqldoc.Repository, collection, key, data string) *models.Document {
	t.Helper()
	stored, err := repo.Put(context.Background(), collection, &models.Document{Key: key, Data: json.RawMessage(data)})
	require.NoError(t, err)
	return stored
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t)

	stored := put(t, repo, "causes", "c1", `{"title":"Clean water","goalAmount":5000}`)
	assert.Equal(t, int64(1), stored.Version)

	got, err := repo.Get(ctx, "causes", "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Clean water","goalAmount":5000}`, string(got.Data))
	assert.Equal(t, stored.Version, got.Version)

	_, err = repo.Get(ctx, "causes", "c2")
	assert.True(t, services.IsNotFoundError(err))
}

func TestStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t)

	put(t, repo, "admin_audit", "a1", `{"performedBy":"u1","timestamp":1000}`)
	put(t, repo, "admin_audit", "a2", `{"performedBy":"u2","timestamp":2000}`)
	put(t, repo, "admin_audit", "a3", `{"performedBy":"u1","timestamp":3000}`)
	put(t, repo, "admins", "u1", `{"performedBy":"u1","timestamp":9000}`)

	docs, err := repo.List(ctx, "admin_audit", repositories.Where("performedBy", "u1").Since("timestamp", 2000))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a3", docs[0].Key)

	all, err := repo.List(ctx, "admin_audit", repositories.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "a1", all[0].Key)
}

func TestStore_Versioning(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t)
	put(t, repo, "waqfs", "w1", `{"status":"active"}`)

	_, err := repo.Put(ctx, "waqfs", &models.Document{Key: "w1", Data: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, services.ErrConcurrentUpdate)

	updated, err := repo.Put(ctx, "waqfs", &models.Document{Key: "w1", Data: json.RawMessage(`{"status":"paused"}`), Version: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	_, err = repo.Put(ctx, "waqfs", &models.Document{Key: "w1", Data: json.RawMessage(`{}`), Version: 1})
	assert.ErrorIs(t, err, services.ErrConcurrentUpdate)

	assert.ErrorIs(t, repo.Delete(ctx, "waqfs", "w1", 1), services.ErrConcurrentUpdate)
	require.NoError(t, repo.Delete(ctx, "waqfs", "w1", 2))
	assert.True(t, services.IsNotFoundError(repo.Delete(ctx, "waqfs", "w1", 0)))
}

func TestStore_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t)

	boom := errors.New("boom")
	err := repo.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.Put(ctx, "admins", &models.Document{Key: "u9", Data: json.RawMessage(`{}`)}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Get(ctx, "admins", "u9")
	assert.True(t, services.IsNotFoundError(err))
}

func TestStore_Ping(t *testing.T) {
	repo := openTestStore(t)
	assert.NoError(t, repo.Ping(context.Background()))
}
