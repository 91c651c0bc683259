package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/waqf-policy-engine/internal/observability"
	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
	"go.uber.org/zap"
)

func pass(calls *[]string, name string) WriteCheck {
	return func(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
		*calls = append(*calls, name)
		return nil, nil
	}
}

func reject(calls *[]string, name string, errType services.ErrorType) WriteCheck {
	return func(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
		*calls = append(*calls, name)
		return []services.Violation{services.NewViolation(errType, "", name+" rejected")}, nil
	}
}

func writeReq(collection string) *WriteRequest {
	return &WriteRequest{
		Collection: collection,
		Key:        "k1",
		Proposed:   &models.Document{Key: "k1", Data: []byte(`{}`)},
		Caller:     "u1",
	}
}

func TestEngine_AssertWriteShortCircuits(t *testing.T) {
	var calls []string
	e := NewEngine(nil, zap.NewNop())
	e.OnWrite([]string{"things"},
		pass(&calls, "structure"),
		reject(&calls, "permission", services.ErrorTypePermissionDenied),
		pass(&calls, "invariant"),
	)

	err := e.AssertWrite(context.Background(), writeReq("things"))
	require.Error(t, err)
	assert.True(t, services.IsPermissionError(err))
	assert.Equal(t, "permission rejected", err.Error())
	assert.Equal(t, []string{"structure", "permission"}, calls)
}

func TestEngine_AssertWriteAccepts(t *testing.T) {
	var calls []string
	e := NewEngine(nil, zap.NewNop())
	e.OnWrite([]string{"a", "b"}, pass(&calls, "shared"))
	e.OnWrite([]string{"a"}, pass(&calls, "only-a"))

	require.NoError(t, e.AssertWrite(context.Background(), writeReq("a")))
	require.NoError(t, e.AssertWrite(context.Background(), writeReq("b")))
	assert.Equal(t, []string{"shared", "only-a", "shared"}, calls)
}

func TestEngine_UnregisteredCollection(t *testing.T) {
	e := NewEngine(nil, zap.NewNop())
	e.OnWrite([]string{"known"}, func(context.Context, *WriteRequest) ([]services.Violation, error) { return nil, nil })

	assert.True(t, e.Handles("known"))
	assert.False(t, e.Handles("unknown"))
	assert.NoError(t, e.AssertWrite(context.Background(), writeReq("unknown")))
	assert.Equal(t, []string{"known"}, e.Collections())
}

func TestEngine_CheckErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unclassified error is a store failure", func(t *testing.T) {
		e := NewEngine(nil, zap.NewNop())
		e.OnWrite([]string{"c"}, func(context.Context, *WriteRequest) ([]services.Violation, error) {
			return nil, errors.New("connection refused")
		})
		err := e.AssertWrite(ctx, writeReq("c"))
		assert.True(t, services.IsStoreUnavailableError(err))
		assert.False(t, services.IsPolicyRejection(err))
	})

	t.Run("classified error passes through", func(t *testing.T) {
		e := NewEngine(nil, zap.NewNop())
		e.OnDelete([]string{"c"}, func(context.Context, *DeleteRequest) ([]services.Violation, error) {
			return nil, services.WrapInternal("stored record cannot be decoded", errors.New("bad json"))
		})
		err := e.AssertDelete(ctx, &DeleteRequest{Collection: "c", Key: "k"})
		assert.True(t, services.IsInternalError(err))
	})
}

func TestEngine_AssertDelete(t *testing.T) {
	e := NewEngine(nil, zap.NewNop())
	e.OnDelete([]string{"c"}, func(ctx context.Context, req *DeleteRequest) ([]services.Violation, error) {
		if req.Caller == "owner" {
			return nil, nil
		}
		return []services.Violation{services.NewViolation(services.ErrorTypePermissionDenied, "", "not yours")}, nil
	})

	assert.NoError(t, e.AssertDelete(context.Background(), &DeleteRequest{Collection: "c", Key: "k", Caller: "owner"}))
	err := e.AssertDelete(context.Background(), &DeleteRequest{Collection: "c", Key: "k", Caller: "other"})
	assert.True(t, services.IsPermissionError(err))
}

func TestEngine_OnCommittedRunsEveryReactor(t *testing.T) {
	metrics := observability.NewMetrics()
	e := NewEngine(metrics, zap.NewNop())

	var ran []string
	e.OnCommit([]string{"c"},
		func(context.Context, *CommitEvent) error { ran = append(ran, "first"); return errors.New("audit down") },
		func(context.Context, *CommitEvent) error { ran = append(ran, "second"); return nil },
		func(context.Context, *CommitEvent) error { ran = append(ran, "third"); return errors.New("notify down") },
	)

	err := e.OnCommitted(context.Background(), &CommitEvent{Collection: "c", Key: "k", Operation: OperationWrite})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit down")
	assert.Contains(t, err.Error(), "notify down")
	assert.Equal(t, []string{"first", "second", "third"}, ran)

	count, cerr := testutil.GatherAndCount(metrics.Registry(), "policy_reactor_failures_total")
	require.NoError(t, cerr)
	assert.Equal(t, 1, count)
}

func TestEngine_ObservesDecisions(t *testing.T) {
	metrics := observability.NewMetrics()
	e := NewEngine(metrics, zap.NewNop())
	var calls []string
	e.OnWrite([]string{"c"}, reject(&calls, "quota", services.ErrorTypeQuotaViolation))

	_ = e.AssertWrite(context.Background(), writeReq("c"))
	_ = e.AssertWrite(context.Background(), writeReq("other"))

	count, err := testutil.GatherAndCount(metrics.Registry(), "policy_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
