package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Notify(context.Background(), SeverityCritical, "CRITICAL: role_change performed by u1 on u2"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, "CRITICAL: role_change performed by u1 on u2", entries[0].ContextMap()["alert"])
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Notify(context.Background(), SeverityWarning, "a"))

	r.FailWith(errors.New("pager down"))
	assert.Error(t, r.Notify(context.Background(), SeverityCritical, "b"))
	assert.Equal(t, []Alert{{Severity: SeverityWarning, Message: "a"}}, r.Alerts())
}

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	recorder := NewRecorder()
	d := NewDispatcher(recorder, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 2, DeliveryTimeout: time.Second})

	assert.Error(t, d.Notify(context.Background(), SeverityCritical, "before start"))

	require.NoError(t, d.Start())
	assert.Error(t, d.Start())

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Notify(context.Background(), SeverityCritical, "alert"))
	}
	require.NoError(t, d.Stop(time.Second))
	assert.Len(t, recorder.Alerts(), 5)

	assert.Error(t, d.Notify(context.Background(), SeverityCritical, "after stop"))
	assert.Error(t, d.Stop(time.Second))
}

type blockingNotifier struct {
	release chan struct{}
}

func (b *blockingNotifier) Notify(ctx context.Context, severity Severity, message string) error {
	<-b.release
	return nil
}

func TestDispatcher_FullBuffer(t *testing.T) {
	blocker := &blockingNotifier{release: make(chan struct{})}
	d := NewDispatcher(blocker, zap.NewNop(), Config{BufferSize: 1, WorkerCount: 1, DeliveryTimeout: time.Second})
	require.NoError(t, d.Start())

	// The worker takes the first alert and blocks; the second fills the buffer.
	require.NoError(t, d.Notify(context.Background(), SeverityCritical, "1"))
	require.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Notify(context.Background(), SeverityCritical, "2"))

	assert.EqualError(t, d.Notify(context.Background(), SeverityCritical, "3"), "alert buffer full")

	close(blocker.release)
	require.NoError(t, d.Stop(time.Second))
}
