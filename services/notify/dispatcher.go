package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds configuration for the Dispatcher
type Config struct {
	BufferSize      int           // Size of the alert buffer channel
	WorkerCount     int           // Number of concurrent delivery workers
	DeliveryTimeout time.Duration // Upper bound on a single delivery
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:      1000,
		WorkerCount:     2,
		DeliveryTimeout: 5 * time.Second,
	}
}

// Dispatcher hands alerts to a delivery Notifier on background workers so a
// slow paging integration never holds up a write.
type Dispatcher struct {
	delivery Notifier
	logger   *zap.Logger
	cfg      Config
	alerts   chan Alert
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
	stopped  bool
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(delivery Notifier, logger *zap.Logger, cfg Config) *Dispatcher {
	return &Dispatcher{
		delivery: delivery,
		logger:   logger,
		cfg:      cfg,
		alerts:   make(chan Alert, cfg.BufferSize),
	}
}

// Start starts the background workers
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("notification dispatcher already started")
	}
	for i := 0; i < d.cfg.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.started = true

	d.logger.Info("started notification dispatcher",
		zap.Int("worker_count", d.cfg.WorkerCount),
		zap.Int("buffer_size", d.cfg.BufferSize))
	return nil
}

// Stop drains pending alerts, waiting at most timeout
func (d *Dispatcher) Stop(timeout time.Duration) error {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return fmt.Errorf("notification dispatcher not running")
	}
	d.stopped = true
	close(d.alerts)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification dispatcher stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("notification dispatcher stop timeout after %v", timeout)
	}
}

// Notify queues the alert without blocking. A full buffer is an error so the
// caller learns the alert was dropped.
func (d *Dispatcher) Notify(ctx context.Context, severity Severity, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || d.stopped {
		return fmt.Errorf("notification dispatcher not running")
	}

	select {
	case d.alerts <- Alert{Severity: severity, Message: message}:
		return nil
	default:
		d.logger.Warn("alert buffer full, dropping alert",
			zap.String("severity", string(severity)),
			zap.String("alert", message))
		return fmt.Errorf("alert buffer full")
	}
}

// Pending returns the number of queued alerts
func (d *Dispatcher) Pending() int {
	return len(d.alerts)
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for alert := range d.alerts {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DeliveryTimeout)
		if err := d.delivery.Notify(ctx, alert.Severity, alert.Message); err != nil {
			d.logger.Error("failed to deliver alert",
				zap.Int("worker_id", id),
				zap.String("severity", string(alert.Severity)),
				zap.Error(err))
		}
		cancel()
	}
}
