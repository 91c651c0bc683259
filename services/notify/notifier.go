// Package notify delivers operator alerts raised by the policy engine.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Severity ranks an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notifier is the outbound alerting port. Delivery is fire-and-forget: a nil
// error means the alert was accepted, not that anyone has seen it.
type Notifier interface {
	Notify(ctx context.Context, severity Severity, message string) error
}

// LogNotifier writes alerts to the structured log. It stands in for a
// paging integration.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier instance
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the alert at a level matching its severity
func (n *LogNotifier) Notify(ctx context.Context, severity Severity, message string) error {
	fields := []zap.Field{zap.String("severity", string(severity)), zap.String("alert", message)}
	switch severity {
	case SeverityCritical:
		n.logger.Error("operator alert", fields...)
	case SeverityWarning:
		n.logger.Warn("operator alert", fields...)
	case SeverityInfo:
		n.logger.Info("operator alert", fields...)
	default:
		n.logger.Info("operator alert", fields...)
	}
	return nil
}

// Alert is a delivered notification
type Alert struct {
	Severity Severity
	Message  string
}

// Recorder keeps every alert in memory
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent Notify calls return err
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Notify records the alert
func (r *Recorder) Notify(ctx context.Context, severity Severity, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.alerts = append(r.alerts, Alert{Severity: severity, Message: message})
	return nil
}

// Alerts returns a copy of the recorded alerts
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}
