// Package telemetry observes the service's own request, error and SMS
// outcomes, builds health reports from them and purges old health logs.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/pkg/notification"
	"github.com/quocanhngo/otpwatch/pkg/storage"
	"go.uber.org/zap"
)

// PurgeBatchSize is the largest number of health logs removed per purge run
const PurgeBatchSize = 500

// Alerter escalates critical error kinds
type Alerter interface {
	IsCritical(kind model.ErrorKind) bool
	RaiseCriticalAlert(ctx context.Context, kind model.ErrorKind, err error, ec model.ErrorContext)
}

// IPProber resolves the outbound public IP address
type IPProber interface {
	PublicIP(ctx context.Context) (string, error)
}

// HealthLogStore persists and purges health log entries
type HealthLogStore interface {
	Append(ctx context.Context, logType model.HealthLogType, payload any, timestampMs int64) (string, error)
	ListOlderThan(ctx context.Context, cutoffMs int64, limit int) ([]model.HealthLogEntry, error)
	DeleteBatch(ctx context.Context, ids []string) error
	Ping(ctx context.Context) error
}

// RequestRecord is one observed request
type RequestRecord struct {
	Endpoint string
	Source   string
	Metadata model.RequestMetadata
}

// ErrorRecord is one observed error
type ErrorRecord struct {
	Kind    model.ErrorKind
	Message string
	Context model.ErrorContext
}

type smsFailure struct {
	Message string
	At      time.Time
}

// Config wires a Monitor's collaborators. Only Logger is required.
type Config struct {
	Logs      HealthLogStore
	Alerter   Alerter
	Notifier  notification.Notifier
	Prober    IPProber
	Archiver  storage.Archiver
	Retention time.Duration
	Logger    *zap.Logger
	Now       func() time.Time
}

// Monitor is the single owned metrics aggregate shared by every request path
type Monitor struct {
	logs      HealthLogStore
	alerter   Alerter
	notifier  notification.Notifier
	prober    IPProber
	archiver  storage.Archiver
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
	startTime time.Time

	requestsTotal atomic.Int64
	errorsTotal   atomic.Int64
	smsSent       atomic.Int64
	smsFailed     atomic.Int64
	smsLastError  atomic.Pointer[smsFailure]

	requests *Window[RequestRecord]
	errors   *Window[ErrorRecord]
}

func NewMonitor(cfg Config) *Monitor {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	return &Monitor{
		logs:      cfg.Logs,
		alerter:   cfg.Alerter,
		notifier:  cfg.Notifier,
		prober:    cfg.Prober,
		archiver:  cfg.Archiver,
		retention: retention,
		logger:    logger,
		now:       now,
		startTime: now(),
		requests:  NewWindow[RequestRecord](DefaultSpan),
		errors:    NewWindow[ErrorRecord](DefaultSpan),
	}
}

// ObserveRequest counts an incoming request
func (m *Monitor) ObserveRequest(endpoint, source string, meta model.RequestMetadata) {
	m.requestsTotal.Add(1)
	m.requests.Record(m.now(), RequestRecord{
		Endpoint: endpoint,
		Source:   source,
		Metadata: meta,
	})
}

// ObserveError counts an error and escalates it synchronously when its kind is critical
func (m *Monitor) ObserveError(ctx context.Context, kind model.ErrorKind, err error, ec model.ErrorContext) {
	if err == nil {
		err = errors.New("unknown error")
	}

	m.errorsTotal.Add(1)
	m.errors.Record(m.now(), ErrorRecord{
		Kind:    kind,
		Message: err.Error(),
		Context: ec,
	})

	if m.alerter != nil && m.alerter.IsCritical(kind) {
		m.alerter.RaiseCriticalAlert(ctx, kind, err, ec)
	}
}

// ObserveSms counts an SMS outcome; a failure is also observed as sms_send_failure
func (m *Monitor) ObserveSms(ctx context.Context, success bool, err error, ec model.ErrorContext) {
	if success {
		m.smsSent.Add(1)
		return
	}

	if err == nil {
		err = errors.New("sms gateway rejected the message")
	}
	m.smsFailed.Add(1)
	m.smsLastError.Store(&smsFailure{Message: err.Error(), At: m.now()})
	m.ObserveError(ctx, model.ErrorKindSMSSendFailure, err, ec)
}

// EmitHourlyReport builds, sends and persists the hourly report
func (m *Monitor) EmitHourlyReport(ctx context.Context) (*Report, error) {
	report := m.BuildReport(ctx)

	var errs []error
	if m.notifier != nil {
		if err := m.notifier.Send(ctx, report.Render()); err != nil {
			m.logger.Warn("⚠️  Failed to send hourly report", zap.Error(err))
			errs = append(errs, fmt.Errorf("send report: %w", err))
		}
	}

	if m.logs != nil {
		if _, err := m.logs.Append(ctx, model.HealthLogHourlyReport, report, m.now().UnixMilli()); err != nil {
			m.logger.Error("❌ Failed to persist hourly report", zap.Error(err))
			errs = append(errs, fmt.Errorf("persist report: %w", err))
		}
	}

	m.logger.Info("📊 Hourly health report emitted",
		zap.String("severity", string(report.Severity)),
		zap.Int("requestsLastHour", report.Metrics.Requests.LastHour),
		zap.Int("errorsLastHour", report.Metrics.Errors.LastHour),
	)
	return report, errors.Join(errs...)
}

// PurgeOldLogs deletes one batch of health logs older than the retention
// window and returns how many were removed. When an archiver is configured
// the batch is uploaded first and nothing is deleted if the upload fails.
func (m *Monitor) PurgeOldLogs(ctx context.Context) (int, error) {
	if m.logs == nil {
		m.logger.Warn("⚠️  Health log store not initialized, skipping purge")
		return 0, nil
	}

	now := m.now()
	cutoff := now.Add(-m.retention).UnixMilli()
	old, err := m.logs.ListOlderThan(ctx, cutoff, PurgeBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list old health logs: %w", err)
	}
	if len(old) == 0 {
		m.logger.Info("🧹 No old health logs to purge")
		return 0, nil
	}

	if m.archiver != nil {
		key := fmt.Sprintf("health_logs/%s-%d.json", now.UTC().Format("20060102T150405Z"), len(old))
		if err := m.archiver.PutJSON(ctx, key, old); err != nil {
			return 0, fmt.Errorf("archive health logs: %w", err)
		}
		m.logger.Info("📦 Archived health logs", zap.String("key", key), zap.Int("count", len(old)))
	}

	ids := make([]string, len(old))
	for i, e := range old {
		ids[i] = e.ID
	}
	if err := m.logs.DeleteBatch(ctx, ids); err != nil {
		return 0, fmt.Errorf("delete health logs: %w", err)
	}

	m.logger.Info("🧹 Purged old health logs", zap.Int("count", len(ids)))
	return len(ids), nil
}

// StartTime is when the monitor began observing
func (m *Monitor) StartTime() time.Time {
	return m.startTime
}
