// Package alert escalates critical errors to operators.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/pkg/notification"
	"github.com/quocanhngo/otpwatch/pkg/sms"
	"go.uber.org/zap"
)

const (
	defaultTimeout  = 20 * time.Second
	contextValueMax = 1024
)

var criticalKinds = map[model.ErrorKind]bool{
	model.ErrorKindSMSSendFailure:     true,
	model.ErrorKindStoreConnection:    true,
	model.ErrorKindAPIOutage:          true,
	model.ErrorKindServiceUnavailable: true,
}

// IsCritical reports whether an error kind warrants an operator alert
func IsCritical(kind model.ErrorKind) bool {
	return criticalKinds[kind]
}

// SMSSender delivers the administrator SMS
type SMSSender interface {
	Send(ctx context.Context, number, message string) (*sms.Result, error)
}

// AlertLog persists raised alerts
type AlertLog interface {
	Append(ctx context.Context, logType model.HealthLogType, payload any, timestampMs int64) (string, error)
}

// Config wires a Dispatcher
type Config struct {
	Notifier   notification.Notifier
	SMS        SMSSender
	Logs       AlertLog
	AdminPhone string
	Timeout    time.Duration
	Cooldown   time.Duration
	Logger     *zap.Logger
	Now        func() time.Time
}

// Dispatcher sends critical alerts to the notification channel, the
// administrator phone and the health log
type Dispatcher struct {
	notifier   notification.Notifier
	sms        SMSSender
	logs       AlertLog
	adminPhone string
	timeout    time.Duration
	cooldown   time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	lastSent map[model.ErrorKind]time.Time

	pending sync.WaitGroup
}

type alertRecord struct {
	ErrorType model.ErrorKind    `json:"errorType"`
	Message   string             `json:"message"`
	Context   model.ErrorContext `json:"context"`
	Timestamp int64              `json:"timestamp"`
	Notified  bool               `json:"notified"`
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dispatcher{
		notifier:   cfg.Notifier,
		sms:        cfg.SMS,
		logs:       cfg.Logs,
		adminPhone: cfg.AdminPhone,
		timeout:    cfg.Timeout,
		cooldown:   cfg.Cooldown,
		logger:     cfg.Logger,
		now:        cfg.Now,
		lastSent:   make(map[model.ErrorKind]time.Time),
	}
}

func (d *Dispatcher) IsCritical(kind model.ErrorKind) bool {
	return IsCritical(kind)
}

// RaiseCriticalAlert never fails the caller. Delivery problems are logged and
// the alert is persisted regardless of whether it was delivered.
func (d *Dispatcher) RaiseCriticalAlert(ctx context.Context, kind model.ErrorKind, err error, ec model.ErrorContext) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	now := d.now()
	d.logger.Error("🚨 [CRITICAL ALERT]",
		zap.String("type", string(kind)),
		zap.String("message", message),
		zap.Any("context", ec),
	)

	notify := d.acquire(kind, now)
	if notify {
		d.notify(ctx, d.render(kind, message, ec, now))
		d.goAdminSMS(ctx, kind, message)
	} else {
		d.logger.Info("🔕 Alert suppressed by cooldown", zap.String("type", string(kind)))
	}

	if d.logs == nil {
		return
	}
	record := alertRecord{
		ErrorType: kind,
		Message:   message,
		Context:   ec,
		Timestamp: now.UnixMilli(),
		Notified:  notify,
	}
	if _, err := d.logs.Append(ctx, model.HealthLogCriticalAlert, record, now.UnixMilli()); err != nil {
		d.logger.Error("❌ Failed to persist critical alert", zap.Error(err))
	}
}

// acquire reports whether an alert of kind may be delivered now and records it
func (d *Dispatcher) acquire(kind model.ErrorKind, now time.Time) bool {
	if d.cooldown <= 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.lastSent[kind]; ok && now.Sub(last) < d.cooldown {
		return false
	}
	d.lastSent[kind] = now
	return true
}

func (d *Dispatcher) notify(ctx context.Context, msg notification.Message) {
	if d.notifier == nil {
		d.logger.Warn("⚠️  No notification channel configured, alert not sent")
		return
	}
	if err := d.notifier.Send(ctx, msg); err != nil {
		d.logger.Warn("⚠️  Failed to send alert notification", zap.Error(err))
	}
}

// Wait blocks until in-flight administrator SMS sends finish or ctx is done
func (d *Dispatcher) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		d.logger.Warn("⚠️  Stopped waiting for admin SMS alerts")
	}
}

// goAdminSMS sends the administrator SMS off the caller's path, under its own deadline
func (d *Dispatcher) goAdminSMS(ctx context.Context, kind model.ErrorKind, message string) {
	if d.adminPhone == "" || d.sms == nil {
		return
	}
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		d.sendAdminSMS(ctx, kind, message)
	}()
}

func (d *Dispatcher) sendAdminSMS(ctx context.Context, kind model.ErrorKind, message string) {

	text := fmt.Sprintf("[OTP Server Alert] %s: %s", kind, message)
	res, err := d.sms.Send(ctx, d.adminPhone, text)
	switch {
	case err != nil:
		d.logger.Warn("⚠️  Failed to send SMS alert", zap.Error(err))
	case !res.Success:
		d.logger.Warn("⚠️  SMS alert rejected by gateway", zap.String("response", res.ProviderResponse))
	}
}

func (d *Dispatcher) render(kind model.ErrorKind, message string, ec model.ErrorContext, now time.Time) notification.Message {
	fields := []notification.Field{
		{Name: "Error Type", Value: string(kind), Inline: true},
		{Name: "Timestamp", Value: now.UTC().Format(time.RFC3339), Inline: true},
		{Name: "Error Message", Value: message},
	}

	if !ec.IsZero() {
		raw, _ := json.MarshalIndent(ec, "", "  ")
		value := string(raw)
		if len(value) > contextValueMax {
			value = value[:contextValueMax]
		}
		fields = append(fields, notification.Field{Name: "Context", Value: value})
	}

	return notification.Message{
		Title:       "🚨 CRITICAL ERROR ALERT",
		Description: "A critical error has occurred in the OTP server",
		Color:       notification.ColorRed,
		Fields:      fields,
		Timestamp:   now,
	}
}
