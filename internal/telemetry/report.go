package telemetry

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/quocanhngo/otpwatch/pkg/notification"
	"go.uber.org/zap"
)

const (
	topEndpointLimit   = 5
	recentErrorLimit   = 5
	errorMessageLimit  = 100
	fieldValueLimit    = 1024
	redErrorThreshold  = 10
	probeTimeout       = 5 * time.Second
	unknownIP          = "unknown"
	storeConnected     = "connected"
	storeUninitialized = "not_initialized"
	smsOperational     = "operational"
)

// Severity is the report color class
type Severity string

const (
	SeverityGreen Severity = "green"
	SeverityAmber Severity = "amber"
	SeverityRed   Severity = "red"
)

// SeverityFor classifies a last-hour error count
func SeverityFor(errorsLastHour int) Severity {
	switch {
	case errorsLastHour > redErrorThreshold:
		return SeverityRed
	case errorsLastHour > 0:
		return SeverityAmber
	default:
		return SeverityGreen
	}
}

// Color returns the notification color for the severity
func (s Severity) Color() int {
	switch s {
	case SeverityRed:
		return notification.ColorRed
	case SeverityAmber:
		return notification.ColorAmber
	default:
		return notification.ColorGreen
	}
}

type Report struct {
	Timestamp       string          `json:"timestamp"`
	Status          string          `json:"status"`
	Uptime          string          `json:"uptime"`
	UptimeMs        int64           `json:"uptimeMs"`
	OutboundIP      string          `json:"outboundIp"`
	ServiceStatuses ServiceStatuses `json:"serviceStatuses"`
	Metrics         Metrics         `json:"metrics"`
	TopEndpoints    []EndpointCount `json:"topEndpoints"`
	Sources         []SourceCount   `json:"sources"`
	RecentErrors    []RecentError   `json:"recentErrors"`
	Severity        Severity        `json:"severity"`
}

type ServiceStatuses struct {
	Store string `json:"store"`
	SMS   string `json:"sms"`
}

type Metrics struct {
	Requests Counts    `json:"requests"`
	Errors   Counts    `json:"errors"`
	SMS      SMSCounts `json:"sms"`
}

type Counts struct {
	Total    int64 `json:"total"`
	LastHour int   `json:"lastHour"`
}

type SMSCounts struct {
	Sent   int64 `json:"sent"`
	Failed int64 `json:"failed"`
}

type EndpointCount struct {
	Endpoint string `json:"endpoint"`
	Count    int    `json:"count"`
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type RecentError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// BuildReport snapshots the current metrics. Probe failures are folded into
// status strings and the windows are only read.
func (m *Monitor) BuildReport(ctx context.Context) *Report {
	now := m.now()
	uptime := now.Sub(m.startTime)
	if uptime < 0 {
		uptime = 0
	}

	requests := m.requests.Entries()
	errs := m.errors.Entries()

	report := &Report{
		Timestamp:  now.UTC().Format(time.RFC3339Nano),
		Uptime:     formatUptime(uptime),
		UptimeMs:   uptime.Milliseconds(),
		OutboundIP: m.outboundIP(ctx),
		ServiceStatuses: ServiceStatuses{
			Store: m.storeStatus(ctx),
			SMS:   m.smsStatus(),
		},
		Metrics: Metrics{
			Requests: Counts{Total: m.requestsTotal.Load(), LastHour: len(requests)},
			Errors:   Counts{Total: m.errorsTotal.Load(), LastHour: len(errs)},
			SMS:      SMSCounts{Sent: m.smsSent.Load(), Failed: m.smsFailed.Load()},
		},
		TopEndpoints: topEndpoints(requests, topEndpointLimit),
		Sources:      sourceCounts(requests),
		RecentErrors: recentErrors(errs, recentErrorLimit),
		Severity:     SeverityFor(len(errs)),
	}

	report.Status = "ok"
	if report.ServiceStatuses.Store != storeConnected {
		report.Status = "degraded"
	}
	return report
}

func (m *Monitor) outboundIP(ctx context.Context) string {
	if m.prober == nil {
		return unknownIP
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	ip, err := m.prober.PublicIP(ctx)
	if err != nil || ip == "" {
		m.logger.Warn("⚠️  Failed to resolve outbound IP", zap.Error(err))
		return unknownIP
	}
	return ip
}

func (m *Monitor) storeStatus(ctx context.Context) string {
	if m.logs == nil {
		return storeUninitialized
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := m.logs.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return storeConnected
}

func (m *Monitor) smsStatus() string {
	if last := m.smsLastError.Load(); last != nil {
		return fmt.Sprintf("warning (last error: %s)", last.Message)
	}
	return smsOperational
}

func formatUptime(d time.Duration) string {
	hours := int64(d / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// topEndpoints ranks by count, ties keep first-seen order
func topEndpoints(requests []Entry[RequestRecord], limit int) []EndpointCount {
	counts := make(map[string]int)
	var order []string
	for _, r := range requests {
		if _, seen := counts[r.Value.Endpoint]; !seen {
			order = append(order, r.Value.Endpoint)
		}
		counts[r.Value.Endpoint]++
	}

	out := make([]EndpointCount, 0, len(order))
	for _, e := range order {
		out = append(out, EndpointCount{Endpoint: e, Count: counts[e]})
	}
	slices.SortStableFunc(out, func(a, b EndpointCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sourceCounts(requests []Entry[RequestRecord]) []SourceCount {
	index := make(map[string]int)
	out := make([]SourceCount, 0)
	for _, r := range requests {
		i, seen := index[r.Value.Source]
		if !seen {
			i = len(out)
			index[r.Value.Source] = i
			out = append(out, SourceCount{Source: r.Value.Source})
		}
		out[i].Count++
	}
	return out
}

func recentErrors(errs []Entry[ErrorRecord], limit int) []RecentError {
	if len(errs) > limit {
		errs = errs[len(errs)-limit:]
	}
	out := make([]RecentError, 0, len(errs))
	for _, e := range errs {
		out = append(out, RecentError{
			Type:      string(e.Value.Kind),
			Message:   truncate(e.Value.Message, errorMessageLimit),
			Timestamp: e.At.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Render formats the report as a notification message
func (r *Report) Render() notification.Message {
	fields := []notification.Field{
		{Name: "🌐 Outgoing IP", Value: r.OutboundIP, Inline: true},
		{Name: "⏱️ Uptime", Value: r.Uptime, Inline: true},
		{Name: "📊 Requests (Last Hour)", Value: fmt.Sprintf("%d requests", r.Metrics.Requests.LastHour), Inline: true},
		{Name: "🔥 Document Store", Value: r.ServiceStatuses.Store, Inline: true},
		{Name: "📱 SMS Service", Value: r.ServiceStatuses.SMS, Inline: true},
		{Name: "📤 SMS Stats", Value: fmt.Sprintf("✅ %d sent | ❌ %d failed", r.Metrics.SMS.Sent, r.Metrics.SMS.Failed), Inline: true},
	}

	if len(r.TopEndpoints) > 0 {
		lines := make([]string, len(r.TopEndpoints))
		for i, e := range r.TopEndpoints {
			lines[i] = fmt.Sprintf("`%s`: %d", e.Endpoint, e.Count)
		}
		fields = append(fields, notification.Field{Name: "🎯 Top Endpoints", Value: strings.Join(lines, "\n")})
	}

	if len(r.Sources) > 0 {
		lines := make([]string, len(r.Sources))
		for i, s := range r.Sources {
			lines[i] = fmt.Sprintf("%s: %d", s.Source, s.Count)
		}
		fields = append(fields, notification.Field{Name: "📍 Request Sources", Value: strings.Join(lines, "\n")})
	}

	if len(r.RecentErrors) > 0 {
		lines := make([]string, len(r.RecentErrors))
		for i, e := range r.RecentErrors {
			lines[i] = fmt.Sprintf("[%s] %s", e.Type, e.Message)
		}
		fields = append(fields, notification.Field{
			Name:  "⚠️ Recent Errors",
			Value: truncate(strings.Join(lines, "\n"), fieldValueLimit),
		})
	}

	ts, _ := time.Parse(time.RFC3339Nano, r.Timestamp)
	return notification.Message{
		Title:       "📊 Hourly Health Report",
		Description: "Server is running for " + r.Uptime,
		Color:       r.Severity.Color(),
		Fields:      fields,
		Timestamp:   ts,
	}
}
