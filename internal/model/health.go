package model

import "time"

// HealthLogType distinguishes persisted health log entries
type HealthLogType string

const (
	HealthLogHourlyReport  HealthLogType = "hourly_report"
	HealthLogCriticalAlert HealthLogType = "critical_alert"
)

// HealthLogEntry is a persisted hourly report or critical alert
type HealthLogEntry struct {
	ID        string         `json:"-" firestore:"-"`
	Type      HealthLogType  `json:"type" firestore:"type"`
	Data      map[string]any `json:"data" firestore:"data"`
	Timestamp int64          `json:"timestamp" firestore:"timestamp"` // unix millis, range-queried by the purge job
	CreatedAt time.Time      `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// ErrorKind classifies observed errors
type ErrorKind string

const (
	ErrorKindClient             ErrorKind = "client_error"
	ErrorKindServer             ErrorKind = "server_error"
	ErrorKindSMSSendFailure     ErrorKind = "sms_send_failure"
	ErrorKindStoreConnection    ErrorKind = "store_connection_error"
	ErrorKindAPIOutage          ErrorKind = "api_outage"
	ErrorKindServiceUnavailable ErrorKind = "service_unavailable"
)

// ErrorContext is the closed set of fields attached to an observed error
type ErrorContext struct {
	Endpoint       string `json:"endpoint,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	Reason         string `json:"reason,omitempty"`
	StatusCode     int    `json:"statusCode,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs,omitempty"`
}

// IsZero reports whether no context field is set
func (c ErrorContext) IsZero() bool {
	return c == ErrorContext{}
}

// RequestMetadata is attached to every observed request
type RequestMetadata struct {
	UserAgent string `json:"userAgent,omitempty"`
	Referer   string `json:"referer,omitempty"`
}
