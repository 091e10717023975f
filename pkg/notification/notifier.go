package notification

import (
	"context"
	"errors"
	"time"
)

// Severity colors used by reports and alerts
const (
	ColorRed   = 0xFF0000
	ColorAmber = 0xFFA500
	ColorGreen = 0x00FF00
)

var ErrNotConfigured = errors.New("notification channel not configured")

// Field is a single name/value line of a notification
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Message is a structured notification
type Message struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Timestamp   time.Time
}

// Notifier delivers messages to an external channel
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Fanout delivers a message to every notifier and joins their errors
type Fanout []Notifier

// NewFanout drops nil notifiers
func NewFanout(notifiers ...Notifier) Fanout {
	f := make(Fanout, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			f = append(f, n)
		}
	}
	return f
}

func (f Fanout) Send(ctx context.Context, msg Message) error {
	if len(f) == 0 {
		return ErrNotConfigured
	}
	var errs []error
	for _, n := range f {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
