package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/quocanhngo/otpwatch/pkg/notification"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	To       []string
}

// Mailer delivers notifications as HTML email
type Mailer struct {
	config Config
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New returns nil when no host or recipients are configured
func New(cfg Config) *Mailer {
	if cfg.Host == "" || len(cfg.To) == 0 {
		return nil
	}
	return &Mailer{config: cfg, send: smtp.SendMail}
}

// Send implements notification.Notifier
func (m *Mailer) Send(ctx context.Context, msg notification.Message) error {
	if m == nil {
		return notification.ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := render(msg)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\r\n", m.config.FromName, m.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(m.config.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Title))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	buf.WriteString(body)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	// net/smtp does not take a context
	if err := m.send(addr, auth, m.config.From, m.config.To, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

var messageTemplate = template.Must(template.New("message").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
</head>
<body style="margin:0;padding:0;background-color:#0f0f23;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
    <div style="max-width:560px;margin:40px auto;background:#1a1a2e;border-radius:16px;overflow:hidden;border-top:6px solid {{.Color}};">
        <div style="padding:24px 32px;">
            <h1 style="color:#fff;margin:0;font-size:22px;">{{.Title}}</h1>
            {{if .Description}}<p style="color:#94a3b8;font-size:14px;margin:8px 0 0;">{{.Description}}</p>{{end}}
        </div>
        <div style="padding:0 32px 24px;">
            {{range .Fields}}
            <p style="color:#a78bfa;font-size:13px;font-weight:700;margin:16px 0 4px;">{{.Name}}</p>
            <pre style="color:#e2e8f0;font-size:13px;white-space:pre-wrap;margin:0;">{{.Value}}</pre>
            {{end}}
        </div>
        <div style="padding:16px 32px;border-top:1px solid rgba(99,102,241,0.1);">
            <p style="color:#475569;font-size:12px;margin:0;">{{.Timestamp}}</p>
        </div>
    </div>
</body>
</html>`))

func render(msg notification.Message) (string, error) {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	err := messageTemplate.Execute(&buf, map[string]interface{}{
		"Title":       msg.Title,
		"Description": msg.Description,
		"Color":       template.CSS(fmt.Sprintf("#%06X", msg.Color)),
		"Fields":      msg.Fields,
		"Timestamp":   ts.UTC().Format(time.RFC1123),
	})
	return buf.String(), err
}
