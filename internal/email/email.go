// Package email sends the transactional mails: verification codes,
// password-reset links and support-ticket notifications.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/metrics"
	"github.com/resend/resend-go/v2"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// LogSender only logs. It stands in when no API key is configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.Warn("email not sent, no provider configured", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Dispatcher wraps a Sender with a timeout and runs non-critical mails in
// the background.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     *slog.Logger
}

func NewDispatcher(sender Sender, timeout time.Duration, log *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, timeout: timeout, log: log}
}

// Send delivers synchronously and returns the error.
func (d *Dispatcher) Send(ctx context.Context, kind string, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sender.Send(ctx, msg); err != nil {
		metrics.EmailFailures.WithLabelValues(kind).Inc()
		return err
	}
	return nil
}

// Go sends in the background. Failures are logged and never reach the
// caller. The returned channel is closed when the attempt finishes.
func (d *Dispatcher) Go(kind string, msg Message) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Send(context.Background(), kind, msg); err != nil {
			d.log.Error("background email failed", "kind", kind, "to", msg.To, "err", err)
		}
	}()
	return done
}

var (
	codeTemplate = template.Must(template.New("code").Parse(
		`<p>Your verification code is <strong>{{.Code}}</strong>.</p><p>It expires in {{.Minutes}} minutes.</p>`))
	resetTemplate = template.Must(template.New("reset").Parse(
		`<p>Someone asked to reset your password.</p><p><a href="{{.Link}}">Choose a new password</a>. The link expires in {{.Minutes}} minutes.</p><p>If this was not you, ignore this mail.</p>`))
	ticketTemplate = template.Must(template.New("ticket").Parse(
		`<p>New ticket #{{.ID}} from {{.UserEmail}}</p><p><strong>{{.Subject}}</strong></p><p>{{.Message}}</p>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s mail: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func VerificationCode(to, code string, ttl time.Duration) (Message, error) {
	body, err := render(codeTemplate, struct {
		Code    string
		Minutes int
	}{code, int(ttl.Minutes())})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Your verification code", HTML: body}, nil
}

func PasswordReset(to, link string, ttl time.Duration) (Message, error) {
	body, err := render(resetTemplate, struct {
		Link    string
		Minutes int
	}{link, int(ttl.Minutes())})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Reset your password", HTML: body}, nil
}

func TicketNotification(to string, id int64, userEmail, subject, message string) (Message, error) {
	body, err := render(ticketTemplate, struct {
		ID        int64
		UserEmail string
		Subject   string
		Message   string
	}{id, userEmail, subject, message})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "New support ticket: " + subject, HTML: body}, nil
}
