package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"seatwatch/internal/components/assert"
	"seatwatch/internal/components/telemetry"

	"github.com/jordan-wright/email"
)

type EmailOptions struct {
	Server   string
	Port     int
	From     string
	Password string
}

// EmailNotifier sends messages over SMTP, upgrading to TLS when the server offers STARTTLS.
type EmailNotifier struct {
	opts EmailOptions
	tel  telemetry.API
}

func NewEmailNotifier(opts EmailOptions, tel telemetry.API) EmailNotifier {
	assert.NotEmptyStr(opts.Server)
	assert.NotEmptyStr(opts.From)
	assert.NotNil(tel)
	return EmailNotifier{
		opts: opts,
		tel:  telemetry.NewScopedAPI("notify_email", tel),
	}
}

func (n EmailNotifier) Send(ctx context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		err := fmt.Errorf("%w: no recipients", ErrNotify)
		n.tel.ReportBroken(report_notify_send, err)
		return err
	}
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotify, err)
	}

	e := email.NewEmail()
	e.From = n.opts.From
	e.To = recipients
	e.Subject = subject
	e.Text = []byte(body)

	addr := net.JoinHostPort(n.opts.Server, strconv.Itoa(n.opts.Port))
	var auth smtp.Auth
	if n.opts.Password != "" {
		auth = smtp.PlainAuth("", n.opts.From, n.opts.Password, n.opts.Server)
	}

	err = e.Send(addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "doesn't support AUTH") {
		n.tel.ReportDebug("server does not support auth, sending without it", addr)
		err = e.Send(addr, nil)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrNotify, err)
		n.tel.ReportBroken(report_notify_send, err, addr)
		return err
	}

	n.tel.ReportDebug("sent email", subject, len(recipients))
	return nil
}
