package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender mails the admin about account activity.
type SMTPSender struct {
	host string
	port int
	auth smtp.Auth
	from string
	to   string
}

func NewSMTPSender(host string, port int, username, password, from, to string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{host: host, port: port, auth: auth, from: from, to: to}
}

func (s *SMTPSender) Send(ctx context.Context, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + s.to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, s.auth, s.from, []string{s.to}, []byte(msg))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SMTPSender) Name() string {
	return "smtp"
}
