package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"authors-haven/internal/logging"

	"github.com/sirupsen/logrus"
)

// SMTPSender delivers through a plain SMTP relay
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender for host:port. Auth is skipped when username is empty.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
		send: smtp.SendMail,
	}
}

// Send writes msg as a text/plain email
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.addr, s.auth, s.from, msg.To, formatMessage(s.from, msg)); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", strings.Join(msg.To, ","), err)
	}
	return nil
}

func formatMessage(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// LogSender writes emails to the log instead of delivering them
type LogSender struct {
	log *logrus.Entry
}

// NewLogSender creates a development sender
func NewLogSender() *LogSender {
	return &LogSender{log: logging.WithComponent("mailer")}
}

// Send logs msg and always succeeds
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("📧 Email (log backend)")
	return nil
}
