package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends HTML email through a plain SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     sendMailFunc
}

// NewSMTPMailer creates a mailer for host:port. Auth is used only when username is set.
func NewSMTPMailer(host string, port int, from, username, password string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     strconv.Itoa(port),
		from:     from,
		username: username,
		password: password,
		send:     smtp.SendMail,
	}
}

// SendEmail implements EmailSender. net/smtp has no context support, so ctx
// is only checked before dialing.
func (m *SMTPMailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := m.send(m.host+":"+m.port, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
