// Package mailer delivers one-time passwords by email.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/nasermirzaei89/vidtube/authentication"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// ImplicitTLS dials TLS directly, as on port 465. Otherwise STARTTLS is
	// used when the server offers it.
	ImplicitTLS bool
}

type SMTPSender struct {
	cfg Config
}

var _ authentication.OTPSender = (*SMTPSender)(nil)

func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func subjectFor(purpose authentication.OTPPurpose) string {
	switch purpose {
	case authentication.OTPPurposeResetPassword:
		return "Reset Your Password"
	default:
		return "Verify Your Account"
	}
}

// buildMessage renders a plain text RFC 5322 message.
func buildMessage(from, to string, purpose authentication.OTPPurpose, otp string) []byte {
	var sb strings.Builder

	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subjectFor(purpose) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString("Your verification code is " + otp + "\r\n")
	sb.WriteString("It expires in 10 minutes.\r\n")

	return []byte(sb.String())
}

func (s *SMTPSender) SendOTP(ctx context.Context, email, otp string, purpose authentication.OTPPurpose) error {
	msg := buildMessage(s.cfg.From, email, purpose, otp)
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if !s.cfg.ImplicitTLS {
		err := smtp.SendMail(addr, auth, s.cfg.From, []string{email}, msg)
		if err != nil {
			return fmt.Errorf("failed to send mail: %w", err)
		}

		return nil
	}

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server: %w", err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()

		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	defer func() {
		err := client.Close()
		if err != nil {
			slog.DebugContext(ctx, "failed to close smtp client", "error", err)
		}
	}()

	if auth != nil {
		err = client.Auth(auth)
		if err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	err = client.Mail(s.cfg.From)
	if err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	err = client.Rcpt(email)
	if err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}

	_, err = w.Write(msg)
	if err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("failed to finish message body: %w", err)
	}

	err = client.Quit()
	if err != nil {
		return fmt.Errorf("failed to quit smtp session: %w", err)
	}

	return nil
}

// LogSender writes OTPs to the log instead of mailing them. It is meant for
// local development.
type LogSender struct{}

var _ authentication.OTPSender = LogSender{}

func (LogSender) SendOTP(ctx context.Context, email, otp string, purpose authentication.OTPPurpose) error {
	slog.InfoContext(ctx, "otp issued", "email", email, "otp", otp, "purpose", purpose)

	return nil
}
