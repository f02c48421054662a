// Package mail sends the two outbound messages DisOrder's user-management
// commands need: a registration-confirmation link (`register`) and a
// password-reminder notice (`reminder`, rate-limited by
// reminder_interval). Grounded on flowpbx-flowpbx's
// internal/email/sender.go: the same net/smtp dial/STARTTLS/plain-body
// shape, trimmed to DisOrder's plain-text, attachment-free messages.
package mail

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Config names the sending address and SMTP relay, sourced from the
// mail_sender/smtp_server config keys (spec.md §6).
type Config struct {
	Sender     string // From: address, mail_sender
	SMTPServer string // host or host:port, smtp_server
}

// Valid reports whether cfg has enough information to send mail.
func (c Config) Valid() bool {
	return c.Sender != "" && c.SMTPServer != ""
}

// smtpClient abstracts *smtp.Client for testing, following the teacher's
// email package's interface-for-dialer pattern.
type smtpClient interface {
	Hello(localName string) error
	Extension(ext string) (bool, string)
	StartTLS(config *tls.Config) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (writeCloser, error)
	Quit() error
	Close() error
}

type writeCloser interface {
	Write([]byte) (int, error)
	Close() error
}

// Sender sends DisOrder's account-management emails via SMTP.
type Sender struct {
	cfg      Config
	dialFunc func(addr string) (smtpClient, error)
}

// New creates a Sender. A zero Config is valid to construct but every
// Send call will fail until mail_sender/smtp_server are configured.
func New(cfg Config) *Sender {
	return &Sender{cfg: cfg, dialFunc: defaultDial}
}

// SendConfirmation sends the registration confirmation link built by
// internal/users.Register, in the "username/nonce" format
// original_source/server/server.c's c_register uses (SPEC_FULL.md §12).
func (s *Sender) SendConfirmation(to, username, confirmString string) error {
	subject := "DisOrder registration confirmation"
	body := fmt.Sprintf(
		"To confirm your DisOrder account %q, send:\n\n  confirm %s\n\n"+
			"If you did not request this account, ignore this message.\n",
		username, confirmString)
	return s.send(to, subject, body)
}

// SendReminder sends a password-reset notice carrying the one-time token
// minted by internal/users.Manager.Reminder.
func (s *Sender) SendReminder(to, username, token string) error {
	subject := "DisOrder password reminder"
	body := fmt.Sprintf(
		"A password reminder was requested for DisOrder account %q.\n\n"+
			"Reset token: %s\n\n"+
			"If you did not request this, ignore this message.\n",
		username, token)
	return s.send(to, subject, body)
}

func (s *Sender) send(to, subject, body string) error {
	if !s.cfg.Valid() {
		return fmt.Errorf("mail: mail_sender/smtp_server not configured")
	}
	if to == "" {
		return fmt.Errorf("mail: recipient has no registered email address")
	}

	msg := buildMessage(s.cfg.Sender, to, subject, body)

	addr := s.cfg.SMTPServer
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "25")
	}

	client, err := s.dialFunc(addr)
	if err != nil {
		return fmt.Errorf("connect to smtp server %s: %w", addr, err)
	}
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("smtp hello: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		host, _, _ := net.SplitHostPort(addr)
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if err := client.Mail(s.cfg.Sender); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: text/plain; charset=utf-8\r\n")
	fmt.Fprintf(&b, "\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func defaultDial(addr string) (smtpClient, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return nil, err
	}
	return realClient{c}, nil
}

// realClient adapts *smtp.Client's Data() (io.WriteCloser) to writeCloser.
type realClient struct{ c *smtp.Client }

func (r realClient) Hello(name string) error                { return r.c.Hello(name) }
func (r realClient) Extension(ext string) (bool, string)     { return r.c.Extension(ext) }
func (r realClient) StartTLS(cfg *tls.Config) error          { return r.c.StartTLS(cfg) }
func (r realClient) Mail(from string) error                  { return r.c.Mail(from) }
func (r realClient) Rcpt(to string) error                    { return r.c.Rcpt(to) }
func (r realClient) Quit() error                             { return r.c.Quit() }
func (r realClient) Close() error                             { return r.c.Close() }
func (r realClient) Data() (writeCloser, error)              { return r.c.Data() }
