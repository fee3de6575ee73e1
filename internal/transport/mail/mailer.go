package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("mailer missing configuration")

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers HTML mail over SMTP. With useTLS it speaks implicit TLS
// (port 465 style); otherwise net/smtp upgrades with STARTTLS when offered.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	useTLS   bool
	send     sendFunc
	now      func() time.Time
}

func NewMailer(host, port, username, password, from string, useTLS bool) *Mailer {
	m := &Mailer{
		host:     strings.TrimSpace(host),
		port:     strings.TrimSpace(port),
		username: username,
		password: password,
		from:     strings.TrimSpace(from),
		useTLS:   useTLS,
		now:      time.Now,
	}
	m.send = smtp.SendMail
	if useTLS {
		m.send = m.sendImplicitTLS
	}
	return m
}

func (m *Mailer) Configured() bool {
	return m != nil && m.host != "" && m.port != "" && m.from != ""
}

func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	to = strings.TrimSpace(to)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("mail: invalid recipient %q", to)
	}

	var auth smtp.Auth
	if m.username != "" || m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := net.JoinHostPort(m.host, m.port)
	if err := m.send(addr, auth, m.from, []string{to}, m.buildMessage(to, subject, html)); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

func (m *Mailer) buildMessage(to, subject, html string) []byte {
	message := strings.Builder{}
	message.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	message.WriteString(fmt.Sprintf("To: %s\r\n", to))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)))
	message.WriteString(fmt.Sprintf("Date: %s\r\n", m.now().Format(time.RFC1123Z)))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	message.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	message.WriteString(html)
	message.WriteString("\r\n")
	return []byte(message.String())
}

func (m *Mailer) sendImplicitTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
