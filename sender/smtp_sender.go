package sender

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SMTPSender delivers order emails over plain SMTP with STARTTLS when
// the server offers it. The From address can differ from the auth
// user (SMTP_FROM), which is the usual setup for a no-reply sender.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
}

func NewSMTPSender() (*SMTPSender, error) {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	username := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASS")

	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if port == "" {
		return nil, fmt.Errorf("SMTP_PORT not set")
	}
	if username == "" {
		return nil, fmt.Errorf("SMTP_USER not set")
	}
	if password == "" {
		return nil, fmt.Errorf("SMTP_PASS not set")
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = username
	}
	fromName := os.Getenv("SMTP_FROM_NAME")
	if fromName == "" {
		fromName = "Storefront Orders"
	}

	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
	}, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) (SendResult, error) {
	addr := net.JoinHostPort(s.host, s.port)

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return SendResult{}, fmt.Errorf("smtp dial %s: %w", addr, err)
	}

	// The smtp client has no context support; closing the connection on
	// cancellation unblocks any in-flight command.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return SendResult{}, fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return SendResult{}, fmt.Errorf("smtp starttls: %w", err)
		}
	}

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(auth); err != nil {
			return SendResult{}, fmt.Errorf("smtp auth: %w", err)
		}
	}

	messageID := s.newMessageID()
	msg := s.buildMessage(to, subject, body, messageID)

	if err := client.Mail(s.from); err != nil {
		return SendResult{}, fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return SendResult{}, fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return SendResult{}, fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return SendResult{}, fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return SendResult{}, fmt.Errorf("smtp close body: %w", err)
	}

	_ = client.Quit()

	return SendResult{MessageID: messageID, SentAt: time.Now()}, nil
}

func (s *SMTPSender) buildMessage(to, subject, body, messageID string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.fromName, s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", messageID)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (s *SMTPSender) newMessageID() string {
	domain := s.from
	if at := strings.LastIndex(s.from, "@"); at >= 0 {
		domain = s.from[at+1:]
	}
	return fmt.Sprintf("%s@%s", uuid.New().String(), domain)
}
