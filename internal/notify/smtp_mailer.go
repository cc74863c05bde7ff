package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig is the single global SMTP configuration this domain reads from
// env vars (SMTP_HOST, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM_EMAIL) —
// unlike the teacher's per-tenant encrypted-at-rest config, there is only
// one tenant here, so no credential decryption step is needed.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLSMode  string // "starttls" | "tls" | ""
}

// SMTPMailer implements EmailGateway over plain SMTP, adapted from the
// teacher's internal/mailer/smtp_provider.go: SSRF re-validation on every
// send and MIME/CRLF injection prevention are kept, tenant-secret
// decryption is dropped.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

func NewSMTPMailer(cfg SMTPConfig, logger *slog.Logger) (*SMTPMailer, error) {
	if err := ValidateSMTPConfig(cfg.Host, cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}
	if _, err := sanitizeEmailAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid From address: %w", err)
	}
	return &SMTPMailer{cfg: cfg, logger: logger}, nil
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string) error {
	subject := "Verify your email address"
	body := fmt.Sprintf("Hello,\n\nYour verification code is %s.\n\nThis code expires in 10 minutes.\n\nThank you.", code)
	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) SendLockoutUnlock(ctx context.Context, to, unlockURL string) error {
	subject := "Your account has been locked"
	body := fmt.Sprintf("Hello,\n\nYour account was locked after too many failed sign-in attempts.\n\nUnlock it here: %s\n\nThis link expires in 10 minutes.\n\nThank you.", unlockURL)
	return m.send(ctx, to, subject, body)
}

// send re-validates SSRF protection on every call (prevents DNS rebinding
// between config time and send time), sanitizes addresses against MIME/CRLF
// injection, and delivers over STARTTLS/TLS per the configured mode.
func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	logger := m.logger.With("to_hash", hashRecipient(to))

	if err := ValidateSMTPConfig(m.cfg.Host, m.cfg.Port); err != nil {
		logger.Error("ssrf_attempt_blocked", "host", m.cfg.Host, "error", err)
		return fmt.Errorf("SMTP configuration failed validation")
	}

	toAddr, err := sanitizeEmailAddress(to)
	if err != nil {
		return fmt.Errorf("invalid recipient address")
	}
	fromAddr, err := sanitizeEmailAddress(m.cfg.From)
	if err != nil {
		return fmt.Errorf("SMTP configuration error")
	}

	message := m.buildMessage(fromAddr, toAddr, subject, body)

	serverAddr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	dialer := &net.Dialer{Timeout: 5 * time.Second}

	var conn net.Conn
	if m.cfg.TLSMode == "tls" {
		tlsConfig := &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
		conn, err = tls.DialWithDialer(dialer, "tcp", serverAddr, tlsConfig)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", serverAddr)
	}
	if err != nil {
		logger.Error("smtp_connect_failed", "error", err)
		return fmt.Errorf("SMTP connection failed")
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("SMTP protocol error")
	}
	defer client.Quit()

	if m.cfg.TLSMode == "starttls" {
		tlsConfig := &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("SMTP TLS upgrade failed")
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			logger.Error("smtp_auth_failed", "user", m.cfg.Username, "error", err)
			return fmt.Errorf("SMTP authentication failed")
		}
	}

	if err := client.Mail(fromAddr); err != nil {
		return fmt.Errorf("SMTP MAIL command failed: %w", err)
	}
	if err := client.Rcpt(toAddr); err != nil {
		return fmt.Errorf("SMTP RCPT command failed: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command failed: %w", err)
	}
	if _, err := writer.Write(message); err != nil {
		return fmt.Errorf("failed to write email data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize email: %w", err)
	}

	logger.Info("email_sent")
	return nil
}

func (m *SMTPMailer) buildMessage(from, to, subject, body string) []byte {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}

// sanitizeEmailAddress validates and sanitizes an email address, preventing
// MIME/CRLF header injection (grounded on the teacher's
// internal/mailer/smtp_provider.go sanitizeEmailAddress).
func sanitizeEmailAddress(addr string) (string, error) {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return "", fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(parsed.Address, "\r\n") || strings.ContainsAny(parsed.Name, "\r\n") {
		return "", fmt.Errorf("CRLF injection detected in address")
	}
	return parsed.String(), nil
}

func hashRecipient(email string) string {
	// Lightweight, non-cryptographic distinguishing hash for log lines;
	// never used as a security boundary.
	h := uint32(2166136261)
	for i := 0; i < len(email); i++ {
		h ^= uint32(email[i])
		h *= 16777619
	}
	return fmt.Sprintf("%08x", h)
}
