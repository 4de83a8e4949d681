package notifications

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPNotifier sends reset mail through a plain SMTP relay with AUTH
// PLAIN. Good enough for the providers this runs against; anything
// fancier belongs behind its own Notifier.
type SMTPNotifier struct {
	addr     string
	auth     smtp.Auth
	from     string
	tokenTTL time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// TokenTTL is quoted in the mail so the subject line matches the
	// actual reset-token lifetime.
	TokenTTL time.Duration
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	var auth smtp.Auth

	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 10 * time.Minute
	}

	return &SMTPNotifier{
		addr:     net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		auth:     auth,
		from:     cfg.From,
		tokenTTL: cfg.TokenTTL,
	}
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildResetMessage(n.from, email, resetURL, n.tokenTTL)

	return smtp.SendMail(n.addr, n.auth, n.from, []string{email}, []byte(msg))
}

func buildResetMessage(from, to, resetURL string, tokenTTL time.Duration) string {
	subject := fmt.Sprintf("Your password reset token (valid for %d min)", int(tokenTTL.Minutes()))

	body := fmt.Sprintf(
		"Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s\r\n"+
			"If you didn't forget your password, please ignore this email!\r\n",
		resetURL,
	)

	return strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
}
