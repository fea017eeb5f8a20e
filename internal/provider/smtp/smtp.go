// Package smtp is a pooled SMTP implementation of provider.Mailer.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"time"

	"otp-auth/internal/provider"
	"otp-auth/pkg/utils"

	"github.com/knadh/smtppool"
)

var _ provider.Mailer = (*SMTP)(nil)

// SMTP sends mail through a smtppool connection pool.
type SMTP struct {
	from string
	p    *smtppool.Pool
}

// New builds the pool. Auth is one of login, cram, plain or none,
// TLS is STARTTLS, TLS or none.
func New(cfg utils.EmailConfig) (*SMTP, error) {
	from := cfg.From
	if from == "" {
		from = "otp@localhost"
	}

	var auth smtp.Auth
	switch cfg.Auth {
	case "login":
		auth = &smtppool.LoginAuth{Username: cfg.User, Password: cfg.Password}
	case "cram":
		auth = smtp.CRAMMD5Auth(cfg.User, cfg.Password)
	case "plain":
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	case "", "none":
	default:
		return nil, fmt.Errorf("unknown SMTP auth type '%s'", cfg.Auth)
	}

	maxConns := cfg.MaxConns
	if maxConns < 1 {
		maxConns = 1
	}

	opt := smtppool.Opt{
		Host:            cfg.Host,
		Port:            cfg.Port,
		MaxConns:        maxConns,
		IdleTimeout:     time.Second * 10,
		PoolWaitTimeout: time.Second * 10,
		Auth:            auth,
	}

	if cfg.TLS != "none" {
		opt.TLSConfig = &tls.Config{ServerName: cfg.Host}
		if cfg.TLS == "TLS" {
			opt.SSL = true
		}
	}

	pool, err := smtppool.New(opt)
	if err != nil {
		return nil, err
	}

	return &SMTP{from: from, p: pool}, nil
}

// Send pushes an HTML e-mail. smtppool has no context support, the pool
// wait timeout bounds the call instead.
func (s *SMTP) Send(_ context.Context, to, subject string, html []byte) error {
	return s.p.Send(smtppool.Email{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
}

func (s *SMTP) Close() {
	s.p.Close()
}
