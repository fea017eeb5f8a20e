// Package provider holds the contracts for outbound code delivery: an e-mail
// transport and an external SMS factor/challenge API. Challenger calls never
// return errors past their boundary, every outcome is a result value.
package provider

import (
	"context"
	"errors"
)

// ErrNotConfigured is reported by providers started without credentials.
var ErrNotConfigured = errors.New("provider not configured")

// Mailer sends a rendered e-mail.
type Mailer interface {
	Send(ctx context.Context, to, subject string, html []byte) error
}

// Challenger enrolls phones as SMS factors and issues/verifies challenges.
type Challenger interface {
	EnrollFactor(ctx context.Context, phone string) FactorResult
	CreateChallenge(ctx context.Context, factorID string) ChallengeResult
	VerifyChallenge(ctx context.Context, challengeID, code string) VerifyResult
}

type FactorResult struct {
	FactorID string
	Err      error
}

func (r FactorResult) OK() bool { return r.Err == nil && r.FactorID != "" }

type ChallengeResult struct {
	ChallengeID string
	Err         error
}

func (r ChallengeResult) OK() bool { return r.Err == nil && r.ChallengeID != "" }

// VerifyResult is valid only when the provider answered and accepted the code.
type VerifyResult struct {
	Valid bool
	Err   error
}

func (r VerifyResult) OK() bool { return r.Err == nil && r.Valid }

// NopMailer is used when no SMTP host is configured.
type NopMailer struct{}

func (NopMailer) Send(context.Context, string, string, []byte) error {
	return ErrNotConfigured
}
