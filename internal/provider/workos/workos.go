// Package workos adapts the WorkOS MFA SDK (SMS factors) to provider.Challenger.
package workos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"otp-auth/internal/provider"
	"otp-auth/pkg/utils"

	"github.com/workos/workos-go/v4/pkg/mfa"
)

const defaultTimeout = 10 * time.Second

var _ provider.Challenger = (*Client)(nil)

type Client struct {
	mfa         *mfa.Client
	configured  bool
	smsTemplate string
}

func New(cfg utils.WorkOSConfig) *Client {
	return &Client{
		mfa: &mfa.Client{
			APIKey:     cfg.APIKey,
			Endpoint:   cfg.BaseURL,
			HTTPClient: &http.Client{Timeout: defaultTimeout},
		},
		configured:  cfg.APIKey != "",
		smsTemplate: cfg.SMSTemplate,
	}
}

// EnrollFactor registers phone as an SMS factor.
func (c *Client) EnrollFactor(ctx context.Context, phone string) provider.FactorResult {
	if !c.configured {
		return provider.FactorResult{Err: provider.ErrNotConfigured}
	}

	factor, err := c.mfa.EnrollFactor(ctx, mfa.EnrollFactorOpts{
		Type:        mfa.SMS,
		PhoneNumber: phone,
	})
	if err != nil {
		return provider.FactorResult{Err: fmt.Errorf("workos: enroll factor: %w", err)}
	}
	if factor.ID == "" {
		return provider.FactorResult{Err: errors.New("workos: enroll returned no factor id")}
	}
	return provider.FactorResult{FactorID: factor.ID}
}

// CreateChallenge makes WorkOS send its own code to the factor's phone.
func (c *Client) CreateChallenge(ctx context.Context, factorID string) provider.ChallengeResult {
	if !c.configured {
		return provider.ChallengeResult{Err: provider.ErrNotConfigured}
	}

	challenge, err := c.mfa.ChallengeFactor(ctx, mfa.ChallengeFactorOpts{
		FactorID:    factorID,
		SMSTemplate: c.smsTemplate,
	})
	if err != nil {
		return provider.ChallengeResult{Err: fmt.Errorf("workos: challenge factor %s: %w", factorID, err)}
	}
	if challenge.ID == "" {
		return provider.ChallengeResult{Err: errors.New("workos: challenge returned no id")}
	}
	return provider.ChallengeResult{ChallengeID: challenge.ID}
}

func (c *Client) VerifyChallenge(ctx context.Context, challengeID, code string) provider.VerifyResult {
	if !c.configured {
		return provider.VerifyResult{Err: provider.ErrNotConfigured}
	}

	resp, err := c.mfa.VerifyChallenge(ctx, mfa.VerifyChallengeOpts{
		ChallengeID: challengeID,
		Code:        code,
	})
	if err != nil {
		return provider.VerifyResult{Err: fmt.Errorf("workos: verify challenge %s: %w", challengeID, err)}
	}
	return provider.VerifyResult{Valid: resp.Valid}
}
