package usecase

import (
	"context"
	"fmt"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"

	"github.com/google/uuid"
)

// RateLimiter caps issuance per identifier over a rolling window.
// Allow and Record are separate calls, two concurrent requests can both pass.
type RateLimiter struct {
	requests repository.OTPRequestRepository
	window   time.Duration
	max      int
	nowF     func() time.Time
}

func NewRateLimiter(requests repository.OTPRequestRepository, window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		requests: requests,
		window:   window,
		max:      max,
		nowF:     time.Now,
	}
}

// Allow returns ErrRateLimited once max requests fall inside the window.
func (l *RateLimiter) Allow(ctx context.Context, identifier string) error {
	count, err := l.requests.CountSince(ctx, identifier, l.nowF().Add(-l.window))
	if err != nil {
		return fmt.Errorf("check rate limit: %w", err)
	}
	if count >= l.max {
		return ErrRateLimited
	}
	return nil
}

func (l *RateLimiter) Record(ctx context.Context, identifier string) error {
	req := &entity.OTPRequest{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: l.nowF(),
		},
		Identifier: identifier,
	}
	if err := l.requests.Create(ctx, req); err != nil {
		return fmt.Errorf("record rate limit: %w", err)
	}
	return nil
}
