package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/provider"

	"go.uber.org/zap"
)

// Verifier checks a submitted code against the pending record.
//
//	Pending -> Verified          record deleted
//	Pending -> Invalid           attempts+1, still Pending
//	Pending -> AttemptsExceeded  record deleted, checked before comparing
//	Expired                      invisible to FindActive
type Verifier struct {
	otps        repository.OTPRepository
	challenger  provider.Challenger
	maxAttempts int
	log         *zap.Logger
}

func NewVerifier(otps repository.OTPRepository, challenger provider.Challenger, maxAttempts int, log *zap.Logger) *Verifier {
	return &Verifier{
		otps:        otps,
		challenger:  challenger,
		maxAttempts: maxAttempts,
		log:         log.With(zap.String("component", "verifier")),
	}
}

// Verify returns the consumed record once the code is accepted.
func (v *Verifier) Verify(ctx context.Context, id Identifier, code string) (*entity.OTP, error) {
	// 1. Pending record
	otp, err := v.otps.FindActive(ctx, id.Value)
	if err != nil {
		return nil, fmt.Errorf("find OTP: %w", err)
	}
	if otp == nil {
		return nil, ErrInvalidOrExpired
	}

	// 2. Attempts exhausted, regardless of the code
	if otp.Attempts >= v.maxAttempts {
		if err := v.otps.Delete(ctx, otp.ID); err != nil {
			return nil, fmt.Errorf("delete exhausted OTP: %w", err)
		}
		return nil, ErrTooManyAttempts
	}

	// 3. Provider first when it delivered the code, local compare otherwise or as fallback
	matched := false
	if id.IsPhone() && otp.HasChallenge() && v.challenger != nil {
		res := v.challenger.VerifyChallenge(ctx, *otp.ChallengeID, code)
		if res.Err != nil {
			v.log.Warn("Challenge verification failed, comparing locally",
				zap.Error(res.Err),
				zap.String("identifier", id.Value),
			)
		}
		matched = res.OK()
	}
	if !matched {
		matched = subtle.ConstantTimeCompare([]byte(code), []byte(otp.Code)) == 1
	}

	// 4. Mismatch
	if !matched {
		attempts, err := v.otps.IncrementAttempts(ctx, otp.ID)
		if errors.Is(err, repository.ErrOTPNotFound) {
			return nil, ErrInvalidOrExpired
		}
		if err != nil {
			return nil, fmt.Errorf("increment attempts: %w", err)
		}
		return nil, &InvalidCodeError{Remaining: max(v.maxAttempts-attempts, 0)}
	}

	// 5. Consume
	if err := v.otps.Delete(ctx, otp.ID); err != nil {
		return nil, fmt.Errorf("consume OTP: %w", err)
	}
	return otp, nil
}
