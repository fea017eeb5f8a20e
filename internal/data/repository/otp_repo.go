package repository

import (
	"context"
	"errors"
	"fmt"

	"otp-auth/internal/data/entity"
	"otp-auth/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// OTPRepository stores at most one pending code per identifier.
type OTPRepository interface {
	DeleteActive(ctx context.Context, identifier string) error
	Create(ctx context.Context, otp *entity.OTP) error
	FindActive(ctx context.Context, identifier string) (*entity.OTP, error)
	AttachDelivery(ctx context.Context, id uuid.UUID, challengeID, factorID string) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type otpRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOTPRepository(db database.PgxIface, log *zap.Logger) OTPRepository {
	return &otpRepository{
		db:  db,
		log: log.With(zap.String("repository", "otp")),
	}
}

// DeleteActive removes every record for identifier. No-op when there is none.
func (r *otpRepository) DeleteActive(ctx context.Context, identifier string) error {
	query := `DELETE FROM otps WHERE identifier = $1`

	if _, err := r.db.Exec(ctx, query, identifier); err != nil {
		r.log.Error("Failed to delete OTPs",
			zap.Error(err),
			zap.String("identifier", identifier),
		)
		return fmt.Errorf("delete OTPs for %s: %w", identifier, err)
	}

	return nil
}

func (r *otpRepository) Create(ctx context.Context, otp *entity.OTP) error {
	query := `
		INSERT INTO otps (id, identifier, code, expires_at, challenge_id,
		                  factor_id, attempts, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		otp.ID,
		otp.Identifier,
		otp.Code,
		otp.ExpiresAt,
		otp.ChallengeID,
		otp.FactorID,
		otp.Attempts,
		otp.Verified,
		otp.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create OTP",
			zap.Error(err),
			zap.String("identifier", otp.Identifier),
		)
		return fmt.Errorf("create OTP for %s: %w", otp.Identifier, err)
	}

	return nil
}

// FindActive returns the newest unexpired, unverified record or nil.
func (r *otpRepository) FindActive(ctx context.Context, identifier string) (*entity.OTP, error) {
	query := `
		SELECT id, identifier, code, expires_at, challenge_id,
		       factor_id, attempts, verified, created_at
		FROM otps
		WHERE identifier = $1
		  AND verified = false
		  AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`

	var otp entity.OTP
	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&otp.ID,
		&otp.Identifier,
		&otp.Code,
		&otp.ExpiresAt,
		&otp.ChallengeID,
		&otp.FactorID,
		&otp.Attempts,
		&otp.Verified,
		&otp.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find active OTP",
			zap.Error(err),
			zap.String("identifier", identifier),
		)
		return nil, fmt.Errorf("find active OTP for %s: %w", identifier, err)
	}

	return &otp, nil
}

// AttachDelivery records the external challenge and SMS factor the code went out
// through. Empty values are stored as NULL.
func (r *otpRepository) AttachDelivery(ctx context.Context, id uuid.UUID, challengeID, factorID string) error {
	query := `
		UPDATE otps
		SET challenge_id = NULLIF($2, ''),
		    factor_id = NULLIF($3, '')
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, challengeID, factorID)
	if err != nil {
		r.log.Error("Failed to attach delivery to OTP",
			zap.Error(err),
			zap.String("otp_id", id.String()),
		)
		return fmt.Errorf("attach delivery to OTP %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return ErrOTPNotFound
	}

	return nil
}

// IncrementAttempts bumps the counter and returns the stored value.
func (r *otpRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE otps
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`

	var attempts int
	err := r.db.QueryRow(ctx, query, id).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrOTPNotFound
	}
	if err != nil {
		r.log.Error("Failed to increment OTP attempts",
			zap.Error(err),
			zap.String("otp_id", id.String()),
		)
		return 0, fmt.Errorf("increment attempts for OTP %s: %w", id.String(), err)
	}

	return attempts, nil
}

// Delete is idempotent, a concurrent verify may already have removed the row.
func (r *otpRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM otps WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.log.Error("Failed to delete OTP",
			zap.Error(err),
			zap.String("otp_id", id.String()),
		)
		return fmt.Errorf("delete OTP %s: %w", id.String(), err)
	}

	return nil
}
