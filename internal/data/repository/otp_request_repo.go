package repository

import (
	"context"
	"fmt"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/pkg/database"

	"go.uber.org/zap"
)

// OTPRequestRepository is the issuance log the rate limiter counts.
type OTPRequestRepository interface {
	Create(ctx context.Context, req *entity.OTPRequest) error
	CountSince(ctx context.Context, identifier string, since time.Time) (int, error)
}

type otpRequestRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOTPRequestRepository(db database.PgxIface, log *zap.Logger) OTPRequestRepository {
	return &otpRequestRepository{
		db:  db,
		log: log.With(zap.String("repository", "otp_request")),
	}
}

func (r *otpRequestRepository) Create(ctx context.Context, req *entity.OTPRequest) error {
	query := `
		INSERT INTO otp_requests (id, identifier, created_at)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.Exec(ctx, query, req.ID, req.Identifier, req.CreatedAt); err != nil {
		r.log.Error("Failed to record OTP request",
			zap.Error(err),
			zap.String("identifier", req.Identifier),
		)
		return fmt.Errorf("record OTP request for %s: %w", req.Identifier, err)
	}

	return nil
}

// CountSince counts requests for identifier after since. Rows at or before since
// are outside every window and get pruned in the same statement.
func (r *otpRequestRepository) CountSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	query := `
		WITH pruned AS (
			DELETE FROM otp_requests WHERE created_at <= $2
		)
		SELECT COUNT(*)
		FROM otp_requests
		WHERE identifier = $1 AND created_at > $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, identifier, since).Scan(&count); err != nil {
		r.log.Error("Failed to count OTP requests",
			zap.Error(err),
			zap.String("identifier", identifier),
		)
		return 0, fmt.Errorf("count OTP requests for %s: %w", identifier, err)
	}

	return count, nil
}
