package repository

import (
	"errors"

	"otp-auth/pkg/database"

	"go.uber.org/zap"
)

// ErrOTPNotFound is returned when an OTP record vanished between read and write.
var ErrOTPNotFound = errors.New("otp not found")

type Repository struct {
	User       UserRepository
	Session    SessionRepository
	OTP        OTPRepository
	OTPRequest OTPRequestRepository
}

// NewRepository wires every repository to Postgres. OTP and OTPRequest can be
// swapped for the Redis implementations afterwards.
func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:       NewUserRepository(db, log),
		Session:    NewSessionRepository(db, log),
		OTP:        NewOTPRepository(db, log),
		OTPRequest: NewOTPRequestRepository(db, log),
	}
}
