package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrRateLimited      = errors.New("too many code requests, please try again later")
	ErrInvalidOrExpired = errors.New("invalid or expired code")
	ErrTooManyAttempts  = errors.New("too many verification attempts")
	ErrUnauthorized     = errors.New("unauthorized")
)

// InvalidCodeError is a wrong code on a record that still has attempts left.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code, %d attempts remaining", e.Remaining)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
