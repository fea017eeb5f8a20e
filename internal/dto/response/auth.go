package response

import (
	"time"

	"otp-auth/internal/data/entity"
)

type UserResponse struct {
	ID            string          `json:"id"`
	Email         *string         `json:"email"`
	Name          *string         `json:"name"`
	Phone         *string         `json:"phone"`
	PhoneVerified bool            `json:"phoneVerified"`
	Role          entity.UserRole `json:"role"`
	Avatar        *string         `json:"avatar"`
}

type VerifyOTPResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`

	// cookie expiry, not serialized
	ExpiresAt time.Time `json:"-"`
}

type MeResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
}

// Helper converters
func UserToResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:            user.ID.String(),
		Email:         user.Email,
		Name:          user.Name,
		Phone:         user.Phone,
		PhoneVerified: user.PhoneVerified,
		Role:          user.Role,
		Avatar:        user.Avatar,
	}
}
