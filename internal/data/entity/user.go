package entity

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	Base
	Email          *string  `db:"email"`
	Name           *string  `db:"name"`
	Phone          *string  `db:"phone"`
	PhoneVerified  bool     `db:"phone_verified"`
	Role           UserRole `db:"role"`
	Avatar         *string  `db:"avatar"`
	WorkOSFactorID *string  `db:"workos_factor_id"`
}
