package entity

// OTPRequest is one accepted issuance, counted by the rate limiter.
type OTPRequest struct {
	BaseSimple
	Identifier string `db:"identifier"`
}
