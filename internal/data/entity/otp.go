package entity

import (
	"time"
)

// OTP is the single pending code for an identifier (email or E.164 phone).
type OTP struct {
	BaseSimple
	Identifier  string    `db:"identifier"`
	Code        string    `db:"code"`
	ExpiresAt   time.Time `db:"expires_at"`
	ChallengeID *string   `db:"challenge_id"`
	FactorID    *string   `db:"factor_id"`
	Attempts    int       `db:"attempts"`
	Verified    bool      `db:"verified"`
}

// IsExpired reports whether the code is no longer usable at now
func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// HasChallenge reports whether the code was delivered through an external challenge
func (o *OTP) HasChallenge() bool {
	return o.ChallengeID != nil && *o.ChallengeID != ""
}

// EnrolledFactor returns the SMS factor the phone was enrolled under, "" if none
func (o *OTP) EnrolledFactor() string {
	if o.FactorID == nil {
		return ""
	}
	return *o.FactorID
}
