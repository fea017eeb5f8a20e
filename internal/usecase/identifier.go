package usecase

import (
	"strings"

	"otp-auth/pkg/utils"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Identifier is a normalized email address or E.164 phone number.
type Identifier struct {
	Value   string
	Channel Channel
}

func (i Identifier) IsPhone() bool {
	return i.Channel == ChannelPhone
}

func (i Identifier) String() string {
	return i.Value
}

// ParseIdentifier normalizes whichever of email/phone is set. Exactly one must be.
func ParseIdentifier(email, phone, region string) (Identifier, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	switch {
	case email == "" && phone == "":
		return Identifier{}, validationError("email or phone is required")
	case email != "" && phone != "":
		return Identifier{}, validationError("provide either email or phone, not both")
	case email != "":
		return Identifier{Value: utils.NormalizeEmail(email), Channel: ChannelEmail}, nil
	}

	normalized, err := utils.NormalizePhone(phone, region)
	if err != nil {
		return Identifier{}, validationError("invalid phone number format")
	}
	return Identifier{Value: normalized, Channel: ChannelPhone}, nil
}
