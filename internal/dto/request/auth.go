package request

// RequestOTPRequest carries exactly one of Email or Phone.
type RequestOTPRequest struct {
	Email string `json:"email" validate:"omitempty,email,max=254"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"omitempty,email,max=254"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
	Code  string `json:"code" validate:"required,max=10"`
}
