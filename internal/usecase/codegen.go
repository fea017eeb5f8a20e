package usecase

import (
	"crypto/rand"
	"math/big"
	"strconv"

	"otp-auth/pkg/utils"
)

const (
	codeMin   = 100000
	codeRange = 900000
)

// CodeGenerator issues six digit codes. Phones get the fixed demo code only in demo mode.
type CodeGenerator struct {
	demoPhoneMode bool
	demoPhoneCode string
}

func NewCodeGenerator(cfg utils.OTPConfig) *CodeGenerator {
	return &CodeGenerator{
		demoPhoneMode: cfg.DemoPhoneMode,
		demoPhoneCode: cfg.DemoPhoneCode,
	}
}

func (g *CodeGenerator) Generate(id Identifier) (string, error) {
	if id.IsPhone() && g.demoPhoneMode {
		return g.demoPhoneCode, nil
	}
	return randomCode()
}

// randomCode is uniform over [100000, 999999]
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}
