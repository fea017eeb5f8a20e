package usecase

import (
	"time"

	"otp-auth/internal/data/repository"
	"otp-auth/internal/provider"
	"otp-auth/pkg/events"
	"otp-auth/pkg/token"
	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

// Providers are the outbound integrations. Nil members fall back to log-only delivery.
type Providers struct {
	Mailer     provider.Mailer
	Challenger provider.Challenger
	Events     events.Publisher
}

type Service struct {
	Auth  AuthService
	Token *token.Issuer
}

func NewService(repo *repository.Repository, config *utils.Config, providers Providers, log *zap.Logger) *Service {
	tokens := token.NewIssuer(
		config.JWT.Secret,
		config.JWT.Issuer,
		time.Duration(config.JWT.ExpiryHours)*time.Hour,
	)

	return &Service{
		Auth:  NewAuthService(repo, config, providers, tokens, log),
		Token: tokens,
	}
}
