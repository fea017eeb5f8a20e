package wire

import (
	"otp-auth/internal/adaptor"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/usecase"
	"otp-auth/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	repo *repository.Repository,
	service *usecase.Service,
	log *zap.Logger,
) {
	r.Route("/api/auth", func(r chi.Router) {
		// ==================== PUBLIC ROUTES ====================
		r.Post("/otp/request", authHandler.RequestOTP)
		r.Post("/otp/verify", authHandler.VerifyOTP)

		// ==================== PROTECTED ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(service.Token, repo.Session, log))
			r.Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
		})
	})
}
