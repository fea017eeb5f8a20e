package adaptor

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"otp-auth/internal/dto/request"
	"otp-auth/internal/usecase"
	"otp-auth/pkg/middleware"
	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

type AuthHandler struct {
	service      usecase.AuthService
	secureCookie bool
	log          *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, secureCookie bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		secureCookie: secureCookie,
		log:          log.With(zap.String("handler", "auth")),
	}
}

// RequestOTP handles POST /api/auth/otp/request
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req request.RequestOTPRequest

	// Decode request body
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.RequestOTP(r.Context(), &req); err != nil {
		h.handleServiceError(w, err, "request OTP")
		return
	}

	utils.ResponseSuccess(w, nil)
}

// VerifyOTP handles POST /api/auth/otp/verify
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body")
		return
	}

	client := usecase.ClientInfo{
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}

	response, err := h.service.VerifyOTP(r.Context(), &req, client)
	if err != nil {
		h.handleServiceError(w, err, "verify OTP")
		return
	}

	h.setSessionCookie(w, response.Token, response.ExpiresAt)
	utils.ResponseSuccess(w, response)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	response, err := h.service.Me(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err, "get current user")
		return
	}

	utils.ResponseSuccess(w, response)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := utils.GetSessionIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		h.handleServiceError(w, err, "logout")
		return
	}

	h.clearSessionCookie(w)
	utils.ResponseSuccess(w, nil)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// handleServiceError maps usecase errors to responses. Code failures stay vague on purpose.
func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var invalid *usecase.InvalidCodeError

	switch {
	case errors.Is(err, usecase.ErrValidation):
		h.log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error())

	case errors.Is(err, usecase.ErrRateLimited):
		utils.ResponseTooManyRequests(w, "Too many code requests. Please try again later.")

	case errors.Is(err, usecase.ErrInvalidOrExpired):
		utils.ResponseBadRequest(w, "Invalid or expired code")

	case errors.Is(err, usecase.ErrTooManyAttempts):
		utils.ResponseTooManyRequests(w, "Too many verification attempts. Please request a new code.")

	case errors.As(err, &invalid):
		utils.ResponseInvalidCode(w, "Invalid code", invalid.Remaining)

	case errors.Is(err, usecase.ErrUnauthorized):
		utils.ResponseUnauthorized(w, "Authentication required")

	default:
		h.log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error", err.Error())
	}
}

// clientIP is RemoteAddr without the port. chi's RealIP runs first when enabled.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
