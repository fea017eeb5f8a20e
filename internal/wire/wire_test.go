package wire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"otp-auth/internal/data/repository"
	"otp-auth/internal/usecase"
	"otp-auth/pkg/utils"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp(t *testing.T, pingers map[string]Pinger) *App {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	config := &utils.Config{
		App: utils.AppConfig{Name: "otp-auth", Env: "test", CORSOrigins: []string{"*"}},
		JWT: utils.JWTConfig{Secret: "secret", ExpiryHours: 1, Issuer: "otp-auth"},
		OTP: utils.OTPConfig{ExpiryMinutes: 10, MaxAttempts: 5, RateWindowMinutes: 10, RateMaxRequests: 3},
		Phone: utils.PhoneConfig{DefaultRegion: "IN", PlaceholderDomain: "phone.placeholder"},
	}

	repo := repository.NewRepository(mock, zap.NewNop())
	service := usecase.NewService(repo, config, usecase.Providers{}, zap.NewNop())
	return Wiring(repo, service, config, zap.NewNop(), pingers)
}

func TestHealth(t *testing.T) {
	app := newApp(t, map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
	})

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHealthDependencyDown(t *testing.T) {
	app := newApp(t, map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"redis unavailable"}`, rec.Body.String())
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := newApp(t, nil)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/auth/logout"},
	} {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestPublicRouteValidation(t *testing.T) {
	app := newApp(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/otp/request", strings.NewReader(`{}`))
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation failed: email or phone is required"}`, rec.Body.String())
}
