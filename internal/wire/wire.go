package wire

import (
	"context"
	"net/http"
	"time"

	"otp-auth/internal/adaptor"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/usecase"
	"otp-auth/pkg/middleware"
	"otp-auth/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger is a backing store checked by /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// App holds the wired router
type App struct {
	Router *chi.Mux
}

// Wiring builds handlers on top of the service and mounts every route
func Wiring(
	repo *repository.Repository,
	service *usecase.Service,
	config *utils.Config,
	logger *zap.Logger,
	pingers map[string]Pinger,
) *App {
	handler := adaptor.NewHandler(service, config, logger)

	router := setupRouter(handler, repo, service, config, logger, pingers)

	return &App{
		Router: router,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	service *usecase.Service,
	config *utils.Config,
	logger *zap.Logger,
	pingers map[string]Pinger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins))

	// Apply routes
	wireAuth(r, handler.Auth, repo, service, logger)

	r.Get("/health", health(pingers, logger))

	return r
}

func health(pingers map[string]Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
				utils.ResponseJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse{Error: name + " unavailable"})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
