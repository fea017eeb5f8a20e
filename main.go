// main.go
package main

import (
	"context"
	"log"
	"time"

	"otp-auth/cmd"
	"otp-auth/internal/data/cache"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/provider"
	"otp-auth/internal/provider/smtp"
	"otp-auth/internal/provider/workos"
	"otp-auth/internal/usecase"
	"otp-auth/internal/wire"
	"otp-auth/pkg/database"
	"otp-auth/pkg/events"
	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("env", config.App.Env),
		zap.String("store", config.App.StoreDriver),
		zap.Bool("debug", config.App.Debug),
	)
	if config.OTP.DemoPhoneMode {
		logger.Warn("Demo phone mode is on, every phone login uses the fixed code")
	}

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}
	cancel()

	logger.Info("Database connected successfully")

	pingers := map[string]wire.Pinger{"postgres": db}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// OTP store and request log can live in Redis instead
	if config.App.StoreDriver == utils.StoreDriverRedis {
		rdb, err := database.InitRedis(config.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		window := time.Duration(config.OTP.RateWindowMinutes) * time.Minute
		repos.OTP = cache.NewOTPStore(rdb, config.Redis.KeyPrefix, logger)
		repos.OTPRequest = cache.NewRequestLog(rdb, config.Redis.KeyPrefix, window, logger)
		pingers["redis"] = wire.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

		logger.Info("Redis connected successfully", zap.String("addr", config.Redis.Addr))
	}

	providers := usecase.Providers{Mailer: provider.NopMailer{}, Events: events.Nop{}}

	if config.Email.Host != "" {
		mailer, err := smtp.New(config.Email)
		if err != nil {
			logger.Fatal("Failed to init SMTP pool", zap.Error(err))
		}
		defer mailer.Close()
		providers.Mailer = mailer
	} else {
		logger.Warn("SMTP_HOST not set, e-mail codes will only be logged")
	}

	if config.WorkOS.APIKey != "" {
		providers.Challenger = workos.New(config.WorkOS)
	} else {
		logger.Warn("WORKOS_API_KEY not set, phone codes will only be logged")
	}

	if len(config.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(config.Kafka.Brokers, config.Kafka.Topic, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("Failed to close event publisher", zap.Error(err))
			}
		}()
		providers.Events = publisher
	}

	service := usecase.NewService(repos, config, providers, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, service, config, logger, pingers)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server error", zap.Error(err))
	}
}
