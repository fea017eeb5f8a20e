package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Email    EmailConfig
	OTP      OTPConfig
	Phone    PhoneConfig
	WorkOS   WorkOSConfig
	Kafka    KafkaConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Env         string
	Debug       bool
	LogPath     string
	StoreDriver string
	CORSOrigins []string
}

// IsProduction reports whether APP_ENV is production.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
	Issuer      string
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Auth     string
	TLS      string
	From     string
	MaxConns int
}

type OTPConfig struct {
	ExpiryMinutes     int
	MaxAttempts       int
	RateWindowMinutes int
	RateMaxRequests   int
	DemoPhoneMode     bool
	DemoPhoneCode     string
}

type PhoneConfig struct {
	DefaultRegion     string
	PlaceholderDomain string
}

type WorkOSConfig struct {
	APIKey      string
	BaseURL     string
	SMSTemplate string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "otp-auth")
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "otp-auth")
	v.SetDefault("JWT_EXPIRY_HOURS", 168)
	v.SetDefault("JWT_ISSUER", "otp-auth")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_AUTH", "plain")
	v.SetDefault("SMTP_TLS", "STARTTLS")
	v.SetDefault("SMTP_MAX_CONNS", 5)
	v.SetDefault("OTP_EXPIRY_MINUTES", 10)
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_RATE_WINDOW_MINUTES", 10)
	v.SetDefault("OTP_RATE_MAX_REQUESTS", 3)
	v.SetDefault("OTP_DEMO_PHONE_MODE", false)
	v.SetDefault("OTP_DEMO_PHONE_CODE", "123456")
	v.SetDefault("PHONE_DEFAULT_REGION", "IN")
	v.SetDefault("PHONE_PLACEHOLDER_DOMAIN", "phone.placeholder")
	v.SetDefault("WORKOS_BASE_URL", "https://api.workos.com")
	v.SetDefault("WORKOS_SMS_TEMPLATE", "Your login code is {{code}}")
	v.SetDefault("KAFKA_AUTH_TOPIC", "auth-events")

	// .env is optional, real environment always wins
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Port:        v.GetString("PORT"),
			Env:         v.GetString("APP_ENV"),
			Debug:       v.GetBool("DEBUG"),
			LogPath:     v.GetString("LOG_PATH"),
			StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
			CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:      v.GetString("REDIS_ADDR"),
			Password:  v.GetString("REDIS_PASSWORD"),
			DB:        v.GetInt("REDIS_DB"),
			KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
			Issuer:      v.GetString("JWT_ISSUER"),
		},
		Email: EmailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			Auth:     v.GetString("SMTP_AUTH"),
			TLS:      v.GetString("SMTP_TLS"),
			From:     v.GetString("EMAIL_FROM"),
			MaxConns: v.GetInt("SMTP_MAX_CONNS"),
		},
		OTP: OTPConfig{
			ExpiryMinutes:     v.GetInt("OTP_EXPIRY_MINUTES"),
			MaxAttempts:       v.GetInt("OTP_MAX_ATTEMPTS"),
			RateWindowMinutes: v.GetInt("OTP_RATE_WINDOW_MINUTES"),
			RateMaxRequests:   v.GetInt("OTP_RATE_MAX_REQUESTS"),
			DemoPhoneMode:     v.GetBool("OTP_DEMO_PHONE_MODE"),
			DemoPhoneCode:     v.GetString("OTP_DEMO_PHONE_CODE"),
		},
		Phone: PhoneConfig{
			DefaultRegion:     strings.ToUpper(v.GetString("PHONE_DEFAULT_REGION")),
			PlaceholderDomain: v.GetString("PHONE_PLACEHOLDER_DOMAIN"),
		},
		WorkOS: WorkOSConfig{
			APIKey:      v.GetString("WORKOS_API_KEY"),
			BaseURL:     strings.TrimRight(v.GetString("WORKOS_BASE_URL"), "/"),
			SMSTemplate: v.GetString("WORKOS_SMS_TEMPLATE"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_AUTH_TOPIC"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.App.StoreDriver != StoreDriverPostgres && c.App.StoreDriver != StoreDriverRedis {
		return fmt.Errorf("config: STORE_DRIVER must be %q or %q, got %q",
			StoreDriverPostgres, StoreDriverRedis, c.App.StoreDriver)
	}
	if c.OTP.DemoPhoneMode && c.App.IsProduction() {
		return errors.New("config: OTP_DEMO_PHONE_MODE must not be true when APP_ENV=production")
	}
	if c.OTP.DemoPhoneMode && !isSixDigits(c.OTP.DemoPhoneCode) {
		return errors.New("config: OTP_DEMO_PHONE_CODE must be 6 digits")
	}
	if c.OTP.ExpiryMinutes <= 0 || c.OTP.MaxAttempts <= 0 ||
		c.OTP.RateWindowMinutes <= 0 || c.OTP.RateMaxRequests <= 0 {
		return errors.New("config: OTP expiry, attempts and rate limit values must be positive")
	}
	return nil
}

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
