package utils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "test-secret")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", config.App.Port)
	assert.Equal(t, StoreDriverPostgres, config.App.StoreDriver)
	assert.Equal(t, 10, config.OTP.ExpiryMinutes)
	assert.Equal(t, 5, config.OTP.MaxAttempts)
	assert.Equal(t, 10, config.OTP.RateWindowMinutes)
	assert.Equal(t, 3, config.OTP.RateMaxRequests)
	assert.False(t, config.OTP.DemoPhoneMode)
	assert.Equal(t, 168, config.JWT.ExpiryHours)
	assert.Equal(t, "IN", config.Phone.DefaultRegion)
	assert.Equal(t, "phone.placeholder", config.Phone.PlaceholderDomain)
	assert.Equal(t, []string{"*"}, config.App.CORSOrigins)
	assert.Empty(t, config.Kafka.Brokers)
}

func TestLoadConfigFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverRedis, config.App.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, config.Kafka.Brokers)
	assert.Equal(t, 3, config.OTP.MaxAttempts)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("demo mode in production", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("APP_ENV", "production")
		t.Setenv("OTP_DEMO_PHONE_MODE", "true")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "OTP_DEMO_PHONE_MODE")
	})

	t.Run("demo code must be six digits", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("OTP_DEMO_PHONE_MODE", "true")
		for _, code := range []string{"abcdef", "12345", "1234567", "12 456"} {
			t.Setenv("OTP_DEMO_PHONE_CODE", code)
			_, err := LoadConfig()
			assert.ErrorContains(t, err, "OTP_DEMO_PHONE_CODE", code)
		}
	})

	t.Run("demo code accepted", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("OTP_DEMO_PHONE_MODE", "true")
		t.Setenv("OTP_DEMO_PHONE_CODE", "654321")
		config, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "654321", config.OTP.DemoPhoneCode)
	})

	t.Run("unknown store driver", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("STORE_DRIVER", "mongo")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "STORE_DRIVER")
	})
}
