package cache

import (
	"context"
	"testing"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"

	"github.com/alicebob/miniredis"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) *redis.Client {
	t.Helper()
	rd, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: rd.Addr()})
	t.Cleanup(func() {
		client.Close()
		rd.Close()
	})
	return client
}

func newStore(t *testing.T, now *time.Time) *OTPStore {
	s := NewOTPStore(setup(t), "test", zap.NewNop())
	s.nowF = func() time.Time { return *now }
	return s
}

func newOTP(identifier, code string, now time.Time) *entity.OTP {
	return &entity.OTP{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		Identifier: identifier,
		Code:       code,
		ExpiresAt:  now.Add(10 * time.Minute),
	}
}

func TestOTPStoreCreateAndFind(t *testing.T) {
	now := baseTime
	s := newStore(t, &now)
	ctx := context.Background()

	challenge := "auth_challenge_01"
	otp := newOTP("+919876543210", "123456", now)
	otp.ChallengeID = &challenge
	require.NoError(t, s.Create(ctx, otp))

	got, err := s.FindActive(ctx, "+919876543210")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, otp.ID, got.ID)
	assert.Equal(t, "123456", got.Code)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, otp.ExpiresAt.UnixMilli(), got.ExpiresAt.UnixMilli())
	require.NotNil(t, got.ChallengeID)
	assert.Equal(t, challenge, *got.ChallengeID)

	missing, err := s.FindActive(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOTPStoreAttachDelivery(t *testing.T) {
	now := baseTime
	s := newStore(t, &now)
	ctx := context.Background()

	otp := newOTP("+919876543210", "482913", now)
	require.NoError(t, s.Create(ctx, otp))
	require.NoError(t, s.AttachDelivery(ctx, otp.ID, "auth_challenge_02", "auth_factor_02"))

	got, err := s.FindActive(ctx, "+919876543210")
	require.NoError(t, err)
	require.True(t, got.HasChallenge())
	assert.Equal(t, "auth_challenge_02", *got.ChallengeID)
	assert.Equal(t, "auth_factor_02", got.EnrolledFactor())

	// factor only, the challenge could not be created
	require.NoError(t, s.AttachDelivery(ctx, otp.ID, "", "auth_factor_03"))
	got, err = s.FindActive(ctx, "+919876543210")
	require.NoError(t, err)
	assert.False(t, got.HasChallenge())
	assert.Equal(t, "auth_factor_03", got.EnrolledFactor())

	assert.ErrorIs(t, s.AttachDelivery(ctx, uuid.New(), "x", ""), repository.ErrOTPNotFound)
}

func TestOTPStoreDeleteReportsReadError(t *testing.T) {
	now := baseTime
	s := newStore(t, &now)
	ctx := context.Background()

	otp := newOTP("alice@example.com", "654321", now)
	require.NoError(t, s.Create(ctx, otp))

	// hash replaced by a plain string, HGET fails with WRONGTYPE
	require.NoError(t, s.client.Set(ctx, s.key("alice@example.com"), "garbage", 0).Err())

	err := s.Delete(ctx, otp.ID)
	require.Error(t, err)
	assert.ErrorContains(t, err, "delete OTP")

	exists, err := s.client.Exists(ctx, s.idKey(otp.ID.String())).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "nothing deleted on a failed read")
}

func TestOTPStoreExpiry(t *testing.T) {
	now := baseTime
	s := newStore(t, &now)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newOTP("alice@example.com", "654321", now)))

	now = baseTime.Add(10*time.Minute + time.Second)
	got, err := s.FindActive(ctx, "alice@example.com")
	assert.NoError(t, err)
	assert.Nil(t, got, "expired record must not be returned")
}

func TestOTPStoreDeleteActiveReplaces(t *testing.T) {
	now := baseTime
	s := newStore(t, &now)
	ctx := context.Background()

	first := newOTP("alice@example.com", "111111", now)
	require.NoError(t, s.Create(ctx, first))

	require.NoError(t, s.DeleteActive(ctx, "alice@example.com"))
	require.NoError(t, s.DeleteActive(ctx, "alice@example.com"), "idempotent")

	second := newOTP("alice@example.com", "222222", now)
	require.NoError(t, s.Create(ctx, second))

	got, err := s.FindActive(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)

	_, err = s.IncrementAttempts(ctx, first.ID)
	assert.ErrorIs(t, err, repository.ErrOTPNotFound)
}

func TestOTPStoreIncrementAttempts(t *testing.T) {
	now := baseTime
	s := newStore(t, &now)
	ctx := context.Background()

	otp := newOTP("alice@example.com", "654321", now)
	require.NoError(t, s.Create(ctx, otp))

	for want := 1; want <= 3; want++ {
		attempts, err := s.IncrementAttempts(ctx, otp.ID)
		require.NoError(t, err)
		assert.Equal(t, want, attempts)
	}

	got, err := s.FindActive(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts)
}

func TestOTPStoreDelete(t *testing.T) {
	now := baseTime
	s := newStore(t, &now)
	ctx := context.Background()

	otp := newOTP("alice@example.com", "654321", now)
	require.NoError(t, s.Create(ctx, otp))

	require.NoError(t, s.Delete(ctx, otp.ID))
	require.NoError(t, s.Delete(ctx, otp.ID), "idempotent")

	got, err := s.FindActive(ctx, "alice@example.com")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = s.IncrementAttempts(ctx, otp.ID)
	assert.ErrorIs(t, err, repository.ErrOTPNotFound)
}

func TestRequestLog(t *testing.T) {
	l := NewRequestLog(setup(t), "test", 10*time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Create(ctx, &entity.OTPRequest{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: baseTime.Add(time.Duration(i) * time.Minute)},
			Identifier: "alice@example.com",
		}))
	}

	count, err := l.CountSince(ctx, "alice@example.com", baseTime.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// window slid past the first request
	count, err = l.CountSince(ctx, "alice@example.com", baseTime)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = l.CountSince(ctx, "bob@example.com", baseTime)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
