package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ repository.OTPRepository = (*OTPStore)(nil)

// OTPStore keeps one hash per identifier plus an id -> identifier index key.
// Expiry is checked against expires_at, the key TTL only reclaims memory.
type OTPStore struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
	nowF   func() time.Time
}

func NewOTPStore(client *redis.Client, prefix string, log *zap.Logger) *OTPStore {
	return &OTPStore{
		client: client,
		prefix: prefix,
		log:    log.With(zap.String("repository", "otp_redis")),
		nowF:   time.Now,
	}
}

func (s *OTPStore) DeleteActive(ctx context.Context, identifier string) error {
	key := s.key(identifier)

	id, err := s.client.HGet(ctx, key, "id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Error("Failed to read OTP id", zap.Error(err), zap.String("identifier", identifier))
		return fmt.Errorf("delete OTPs for %s: %w", identifier, err)
	}

	keys := []string{key}
	if id != "" {
		keys = append(keys, s.idKey(id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.log.Error("Failed to delete OTPs", zap.Error(err), zap.String("identifier", identifier))
		return fmt.Errorf("delete OTPs for %s: %w", identifier, err)
	}

	return nil
}

func (s *OTPStore) Create(ctx context.Context, otp *entity.OTP) error {
	key := s.key(otp.Identifier)

	ttl := otp.ExpiresAt.Sub(s.nowF())
	if ttl < time.Second {
		ttl = time.Second
	}

	challengeID, factorID := "", ""
	if otp.ChallengeID != nil {
		challengeID = *otp.ChallengeID
	}
	if otp.FactorID != nil {
		factorID = *otp.FactorID
	}

	pipe := s.client.TxPipeline()
	pipe.HMSet(ctx, key,
		"id", otp.ID.String(),
		"identifier", otp.Identifier,
		"code", otp.Code,
		"expires_at", strconv.FormatInt(otp.ExpiresAt.UnixMilli(), 10),
		"challenge_id", challengeID,
		"factor_id", factorID,
		"attempts", strconv.Itoa(otp.Attempts),
		"verified", strconv.FormatBool(otp.Verified),
		"created_at", strconv.FormatInt(otp.CreatedAt.UnixMilli(), 10),
	)
	pipe.PExpire(ctx, key, ttl)
	pipe.Set(ctx, s.idKey(otp.ID.String()), otp.Identifier, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("Failed to create OTP", zap.Error(err), zap.String("identifier", otp.Identifier))
		return fmt.Errorf("create OTP for %s: %w", otp.Identifier, err)
	}

	return nil
}

func (s *OTPStore) FindActive(ctx context.Context, identifier string) (*entity.OTP, error) {
	fields, err := s.client.HGetAll(ctx, s.key(identifier)).Result()
	if err != nil {
		s.log.Error("Failed to find active OTP", zap.Error(err), zap.String("identifier", identifier))
		return nil, fmt.Errorf("find active OTP for %s: %w", identifier, err)
	}

	otp, err := parseOTP(fields)
	if err != nil {
		s.log.Error("Corrupt OTP record", zap.Error(err), zap.String("identifier", identifier))
		return nil, fmt.Errorf("find active OTP for %s: %w", identifier, err)
	}
	if otp == nil || otp.Verified || otp.IsExpired(s.nowF()) {
		return nil, nil
	}

	return otp, nil
}

func (s *OTPStore) AttachDelivery(ctx context.Context, id uuid.UUID, challengeID, factorID string) error {
	identifier, err := s.client.Get(ctx, s.idKey(id.String())).Result()
	if errors.Is(err, redis.Nil) {
		return repository.ErrOTPNotFound
	}
	if err != nil {
		s.log.Error("Failed to resolve OTP id", zap.Error(err), zap.String("otp_id", id.String()))
		return fmt.Errorf("attach delivery to OTP %s: %w", id.String(), err)
	}

	key := s.key(identifier)
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "id").Result()
		if errors.Is(err, redis.Nil) {
			return repository.ErrOTPNotFound
		}
		if err != nil {
			return err
		}
		if current != id.String() {
			return repository.ErrOTPNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HMSet(ctx, key, "challenge_id", challengeID, "factor_id", factorID)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) || errors.Is(err, redis.TxFailedErr) {
			return repository.ErrOTPNotFound
		}
		s.log.Error("Failed to attach delivery to OTP", zap.Error(err), zap.String("otp_id", id.String()))
		return fmt.Errorf("attach delivery to OTP %s: %w", id.String(), err)
	}

	return nil
}

func (s *OTPStore) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	identifier, err := s.client.Get(ctx, s.idKey(id.String())).Result()
	if errors.Is(err, redis.Nil) {
		return 0, repository.ErrOTPNotFound
	}
	if err != nil {
		s.log.Error("Failed to resolve OTP id", zap.Error(err), zap.String("otp_id", id.String()))
		return 0, fmt.Errorf("increment attempts for OTP %s: %w", id.String(), err)
	}

	key := s.key(identifier)
	var attempts *redis.IntCmd

	// Abort if the record was replaced or removed after the id lookup.
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "id").Result()
		if errors.Is(err, redis.Nil) {
			return repository.ErrOTPNotFound
		}
		if err != nil {
			return err
		}
		if current != id.String() {
			return repository.ErrOTPNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			attempts = pipe.HIncrBy(ctx, key, "attempts", 1)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) || errors.Is(err, redis.TxFailedErr) {
			return 0, repository.ErrOTPNotFound
		}
		s.log.Error("Failed to increment OTP attempts", zap.Error(err), zap.String("otp_id", id.String()))
		return 0, fmt.Errorf("increment attempts for OTP %s: %w", id.String(), err)
	}

	return int(attempts.Val()), nil
}

func (s *OTPStore) Delete(ctx context.Context, id uuid.UUID) error {
	idKey := s.idKey(id.String())

	identifier, err := s.client.Get(ctx, idKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		s.log.Error("Failed to resolve OTP id", zap.Error(err), zap.String("otp_id", id.String()))
		return fmt.Errorf("delete OTP %s: %w", id.String(), err)
	}

	keys := []string{idKey}
	key := s.key(identifier)

	// The hash may already belong to a newer code for the same identifier.
	current, err := s.client.HGet(ctx, key, "id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Error("Failed to read OTP id", zap.Error(err), zap.String("otp_id", id.String()))
		return fmt.Errorf("delete OTP %s: %w", id.String(), err)
	}
	if current == id.String() {
		keys = append(keys, key)
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.log.Error("Failed to delete OTP", zap.Error(err), zap.String("otp_id", id.String()))
		return fmt.Errorf("delete OTP %s: %w", id.String(), err)
	}

	return nil
}

func (s *OTPStore) key(identifier string) string {
	return fmt.Sprintf("%s:otp:%s", s.prefix, identifier)
}

func (s *OTPStore) idKey(id string) string {
	return fmt.Sprintf("%s:otp:id:%s", s.prefix, id)
}

// parseOTP returns nil for an empty or partial hash
func parseOTP(fields map[string]string) (*entity.OTP, error) {
	if fields["id"] == "" || fields["code"] == "" {
		return nil, nil
	}

	id, err := uuid.Parse(fields["id"])
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("parse attempts: %w", err)
	}
	verified, _ := strconv.ParseBool(fields["verified"])

	otp := &entity.OTP{
		BaseSimple: entity.BaseSimple{ID: id, CreatedAt: time.UnixMilli(createdAt)},
		Identifier: fields["identifier"],
		Code:       fields["code"],
		ExpiresAt:  time.UnixMilli(expiresAt),
		Attempts:   attempts,
		Verified:   verified,
	}
	if c := fields["challenge_id"]; c != "" {
		otp.ChallengeID = &c
	}
	if f := fields["factor_id"]; f != "" {
		otp.FactorID = &f
	}

	return otp, nil
}
