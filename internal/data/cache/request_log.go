package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ repository.OTPRequestRepository = (*RequestLog)(nil)

// RequestLog is a sliding window per identifier: a sorted set scored by unix ms.
type RequestLog struct {
	client *redis.Client
	prefix string
	window time.Duration
	log    *zap.Logger
}

func NewRequestLog(client *redis.Client, prefix string, window time.Duration, log *zap.Logger) *RequestLog {
	return &RequestLog{
		client: client,
		prefix: prefix,
		window: window,
		log:    log.With(zap.String("repository", "otp_request_redis")),
	}
}

func (l *RequestLog) Create(ctx context.Context, req *entity.OTPRequest) error {
	key := l.key(req.Identifier)

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(req.CreatedAt.UnixMilli()),
		Member: req.ID.String(),
	})
	pipe.PExpire(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Error("Failed to record OTP request", zap.Error(err), zap.String("identifier", req.Identifier))
		return fmt.Errorf("record OTP request for %s: %w", req.Identifier, err)
	}

	return nil
}

// CountSince drops entries at or before since and counts the rest.
func (l *RequestLog) CountSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	key := l.key(identifier)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(since.UnixMilli(), 10))
	count := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Error("Failed to count OTP requests", zap.Error(err), zap.String("identifier", identifier))
		return 0, fmt.Errorf("count OTP requests for %s: %w", identifier, err)
	}

	return int(count.Val()), nil
}

func (l *RequestLog) key(identifier string) string {
	return fmt.Sprintf("%s:otp_requests:%s", l.prefix, identifier)
}
