package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/dto/request"
	"otp-auth/internal/dto/response"
	"otp-auth/pkg/events"
	"otp-auth/pkg/token"
	"otp-auth/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientInfo is stored on the session row.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

type AuthService interface {
	RequestOTP(ctx context.Context, req *request.RequestOTPRequest) error
	VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest, client ClientInfo) (*response.VerifyOTPResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*response.MeResponse, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
}

type authService struct {
	repo     *repository.Repository
	config   *utils.Config
	limiter  *RateLimiter
	codes    *CodeGenerator
	channels map[Channel]DeliveryChannel
	verifier *Verifier
	identity IdentityService
	tokens   *token.Issuer
	events   events.Publisher
	log      *zap.Logger
	nowF     func() time.Time
}

func NewAuthService(
	repo *repository.Repository,
	config *utils.Config,
	providers Providers,
	tokens *token.Issuer,
	log *zap.Logger,
) AuthService {
	publisher := providers.Events
	if publisher == nil {
		publisher = events.Nop{}
	}

	return &authService{
		repo:    repo,
		config:  config,
		limiter: NewRateLimiter(repo.OTPRequest, time.Duration(config.OTP.RateWindowMinutes)*time.Minute, config.OTP.RateMaxRequests),
		codes:   NewCodeGenerator(config.OTP),
		channels: map[Channel]DeliveryChannel{
			ChannelEmail: NewEmailChannel(providers.Mailer, config.App.Name, log),
			ChannelPhone: NewPhoneChannel(providers.Challenger, repo.User, log),
		},
		verifier: NewVerifier(repo.OTP, providers.Challenger, config.OTP.MaxAttempts, log),
		identity: NewIdentityService(repo.User, config, log),
		tokens:   tokens,
		events:   publisher,
		log:      log.With(zap.String("service", "auth")),
		nowF:     time.Now,
	}
}

func (s *authService) RequestOTP(ctx context.Context, req *request.RequestOTPRequest) error {
	// 1. Validate
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Request OTP validation failed", zap.Any("errors", errs))
		return validationError("%s", utils.FormatValidationErrors(errs))
	}
	id, err := ParseIdentifier(req.Email, req.Phone, s.config.Phone.DefaultRegion)
	if err != nil {
		return err
	}

	// 2. Rate limit
	if err := s.limiter.Allow(ctx, id.Value); err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.log.Warn("OTP request rate limited", zap.String("identifier", id.Value))
		}
		return err
	}

	// 3. Generate
	code, err := s.codes.Generate(id)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	// 4. Replace any pending code
	if err := s.repo.OTP.DeleteActive(ctx, id.Value); err != nil {
		return err
	}

	now := s.nowF()
	otp := &entity.OTP{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		Identifier: id.Value,
		Code:       code,
		ExpiresAt:  now.Add(time.Duration(s.config.OTP.ExpiryMinutes) * time.Minute),
	}
	if err := s.repo.OTP.Create(ctx, otp); err != nil {
		return err
	}

	// 5. Count toward the window
	if err := s.limiter.Record(ctx, id.Value); err != nil {
		s.log.Error("Failed to record OTP request", zap.Error(err), zap.String("identifier", id.Value))
	}

	// 6. Deliver, channel failures are soft
	result := s.channels[id.Channel].Send(ctx, id, code, otp.ExpiresAt)
	if result.ChallengeID != nil || result.FactorID != nil {
		if err := s.repo.OTP.AttachDelivery(ctx, otp.ID, deref(result.ChallengeID), deref(result.FactorID)); err != nil {
			return err
		}
	}

	s.events.Publish(ctx, events.Event{
		Type:       events.TypeOTPRequested,
		Identifier: id.Value,
		Channel:    string(id.Channel),
		Delivered:  events.Bool(result.Delivered),
		Challenge:  events.Bool(result.ChallengeID != nil),
	})

	s.log.Info("OTP issued",
		zap.String("identifier", id.Value),
		zap.String("channel", string(id.Channel)),
		zap.Bool("delivered", result.Delivered),
		zap.Bool("challenge", result.ChallengeID != nil),
	)
	return nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest, client ClientInfo) (*response.VerifyOTPResponse, error) {
	// 1. Validate
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Verify OTP validation failed", zap.Any("errors", errs))
		return nil, validationError("%s", utils.FormatValidationErrors(errs))
	}
	id, err := ParseIdentifier(req.Email, req.Phone, s.config.Phone.DefaultRegion)
	if err != nil {
		return nil, err
	}

	// 2. Check the code
	otp, err := s.verifier.Verify(ctx, id, req.Code)
	if err != nil {
		s.publishFailure(ctx, id, err)
		return nil, err
	}

	// 3. Find or create the user
	user, created, err := s.identity.Resolve(ctx, id, otp.EnrolledFactor())
	if err != nil {
		return nil, err
	}

	// 4. Session
	signed, expiresAt, err := s.createSession(ctx, user, id, client)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.Event{
		Type:       events.TypeOTPVerified,
		Identifier: id.Value,
		UserID:     user.ID.String(),
		NewUser:    events.Bool(created),
	})

	s.log.Info("OTP verified",
		zap.String("identifier", id.Value),
		zap.String("user_id", user.ID.String()),
		zap.Bool("new_user", created),
	)

	return &response.VerifyOTPResponse{
		Success:   true,
		User:      response.UserToResponse(user),
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*response.MeResponse, error) {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	return &response.MeResponse{Success: true, User: response.UserToResponse(user)}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.repo.Session.Revoke(ctx, sessionID); err != nil {
		return err
	}
	s.log.Info("Session revoked", zap.String("session_id", sessionID.String()))
	return nil
}

func (s *authService) createSession(ctx context.Context, user *entity.User, id Identifier, client ClientInfo) (string, time.Time, error) {
	sessionID := uuid.New()

	signed, expiresAt, err := s.tokens.Issue(sessionID.String(), user.ID.String(), id.Value, string(user.Role))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	session := &entity.Session{
		BaseSimple: entity.BaseSimple{
			ID:        sessionID,
			CreatedAt: s.nowF(),
		},
		UserID:    user.ID,
		UserAgent: optional(client.UserAgent),
		IPAddress: optional(client.IPAddress),
		ExpiresAt: expiresAt,
	}
	if err := s.repo.Session.Create(ctx, session); err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func (s *authService) publishFailure(ctx context.Context, id Identifier, err error) {
	var reason string
	var invalid *InvalidCodeError
	switch {
	case errors.Is(err, ErrInvalidOrExpired):
		reason = events.ReasonInvalidOrExpired
	case errors.Is(err, ErrTooManyAttempts):
		reason = events.ReasonTooManyAttempts
	case errors.As(err, &invalid):
		reason = events.ReasonInvalidCode
	default:
		return
	}

	s.log.Warn("OTP verification failed", zap.String("identifier", id.Value), zap.String("reason", reason))
	s.events.Publish(ctx, events.Event{Type: events.TypeOTPFailed, Identifier: id.Value, Reason: reason})
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
