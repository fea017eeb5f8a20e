package usecase

import (
	"context"
	"fmt"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"
	"otp-auth/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdentityService finds or creates the user behind a verified identifier.
// factorID is the SMS factor the phone was enrolled under, "" for none.
type IdentityService interface {
	Resolve(ctx context.Context, id Identifier, factorID string) (user *entity.User, created bool, err error)
}

type identityService struct {
	users             repository.UserRepository
	placeholderDomain string
	log               *zap.Logger
	nowF              func() time.Time
}

func NewIdentityService(users repository.UserRepository, config *utils.Config, log *zap.Logger) IdentityService {
	return &identityService{
		users:             users,
		placeholderDomain: config.Phone.PlaceholderDomain,
		log:               log.With(zap.String("service", "identity")),
		nowF:              time.Now,
	}
}

func (s *identityService) Resolve(ctx context.Context, id Identifier, factorID string) (*entity.User, bool, error) {
	if id.IsPhone() {
		return s.resolvePhone(ctx, id.Value, factorID)
	}
	return s.resolveEmail(ctx, id.Value)
}

func (s *identityService) resolveEmail(ctx context.Context, email string) (*entity.User, bool, error) {
	// 1. Existing user
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("find user by email: %w", err)
	}
	if user != nil {
		return user, false, nil
	}

	// 2. First login
	user = s.newUser()
	user.Email = &email

	return s.create(ctx, user, func() (*entity.User, error) { return s.users.FindByEmail(ctx, email) })
}

func (s *identityService) resolvePhone(ctx context.Context, phone, factorID string) (*entity.User, bool, error) {
	// 1. Existing user, mark the phone verified and fill a missing factor
	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, false, fmt.Errorf("find user by phone: %w", err)
	}
	if user != nil {
		missingFactor := factorID != "" && (user.WorkOSFactorID == nil || *user.WorkOSFactorID == "")
		if !user.PhoneVerified || missingFactor {
			user.PhoneVerified = true
			if missingFactor {
				user.WorkOSFactorID = &factorID
			}
			user.UpdatedAt = s.nowF()
			if err := s.users.Update(ctx, user); err != nil {
				return nil, false, fmt.Errorf("mark phone verified: %w", err)
			}
		}
		return user, false, nil
	}

	// 2. Phone-only signup gets a placeholder e-mail to keep email unique
	placeholder := fmt.Sprintf("%s@%s", utils.PhoneDigits(phone), s.placeholderDomain)
	user = s.newUser()
	user.Phone = &phone
	user.PhoneVerified = true
	user.Email = &placeholder
	if factorID != "" {
		user.WorkOSFactorID = &factorID
	}

	return s.create(ctx, user, func() (*entity.User, error) { return s.users.FindByPhone(ctx, phone) })
}

func (s *identityService) newUser() *entity.User {
	now := s.nowF()
	return &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Role: entity.RoleUser,
	}
}

// create inserts user; when a concurrent first login won the insert, refind returns theirs.
func (s *identityService) create(ctx context.Context, user *entity.User, refind func() (*entity.User, error)) (*entity.User, bool, error) {
	err := s.users.Create(ctx, user)
	if err == nil {
		s.log.Info("User created", zap.String("user_id", user.ID.String()))
		return user, true, nil
	}

	existing, findErr := refind()
	if findErr == nil && existing != nil {
		return existing, false, nil
	}
	return nil, false, fmt.Errorf("create user: %w", err)
}
