package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/provider"
	"otp-auth/pkg/events"

	"github.com/google/uuid"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ------------- OTP store -------------

type memOTPRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]entity.OTP
	clock *clock
}

func newMemOTPRepo(c *clock) *memOTPRepo {
	return &memOTPRepo{byID: map[uuid.UUID]entity.OTP{}, clock: c}
}

func (r *memOTPRepo) DeleteActive(_ context.Context, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, otp := range r.byID {
		if otp.Identifier == identifier {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *memOTPRepo) Create(_ context.Context, otp *entity.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[otp.ID] = *otp
	return nil
}

func (r *memOTPRepo) FindActive(_ context.Context, identifier string) (*entity.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *entity.OTP
	for _, otp := range r.byID {
		if otp.Identifier != identifier || otp.Verified || otp.IsExpired(r.clock.Now()) {
			continue
		}
		if found == nil || otp.CreatedAt.After(found.CreatedAt) {
			cp := otp
			found = &cp
		}
	}
	return found, nil
}

func (r *memOTPRepo) AttachDelivery(_ context.Context, id uuid.UUID, challengeID, factorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp, ok := r.byID[id]
	if !ok {
		return repository.ErrOTPNotFound
	}
	otp.ChallengeID, otp.FactorID = nil, nil
	if challengeID != "" {
		otp.ChallengeID = &challengeID
	}
	if factorID != "" {
		otp.FactorID = &factorID
	}
	r.byID[id] = otp
	return nil
}

func (r *memOTPRepo) IncrementAttempts(_ context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp, ok := r.byID[id]
	if !ok {
		return 0, repository.ErrOTPNotFound
	}
	otp.Attempts++
	r.byID[id] = otp
	return otp.Attempts, nil
}

func (r *memOTPRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

// records returns every stored record for identifier, expired included
func (r *memOTPRepo) records(identifier string) []entity.OTP {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.OTP
	for _, otp := range r.byID {
		if otp.Identifier == identifier {
			out = append(out, otp)
		}
	}
	return out
}

func (r *memOTPRepo) setAttempts(identifier string, attempts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, otp := range r.byID {
		if otp.Identifier == identifier {
			otp.Attempts = attempts
			r.byID[id] = otp
		}
	}
}

// ------------- request log -------------

type memRequestRepo struct {
	mu   sync.Mutex
	reqs []entity.OTPRequest
}

func (r *memRequestRepo) Create(_ context.Context, req *entity.OTPRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, *req)
	return nil
}

func (r *memRequestRepo) CountSince(_ context.Context, identifier string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.reqs {
		if req.Identifier == identifier && req.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

// ------------- users -------------

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]entity.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[uuid.UUID]entity.User{}}
}

func (r *memUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email != nil && *u.Email == email })
}

func (r *memUserRepo) FindByPhone(_ context.Context, phone string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (r *memUserRepo) find(match func(entity.User) bool) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return errors.New("user not found")
	}
	r.users[user.ID] = *user
	return nil
}

// ------------- sessions -------------

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]entity.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[uuid.UUID]entity.Session{}}
}

func (r *memSessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *memSessionRepo) FindValidSession(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.RevokedAt != nil {
		return nil, nil
	}
	return &s, nil
}

func (r *memSessionRepo) Revoke(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		now := time.Now()
		s.RevokedAt = &now
		r.sessions[id] = s
	}
	return nil
}

// ------------- providers -------------

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []string
}

func (m *fakeMailer) Send(_ context.Context, to, _ string, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakeChallenger struct {
	mu           sync.Mutex
	enrollErr    error
	challengeErr error
	verifyErr    error
	validCode    string
	enrolls      int
	challenges   int
	verifies     int
}

func (c *fakeChallenger) EnrollFactor(context.Context, string) provider.FactorResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enrolls++
	if c.enrollErr != nil {
		return provider.FactorResult{Err: c.enrollErr}
	}
	return provider.FactorResult{FactorID: "auth_factor_1"}
}

func (c *fakeChallenger) CreateChallenge(context.Context, string) provider.ChallengeResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.challenges++
	if c.challengeErr != nil {
		return provider.ChallengeResult{Err: c.challengeErr}
	}
	return provider.ChallengeResult{ChallengeID: "auth_challenge_1"}
}

func (c *fakeChallenger) VerifyChallenge(_ context.Context, _, code string) provider.VerifyResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verifies++
	if c.verifyErr != nil {
		return provider.VerifyResult{Err: c.verifyErr}
	}
	return provider.VerifyResult{Valid: code == c.validCode}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
